package domain

import (
	"encoding/json"
)

// SeenSet is the ordered set of listing ids already delivered.
// Ids are only ever added.
type SeenSet struct {
	ids   []ID
	index map[ID]struct{}
}

// NewSeenSet creates a set from ids, keeping the first occurrence of duplicates
func NewSeenSet(ids ...ID) *SeenSet {
	s := &SeenSet{index: make(map[ID]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id was delivered
func (s *SeenSet) Has(id ID) bool {
	_, ok := s.index[id]
	return ok
}

// Add marks id as delivered, returns false if it already was
func (s *SeenSet) Add(id ID) bool {
	if s.Has(id) {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Len returns the number of ids
func (s *SeenSet) Len() int { return len(s.ids) }

// IDs returns the ids in insertion order
func (s *SeenSet) IDs() []ID {
	out := make([]ID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *SeenSet) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

func (s *SeenSet) UnmarshalJSON(b []byte) error {
	var ids []ID
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = *NewSeenSet(ids...)
	return nil
}
