package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/storage"
	"github.com/samber/oops"
)

// DocumentStorage implements Repository as a JSON array of ids in a single document
type DocumentStorage struct {
	doc storage.Document
	log *slog.Logger
}

// NewDocumentStorage creates a seen ids repository backed by doc
func NewDocumentStorage(doc storage.Document, log *slog.Logger) *DocumentStorage {
	return &DocumentStorage{doc: doc, log: log}
}

// Load returns the stored set. A missing document yields an empty set,
// a corrupt one is reported as a warning and also yields an empty set.
func (s *DocumentStorage) Load(ctx context.Context) (*domain.SeenSet, error) {
	data, err := s.doc.Read(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return domain.NewSeenSet(), nil
		}
		return nil, oops.With("document", s.doc.Name(), "context", "failed to load seen ids").Wrap(err)
	}

	var seen domain.SeenSet
	if err := json.Unmarshal(data, &seen); err != nil {
		s.log.Warn("Seen ids document is corrupt, starting with an empty set",
			"document", s.doc.Name(), "error", oops.Wrap(stderrors.Join(errors.ErrPersistenceCorrupt, err)))
		return domain.NewSeenSet(), nil
	}

	return &seen, nil
}

// Save overwrites the document with the full set
func (s *DocumentStorage) Save(ctx context.Context, seen *domain.SeenSet) error {
	data, err := json.Marshal(seen)
	if err != nil {
		return oops.With("context", "failed to marshal seen ids").Wrap(err)
	}

	if err := s.doc.Write(ctx, data); err != nil {
		return oops.With("document", s.doc.Name(), "count", seen.Len(), "context", "failed to save seen ids").Wrap(err)
	}
	return nil
}
