package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenSet(t *testing.T) {
	s := NewSeenSet("3", "1", "3")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []ID{"3", "1"}, s.IDs())

	assert.True(t, s.Add("2"))
	assert.False(t, s.Add("1"))
	assert.True(t, s.Has("2"))
	assert.False(t, s.Has("4"))
	assert.Equal(t, []ID{"3", "1", "2"}, s.IDs())
}

func TestSeenSet_JSON(t *testing.T) {
	data, err := json.Marshal(NewSeenSet())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	var s SeenSet
	require.NoError(t, json.Unmarshal([]byte(`["50542423", 50542424]`), &s))
	assert.Equal(t, []ID{"50542423", "50542424"}, s.IDs())

	data, err = json.Marshal(&s)
	require.NoError(t, err)
	assert.Equal(t, `["50542423","50542424"]`, string(data))
}
