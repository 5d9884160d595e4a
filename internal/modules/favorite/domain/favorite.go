package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	listing "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/samber/oops"
)

// Favorite is a listing bookmarked by a user with a personal note.
// Document keys are kept compatible with favorites.json written by earlier versions.
type Favorite struct {
	ID           listing.ID     `json:"id"`
	URL          string         `json:"url"`
	Title        string         `json:"title"`
	PricePreview listing.Amount `json:"pricePreview,omitempty"`
	PriceUnit    string         `json:"priceUnit,omitempty"`
	PriceType    string         `json:"priceType,omitempty"`
	MediaURL     string         `json:"mediaUrl,omitempty"`
	City         string         `json:"city,omitempty"`
	Region       string         `json:"region,omitempty"`
	CreatedAt    string         `json:"createdAt"`
	Note         string         `json:"note"`
	UserID       string         `json:"userId"`
	UserTag      string         `json:"userTag"`
	Timestamp    int64          `json:"timestamp"` // unix milliseconds
	MessageID    int            `json:"messageId,omitempty"`
	ChannelID    string         `json:"channelId,omitempty"`
}

// User is the person issuing a command
type User struct {
	ID  string
	Tag string
}

// MirrorRef points at the copy of a favorite posted to the favorites channel
type MirrorRef struct {
	ChannelID string
	MessageID int
}

// IsZero reports whether nothing was posted
func (r MirrorRef) IsZero() bool {
	return r.MessageID == 0
}

// New builds a favorite of l for user
func New(l listing.Listing, siteURL, note string, user User, now time.Time) Favorite {
	city, region := l.City()

	createdAt := l.CreatedAt
	if createdAt == "" {
		createdAt = now.UTC().Format(time.RFC3339Nano)
	}

	return Favorite{
		ID:           l.ID,
		URL:          l.URL(siteURL),
		Title:        l.Title,
		PricePreview: l.PricePreview,
		PriceUnit:    l.PriceUnit,
		PriceType:    l.PriceType,
		MediaURL:     l.MediaURL(),
		City:         city,
		Region:       region,
		CreatedAt:    createdAt,
		Note:         note,
		UserID:       user.ID,
		UserTag:      user.Tag,
		Timestamp:    now.UnixMilli(),
	}
}

// OwnedBy reports whether the favorite is listing id saved by user
func (f Favorite) OwnedBy(id listing.ID, userID string) bool {
	return f.ID == id && f.UserID == userID
}

// Mirror returns where the favorite was mirrored, if anywhere
func (f Favorite) Mirror() MirrorRef {
	return MirrorRef{ChannelID: f.ChannelID, MessageID: f.MessageID}
}

// Created returns the local creation time
func (f Favorite) Created() time.Time {
	return time.UnixMilli(f.Timestamp)
}

// UnmarshalJSON accepts documents written by earlier versions, whose
// messageId is a string referring to another chat platform. Such ids, and
// anything that is not an integer, decode as "not mirrored".
func (f *Favorite) UnmarshalJSON(b []byte) error {
	type plain Favorite
	aux := struct {
		*plain
		MessageID json.RawMessage `json:"messageId"`
	}{plain: (*plain)(f)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return oops.With("context", "invalid favorite").Wrap(err)
	}

	f.MessageID = 0
	raw := bytes.TrimSpace(aux.MessageID)
	if len(raw) == 0 || raw[0] == '"' {
		return nil
	}
	if id, err := strconv.Atoi(string(raw)); err == nil {
		f.MessageID = id
	}
	return nil
}
