package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/storage"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// DocumentStorage implements Repository as one JSON array rewritten on every change
type DocumentStorage struct {
	doc storage.Document
	log *slog.Logger
	mu  sync.Mutex
}

// NewDocumentStorage creates a favorites repository backed by doc
func NewDocumentStorage(doc storage.Document, log *slog.Logger) *DocumentStorage {
	return &DocumentStorage{doc: doc, log: log}
}

func (s *DocumentStorage) List(ctx context.Context) ([]domain.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(ctx)
}

func (s *DocumentStorage) Append(ctx context.Context, favorite domain.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	favorites, err := s.read(ctx)
	if err != nil {
		return err
	}

	return s.write(ctx, append(favorites, favorite))
}

func (s *DocumentStorage) RemoveWhere(ctx context.Context, pred func(domain.Favorite) bool) ([]domain.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	favorites, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	removed, kept := lo.FilterReject(favorites, func(f domain.Favorite, _ int) bool { return pred(f) })
	if len(removed) == 0 {
		return []domain.Favorite{}, nil
	}

	if err := s.write(ctx, kept); err != nil {
		return nil, err
	}
	return removed, nil
}

// read returns an empty list for a missing or unparsable document
func (s *DocumentStorage) read(ctx context.Context) ([]domain.Favorite, error) {
	data, err := s.doc.Read(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return []domain.Favorite{}, nil
		}
		return nil, oops.With("document", s.doc.Name(), "context", "failed to read favorites").Wrap(err)
	}

	var favorites []domain.Favorite
	if err := json.Unmarshal(data, &favorites); err != nil {
		s.log.Warn("Favorites document is corrupt, treating it as empty",
			"document", s.doc.Name(), "error", oops.Wrap(stderrors.Join(errors.ErrPersistenceCorrupt, err)))
		return []domain.Favorite{}, nil
	}
	if favorites == nil {
		favorites = []domain.Favorite{}
	}

	return favorites, nil
}

func (s *DocumentStorage) write(ctx context.Context, favorites []domain.Favorite) error {
	if favorites == nil {
		favorites = []domain.Favorite{}
	}

	data, err := json.MarshalIndent(favorites, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal favorites").Wrap(err)
	}

	if err := s.doc.Write(ctx, data); err != nil {
		return oops.With("document", s.doc.Name(), "count", len(favorites), "context", "failed to write favorites").Wrap(err)
	}
	return nil
}
