package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/repository"
	listing "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// ListingLookup resolves listings fetched earlier in the process lifetime
type ListingLookup interface {
	Lookup(id listing.ID) (listing.Listing, bool)
}

// Mirror posts favorites to the favorites channel and removes them again.
// PostFavorite returns a zero MirrorRef when mirroring is not configured.
type Mirror interface {
	PostFavorite(ctx context.Context, favorite domain.Favorite) (domain.MirrorRef, error)
	DeleteFavorite(ctx context.Context, ref domain.MirrorRef) error
}

// Service handles favorite business logic
type Service struct {
	repo    repository.Repository
	lookup  ListingLookup
	mirror  Mirror
	siteURL string
	log     *slog.Logger
	now     func() time.Time
}

// New creates a new favorite service
func New(cfg *config.Config, repo repository.Repository, lookup ListingLookup, mirror Mirror, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		lookup:  lookup,
		mirror:  mirror,
		siteURL: cfg.Search.SiteURL,
		log:     log,
		now:     time.Now,
	}
}

// Add saves listing id as a favorite of user. Listings unknown to the
// lookup are saved from a stub, so adding never depends on the cache.
func (s *Service) Add(ctx context.Context, id listing.ID, note string, user domain.User) (domain.Favorite, error) {
	id = listing.ID(strings.TrimSpace(string(id)))
	if id == "" {
		return domain.Favorite{}, oops.With("context", "listing id is required").Wrap(errors.ErrInvalidCommand)
	}

	item, ok := s.lookup.Lookup(id)
	if !ok {
		item = listing.Stub(id)
	}

	favorite := domain.New(item, s.siteURL, strings.TrimSpace(note), user, s.now())

	ref, err := s.mirror.PostFavorite(ctx, favorite)
	if err != nil {
		s.log.Warn("Failed to mirror favorite", "id", id, "user_id", user.ID, "error", err)
	} else if !ref.IsZero() {
		favorite.MessageID = ref.MessageID
		favorite.ChannelID = ref.ChannelID
	}

	if err := s.repo.Append(ctx, favorite); err != nil {
		return domain.Favorite{}, oops.With("id", id, "user_id", user.ID, "context", "failed to save favorite").Wrap(err)
	}

	s.log.Info("Favorite added", "id", id, "user_id", user.ID, "title", favorite.Title, "message_id", favorite.MessageID)
	return favorite, nil
}

// Remove deletes the favorites of listing id owned by user and their mirrored
// messages. Failing to delete a mirrored message is not an error.
func (s *Service) Remove(ctx context.Context, id listing.ID, user domain.User) ([]domain.Favorite, error) {
	id = listing.ID(strings.TrimSpace(string(id)))
	if id == "" {
		return nil, oops.With("context", "listing id is required").Wrap(errors.ErrInvalidCommand)
	}

	removed, err := s.repo.RemoveWhere(ctx, func(f domain.Favorite) bool {
		return f.OwnedBy(id, user.ID)
	})
	if err != nil {
		return nil, oops.With("id", id, "user_id", user.ID, "context", "failed to remove favorite").Wrap(err)
	}

	for _, f := range removed {
		ref := f.Mirror()
		if ref.IsZero() {
			continue
		}
		if err := s.mirror.DeleteFavorite(ctx, ref); err != nil {
			s.log.Debug("Mirrored favorite not deleted", "id", id, "message_id", ref.MessageID, "error", err)
		}
	}

	if len(removed) > 0 {
		s.log.Info("Favorite removed", "id", id, "user_id", user.ID, "removed_count", len(removed))
	}
	return removed, nil
}

// List returns all favorites, or only those of userID when it is not empty
func (s *Service) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	favorites, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return favorites, nil
	}
	return lo.Filter(favorites, func(f domain.Favorite, _ int) bool { return f.UserID == userID }), nil
}
