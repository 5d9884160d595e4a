package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorilla/feeds"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/domain"
	listing "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// GenerateFeed builds an RSS feed of favorites, newest first
func (s *Service) GenerateFeed(ctx context.Context, baseURL, userID string) (*feeds.Feed, error) {
	favorites, err := s.List(ctx, userID)
	if err != nil {
		return nil, oops.With("user_id", userID, "context", "failed to list favorites").Wrap(err)
	}

	link := baseURL + "/rss/favorites"
	if userID != "" {
		link += "?user=" + userID
	}

	feed := &feeds.Feed{
		Title:       "Favorite listings",
		Link:        &feeds.Link{Href: link},
		Description: "Listings saved with /favorite",
		Created:     s.now(),
	}

	items := lo.Map(favorites, func(f domain.Favorite, _ int) *feeds.Item {
		return favoriteToFeedItem(f)
	})
	// stored oldest first
	feed.Items = lo.Reverse(items)

	if len(favorites) > 0 {
		feed.Updated = favorites[len(favorites)-1].Created()
	}

	return feed, nil
}

func favoriteToFeedItem(f domain.Favorite) *feeds.Item {
	var b strings.Builder
	if f.Note != "" {
		fmt.Fprintf(&b, "Reviewer: %s\n\n%s\n\n", f.UserTag, f.Note)
	}
	fmt.Fprintf(&b, "Price: %s\n", listing.PriceLine(string(f.PricePreview), f.PriceUnit, f.PriceType))
	fmt.Fprintf(&b, "Location: %s", listing.LocationLine(f.City, f.Region))

	return &feeds.Item{
		Title:       f.Title,
		Link:        &feeds.Link{Href: f.URL},
		Description: b.String(),
		Author:      &feeds.Author{Name: f.UserTag},
		Created:     f.Created(),
		Id:          fmt.Sprintf("%s-%s", f.ID, f.UserID),
	}
}
