package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	favorite "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/domain"
	listing "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	"github.com/samber/oops"
)

// Notifier delivers listings to the target channel and mirrors favorites
// to the favorites channel
type Notifier struct {
	client             Client
	targetChannelID    string
	favoritesChannelID string
	siteURL            string
	log                *slog.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(cfg *config.Config, client Client, log *slog.Logger) *Notifier {
	return &Notifier{
		client:             client,
		targetChannelID:    cfg.TargetChannelID,
		favoritesChannelID: cfg.FavoritesChannelID,
		siteURL:            cfg.Search.SiteURL,
		log:                log,
	}
}

// SendListing posts the listing picture with its caption to the target channel
func (n *Notifier) SendListing(ctx context.Context, l listing.Listing) error {
	_, err := n.client.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    n.targetChannelID,
		Photo:     &models.InputFileString{Data: l.MediaURL()},
		Caption:   ListingCaption(l, n.siteURL),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return oops.With("chat_id", n.targetChannelID, "id", l.ID).Wrap(err)
	}
	return nil
}

// PostFavorite mirrors f to the favorites channel. Nothing is posted and a
// zero ref is returned when no favorites channel is configured.
func (n *Notifier) PostFavorite(ctx context.Context, f favorite.Favorite) (favorite.MirrorRef, error) {
	if n.favoritesChannelID == "" {
		return favorite.MirrorRef{}, nil
	}

	caption := FavoriteCaption(f)

	var (
		msg *models.Message
		err error
	)
	if f.MediaURL != "" {
		msg, err = n.client.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    n.favoritesChannelID,
			Photo:     &models.InputFileString{Data: f.MediaURL},
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
	} else {
		msg, err = n.client.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    n.favoritesChannelID,
			Text:      caption,
			ParseMode: models.ParseModeHTML,
		})
	}
	if err != nil {
		return favorite.MirrorRef{}, oops.With("chat_id", n.favoritesChannelID, "id", f.ID).Wrap(err)
	}

	return favorite.MirrorRef{ChannelID: n.favoritesChannelID, MessageID: msg.ID}, nil
}

// DeleteFavorite removes a mirrored favorite. Refs without a channel point
// at the configured favorites channel.
func (n *Notifier) DeleteFavorite(ctx context.Context, ref favorite.MirrorRef) error {
	chatID := ref.ChannelID
	if chatID == "" {
		chatID = n.favoritesChannelID
	}
	if chatID == "" || ref.IsZero() {
		return nil
	}

	if _, err := n.client.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: ref.MessageID,
	}); err != nil {
		return oops.With("chat_id", chatID, "message_id", ref.MessageID).Wrap(err)
	}
	return nil
}
