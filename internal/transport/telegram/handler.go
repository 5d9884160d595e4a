package telegram

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	favorite "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/domain"
	favoriteService "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/service"
	listing "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
)

const (
	favoriteUsage   = "Usage: /favorite <id> [note]\nExample: /favorite 41234567 great view"
	unfavoriteUsage = "Usage: /unfavorite <id>\nExample: /unfavorite 41234567"
)

// Handler handles Telegram bot commands
type Handler struct {
	cfg       *config.Config
	client    Client
	favorites *favoriteService.Service
	log       *slog.Logger
}

// New creates a new Telegram handler
func New(cfg *config.Config, client Client, favorites *favoriteService.Service, log *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		client:    client,
		favorites: favorites,
		log:       log,
	}
}

// Register installs the command handlers and publishes the command list to
// the command chat. Nothing is installed without a command chat.
func (h *Handler) Register(ctx context.Context, r Registrar) {
	if h.cfg.CommandChatID == "" {
		h.log.Warn("Commands not registered: command_chat_id is not configured")
		return
	}

	r.RegisterHandler(bot.HandlerTypeMessageText, "/favorite", bot.MatchTypePrefix, h.handleFavorite)
	r.RegisterHandler(bot.HandlerTypeMessageText, "/unfavorite", bot.MatchTypePrefix, h.handleUnfavorite)

	if _, err := h.client.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "favorite", Description: "Save a listing as favorite with a note"},
			{Command: "unfavorite", Description: "Remove a listing from your favorites"},
		},
		Scope: &models.BotCommandScopeChat{ChatID: h.cfg.CommandChatID},
	}); err != nil {
		h.log.Error("Failed to publish commands", "chat_id", h.cfg.CommandChatID, "error", err)
		return
	}

	h.log.Info("Commands registered", "chat_id", h.cfg.CommandChatID)
}

func (h *Handler) handleFavorite(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, user, args, ok := h.command(update, "favorite")
	if !ok {
		return
	}
	defer h.recoverCommand(ctx, msg, "favorite", "Failed to save favorite.")

	fields := strings.Fields(args)
	if len(fields) == 0 {
		h.reply(ctx, msg, favoriteUsage)
		return
	}
	id := fields[0]
	note := strings.TrimSpace(strings.TrimPrefix(args, id))

	f, err := h.favorites.Add(ctx, listing.ID(id), note, user)
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidCommand) {
			h.reply(ctx, msg, favoriteUsage)
			return
		}
		h.log.Error("Failed to save favorite", "id", id, "user_id", user.ID, "error", err)
		h.reply(ctx, msg, "Failed to save favorite.")
		return
	}

	h.reply(ctx, msg, fmt.Sprintf("Saved %s as favorite with review: %s", f.Title, f.Note))
}

func (h *Handler) handleUnfavorite(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, user, args, ok := h.command(update, "unfavorite")
	if !ok {
		return
	}
	defer h.recoverCommand(ctx, msg, "unfavorite", "Failed to remove favorite.")

	fields := strings.Fields(args)
	if len(fields) == 0 {
		h.reply(ctx, msg, unfavoriteUsage)
		return
	}
	id := fields[0]

	removed, err := h.favorites.Remove(ctx, listing.ID(id), user)
	if err != nil {
		h.log.Error("Failed to remove favorite", "id", id, "user_id", user.ID, "error", err)
		h.reply(ctx, msg, "Failed to remove favorite.")
		return
	}

	if len(removed) == 0 {
		h.reply(ctx, msg, fmt.Sprintf("No favorite found for id : %s owned by you.", id))
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("Removed %s from favorites.", removed[0].Title))
}

// command extracts the arguments of /name or /name@bot sent in the command chat
func (h *Handler) command(update *models.Update, name string) (*models.Message, favorite.User, string, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || !h.inCommandChat(msg.Chat) {
		return nil, favorite.User{}, "", false
	}

	text := strings.TrimSpace(msg.Text)
	cmd, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		cmd, args = text[:i], text[i:]
	}
	cmd, _, _ = strings.Cut(cmd, "@")
	if cmd != "/"+name {
		return nil, favorite.User{}, "", false
	}

	return msg, userOf(msg.From), strings.TrimSpace(args), true
}

func (h *Handler) inCommandChat(chat models.Chat) bool {
	id := h.cfg.CommandChatID
	if id == "" {
		return false
	}
	if id == strconv.FormatInt(chat.ID, 10) {
		return true
	}
	return chat.Username != "" && strings.EqualFold(id, "@"+chat.Username)
}

func (h *Handler) recoverCommand(ctx context.Context, msg *models.Message, command, failure string) {
	if r := recover(); r != nil {
		h.log.Error("Command panicked", "command", command, "chat_id", msg.Chat.ID, "panic", r)
		h.reply(ctx, msg, failure)
	}
}

func (h *Handler) reply(ctx context.Context, msg *models.Message, text string) {
	if _, err := h.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   text,
	}); err != nil {
		h.log.Error("Failed to reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

func userOf(u *models.User) favorite.User {
	tag := u.FirstName
	if u.Username != "" {
		tag = "@" + u.Username
	}
	return favorite.User{ID: strconv.FormatInt(u.ID, 10), Tag: tag}
}
