package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	favoriteRepository "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/repository"
	favoriteService "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/service"
	listing "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/storage"
	"github.com/stretchr/testify/require"
)

type clientMock struct {
	mu        sync.Mutex
	nextID    int
	sendErr   error
	deleteErr error
	messages  []*bot.SendMessageParams
	photos    []*bot.SendPhotoParams
	deleted   []*bot.DeleteMessageParams
	commands  []*bot.SetMyCommandsParams
}

func (m *clientMock) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.messages = append(m.messages, params)
	m.nextID++
	return &models.Message{ID: m.nextID}, nil
}

func (m *clientMock) SendPhoto(_ context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.photos = append(m.photos, params)
	m.nextID++
	return &models.Message{ID: m.nextID}, nil
}

func (m *clientMock) DeleteMessage(_ context.Context, params *bot.DeleteMessageParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, params)
	return m.deleteErr == nil, m.deleteErr
}

func (m *clientMock) SetMyCommands(_ context.Context, params *bot.SetMyCommandsParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, params)
	return true, nil
}

// replies returns the texts sent to chatID
func (m *clientMock) replies(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.messages {
		if p.ChatID == chatID {
			out = append(out, p.Text)
		}
	}
	return out
}

type registrarMock struct {
	patterns []string
}

func (r *registrarMock) RegisterHandler(_ bot.HandlerType, pattern string, _ bot.MatchType, _ bot.HandlerFunc, _ ...bot.Middleware) string {
	r.patterns = append(r.patterns, pattern)
	return pattern
}

type lookupMock map[listing.ID]listing.Listing

func (m lookupMock) Lookup(id listing.ID) (listing.Listing, bool) {
	l, ok := m[id]
	return l, ok
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		TargetChannelID:    "-1001",
		FavoritesChannelID: "-1002",
		CommandChatID:      "-1003",
		Search:             config.Search{SiteURL: "https://www.ouedkniss.com"},
	}
}

type fixture struct {
	handler *Handler
	client  *clientMock
	repo    favoriteRepository.Repository
}

func newFixture(t *testing.T, cfg *config.Config, lookup lookupMock) *fixture {
	t.Helper()

	doc, err := storage.NewFileDocument(filepath.Join(t.TempDir(), "favorites.json"))
	require.NoError(t, err)
	repo := favoriteRepository.NewDocumentStorage(doc, discard())

	client := &clientMock{}
	notifier := NewNotifier(cfg, client, discard())
	svc := favoriteService.New(cfg, repo, lookup, notifier, discard())

	return &fixture{
		handler: New(cfg, client, svc, discard()),
		client:  client,
		repo:    repo,
	}
}

func commandUpdate(chatID int64, from models.User, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   1,
			Chat: models.Chat{ID: chatID},
			From: &from,
			Text: text,
		},
	}
}

var (
	amine = models.User{ID: 1, Username: "amine", FirstName: "Amine"}
	sara  = models.User{ID: 2, FirstName: "Sara"}
)

func sampleListing() listing.Listing {
	return listing.Listing{
		ID:           "7",
		Title:        "Location F3 <Kouba>",
		Slug:         "/location-f3-kouba",
		CreatedAt:    "2025-09-26T08:30:00Z",
		Description:  "Bel appartement & parking",
		PricePreview: "4.5",
		PriceUnit:    "MILLION",
		PriceType:    "PER_MONTH",
		Cities:       []listing.City{{Name: "Kouba", Region: &listing.Region{Name: "Alger"}}},
		DefaultMedia: &listing.Media{MediaURL: "https://cdn.example.com/7.jpg"},
		Store:        &listing.Store{Name: "Agence Atlas"},
	}
}

func errSend() error {
	return fmt.Errorf("Forbidden: bot is not a member of the channel chat")
}
