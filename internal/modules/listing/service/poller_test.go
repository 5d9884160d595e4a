package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/repository"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceMock struct {
	mu       sync.Mutex
	listings []domain.Listing
	err      error
	calls    int
}

func (m *sourceMock) FetchListings(context.Context) ([]domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.listings, m.err
}

type notifierMock struct {
	mu     sync.Mutex
	sent   []domain.ID
	failOn map[domain.ID]bool
}

func (m *notifierMock) SendListing(_ context.Context, l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[l.ID] {
		return fmt.Errorf("telegram: bad request")
	}
	m.sent = append(m.sent, l.ID)
	return nil
}

func (m *notifierMock) sentIDs() []domain.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ID(nil), m.sent...)
}

type failingRepo struct{ repository.Repository }

func (failingRepo) Save(context.Context, *domain.SeenSet) error { return fmt.Errorf("disk full") }

func listing(id, media string) domain.Listing {
	l := domain.Listing{ID: domain.ID(id), Title: "Listing " + id, Slug: "/location-f3"}
	if media != "" {
		l.DefaultMedia = &domain.Media{MediaURL: media}
	}
	return l
}

type env struct {
	poller   *Poller
	source   *sourceMock
	notifier *notifierMock
	repo     *repository.DocumentStorage
	path     string
}

func newEnv(t *testing.T, listings ...domain.Listing) *env {
	t.Helper()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	path := filepath.Join(t.TempDir(), "postedIds.json")
	doc, err := storage.NewFileDocument(path)
	require.NoError(t, err)

	e := &env{
		source:   &sourceMock{listings: listings},
		notifier: &notifierMock{failOn: map[domain.ID]bool{}},
		repo:     repository.NewDocumentStorage(doc, lg),
		path:     path,
	}
	cfg := &config.Config{PollInterval: time.Hour, Search: config.Search{SiteURL: "https://www.ouedkniss.com"}}
	e.poller = New(cfg, e.source, e.repo, e.notifier, lg)
	require.NoError(t, e.poller.Load(context.Background()))
	return e
}

func (e *env) persisted(t *testing.T) []domain.ID {
	t.Helper()
	seen, err := e.repo.Load(context.Background())
	require.NoError(t, err)
	return seen.IDs()
}

func TestPoller_Tick_SkipsListingsWithoutMedia(t *testing.T) {
	e := newEnv(t, listing("1", "x"), listing("2", ""))

	res, err := e.poller.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TickResult{Fetched: 2, WithoutMedia: 1, Sent: 1}, res)
	assert.Equal(t, []domain.ID{"1"}, e.notifier.sentIDs())
	assert.Equal(t, []domain.ID{"1"}, e.persisted(t))

	_, ok := e.poller.Lookup("2")
	assert.False(t, ok, "listings without media are not cached")
}

func TestPoller_Tick_Idempotent(t *testing.T) {
	e := newEnv(t, listing("1", "x"), listing("3", "y"))

	_, err := e.poller.Tick(context.Background())
	require.NoError(t, err)

	res, err := e.poller.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TickResult{Fetched: 2, Skipped: 2}, res)
	assert.Equal(t, []domain.ID{"1", "3"}, e.notifier.sentIDs())
	assert.Equal(t, 2, e.poller.SeenCount())
}

func TestPoller_Tick_AlreadyPersistedIDs(t *testing.T) {
	e := newEnv(t, listing("1", "x"), listing("2", "y"))
	require.NoError(t, os.WriteFile(e.path, []byte(`["2"]`), 0644))
	require.NoError(t, e.poller.Load(context.Background()))

	_, err := e.poller.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.ID{"1"}, e.notifier.sentIDs())
	assert.Equal(t, []domain.ID{"2", "1"}, e.persisted(t))
}

func TestPoller_Tick_FetchFailure(t *testing.T) {
	e := newEnv(t)
	e.source.err = fmt.Errorf("%w: timeout", errors.ErrSourceUnavailable)

	_, err := e.poller.Tick(context.Background())
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)
	assert.Empty(t, e.notifier.sentIDs())

	_, statErr := os.Stat(e.path)
	assert.True(t, os.IsNotExist(statErr), "nothing is persisted when the fetch fails")
}

func TestPoller_Tick_EmptyFetchPersists(t *testing.T) {
	e := newEnv(t)

	res, err := e.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TickResult{}, res)

	data, err := os.ReadFile(e.path)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}

func TestPoller_Tick_DeliveryFailure(t *testing.T) {
	e := newEnv(t, listing("1", "x"), listing("2", "y"), listing("3", "z"))
	e.notifier.failOn["2"] = true

	res, err := e.poller.Tick(context.Background())
	assert.ErrorIs(t, err, errors.ErrDeliveryFailed)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []domain.ID{"1"}, e.notifier.sentIDs())
	assert.Equal(t, []domain.ID{"1"}, e.persisted(t), "delivered ids are saved, the failed one is not")

	// the failed listing is retried on the next tick
	delete(e.notifier.failOn, "2")
	res, err = e.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, []domain.ID{"1", "2", "3"}, e.notifier.sentIDs())
	assert.Equal(t, []domain.ID{"1", "2", "3"}, e.persisted(t))
}

func TestPoller_Tick_PersistFailure(t *testing.T) {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := &sourceMock{listings: []domain.Listing{listing("1", "x")}}
	ntf := &notifierMock{}
	p := New(&config.Config{PollInterval: time.Hour}, src, failingRepo{}, ntf, lg)

	res, err := p.Tick(context.Background())
	require.Error(t, err)
	assert.False(t, stderrors.Is(err, errors.ErrDeliveryFailed))
	assert.Equal(t, 1, res.Sent)
}

func TestPoller_Lookup(t *testing.T) {
	e := newEnv(t, listing("1", "x"))
	_, ok := e.poller.Lookup("1")
	assert.False(t, ok)

	_, err := e.poller.Tick(context.Background())
	require.NoError(t, err)

	l, ok := e.poller.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, "Listing 1", l.Title)

	// a newer version of the same listing replaces the cached one
	updated := listing("1", "x")
	updated.Title = "Listing 1 (updated)"
	e.source.listings = []domain.Listing{updated}
	_, err = e.poller.Tick(context.Background())
	require.NoError(t, err)

	l, ok = e.poller.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, "Listing 1 (updated)", l.Title)
}

func TestPoller_Run(t *testing.T) {
	e := newEnv(t, listing("1", "x"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.poller.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(e.notifier.sentIDs()) == 1
	}, time.Second, 10*time.Millisecond, "first tick runs immediately")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_Run_KeepsTickingAfterFailure(t *testing.T) {
	e := newEnv(t, listing("1", "x"))
	e.poller.interval = 10 * time.Millisecond
	e.source.err = fmt.Errorf("%w: boom", errors.ErrSourceUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.poller.Run(ctx) }()

	require.Eventually(t, func() bool {
		e.source.mu.Lock()
		defer e.source.mu.Unlock()
		return e.source.calls >= 3
	}, time.Second, 5*time.Millisecond)

	e.source.mu.Lock()
	e.source.err = nil
	e.source.mu.Unlock()

	require.Eventually(t, func() bool {
		return len(e.notifier.sentIDs()) == 1
	}, time.Second, 5*time.Millisecond)
}

type slowSource struct {
	mu          sync.Mutex
	listings    []domain.Listing
	inFlight    int
	maxInFlight int
}

func (s *slowSource) FetchListings(context.Context) ([]domain.Listing, error) {
	s.mu.Lock()
	s.inFlight++
	s.maxInFlight = max(s.maxInFlight, s.inFlight)
	s.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return s.listings, nil
}

func TestPoller_Tick_OverlappingCallsRunOneAtATime(t *testing.T) {
	e := newEnv(t)
	src := &slowSource{listings: []domain.Listing{listing("1", "x"), listing("2", "x")}}
	e.poller.source = src

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.poller.Tick(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, src.maxInFlight)
	assert.Equal(t, []domain.ID{"1", "2"}, e.notifier.sentIDs(), "each listing is delivered once")
	assert.Equal(t, []domain.ID{"1", "2"}, e.persisted(t))
}
