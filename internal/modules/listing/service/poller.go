package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v2"
	"github.com/google/uuid"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/repository"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Source returns the current page of listings
type Source interface {
	FetchListings(ctx context.Context) ([]domain.Listing, error)
}

// Notifier delivers a listing to the target channel
type Notifier interface {
	SendListing(ctx context.Context, listing domain.Listing) error
}

// TickResult summarises one poll cycle
type TickResult struct {
	Fetched      int
	WithoutMedia int
	Sent         int
	Skipped      int
}

// Poller fetches listings on a fixed interval and forwards the ones not seen before.
// It owns the seen ids and the cache of recently fetched listings.
type Poller struct {
	source   Source
	repo     repository.Repository
	notifier Notifier
	recent   cache.Cache[domain.ID, domain.Listing]
	interval time.Duration
	siteURL  string
	log      *slog.Logger

	// mu serialises ticks: a tick that overruns the interval delays the next
	// one instead of running alongside it, so no id is delivered twice
	mu   sync.Mutex
	seen *domain.SeenSet
}

// New creates a poller
func New(cfg *config.Config, source Source, repo repository.Repository, notifier Notifier, log *slog.Logger) *Poller {
	return &Poller{
		source:   source,
		repo:     repo,
		notifier: notifier,
		recent:   cache.NewCache[domain.ID, domain.Listing](),
		interval: cfg.PollInterval,
		siteURL:  cfg.Search.SiteURL,
		log:      log,
	}
}

// Run loads the seen ids, ticks once immediately and then on every interval
// until ctx is cancelled. A failed tick is logged and does not stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Load(ctx); err != nil {
		return err
	}

	p.log.Info("Poller started", "interval", p.interval, "seen", p.SeenCount())

	p.runTick(ctx)

	// The ticker drops ticks missed while a tick overruns, it never queues them
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Poller stopped")
			return nil
		case <-ticker.C:
			p.runTick(ctx)
		}
	}
}

// Load reads the persisted seen ids
func (p *Poller) Load(ctx context.Context) error {
	seen, err := p.repo.Load(ctx)
	if err != nil {
		return oops.With("context", "failed to load seen ids").Wrap(err)
	}

	p.mu.Lock()
	p.seen = seen
	p.mu.Unlock()
	return nil
}

func (p *Poller) runTick(ctx context.Context) {
	if _, err := p.Tick(ctx); err != nil {
		p.log.Error("Poll failed", "error", err)
	}
}

// Tick runs one fetch → filter → dedupe → deliver → persist cycle.
// An id is marked as seen only after its listing was delivered. A delivery
// failure stops the cycle, but the ids delivered before it are still saved.
func (p *Poller) Tick(ctx context.Context) (TickResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seen == nil {
		p.seen = domain.NewSeenSet()
	}

	lg := p.log.With("tick_id", uuid.NewString())

	var res TickResult

	listings, err := p.source.FetchListings(ctx)
	if err != nil {
		return res, oops.With("context", "failed to fetch listings").Wrap(err)
	}
	res.Fetched = len(listings)

	deliverable := lo.Filter(listings, func(l domain.Listing, _ int) bool { return l.HasMedia() })
	res.WithoutMedia = res.Fetched - len(deliverable)

	var deliveryErr error
	for _, l := range deliverable {
		p.recent.Set(l.ID, l, 0)

		if p.seen.Has(l.ID) {
			res.Skipped++
			continue
		}

		if err := p.notifier.SendListing(ctx, l); err != nil {
			deliveryErr = oops.With("id", l.ID, "title", l.Title).
				Wrap(fmt.Errorf("%w: %w", errors.ErrDeliveryFailed, err))
			break
		}

		p.seen.Add(l.ID)
		res.Sent++
		lg.Info("Listing sent", "id", l.ID, "title", l.Title, "url", l.URL(p.siteURL))
	}

	lg.Info("Poll summary",
		"fetched", res.Fetched,
		"without_media", res.WithoutMedia,
		"sent", res.Sent,
		"skipped", res.Skipped,
	)

	var saveErr error
	if err := p.repo.Save(ctx, p.seen); err != nil {
		saveErr = oops.With("context", "failed to persist seen ids").Wrap(err)
	}

	return res, stderrors.Join(deliveryErr, saveErr)
}

// Lookup returns the listing fetched most recently under id during this process lifetime
func (p *Poller) Lookup(id domain.ID) (domain.Listing, bool) {
	return p.recent.Get(id)
}

// SeenCount returns the number of delivered ids
func (p *Poller) SeenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		return 0
	}
	return p.seen.Len()
}
