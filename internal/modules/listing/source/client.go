// Package source queries the classifieds search API.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/requester"
	"github.com/go-pkgz/requester/middleware"
	"github.com/google/uuid"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const maxResponseSize = 5 * 1024 * 1024

// Client fetches the first page of listings matching the configured filter
type Client struct {
	apiURL string
	body   []byte
	rq     *requester.Requester
	log    *slog.Logger
}

// New creates a client for the configured search
func New(cfg *config.Config, log *slog.Logger) (*Client, error) {
	body, err := json.Marshal(newSearchRequest(cfg.Search))
	if err != nil {
		return nil, oops.With("context", "failed to marshal search request").Wrap(err)
	}

	mws := lo.Map(browserHeaders, func(h [2]string, _ int) middleware.RoundTripperHandler {
		return middleware.Header(h[0], h[1])
	})
	mws = append(mws, trackHeaders(uuid.NewString()), logRoundTripper(log))

	return &Client{
		apiURL: cfg.Search.APIURL,
		body:   body,
		rq:     requester.New(http.Client{Timeout: cfg.Search.Timeout}, mws...),
		log:    log,
	}, nil
}

type searchResponse struct {
	Data *struct {
		Search *struct {
			Announcements *struct {
				Data []domain.Listing `json:"data"`
			} `json:"announcements"`
		} `json:"search"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// FetchListings sends the search query once. Any transport, status or
// schema problem is reported as errors.ErrSourceUnavailable.
func (c *Client) FetchListings(ctx context.Context) ([]domain.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(c.body))
	if err != nil {
		return nil, unavailable(err, "api_url", c.apiURL, "context", "failed to build request")
	}

	resp, err := c.rq.Do(req)
	if err != nil {
		return nil, unavailable(err, "api_url", c.apiURL, "context", "request failed")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, unavailable(fmt.Errorf("unexpected status %d", resp.StatusCode), "api_url", c.apiURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, unavailable(err, "api_url", c.apiURL, "context", "failed to read response")
	}

	var sr searchResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, unavailable(err, "api_url", c.apiURL, "context", "malformed response")
	}

	if len(sr.Errors) > 0 {
		messages := lo.Map(sr.Errors, func(e graphqlError, _ int) string { return e.Message })
		return nil, unavailable(fmt.Errorf("graphql errors: %v", messages), "api_url", c.apiURL)
	}

	if sr.Data == nil || sr.Data.Search == nil || sr.Data.Search.Announcements == nil {
		return nil, unavailable(fmt.Errorf("response has no search.announcements"), "api_url", c.apiURL)
	}

	listings := sr.Data.Search.Announcements.Data
	if listings == nil {
		listings = []domain.Listing{}
	}

	return listings, nil
}

func unavailable(err error, attrs ...any) error {
	return oops.With(attrs...).Wrap(fmt.Errorf("%w: %w", errors.ErrSourceUnavailable, err))
}

// trackHeaders sets the tracking headers of the web app: a track id fixed for
// the client lifetime and the request time in unix seconds
func trackHeaders(trackID string) middleware.RoundTripperHandler {
	return func(next http.RoundTripper) http.RoundTripper {
		return middleware.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req.Header.Set("X-Track-Id", trackID)
			req.Header.Set("X-Track-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
			return next.RoundTrip(req)
		})
	}
}

// logRoundTripper logs every query and the outcome at debug level
func logRoundTripper(lg *slog.Logger) middleware.RoundTripperHandler {
	return func(next http.RoundTripper) http.RoundTripper {
		return middleware.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			attrs := []any{"method", req.Method, "url", req.URL.String(), "elapsed", time.Since(start)}
			if err != nil {
				lg.DebugContext(req.Context(), "Search request failed", append(attrs, "error", err)...)
				return resp, err
			}

			lg.DebugContext(req.Context(), "Search response received", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}
