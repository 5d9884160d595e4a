package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	favoriteService "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/service"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	sloghttp "github.com/samber/slog-http"
)

// Server serves the favorites RSS feed
type Server struct {
	cfg       *config.Config
	favorites *favoriteService.Service
	logger    *slog.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, favorites *favoriteService.Service, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		favorites: favorites,
		logger:    logger,
	}
}

// Handler returns the routes wrapped in access logging and panic recovery
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Favorites feed, optionally narrowed with ?user=<id>
	mux.HandleFunc("GET /rss/favorites", s.handleFavoritesFeed)

	// Health check endpoint
	mux.HandleFunc("GET /health", s.handleHealth)

	// Root endpoint with instructions
	mux.HandleFunc("GET /{$}", s.handleRoot)

	handler := sloghttp.Recovery(mux)
	return sloghttp.New(s.logger)(handler)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("RSS server starting", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("RSS server stopped")
	return nil
}

func (s *Server) handleFavoritesFeed(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")

	// Get base URL from request
	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.favorites.GenerateFeed(r.Context(), baseURL, userID)
	if err != nil {
		s.logger.Error("Error generating feed", "user_id", userID, "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Ouedkniss Favorites</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>Ouedkniss Favorites Feed</h1>
    <div class="info">
        <p>Listings saved with <code>/favorite</code> are published as RSS.</p>
        <p>All favorites: <code>/rss/favorites</code></p>
        <p>One user: <code>/rss/favorites?user={userID}</code></p>
    </div>
    <p><a href="/health">Health Check</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
