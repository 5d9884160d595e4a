package di

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	favoriteRepo "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/repository"
	favoriteService "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/service"
	listingRepo "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/repository"
	listingService "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/service"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/source"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/logging"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/storage"
	httpServer "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/transport/http"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Service names for dependency injection
const (
	ServiceSeenDocument      = "seen-document"
	ServiceFavoritesDocument = "favorites-document"
)

// Document names under the storage path, or keys in the bolt database
const (
	seenDocumentName      = "postedIds.json"
	favoritesDocumentName = "favorites.json"
	boltFileName          = "state.db"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Logger
	do.Provide(injector, func(i do.Injector) (*logging.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		lg, err := logging.New(cfg)
		if err != nil {
			return nil, oops.With("log_file", cfg.LogFile, "context", "failed to initialize logger").Wrap(err)
		}
		return lg, nil
	})
	do.Provide(injector, func(i do.Injector) (*slog.Logger, error) {
		lg, err := do.Invoke[*logging.Logger](i)
		if err != nil {
			return nil, err
		}
		return lg.Logger, nil
	})

	// Register Bolt database, opened only with the bolt storage driver
	do.Provide(injector, func(i do.Injector) (*storage.Bolt, error) {
		cfg := do.MustInvoke[*config.Config](i)
		path := filepath.Join(cfg.StoragePath, boltFileName)
		db, err := storage.NewBolt(path)
		if err != nil {
			return nil, oops.With("path", path, "context", "failed to open bolt database").Wrap(err)
		}
		return db, nil
	})

	// Register Documents
	do.ProvideNamed(injector, ServiceSeenDocument, func(i do.Injector) (storage.Document, error) {
		return openDocument(i, seenDocumentName)
	})
	do.ProvideNamed(injector, ServiceFavoritesDocument, func(i do.Injector) (storage.Document, error) {
		return openDocument(i, favoritesDocumentName)
	})

	// Register Listing Repository
	do.Provide(injector, func(i do.Injector) (listingRepo.Repository, error) {
		doc, err := do.InvokeNamed[storage.Document](i, ServiceSeenDocument)
		if err != nil {
			return nil, err
		}
		return listingRepo.NewDocumentStorage(doc, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Favorite Repository
	do.Provide(injector, func(i do.Injector) (favoriteRepo.Repository, error) {
		doc, err := do.InvokeNamed[storage.Document](i, ServiceFavoritesDocument)
		if err != nil {
			return nil, err
		}
		return favoriteRepo.NewDocumentStorage(doc, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Source Client
	do.Provide(injector, func(i do.Injector) (*source.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client, err := source.New(cfg, do.MustInvoke[*slog.Logger](i))
		if err != nil {
			return nil, oops.With("api_url", cfg.Search.APIURL, "context", "failed to initialize source client").Wrap(err)
		}
		return client, nil
	})

	// Register Bot, commands are attached later by the Telegram handler
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		lg := do.MustInvoke[*slog.Logger](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(func(_ context.Context, _ *bot.Bot, update *models.Update) {
				lg.Debug("Update ignored", "update_id", update.ID)
			}),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}
		return b, nil
	})

	// Register Notifier
	do.Provide(injector, func(i do.Injector) (*telegram.Notifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		b, err := do.Invoke[*bot.Bot](i)
		if err != nil {
			return nil, err
		}
		return telegram.NewNotifier(cfg, b, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Poller
	do.Provide(injector, func(i do.Injector) (*listingService.Poller, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client, err := do.Invoke[*source.Client](i)
		if err != nil {
			return nil, err
		}
		repo, err := do.Invoke[listingRepo.Repository](i)
		if err != nil {
			return nil, err
		}
		notifier, err := do.Invoke[*telegram.Notifier](i)
		if err != nil {
			return nil, err
		}
		return listingService.New(cfg, client, repo, notifier, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Favorite Service
	do.Provide(injector, func(i do.Injector) (*favoriteService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := do.Invoke[favoriteRepo.Repository](i)
		if err != nil {
			return nil, err
		}
		poller, err := do.Invoke[*listingService.Poller](i)
		if err != nil {
			return nil, err
		}
		notifier, err := do.Invoke[*telegram.Notifier](i)
		if err != nil {
			return nil, err
		}
		return favoriteService.New(cfg, repo, poller, notifier, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegram.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		b, err := do.Invoke[*bot.Bot](i)
		if err != nil {
			return nil, err
		}
		favorites, err := do.Invoke[*favoriteService.Service](i)
		if err != nil {
			return nil, err
		}
		return telegram.New(cfg, b, favorites, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		favorites, err := do.Invoke[*favoriteService.Service](i)
		if err != nil {
			return nil, err
		}
		return httpServer.New(cfg, favorites, do.MustInvoke[*slog.Logger](i)), nil
	})

	return injector, nil
}

func openDocument(i do.Injector, name string) (storage.Document, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if cfg.StorageDriver == config.StorageDriverBolt {
		db, err := do.Invoke[*storage.Bolt](i)
		if err != nil {
			return nil, err
		}
		return db.Document(strings.TrimSuffix(name, filepath.Ext(name))), nil
	}

	path := filepath.Join(cfg.StoragePath, name)
	doc, err := storage.NewFileDocument(path)
	if err != nil {
		return nil, oops.With("path", path, "context", "failed to initialize document").Wrap(err)
	}
	return doc, nil
}

// Shutdown releases the bolt database and the log file
func Shutdown(injector do.Injector) error {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil
	}

	var errs []error

	if cfg.StorageDriver == config.StorageDriverBolt {
		if db, err := do.Invoke[*storage.Bolt](injector); err == nil && db != nil {
			if err := db.Close(); err != nil {
				errs = append(errs, oops.With("context", "failed to close bolt database").Wrap(err))
			}
		}
	}

	if lg, err := do.Invoke[*logging.Logger](injector); err == nil && lg != nil {
		if err := lg.Close(); err != nil {
			errs = append(errs, oops.With("context", "failed to close log file").Wrap(err))
		}
	}

	return errors.Join(errs...)
}
