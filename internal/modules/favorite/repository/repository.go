package repository

import (
	"context"

	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/domain"
)

// Repository defines the interface for favorite persistence
type Repository interface {
	List(ctx context.Context) ([]domain.Favorite, error)
	Append(ctx context.Context, favorite domain.Favorite) error
	// RemoveWhere deletes every favorite matching pred and returns them
	RemoveWhere(ctx context.Context, pred func(domain.Favorite) bool) ([]domain.Favorite, error)
}
