package repository

import (
	"context"

	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
)

// Repository persists the set of listing ids that were already delivered
type Repository interface {
	Load(ctx context.Context) (*domain.SeenSet, error)
	Save(ctx context.Context, seen *domain.SeenSet) error
}
