package shopRepo

import (
	"context"
	"errors"

	"reserva/models"
)

// ErrNotFound is returned when a requested shop does not exist.
var ErrNotFound = errors.New("shop not found")

// Repository exposes the shop booking configuration the core consumes.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Shop, error)
	Insert(ctx context.Context, s *models.Shop) error
}
