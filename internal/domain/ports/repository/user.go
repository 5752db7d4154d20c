package repository

import (
	"context"

	"interpretation-broker/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

// UserDirectory is the read-only lookup the broker needs to resolve an
// authenticated caller and to address a delivery to the right subscriber.
// User management itself lives elsewhere.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
