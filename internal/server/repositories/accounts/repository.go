package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, email, authKey string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateEmail(ctx context.Context, id int64, email, authKey string) error
	UpdateAuthKey(ctx context.Context, id int64, authKey string) error
	Delete(ctx context.Context, id int64) error
}
