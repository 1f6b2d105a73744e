package ports

import (
	"context"

	"github.com/bnema/zalo-accounts/internal/domain"
)

// ActiveAccount pairs an account with the live upstream session it was
// logged in with.
type ActiveAccount struct {
	Account domain.Account
	Session UpstreamSession
}

type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (ActiveAccount, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, active ActiveAccount) error
	Delete(ctx context.Context, id domain.AccountID) error
}

type LoginSessionRepository interface {
	GetByTempID(ctx context.Context, tempID string) (domain.LoginSession, error)
	Save(ctx context.Context, session domain.LoginSession) error
	Delete(ctx context.Context, tempID string) error
}

type JobRepository interface {
	GetByID(ctx context.Context, id string) (domain.Job, error)
	List(ctx context.Context) ([]domain.Job, error)
	Save(ctx context.Context, job domain.Job) error
}
