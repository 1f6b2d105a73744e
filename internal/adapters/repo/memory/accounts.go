package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

// AccountRepository is the registry of logged-in accounts. Nothing survives a
// restart.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]ports.ActiveAccount
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: map[domain.AccountID]ports.ActiveAccount{}}
}

func (r *AccountRepository) Save(ctx context.Context, active ports.ActiveAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts[active.Account.ID] = active
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id domain.AccountID) (ports.ActiveAccount, error) {
	if err := ctx.Err(); err != nil {
		return ports.ActiveAccount{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	active, ok := r.accounts[id]
	if !ok {
		return ports.ActiveAccount{}, domain.ErrAccountNotFound
	}
	return active, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	accounts := make([]domain.Account, 0, len(r.accounts))
	for _, active := range r.accounts {
		accounts = append(accounts, active.Account)
	}
	r.mu.RUnlock()

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

// Delete is a no-op for unknown ids.
func (r *AccountRepository) Delete(ctx context.Context, id domain.AccountID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.accounts, id)
	return nil
}
