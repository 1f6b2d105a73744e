package application

import (
	"context"
	"sync"

	"github.com/bnema/zalo-accounts/internal/domain"
)

// accountLocks serializes upstream calls per account. The lock is taken
// around each call, so a long batch job still lets other commands on the same
// account through between its items.
type accountLocks struct {
	mu    sync.Mutex
	locks map[domain.AccountID]chan struct{}
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: map[domain.AccountID]chan struct{}{}}
}

func (l *accountLocks) slot(id domain.AccountID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[id] = ch
	}
	return ch
}

// acquire blocks until the account is free or ctx is done.
func (l *accountLocks) acquire(ctx context.Context, id domain.AccountID) (func(), error) {
	ch := l.slot(id)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
