package memory

import (
	"context"
	"sync"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

type LoginSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.LoginSession
}

var _ ports.LoginSessionRepository = (*LoginSessionRepository)(nil)

func NewLoginSessionRepository() *LoginSessionRepository {
	return &LoginSessionRepository{sessions: map[string]domain.LoginSession{}}
}

func (r *LoginSessionRepository) Save(ctx context.Context, session domain.LoginSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session.QRImage = cloneBytes(session.QRImage)
	r.sessions[session.TempID] = session
	return nil
}

func (r *LoginSessionRepository) GetByTempID(ctx context.Context, tempID string) (domain.LoginSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.LoginSession{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[tempID]
	if !ok {
		return domain.LoginSession{}, domain.ErrLoginSessionNotFound
	}
	session.QRImage = cloneBytes(session.QRImage)
	return session, nil
}

func (r *LoginSessionRepository) Delete(_ context.Context, tempID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, tempID)
	return nil
}

func (r *LoginSessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
