package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/goroutine"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const DefaultLoginTimeout = 3 * time.Minute

var (
	ErrInvalidQRPayload = errors.New("invalid qr payload")
	errLoginPanicked    = errors.New("internal error during login")
)

type LoginOptions struct {
	Timeout time.Duration
}

type listener struct {
	cancel     context.CancelFunc
	generation uint64
}

// LoginService drives QR login attempts and owns the listeners attached to
// every logged-in account.
type LoginService struct {
	upstream ports.Upstream
	accounts ports.AccountRepository
	sessions ports.LoginSessionRepository
	events   ports.EventPublisher
	qr       ports.QRRenderer
	clock    ports.Clock
	log      *slog.Logger
	timeout  time.Duration
	newID    func() string

	baseCtx    context.Context
	stop       context.CancelFunc
	mu         sync.Mutex
	generation uint64
	listeners  map[domain.AccountID]listener
}

func NewLoginService(
	upstream ports.Upstream,
	accounts ports.AccountRepository,
	sessions ports.LoginSessionRepository,
	events ports.EventPublisher,
	qr ports.QRRenderer,
	clock ports.Clock,
	log *slog.Logger,
	opts LoginOptions,
) *LoginService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLoginTimeout
	}

	baseCtx, stop := context.WithCancel(context.Background())
	return &LoginService{
		upstream:  upstream,
		accounts:  accounts,
		sessions:  sessions,
		events:    events,
		qr:        qr,
		clock:     clock,
		log:       log.With("component", "login"),
		timeout:   opts.Timeout,
		newID:     func() string { return uuid.New().String() },
		baseCtx:   baseCtx,
		stop:      stop,
		listeners: map[domain.AccountID]listener{},
	}
}

// InitiateLogin registers a pending login session and returns its temporary
// id at once. The outcome is delivered through events.
func (s *LoginService) InitiateLogin(ctx context.Context, origin string) (string, error) {
	tempID := s.newID()
	session := domain.LoginSession{
		TempID:    tempID,
		Origin:    origin,
		State:     domain.LoginStatePending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", fmt.Errorf("save login session: %w", err)
	}

	s.log.Info("login initiated", "temp_id", tempID, "origin", origin)
	go s.attempt(session)
	return tempID, nil
}

// QRCode returns the PNG of an in-flight login.
func (s *LoginService) QRCode(ctx context.Context, tempID string) ([]byte, error) {
	session, err := s.sessions.GetByTempID(ctx, tempID)
	if err != nil {
		return nil, fmt.Errorf("get login session: %w", err)
	}
	if !session.HasQR() {
		return nil, fmt.Errorf("qr for %s not issued yet: %w", tempID, domain.ErrLoginSessionNotFound)
	}
	return session.QRImage, nil
}

// QRPayload returns the raw QR payload of an in-flight login, if the
// upstream supplied one alongside the image.
func (s *LoginService) QRPayload(ctx context.Context, tempID string) (string, error) {
	session, err := s.sessions.GetByTempID(ctx, tempID)
	if err != nil {
		return "", fmt.Errorf("get login session: %w", err)
	}
	return session.QRCode, nil
}

// Logout closes the account's upstream session and removes it from the
// registry.
func (s *LoginService) Logout(ctx context.Context, id domain.AccountID) error {
	active, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	s.disconnect(active, "logged out by operator", 0)
	return nil
}

// Close stops every account listener.
func (s *LoginService) Close() {
	s.stop()
}

func (s *LoginService) attempt(session domain.LoginSession) {
	var terminal domain.Event
	defer func() {
		if err := s.sessions.Delete(context.Background(), session.TempID); err != nil {
			s.log.Warn("remove login session", "temp_id", session.TempID, "error", err)
		}
		if r := recover(); r != nil {
			s.log.Error("login attempt panicked", "temp_id", session.TempID, "panic", fmt.Sprintf("%v", r))
			terminal = s.failure(session, errLoginPanicked)
		}
		s.events.Publish(terminal)
	}()

	terminal = s.login(session)
}

func (s *LoginService) login(session domain.LoginSession) domain.Event {
	ctx, cancel := context.WithTimeoutCause(s.baseCtx, s.timeout, errors.New("login timed out"))
	defer cancel()
	ctx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	log := s.log.With("temp_id", session.TempID)
	callbacks := ports.LoginCallbacks{
		OnQR: func(image []byte, code string) {
			if err := s.issueQR(ctx, &session, image, code); err != nil {
				log.Warn("qr callback rejected", "error", err)
				abort(err)
			}
		},
		OnQRExpired: func() {
			log.Info("qr expired")
			s.events.Publish(domain.Event{
				Kind:   domain.EventQRExpired,
				TempID: session.TempID,
				Origin: session.Origin,
				At:     s.clock.Now(),
			})
			abort(domain.ErrQRExpired)
		},
	}

	upstreamSession, err := s.upstream.Login(ctx, callbacks)
	if ctx.Err() != nil {
		if upstreamSession != nil {
			_ = upstreamSession.Close()
		}
		return s.failure(session, context.Cause(ctx))
	}
	if err != nil {
		return s.failure(session, fmt.Errorf("upstream login: %w", err))
	}

	account, err := s.establish(ctx, upstreamSession)
	if err != nil {
		if upstreamSession != nil {
			_ = upstreamSession.Close()
		}
		return s.failure(session, err)
	}

	log.Info("login succeeded", "account_id", account.ID, "display_name", account.DisplayName)
	return domain.Event{
		Kind:      domain.EventLoginSuccess,
		TempID:    session.TempID,
		Origin:    session.Origin,
		AccountID: account.ID,
		Account:   &account,
		At:        s.clock.Now(),
	}
}

func (s *LoginService) issueQR(ctx context.Context, session *domain.LoginSession, image []byte, code string) error {
	if len(image) == 0 {
		if code == "" {
			return ErrInvalidQRPayload
		}
		rendered, err := s.qr.PNG(code)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQRPayload, err)
		}
		image = rendered
	}

	session.QRImage = image
	session.QRCode = code
	session.State = domain.LoginStateQRIssued
	if err := s.sessions.Save(ctx, *session); err != nil {
		return fmt.Errorf("save login session: %w", err)
	}

	s.events.Publish(domain.Event{
		Kind:   domain.EventQRReady,
		TempID: session.TempID,
		Origin: session.Origin,
		At:     s.clock.Now(),
	})
	return nil
}

// establish turns a fresh upstream session into a registered account.
func (s *LoginService) establish(ctx context.Context, session ports.UpstreamSession) (domain.Account, error) {
	if session == nil || session.SelfID() == "" {
		return domain.Account{}, fmt.Errorf("login returned no identity: %w", domain.ErrMalformedResponse)
	}

	selfID := session.SelfID()
	profile, err := session.GetUserInfo(ctx, selfID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get own profile: %w", err)
	}
	if profile.UserID == "" {
		return domain.Account{}, fmt.Errorf("own profile missing: %w", domain.ErrMalformedResponse)
	}

	displayName := profile.DisplayName
	if displayName == "" {
		displayName = profile.ZaloName
	}

	account := domain.Account{
		ID:          domain.AccountID(selfID),
		DisplayName: displayName,
		Status:      domain.AccountStatusOnline,
		LoggedInAt:  s.clock.Now(),
	}

	if previous, err := s.accounts.GetByID(ctx, account.ID); err == nil && previous.Session != nil {
		s.stopListener(account.ID, 0)
		_ = previous.Session.Close()
	}

	if err := s.accounts.Save(ctx, ports.ActiveAccount{Account: account, Session: session}); err != nil {
		return domain.Account{}, fmt.Errorf("register account: %w", err)
	}

	s.attachListener(ports.ActiveAccount{Account: account, Session: session})
	return account, nil
}

func (s *LoginService) attachListener(active ports.ActiveAccount) {
	ctx, cancel := context.WithCancel(s.baseCtx)

	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.listeners[active.Account.ID] = listener{cancel: cancel, generation: generation}
	s.mu.Unlock()

	log := s.log.With("account_id", active.Account.ID)
	handler := func(event ports.SessionEvent) {
		switch event.Kind {
		case ports.SessionEventMessage:
			if event.Message == nil || event.Message.IsSelf {
				return
			}
			s.events.Publish(domain.Event{
				Kind:      domain.EventNewMessage,
				AccountID: active.Account.ID,
				Message:   event.Message,
				At:        s.clock.Now(),
			})
		case ports.SessionEventLogout:
			reason := event.Reason
			if reason == "" {
				reason = "session closed by upstream"
			}
			log.Warn("account disconnected", "reason", reason)
			s.disconnect(active, reason, generation)
		}
	}

	goroutine.SafeGo(s.log, "listener "+string(active.Account.ID), func() {
		err := active.Session.Listen(ctx, handler)
		if err == nil || ctx.Err() != nil {
			return
		}
		log.Warn("listener stopped", "error", err)
		s.disconnect(active, "event stream lost: "+err.Error(), generation)
	})
}

// stopListener cancels the account's listener. A non-zero generation only
// matches the listener it was issued to.
func (s *LoginService) stopListener(id domain.AccountID, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.listeners[id]
	if !ok {
		return generation == 0
	}
	if generation != 0 && current.generation != generation {
		return false
	}
	current.cancel()
	delete(s.listeners, id)
	return true
}

func (s *LoginService) disconnect(active ports.ActiveAccount, reason string, generation uint64) {
	if !s.stopListener(active.Account.ID, generation) {
		return
	}

	ctx := context.Background()
	if err := s.accounts.Delete(ctx, active.Account.ID); err != nil {
		s.log.Warn("remove account", "account_id", active.Account.ID, "error", err)
	}
	if active.Session != nil {
		if err := active.Session.Close(); err != nil {
			s.log.Debug("close upstream session", "account_id", active.Account.ID, "error", err)
		}
	}

	account := active.Account
	account.Status = domain.AccountStatusDisconnected
	s.events.Publish(domain.Event{
		Kind:      domain.EventAccountDisconnected,
		AccountID: account.ID,
		Account:   &account,
		Reason:    reason,
		At:        s.clock.Now(),
	})
}

func (s *LoginService) failure(session domain.LoginSession, err error) domain.Event {
	s.log.Warn("login failed", "temp_id", session.TempID, "error", err)
	return domain.Event{
		Kind:   domain.EventLoginFailure,
		TempID: session.TempID,
		Origin: session.Origin,
		Reason: err.Error(),
		At:     s.clock.Now(),
	}
}
