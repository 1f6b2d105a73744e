package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const (
	DefaultGroupSafeLimit = 50
	DefaultGroupChunkSize = 20
	DefaultCacheTTL       = 5 * time.Minute

	groupSeedSize = 2
)

type ServiceOptions struct {
	GroupSafeLimit int
	GroupChunkSize int
	CacheTTL       time.Duration
}

// Service executes operator commands against logged-in accounts. Every
// upstream call runs under the account's lock.
type Service struct {
	accounts  ports.AccountRepository
	collector *Collector
	runner    *BatchRunner
	cache     ports.Cache
	locks     *accountLocks
	log       *slog.Logger
	opts      ServiceOptions
}

func NewService(accounts ports.AccountRepository, collector *Collector, runner *BatchRunner, cache ports.Cache, log *slog.Logger, opts ServiceOptions) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.GroupSafeLimit < groupSeedSize {
		opts.GroupSafeLimit = DefaultGroupSafeLimit
	}
	if opts.GroupChunkSize <= 0 {
		opts.GroupChunkSize = DefaultGroupChunkSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	return &Service{
		accounts:  accounts,
		collector: collector,
		runner:    runner,
		cache:     cache,
		locks:     newAccountLocks(),
		log:       log.With("component", "service"),
		opts:      opts,
	}
}

func (s *Service) ListActiveAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Service) Job(ctx context.Context, id string) (domain.Job, error) {
	return s.runner.Job(ctx, id)
}

func (s *Service) Jobs(ctx context.Context) ([]domain.Job, error) {
	return s.runner.Jobs(ctx)
}

func (s *Service) SendMessage(ctx context.Context, cmd SendMessageCommand) (domain.SendResult, error) {
	msg := domain.OutboundMessage{Text: cmd.Text, Attachments: cmd.Attachments}
	if msg.IsEmpty() {
		return domain.SendResult{}, domain.ErrEmptyMessage
	}

	recipient := domain.SanitizeIdentifier(cmd.RecipientID)
	if recipient == "" {
		return domain.SendResult{}, fmt.Errorf("recipient: %w", domain.ErrInvalidIdentifier)
	}

	if cmd.ThreadType == domain.ThreadTypeUser {
		resolved, err := s.resolveUserID(ctx, cmd.AccountID, recipient)
		if err != nil {
			return domain.SendResult{}, err
		}
		recipient = resolved
	}

	var result domain.SendResult
	err := s.withSession(ctx, cmd.AccountID, func(session ports.UpstreamSession) error {
		var err error
		result, err = session.SendMessage(ctx, recipient, cmd.ThreadType, msg)
		return err
	})
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("send message: %w", err)
	}

	s.log.Info("message sent",
		"account_id", cmd.AccountID,
		"thread_type", cmd.ThreadType,
		"attachments", len(cmd.Attachments),
	)
	return result, nil
}

// FindUserByIdentifier looks a user up by phone number (normalized to the
// 84 prefix first) or by user id.
func (s *Service) FindUserByIdentifier(ctx context.Context, accountID domain.AccountID, identifier string) (domain.UserSummary, error) {
	sanitized := domain.SanitizeIdentifier(identifier)
	if sanitized == "" {
		return domain.UserSummary{}, domain.ErrInvalidIdentifier
	}

	if domain.IsPhoneIdentifier(sanitized) {
		phone := domain.NormalizePhone(sanitized)
		return cached(ctx, s, cacheKey("user-phone", accountID, phone), func() (domain.UserSummary, error) {
			var found *domain.UserSummary
			err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
				var err error
				found, err = session.FindUser(ctx, phone)
				return err
			})
			if err != nil {
				return domain.UserSummary{}, fmt.Errorf("find user by phone: %w", err)
			}
			if found == nil || found.UserID == "" {
				return domain.UserSummary{}, fmt.Errorf("phone %s: %w", phone, domain.ErrUserNotFound)
			}
			return *found, nil
		})
	}

	profile, err := s.userInfo(ctx, accountID, sanitized)
	if err != nil {
		return domain.UserSummary{}, err
	}
	name := profile.DisplayName
	if name == "" {
		name = profile.ZaloName
	}
	return domain.UserSummary{UserID: profile.UserID, Name: name, Avatar: profile.Avatar}, nil
}

func (s *Service) GetUserProfile(ctx context.Context, accountID domain.AccountID, identifier string) (domain.UserProfile, error) {
	userID, err := s.resolveUserID(ctx, accountID, identifier)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return s.userInfo(ctx, accountID, userID)
}

func (s *Service) userInfo(ctx context.Context, accountID domain.AccountID, userID string) (domain.UserProfile, error) {
	return cached(ctx, s, cacheKey("user-info", accountID, userID), func() (domain.UserProfile, error) {
		var profile domain.UserProfile
		err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
			var err error
			profile, err = session.GetUserInfo(ctx, userID)
			return err
		})
		if err != nil {
			return domain.UserProfile{}, fmt.Errorf("get user info: %w", err)
		}
		if profile.UserID == "" {
			return domain.UserProfile{}, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
		}
		return profile, nil
	})
}

// resolveUserID maps a phone-like identifier to its user id; anything else is
// taken to already be a user id.
func (s *Service) resolveUserID(ctx context.Context, accountID domain.AccountID, identifier string) (string, error) {
	sanitized := domain.SanitizeIdentifier(identifier)
	if sanitized == "" {
		return "", domain.ErrInvalidIdentifier
	}
	if !domain.IsPhoneIdentifier(sanitized) {
		return sanitized, nil
	}

	user, err := s.FindUserByIdentifier(ctx, accountID, sanitized)
	if err != nil {
		return "", err
	}
	return user.UserID, nil
}

func (s *Service) withSession(ctx context.Context, accountID domain.AccountID, fn func(ports.UpstreamSession) error) error {
	active, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if active.Session == nil {
		return fmt.Errorf("account %s has no session: %w", accountID, domain.ErrAccountNotFound)
	}

	unlock, err := s.locks.acquire(ctx, accountID)
	if err != nil {
		return fmt.Errorf("wait for account %s: %w", accountID, err)
	}
	defer unlock()

	return fn(active.Session)
}

func cacheKey(kind string, accountID domain.AccountID, id string) string {
	return "za:" + kind + ":" + string(accountID) + ":" + id
}

// cached serves load through the read-through cache. Cache failures are
// logged and fall back to load; only successful loads are stored.
func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	if s.cache == nil {
		return load()
	}

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Debug("cache get", "key", key, "error", err)
	} else if ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, nil
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if raw, err := json.Marshal(value); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.opts.CacheTTL); err != nil {
			s.log.Debug("cache set", "key", key, "error", err)
		}
	}
	return value, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Debug("cache delete", "key", key, "error", err)
		}
	}
}
