package ports

import (
	"context"

	"github.com/bnema/zalo-accounts/internal/domain"
)

// LoginCallbacks are invoked by the upstream while a QR login is pending.
// OnQR receives either a rendered image, the raw QR payload, or both.
type LoginCallbacks struct {
	OnQR        func(image []byte, code string)
	OnQRExpired func()
}

type Upstream interface {
	Login(ctx context.Context, callbacks LoginCallbacks) (UpstreamSession, error)
}

type SessionEventKind string

const (
	SessionEventMessage SessionEventKind = "message"
	SessionEventLogout  SessionEventKind = "logout"
)

type SessionEvent struct {
	Kind    SessionEventKind
	Message *domain.InboundMessage
	Reason  string
}

// UpstreamSession is one authenticated handle on the messaging platform.
// Every value it returns is already in canonical domain shape.
type UpstreamSession interface {
	SelfID() string
	GetUserInfo(ctx context.Context, userID string) (domain.UserProfile, error)
	// FindUser returns nil without error when no user matches the phone.
	FindUser(ctx context.Context, phone string) (*domain.UserSummary, error)
	SendMessage(ctx context.Context, threadID string, threadType domain.ThreadType, msg domain.OutboundMessage) (domain.SendResult, error)
	SendFriendRequest(ctx context.Context, userID, message string) error
	AcceptFriendRequest(ctx context.Context, userID string) error
	RemoveFriend(ctx context.Context, userID string) error
	ListFriends(ctx context.Context) ([]domain.Friend, error)
	ListGroupIDs(ctx context.Context) ([]string, error)
	GetGroupInfo(ctx context.Context, groupIDs []string) ([]domain.GroupInfo, error)
	GetGroupLinkPage(ctx context.Context, link string, page int) (domain.GroupInfo, error)
	JoinGroupLink(ctx context.Context, link string) error
	CreateGroup(ctx context.Context, name string, memberIDs []string) (string, error)
	AddUsersToGroup(ctx context.Context, groupID string, memberIDs []string) error
	GetFriendRecommendations(ctx context.Context, start, count int) ([]domain.Recommendation, error)
	// Listen blocks delivering session events to handler until ctx is done
	// or the upstream closes the stream.
	Listen(ctx context.Context, handler func(SessionEvent)) error
	Close() error
}
