// Package httpapi exposes the command service over HTTP and streams events
// to browser clients over a websocket.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bnema/zalo-accounts/internal/application"
	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// Commands is the slice of the command service the router calls.
type Commands interface {
	ListActiveAccounts(ctx context.Context) ([]domain.Account, error)
	Job(ctx context.Context, id string) (domain.Job, error)
	SendMessage(ctx context.Context, cmd application.SendMessageCommand) (domain.SendResult, error)
	FindUserByIdentifier(ctx context.Context, accountID domain.AccountID, identifier string) (domain.UserSummary, error)
	GetUserProfile(ctx context.Context, accountID domain.AccountID, identifier string) (domain.UserProfile, error)
	SendFriendRequest(ctx context.Context, cmd application.SendFriendRequestCommand) (string, error)
	AcceptFriendRequest(ctx context.Context, accountID domain.AccountID, userID string) error
	Unfriend(ctx context.Context, accountID domain.AccountID, userID string) error
	ListFriends(ctx context.Context, accountID domain.AccountID) ([]domain.Friend, error)
	CollectFriendSuggestionsAndRequests(ctx context.Context, accountID domain.AccountID) (application.FriendSuggestions, error)
	CollectGroupMembers(ctx context.Context, accountID domain.AccountID, groupRef string) (application.GroupMembers, error)
	ListGroups(ctx context.Context, accountID domain.AccountID) ([]domain.GroupSummary, error)
	JoinGroup(ctx context.Context, accountID domain.AccountID, link string) (application.JoinGroupResult, error)
	CreateGroup(ctx context.Context, cmd application.CreateGroupCommand) (application.CreateGroupResult, error)
	BulkSend(ctx context.Context, cmd application.BulkSendCommand) (application.BulkSendResult, error)
	BulkSendCampaign(ctx context.Context, accountID domain.AccountID, campaign domain.Campaign) (application.BulkSendResult, error)
}

// Logins is the slice of the login service the router calls.
type Logins interface {
	InitiateLogin(ctx context.Context, origin string) (string, error)
	QRCode(ctx context.Context, tempID string) ([]byte, error)
	Logout(ctx context.Context, id domain.AccountID) error
}

type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxUploadMB    int64
}

type Server struct {
	cfg       Config
	commands  Commands
	logins    Logins
	inspector ports.AttachmentInspector
	hub       *Hub
	engine    *gin.Engine
	log       *slog.Logger
}

func New(cfg Config, commands Commands, logins Logins, events ports.EventBus, inspector ports.AttachmentInspector, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 25
	}
	registerValidators()

	s := &Server{
		cfg:       cfg,
		commands:  commands,
		logins:    logins,
		inspector: inspector,
		log:       log.With("component", "httpapi"),
	}
	s.hub = NewHub(commands, logins, cfg.AllowedOrigins, s.log)
	if events != nil {
		s.hub.Attach(events)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.MaxMultipartMemory = s.cfg.MaxUploadMB << 20
	engine.Use(recovery(s.log), requestLogger(s.log), cors(s.cfg.AllowedOrigins))

	engine.GET("/ws", s.hub.Serve)

	api := engine.Group("/api")
	api.GET("/health", s.health)

	api.GET("/accounts", s.listAccounts)
	api.DELETE("/accounts/:accountId", s.logout)
	api.GET("/accounts/:accountId/friends", s.listFriends)
	api.GET("/accounts/:accountId/friend-suggestions", s.friendSuggestions)
	api.GET("/accounts/:accountId/groups", s.listGroups)

	api.POST("/login", s.initiateLogin)
	api.GET("/qr-code/:file", s.qrCode)

	api.POST("/messages", s.sendMessage)
	api.POST("/messages/upload", s.sendMessageUpload)

	api.GET("/users/lookup", s.lookupUser)
	api.GET("/users/profile", s.userProfile)

	api.POST("/friends/request", s.sendFriendRequest)
	api.POST("/friends/accept", s.acceptFriendRequest)
	api.DELETE("/friends", s.unfriend)

	api.POST("/groups", s.createGroup)
	api.GET("/groups/members", s.groupMembers)
	api.POST("/groups/join", s.joinGroup)

	api.POST("/bulk/send", s.bulkSend)
	api.POST("/bulk/upload", s.bulkUpload)
	api.GET("/jobs/:jobId", s.job)

	return engine
}
