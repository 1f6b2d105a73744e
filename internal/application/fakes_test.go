package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/zalo-accounts/internal/adapters/events"
	"github.com/bnema/zalo-accounts/internal/adapters/repo/memory"
	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/logger"
	"github.com/bnema/zalo-accounts/internal/ports"
)

var errFakeNotConfigured = errors.New("fake: not configured")

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeSession records calls and delegates to optional hooks. inFlight
// tracks concurrent calls so tests can assert per-account serialization.
type fakeSession struct {
	selfID string

	mu    sync.Mutex
	calls []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	getUserInfo     func(userID string) (domain.UserProfile, error)
	findUser        func(phone string) (*domain.UserSummary, error)
	sendMessage     func(threadID string, threadType domain.ThreadType, msg domain.OutboundMessage) (domain.SendResult, error)
	groupLinkPage   func(link string, page int) (domain.GroupInfo, error)
	groupInfo       func(ids []string) ([]domain.GroupInfo, error)
	createGroup     func(name string, members []string) (string, error)
	addUsers        func(groupID string, members []string) error
	joinGroup       func(link string) error
	recommendations func(start, count int) ([]domain.Recommendation, error)
	listen          func(ctx context.Context, handler func(ports.SessionEvent)) error

	createCalls [][]string
	addCalls    [][]string
	closed      atomic.Bool
}

var _ ports.UpstreamSession = (*fakeSession)(nil)

func (f *fakeSession) enter(name string) func() {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSession) countCalls(name string) int {
	count := 0
	for _, call := range f.Calls() {
		if call == name {
			count++
		}
	}
	return count
}

func (f *fakeSession) SelfID() string { return f.selfID }

func (f *fakeSession) GetUserInfo(_ context.Context, userID string) (domain.UserProfile, error) {
	defer f.enter("GetUserInfo")()
	if f.getUserInfo == nil {
		return domain.UserProfile{UserID: userID, DisplayName: "User " + userID}, nil
	}
	return f.getUserInfo(userID)
}

func (f *fakeSession) FindUser(_ context.Context, phone string) (*domain.UserSummary, error) {
	defer f.enter("FindUser")()
	if f.findUser == nil {
		return nil, nil
	}
	return f.findUser(phone)
}

func (f *fakeSession) SendMessage(_ context.Context, threadID string, threadType domain.ThreadType, msg domain.OutboundMessage) (domain.SendResult, error) {
	defer f.enter("SendMessage")()
	if f.sendMessage == nil {
		return domain.SendResult{MessageID: "m-" + threadID}, nil
	}
	return f.sendMessage(threadID, threadType, msg)
}

func (f *fakeSession) SendFriendRequest(context.Context, string, string) error {
	defer f.enter("SendFriendRequest")()
	return nil
}

func (f *fakeSession) AcceptFriendRequest(context.Context, string) error {
	defer f.enter("AcceptFriendRequest")()
	return nil
}

func (f *fakeSession) RemoveFriend(context.Context, string) error {
	defer f.enter("RemoveFriend")()
	return nil
}

func (f *fakeSession) ListFriends(context.Context) ([]domain.Friend, error) {
	defer f.enter("ListFriends")()
	return []domain.Friend{{UserID: "f1", DisplayName: "Friend"}}, nil
}

func (f *fakeSession) ListGroupIDs(context.Context) ([]string, error) {
	defer f.enter("ListGroupIDs")()
	return []string{"g1"}, nil
}

func (f *fakeSession) GetGroupInfo(_ context.Context, ids []string) ([]domain.GroupInfo, error) {
	defer f.enter("GetGroupInfo")()
	if f.groupInfo == nil {
		return nil, errFakeNotConfigured
	}
	return f.groupInfo(ids)
}

func (f *fakeSession) GetGroupLinkPage(_ context.Context, link string, page int) (domain.GroupInfo, error) {
	defer f.enter("GetGroupLinkPage")()
	if f.groupLinkPage == nil {
		return domain.GroupInfo{}, errFakeNotConfigured
	}
	return f.groupLinkPage(link, page)
}

func (f *fakeSession) JoinGroupLink(_ context.Context, link string) error {
	defer f.enter("JoinGroupLink")()
	if f.joinGroup == nil {
		return nil
	}
	return f.joinGroup(link)
}

func (f *fakeSession) CreateGroup(_ context.Context, name string, members []string) (string, error) {
	defer f.enter("CreateGroup")()
	f.mu.Lock()
	f.createCalls = append(f.createCalls, append([]string(nil), members...))
	f.mu.Unlock()
	if f.createGroup == nil {
		return "group-1", nil
	}
	return f.createGroup(name, members)
}

func (f *fakeSession) AddUsersToGroup(_ context.Context, groupID string, members []string) error {
	defer f.enter("AddUsersToGroup")()
	f.mu.Lock()
	f.addCalls = append(f.addCalls, append([]string(nil), members...))
	f.mu.Unlock()
	if f.addUsers == nil {
		return nil
	}
	return f.addUsers(groupID, members)
}

func (f *fakeSession) GetFriendRecommendations(_ context.Context, start, count int) ([]domain.Recommendation, error) {
	defer f.enter("GetFriendRecommendations")()
	if f.recommendations == nil {
		return nil, nil
	}
	return f.recommendations(start, count)
}

func (f *fakeSession) Listen(ctx context.Context, handler func(ports.SessionEvent)) error {
	if f.listen == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.listen(ctx, handler)
}

func (f *fakeSession) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeUpstream struct {
	login func(ctx context.Context, callbacks ports.LoginCallbacks) (ports.UpstreamSession, error)
}

func (f *fakeUpstream) Login(ctx context.Context, callbacks ports.LoginCallbacks) (ports.UpstreamSession, error) {
	return f.login(ctx, callbacks)
}

type fakeQR struct{}

func (fakeQR) PNG(payload string) ([]byte, error) {
	if payload == "bad" {
		return nil, errors.New("payload too long")
	}
	return []byte("png:" + payload), nil
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	return value, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) record(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recorder) Kinds() []domain.EventKind {
	kinds := []domain.EventKind{}
	for _, e := range r.Events() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recorder) last(kind domain.EventKind) (domain.Event, bool) {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == kind {
			return events[i], true
		}
	}
	return domain.Event{}, false
}

type serviceHarness struct {
	accounts *memory.AccountRepository
	jobs     *memory.JobRepository
	bus      *events.Bus
	events   *recorder
	clock    *fakeClock
	cache    *memoryCache
	runner   *BatchRunner
	service  *Service
}

func newServiceHarness() *serviceHarness {
	h := &serviceHarness{
		accounts: memory.NewAccountRepository(),
		jobs:     memory.NewJobRepository(10),
		bus:      events.NewBus(logger.Discard()),
		events:   &recorder{},
		clock:    newFakeClock(),
		cache:    newMemoryCache(),
	}
	h.bus.Subscribe(h.events.record)

	log := logger.Discard()
	collector := NewCollector(h.clock, log, CollectOptions{MaxPages: DefaultMaxPages, PageDelay: DefaultPageDelay})
	h.runner = NewBatchRunner(h.jobs, h.bus, h.clock, log, BatchOptions{ItemDelay: DefaultItemDelay})
	h.service = NewService(h.accounts, collector, h.runner, h.cache, log, ServiceOptions{})
	return h
}

func (h *serviceHarness) register(id domain.AccountID, session ports.UpstreamSession) {
	_ = h.accounts.Save(context.Background(), ports.ActiveAccount{
		Account: domain.Account{ID: id, DisplayName: "Account " + string(id), Status: domain.AccountStatusOnline},
		Session: session,
	})
}
