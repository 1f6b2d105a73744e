package httpapi

import (
	"context"
	"sync"

	"github.com/bnema/zalo-accounts/internal/application"
	"github.com/bnema/zalo-accounts/internal/domain"
)

// fakeCommands records the last command of each kind and returns canned
// results. err, when set, is returned by every call.
type fakeCommands struct {
	mu sync.Mutex

	err      error
	accounts []domain.Account
	jobs     map[string]domain.Job
	members  application.GroupMembers

	sent      []application.SendMessageCommand
	groups    []application.CreateGroupCommand
	bulk      []application.BulkSendCommand
	campaigns []domain.Campaign
	lookups   []string
	unfriends []string
}

func (f *fakeCommands) ListActiveAccounts(context.Context) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Account(nil), f.accounts...), f.err
}

func (f *fakeCommands) Job(_ context.Context, id string) (domain.Job, error) {
	if job, ok := f.jobs[id]; ok {
		return job, nil
	}
	return domain.Job{}, domain.ErrJobNotFound
}

func (f *fakeCommands) SendMessage(_ context.Context, cmd application.SendMessageCommand) (domain.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return domain.SendResult{MessageID: "m1"}, f.err
}

func (f *fakeCommands) FindUserByIdentifier(_ context.Context, _ domain.AccountID, identifier string) (domain.UserSummary, error) {
	f.lookups = append(f.lookups, identifier)
	if f.err != nil {
		return domain.UserSummary{}, f.err
	}
	return domain.UserSummary{UserID: "u-" + identifier, Name: "An"}, nil
}

func (f *fakeCommands) GetUserProfile(_ context.Context, _ domain.AccountID, identifier string) (domain.UserProfile, error) {
	return domain.UserProfile{UserID: identifier, DisplayName: "An"}, f.err
}

func (f *fakeCommands) SendFriendRequest(_ context.Context, cmd application.SendFriendRequestCommand) (string, error) {
	return "u-" + cmd.Identifier, f.err
}

func (f *fakeCommands) AcceptFriendRequest(context.Context, domain.AccountID, string) error {
	return f.err
}

func (f *fakeCommands) Unfriend(_ context.Context, _ domain.AccountID, userID string) error {
	f.unfriends = append(f.unfriends, userID)
	return f.err
}

func (f *fakeCommands) ListFriends(context.Context, domain.AccountID) ([]domain.Friend, error) {
	return []domain.Friend{{UserID: "u1", DisplayName: "An"}}, f.err
}

func (f *fakeCommands) CollectFriendSuggestionsAndRequests(context.Context, domain.AccountID) (application.FriendSuggestions, error) {
	return application.FriendSuggestions{}, f.err
}

func (f *fakeCommands) CollectGroupMembers(_ context.Context, _ domain.AccountID, ref string) (application.GroupMembers, error) {
	members := f.members
	members.GroupID = ref
	return members, f.err
}

func (f *fakeCommands) ListGroups(context.Context, domain.AccountID) ([]domain.GroupSummary, error) {
	return []domain.GroupSummary{{GroupID: "g1", Name: "Team"}}, f.err
}

func (f *fakeCommands) JoinGroup(context.Context, domain.AccountID, string) (application.JoinGroupResult, error) {
	return application.JoinGroupResult{Status: domain.JoinStatusPending}, f.err
}

func (f *fakeCommands) CreateGroup(_ context.Context, cmd application.CreateGroupCommand) (application.CreateGroupResult, error) {
	f.groups = append(f.groups, cmd)
	return application.CreateGroupResult{GroupID: "g-new"}, f.err
}

func (f *fakeCommands) BulkSend(_ context.Context, cmd application.BulkSendCommand) (application.BulkSendResult, error) {
	f.bulk = append(f.bulk, cmd)
	return application.BulkSendResult{JobID: "job-1", AcceptedCount: len(cmd.TargetIDs)}, f.err
}

func (f *fakeCommands) BulkSendCampaign(_ context.Context, _ domain.AccountID, c domain.Campaign) (application.BulkSendResult, error) {
	f.campaigns = append(f.campaigns, c)
	return application.BulkSendResult{JobID: "job-2", AcceptedCount: len(c.Targets)}, f.err
}

type fakeLogins struct {
	mu      sync.Mutex
	origins []string
	qr      map[string][]byte
	onLogin func(origin, tempID string)
}

func (f *fakeLogins) InitiateLogin(_ context.Context, origin string) (string, error) {
	f.mu.Lock()
	f.origins = append(f.origins, origin)
	hook := f.onLogin
	f.mu.Unlock()

	if hook != nil {
		hook(origin, "temp-1")
	}
	return "temp-1", nil
}

func (f *fakeLogins) QRCode(_ context.Context, tempID string) ([]byte, error) {
	if png, ok := f.qr[tempID]; ok {
		return png, nil
	}
	return nil, domain.ErrLoginSessionNotFound
}

func (f *fakeLogins) Logout(_ context.Context, id domain.AccountID) error {
	if id == "missing" {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (f *fakeLogins) originList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.origins...)
}
