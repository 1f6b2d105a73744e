// Package mocks holds testify mocks for the ports interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

type MockUpstreamSession struct {
	mock.Mock
}

var _ ports.UpstreamSession = (*MockUpstreamSession)(nil)

// NewMockUpstreamSession registers AssertExpectations on test cleanup.
func NewMockUpstreamSession(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUpstreamSession {
	m := &MockUpstreamSession{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUpstreamSession) SelfID() string {
	return m.Called().String(0)
}

func (m *MockUpstreamSession) GetUserInfo(ctx context.Context, userID string) (domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserProfile), args.Error(1)
}

func (m *MockUpstreamSession) FindUser(ctx context.Context, phone string) (*domain.UserSummary, error) {
	args := m.Called(ctx, phone)
	user, _ := args.Get(0).(*domain.UserSummary)
	return user, args.Error(1)
}

func (m *MockUpstreamSession) SendMessage(ctx context.Context, threadID string, threadType domain.ThreadType, msg domain.OutboundMessage) (domain.SendResult, error) {
	args := m.Called(ctx, threadID, threadType, msg)
	return args.Get(0).(domain.SendResult), args.Error(1)
}

func (m *MockUpstreamSession) SendFriendRequest(ctx context.Context, userID, message string) error {
	return m.Called(ctx, userID, message).Error(0)
}

func (m *MockUpstreamSession) AcceptFriendRequest(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUpstreamSession) RemoveFriend(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUpstreamSession) ListFriends(ctx context.Context) ([]domain.Friend, error) {
	args := m.Called(ctx)
	friends, _ := args.Get(0).([]domain.Friend)
	return friends, args.Error(1)
}

func (m *MockUpstreamSession) ListGroupIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockUpstreamSession) GetGroupInfo(ctx context.Context, groupIDs []string) ([]domain.GroupInfo, error) {
	args := m.Called(ctx, groupIDs)
	infos, _ := args.Get(0).([]domain.GroupInfo)
	return infos, args.Error(1)
}

func (m *MockUpstreamSession) GetGroupLinkPage(ctx context.Context, link string, page int) (domain.GroupInfo, error) {
	args := m.Called(ctx, link, page)
	return args.Get(0).(domain.GroupInfo), args.Error(1)
}

func (m *MockUpstreamSession) JoinGroupLink(ctx context.Context, link string) error {
	return m.Called(ctx, link).Error(0)
}

func (m *MockUpstreamSession) CreateGroup(ctx context.Context, name string, memberIDs []string) (string, error) {
	args := m.Called(ctx, name, memberIDs)
	return args.String(0), args.Error(1)
}

func (m *MockUpstreamSession) AddUsersToGroup(ctx context.Context, groupID string, memberIDs []string) error {
	return m.Called(ctx, groupID, memberIDs).Error(0)
}

func (m *MockUpstreamSession) GetFriendRecommendations(ctx context.Context, start, count int) ([]domain.Recommendation, error) {
	args := m.Called(ctx, start, count)
	items, _ := args.Get(0).([]domain.Recommendation)
	return items, args.Error(1)
}

func (m *MockUpstreamSession) Listen(ctx context.Context, handler func(ports.SessionEvent)) error {
	return m.Called(ctx, handler).Error(0)
}

func (m *MockUpstreamSession) Close() error {
	return m.Called().Error(0)
}
