package application

import (
	"context"
	"fmt"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const (
	DefaultFriendRequestMessage = "Chào bạn, mình kết bạn nhé!"
	recommendationPageSize      = 50
)

// SendFriendRequest resolves the identifier and sends a friend request,
// returning the user id it was sent to.
func (s *Service) SendFriendRequest(ctx context.Context, cmd SendFriendRequestCommand) (string, error) {
	userID, err := s.resolveUserID(ctx, cmd.AccountID, cmd.Identifier)
	if err != nil {
		return "", err
	}

	message := cmd.Message
	if message == "" {
		message = DefaultFriendRequestMessage
	}

	err = s.withSession(ctx, cmd.AccountID, func(session ports.UpstreamSession) error {
		return session.SendFriendRequest(ctx, userID, message)
	})
	if err != nil {
		return "", fmt.Errorf("send friend request: %w", err)
	}

	s.log.Info("friend request sent", "account_id", cmd.AccountID, "user_id", userID)
	return userID, nil
}

func (s *Service) AcceptFriendRequest(ctx context.Context, accountID domain.AccountID, userID string) error {
	userID = domain.SanitizeIdentifier(userID)
	if userID == "" {
		return domain.ErrInvalidIdentifier
	}

	err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
		return session.AcceptFriendRequest(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("accept friend request: %w", err)
	}

	s.invalidate(ctx, cacheKey("friends", accountID, "all"))
	return nil
}

func (s *Service) Unfriend(ctx context.Context, accountID domain.AccountID, userID string) error {
	userID = domain.SanitizeIdentifier(userID)
	if userID == "" {
		return domain.ErrInvalidIdentifier
	}

	err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
		return session.RemoveFriend(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}

	s.invalidate(ctx, cacheKey("friends", accountID, "all"))
	return nil
}

func (s *Service) ListFriends(ctx context.Context, accountID domain.AccountID) ([]domain.Friend, error) {
	return cached(ctx, s, cacheKey("friends", accountID, "all"), func() ([]domain.Friend, error) {
		var friends []domain.Friend
		err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
			var err error
			friends, err = session.ListFriends(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list friends: %w", err)
		}
		if friends == nil {
			friends = []domain.Friend{}
		}
		return friends, nil
	})
}

// CollectFriendSuggestionsAndRequests walks every recommendation page and
// splits the result into suggestions and incoming friend requests.
func (s *Service) CollectFriendSuggestionsAndRequests(ctx context.Context, accountID domain.AccountID) (FriendSuggestions, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return FriendSuggestions{}, fmt.Errorf("get account: %w", err)
	}

	fetch := func(ctx context.Context, page int) (Page[domain.Recommendation], error) {
		var items []domain.Recommendation
		err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
			var err error
			items, err = session.GetFriendRecommendations(ctx, page*recommendationPageSize, recommendationPageSize)
			return err
		})
		if err != nil {
			return Page[domain.Recommendation]{}, err
		}
		return Page[domain.Recommendation]{Items: items, HasMore: len(items) > 0}, nil
	}

	collection, err := Collect(ctx, s.collector, fetch, func(r domain.Recommendation) string { return r.UserID })
	if err != nil {
		return FriendSuggestions{}, fmt.Errorf("collect friend recommendations: %w", err)
	}

	result := FriendSuggestions{
		Suggestions:      []domain.Recommendation{},
		IncomingRequests: []domain.Recommendation{},
		Partial:          collection.Partial,
	}
	for _, item := range collection.Items {
		switch item.Type {
		case domain.RecommendationSuggestion:
			result.Suggestions = append(result.Suggestions, item)
		case domain.RecommendationIncomingRequest:
			result.IncomingRequests = append(result.IncomingRequests, item)
		}
	}

	s.log.Info("friend recommendations collected",
		"account_id", accountID,
		"suggestions", len(result.Suggestions),
		"incoming_requests", len(result.IncomingRequests),
		"fetches", collection.Fetches,
		"stop_reason", collection.StopReason,
	)
	return result, nil
}
