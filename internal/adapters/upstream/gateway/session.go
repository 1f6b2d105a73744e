package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

// Session is one logged-in platform session hosted by the gateway.
type Session struct {
	client *Client
	id     string
	selfID string
}

var _ ports.UpstreamSession = (*Session)(nil)

func (s *Session) ID() string { return s.id }

func (s *Session) SelfID() string { return s.selfID }

func (s *Session) GetUserInfo(ctx context.Context, userID string) (domain.UserProfile, error) {
	data, err := s.client.invoke(ctx, s.id, "getUserInfo", map[string]any{"userId": userID})
	if err != nil {
		return domain.UserProfile{}, err
	}
	return parseUserProfile(data, userID), nil
}

func (s *Session) FindUser(ctx context.Context, phone string) (*domain.UserSummary, error) {
	data, err := s.client.invoke(ctx, s.id, "findUser", map[string]any{"phone": phone})
	if err != nil {
		return nil, err
	}
	return parseFoundUser(data), nil
}

type wireAttachment struct {
	Filename string                    `json:"filename"`
	Data     string                    `json:"data"`
	Metadata domain.AttachmentMetadata `json:"metadata"`
}

func (s *Session) SendMessage(ctx context.Context, threadID string, threadType domain.ThreadType, msg domain.OutboundMessage) (domain.SendResult, error) {
	attachments := make([]wireAttachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, wireAttachment{
			Filename: a.Filename,
			Data:     base64.StdEncoding.EncodeToString(a.Data),
			Metadata: a.Metadata,
		})
	}

	data, err := s.client.invoke(ctx, s.id, "sendMessage", map[string]any{
		"threadId":   threadID,
		"threadType": int(threadType),
		"message": map[string]any{
			"msg":         msg.Text,
			"attachments": attachments,
		},
	})
	if err != nil {
		return domain.SendResult{}, err
	}
	return parseSendResult(data), nil
}

func (s *Session) SendFriendRequest(ctx context.Context, userID, message string) error {
	_, err := s.client.invoke(ctx, s.id, "sendFriendRequest", map[string]any{"userId": userID, "msg": message})
	return err
}

func (s *Session) AcceptFriendRequest(ctx context.Context, userID string) error {
	_, err := s.client.invoke(ctx, s.id, "acceptFriendRequest", map[string]any{"userId": userID})
	return err
}

func (s *Session) RemoveFriend(ctx context.Context, userID string) error {
	_, err := s.client.invoke(ctx, s.id, "removeFriend", map[string]any{"userId": userID})
	return err
}

func (s *Session) ListFriends(ctx context.Context) ([]domain.Friend, error) {
	data, err := s.client.invoke(ctx, s.id, "getAllFriends", map[string]any{})
	if err != nil {
		return nil, err
	}
	return parseFriends(data), nil
}

func (s *Session) ListGroupIDs(ctx context.Context) ([]string, error) {
	data, err := s.client.invoke(ctx, s.id, "getAllGroups", map[string]any{})
	if err != nil {
		return nil, err
	}
	return parseGroupIDs(data), nil
}

func (s *Session) GetGroupInfo(ctx context.Context, groupIDs []string) ([]domain.GroupInfo, error) {
	data, err := s.client.invoke(ctx, s.id, "getGroupInfo", map[string]any{"groupIds": groupIDs})
	if err != nil {
		return nil, err
	}
	return parseGroupInfos(data), nil
}

func (s *Session) GetGroupLinkPage(ctx context.Context, link string, page int) (domain.GroupInfo, error) {
	data, err := s.client.invoke(ctx, s.id, "getGroupLinkInfo", map[string]any{"link": link, "memberPage": page})
	if err != nil {
		return domain.GroupInfo{}, err
	}

	groups := parseGroupInfos(data)
	if len(groups) == 0 {
		return domain.GroupInfo{}, fmt.Errorf("group link %s: %w", link, domain.ErrGroupNotFound)
	}
	return groups[0], nil
}

func (s *Session) JoinGroupLink(ctx context.Context, link string) error {
	_, err := s.client.invoke(ctx, s.id, "joinGroupLink", map[string]any{"link": link})
	return err
}

func (s *Session) CreateGroup(ctx context.Context, name string, memberIDs []string) (string, error) {
	data, err := s.client.invoke(ctx, s.id, "createGroup", map[string]any{"name": name, "members": memberIDs})
	if err != nil {
		return "", err
	}
	return firstString(data, "groupId", "group_id", "id"), nil
}

func (s *Session) AddUsersToGroup(ctx context.Context, groupID string, memberIDs []string) error {
	_, err := s.client.invoke(ctx, s.id, "addUserToGroup", map[string]any{"groupId": groupID, "members": memberIDs})
	return err
}

func (s *Session) GetFriendRecommendations(ctx context.Context, start, count int) ([]domain.Recommendation, error) {
	data, err := s.client.invoke(ctx, s.id, "getFriendRecommendations", map[string]any{"start": start, "count": count})
	if err != nil {
		return nil, err
	}
	return parseRecommendations(data), nil
}

type streamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Listen relays the session's event stream to handler until ctx ends or the
// gateway reports the session closed.
func (s *Session) Listen(ctx context.Context, handler func(ports.SessionEvent)) error {
	conn, err := s.client.dial(ctx, "/v1/sessions/"+url.PathEscape(s.id)+"/events")
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log := s.client.log.With("session", s.id)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read session events: %w", err)
		}

		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn("skip malformed session event", "error", err)
			continue
		}

		switch msg.Type {
		case "message":
			inbound, ok := parseInboundMessage(msg.Data)
			if !ok {
				log.Debug("skip message without thread")
				continue
			}
			handler(ports.SessionEvent{Kind: ports.SessionEventMessage, Message: &inbound})
		case "logout", "closed":
			handler(ports.SessionEvent{Kind: ports.SessionEventLogout, Reason: parseReason(msg.Data)})
			return nil
		default:
			log.Debug("ignore session event", "type", msg.Type)
		}
	}
}

func (s *Session) Close() error {
	_, err := s.client.invoke(context.Background(), s.id, "logout", map[string]any{})
	return err
}
