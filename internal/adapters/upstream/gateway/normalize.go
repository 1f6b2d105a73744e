package gateway

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bnema/zalo-accounts/internal/domain"
)

// The platform returns the same entities in several shapes depending on the
// call. Everything here reduces them to one domain shape.

func firstString(r gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := r.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// entries yields the values of an array, or of an object keyed by id with the
// key passed along.
func entries(r gjson.Result, fn func(key string, value gjson.Result)) {
	if r.IsArray() {
		for _, v := range r.Array() {
			fn("", v)
		}
		return
	}
	if r.IsObject() {
		r.ForEach(func(key, value gjson.Result) bool {
			fn(key.String(), value)
			return true
		})
	}
}

func parseUserProfile(data gjson.Result, userID string) domain.UserProfile {
	profile := data
	if changed := data.Get("changed_profiles"); changed.IsObject() {
		profile = changed.Get(gjson.Escape(userID))
		if !profile.Exists() {
			profile = changed.Get(gjson.Escape(userID + "_0"))
		}
		if !profile.Exists() {
			changed.ForEach(func(_, value gjson.Result) bool {
				profile = value
				return false
			})
		}
	}
	if !profile.IsObject() {
		return domain.UserProfile{}
	}

	return domain.UserProfile{
		UserID:      firstString(profile, "userId", "uid", "id"),
		ZaloName:    firstString(profile, "zaloName", "zalo_name"),
		DisplayName: firstString(profile, "displayName", "display_name", "dName"),
		Avatar:      profile.Get("avatar").String(),
		Cover:       profile.Get("cover").String(),
		Gender:      int(profile.Get("gender").Int()),
		DOB:         profile.Get("dob").Int(),
	}
}

func parseFoundUser(data gjson.Result) *domain.UserSummary {
	if !data.IsObject() {
		return nil
	}
	uid := firstString(data, "uid", "userId")
	if uid == "" {
		return nil
	}
	return &domain.UserSummary{
		UserID: uid,
		Name:   firstString(data, "display_name", "displayName", "zalo_name", "zaloName"),
		Avatar: data.Get("avatar").String(),
	}
}

func parseSendResult(data gjson.Result) domain.SendResult {
	result := domain.SendResult{
		MessageID: firstString(data, "message.msgId", "msgId"),
	}
	for _, a := range data.Get("attachment").Array() {
		if id := a.Get("msgId").String(); id != "" {
			result.AttachmentIDs = append(result.AttachmentIDs, id)
		}
	}
	return result
}

// parseFriends accepts a bare array, {data: [...]} or {data: {uid: {...}}}.
func parseFriends(data gjson.Result) []domain.Friend {
	list := data
	if inner := data.Get("data"); inner.Exists() && !data.IsArray() {
		list = inner
	}

	friends := []domain.Friend{}
	entries(list, func(key string, f gjson.Result) {
		uid := firstString(f, "userId", "uid")
		if uid == "" {
			uid = key
		}
		if uid == "" {
			return
		}
		friends = append(friends, domain.Friend{
			UserID:      uid,
			DisplayName: firstString(f, "displayName", "dName"),
			ZaloName:    firstString(f, "zaloName", "zalo_name"),
			Avatar:      f.Get("avatar").String(),
			PhoneNumber: f.Get("phoneNumber").String(),
			Gender:      int(f.Get("gender").Int()),
			Status:      f.Get("status").String(),
		})
	})
	return friends
}

func parseGroupIDs(data gjson.Result) []string {
	ids := []string{}
	if versions := data.Get("gridVerMap"); versions.IsObject() {
		versions.ForEach(func(key, _ gjson.Result) bool {
			ids = append(ids, key.String())
			return true
		})
		return ids
	}
	for _, v := range data.Array() {
		if id := v.String(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseGroupInfos accepts a flat group object, an array of groups, or the
// nested {gridInfoMap: {<id>: {...}}} shape.
func parseGroupInfos(data gjson.Result) []domain.GroupInfo {
	groups := []domain.GroupInfo{}

	if grid := data.Get("gridInfoMap"); grid.IsObject() {
		grid.ForEach(func(key, value gjson.Result) bool {
			groups = append(groups, parseGroup(key.String(), value))
			return true
		})
		return groups
	}

	if data.IsArray() {
		for _, g := range data.Array() {
			groups = append(groups, parseGroup("", g))
		}
		return groups
	}

	if data.IsObject() && (data.Get("groupId").Exists() || data.Get("currentMems").Exists()) {
		groups = append(groups, parseGroup("", data))
	}
	return groups
}

func parseGroup(key string, g gjson.Result) domain.GroupInfo {
	info := domain.GroupInfo{
		GroupID:     firstString(g, "groupId", "id"),
		Name:        g.Get("name").String(),
		Avatar:      firstString(g, "fullAvt", "avt", "avatar"),
		CreatorID:   g.Get("creatorId").String(),
		TotalMember: int(g.Get("totalMember").Int()),
		HasMore:     g.Get("hasMoreMember").Int() == 1,
		Members:     parseMembers(g),
	}
	if info.GroupID == "" {
		info.GroupID = key
	}
	return info
}

// parseMembers reads either currentMems: [...] or members: {uid: {...}}.
func parseMembers(g gjson.Result) []domain.GroupMember {
	source := g.Get("currentMems")
	if !source.Exists() {
		source = g.Get("members")
	}

	members := []domain.GroupMember{}
	entries(source, func(key string, m gjson.Result) {
		uid := firstString(m, "id", "uid", "userId")
		if uid == "" {
			uid = key
		}
		if uid == "" {
			return
		}
		members = append(members, domain.GroupMember{
			UID:           uid,
			DisplayName:   firstString(m, "dName", "displayName"),
			ZaloName:      firstString(m, "zaloName", "zalo_name"),
			Avatar:        m.Get("avatar").String(),
			AccountStatus: int(m.Get("accountStatus").Int()),
			Type:          int(m.Get("type").Int()),
		})
	})
	return members
}

func parseRecommendations(data gjson.Result) []domain.Recommendation {
	items := []domain.Recommendation{}
	for _, item := range data.Get("recommItems").Array() {
		info := item.Get("dataInfo")
		if !info.Exists() {
			continue
		}
		items = append(items, domain.Recommendation{
			UserID:      info.Get("userId").String(),
			DisplayName: info.Get("displayName").String(),
			ZaloName:    info.Get("zaloName").String(),
			Avatar:      info.Get("avatar").String(),
			Message:     info.Get("recommInfo.message").String(),
			Type:        domain.RecommendationType(info.Get("recommType").Int()),
		})
	}
	return items
}

func parseInboundMessage(raw json.RawMessage) (domain.InboundMessage, bool) {
	msg := gjson.ParseBytes(raw)
	threadID := msg.Get("threadId").String()
	if threadID == "" {
		return domain.InboundMessage{}, false
	}

	content := msg.Get("data.content")
	text := content.String()
	if content.IsObject() {
		text = firstString(content, "title", "msg", "description")
		if text == "" {
			text = content.Raw
		}
	}

	received := time.Now()
	if ts := msg.Get("data.ts").Int(); ts > 0 {
		received = time.UnixMilli(ts)
	}

	return domain.InboundMessage{
		ThreadID:   threadID,
		ThreadType: domain.ThreadType(msg.Get("type").Int()),
		SenderID:   msg.Get("data.uidFrom").String(),
		SenderName: msg.Get("data.dName").String(),
		Content:    text,
		IsSelf:     msg.Get("isSelf").Bool(),
		ReceivedAt: received,
	}, true
}

func parseReason(raw json.RawMessage) string {
	r := gjson.ParseBytes(raw)
	if r.Type == gjson.String {
		return r.String()
	}
	return r.Get("reason").String()
}
