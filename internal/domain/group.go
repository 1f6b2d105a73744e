package domain

type GroupMember struct {
	UID           string `json:"uid"`
	DisplayName   string `json:"dName"`
	ZaloName      string `json:"zaloName"`
	Avatar        string `json:"avatar,omitempty"`
	AccountStatus int    `json:"accountStatus"`
	Type          int    `json:"type"`
}

// GroupInfo is the canonical shape of a group as returned by any of the
// upstream group reads, regardless of how the upstream nested it.
type GroupInfo struct {
	GroupID     string        `json:"groupId"`
	Name        string        `json:"name"`
	Avatar      string        `json:"avatar,omitempty"`
	CreatorID   string        `json:"creatorId,omitempty"`
	TotalMember int           `json:"totalMember"`
	Members     []GroupMember `json:"members"`
	HasMore     bool          `json:"-"`
}

type GroupSummary struct {
	GroupID      string `json:"groupId"`
	Name         string `json:"groupName"`
	Avatar       string `json:"avatar,omitempty"`
	TotalMembers int    `json:"totalMembers"`
	CreatorID    string `json:"creatorId,omitempty"`
}

type JoinStatus string

const (
	JoinStatusJoined        JoinStatus = "joined"
	JoinStatusPending       JoinStatus = "pending"
	JoinStatusAlreadyMember JoinStatus = "already_member"
)

type FailedIdentifier struct {
	Identifier string `json:"id"`
	Reason     string `json:"reason"`
}
