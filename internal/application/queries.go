package application

import (
	"github.com/bnema/zalo-accounts/internal/domain"
)

type GroupMembers struct {
	GroupID     string               `json:"groupId"`
	Name        string               `json:"name"`
	TotalMember int                  `json:"totalMember"`
	Members     []domain.GroupMember `json:"members"`
	Partial     bool                 `json:"partial"`
}

type FriendSuggestions struct {
	Suggestions      []domain.Recommendation `json:"suggestions"`
	IncomingRequests []domain.Recommendation `json:"incomingRequests"`
	Partial          bool                    `json:"partial"`
}

type CreateGroupResult struct {
	GroupID string                    `json:"groupId"`
	Failed  []domain.FailedIdentifier `json:"failed"`
	// Chunks holds the staged additions when the group was created in two
	// phases; nil otherwise.
	Chunks *domain.Job `json:"chunks,omitempty"`
}

type BulkSendResult struct {
	JobID         string `json:"jobId"`
	AcceptedCount int    `json:"acceptedCount"`
}

type JoinGroupResult struct {
	Status domain.JoinStatus `json:"status"`
}
