package application

import (
	"github.com/bnema/zalo-accounts/internal/domain"
)

type SendMessageCommand struct {
	AccountID   domain.AccountID
	RecipientID string
	ThreadType  domain.ThreadType
	Text        string
	Attachments []domain.Attachment
}

type SendFriendRequestCommand struct {
	AccountID  domain.AccountID
	Identifier string
	Message    string
}

type CreateGroupCommand struct {
	AccountID   domain.AccountID
	Name        string
	Identifiers []string
}

type BulkSendCommand struct {
	AccountID domain.AccountID
	TargetIDs []string
	Text      string
}
