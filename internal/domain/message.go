package domain

import (
	"strings"
	"time"
)

type ThreadType int

const (
	ThreadTypeUser  ThreadType = 0
	ThreadTypeGroup ThreadType = 1
)

// ParseThreadType accepts the recipient kinds callers send: "GROUP", "group"
// or "1" select a group thread, anything else a user thread.
func ParseThreadType(kind string) ThreadType {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "group", "1":
		return ThreadTypeGroup
	default:
		return ThreadTypeUser
	}
}

func (t ThreadType) String() string {
	if t == ThreadTypeGroup {
		return "group"
	}
	return "user"
}

type AttachmentMetadata struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	TotalSize int64  `json:"totalSize"`
	MIME      string `json:"mime,omitempty"`
}

type Attachment struct {
	Filename string
	Data     []byte
	Metadata AttachmentMetadata
}

type OutboundMessage struct {
	Text        string
	Attachments []Attachment
}

func (m OutboundMessage) IsEmpty() bool {
	return strings.TrimSpace(m.Text) == "" && len(m.Attachments) == 0
}

type SendResult struct {
	MessageID     string   `json:"messageId,omitempty"`
	AttachmentIDs []string `json:"attachmentIds,omitempty"`
}

type InboundMessage struct {
	ThreadID   string     `json:"threadId"`
	ThreadType ThreadType `json:"threadType"`
	SenderID   string     `json:"senderId"`
	SenderName string     `json:"senderName"`
	Content    string     `json:"content"`
	IsSelf     bool       `json:"isSelf"`
	ReceivedAt time.Time  `json:"receivedAt"`
}
