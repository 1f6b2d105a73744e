package domain

import "time"

type EventKind string

const (
	EventQRReady             EventKind = "qr-ready"
	EventQRExpired           EventKind = "qr-expired"
	EventLoginSuccess        EventKind = "login-success"
	EventLoginFailure        EventKind = "login-failure"
	EventAccountDisconnected EventKind = "account-disconnected"
	EventNewMessage          EventKind = "new-message"
	EventJobProgress         EventKind = "job-progress"
	EventJobFinished         EventKind = "job-finished"
)

// Event is published on the event channel. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind      EventKind       `json:"kind"`
	TempID    string          `json:"tempId,omitempty"`
	Origin    string          `json:"origin,omitempty"`
	AccountID AccountID       `json:"accountId,omitempty"`
	Account   *Account        `json:"account,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Message   *InboundMessage `json:"message,omitempty"`
	Job       *Job            `json:"job,omitempty"`
	At        time.Time       `json:"at"`
}
