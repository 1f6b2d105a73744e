package domain

import "time"

type AccountID string

type AccountStatus string

const (
	AccountStatusOnline       AccountStatus = "Online"
	AccountStatusDisconnected AccountStatus = "Disconnected"
)

// Account is one authenticated upstream identity. The session handle used to
// talk to the upstream is kept by the registry, never on this value.
type Account struct {
	ID          AccountID     `json:"id"`
	DisplayName string        `json:"displayName"`
	Status      AccountStatus `json:"status"`
	LoggedInAt  time.Time     `json:"loggedInAt"`
}
