package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NotificationKind names the membership change a notification reports.
type NotificationKind string

const (
	ListAdded   NotificationKind = "ListAdded"
	ListRemoved NotificationKind = "ListRemoved"
)

// Notification is emitted once per successful batch. Addresses is exactly the
// caller's input, including duplicates and already-present entries.
type Notification struct {
	Kind      NotificationKind
	List      common.Address
	Addresses []common.Address
	At        time.Time
	RequestID string
}

// ListInfo describes a deployed list module.
type ListInfo struct {
	Ref       common.Address
	Name      string
	CreatedAt time.Time
}
