package models

import "time"

// Severity is the kind of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// NotificationTTL is how long a notification stays visible before it is dismissed.
const NotificationTTL = 4 * time.Second

// Notification is a transient message shown to the user after an operation.
type Notification struct {
	Message   string
	Severity  Severity
	ExpiresAt time.Time
}

// Expired reports whether the notification should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}
