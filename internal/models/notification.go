package models

import "time"

// NotificationVariant controls how a toast is rendered.
type NotificationVariant string

const (
	NotificationVariantDefault     NotificationVariant = "default"
	NotificationVariantDestructive NotificationVariant = "destructive"
)

// Notification is a transient, user-facing feedback message.
type Notification struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Variant     NotificationVariant `json:"variant,omitempty"`
}

// DeliveredNotification is a notification held in a recipient inbox.
type DeliveredNotification struct {
	Notification
	RecipientID string    `json:"recipientId"`
	CreatedAt   time.Time `json:"createdAt"`
}
