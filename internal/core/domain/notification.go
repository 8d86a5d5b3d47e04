package domain

import "time"

// NotificationType identifies what a notification is about.
type NotificationType string

const (
	NotificationOrderCancelled NotificationType = "order_cancelled"
	NotificationOrderReturned  NotificationType = "order_returned"
)

// Notification is a persisted side-effect record created when a shipment
// transition needs the owning user's acknowledgement. It is consumed by a
// separate notification feed; this core only creates it.
type Notification struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	UserID          string           `json:"user_id" bson:"user_id"`
	Type            NotificationType `json:"type" bson:"type"`
	Title           string           `json:"title" bson:"title"`
	Message         string           `json:"message" bson:"message"`
	RelatedID       string           `json:"related_id" bson:"related_id"`
	RelatedType     string           `json:"related_type" bson:"related_type"`
	TriggeredBy     string           `json:"triggered_by" bson:"triggered_by"`
	TriggeredByRole string           `json:"triggered_by_role" bson:"triggered_by_role"`
	Read            bool             `json:"read" bson:"read"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at"`
}
