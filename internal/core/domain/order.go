package domain

import (
	"errors"
	"time"
)

// ShipmentStatus represents the delivery-progress state of an order,
// distinct from its payment or approval status.
type ShipmentStatus string

const (
	StatusAssigned       ShipmentStatus = "assigned"
	StatusContacted      ShipmentStatus = "contacted"
	StatusAttempted      ShipmentStatus = "attempted"
	StatusNoResponse     ShipmentStatus = "no_response"
	StatusPickedUp       ShipmentStatus = "picked_up"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusCancelled      ShipmentStatus = "cancelled"
	StatusReturned       ShipmentStatus = "returned"
)

// sideBranch lists the driver-contact states reachable from any in-flight
// state. They record an interaction, not an outcome, and return to the
// normal progression afterwards.
var sideBranch = []ShipmentStatus{StatusContacted, StatusAttempted, StatusNoResponse}

// validTransitions defines the allowed state machine transitions.
// Terminal states have no entry: nothing leaves them.
var validTransitions = map[ShipmentStatus][]ShipmentStatus{
	StatusAssigned:       append([]ShipmentStatus{StatusPickedUp, StatusCancelled, StatusReturned}, sideBranch...),
	StatusContacted:      {StatusAttempted, StatusNoResponse, StatusPickedUp, StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusReturned},
	StatusAttempted:      {StatusContacted, StatusNoResponse, StatusPickedUp, StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusReturned},
	StatusNoResponse:     {StatusContacted, StatusAttempted, StatusPickedUp, StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusReturned},
	StatusPickedUp:       append([]ShipmentStatus{StatusOutForDelivery, StatusCancelled, StatusReturned}, sideBranch...),
	StatusOutForDelivery: append([]ShipmentStatus{StatusDelivered, StatusCancelled, StatusReturned}, sideBranch...),
}

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrOrderNotFound = errors.New("order not found")
var ErrForbidden = errors.New("access forbidden")
var ErrReasonRequired = errors.New("reason is required for this transition")
var ErrMissingAPIKey = errors.New("provider api key is not configured")
var ErrDistanceUnavailable = errors.New("could not calculate distance")
var ErrNoPosition = errors.New("no known driver position")

// CanTransitionTo reports whether a transition from s to next is valid.
// Same-status re-issues are handled by the caller as idempotent no-ops
// and are not part of the table.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s accepts no further transitions.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// IsValid reports whether s is a known shipment status.
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case StatusAssigned, StatusContacted, StatusAttempted, StatusNoResponse,
		StatusPickedUp, StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// StatusHistoryEntry records a single shipment transition on an order.
type StatusHistoryEntry struct {
	Status    ShipmentStatus `json:"status" bson:"status"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Notes     string         `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Order is the dispatch-side view of a store order. It is created by the
// order-intake flow with an initial status of "assigned" once a driver is
// attached, and mutated exclusively through the shipment state machine
// afterwards. Orders are never hard-deleted, only terminal-stated.
type Order struct {
	ID               string         `json:"id" bson:"_id,omitempty"`
	InvoiceNumber    string         `json:"invoice_number" bson:"invoice_number"`
	UserID           string         `json:"user_id" bson:"user_id"` // owning store user
	AssignedDriverID string         `json:"assigned_driver_id,omitempty" bson:"assigned_driver_id,omitempty"`
	ShipmentStatus   ShipmentStatus `json:"shipment_status" bson:"shipment_status"`
	Location         *GeoPoint      `json:"location,omitempty" bson:"location,omitempty"`
	CustomerPhone    string         `json:"customer_phone" bson:"customer_phone"`
	CustomerAddress  string         `json:"customer_address,omitempty" bson:"customer_address,omitempty"`
	CODAmount        float64        `json:"cod_amount" bson:"cod_amount"`
	TotalAmount      float64        `json:"total_amount" bson:"total_amount"`
	CollectedAmount  float64        `json:"collected_amount,omitempty" bson:"collected_amount,omitempty"`
	CancelReason     string         `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" bson:"updated_at"`
	DeliveredAt      *time.Time     `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`

	StatusHistory []StatusHistoryEntry `json:"status_history" bson:"status_history"`
}

// DriverLocationSample is the ephemeral last-known position of a driver.
// One slot per active session; overwritten on every new sample. No history
// is retained here.
type DriverLocationSample struct {
	DriverID   string
	Point      GeoPoint
	ObservedAt time.Time
}
