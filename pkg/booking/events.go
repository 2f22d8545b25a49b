package booking

import (
	"context"
	"time"
)

// Event is a notification about a committed booking or payment change.
type Event struct {
	Type       string     `json:"type"`
	TenantID   string     `json:"tenant_id"`
	StudentID  string     `json:"student_id"`
	BookingID  string     `json:"booking_id,omitempty"`
	PaymentID  string     `json:"payment_id,omitempty"`
	Amount     int64      `json:"amount"`
	Status     string     `json:"status,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
	StartTime  *time.Time `json:"start_time,omitempty"`
}

// EventPublisher delivers events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
