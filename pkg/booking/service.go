package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service contains the booking and ledger logic over a Store.
type Service struct {
	store        Store
	cache        BalanceCache
	publisher    EventPublisher
	logger       OperationLogger
	nowFn        func() time.Time
	newID        func() string
	driftEpsilon Amount
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:        store,
		nowFn:        now,
		newID:        uuid.NewString,
		driftEpsilon: DefaultDriftEpsilon,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// balanceCache picks the external cache when configured, otherwise the given store.
func (service *Service) balanceCache(store Store) BalanceCache {
	if service.cache != nil {
		return service.cache
	}
	return store
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = OperationStatusError
		} else {
			entry.Status = OperationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

// publish delivers an event after commit. Failures are logged, never returned.
func (service *Service) publish(ctx context.Context, operation string, event Event) {
	if service.publisher == nil {
		return
	}
	if err := service.publisher.Publish(ctx, event); err != nil {
		service.logOperation(ctx, OperationLog{
			Operation: operation,
			Status:    OperationStatusError,
			Detail:    "publish " + event.Type,
			Error:     err,
		})
	}
}

func bookingEvent(eventType string, booking Booking, occurredAt time.Time) Event {
	startTime := booking.StartTime
	return Event{
		Type:       eventType,
		TenantID:   booking.TenantID.String(),
		StudentID:  booking.StudentID.String(),
		BookingID:  booking.ID.String(),
		Amount:     booking.Price.Int64(),
		Status:     booking.Status.String(),
		OccurredAt: occurredAt,
		StartTime:  &startTime,
	}
}
