package booking

import (
	"context"
	"fmt"
)

// CreateBooking validates, checks funds and court occupancy, and persists a confirmed booking
// together with the schedule claim and cache decrement in one transaction.
func (service *Service) CreateBooking(ctx context.Context, request BookingRequest) (Booking, error) {
	var created Booking
	var driftDetail string
	operationError := request.Validate()
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			if _, err := txStore.GetStudent(ctx, request.StudentID); err != nil {
				return err
			}
			if _, err := txStore.EnsureMembership(ctx, request.TenantID, request.StudentID); err != nil {
				return err
			}
			cache := service.balanceCache(txStore)
			ledger, err := calculateLedger(ctx, txStore, request.TenantID, request.StudentID)
			if err != nil {
				return err
			}
			if cached, cacheErr := cache.CachedBalance(ctx, request.TenantID, request.StudentID); cacheErr == nil && (cached-ledger.Balance).Abs() > service.driftEpsilon {
				driftDetail = fmt.Sprintf("cached %d, computed %d", cached, ledger.Balance)
			}
			if ledger.Balance < request.Price {
				return fmt.Errorf("%w: balance %d, price %d", ErrInsufficientFunds, ledger.Balance, request.Price)
			}
			bookingID, err := NewBookingID(service.newID())
			if err != nil {
				return err
			}
			booking := Booking{
				ID:          bookingID,
				TenantID:    request.TenantID,
				StudentID:   request.StudentID,
				ProfessorID: request.ProfessorID,
				ServiceKind: request.ServiceKind,
				Price:       request.Price,
				Status:      BookingStatusConfirmed,
				CreatedAt:   service.nowFn().UTC(),
			}
			if request.ServiceKind.IsLesson() {
				err = prepareLesson(ctx, txStore, request, &booking)
			} else {
				err = prepareRental(ctx, txStore, request, &booking)
			}
			if err != nil {
				return err
			}
			if err := txStore.CreateBooking(ctx, booking); err != nil {
				return err
			}
			if booking.ScheduleID != nil {
				if err := txStore.ClaimSchedule(ctx, request.TenantID, *booking.ScheduleID, request.StudentID); err != nil {
					return err
				}
			}
			if err := cache.IncrementBalance(ctx, request.TenantID, request.StudentID, -booking.Price); err != nil {
				return WrapError("cache", "balance", "increment_failed", err)
			}
			created = booking
			return nil
		})
	}
	if driftDetail != "" {
		service.logOperation(ctx, OperationLog{
			Operation: operationBalanceCheck,
			TenantID:  request.TenantID,
			StudentID: request.StudentID,
			Status:    OperationStatusDrift,
			Detail:    driftDetail,
		})
	}
	var bookingRef *BookingID
	if operationError == nil {
		bookingID := created.ID
		bookingRef = &bookingID
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateBooking,
		TenantID:  request.TenantID,
		StudentID: request.StudentID,
		BookingID: bookingRef,
		Amount:    request.Price,
		Detail:    request.ServiceKind.String(),
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	service.publish(ctx, operationCreateBooking, bookingEvent(EventBookingCreated, created, service.nowFn().UTC()))
	return created, nil
}

// CancelBooking moves an active booking to cancelled, releases its schedule and restores its charge.
func (service *Service) CancelBooking(ctx context.Context, tenantID TenantID, bookingID BookingID) (Booking, error) {
	var cancelled Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		booking, err := txStore.GetBooking(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if !booking.Status.IsActive() {
			return fmt.Errorf("%w: %s booking cannot be cancelled", ErrInvalidTransition, booking.Status)
		}
		payments, err := txStore.ListPayments(ctx, tenantID, booking.StudentID, PaymentStatusPaid)
		if err != nil {
			return err
		}
		charge := bookingCharge(booking, payments)
		if err := txStore.UpdateBookingStatus(ctx, tenantID, bookingID, booking.Status, BookingStatusCancelled); err != nil {
			return err
		}
		if booking.ScheduleID != nil {
			if err := txStore.ReleaseSchedule(ctx, tenantID, *booking.ScheduleID); err != nil {
				return err
			}
		}
		if charge != 0 {
			if err := service.balanceCache(txStore).IncrementBalance(ctx, tenantID, booking.StudentID, charge); err != nil {
				return WrapError("cache", "balance", "increment_failed", err)
			}
		}
		booking.Status = BookingStatusCancelled
		cancelled = booking
		return nil
	})
	return service.finishTransition(ctx, operationCancelBooking, EventBookingCancelled, tenantID, bookingID, cancelled, operationError)
}

// CompleteBooking moves an active booking to completed. Any unsettled debt remains.
func (service *Service) CompleteBooking(ctx context.Context, tenantID TenantID, bookingID BookingID) (Booking, error) {
	var completed Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		booking, err := txStore.GetBooking(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if !booking.Status.IsActive() {
			return fmt.Errorf("%w: %s booking cannot be completed", ErrInvalidTransition, booking.Status)
		}
		if err := txStore.UpdateBookingStatus(ctx, tenantID, bookingID, booking.Status, BookingStatusCompleted); err != nil {
			return err
		}
		booking.Status = BookingStatusCompleted
		completed = booking
		return nil
	})
	return service.finishTransition(ctx, operationCompleteBooking, EventBookingCompleted, tenantID, bookingID, completed, operationError)
}

func (service *Service) finishTransition(ctx context.Context, operation string, eventType string, tenantID TenantID, bookingID BookingID, booking Booking, operationError error) (Booking, error) {
	bookingRef := bookingID
	service.logOperation(ctx, OperationLog{
		Operation: operation,
		TenantID:  tenantID,
		StudentID: booking.StudentID,
		BookingID: &bookingRef,
		Amount:    booking.Price,
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	service.publish(ctx, operation, bookingEvent(eventType, booking, service.nowFn().UTC()))
	return booking, nil
}

func prepareRental(ctx context.Context, store Store, request BookingRequest, booking *Booking) error {
	court, err := store.GetCourt(ctx, request.TenantID, *request.CourtID)
	if err != nil {
		return err
	}
	if !court.Active {
		return fmt.Errorf("%w: court %s is inactive", ErrCourtNotFound, court.ID)
	}
	if err := store.LockCourt(ctx, request.TenantID, court.ID); err != nil {
		return err
	}
	window, err := NewInterval(*request.StartTime, *request.EndTime)
	if err != nil {
		return err
	}
	conflict, err := findConflict(ctx, store, request.TenantID, court.ID, window, nil)
	if err != nil {
		return err
	}
	if conflict != nil {
		return &ConflictError{Conflict: *conflict}
	}
	courtID := court.ID
	endTime := window.End.UTC()
	booking.CourtID = &courtID
	booking.StartTime = window.Start.UTC()
	booking.EndTime = &endTime
	return nil
}

func prepareLesson(ctx context.Context, store Store, request BookingRequest, booking *Booking) error {
	schedule, err := store.GetSchedule(ctx, request.TenantID, *request.ScheduleID)
	if err != nil {
		return err
	}
	if !schedule.Available || schedule.Blocked {
		return fmt.Errorf("%w: schedule %s", ErrScheduleUnavailable, schedule.ID)
	}
	if request.ProfessorID != nil && *request.ProfessorID != schedule.ProfessorID {
		return fmt.Errorf("%w: schedule %s belongs to another professor", ErrInvalidRequest, schedule.ID)
	}
	if schedule.CourtID != nil {
		if err := store.LockCourt(ctx, request.TenantID, *schedule.CourtID); err != nil {
			return err
		}
		scheduleID := schedule.ID
		conflict, err := findConflict(ctx, store, request.TenantID, *schedule.CourtID, schedule.Interval(), &scheduleID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ConflictError{Conflict: *conflict}
		}
	}
	scheduleID := schedule.ID
	professorID := schedule.ProfessorID
	endTime := schedule.EndTime.UTC()
	booking.ScheduleID = &scheduleID
	booking.ProfessorID = &professorID
	booking.CourtID = schedule.CourtID
	booking.StartTime = schedule.StartTime.UTC()
	booking.EndTime = &endTime
	return nil
}
