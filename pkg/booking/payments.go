package booking

import (
	"context"
	"fmt"
)

// RecordPayment stores a payment and moves the cached balance by its ledger effect.
func (service *Service) RecordPayment(ctx context.Context, request PaymentRequest) (Payment, error) {
	var recorded Payment
	operationError := request.Validate()
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			if _, err := txStore.GetStudent(ctx, request.StudentID); err != nil {
				return err
			}
			if _, err := txStore.EnsureMembership(ctx, request.TenantID, request.StudentID); err != nil {
				return err
			}
			paymentID, err := NewPaymentID(service.newID())
			if err != nil {
				return err
			}
			payment := Payment{
				ID:        paymentID,
				TenantID:  request.TenantID,
				StudentID: request.StudentID,
				BookingID: request.BookingID,
				Amount:    request.Amount,
				Status:    request.Status,
				Method:    request.Method,
				Date:      request.Date.UTC(),
			}
			if request.Date.IsZero() {
				payment.Date = service.nowFn().UTC()
			}
			delta, err := paymentDelta(ctx, txStore, payment)
			if err != nil {
				return err
			}
			if err := txStore.CreatePayment(ctx, payment); err != nil {
				return err
			}
			if delta != 0 {
				if err := service.balanceCache(txStore).IncrementBalance(ctx, request.TenantID, request.StudentID, delta); err != nil {
					return WrapError("cache", "balance", "increment_failed", err)
				}
			}
			recorded = payment
			return nil
		})
	}
	var paymentRef *PaymentID
	if operationError == nil {
		paymentID := recorded.ID
		paymentRef = &paymentID
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationRecordPayment,
		TenantID:  request.TenantID,
		StudentID: request.StudentID,
		BookingID: request.BookingID,
		PaymentID: paymentRef,
		Amount:    request.Amount,
		Detail:    request.Status.String(),
		Error:     operationError,
	})
	if operationError != nil {
		return Payment{}, operationError
	}
	event := Event{
		Type:       EventPaymentRecorded,
		TenantID:   recorded.TenantID.String(),
		StudentID:  recorded.StudentID.String(),
		PaymentID:  recorded.ID.String(),
		Amount:     recorded.Amount.Int64(),
		Status:     recorded.Status.String(),
		OccurredAt: service.nowFn().UTC(),
	}
	if recorded.BookingID != nil {
		event.BookingID = recorded.BookingID.String()
	}
	service.publish(ctx, operationRecordPayment, event)
	return recorded, nil
}

// paymentDelta is the change of the ledger balance caused by adding payment.
func paymentDelta(ctx context.Context, store Store, payment Payment) (Amount, error) {
	if payment.BookingID == nil {
		if payment.Status == PaymentStatusPaid {
			return payment.Amount, nil
		}
		return 0, nil
	}
	booking, err := store.GetBooking(ctx, payment.TenantID, *payment.BookingID)
	if err != nil {
		return 0, err
	}
	if booking.StudentID != payment.StudentID {
		return 0, fmt.Errorf("%w: booking %s belongs to another student", ErrInvalidRequest, booking.ID)
	}
	if payment.Status != PaymentStatusPaid || booking.Status == BookingStatusCancelled {
		return 0, nil
	}
	payments, err := store.ListPayments(ctx, payment.TenantID, payment.StudentID, PaymentStatusPaid)
	if err != nil {
		return 0, err
	}
	before := bookingCharge(booking, payments)
	after := bookingCharge(booking, append(payments, payment))
	return before - after, nil
}
