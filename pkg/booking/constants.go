package booking

import "time"

const (
	// DefaultRentalDuration applies to court rentals stored without an end time.
	DefaultRentalDuration = time.Hour

	// DefaultOpenHour and DefaultCloseHour apply to tenants without configured operating hours.
	DefaultOpenHour  = 6
	DefaultCloseHour = 22

	// DefaultDriftEpsilon is the largest cache/ledger difference treated as consistent.
	DefaultDriftEpsilon Amount = 0
)

const (
	operationCreateBooking   = "create_booking"
	operationCancelBooking   = "cancel_booking"
	operationCompleteBooking = "complete_booking"
	operationRecordPayment   = "record_payment"
	operationSyncBalance     = "sync_balance"
	operationBalanceCheck    = "balance_check"

	slotLabelFormat = "%02d:00"
	hoursPerDay     = 24
)

// Operation log statuses.
const (
	OperationStatusOK    = "ok"
	OperationStatusError = "error"
	OperationStatusDrift = "drift"
)

// Event types emitted after a committed operation.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventPaymentRecorded  = "payment.recorded"
)
