package booking

import (
	"context"
	"time"
)

// BalanceCache holds the per student-tenant cached balance.
// Mutations must be atomic increments, never read-modify-write.
type BalanceCache interface {
	CachedBalance(ctx context.Context, tenantID TenantID, studentID StudentID) (Amount, error)
	IncrementBalance(ctx context.Context, tenantID TenantID, studentID StudentID, delta Amount) error
	OverwriteBalance(ctx context.Context, tenantID TenantID, studentID StudentID, value Amount) (Amount, error)
}

// Store is the persistence port consumed by Service.
type Store interface {
	BalanceCache

	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	GetStudent(ctx context.Context, studentID StudentID) (Student, error)
	EnsureMembership(ctx context.Context, tenantID TenantID, studentID StudentID) (Membership, error)
	ListMemberships(ctx context.Context) ([]Membership, error)
	GetTenantSettings(ctx context.Context, tenantID TenantID) (TenantSettings, error)

	GetCourt(ctx context.Context, tenantID TenantID, courtID CourtID) (Court, error)
	ListActiveCourts(ctx context.Context, tenantID TenantID) ([]Court, error)
	LockCourt(ctx context.Context, tenantID TenantID, courtID CourtID) error

	GetSchedule(ctx context.Context, tenantID TenantID, scheduleID ScheduleID) (Schedule, error)
	ListSchedulesByID(ctx context.Context, tenantID TenantID, scheduleIDs []ScheduleID) ([]Schedule, error)
	ListBlockedSchedules(ctx context.Context, tenantID TenantID, courtID CourtID) ([]Schedule, error)
	ListAvailableSchedules(ctx context.Context, tenantID TenantID, from time.Time, to time.Time) ([]Schedule, error)
	ClaimSchedule(ctx context.Context, tenantID TenantID, scheduleID ScheduleID, studentID StudentID) error
	ReleaseSchedule(ctx context.Context, tenantID TenantID, scheduleID ScheduleID) error

	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, tenantID TenantID, bookingID BookingID) (Booking, error)
	UpdateBookingStatus(ctx context.Context, tenantID TenantID, bookingID BookingID, from BookingStatus, to BookingStatus) error
	ListActiveCourtBookings(ctx context.Context, tenantID TenantID, courtID CourtID) ([]Booking, error)
	ListStudentBookings(ctx context.Context, tenantID TenantID, studentID StudentID) ([]Booking, error)

	ListPayments(ctx context.Context, tenantID TenantID, studentID StudentID, status PaymentStatus) ([]Payment, error)
	CreatePayment(ctx context.Context, payment Payment) error
}
