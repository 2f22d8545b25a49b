package booking

import (
	"fmt"
	"strings"
	"time"
)

// Amount is a signed money value in the tenant currency's smallest unit.
type Amount int64

// Int64 returns the raw value.
func (amount Amount) Int64() int64 {
	return int64(amount)
}

// Abs returns the absolute value.
func (amount Amount) Abs() Amount {
	if amount < 0 {
		return -amount
	}
	return amount
}

// NewPositiveAmount validates an amount and ensures it is strictly positive.
func NewPositiveAmount(raw int64) (Amount, error) {
	if raw <= 0 {
		return 0, ErrInvalidAmount
	}
	return Amount(raw), nil
}

// TenantID identifies a facility operator.
type TenantID struct {
	value string
}

// StudentID identifies a student.
type StudentID struct {
	value string
}

// ProfessorID identifies a professor offering schedules.
type ProfessorID struct {
	value string
}

// CourtID identifies a court.
type CourtID struct {
	value string
}

// ScheduleID identifies a professor schedule slot.
type ScheduleID struct {
	value string
}

// BookingID identifies a booking.
type BookingID struct {
	value string
}

// PaymentID identifies a payment.
type PaymentID struct {
	value string
}

func normalizeIdentifier(raw string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty value", sentinel)
	}
	return trimmed, nil
}

// NewTenantID validates and normalizes a tenant id.
func NewTenantID(raw string) (TenantID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidTenantID)
	if err != nil {
		return TenantID{}, err
	}
	return TenantID{value: value}, nil
}

// String returns the normalized identifier.
func (id TenantID) String() string {
	return id.value
}

// NewStudentID validates and normalizes a student id.
func NewStudentID(raw string) (StudentID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidStudentID)
	if err != nil {
		return StudentID{}, err
	}
	return StudentID{value: value}, nil
}

// String returns the normalized identifier.
func (id StudentID) String() string {
	return id.value
}

// NewProfessorID validates and normalizes a professor id.
func NewProfessorID(raw string) (ProfessorID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidProfessorID)
	if err != nil {
		return ProfessorID{}, err
	}
	return ProfessorID{value: value}, nil
}

// String returns the normalized identifier.
func (id ProfessorID) String() string {
	return id.value
}

// NewCourtID validates and normalizes a court id.
func NewCourtID(raw string) (CourtID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidCourtID)
	if err != nil {
		return CourtID{}, err
	}
	return CourtID{value: value}, nil
}

// String returns the normalized identifier.
func (id CourtID) String() string {
	return id.value
}

// NewScheduleID validates and normalizes a schedule id.
func NewScheduleID(raw string) (ScheduleID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidScheduleID)
	if err != nil {
		return ScheduleID{}, err
	}
	return ScheduleID{value: value}, nil
}

// String returns the normalized identifier.
func (id ScheduleID) String() string {
	return id.value
}

// NewBookingID validates and normalizes a booking id.
func NewBookingID(raw string) (BookingID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidBookingID)
	if err != nil {
		return BookingID{}, err
	}
	return BookingID{value: value}, nil
}

// String returns the normalized identifier.
func (id BookingID) String() string {
	return id.value
}

// NewPaymentID validates and normalizes a payment id.
func NewPaymentID(raw string) (PaymentID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidPaymentID)
	if err != nil {
		return PaymentID{}, err
	}
	return PaymentID{value: value}, nil
}

// String returns the normalized identifier.
func (id PaymentID) String() string {
	return id.value
}

// ServiceKind distinguishes lesson bookings from court rentals.
type ServiceKind string

const (
	ServiceIndividualLesson ServiceKind = "individual_lesson"
	ServiceGroupLesson      ServiceKind = "group_lesson"
	ServiceCourtRental      ServiceKind = "court_rental"
)

// ParseServiceKind validates a raw service kind.
func ParseServiceKind(raw string) (ServiceKind, error) {
	kind := ServiceKind(strings.TrimSpace(raw))
	switch kind {
	case ServiceIndividualLesson, ServiceGroupLesson, ServiceCourtRental:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidServiceKind, raw)
	}
}

// IsLesson reports whether the kind books a professor schedule.
func (kind ServiceKind) IsLesson() bool {
	return kind == ServiceIndividualLesson || kind == ServiceGroupLesson
}

// String returns the raw kind.
func (kind ServiceKind) String() string {
	return string(kind)
}

// BookingStatus defines the booking lifecycle.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ParseBookingStatus validates a raw booking status.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(strings.TrimSpace(raw))
	switch status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBookingStatus, raw)
	}
}

// IsActive reports whether the booking still occupies its slot.
func (status BookingStatus) IsActive() bool {
	return status == BookingStatusPending || status == BookingStatusConfirmed
}

// String returns the raw status.
func (status BookingStatus) String() string {
	return string(status)
}

// PaymentStatus defines the payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// ParsePaymentStatus validates a raw payment status.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.TrimSpace(raw))
	switch status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, raw)
	}
}

// String returns the raw status.
func (status PaymentStatus) String() string {
	return string(status)
}

// Student is the booking party.
type Student struct {
	ID   StudentID
	Name string
}

// Membership links a student to a tenant and carries the cached balance.
type Membership struct {
	TenantID      TenantID
	StudentID     StudentID
	Active        bool
	CachedBalance Amount
}

// Court is a bookable physical resource.
type Court struct {
	ID          CourtID
	TenantID    TenantID
	Name        string
	Active      bool
	HourlyPrice Amount
}

// Schedule is a professor-offered time slot, optionally tied to a court.
type Schedule struct {
	ID          ScheduleID
	TenantID    TenantID
	ProfessorID ProfessorID
	CourtID     *CourtID
	StartTime   time.Time
	EndTime     time.Time
	Available   bool
	Blocked     bool
	BlockReason string
	StudentID   *StudentID
}

// Interval returns the schedule window.
func (schedule Schedule) Interval() Interval {
	return Interval{Start: schedule.StartTime, End: schedule.EndTime}
}

// Booking is one reservation of a lesson slot or a court time range.
type Booking struct {
	ID          BookingID
	TenantID    TenantID
	StudentID   StudentID
	ProfessorID *ProfessorID
	ScheduleID  *ScheduleID
	CourtID     *CourtID
	ServiceKind ServiceKind
	Price       Amount
	Status      BookingStatus
	StartTime   time.Time
	EndTime     *time.Time
	CreatedAt   time.Time
}

// Payment is an immutable monetary event.
type Payment struct {
	ID        PaymentID
	TenantID  TenantID
	StudentID StudentID
	BookingID *BookingID
	Amount    Amount
	Status    PaymentStatus
	Method    string
	Date      time.Time
}

// IsTopUp reports whether the payment adds credit rather than settling a booking.
func (payment Payment) IsTopUp() bool {
	return payment.BookingID == nil
}

// TenantSettings carries raw per-tenant calendar configuration.
type TenantSettings struct {
	TenantID       TenantID
	Timezone       string
	OperatingHours []byte
}

// BookingRequest describes a booking to create.
type BookingRequest struct {
	TenantID    TenantID
	StudentID   StudentID
	ServiceKind ServiceKind
	Price       Amount
	ProfessorID *ProfessorID
	ScheduleID  *ScheduleID
	CourtID     *CourtID
	StartTime   *time.Time
	EndTime     *time.Time
}

// Validate checks the request shape for its service kind.
func (request BookingRequest) Validate() error {
	if request.TenantID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidTenantID)
	}
	if request.StudentID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidStudentID)
	}
	if _, err := ParseServiceKind(request.ServiceKind.String()); err != nil {
		return err
	}
	if request.Price <= 0 {
		return ErrInvalidAmount
	}
	if request.ServiceKind.IsLesson() {
		if request.ScheduleID == nil {
			return fmt.Errorf("%w: schedule id", ErrMissingField)
		}
		return nil
	}
	if request.CourtID == nil {
		return fmt.Errorf("%w: court id", ErrMissingField)
	}
	if request.StartTime == nil || request.EndTime == nil {
		return fmt.Errorf("%w: start and end time", ErrMissingField)
	}
	if !request.StartTime.Before(*request.EndTime) {
		return ErrInvalidTimeRange
	}
	return nil
}

// PaymentRequest describes a payment to record.
type PaymentRequest struct {
	TenantID  TenantID
	StudentID StudentID
	BookingID *BookingID
	Amount    Amount
	Status    PaymentStatus
	Method    string
	Date      time.Time
}

// Validate checks the request fields.
func (request PaymentRequest) Validate() error {
	if request.TenantID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidTenantID)
	}
	if request.StudentID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidStudentID)
	}
	if request.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := ParsePaymentStatus(request.Status.String()); err != nil {
		return err
	}
	return nil
}
