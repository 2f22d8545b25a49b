package httpapi

import (
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
)

type createBookingRequest struct {
	StudentID   string     `json:"student_id"`
	ServiceKind string     `json:"service_kind"`
	Price       int64      `json:"price"`
	ProfessorID string     `json:"professor_id"`
	ScheduleID  string     `json:"schedule_id"`
	CourtID     string     `json:"court_id"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

func (payload createBookingRequest) toDomain(tenantID booking.TenantID) (booking.BookingRequest, error) {
	studentID, err := booking.NewStudentID(payload.StudentID)
	if err != nil {
		return booking.BookingRequest{}, err
	}
	kind, err := booking.ParseServiceKind(payload.ServiceKind)
	if err != nil {
		return booking.BookingRequest{}, err
	}
	price, err := booking.NewPositiveAmount(payload.Price)
	if err != nil {
		return booking.BookingRequest{}, err
	}
	request := booking.BookingRequest{
		TenantID:    tenantID,
		StudentID:   studentID,
		ServiceKind: kind,
		Price:       price,
		StartTime:   payload.StartTime,
		EndTime:     payload.EndTime,
	}
	if request.ProfessorID, err = optionalID(payload.ProfessorID, booking.NewProfessorID); err != nil {
		return booking.BookingRequest{}, err
	}
	if request.ScheduleID, err = optionalID(payload.ScheduleID, booking.NewScheduleID); err != nil {
		return booking.BookingRequest{}, err
	}
	if request.CourtID, err = optionalID(payload.CourtID, booking.NewCourtID); err != nil {
		return booking.BookingRequest{}, err
	}
	return request, nil
}

type recordPaymentRequest struct {
	StudentID string     `json:"student_id"`
	BookingID string     `json:"booking_id"`
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	Method    string     `json:"method"`
	Date      *time.Time `json:"date"`
}

func (payload recordPaymentRequest) toDomain(tenantID booking.TenantID) (booking.PaymentRequest, error) {
	studentID, err := booking.NewStudentID(payload.StudentID)
	if err != nil {
		return booking.PaymentRequest{}, err
	}
	amount, err := booking.NewPositiveAmount(payload.Amount)
	if err != nil {
		return booking.PaymentRequest{}, err
	}
	rawStatus := payload.Status
	if rawStatus == "" {
		rawStatus = booking.PaymentStatusPaid.String()
	}
	paymentStatus, err := booking.ParsePaymentStatus(rawStatus)
	if err != nil {
		return booking.PaymentRequest{}, err
	}
	request := booking.PaymentRequest{
		TenantID:  tenantID,
		StudentID: studentID,
		Amount:    amount,
		Status:    paymentStatus,
		Method:    payload.Method,
	}
	if payload.Date != nil {
		request.Date = *payload.Date
	}
	if request.BookingID, err = optionalID(payload.BookingID, booking.NewBookingID); err != nil {
		return booking.PaymentRequest{}, err
	}
	return request, nil
}

func optionalID[T any](raw string, parse func(string) (T, error)) (*T, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

type bookingPayload struct {
	BookingID       string     `json:"booking_id"`
	TenantID        string     `json:"tenant_id"`
	StudentID       string     `json:"student_id"`
	ServiceKind     string     `json:"service_kind"`
	Price           int64      `json:"price"`
	Status          string     `json:"status"`
	CourtID         string     `json:"court_id,omitempty"`
	ScheduleID      string     `json:"schedule_id,omitempty"`
	ProfessorID     string     `json:"professor_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes int64      `json:"duration_minutes"`
}

func newBookingPayload(record booking.Booking) bookingPayload {
	payload := bookingPayload{
		BookingID:       record.ID.String(),
		TenantID:        record.TenantID.String(),
		StudentID:       record.StudentID.String(),
		ServiceKind:     record.ServiceKind.String(),
		Price:           record.Price.Int64(),
		Status:          record.Status.String(),
		StartTime:       record.StartTime.UTC(),
		DurationMinutes: int64(booking.RentalInterval(record.StartTime, record.EndTime).Duration() / time.Minute),
	}
	if record.EndTime != nil {
		end := record.EndTime.UTC()
		payload.EndTime = &end
	}
	if record.CourtID != nil {
		payload.CourtID = record.CourtID.String()
	}
	if record.ScheduleID != nil {
		payload.ScheduleID = record.ScheduleID.String()
	}
	if record.ProfessorID != nil {
		payload.ProfessorID = record.ProfessorID.String()
	}
	return payload
}

type paymentPayload struct {
	PaymentID string    `json:"payment_id"`
	StudentID string    `json:"student_id"`
	BookingID string    `json:"booking_id,omitempty"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Method    string    `json:"method"`
	Date      time.Time `json:"date"`
}

func newPaymentPayload(payment booking.Payment) paymentPayload {
	payload := paymentPayload{
		PaymentID: payment.ID.String(),
		StudentID: payment.StudentID.String(),
		Amount:    payment.Amount.Int64(),
		Status:    payment.Status.String(),
		Method:    payment.Method,
		Date:      payment.Date.UTC(),
	}
	if payment.BookingID != nil {
		payload.BookingID = payment.BookingID.String()
	}
	return payload
}

type courtPayload struct {
	CourtID     string `json:"court_id"`
	Name        string `json:"name"`
	HourlyPrice int64  `json:"hourly_price"`
}

type slotsPayload struct {
	Date      string   `json:"date"`
	Available []string `json:"available"`
	Booked    []string `json:"booked"`
}

type schedulePayload struct {
	ScheduleID  string    `json:"schedule_id"`
	ProfessorID string    `json:"professor_id"`
	CourtID     string    `json:"court_id,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

func newSchedulePayload(schedule booking.Schedule) schedulePayload {
	payload := schedulePayload{
		ScheduleID:  schedule.ID.String(),
		ProfessorID: schedule.ProfessorID.String(),
		StartTime:   schedule.StartTime.UTC(),
		EndTime:     schedule.EndTime.UTC(),
	}
	if schedule.CourtID != nil {
		payload.CourtID = schedule.CourtID.String()
	}
	return payload
}

type validationPayload struct {
	IsValid    bool  `json:"is_valid"`
	Cached     int64 `json:"cached"`
	Computed   int64 `json:"computed"`
	Difference int64 `json:"difference"`
	Synced     bool  `json:"synced"`
}
