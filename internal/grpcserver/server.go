package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	errorInsufficientFunds   = "insufficient_funds"
	errorSlotConflict        = "slot_conflict"
	errorScheduleUnavailable = "schedule_unavailable"
	errorInvalidTransition   = "invalid_transition"
	errorStudentNotFound     = "student_not_found"
	errorCourtNotFound       = "court_not_found"
	errorScheduleNotFound    = "schedule_not_found"
	errorBookingNotFound     = "booking_not_found"
	errorNoCourtAvailable    = "no_court_available"
	errorNotFound            = "not_found"
	errorDuplicateID         = "duplicate_id"
	errorInvalidRequest      = "invalid_request"
	errorConfiguration       = "configuration_error"

	dateLayout = "2006-01-02"
)

// BookingServer exposes the booking engine over gRPC.
type BookingServer struct {
	bookingService *booking.Service
}

// NewBookingServer constructs a gRPC server for the booking service.
func NewBookingServer(bookingService *booking.Service) *BookingServer {
	return &BookingServer{bookingService: bookingService}
}

func (server *BookingServer) CreateBooking(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	fields := requestFields(request)
	bookingRequest, err := fields.bookingRequest()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	created, operationError := server.bookingService.CreateBooking(ctx, bookingRequest)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return newResponse(bookingFields(created))
}

func (server *BookingServer) CancelBooking(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	tenantID, bookingID, err := requestFields(request).bookingKey()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	cancelled, operationError := server.bookingService.CancelBooking(ctx, tenantID, bookingID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return newResponse(bookingFields(cancelled))
}

func (server *BookingServer) CompleteBooking(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	tenantID, bookingID, err := requestFields(request).bookingKey()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	completed, operationError := server.bookingService.CompleteBooking(ctx, tenantID, bookingID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return newResponse(bookingFields(completed))
}

func (server *BookingServer) FindAvailableCourt(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	fields := requestFields(request)
	tenantID, err := booking.NewTenantID(fields.text("tenant_id"))
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	start, err := fields.requiredTime("start_time")
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	end, err := fields.requiredTime("end_time")
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	court, operationError := server.bookingService.FindAvailableCourt(ctx, tenantID, start, end)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return newResponse(map[string]interface{}{
		"court_id":     court.ID.String(),
		"name":         court.Name,
		"hourly_price": court.HourlyPrice.Int64(),
	})
}

func (server *BookingServer) GetAvailableSlots(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	fields := requestFields(request)
	tenantID, err := booking.NewTenantID(fields.text("tenant_id"))
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	courtID, err := booking.NewCourtID(fields.text("court_id"))
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	date, err := time.Parse(dateLayout, fields.text("date"))
	if err != nil {
		return nil, mapToGRPCError(fmt.Errorf("%w: date must be YYYY-MM-DD", booking.ErrInvalidRequest))
	}
	slots, operationError := server.bookingService.AvailableSlots(ctx, tenantID, courtID, date)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return newResponse(map[string]interface{}{
		"available": stringList(slots.Available),
		"booked":    stringList(slots.Booked),
	})
}

func (server *BookingServer) GetBalance(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	fields := requestFields(request)
	tenantID, studentID, err := fields.studentKey()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	balance, operationError := server.bookingService.GetBalance(ctx, tenantID, studentID, fields.flag("sync"))
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return newResponse(map[string]interface{}{"balance": balance.Int64()})
}

func (server *BookingServer) ValidateBalance(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	fields := requestFields(request)
	tenantID, studentID, err := fields.studentKey()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	validation, operationError := server.bookingService.ValidateBalance(ctx, tenantID, studentID, fields.flag("auto_sync"))
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return newResponse(map[string]interface{}{
		"is_valid":   validation.IsValid,
		"cached":     validation.Cached.Int64(),
		"computed":   validation.Computed.Int64(),
		"difference": validation.Difference.Int64(),
		"synced":     validation.Synced,
	})
}

func (server *BookingServer) RecordPayment(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	fields := requestFields(request)
	paymentRequest, err := fields.paymentRequest()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	payment, operationError := server.bookingService.RecordPayment(ctx, paymentRequest)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	response := map[string]interface{}{
		"payment_id": payment.ID.String(),
		"tenant_id":  payment.TenantID.String(),
		"student_id": payment.StudentID.String(),
		"amount":     payment.Amount.Int64(),
		"status":     payment.Status.String(),
		"method":     payment.Method,
		"date":       payment.Date.UTC().Format(time.RFC3339),
	}
	if payment.BookingID != nil {
		response["booking_id"] = payment.BookingID.String()
	}
	return newResponse(response)
}

type structFields map[string]*structpb.Value

func requestFields(request *structpb.Struct) structFields {
	return structFields(request.GetFields())
}

func (fields structFields) text(key string) string {
	return strings.TrimSpace(fields[key].GetStringValue())
}

func (fields structFields) flag(key string) bool {
	return fields[key].GetBoolValue()
}

func (fields structFields) amount(key string) (booking.Amount, error) {
	value, present := fields[key]
	if !present {
		return 0, fmt.Errorf("%w: %s", booking.ErrMissingField, key)
	}
	number, isNumber := value.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || number.NumberValue != math.Trunc(number.NumberValue) {
		return 0, fmt.Errorf("%w: %s must be an integer", booking.ErrInvalidRequest, key)
	}
	return booking.NewPositiveAmount(int64(number.NumberValue))
}

func (fields structFields) optionalTime(key string) (*time.Time, error) {
	raw := fields.text(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", booking.ErrInvalidRequest, key)
	}
	return &parsed, nil
}

func (fields structFields) requiredTime(key string) (time.Time, error) {
	parsed, err := fields.optionalTime(key)
	if err != nil {
		return time.Time{}, err
	}
	if parsed == nil {
		return time.Time{}, fmt.Errorf("%w: %s", booking.ErrMissingField, key)
	}
	return *parsed, nil
}

func (fields structFields) studentKey() (booking.TenantID, booking.StudentID, error) {
	tenantID, err := booking.NewTenantID(fields.text("tenant_id"))
	if err != nil {
		return booking.TenantID{}, booking.StudentID{}, err
	}
	studentID, err := booking.NewStudentID(fields.text("student_id"))
	if err != nil {
		return booking.TenantID{}, booking.StudentID{}, err
	}
	return tenantID, studentID, nil
}

func (fields structFields) bookingKey() (booking.TenantID, booking.BookingID, error) {
	tenantID, err := booking.NewTenantID(fields.text("tenant_id"))
	if err != nil {
		return booking.TenantID{}, booking.BookingID{}, err
	}
	bookingID, err := booking.NewBookingID(fields.text("booking_id"))
	if err != nil {
		return booking.TenantID{}, booking.BookingID{}, err
	}
	return tenantID, bookingID, nil
}

func (fields structFields) bookingRequest() (booking.BookingRequest, error) {
	tenantID, studentID, err := fields.studentKey()
	if err != nil {
		return booking.BookingRequest{}, err
	}
	kind, err := booking.ParseServiceKind(fields.text("service_kind"))
	if err != nil {
		return booking.BookingRequest{}, err
	}
	price, err := fields.amount("price")
	if err != nil {
		return booking.BookingRequest{}, err
	}
	request := booking.BookingRequest{TenantID: tenantID, StudentID: studentID, ServiceKind: kind, Price: price}
	if request.ProfessorID, err = optionalID(fields.text("professor_id"), booking.NewProfessorID); err != nil {
		return booking.BookingRequest{}, err
	}
	if request.ScheduleID, err = optionalID(fields.text("schedule_id"), booking.NewScheduleID); err != nil {
		return booking.BookingRequest{}, err
	}
	if request.CourtID, err = optionalID(fields.text("court_id"), booking.NewCourtID); err != nil {
		return booking.BookingRequest{}, err
	}
	if request.StartTime, err = fields.optionalTime("start_time"); err != nil {
		return booking.BookingRequest{}, err
	}
	if request.EndTime, err = fields.optionalTime("end_time"); err != nil {
		return booking.BookingRequest{}, err
	}
	return request, nil
}

func (fields structFields) paymentRequest() (booking.PaymentRequest, error) {
	tenantID, studentID, err := fields.studentKey()
	if err != nil {
		return booking.PaymentRequest{}, err
	}
	amount, err := fields.amount("amount")
	if err != nil {
		return booking.PaymentRequest{}, err
	}
	rawStatus := fields.text("status")
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
		Method:    fields.text("method"),
	}
	if request.BookingID, err = optionalID(fields.text("booking_id"), booking.NewBookingID); err != nil {
		return booking.PaymentRequest{}, err
	}
	date, err := fields.optionalTime("date")
	if err != nil {
		return booking.PaymentRequest{}, err
	}
	if date != nil {
		request.Date = *date
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

func bookingFields(record booking.Booking) map[string]interface{} {
	fields := map[string]interface{}{
		"booking_id":       record.ID.String(),
		"tenant_id":        record.TenantID.String(),
		"student_id":       record.StudentID.String(),
		"service_kind":     record.ServiceKind.String(),
		"price":            record.Price.Int64(),
		"status":           record.Status.String(),
		"start_time":       record.StartTime.UTC().Format(time.RFC3339),
		"duration_minutes": int64(booking.RentalInterval(record.StartTime, record.EndTime).Duration() / time.Minute),
	}
	if record.EndTime != nil {
		fields["end_time"] = record.EndTime.UTC().Format(time.RFC3339)
	}
	if record.CourtID != nil {
		fields["court_id"] = record.CourtID.String()
	}
	if record.ScheduleID != nil {
		fields["schedule_id"] = record.ScheduleID.String()
	}
	if record.ProfessorID != nil {
		fields["professor_id"] = record.ProfessorID.String()
	}
	return fields
}

func stringList(values []string) []interface{} {
	list := make([]interface{}, 0, len(values))
	for _, value := range values {
		list = append(list, value)
	}
	return list
}

func newResponse(fields map[string]interface{}) (*structpb.Struct, error) {
	response, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return response, nil
}

func mapToGRPCError(source error) error {
	var conflictError *booking.ConflictError
	if errors.As(source, &conflictError) {
		return status.Errorf(codes.AlreadyExists, "%s: %s", errorSlotConflict, conflictError.Error())
	}
	if errors.Is(source, booking.ErrSlotConflict) {
		return status.Error(codes.AlreadyExists, errorSlotConflict)
	}
	if errors.Is(source, booking.ErrInsufficientFunds) {
		return status.Error(codes.FailedPrecondition, errorInsufficientFunds)
	}
	if errors.Is(source, booking.ErrScheduleUnavailable) {
		return status.Error(codes.FailedPrecondition, errorScheduleUnavailable)
	}
	if errors.Is(source, booking.ErrInvalidTransition) {
		return status.Error(codes.FailedPrecondition, errorInvalidTransition)
	}
	if errors.Is(source, booking.ErrStudentNotFound) {
		return status.Error(codes.NotFound, errorStudentNotFound)
	}
	if errors.Is(source, booking.ErrCourtNotFound) {
		return status.Error(codes.NotFound, errorCourtNotFound)
	}
	if errors.Is(source, booking.ErrScheduleNotFound) {
		return status.Error(codes.NotFound, errorScheduleNotFound)
	}
	if errors.Is(source, booking.ErrBookingNotFound) {
		return status.Error(codes.NotFound, errorBookingNotFound)
	}
	if errors.Is(source, booking.ErrNoCourtAvailable) {
		return status.Error(codes.NotFound, errorNoCourtAvailable)
	}
	if errors.Is(source, booking.ErrNotFound) {
		return status.Error(codes.NotFound, errorNotFound)
	}
	if errors.Is(source, booking.ErrDuplicateID) {
		return status.Error(codes.AlreadyExists, errorDuplicateID)
	}
	if errors.Is(source, booking.ErrInvalidRequest) {
		return status.Errorf(codes.InvalidArgument, "%s: %s", errorInvalidRequest, source.Error())
	}
	if errors.Is(source, booking.ErrConfiguration) {
		return status.Error(codes.Internal, errorConfiguration)
	}
	return status.Error(codes.Internal, source.Error())
}
