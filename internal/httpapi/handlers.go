package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type httpHandler struct {
	logger         *zap.Logger
	bookingService *booking.Service
	timeout        time.Duration
}

func (handler *httpHandler) requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), handler.timeout)
}

func (handler *httpHandler) handleCreateBooking(ctx *gin.Context) {
	tenantID, ok := handler.tenantID(ctx)
	if !ok {
		return
	}
	var payload createBookingRequest
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	request, err := payload.toDomain(tenantID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	created, err := handler.bookingService.CreateBooking(requestCtx, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newBookingPayload(created))
}

func (handler *httpHandler) handleCancelBooking(ctx *gin.Context) {
	handler.transition(ctx, handler.bookingService.CancelBooking)
}

func (handler *httpHandler) handleCompleteBooking(ctx *gin.Context) {
	handler.transition(ctx, handler.bookingService.CompleteBooking)
}

func (handler *httpHandler) transition(ctx *gin.Context, apply func(context.Context, booking.TenantID, booking.BookingID) (booking.Booking, error)) {
	tenantID, ok := handler.tenantID(ctx)
	if !ok {
		return
	}
	bookingID, err := booking.NewBookingID(ctx.Param("bookingId"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	updated, err := apply(requestCtx, tenantID, bookingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newBookingPayload(updated))
}

func (handler *httpHandler) handleAvailableCourt(ctx *gin.Context) {
	tenantID, ok := handler.tenantID(ctx)
	if !ok {
		return
	}
	start, err := parseQueryTime(ctx, "start")
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	end, err := parseQueryTime(ctx, "end")
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	court, err := handler.bookingService.FindAvailableCourt(requestCtx, tenantID, start, end)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, courtPayload{
		CourtID:     court.ID.String(),
		Name:        court.Name,
		HourlyPrice: court.HourlyPrice.Int64(),
	})
}

func (handler *httpHandler) handleAvailableSlots(ctx *gin.Context) {
	tenantID, ok := handler.tenantID(ctx)
	if !ok {
		return
	}
	courtID, err := booking.NewCourtID(ctx.Param("courtId"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	date, err := time.Parse(dateLayout, ctx.Query("date"))
	if err != nil {
		handler.respondError(ctx, fmt.Errorf("%w: date must be YYYY-MM-DD", booking.ErrInvalidRequest))
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	slots, err := handler.bookingService.AvailableSlots(requestCtx, tenantID, courtID, date)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, slotsPayload{Date: date.Format(dateLayout), Available: slots.Available, Booked: slots.Booked})
}

func (handler *httpHandler) handleAvailableSchedules(ctx *gin.Context) {
	tenantID, ok := handler.tenantID(ctx)
	if !ok {
		return
	}
	from, err := parseQueryTime(ctx, "from")
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	to, err := parseQueryTime(ctx, "to")
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	schedules, err := handler.bookingService.AvailableSchedules(requestCtx, tenantID, from, to)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]schedulePayload, 0, len(schedules))
	for _, schedule := range schedules {
		payload = append(payload, newSchedulePayload(schedule))
	}
	ctx.JSON(http.StatusOK, gin.H{"schedules": payload})
}

func (handler *httpHandler) handleBalance(ctx *gin.Context) {
	tenantID, studentID, ok := handler.studentKey(ctx)
	if !ok {
		return
	}
	syncCache, err := parseQueryFlag(ctx, "sync")
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	balance, err := handler.bookingService.GetBalance(requestCtx, tenantID, studentID, syncCache)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"balance": balance.Int64(), "synced": syncCache})
}

func (handler *httpHandler) handleValidateBalance(ctx *gin.Context) {
	tenantID, studentID, ok := handler.studentKey(ctx)
	if !ok {
		return
	}
	autoSync, err := parseQueryFlag(ctx, "autoSync")
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	validation, err := handler.bookingService.ValidateBalance(requestCtx, tenantID, studentID, autoSync)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, validationPayload{
		IsValid:    validation.IsValid,
		Cached:     validation.Cached.Int64(),
		Computed:   validation.Computed.Int64(),
		Difference: validation.Difference.Int64(),
		Synced:     validation.Synced,
	})
}

func (handler *httpHandler) handleRecordPayment(ctx *gin.Context) {
	tenantID, ok := handler.tenantID(ctx)
	if !ok {
		return
	}
	var payload recordPaymentRequest
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	request, err := payload.toDomain(tenantID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	payment, err := handler.bookingService.RecordPayment(requestCtx, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newPaymentPayload(payment))
}

func (handler *httpHandler) tenantID(ctx *gin.Context) (booking.TenantID, bool) {
	tenantID, err := booking.NewTenantID(ctx.Param("tenantId"))
	if err != nil {
		handler.respondError(ctx, err)
		return booking.TenantID{}, false
	}
	return tenantID, true
}

func (handler *httpHandler) studentKey(ctx *gin.Context) (booking.TenantID, booking.StudentID, bool) {
	tenantID, ok := handler.tenantID(ctx)
	if !ok {
		return booking.TenantID{}, booking.StudentID{}, false
	}
	studentID, err := booking.NewStudentID(ctx.Param("studentId"))
	if err != nil {
		handler.respondError(ctx, err)
		return booking.TenantID{}, booking.StudentID{}, false
	}
	return tenantID, studentID, true
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	statusCode, code := mapToHTTPError(err)
	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		fields := []zap.Field{zap.String("path", ctx.FullPath()), zap.Error(err)}
		var operationError booking.OperationError
		if errors.As(err, &operationError) {
			fields = append(fields,
				zap.String("operation", operationError.Operation()),
				zap.String("subject", operationError.Subject()),
				zap.String("error_code", operationError.Code()),
			)
		}
		handler.logger.Error("request failed", fields...)
		message = "internal error"
	}
	ctx.JSON(statusCode, errorResponse(code, message))
}

func mapToHTTPError(source error) (int, string) {
	switch {
	case errors.Is(source, booking.ErrSlotConflict):
		return http.StatusConflict, "slot_conflict"
	case errors.Is(source, booking.ErrScheduleUnavailable):
		return http.StatusConflict, "schedule_unavailable"
	case errors.Is(source, booking.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(source, booking.ErrDuplicateID):
		return http.StatusConflict, "duplicate_id"
	case errors.Is(source, booking.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(source, booking.ErrNoCourtAvailable):
		return http.StatusNotFound, "no_court_available"
	case errors.Is(source, booking.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(source, booking.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(source, booking.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func parseQueryTime(ctx *gin.Context, key string) (time.Time, error) {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s", booking.ErrMissingField, key)
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", booking.ErrInvalidRequest, key)
	}
	return parsed, nil
}

func parseQueryFlag(ctx *gin.Context, key string) (bool, error) {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", booking.ErrInvalidRequest, key)
	}
	return value, nil
}
