// Package oplog routes booking operation logs to zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	"go.uber.org/zap"
)

// ZapLogger implements booking.OperationLogger on top of a zap logger.
type ZapLogger struct {
	logger *zap.Logger
}

// New returns a ZapLogger. A nil logger falls back to zap.NewNop.
func New(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

// LogOperation writes one structured entry. Drift is a warning, failures are errors.
func (zapLogger *ZapLogger) LogOperation(ctx context.Context, entry booking.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("tenant_id", entry.TenantID.String()),
		zap.String("student_id", entry.StudentID.String()),
		zap.Int64("amount", entry.Amount.Int64()),
		zap.String("status", entry.Status),
	}
	if entry.BookingID != nil {
		fields = append(fields, zap.String("booking_id", entry.BookingID.String()))
	}
	if entry.PaymentID != nil {
		fields = append(fields, zap.String("payment_id", entry.PaymentID.String()))
	}
	if entry.Detail != "" {
		fields = append(fields, zap.String("detail", entry.Detail))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}

	switch entry.Status {
	case booking.OperationStatusDrift:
		zapLogger.logger.Warn("balance drift", fields...)
	case booking.OperationStatusError:
		zapLogger.logger.Error("operation failed", fields...)
	default:
		zapLogger.logger.Info("operation", fields...)
	}
}
