package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	errorOperationStore   = "store"
	errorSubjectBalance   = "balance"
	errorSubjectBooking   = "booking"
	errorSubjectCourt     = "court"
	errorSubjectMember    = "membership"
	errorSubjectPayment   = "payment"
	errorSubjectSchedule  = "schedule"
	errorSubjectStudent   = "student"
	errorSubjectTenant    = "tenant"
	errorCodeClaim        = "claim"
	errorCodeCreate       = "create"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeIncrement    = "increment"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeLock         = "lock"
	errorCodeOverwrite    = "overwrite"
	errorCodeRelease      = "release"
	errorCodeUpdateStatus = "update_status"
	errorCodeUpsert       = "upsert"
)

var activeBookingStatuses = []string{booking.BookingStatusPending.String(), booking.BookingStatusConfirmed.String()}

// Store implements booking.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table used by the store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore booking.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetStudent(ctx context.Context, studentID booking.StudentID) (booking.Student, error) {
	var model Student
	err := store.db.WithContext(ctx).Where("student_id = ?", studentID.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Student{}, wrapStoreError(errorSubjectStudent, errorCodeGet, booking.ErrStudentNotFound)
		}
		return booking.Student{}, wrapStoreError(errorSubjectStudent, errorCodeGet, err)
	}
	parsedID, err := booking.NewStudentID(model.StudentID)
	if err != nil {
		return booking.Student{}, wrapStoreError(errorSubjectStudent, errorCodeInvalid, err)
	}
	return booking.Student{ID: parsedID, Name: model.Name}, nil
}

func (store *Store) EnsureMembership(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID) (booking.Membership, error) {
	model := Membership{TenantID: tenantID.String(), StudentID: studentID.String(), Active: true}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "student_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"active": true}),
		}).
		Create(&model).Error
	if err != nil {
		return booking.Membership{}, wrapStoreError(errorSubjectMember, errorCodeUpsert, err)
	}
	var stored Membership
	err = store.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ?", tenantID.String(), studentID.String()).
		Take(&stored).Error
	if err != nil {
		return booking.Membership{}, wrapStoreError(errorSubjectMember, errorCodeGet, err)
	}
	return mapMembership(stored)
}

func (store *Store) ListMemberships(ctx context.Context) ([]booking.Membership, error) {
	var rows []Membership
	err := store.db.WithContext(ctx).
		Where("active = ?", true).
		Order("tenant_id ASC, student_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectMember, errorCodeList, err)
	}
	memberships := make([]booking.Membership, 0, len(rows))
	for _, row := range rows {
		membership, err := mapMembership(row)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, membership)
	}
	return memberships, nil
}

func (store *Store) CachedBalance(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID) (booking.Amount, error) {
	var model Membership
	err := store.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ?", tenantID.String(), studentID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, wrapStoreError(errorSubjectBalance, errorCodeGet, err)
	}
	return booking.Amount(model.CachedBalance), nil
}

func (store *Store) IncrementBalance(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID, delta booking.Amount) error {
	if _, err := store.EnsureMembership(ctx, tenantID, studentID); err != nil {
		return err
	}
	err := store.db.WithContext(ctx).
		Model(&Membership{}).
		Where("tenant_id = ? AND student_id = ?", tenantID.String(), studentID.String()).
		Updates(map[string]interface{}{
			"cached_balance": gorm.Expr("cached_balance + ?", delta.Int64()),
			"updated_at":     time.Now().UTC(),
		}).Error
	if err != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeIncrement, err)
	}
	return nil
}

func (store *Store) OverwriteBalance(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID, value booking.Amount) (booking.Amount, error) {
	if _, err := store.EnsureMembership(ctx, tenantID, studentID); err != nil {
		return 0, err
	}
	var model Membership
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND student_id = ?", tenantID.String(), studentID.String()).
		Take(&model).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBalance, errorCodeOverwrite, err)
	}
	err = store.db.WithContext(ctx).
		Model(&Membership{}).
		Where("tenant_id = ? AND student_id = ?", tenantID.String(), studentID.String()).
		Updates(map[string]interface{}{
			"cached_balance": value.Int64(),
			"updated_at":     time.Now().UTC(),
		}).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBalance, errorCodeOverwrite, err)
	}
	return booking.Amount(model.CachedBalance), nil
}

func (store *Store) GetTenantSettings(ctx context.Context, tenantID booking.TenantID) (booking.TenantSettings, error) {
	var model Tenant
	err := store.db.WithContext(ctx).Where("tenant_id = ?", tenantID.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.TenantSettings{TenantID: tenantID}, nil
		}
		return booking.TenantSettings{}, wrapStoreError(errorSubjectTenant, errorCodeGet, err)
	}
	return booking.TenantSettings{
		TenantID:       tenantID,
		Timezone:       model.Timezone,
		OperatingHours: []byte(model.OperatingHours),
	}, nil
}

func (store *Store) GetCourt(ctx context.Context, tenantID booking.TenantID, courtID booking.CourtID) (booking.Court, error) {
	var model Court
	err := store.db.WithContext(ctx).
		Where("tenant_id = ? AND court_id = ?", tenantID.String(), courtID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Court{}, wrapStoreError(errorSubjectCourt, errorCodeGet, booking.ErrCourtNotFound)
		}
		return booking.Court{}, wrapStoreError(errorSubjectCourt, errorCodeGet, err)
	}
	return mapCourt(model)
}

func (store *Store) ListActiveCourts(ctx context.Context, tenantID booking.TenantID) ([]booking.Court, error) {
	var rows []Court
	err := store.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID.String(), true).
		Order("position ASC, created_at ASC, court_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectCourt, errorCodeList, err)
	}
	courts := make([]booking.Court, 0, len(rows))
	for _, row := range rows {
		court, err := mapCourt(row)
		if err != nil {
			return nil, err
		}
		courts = append(courts, court)
	}
	return courts, nil
}

// LockCourt takes a row lock on the court for the rest of the transaction.
// SQLite ignores the locking clause and serializes writers itself.
func (store *Store) LockCourt(ctx context.Context, tenantID booking.TenantID, courtID booking.CourtID) error {
	var model Court
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND court_id = ?", tenantID.String(), courtID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return wrapStoreError(errorSubjectCourt, errorCodeLock, booking.ErrCourtNotFound)
		}
		return wrapStoreError(errorSubjectCourt, errorCodeLock, err)
	}
	return nil
}

func (store *Store) GetSchedule(ctx context.Context, tenantID booking.TenantID, scheduleID booking.ScheduleID) (booking.Schedule, error) {
	var model Schedule
	err := store.db.WithContext(ctx).
		Where("tenant_id = ? AND schedule_id = ?", tenantID.String(), scheduleID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Schedule{}, wrapStoreError(errorSubjectSchedule, errorCodeGet, booking.ErrScheduleNotFound)
		}
		return booking.Schedule{}, wrapStoreError(errorSubjectSchedule, errorCodeGet, err)
	}
	return mapSchedule(model)
}

func (store *Store) ListSchedulesByID(ctx context.Context, tenantID booking.TenantID, scheduleIDs []booking.ScheduleID) ([]booking.Schedule, error) {
	if len(scheduleIDs) == 0 {
		return []booking.Schedule{}, nil
	}
	rawIDs := make([]string, 0, len(scheduleIDs))
	for _, scheduleID := range scheduleIDs {
		rawIDs = append(rawIDs, scheduleID.String())
	}
	return store.findSchedules(store.db.WithContext(ctx).
		Where("tenant_id = ? AND schedule_id IN ?", tenantID.String(), rawIDs))
}

func (store *Store) ListBlockedSchedules(ctx context.Context, tenantID booking.TenantID, courtID booking.CourtID) ([]booking.Schedule, error) {
	return store.findSchedules(store.db.WithContext(ctx).
		Where("tenant_id = ? AND court_id = ? AND blocked = ?", tenantID.String(), courtID.String(), true).
		Order("start_time ASC"))
}

func (store *Store) ListAvailableSchedules(ctx context.Context, tenantID booking.TenantID, from time.Time, to time.Time) ([]booking.Schedule, error) {
	return store.findSchedules(store.db.WithContext(ctx).
		Where("tenant_id = ? AND available = ? AND blocked = ?", tenantID.String(), true, false).
		Where("start_time >= ? AND start_time < ?", from.UTC(), to.UTC()).
		Order("start_time ASC, schedule_id ASC"))
}

// ClaimSchedule flips an available schedule to taken. A lost race affects zero rows.
func (store *Store) ClaimSchedule(ctx context.Context, tenantID booking.TenantID, scheduleID booking.ScheduleID, studentID booking.StudentID) error {
	result := store.db.WithContext(ctx).
		Model(&Schedule{}).
		Where("tenant_id = ? AND schedule_id = ? AND available = ?", tenantID.String(), scheduleID.String(), true).
		Updates(map[string]interface{}{
			"available":  false,
			"student_id": studentID.String(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectSchedule, errorCodeClaim, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectSchedule, errorCodeClaim, booking.ErrScheduleUnavailable)
	}
	return nil
}

func (store *Store) ReleaseSchedule(ctx context.Context, tenantID booking.TenantID, scheduleID booking.ScheduleID) error {
	result := store.db.WithContext(ctx).
		Model(&Schedule{}).
		Where("tenant_id = ? AND schedule_id = ?", tenantID.String(), scheduleID.String()).
		Updates(map[string]interface{}{
			"available":  true,
			"student_id": nil,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectSchedule, errorCodeRelease, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectSchedule, errorCodeRelease, booking.ErrScheduleNotFound)
	}
	return nil
}

func (store *Store) CreateBooking(ctx context.Context, record booking.Booking) error {
	model := Booking{
		BookingID:   record.ID.String(),
		TenantID:    record.TenantID.String(),
		StudentID:   record.StudentID.String(),
		ProfessorID: optionalString(record.ProfessorID),
		ScheduleID:  optionalString(record.ScheduleID),
		CourtID:     optionalString(record.CourtID),
		ServiceKind: record.ServiceKind.String(),
		Price:       record.Price.Int64(),
		Status:      record.Status.String(),
		StartTime:   record.StartTime.UTC(),
		EndTime:     optionalTime(record.EndTime),
		CreatedAt:   record.CreatedAt.UTC(),
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectBooking, errorCodeDuplicate, booking.ErrDuplicateID)
	}
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetBooking(ctx context.Context, tenantID booking.TenantID, bookingID booking.BookingID) (booking.Booking, error) {
	var model Booking
	err := store.db.WithContext(ctx).
		Where("tenant_id = ? AND booking_id = ?", tenantID.String(), bookingID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, booking.ErrBookingNotFound)
		}
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	return mapBooking(model)
}

func (store *Store) UpdateBookingStatus(ctx context.Context, tenantID booking.TenantID, bookingID booking.BookingID, from booking.BookingStatus, to booking.BookingStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("tenant_id = ? AND booking_id = ? AND status = ?", tenantID.String(), bookingID.String(), from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, booking.ErrInvalidTransition)
	}
	return nil
}

func (store *Store) ListActiveCourtBookings(ctx context.Context, tenantID booking.TenantID, courtID booking.CourtID) ([]booking.Booking, error) {
	return store.findBookings(store.db.WithContext(ctx).
		Where("tenant_id = ? AND court_id = ? AND status IN ?", tenantID.String(), courtID.String(), activeBookingStatuses).
		Order("start_time ASC, booking_id ASC"))
}

func (store *Store) ListStudentBookings(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID) ([]booking.Booking, error) {
	return store.findBookings(store.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ?", tenantID.String(), studentID.String()).
		Order("created_at ASC, booking_id ASC"))
}

func (store *Store) ListPayments(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID, status booking.PaymentStatus) ([]booking.Payment, error) {
	var rows []Payment
	err := store.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND status = ?", tenantID.String(), studentID.String(), status.String()).
		Order("paid_at ASC, payment_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	payments := make([]booking.Payment, 0, len(rows))
	for _, row := range rows {
		payment, err := mapPayment(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func (store *Store) CreatePayment(ctx context.Context, record booking.Payment) error {
	model := Payment{
		PaymentID: record.ID.String(),
		TenantID:  record.TenantID.String(),
		StudentID: record.StudentID.String(),
		BookingID: optionalString(record.BookingID),
		Amount:    record.Amount.Int64(),
		Status:    record.Status.String(),
		Method:    record.Method,
		PaidAt:    record.Date.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectPayment, errorCodeDuplicate, booking.ErrDuplicateID)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) findSchedules(query *gorm.DB) ([]booking.Schedule, error) {
	var rows []Schedule
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectSchedule, errorCodeList, err)
	}
	schedules := make([]booking.Schedule, 0, len(rows))
	for _, row := range rows {
		schedule, err := mapSchedule(row)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func (store *Store) findBookings(query *gorm.DB) ([]booking.Booking, error) {
	var rows []Booking
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	bookings := make([]booking.Booking, 0, len(rows))
	for _, row := range rows {
		record, err := mapBooking(row)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, record)
	}
	return bookings, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

func optionalString[T interface{ String() string }](value *T) *string {
	if value == nil {
		return nil
	}
	raw := (*value).String()
	return &raw
}

func optionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
