package booking

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"
)

const errorMismatchMessage = "expected %v, got %v"

type membershipKey struct {
	tenantID  TenantID
	studentID StudentID
}

type stubStore struct {
	students     map[StudentID]Student
	memberships  map[membershipKey]Membership
	settings     map[TenantID]TenantSettings
	courts       []Court
	schedules    []Schedule
	bookings     []Booking
	payments     []Payment
	lockedCourts []CourtID
	claimErr     error
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		students:    make(map[StudentID]Student),
		memberships: make(map[membershipKey]Membership),
		settings:    make(map[TenantID]TenantSettings),
	}
}

func (store *stubStore) snapshot() stubStore {
	copied := stubStore{
		students:     make(map[StudentID]Student, len(store.students)),
		memberships:  make(map[membershipKey]Membership, len(store.memberships)),
		settings:     make(map[TenantID]TenantSettings, len(store.settings)),
		courts:       append([]Court(nil), store.courts...),
		schedules:    append([]Schedule(nil), store.schedules...),
		bookings:     append([]Booking(nil), store.bookings...),
		payments:     append([]Payment(nil), store.payments...),
		lockedCourts: append([]CourtID(nil), store.lockedCourts...),
		claimErr:     store.claimErr,
	}
	for key, value := range store.students {
		copied.students[key] = value
	}
	for key, value := range store.memberships {
		copied.memberships[key] = value
	}
	for key, value := range store.settings {
		copied.settings[key] = value
	}
	return copied
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	saved := store.snapshot()
	if err := fn(ctx, store); err != nil {
		*store = saved
		return err
	}
	return nil
}

func (store *stubStore) CachedBalance(ctx context.Context, tenantID TenantID, studentID StudentID) (Amount, error) {
	return store.memberships[membershipKey{tenantID, studentID}].CachedBalance, nil
}

func (store *stubStore) IncrementBalance(ctx context.Context, tenantID TenantID, studentID StudentID, delta Amount) error {
	key := membershipKey{tenantID, studentID}
	membership := store.memberships[key]
	membership.TenantID, membership.StudentID, membership.Active = tenantID, studentID, true
	membership.CachedBalance += delta
	store.memberships[key] = membership
	return nil
}

func (store *stubStore) OverwriteBalance(ctx context.Context, tenantID TenantID, studentID StudentID, value Amount) (Amount, error) {
	key := membershipKey{tenantID, studentID}
	membership := store.memberships[key]
	previous := membership.CachedBalance
	membership.TenantID, membership.StudentID, membership.Active = tenantID, studentID, true
	membership.CachedBalance = value
	store.memberships[key] = membership
	return previous, nil
}

func (store *stubStore) GetStudent(ctx context.Context, studentID StudentID) (Student, error) {
	student, ok := store.students[studentID]
	if !ok {
		return Student{}, ErrStudentNotFound
	}
	return student, nil
}

func (store *stubStore) EnsureMembership(ctx context.Context, tenantID TenantID, studentID StudentID) (Membership, error) {
	key := membershipKey{tenantID, studentID}
	membership, ok := store.memberships[key]
	if !ok {
		membership = Membership{TenantID: tenantID, StudentID: studentID, Active: true}
		store.memberships[key] = membership
	}
	return membership, nil
}

func (store *stubStore) ListMemberships(ctx context.Context) ([]Membership, error) {
	memberships := make([]Membership, 0, len(store.memberships))
	for _, membership := range store.memberships {
		memberships = append(memberships, membership)
	}
	sort.Slice(memberships, func(left, right int) bool {
		return memberships[left].StudentID.String() < memberships[right].StudentID.String()
	})
	return memberships, nil
}

func (store *stubStore) GetTenantSettings(ctx context.Context, tenantID TenantID) (TenantSettings, error) {
	settings, ok := store.settings[tenantID]
	if !ok {
		return TenantSettings{TenantID: tenantID}, nil
	}
	return settings, nil
}

func (store *stubStore) GetCourt(ctx context.Context, tenantID TenantID, courtID CourtID) (Court, error) {
	for _, court := range store.courts {
		if court.TenantID == tenantID && court.ID == courtID {
			return court, nil
		}
	}
	return Court{}, ErrCourtNotFound
}

func (store *stubStore) ListActiveCourts(ctx context.Context, tenantID TenantID) ([]Court, error) {
	var courts []Court
	for _, court := range store.courts {
		if court.TenantID == tenantID && court.Active {
			courts = append(courts, court)
		}
	}
	return courts, nil
}

func (store *stubStore) LockCourt(ctx context.Context, tenantID TenantID, courtID CourtID) error {
	store.lockedCourts = append(store.lockedCourts, courtID)
	return nil
}

func (store *stubStore) GetSchedule(ctx context.Context, tenantID TenantID, scheduleID ScheduleID) (Schedule, error) {
	for _, schedule := range store.schedules {
		if schedule.TenantID == tenantID && schedule.ID == scheduleID {
			return schedule, nil
		}
	}
	return Schedule{}, ErrScheduleNotFound
}

func (store *stubStore) ListSchedulesByID(ctx context.Context, tenantID TenantID, scheduleIDs []ScheduleID) ([]Schedule, error) {
	wanted := make(map[ScheduleID]bool, len(scheduleIDs))
	for _, scheduleID := range scheduleIDs {
		wanted[scheduleID] = true
	}
	var schedules []Schedule
	for _, schedule := range store.schedules {
		if schedule.TenantID == tenantID && wanted[schedule.ID] {
			schedules = append(schedules, schedule)
		}
	}
	return schedules, nil
}

func (store *stubStore) ListBlockedSchedules(ctx context.Context, tenantID TenantID, courtID CourtID) ([]Schedule, error) {
	var schedules []Schedule
	for _, schedule := range store.schedules {
		if schedule.TenantID == tenantID && schedule.Blocked && schedule.CourtID != nil && *schedule.CourtID == courtID {
			schedules = append(schedules, schedule)
		}
	}
	return schedules, nil
}

func (store *stubStore) ListAvailableSchedules(ctx context.Context, tenantID TenantID, from time.Time, to time.Time) ([]Schedule, error) {
	var schedules []Schedule
	for _, schedule := range store.schedules {
		if schedule.TenantID != tenantID || !schedule.Available || schedule.Blocked {
			continue
		}
		if schedule.StartTime.Before(from) || !schedule.StartTime.Before(to) {
			continue
		}
		schedules = append(schedules, schedule)
	}
	sort.Slice(schedules, func(left, right int) bool {
		return schedules[left].StartTime.Before(schedules[right].StartTime)
	})
	return schedules, nil
}

func (store *stubStore) ClaimSchedule(ctx context.Context, tenantID TenantID, scheduleID ScheduleID, studentID StudentID) error {
	if store.claimErr != nil {
		return store.claimErr
	}
	for index, schedule := range store.schedules {
		if schedule.TenantID == tenantID && schedule.ID == scheduleID && schedule.Available {
			claimedBy := studentID
			store.schedules[index].Available = false
			store.schedules[index].StudentID = &claimedBy
			return nil
		}
	}
	return ErrScheduleUnavailable
}

func (store *stubStore) ReleaseSchedule(ctx context.Context, tenantID TenantID, scheduleID ScheduleID) error {
	for index, schedule := range store.schedules {
		if schedule.TenantID == tenantID && schedule.ID == scheduleID {
			store.schedules[index].Available = true
			store.schedules[index].StudentID = nil
			return nil
		}
	}
	return ErrScheduleNotFound
}

func (store *stubStore) CreateBooking(ctx context.Context, booking Booking) error {
	store.bookings = append(store.bookings, booking)
	return nil
}

func (store *stubStore) GetBooking(ctx context.Context, tenantID TenantID, bookingID BookingID) (Booking, error) {
	for _, booking := range store.bookings {
		if booking.TenantID == tenantID && booking.ID == bookingID {
			return booking, nil
		}
	}
	return Booking{}, ErrBookingNotFound
}

func (store *stubStore) UpdateBookingStatus(ctx context.Context, tenantID TenantID, bookingID BookingID, from BookingStatus, to BookingStatus) error {
	for index, booking := range store.bookings {
		if booking.TenantID == tenantID && booking.ID == bookingID && booking.Status == from {
			store.bookings[index].Status = to
			return nil
		}
	}
	return ErrInvalidTransition
}

func (store *stubStore) ListActiveCourtBookings(ctx context.Context, tenantID TenantID, courtID CourtID) ([]Booking, error) {
	var bookings []Booking
	for _, booking := range store.bookings {
		if booking.TenantID == tenantID && booking.Status.IsActive() && booking.CourtID != nil && *booking.CourtID == courtID {
			bookings = append(bookings, booking)
		}
	}
	return bookings, nil
}

func (store *stubStore) ListStudentBookings(ctx context.Context, tenantID TenantID, studentID StudentID) ([]Booking, error) {
	var bookings []Booking
	for _, booking := range store.bookings {
		if booking.TenantID == tenantID && booking.StudentID == studentID {
			bookings = append(bookings, booking)
		}
	}
	return bookings, nil
}

func (store *stubStore) ListPayments(ctx context.Context, tenantID TenantID, studentID StudentID, status PaymentStatus) ([]Payment, error) {
	var payments []Payment
	for _, payment := range store.payments {
		if payment.TenantID == tenantID && payment.StudentID == studentID && payment.Status == status {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

func (store *stubStore) CreatePayment(ctx context.Context, payment Payment) error {
	store.payments = append(store.payments, payment)
	return nil
}

func (store *stubStore) addStudent(test *testing.T, raw string) StudentID {
	test.Helper()
	studentID := mustStudentID(test, raw)
	store.students[studentID] = Student{ID: studentID, Name: raw}
	return studentID
}

func (store *stubStore) addCourt(test *testing.T, tenantID TenantID, raw string, active bool) CourtID {
	test.Helper()
	courtID := mustCourtID(test, raw)
	store.courts = append(store.courts, Court{ID: courtID, TenantID: tenantID, Name: raw, Active: active, HourlyPrice: 100})
	return courtID
}

func (store *stubStore) addSchedule(test *testing.T, schedule Schedule) {
	test.Helper()
	store.schedules = append(store.schedules, schedule)
}

func (store *stubStore) addTopUp(test *testing.T, tenantID TenantID, studentID StudentID, amount Amount) {
	test.Helper()
	store.payments = append(store.payments, Payment{
		ID:        mustPaymentID(test, fmt.Sprintf("topup-%d", len(store.payments)+1)),
		TenantID:  tenantID,
		StudentID: studentID,
		Amount:    amount,
		Status:    PaymentStatusPaid,
		Method:    "cash",
	})
	membership, _ := store.EnsureMembership(context.Background(), tenantID, studentID)
	membership.CachedBalance += amount
	store.memberships[membershipKey{tenantID, studentID}] = membership
}

func (store *stubStore) cached(test *testing.T, tenantID TenantID, studentID StudentID) Amount {
	test.Helper()
	value, err := store.CachedBalance(context.Background(), tenantID, studentID)
	if err != nil {
		test.Fatalf("cached balance: %v", err)
	}
	return value
}

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func (logger *recorderLogger) withStatus(status string) []OperationLog {
	var matched []OperationLog
	for _, entry := range logger.entries {
		if entry.Status == status {
			matched = append(matched, entry)
		}
	}
	return matched
}

type recorderPublisher struct {
	events []Event
	err    error
}

func (publisher *recorderPublisher) Publish(_ context.Context, event Event) error {
	if publisher.err != nil {
		return publisher.err
	}
	publisher.events = append(publisher.events, event)
	return nil
}

var fixedNow = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

// monday is 2024-01-15, a Monday.
func monday(hour int, minute int) time.Time {
	return time.Date(2024, time.January, 15, hour, minute, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	options = append([]ServiceOption{WithIDGenerator(sequentialIDs("id"))}, options...)
	service, err := NewService(store, func() time.Time { return fixedNow }, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustTenantID(test *testing.T, raw string) TenantID {
	test.Helper()
	id, err := NewTenantID(raw)
	if err != nil {
		test.Fatalf("tenant id: %v", err)
	}
	return id
}

func mustStudentID(test *testing.T, raw string) StudentID {
	test.Helper()
	id, err := NewStudentID(raw)
	if err != nil {
		test.Fatalf("student id: %v", err)
	}
	return id
}

func mustCourtID(test *testing.T, raw string) CourtID {
	test.Helper()
	id, err := NewCourtID(raw)
	if err != nil {
		test.Fatalf("court id: %v", err)
	}
	return id
}

func mustScheduleID(test *testing.T, raw string) ScheduleID {
	test.Helper()
	id, err := NewScheduleID(raw)
	if err != nil {
		test.Fatalf("schedule id: %v", err)
	}
	return id
}

func mustProfessorID(test *testing.T, raw string) ProfessorID {
	test.Helper()
	id, err := NewProfessorID(raw)
	if err != nil {
		test.Fatalf("professor id: %v", err)
	}
	return id
}

func mustBookingID(test *testing.T, raw string) BookingID {
	test.Helper()
	id, err := NewBookingID(raw)
	if err != nil {
		test.Fatalf("booking id: %v", err)
	}
	return id
}

func mustPaymentID(test *testing.T, raw string) PaymentID {
	test.Helper()
	id, err := NewPaymentID(raw)
	if err != nil {
		test.Fatalf("payment id: %v", err)
	}
	return id
}

func timePointer(value time.Time) *time.Time {
	return &value
}

func rentalRequest(tenantID TenantID, studentID StudentID, courtID CourtID, start time.Time, end time.Time, price Amount) BookingRequest {
	return BookingRequest{
		TenantID:    tenantID,
		StudentID:   studentID,
		ServiceKind: ServiceCourtRental,
		Price:       price,
		CourtID:     &courtID,
		StartTime:   timePointer(start),
		EndTime:     timePointer(end),
	}
}

func lessonRequest(tenantID TenantID, studentID StudentID, scheduleID ScheduleID, price Amount) BookingRequest {
	return BookingRequest{
		TenantID:    tenantID,
		StudentID:   studentID,
		ServiceKind: ServiceIndividualLesson,
		Price:       price,
		ScheduleID:  &scheduleID,
	}
}
