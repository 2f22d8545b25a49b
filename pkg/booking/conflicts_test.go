package booking

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func newConflictFixture(test *testing.T) (*stubStore, TenantID, StudentID, CourtID) {
	test.Helper()
	store := newStubStore(test)
	tenantID := mustTenantID(test, "tenant-1")
	studentID := store.addStudent(test, "student-1")
	courtID := store.addCourt(test, tenantID, "court-1", true)
	return store, tenantID, studentID, courtID
}

func TestHasConflictConsidersRentalsLessonsAndBlocks(test *testing.T) {
	test.Parallel()
	store, tenantID, studentID, courtID := newConflictFixture(test)
	lessonCourt := courtID
	store.addSchedule(test, Schedule{
		ID: mustScheduleID(test, "lesson-schedule"), TenantID: tenantID, ProfessorID: mustProfessorID(test, "prof-1"),
		CourtID: &lessonCourt, StartTime: monday(14, 0), EndTime: monday(15, 30),
	})
	lessonScheduleID := mustScheduleID(test, "lesson-schedule")
	store.bookings = append(store.bookings,
		Booking{ID: mustBookingID(test, "rental"), TenantID: tenantID, StudentID: studentID, CourtID: &lessonCourt,
			ServiceKind: ServiceCourtRental, Price: 100, Status: BookingStatusConfirmed, StartTime: monday(10, 0)},
		Booking{ID: mustBookingID(test, "lesson"), TenantID: tenantID, StudentID: studentID, CourtID: &lessonCourt,
			ScheduleID: &lessonScheduleID, ServiceKind: ServiceIndividualLesson, Price: 100, Status: BookingStatusPending, StartTime: monday(14, 0)},
		Booking{ID: mustBookingID(test, "cancelled"), TenantID: tenantID, StudentID: studentID, CourtID: &lessonCourt,
			ServiceKind: ServiceCourtRental, Price: 100, Status: BookingStatusCancelled, StartTime: monday(17, 0), EndTime: timePointer(monday(19, 0))},
	)
	store.addSchedule(test, Schedule{
		ID: mustScheduleID(test, "maintenance"), TenantID: tenantID, ProfessorID: mustProfessorID(test, "prof-2"),
		CourtID: &lessonCourt, StartTime: monday(20, 0), EndTime: monday(21, 0), Blocked: true, BlockReason: "maintenance",
	})
	service := mustNewService(test, store)

	testCases := []struct {
		name     string
		startH   int
		startM   int
		endH     int
		endM     int
		expected bool
	}{
		{name: "rental default hour overlaps", startH: 10, startM: 30, endH: 12, endM: 0, expected: true},
		{name: "after rental default hour", startH: 11, startM: 0, endH: 12, endM: 0, expected: false},
		{name: "lesson window overlaps", startH: 15, startM: 0, endH: 16, endM: 0, expected: true},
		{name: "after lesson window", startH: 15, startM: 30, endH: 16, endM: 30, expected: false},
		{name: "cancelled booking ignored", startH: 17, startM: 0, endH: 18, endM: 0, expected: false},
		{name: "blocked schedule occupies", startH: 20, startM: 30, endH: 21, endM: 30, expected: true},
	}
	for _, testCase := range testCases {
		conflict, err := service.HasConflict(context.Background(), tenantID, courtID, monday(testCase.startH, testCase.startM), monday(testCase.endH, testCase.endM))
		if err != nil {
			test.Fatalf("%s: has conflict: %v", testCase.name, err)
		}
		if conflict != testCase.expected {
			test.Fatalf("%s: "+errorMismatchMessage, testCase.name, testCase.expected, conflict)
		}
	}
}

func TestFindConflictReportsCause(test *testing.T) {
	test.Parallel()
	store, tenantID, studentID, courtID := newConflictFixture(test)
	store.bookings = append(store.bookings, Booking{
		ID: mustBookingID(test, "rental"), TenantID: tenantID, StudentID: studentID, CourtID: &courtID,
		ServiceKind: ServiceCourtRental, Price: 100, Status: BookingStatusConfirmed, StartTime: monday(10, 0),
	})
	service := mustNewService(test, store)
	window, err := NewInterval(monday(10, 0), monday(11, 0))
	if err != nil {
		test.Fatalf("interval: %v", err)
	}
	conflict, err := service.FindConflict(context.Background(), tenantID, courtID, window, nil)
	if err != nil {
		test.Fatalf("find conflict: %v", err)
	}
	if conflict == nil || conflict.Cause != ConflictCourtRental {
		test.Fatalf("expected court rental conflict, got %+v", conflict)
	}
	conflictError := &ConflictError{Conflict: *conflict}
	if !errors.Is(conflictError, ErrSlotConflict) {
		test.Fatalf("expected slot conflict error")
	}
	if conflictError.Error() != "slot conflict: court is blocked by a court rental" {
		test.Fatalf("unexpected message: %q", conflictError.Error())
	}
}

func TestHasConflictRejectsInvalidWindow(test *testing.T) {
	test.Parallel()
	store, tenantID, _, courtID := newConflictFixture(test)
	service := mustNewService(test, store)
	if _, err := service.HasConflict(context.Background(), tenantID, courtID, monday(12, 0), monday(11, 0)); !errors.Is(err, ErrInvalidTimeRange) {
		test.Fatalf(errorMismatchMessage, ErrInvalidTimeRange, err)
	}
}

func TestAvailableSlotsBucketsByStartHour(test *testing.T) {
	test.Parallel()
	store, tenantID, studentID, courtID := newConflictFixture(test)
	store.settings[tenantID] = TenantSettings{
		TenantID:       tenantID,
		OperatingHours: []byte(`{"monday":{"open":"08:00","close":"16:00"}}`),
	}
	store.bookings = append(store.bookings, Booking{
		ID: mustBookingID(test, "rental"), TenantID: tenantID, StudentID: studentID, CourtID: &courtID,
		ServiceKind: ServiceCourtRental, Price: 100, Status: BookingStatusConfirmed,
		StartTime: monday(10, 0), EndTime: timePointer(monday(12, 0)),
	})
	store.addSchedule(test, Schedule{
		ID: mustScheduleID(test, "blocked"), TenantID: tenantID, ProfessorID: mustProfessorID(test, "prof-1"),
		CourtID: &courtID, StartTime: monday(14, 30), EndTime: monday(15, 30), Blocked: true,
	})
	service := mustNewService(test, store)

	slots, err := service.AvailableSlots(context.Background(), tenantID, courtID, monday(0, 0))
	if err != nil {
		test.Fatalf("available slots: %v", err)
	}
	expectedBooked := []string{"10:00", "14:00"}
	expectedAvailable := []string{"08:00", "09:00", "11:00", "12:00", "13:00", "15:00"}
	if !reflect.DeepEqual(slots.Booked, expectedBooked) {
		test.Fatalf(errorMismatchMessage, expectedBooked, slots.Booked)
	}
	if !reflect.DeepEqual(slots.Available, expectedAvailable) {
		test.Fatalf(errorMismatchMessage, expectedAvailable, slots.Available)
	}
}

func TestAvailableSlotsDefaultHours(test *testing.T) {
	test.Parallel()
	store, tenantID, _, courtID := newConflictFixture(test)
	service := mustNewService(test, store)
	slots, err := service.AvailableSlots(context.Background(), tenantID, courtID, monday(0, 0))
	if err != nil {
		test.Fatalf("available slots: %v", err)
	}
	if len(slots.Available) != DefaultCloseHour-DefaultOpenHour || len(slots.Booked) != 0 {
		test.Fatalf("unexpected default slots: %+v", slots)
	}
	if slots.Available[0] != "06:00" || slots.Available[len(slots.Available)-1] != "21:00" {
		test.Fatalf("unexpected slot bounds: %+v", slots.Available)
	}
}

func TestAvailableSlotsClosedWeekday(test *testing.T) {
	test.Parallel()
	store, tenantID, _, courtID := newConflictFixture(test)
	store.settings[tenantID] = TenantSettings{
		TenantID:       tenantID,
		OperatingHours: []byte(`{"tuesday":{"open":"08:00","close":"16:00"}}`),
	}
	service := mustNewService(test, store)
	slots, err := service.AvailableSlots(context.Background(), tenantID, courtID, monday(0, 0))
	if err != nil {
		test.Fatalf("available slots: %v", err)
	}
	if slots.Available == nil || slots.Booked == nil || len(slots.Available) != 0 || len(slots.Booked) != 0 {
		test.Fatalf("expected empty non-nil slot lists, got %+v", slots)
	}
}

func TestAvailableSlotsErrors(test *testing.T) {
	test.Parallel()
	store, tenantID, _, courtID := newConflictFixture(test)
	service := mustNewService(test, store)
	if _, err := service.AvailableSlots(context.Background(), tenantID, mustCourtID(test, "missing"), monday(0, 0)); !errors.Is(err, ErrNotFound) {
		test.Fatalf(errorMismatchMessage, ErrNotFound, err)
	}
	store.settings[tenantID] = TenantSettings{TenantID: tenantID, OperatingHours: []byte(`{"monday":{"open":"22:00","close":"06:00"}}`)}
	if _, err := service.AvailableSlots(context.Background(), tenantID, courtID, monday(0, 0)); !errors.Is(err, ErrConfiguration) {
		test.Fatalf(errorMismatchMessage, ErrConfiguration, err)
	}
}
