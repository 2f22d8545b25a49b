package booking

import (
	"context"
	"errors"
	"testing"
)

func TestFindAvailableCourtSkipsOccupiedAndInactive(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	tenantID := mustTenantID(test, "tenant-1")
	studentID := store.addStudent(test, "student-1")
	firstCourt := store.addCourt(test, tenantID, "court-a", true)
	store.addCourt(test, tenantID, "court-b", false)
	thirdCourt := store.addCourt(test, tenantID, "court-c", true)
	store.bookings = append(store.bookings, Booking{
		ID: mustBookingID(test, "rental"), TenantID: tenantID, StudentID: studentID, CourtID: &firstCourt,
		ServiceKind: ServiceCourtRental, Price: 100, Status: BookingStatusConfirmed, StartTime: monday(10, 0),
	})
	service := mustNewService(test, store)

	court, err := service.FindAvailableCourt(context.Background(), tenantID, monday(10, 0), monday(11, 0))
	if err != nil {
		test.Fatalf("find available court: %v", err)
	}
	if court.ID != thirdCourt {
		test.Fatalf(errorMismatchMessage, thirdCourt, court.ID)
	}

	court, err = service.FindAvailableCourt(context.Background(), tenantID, monday(11, 0), monday(12, 0))
	if err != nil {
		test.Fatalf("find available court: %v", err)
	}
	if court.ID != firstCourt {
		test.Fatalf(errorMismatchMessage, firstCourt, court.ID)
	}
	if len(store.bookings) != 1 {
		test.Fatalf("allocator must not write, got %d bookings", len(store.bookings))
	}
}

func TestFindAvailableCourtNoneFree(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	tenantID := mustTenantID(test, "tenant-1")
	courtID := store.addCourt(test, tenantID, "court-a", true)
	store.addSchedule(test, Schedule{
		ID: mustScheduleID(test, "blocked"), TenantID: tenantID, ProfessorID: mustProfessorID(test, "prof-1"),
		CourtID: &courtID, StartTime: monday(8, 0), EndTime: monday(20, 0), Blocked: true,
	})
	service := mustNewService(test, store)
	_, err := service.FindAvailableCourt(context.Background(), tenantID, monday(10, 0), monday(11, 0))
	if !errors.Is(err, ErrNoCourtAvailable) || !errors.Is(err, ErrNotFound) {
		test.Fatalf(errorMismatchMessage, ErrNoCourtAvailable, err)
	}
	if _, err := service.FindAvailableCourt(context.Background(), tenantID, monday(11, 0), monday(10, 0)); !errors.Is(err, ErrInvalidTimeRange) {
		test.Fatalf(errorMismatchMessage, ErrInvalidTimeRange, err)
	}
}
