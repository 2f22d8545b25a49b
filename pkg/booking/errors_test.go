package booking

import (
	"context"
	"errors"
	"testing"
	"time"
)

const (
	operationName    = "booking"
	subjectName      = "court"
	codeName         = "invalid"
	baseErrorMessage = "base error"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New(baseErrorMessage)
	wrappedError := WrapError(operationName, subjectName, codeName, baseError)
	if wrappedError == nil {
		test.Fatalf("expected wrapped error")
	}
	expected := operationName + "." + subjectName + "." + codeName + ": " + baseErrorMessage
	if wrappedError.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, wrappedError.Error())
	}
	if !errors.Is(wrappedError, baseError) {
		test.Fatalf("expected wrapped error to unwrap to base")
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError(operationName, subjectName, codeName, nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}

func TestNotFoundSentinelsWrapNotFound(test *testing.T) {
	test.Parallel()
	for _, sentinel := range []error{ErrStudentNotFound, ErrCourtNotFound, ErrScheduleNotFound, ErrBookingNotFound, ErrNoCourtAvailable} {
		if !errors.Is(sentinel, ErrNotFound) {
			test.Fatalf("expected %v to wrap ErrNotFound", sentinel)
		}
	}
}

func TestConflictErrorMessages(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		conflict Conflict
		expected string
	}{
		{conflict: Conflict{Cause: ConflictCourtRental}, expected: "slot conflict: court is blocked by a court rental"},
		{conflict: Conflict{Cause: ConflictBlockedSchedule}, expected: "slot conflict: court is blocked by a blocked schedule"},
		{conflict: Conflict{Cause: ConflictBlockedSchedule, Reason: "resurfacing"}, expected: "slot conflict: court is blocked by a blocked schedule (resurfacing)"},
		{conflict: Conflict{Cause: ConflictLesson}, expected: "slot conflict: court is occupied by another lesson"},
	}
	for _, testCase := range testCases {
		conflictError := &ConflictError{Conflict: testCase.conflict}
		if conflictError.Error() != testCase.expected {
			test.Fatalf(errorMismatchMessage, testCase.expected, conflictError.Error())
		}
	}
}

func TestNewServiceRequiresDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewService(nil, time.Now); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf(errorMismatchMessage, ErrInvalidServiceConfig, err)
	}
	if _, err := NewService(newStubStore(test), nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf(errorMismatchMessage, ErrInvalidServiceConfig, err)
	}
}

func TestIdentifiersAreTrimmedAndRequired(test *testing.T) {
	test.Parallel()
	tenantID, err := NewTenantID("  tenant-1 ")
	if err != nil || tenantID.String() != "tenant-1" {
		test.Fatalf("unexpected tenant id %q (%v)", tenantID.String(), err)
	}
	if _, err := NewStudentID("   "); !errors.Is(err, ErrInvalidStudentID) || !errors.Is(err, ErrInvalidRequest) {
		test.Fatalf(errorMismatchMessage, ErrInvalidStudentID, err)
	}
	if _, err := NewPositiveAmount(0); !errors.Is(err, ErrInvalidAmount) {
		test.Fatalf(errorMismatchMessage, ErrInvalidAmount, err)
	}
	if kind, err := ParseServiceKind(" court_rental "); err != nil || kind != ServiceCourtRental || kind.IsLesson() {
		test.Fatalf("unexpected kind %q (%v)", kind, err)
	}
	if _, err := ParseBookingStatus("archived"); !errors.Is(err, ErrInvalidBookingStatus) {
		test.Fatalf(errorMismatchMessage, ErrInvalidBookingStatus, err)
	}
}

type failingCache struct {
	err error
}

func (cache failingCache) CachedBalance(context.Context, TenantID, StudentID) (Amount, error) {
	return 0, cache.err
}

func (cache failingCache) IncrementBalance(context.Context, TenantID, StudentID, Amount) error {
	return cache.err
}

func (cache failingCache) OverwriteBalance(context.Context, TenantID, StudentID, Amount) (Amount, error) {
	return 0, cache.err
}

func TestExternalCacheFailureRollsBackBooking(test *testing.T) {
	test.Parallel()
	cacheError := errors.New("cache down")
	fixture := newWorkflowFixture(test, 500)
	service := mustNewService(test, fixture.store, WithBalanceCache(failingCache{err: cacheError}))
	_, err := service.CreateBooking(context.Background(), rentalRequest(fixture.tenantID, fixture.studentID, fixture.courtID, monday(10, 0), monday(11, 0), 100))
	if !errors.Is(err, cacheError) {
		test.Fatalf(errorMismatchMessage, cacheError, err)
	}
	var operationError OperationError
	if !errors.As(err, &operationError) || operationError.Code() != "increment_failed" {
		test.Fatalf("expected increment_failed operation error, got %v", err)
	}
	if len(fixture.store.bookings) != 0 {
		test.Fatalf("expected booking rollback")
	}
}
