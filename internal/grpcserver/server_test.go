package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	"github.com/glebarez/sqlite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"gorm.io/gorm"
)

const bufconnSize = 1 << 20

var testDay = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

func newTestService(test *testing.T) *booking.Service {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(test.TempDir()+"/courtledger.db"), &gorm.Config{})
	if err != nil {
		test.Fatalf("sqlite open failed: %v", err)
	}
	if err := gormstore.Migrate(db); err != nil {
		test.Fatalf("automigrate failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		test.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	test.Cleanup(func() { _ = sqlDB.Close() })

	now := time.Now().UTC()
	records := []interface{}{
		&gormstore.Tenant{TenantID: "tenant-1", Name: "Club", Timezone: "UTC", CreatedAt: now},
		&gormstore.Student{StudentID: "student-1", Name: "Student", CreatedAt: now},
		&gormstore.Court{CourtID: "court-1", TenantID: "tenant-1", Position: 1, Name: "Court 1", Active: true, HourlyPrice: 100, CreatedAt: now},
	}
	for _, record := range records {
		if err := db.Create(record).Error; err != nil {
			test.Fatalf("seed %T: %v", record, err)
		}
	}
	service, err := booking.NewService(gormstore.New(db), func() time.Time { return testDay })
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func startClient(test *testing.T) *Client {
	test.Helper()
	listener := bufconn.Listen(bufconnSize)
	grpcServer := grpc.NewServer()
	RegisterBookingServiceServer(grpcServer, NewBookingServer(newTestService(test)))
	go func() {
		if serveErr := grpcServer.Serve(listener); serveErr != nil {
			test.Logf("gRPC server error: %v", serveErr)
		}
	}()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}
	conn, err := grpc.NewClient("passthrough:///bufnet", grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		test.Fatalf("gRPC client init failed: %v", err)
	}
	test.Cleanup(func() {
		grpcServer.Stop()
		_ = conn.Close()
	})
	return NewClient(conn)
}

func call(test *testing.T, client *Client, method string, fields map[string]interface{}) (map[string]interface{}, error) {
	test.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	response, err := client.Call(ctx, method, fields, grpc.WaitForReady(true))
	if err != nil {
		return nil, err
	}
	return response.AsMap(), nil
}

func requireCode(test *testing.T, err error, expected codes.Code) {
	test.Helper()
	if status.Code(err) != expected {
		test.Fatalf("expected %s, got %v", expected, err)
	}
}

func TestBookingLifecycleOverGRPC(test *testing.T) {
	test.Parallel()
	client := startClient(test)
	start := testDay.Add(10 * time.Hour).Format(time.RFC3339)
	end := testDay.Add(11 * time.Hour).Format(time.RFC3339)
	rental := map[string]interface{}{
		"tenant_id": "tenant-1", "student_id": "student-1", "service_kind": "court_rental",
		"price": 120, "court_id": "court-1", "start_time": start, "end_time": end,
	}

	_, err := call(test, client, MethodCreateBooking, rental)
	requireCode(test, err, codes.FailedPrecondition)

	if _, err := call(test, client, MethodRecordPayment, map[string]interface{}{
		"tenant_id": "tenant-1", "student_id": "student-1", "amount": 500, "method": "cash",
	}); err != nil {
		test.Fatalf("record payment: %v", err)
	}

	created, err := call(test, client, MethodCreateBooking, rental)
	if err != nil {
		test.Fatalf("create booking: %v", err)
	}
	if created["status"] != "confirmed" || created["court_id"] != "court-1" || created["end_time"] != end || created["duration_minutes"] != float64(60) {
		test.Fatalf("unexpected booking %+v", created)
	}

	_, err = call(test, client, MethodCreateBooking, rental)
	requireCode(test, err, codes.AlreadyExists)

	slots, err := call(test, client, MethodGetAvailableSlots, map[string]interface{}{"tenant_id": "tenant-1", "court_id": "court-1", "date": "2024-01-15"})
	if err != nil {
		test.Fatalf("slots: %v", err)
	}
	booked, _ := slots["booked"].([]interface{})
	if len(booked) != 1 || booked[0] != "10:00" {
		test.Fatalf("unexpected booked slots %+v", slots)
	}

	_, err = call(test, client, MethodFindAvailableCourt, map[string]interface{}{"tenant_id": "tenant-1", "start_time": start, "end_time": end})
	requireCode(test, err, codes.NotFound)

	balance, err := call(test, client, MethodGetBalance, map[string]interface{}{"tenant_id": "tenant-1", "student_id": "student-1"})
	if err != nil || balance["balance"] != float64(380) {
		test.Fatalf("expected balance 380, got %+v (%v)", balance, err)
	}

	if _, err := call(test, client, MethodCancelBooking, map[string]interface{}{"tenant_id": "tenant-1", "booking_id": created["booking_id"]}); err != nil {
		test.Fatalf("cancel: %v", err)
	}
	_, err = call(test, client, MethodCompleteBooking, map[string]interface{}{"tenant_id": "tenant-1", "booking_id": created["booking_id"]})
	requireCode(test, err, codes.FailedPrecondition)

	validation, err := call(test, client, MethodValidateBalance, map[string]interface{}{"tenant_id": "tenant-1", "student_id": "student-1"})
	if err != nil || validation["is_valid"] != true || validation["computed"] != float64(500) {
		test.Fatalf("unexpected validation %+v (%v)", validation, err)
	}
}

func TestRequestValidationOverGRPC(test *testing.T) {
	test.Parallel()
	client := startClient(test)
	testCases := []struct {
		name   string
		method string
		fields map[string]interface{}
		code   codes.Code
	}{
		{name: "missing tenant", method: MethodGetBalance, fields: map[string]interface{}{"student_id": "student-1"}, code: codes.InvalidArgument},
		{name: "fractional price", method: MethodCreateBooking, fields: map[string]interface{}{
			"tenant_id": "tenant-1", "student_id": "student-1", "service_kind": "court_rental", "price": 1.5,
		}, code: codes.InvalidArgument},
		{name: "bad date", method: MethodGetAvailableSlots, fields: map[string]interface{}{"tenant_id": "tenant-1", "court_id": "court-1", "date": "15/01/2024"}, code: codes.InvalidArgument},
		{name: "unknown court", method: MethodGetAvailableSlots, fields: map[string]interface{}{"tenant_id": "tenant-1", "court_id": "court-9", "date": "2024-01-15"}, code: codes.NotFound},
		{name: "unknown booking", method: MethodCancelBooking, fields: map[string]interface{}{"tenant_id": "tenant-1", "booking_id": "missing"}, code: codes.NotFound},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			_, err := call(test, client, testCase.method, testCase.fields)
			requireCode(test, err, testCase.code)
		})
	}
}

func TestMapToGRPCError(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "conflict", err: &booking.ConflictError{Conflict: booking.Conflict{Cause: booking.ConflictCourtRental}}, code: codes.AlreadyExists},
		{name: "duplicate", err: booking.ErrDuplicateID, code: codes.AlreadyExists},
		{name: "funds", err: booking.ErrInsufficientFunds, code: codes.FailedPrecondition},
		{name: "schedule", err: booking.ErrScheduleUnavailable, code: codes.FailedPrecondition},
		{name: "student", err: booking.ErrStudentNotFound, code: codes.NotFound},
		{name: "invalid", err: booking.ErrInvalidTimeRange, code: codes.InvalidArgument},
		{name: "configuration", err: booking.ErrConfiguration, code: codes.Internal},
		{name: "store", err: booking.WrapError("store", "booking", "create_failed", errors.New("disk full")), code: codes.Internal},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if code := status.Code(mapToGRPCError(testCase.err)); code != testCase.code {
				test.Fatalf("expected %s, got %s", testCase.code, code)
			}
		})
	}
}
