package gormstore

import "github.com/MarkoPoloResearchLab/courtledger/pkg/booking"

func mapMembership(row Membership) (booking.Membership, error) {
	tenantID, err := booking.NewTenantID(row.TenantID)
	if err != nil {
		return booking.Membership{}, wrapStoreError(errorSubjectMember, errorCodeInvalid, err)
	}
	studentID, err := booking.NewStudentID(row.StudentID)
	if err != nil {
		return booking.Membership{}, wrapStoreError(errorSubjectMember, errorCodeInvalid, err)
	}
	return booking.Membership{
		TenantID:      tenantID,
		StudentID:     studentID,
		Active:        row.Active,
		CachedBalance: booking.Amount(row.CachedBalance),
	}, nil
}

func mapCourt(row Court) (booking.Court, error) {
	courtID, err := booking.NewCourtID(row.CourtID)
	if err != nil {
		return booking.Court{}, wrapStoreError(errorSubjectCourt, errorCodeInvalid, err)
	}
	tenantID, err := booking.NewTenantID(row.TenantID)
	if err != nil {
		return booking.Court{}, wrapStoreError(errorSubjectCourt, errorCodeInvalid, err)
	}
	return booking.Court{
		ID:          courtID,
		TenantID:    tenantID,
		Name:        row.Name,
		Active:      row.Active,
		HourlyPrice: booking.Amount(row.HourlyPrice),
	}, nil
}

func mapSchedule(row Schedule) (booking.Schedule, error) {
	scheduleID, err := booking.NewScheduleID(row.ScheduleID)
	if err != nil {
		return booking.Schedule{}, wrapStoreError(errorSubjectSchedule, errorCodeInvalid, err)
	}
	tenantID, err := booking.NewTenantID(row.TenantID)
	if err != nil {
		return booking.Schedule{}, wrapStoreError(errorSubjectSchedule, errorCodeInvalid, err)
	}
	professorID, err := booking.NewProfessorID(row.ProfessorID)
	if err != nil {
		return booking.Schedule{}, wrapStoreError(errorSubjectSchedule, errorCodeInvalid, err)
	}
	courtID, err := parseOptional(row.CourtID, booking.NewCourtID)
	if err != nil {
		return booking.Schedule{}, wrapStoreError(errorSubjectSchedule, errorCodeInvalid, err)
	}
	studentID, err := parseOptional(row.StudentID, booking.NewStudentID)
	if err != nil {
		return booking.Schedule{}, wrapStoreError(errorSubjectSchedule, errorCodeInvalid, err)
	}
	return booking.Schedule{
		ID:          scheduleID,
		TenantID:    tenantID,
		ProfessorID: professorID,
		CourtID:     courtID,
		StartTime:   row.StartTime.UTC(),
		EndTime:     row.EndTime.UTC(),
		Available:   row.Available,
		Blocked:     row.Blocked,
		BlockReason: row.BlockReason,
		StudentID:   studentID,
	}, nil
}

func mapBooking(row Booking) (booking.Booking, error) {
	bookingID, err := booking.NewBookingID(row.BookingID)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	tenantID, err := booking.NewTenantID(row.TenantID)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	studentID, err := booking.NewStudentID(row.StudentID)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	professorID, err := parseOptional(row.ProfessorID, booking.NewProfessorID)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	scheduleID, err := parseOptional(row.ScheduleID, booking.NewScheduleID)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	courtID, err := parseOptional(row.CourtID, booking.NewCourtID)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	serviceKind, err := booking.ParseServiceKind(row.ServiceKind)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	status, err := booking.ParseBookingStatus(row.Status)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	return booking.Booking{
		ID:          bookingID,
		TenantID:    tenantID,
		StudentID:   studentID,
		ProfessorID: professorID,
		ScheduleID:  scheduleID,
		CourtID:     courtID,
		ServiceKind: serviceKind,
		Price:       booking.Amount(row.Price),
		Status:      status,
		StartTime:   row.StartTime.UTC(),
		EndTime:     optionalTime(row.EndTime),
		CreatedAt:   row.CreatedAt.UTC(),
	}, nil
}

func mapPayment(row Payment) (booking.Payment, error) {
	paymentID, err := booking.NewPaymentID(row.PaymentID)
	if err != nil {
		return booking.Payment{}, err
	}
	tenantID, err := booking.NewTenantID(row.TenantID)
	if err != nil {
		return booking.Payment{}, err
	}
	studentID, err := booking.NewStudentID(row.StudentID)
	if err != nil {
		return booking.Payment{}, err
	}
	bookingID, err := parseOptional(row.BookingID, booking.NewBookingID)
	if err != nil {
		return booking.Payment{}, err
	}
	status, err := booking.ParsePaymentStatus(row.Status)
	if err != nil {
		return booking.Payment{}, err
	}
	return booking.Payment{
		ID:        paymentID,
		TenantID:  tenantID,
		StudentID: studentID,
		BookingID: bookingID,
		Amount:    booking.Amount(row.Amount),
		Status:    status,
		Method:    row.Method,
		Date:      row.PaidAt.UTC(),
	}, nil
}

func parseOptional[T any](raw *string, parse func(string) (T, error)) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := parse(*raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
