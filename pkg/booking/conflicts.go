package booking

import (
	"context"
	"fmt"
	"time"
)

// ConflictCause names what occupies a court.
type ConflictCause string

const (
	ConflictCourtRental     ConflictCause = "court_rental"
	ConflictBlockedSchedule ConflictCause = "blocked_schedule"
	ConflictLesson          ConflictCause = "lesson"
)

// Conflict describes one occupant of a court window.
type Conflict struct {
	Cause      ConflictCause
	BookingID  *BookingID
	ScheduleID *ScheduleID
	Interval   Interval
	Reason     string
}

// SlotAvailability lists hourly labels ("HH:00") of a court for one day.
type SlotAvailability struct {
	Available []string
	Booked    []string
}

// HasConflict reports whether any active booking or blocked schedule of the court overlaps [start, end).
func (service *Service) HasConflict(ctx context.Context, tenantID TenantID, courtID CourtID, start time.Time, end time.Time) (bool, error) {
	window, err := NewInterval(start, end)
	if err != nil {
		return false, err
	}
	conflict, err := service.FindConflict(ctx, tenantID, courtID, window, nil)
	if err != nil {
		return false, err
	}
	return conflict != nil, nil
}

// FindConflict returns the first occupant of the court overlapping window, or nil.
// ignoreScheduleID excludes occupants tied to that schedule.
func (service *Service) FindConflict(ctx context.Context, tenantID TenantID, courtID CourtID, window Interval, ignoreScheduleID *ScheduleID) (*Conflict, error) {
	return findConflict(ctx, service.store, tenantID, courtID, window, ignoreScheduleID)
}

// AvailableSlots buckets the court's occupants by start hour over the tenant's opening window for date.
// The calendar day of date is interpreted in the tenant timezone.
func (service *Service) AvailableSlots(ctx context.Context, tenantID TenantID, courtID CourtID, date time.Time) (SlotAvailability, error) {
	if _, err := service.store.GetCourt(ctx, tenantID, courtID); err != nil {
		return SlotAvailability{}, err
	}
	settings, err := service.store.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return SlotAvailability{}, err
	}
	location, err := settings.Location()
	if err != nil {
		return SlotAvailability{}, err
	}
	hours, err := settings.Hours()
	if err != nil {
		return SlotAvailability{}, err
	}
	year, month, day := date.Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, location)
	slots := SlotAvailability{Available: []string{}, Booked: []string{}}
	window, open := hours.For(dayStart.Weekday())
	if !open {
		return slots, nil
	}
	occupancy, err := courtOccupancy(ctx, service.store, tenantID, courtID)
	if err != nil {
		return SlotAvailability{}, err
	}
	bookedHours := make(map[int]bool, len(occupancy))
	for _, occupant := range occupancy {
		localStart := occupant.Interval.Start.In(location)
		startYear, startMonth, startDay := localStart.Date()
		if startYear == year && startMonth == month && startDay == day {
			bookedHours[localStart.Hour()] = true
		}
	}
	for hour := window.Open; hour < window.Close; hour++ {
		label := fmt.Sprintf(slotLabelFormat, hour)
		if bookedHours[hour] {
			slots.Booked = append(slots.Booked, label)
			continue
		}
		slots.Available = append(slots.Available, label)
	}
	return slots, nil
}

func findConflict(ctx context.Context, store Store, tenantID TenantID, courtID CourtID, window Interval, ignoreScheduleID *ScheduleID) (*Conflict, error) {
	occupancy, err := courtOccupancy(ctx, store, tenantID, courtID)
	if err != nil {
		return nil, err
	}
	return conflictIn(occupancy, window, ignoreScheduleID), nil
}

// courtOccupancy lists every window the court is held for: active bookings and blocked schedules.
func courtOccupancy(ctx context.Context, store Store, tenantID TenantID, courtID CourtID) ([]Conflict, error) {
	bookings, err := store.ListActiveCourtBookings(ctx, tenantID, courtID)
	if err != nil {
		return nil, err
	}
	scheduleIDs := make([]ScheduleID, 0, len(bookings))
	for _, booking := range bookings {
		if booking.ScheduleID != nil {
			scheduleIDs = append(scheduleIDs, *booking.ScheduleID)
		}
	}
	schedulesByID := make(map[ScheduleID]Schedule, len(scheduleIDs))
	if len(scheduleIDs) > 0 {
		schedules, err := store.ListSchedulesByID(ctx, tenantID, scheduleIDs)
		if err != nil {
			return nil, err
		}
		for _, schedule := range schedules {
			schedulesByID[schedule.ID] = schedule
		}
	}
	occupancy := make([]Conflict, 0, len(bookings))
	for _, booking := range bookings {
		bookingID := booking.ID
		occupant := Conflict{BookingID: &bookingID, ScheduleID: booking.ScheduleID}
		if booking.ServiceKind == ServiceCourtRental {
			occupant.Cause = ConflictCourtRental
		} else {
			occupant.Cause = ConflictLesson
		}
		var source IntervalSource = RentalSource{Start: booking.StartTime, End: booking.EndTime}
		if booking.ScheduleID != nil {
			if schedule, ok := schedulesByID[*booking.ScheduleID]; ok {
				source = LessonSource{Schedule: schedule}
			}
		}
		occupant.Interval = source.Interval()
		occupancy = append(occupancy, occupant)
	}
	blocked, err := store.ListBlockedSchedules(ctx, tenantID, courtID)
	if err != nil {
		return nil, err
	}
	for _, schedule := range blocked {
		scheduleID := schedule.ID
		occupancy = append(occupancy, Conflict{
			Cause:      ConflictBlockedSchedule,
			ScheduleID: &scheduleID,
			Interval:   schedule.Interval(),
			Reason:     schedule.BlockReason,
		})
	}
	return occupancy, nil
}

func conflictIn(occupancy []Conflict, window Interval, ignoreScheduleID *ScheduleID) *Conflict {
	for index := range occupancy {
		occupant := occupancy[index]
		if ignoreScheduleID != nil && occupant.ScheduleID != nil && *occupant.ScheduleID == *ignoreScheduleID {
			continue
		}
		if occupant.Interval.Overlaps(window) {
			return &occupant
		}
	}
	return nil
}
