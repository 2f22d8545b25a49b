package booking

import (
	"context"
	"time"
)

// AvailableSchedules lists open schedules starting in [from, to) whose court is not otherwise occupied.
func (service *Service) AvailableSchedules(ctx context.Context, tenantID TenantID, from time.Time, to time.Time) ([]Schedule, error) {
	if _, err := NewInterval(from, to); err != nil {
		return nil, err
	}
	schedules, err := service.store.ListAvailableSchedules(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	occupancyByCourt := make(map[CourtID][]Conflict)
	available := make([]Schedule, 0, len(schedules))
	for _, schedule := range schedules {
		if !schedule.Available || schedule.Blocked {
			continue
		}
		if schedule.CourtID == nil {
			available = append(available, schedule)
			continue
		}
		occupancy, ok := occupancyByCourt[*schedule.CourtID]
		if !ok {
			occupancy, err = courtOccupancy(ctx, service.store, tenantID, *schedule.CourtID)
			if err != nil {
				return nil, err
			}
			occupancyByCourt[*schedule.CourtID] = occupancy
		}
		scheduleID := schedule.ID
		if conflictIn(occupancy, schedule.Interval(), &scheduleID) != nil {
			continue
		}
		available = append(available, schedule)
	}
	return available, nil
}
