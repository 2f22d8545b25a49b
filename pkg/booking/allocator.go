package booking

import (
	"context"
	"time"
)

// FindAvailableCourt returns the first active court, in listing order, free over [start, end).
func (service *Service) FindAvailableCourt(ctx context.Context, tenantID TenantID, start time.Time, end time.Time) (Court, error) {
	window, err := NewInterval(start, end)
	if err != nil {
		return Court{}, err
	}
	courts, err := service.store.ListActiveCourts(ctx, tenantID)
	if err != nil {
		return Court{}, err
	}
	for _, court := range courts {
		conflict, err := findConflict(ctx, service.store, tenantID, court.ID, window, nil)
		if err != nil {
			return Court{}, err
		}
		if conflict == nil {
			return court, nil
		}
	}
	return Court{}, ErrNoCourtAvailable
}
