package booking

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayHours is an opening window in whole hours, open inclusive and close exclusive.
type DayHours struct {
	Open  int
	Close int
}

// OperatingHours maps weekdays to their opening window. A missing weekday is closed.
type OperatingHours struct {
	days map[time.Weekday]DayHours
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

type rawDayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// DefaultOperatingHours opens every day from DefaultOpenHour to DefaultCloseHour.
func DefaultOperatingHours() OperatingHours {
	days := make(map[time.Weekday]DayHours, len(weekdayNames))
	for _, weekday := range weekdayNames {
		days[weekday] = DayHours{Open: DefaultOpenHour, Close: DefaultCloseHour}
	}
	return OperatingHours{days: days}
}

// ParseOperatingHours decodes {"monday":{"open":"06:00","close":"22:00"}}.
// Empty input falls back to DefaultOperatingHours.
func ParseOperatingHours(raw []byte) (OperatingHours, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return DefaultOperatingHours(), nil
	}
	var decoded map[string]rawDayHours
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return OperatingHours{}, fmt.Errorf("%w: operating hours: %v", ErrConfiguration, err)
	}
	days := make(map[time.Weekday]DayHours, len(decoded))
	for name, window := range decoded {
		weekday, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return OperatingHours{}, fmt.Errorf("%w: unknown weekday %q", ErrConfiguration, name)
		}
		openHour, err := parseWholeHour(window.Open)
		if err != nil {
			return OperatingHours{}, err
		}
		closeHour, err := parseWholeHour(window.Close)
		if err != nil {
			return OperatingHours{}, err
		}
		if openHour >= closeHour {
			return OperatingHours{}, fmt.Errorf("%w: %s opens at %s and closes at %s", ErrConfiguration, name, window.Open, window.Close)
		}
		days[weekday] = DayHours{Open: openHour, Close: closeHour}
	}
	return OperatingHours{days: days}, nil
}

// For returns the window of a weekday and whether the tenant is open that day.
func (hours OperatingHours) For(weekday time.Weekday) (DayHours, bool) {
	window, ok := hours.days[weekday]
	return window, ok
}

func parseWholeHour(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) == 0 || len(parts) > 2 {
		return 0, fmt.Errorf("%w: malformed hour %q", ErrConfiguration, raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: malformed hour %q", ErrConfiguration, raw)
	}
	if len(parts) == 2 {
		minutes, err := strconv.Atoi(parts[1])
		if err != nil || minutes != 0 {
			return 0, fmt.Errorf("%w: hour %q is not a whole hour", ErrConfiguration, raw)
		}
	}
	if hour < 0 || hour > hoursPerDay {
		return 0, fmt.Errorf("%w: hour %q out of range", ErrConfiguration, raw)
	}
	return hour, nil
}

// Location resolves the tenant timezone, UTC when unset.
func (settings TenantSettings) Location() (*time.Location, error) {
	name := strings.TrimSpace(settings.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrConfiguration, name, err)
	}
	return location, nil
}

// Hours parses the tenant operating hours.
func (settings TenantSettings) Hours() (OperatingHours, error) {
	return ParseOperatingHours(settings.OperatingHours)
}
