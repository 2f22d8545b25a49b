package booking

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates that start precedes end.
func NewInterval(start time.Time, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, ErrInvalidTimeRange
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching endpoints do not overlap.
func (interval Interval) Overlaps(other Interval) bool {
	return interval.Start.Before(other.End) && other.Start.Before(interval.End)
}

// Duration returns the length of the interval.
func (interval Interval) Duration() time.Duration {
	return interval.End.Sub(interval.Start)
}

// Overlaps is the free-function form of Interval.Overlaps.
func Overlaps(first Interval, second Interval) bool {
	return first.Overlaps(second)
}

// RentalInterval derives a rental window, defaulting a missing end to DefaultRentalDuration.
func RentalInterval(start time.Time, end *time.Time) Interval {
	if end == nil || end.IsZero() {
		return Interval{Start: start, End: start.Add(DefaultRentalDuration)}
	}
	return Interval{Start: start, End: *end}
}

// IntervalSource is anything that occupies a court for a window.
type IntervalSource interface {
	Interval() Interval
}

// RentalSource is a court rental with an optional end.
type RentalSource struct {
	Start time.Time
	End   *time.Time
}

// Interval applies the default rental duration when End is absent.
func (source RentalSource) Interval() Interval {
	return RentalInterval(source.Start, source.End)
}

// LessonSource occupies the window of its schedule.
type LessonSource struct {
	Schedule Schedule
}

// Interval returns the schedule window.
func (source LessonSource) Interval() Interval {
	return source.Schedule.Interval()
}
