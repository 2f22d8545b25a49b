package booking

import (
	"errors"
	"testing"
	"time"
)

func TestIntervalOverlaps(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name     string
		first    Interval
		second   Interval
		expected bool
	}{
		{name: "identical", first: Interval{monday(10, 0), monday(11, 0)}, second: Interval{monday(10, 0), monday(11, 0)}, expected: true},
		{name: "partial", first: Interval{monday(10, 0), monday(11, 0)}, second: Interval{monday(10, 30), monday(11, 30)}, expected: true},
		{name: "contained", first: Interval{monday(9, 0), monday(12, 0)}, second: Interval{monday(10, 0), monday(11, 0)}, expected: true},
		{name: "touching end", first: Interval{monday(10, 0), monday(11, 0)}, second: Interval{monday(11, 0), monday(12, 0)}, expected: false},
		{name: "touching start", first: Interval{monday(11, 0), monday(12, 0)}, second: Interval{monday(10, 0), monday(11, 0)}, expected: false},
		{name: "disjoint", first: Interval{monday(8, 0), monday(9, 0)}, second: Interval{monday(10, 0), monday(11, 0)}, expected: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if got := testCase.first.Overlaps(testCase.second); got != testCase.expected {
				test.Fatalf(errorMismatchMessage, testCase.expected, got)
			}
			if got := Overlaps(testCase.second, testCase.first); got != testCase.expected {
				test.Fatalf("symmetry: "+errorMismatchMessage, testCase.expected, got)
			}
		})
	}
}

func TestNewIntervalRejectsInvertedRange(test *testing.T) {
	test.Parallel()
	if _, err := NewInterval(monday(11, 0), monday(10, 0)); !errors.Is(err, ErrInvalidTimeRange) {
		test.Fatalf(errorMismatchMessage, ErrInvalidTimeRange, err)
	}
	if _, err := NewInterval(monday(10, 0), monday(10, 0)); !errors.Is(err, ErrInvalidRequest) {
		test.Fatalf(errorMismatchMessage, ErrInvalidRequest, err)
	}
}

func TestRentalIntervalDefaultsMissingEnd(test *testing.T) {
	test.Parallel()
	window := RentalInterval(monday(10, 0), nil)
	if window.Duration() != time.Hour {
		test.Fatalf(errorMismatchMessage, time.Hour, window.Duration())
	}
	explicitEnd := monday(12, 0)
	window = RentalSource{Start: monday(10, 0), End: &explicitEnd}.Interval()
	if !window.End.Equal(explicitEnd) {
		test.Fatalf(errorMismatchMessage, explicitEnd, window.End)
	}
}

func TestLessonSourceUsesScheduleWindow(test *testing.T) {
	test.Parallel()
	schedule := Schedule{StartTime: monday(14, 0), EndTime: monday(15, 30)}
	var source IntervalSource = LessonSource{Schedule: schedule}
	window := source.Interval()
	if !window.Start.Equal(schedule.StartTime) || !window.End.Equal(schedule.EndTime) {
		test.Fatalf("unexpected lesson window: %+v", window)
	}
}
