package clinic

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

var (
	ErrDoctorUnavailable = errors.New("doctor has no hours on this day")
	ErrTimeOutsideHours  = errors.New("time is outside the doctor's available hours")
	ErrMalformedDate     = errors.New("date must be formatted as YYYY-MM-DD")
	ErrMalformedTime     = errors.New("time must be formatted as HH:MM")
	ErrWindowsOverlap    = errors.New("availability windows overlap")
)

const dateLayout = "2006-01-02"

// CheckAvailability reports whether the requested date and clock time fall
// inside one of the doctor's weekly windows. Windows are half-open: a request
// exactly at a window's end is rejected. All times share one local convention;
// there is no timezone handling.
func CheckAvailability(av Availability, date, clock string) error {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedDate, date)
	}

	requested, err := minutesOfDay(clock)
	if err != nil {
		return err
	}

	windows := av[day.Weekday().String()]
	if len(windows) == 0 {
		return ErrDoctorUnavailable
	}

	for _, w := range windows {
		start, err := minutesOfDay(w.Start)
		if err != nil {
			return err
		}
		end, err := minutesOfDay(w.End)
		if err != nil {
			return err
		}
		if requested >= start && requested < end {
			return nil
		}
	}

	return ErrTimeOutsideHours
}

// NormalizeAvailability sorts each day's windows by start time and rejects
// malformed, inverted, or overlapping windows. Called whenever a doctor's
// availability is written.
func NormalizeAvailability(av Availability) (Availability, error) {
	if av == nil {
		return Availability{}, nil
	}

	out := make(Availability, len(av))
	for day, windows := range av {
		sorted := make([]Window, len(windows))
		copy(sorted, windows)

		var parseErr error
		sort.Slice(sorted, func(i, j int) bool {
			a, err := minutesOfDay(sorted[i].Start)
			if err != nil {
				parseErr = err
			}
			b, err := minutesOfDay(sorted[j].Start)
			if err != nil {
				parseErr = err
			}
			return a < b
		})
		if parseErr != nil {
			return nil, parseErr
		}

		prevEnd := -1
		for _, w := range sorted {
			start, err := minutesOfDay(w.Start)
			if err != nil {
				return nil, err
			}
			end, err := minutesOfDay(w.End)
			if err != nil {
				return nil, err
			}
			if end <= start {
				return nil, fmt.Errorf("%w: window %s-%s on %s", ErrWindowsOverlap, w.Start, w.End, day)
			}
			if start < prevEnd {
				return nil, fmt.Errorf("%w: on %s", ErrWindowsOverlap, day)
			}
			prevEnd = end
		}
		out[day] = sorted
	}
	return out, nil
}

// minutesOfDay converts a 24h "HH:MM" string to minutes since midnight.
func minutesOfDay(clock string) (int, error) {
	if len(clock) != 5 || clock[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, clock)
	}
	h, err := strconv.Atoi(clock[:2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, clock)
	}
	m, err := strconv.Atoi(clock[3:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, clock)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, clock)
	}
	return h*60 + m, nil
}
