package clinic

import (
	"errors"
	"testing"
)

func TestCheckAvailability(t *testing.T) {
	av := Availability{
		// 2026-01-05 is a Monday
		"Monday": {{Start: "09:00", End: "12:00"}, {Start: "13:00", End: "17:00"}},
	}

	tests := []struct {
		name    string
		date    string
		clock   string
		wantErr error
	}{
		{"start of window accepted", "2026-01-05", "09:00", nil},
		{"inside window accepted", "2026-01-05", "11:59", nil},
		{"window end rejected", "2026-01-05", "12:00", ErrTimeOutsideHours},
		{"between windows rejected", "2026-01-05", "12:30", ErrTimeOutsideHours},
		{"second window accepted", "2026-01-05", "16:59", nil},
		{"before opening rejected", "2026-01-05", "08:59", ErrTimeOutsideHours},
		{"day without hours", "2026-01-06", "10:00", ErrDoctorUnavailable},
		{"malformed date", "05-01-2026", "10:00", ErrMalformedDate},
		{"time without colon", "2026-01-05", "0900a", ErrMalformedTime},
		{"hour out of range", "2026-01-05", "24:00", ErrMalformedTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAvailability(av, tt.date, tt.clock)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CheckAvailability(%s %s) = %v, want nil", tt.date, tt.clock, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckAvailability(%s %s) = %v, want %v", tt.date, tt.clock, err, tt.wantErr)
			}
		})
	}
}

func TestCheckAvailabilityEmptyMap(t *testing.T) {
	if err := CheckAvailability(nil, "2026-01-05", "10:00"); !errors.Is(err, ErrDoctorUnavailable) {
		t.Fatalf("got %v, want ErrDoctorUnavailable", err)
	}
}

func TestNormalizeAvailability(t *testing.T) {
	t.Run("sorts windows", func(t *testing.T) {
		out, err := NormalizeAvailability(Availability{
			"Friday": {{Start: "13:00", End: "15:00"}, {Start: "09:00", End: "12:00"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if out["Friday"][0].Start != "09:00" {
			t.Fatalf("windows not sorted: %+v", out["Friday"])
		}
	})

	t.Run("rejects overlap", func(t *testing.T) {
		_, err := NormalizeAvailability(Availability{
			"Friday": {{Start: "09:00", End: "12:00"}, {Start: "11:00", End: "14:00"}},
		})
		if !errors.Is(err, ErrWindowsOverlap) {
			t.Fatalf("got %v, want ErrWindowsOverlap", err)
		}
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		_, err := NormalizeAvailability(Availability{
			"Friday": {{Start: "12:00", End: "09:00"}},
		})
		if !errors.Is(err, ErrWindowsOverlap) {
			t.Fatalf("got %v, want ErrWindowsOverlap", err)
		}
	})

	t.Run("touching windows allowed", func(t *testing.T) {
		if _, err := NormalizeAvailability(Availability{
			"Friday": {{Start: "09:00", End: "12:00"}, {Start: "12:00", End: "15:00"}},
		}); err != nil {
			t.Fatalf("touching windows should be valid: %v", err)
		}
	})
}
