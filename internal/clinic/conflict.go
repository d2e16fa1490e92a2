package clinic

import "errors"

var ErrSlotTaken = errors.New("slot already has a booked appointment")

// FindConflict scans existing appointments for one occupying the same
// (doctor, date, time) slot. Cancelled appointments never block rebooking.
func FindConflict(appointments []Appointment, doctorID, date, clock string) *Appointment {
	for i := range appointments {
		a := &appointments[i]
		if a.DoctorID == doctorID && a.Date == date && a.Time == clock && a.Status != StatusCancelled {
			return a
		}
	}
	return nil
}
