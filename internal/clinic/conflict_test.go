package clinic

import "testing"

func TestFindConflict(t *testing.T) {
	existing := []Appointment{
		{ID: "a1", DoctorID: "doc1", Date: "2026-01-05", Time: "09:00", Status: StatusScheduled},
		{ID: "a2", DoctorID: "doc1", Date: "2026-01-05", Time: "10:00", Status: StatusCancelled},
		{ID: "a3", DoctorID: "doc2", Date: "2026-01-05", Time: "09:00", Status: StatusCompleted},
	}

	if c := FindConflict(existing, "doc1", "2026-01-05", "09:00"); c == nil || c.ID != "a1" {
		t.Fatalf("expected conflict with a1, got %+v", c)
	}
	if c := FindConflict(existing, "doc2", "2026-01-05", "09:00"); c == nil || c.ID != "a3" {
		t.Fatalf("completed appointment should conflict, got %+v", c)
	}
	if c := FindConflict(existing, "doc1", "2026-01-05", "10:00"); c != nil {
		t.Fatalf("cancelled appointment must not block, got %+v", c)
	}
	if c := FindConflict(existing, "doc1", "2026-01-06", "09:00"); c != nil {
		t.Fatalf("different date must not conflict, got %+v", c)
	}
	if c := FindConflict(existing, "doc1", "2026-01-05", "09:30"); c != nil {
		t.Fatalf("different time must not conflict, got %+v", c)
	}
}
