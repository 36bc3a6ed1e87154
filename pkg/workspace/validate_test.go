package workspace

import "testing"

func TestValidateEventsClean(t *testing.T) {
	events := []Event{
		{ID: "e1", Version: 1, Timestamp: 100},
		{ID: "e2", Version: 2, Timestamp: 100},
		{ID: "e3", Version: 3, Timestamp: 150},
	}
	rep := ValidateEvents(events)
	if !rep.Valid || len(rep.Errors) != 0 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestValidateEventsFindsProblems(t *testing.T) {
	events := []Event{
		{ID: "e1", Version: 1, Timestamp: 100},
		{ID: "e1", Version: 2, Timestamp: 90},
		{ID: "e3", Version: 4, Timestamp: 95},
	}
	rep := ValidateEvents(events)
	if rep.Valid {
		t.Fatal("want invalid")
	}
	// Duplicate id, decreasing timestamp (twice is fine to miss; once must be
	// caught), and a version gap.
	if len(rep.Errors) < 3 {
		t.Fatalf("errors=%v", rep.Errors)
	}
}

func TestValidateEventsEmpty(t *testing.T) {
	if rep := ValidateEvents(nil); !rep.Valid {
		t.Fatalf("report=%+v", rep)
	}
}
