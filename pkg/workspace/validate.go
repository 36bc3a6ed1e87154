package workspace

import "fmt"

// ValidationReport is the outcome of a diagnostic pass over an event log.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateEvents runs integrity checks over an ordered event slice: timestamps
// must be non-decreasing, event ids unique, and versions contiguous. It is a
// debugging aid for operators; the append primitive is what actually enforces
// the version invariant at write time.
func ValidateEvents(events []Event) ValidationReport {
	var errs []string
	seen := make(map[string]int64, len(events))
	var prevTS int64
	var prevVersion int64
	for i, ev := range events {
		if v, dup := seen[ev.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate event id %q at versions %d and %d", ev.ID, v, ev.Version))
		} else {
			seen[ev.ID] = ev.Version
		}
		if i > 0 {
			if ev.Timestamp < prevTS {
				errs = append(errs, fmt.Sprintf("timestamp decreases at version %d (%d < %d)", ev.Version, ev.Timestamp, prevTS))
			}
			if ev.Version != prevVersion+1 {
				errs = append(errs, fmt.Sprintf("version gap: %d follows %d", ev.Version, prevVersion))
			}
		}
		prevTS = ev.Timestamp
		prevVersion = ev.Version
	}
	return ValidationReport{Valid: len(errs) == 0, Errors: errs}
}
