package scheduling

import (
	"fmt"
)

// Slot is a half-open [Start, End) range of zero-padded HH:MM clock times.
// Lexical order of the strings is chronological order.
type Slot struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// Overlaps reports whether a and b share any minute. Touching slots
// (a.End == b.Start) do not overlap.
func Overlaps(a, b Slot) bool {
	return a.Start < b.End && a.End > b.Start
}

// HasConflict reports whether candidate overlaps any appointment that still
// holds its slot. Cancelled and completed appointments are ignored.
func HasConflict(existing []*Appointment, candidate Slot) bool {
	for _, a := range existing {
		if !a.Status.HoldsSlot() {
			continue
		}
		if Overlaps(a.Slot(), candidate) {
			return true
		}
	}
	return false
}

// clockMinutes parses zero-padded HH:MM into minutes after midnight. Only
// ASCII digits are accepted, so stored slots keep a chronological lexical
// order.
func clockMinutes(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// formatClock renders minutes after midnight as HH:MM. 1440 renders as 24:00
// so a slot may end at midnight.
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
