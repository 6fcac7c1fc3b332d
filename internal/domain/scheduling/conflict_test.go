package scheduling

import "testing"

func appt(start, end string, status Status) *Appointment {
	return &Appointment{Date: "2025-06-01", StartTime: start, EndTime: end, Status: status}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Slot
		want bool
	}{
		{"same slot", Slot{"10:00", "10:30"}, Slot{"10:00", "10:30"}, true},
		{"touching after", Slot{"10:00", "10:30"}, Slot{"10:30", "11:00"}, false},
		{"touching before", Slot{"10:00", "10:30"}, Slot{"09:30", "10:00"}, false},
		{"straddles start", Slot{"10:00", "10:30"}, Slot{"09:45", "10:15"}, true},
		{"straddles end", Slot{"10:00", "10:30"}, Slot{"10:15", "10:45"}, true},
		{"contains", Slot{"09:00", "12:00"}, Slot{"10:00", "10:30"}, true},
		{"inside", Slot{"10:00", "10:30"}, Slot{"10:10", "10:20"}, true},
		{"disjoint", Slot{"08:00", "09:00"}, Slot{"14:00", "15:00"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %v, %v", tt.a, tt.b)
			}
		})
	}
}

func TestHasConflict_ConfirmedMorningSlot(t *testing.T) {
	existing := []*Appointment{appt("10:00", "10:30", StatusConfirmed)}

	cases := map[Slot]bool{
		{"10:00", "10:30"}: true,
		{"10:30", "11:00"}: false,
		{"09:45", "10:15"}: true,
	}
	for slot, want := range cases {
		if got := HasConflict(existing, slot); got != want {
			t.Errorf("HasConflict(%v) = %v, want %v", slot, got, want)
		}
	}
}

func TestHasConflict_IgnoresFinishedAppointments(t *testing.T) {
	existing := []*Appointment{
		appt("10:00", "10:30", StatusCancelled),
		appt("11:00", "11:30", StatusCompleted),
	}
	for _, slot := range []Slot{{"10:00", "10:30"}, {"11:00", "11:30"}} {
		if HasConflict(existing, slot) {
			t.Errorf("slot %v must not conflict with cancelled or completed appointments", slot)
		}
	}

	existing = append(existing, appt("10:00", "10:30", StatusPending))
	if !HasConflict(existing, Slot{"10:15", "10:45"}) {
		t.Error("pending appointment must hold its slot")
	}
}

func TestHasConflict_Empty(t *testing.T) {
	if HasConflict(nil, Slot{"10:00", "10:30"}) {
		t.Error("no appointments means no conflict")
	}
}

func TestClockMinutes(t *testing.T) {
	good := map[string]int{"00:00": 0, "09:05": 545, "23:59": 1439}
	for in, want := range good {
		got, err := clockMinutes(in)
		if err != nil || got != want {
			t.Errorf("clockMinutes(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "9:00", "24:00", "12:60", "ab:cd", "12-30", "+9:00", "-0:30", "09:+5", " 9:00", "0x:00"} {
		if _, err := clockMinutes(in); err == nil {
			t.Errorf("clockMinutes(%q) should fail", in)
		}
	}
}

func TestFormatClock(t *testing.T) {
	for minutes, want := range map[int]string{0: "00:00", 545: "09:05", 1440: "24:00"} {
		if got := formatClock(minutes); got != want {
			t.Errorf("formatClock(%d) = %q, want %q", minutes, got, want)
		}
	}
}

func TestCutSlots(t *testing.T) {
	slots := cutSlots("09:00", "10:40", 30)
	want := []Slot{{"09:00", "09:30"}, {"09:30", "10:00"}, {"10:00", "10:30"}}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %v", len(want), slots)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slot %d = %v, want %v", i, slots[i], want[i])
		}
	}
	if got := cutSlots("09:00", "09:20", 30); len(got) != 0 {
		t.Errorf("window shorter than a slot should yield nothing, got %v", got)
	}
}
