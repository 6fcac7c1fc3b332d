package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

// Availability is the free slots of a doctor on one date.
type Availability struct {
	DoctorID    uuid.UUID `json:"doctor_id"`
	Date        string    `json:"date"`
	SlotMinutes int       `json:"slot_minutes"`
	Slots       []Slot    `json:"slots"`
}

// cutSlots splits [start, end) into consecutive slots of step minutes. A
// trailing remainder shorter than step is dropped.
func cutSlots(start, end string, step int) []Slot {
	from, err := clockMinutes(start)
	if err != nil {
		return nil
	}
	to, err := clockMinutes(end)
	if err != nil || step <= 0 {
		return nil
	}
	var slots []Slot
	for m := from; m+step <= to; m += step {
		slots = append(slots, Slot{Start: formatClock(m), End: formatClock(m + step)})
	}
	return slots
}

// Availability lists the doctor's bookable slots on date: the working
// windows of that weekday cut into slot_minutes pieces, minus anything held
// by an appointment, blocked, or already started.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date string) (*Availability, error) {
	day, err := time.ParseInLocation(dateLayout, date, s.opts.Location)
	if err != nil {
		return nil, apperr.Invalid("invalid date")
	}
	doc, err := s.activeDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	step := doc.SlotMinutes
	if step <= 0 {
		step = s.opts.DefaultSlotMinutes
	}
	out := &Availability{DoctorID: doc.ID, Date: date, SlotMinutes: step, Slots: []Slot{}}

	now := s.clock()
	today := now.Format(dateLayout)
	if date < today {
		return out, nil
	}

	hours, err := s.hours.ListByDoctor(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	weekday := int(day.Weekday())
	windows := lo.Filter(hours, func(w *WorkingHours, _ int) bool {
		return w.IsActive && w.DayOfWeek == weekday
	})
	if len(windows) == 0 {
		return out, nil
	}

	existing, err := s.appointments.ActiveForDoctorDate(ctx, doc.ID, date)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocked.ListByDoctor(ctx, doc.ID, date, date)
	if err != nil {
		return nil, err
	}

	nowClock := now.Format("15:04")
	candidates := lo.FlatMap(windows, func(w *WorkingHours, _ int) []Slot {
		return cutSlots(w.StartTime, w.EndTime, step)
	})
	free := lo.Filter(candidates, func(slot Slot, _ int) bool {
		if date == today && slot.Start <= nowClock {
			return false
		}
		if HasConflict(existing, slot) {
			return false
		}
		return !lo.ContainsBy(blocks, func(b *BlockedSlot) bool { return Overlaps(b.Slot(), slot) })
	})
	free = lo.UniqBy(free, func(slot Slot) string { return slot.Start })
	sort.Slice(free, func(i, j int) bool { return free[i].Start < free[j].Start })

	out.Slots = free
	return out, nil
}
