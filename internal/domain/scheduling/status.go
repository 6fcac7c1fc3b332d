package scheduling

// Status of an appointment.
//
//	PENDING   -> CONFIRMED | CANCELLED
//	CONFIRMED -> COMPLETED | CANCELLED
//	CANCELLED, COMPLETED: terminal
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCancelled: {},
	StatusCompleted: {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// HoldsSlot reports whether an appointment in s blocks its time range.
func (s Status) HoldsSlot() bool {
	return s == StatusPending || s == StatusConfirmed
}
