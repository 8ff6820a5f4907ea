package chat

// Status is the delivery state of a message, combining phase and coverage.
type Status string

const (
	StatusPending          Status = "pending"
	StatusSent             Status = "sent"
	StatusDeliveredPartial Status = "delivered_partial"
	StatusDeliveredAll     Status = "delivered_all"
	StatusSeenPartial      Status = "seen_partial"
	StatusSeenAll          Status = "seen_all"
)

// Phase orders statuses regardless of coverage.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhasePending
	PhaseSent
	PhaseDelivered
	PhaseSeen
)

// Coverage tells whether a phase was reached by some or all participants.
type Coverage int

const (
	CoverageNone Coverage = iota
	CoveragePartial
	CoverageAll
)

// AckStatus is what a client acknowledges for a message.
type AckStatus string

const (
	AckDelivered AckStatus = "delivered"
	AckSeen      AckStatus = "seen"
)

// Valid reports whether s is one of the six known statuses.
func (s Status) Valid() bool {
	return s.Phase() != PhaseUnknown
}

// Phase returns the phase component of s.
func (s Status) Phase() Phase {
	switch s {
	case StatusPending:
		return PhasePending
	case StatusSent:
		return PhaseSent
	case StatusDeliveredPartial, StatusDeliveredAll:
		return PhaseDelivered
	case StatusSeenPartial, StatusSeenAll:
		return PhaseSeen
	default:
		return PhaseUnknown
	}
}

// Coverage returns the coverage component of s.
func (s Status) Coverage() Coverage {
	switch s {
	case StatusDeliveredPartial, StatusSeenPartial:
		return CoveragePartial
	case StatusDeliveredAll, StatusSeenAll:
		return CoverageAll
	default:
		return CoverageNone
	}
}

// Regresses reports whether moving from s to next goes back to an earlier phase.
func (s Status) Regresses(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.Phase() < s.Phase()
}

// Project derives a status from server-supplied aggregate counters.
func Project(delivered, seen, total int) Status {
	if total <= 0 {
		return StatusSent
	}
	switch {
	case seen >= total:
		return StatusSeenAll
	case seen > 0:
		return StatusSeenPartial
	case delivered >= total:
		return StatusDeliveredAll
	case delivered > 0:
		return StatusDeliveredPartial
	default:
		return StatusSent
	}
}
