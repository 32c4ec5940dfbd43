package models

// UserState is derived from which of the two onboarding records exist.
type UserState int

const (
	// StateUnknown: neither record exists.
	StateUnknown UserState = iota
	// StatePending: subscription proof without a registration.
	StatePending
	// StateActive: both records exist.
	StateActive
	// StateOrphaned: registration without a subscription. Invalid; repaired
	// on the next entry.
	StateOrphaned
)

// DeriveState maps record presence to a UserState.
func DeriveState(registered, subscribed bool) UserState {
	switch {
	case registered && subscribed:
		return StateActive
	case registered:
		return StateOrphaned
	case subscribed:
		return StatePending
	default:
		return StateUnknown
	}
}

func (s UserState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateOrphaned:
		return "orphaned"
	default:
		return "invalid"
	}
}
