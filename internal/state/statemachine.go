package state

import "fmt"

// Round phases. A round has no stored status; its phase is derived from
// whether it has tickets and whether a draw was committed.
const (
	PhaseEmpty = "empty" // no tickets generated
	PhaseOpen  = "open"  // tickets on sale, not drawn
	PhaseDrawn = "drawn" // prize batch committed, trading closed
)

// Actions on a round.
const (
	ActGenerate = "generate"
	ActPurchase = "purchase"
	ActDraw     = "draw"
	ActRedeem   = "redeem"
	ActReset    = "reset"
)

// Phase derives the phase of a round.
func Phase(hasTickets, drawn bool) string {
	switch {
	case drawn:
		return PhaseDrawn
	case hasTickets:
		return PhaseOpen
	}
	return PhaseEmpty
}

// TransitionError is returned for an action the phase does not allow.
type TransitionError struct {
	Phase  string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s --%s--> ?", e.Phase, e.Action)
}

// NextState returns the phase after action, or a *TransitionError.
// Reset is allowed from any phase and always lands in empty.
func NextState(cur, action string) (string, error) {
	if action == ActReset {
		return PhaseEmpty, nil
	}
	switch cur {
	case PhaseEmpty:
		if action == ActGenerate {
			return PhaseOpen, nil
		}
	case PhaseOpen:
		switch action {
		case ActGenerate, ActPurchase:
			return PhaseOpen, nil
		case ActDraw:
			return PhaseDrawn, nil
		}
	case PhaseDrawn:
		if action == ActRedeem {
			return PhaseDrawn, nil
		}
	}
	return cur, &TransitionError{Phase: cur, Action: action}
}

// Allow reports whether action is legal in phase.
func Allow(phase, action string) error {
	_, err := NextState(phase, action)
	return err
}
