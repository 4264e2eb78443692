package approval

import (
	"fmt"
	"strings"
)

// State is the decision recorded for a session.
type State string

const (
	// StatePending is the creation state and the value read for absent sessions.
	StatePending State = "pending"
	// StateApproved means the operator asked for the one-time code.
	StateApproved State = "approved"
	// StateWrongPIN means the operator rejected the PIN.
	StateWrongPIN State = "wrong_pin"
	// StateWrongCode means the operator rejected the one-time code.
	StateWrongCode State = "wrong_code"
	// StateContinue means the operator accepted the one-time code.
	StateContinue State = "continue"
)

// States lists the closed enumeration in declaration order.
var States = []State{StatePending, StateApproved, StateWrongPIN, StateWrongCode, StateContinue}

// Valid reports whether s belongs to the enumeration.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateWrongPIN, StateWrongCode, StateContinue:
		return true
	default:
		return false
	}
}

// Terminal reports whether an operator decision has been recorded.
func (s State) Terminal() bool {
	return s.Valid() && s != StatePending
}

func (s State) String() string { return string(s) }

// ParseState parses a stored state value.
func ParseState(raw string) (State, error) {
	s := State(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
	}
	return s, nil
}

// Action is an operator decision carried by an action token.
type Action string

const (
	// ActionOTPRequest approves the PIN and asks the user for a one-time code.
	ActionOTPRequest Action = "otp_request"
	// ActionWrongPIN rejects the PIN.
	ActionWrongPIN Action = "wrong_pin"
	// ActionWrongCode rejects the one-time code.
	ActionWrongCode Action = "wrong"
	// ActionContinue accepts the one-time code.
	ActionContinue Action = "continue"
)

// classifyOrder is the prefix test order. wrong_pin_ must precede wrong_ because
// every wrong_pin_ token also starts with wrong_.
var classifyOrder = []Action{ActionOTPRequest, ActionWrongPIN, ActionWrongCode, ActionContinue}

// Prefix returns the token prefix for a.
func (a Action) Prefix() string { return string(a) + "_" }

// Token embeds id into an action token.
func (a Action) Token(id string) string { return a.Prefix() + id }

// Target returns the state a transition triggered by a moves the session to.
func (a Action) Target() State {
	switch a {
	case ActionOTPRequest:
		return StateApproved
	case ActionWrongPIN:
		return StateWrongPIN
	case ActionWrongCode:
		return StateWrongCode
	case ActionContinue:
		return StateContinue
	default:
		return ""
	}
}

// Classify resolves an action token into its action and embedded session id.
// Tokens with an unknown prefix or an empty id are not recognized.
func Classify(token string) (Action, string, bool) {
	for _, a := range classifyOrder {
		p := a.Prefix()
		if !strings.HasPrefix(token, p) {
			continue
		}
		id := token[len(p):]
		if strings.TrimSpace(id) == "" {
			return "", "", false
		}
		return a, id, true
	}
	return "", "", false
}
