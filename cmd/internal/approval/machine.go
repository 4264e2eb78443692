package approval

import "context"

// Transition records one applied operator action.
type Transition struct {
	ID     string
	Action Action
	To     State
}

// Apply classifies token and writes the mapped state for the embedded id.
//
// The current state is not consulted: any recognized action overwrites whatever is
// stored. ok is false for unrecognized tokens, in which case the store is untouched.
// A degraded store still yields ok=true together with an ErrNotDurable error.
func Apply(ctx context.Context, store Store, token string) (Transition, bool, error) {
	action, id, ok := Classify(token)
	if !ok {
		return Transition{}, false, nil
	}

	t := Transition{ID: id, Action: action, To: action.Target()}
	if err := store.Put(ctx, id, t.To); err != nil {
		if IsDegraded(err) {
			return t, true, err
		}
		return Transition{}, false, err
	}
	return t, true, nil
}
