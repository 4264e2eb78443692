package relay

import (
	"context"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
)

// QueryStatus returns the state of id; absent ids read as pending.
//
// Reading a terminal state schedules the session for deletion. A store that
// degraded still answers, and the error is returned alongside the state.
func (s *Service) QueryStatus(ctx context.Context, id string) (approval.State, error) {
	st, err := s.store.Get(ctx, id)
	if err != nil && !approval.IsDegraded(err) {
		return "", err
	}

	s.MarkRead(id, st)
	return st, err
}

// MarkRead records that st was delivered to the caller for id by some other path
// (a pushed status update). Terminal states start the deletion countdown.
func (s *Service) MarkRead(id string, st approval.State) {
	if st.Terminal() {
		s.reaper.Schedule(id)
	}
}
