package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		token      string
		wantAction Action
		wantID     string
		wantOK     bool
	}{
		{name: "otp request", token: "otp_request_abc123", wantAction: ActionOTPRequest, wantID: "abc123", wantOK: true},
		{name: "wrong pin beats wrong", token: "wrong_pin_abc123", wantAction: ActionWrongPIN, wantID: "abc123", wantOK: true},
		{name: "wrong code", token: "wrong_abc123", wantAction: ActionWrongCode, wantID: "abc123", wantOK: true},
		{name: "continue", token: "continue_abc123", wantAction: ActionContinue, wantID: "abc123", wantOK: true},
		{name: "id with underscores", token: "continue_a_b_c", wantAction: ActionContinue, wantID: "a_b_c", wantOK: true},
		{name: "wrong code whose id starts with pin", token: "wrong_pinless", wantAction: ActionWrongCode, wantID: "pinless", wantOK: true},
		{name: "empty id", token: "continue_", wantOK: false},
		{name: "blank id", token: "otp_request_  ", wantOK: false},
		{name: "unknown prefix", token: "approve_abc123", wantOK: false},
		{name: "prefix without separator", token: "continueabc", wantOK: false},
		{name: "empty token", token: "", wantOK: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			action, id, ok := Classify(tc.token)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantAction, action)
			assert.Equal(t, tc.wantID, id)
		})
	}
}

func TestActionTokenRoundTrip(t *testing.T) {
	t.Parallel()

	for _, a := range classifyOrder {
		action, id, ok := Classify(a.Token("5f1e"))
		require.True(t, ok, "action %s", a)
		assert.Equal(t, a, action)
		assert.Equal(t, "5f1e", id)
	}
}

func TestActionTarget(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StateApproved, ActionOTPRequest.Target())
	assert.Equal(t, StateWrongPIN, ActionWrongPIN.Target())
	assert.Equal(t, StateWrongCode, ActionWrongCode.Target())
	assert.Equal(t, StateContinue, ActionContinue.Target())
	assert.Equal(t, State(""), Action("nope").Target())

	for _, a := range classifyOrder {
		assert.NotEqual(t, StatePending, a.Target(), "pending is never a transition target")
	}
}

func TestStateTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatePending.Terminal())
	for _, s := range []State{StateApproved, StateWrongPIN, StateWrongCode, StateContinue} {
		assert.True(t, s.Terminal(), "state %s", s)
	}
	assert.False(t, State("bogus").Terminal())
}

func TestParseState(t *testing.T) {
	t.Parallel()

	for _, s := range States {
		got, err := ParseState(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseState("approved-ish")
	assert.ErrorIs(t, err, ErrInvalidState)
}
