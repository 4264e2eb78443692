package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvelopeValidate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	cases := []struct {
		name string
		env  Envelope
		ok   bool
	}{
		{name: "status", env: Envelope{V: Version, Type: TypeStatus, TS: now}, ok: true},
		{name: "fetch", env: Envelope{V: Version, Type: TypeStatusFetch}, ok: true},
		{name: "missing version", env: Envelope{Type: TypeStatus}},
		{name: "wrong version", env: Envelope{V: "v2", Type: TypeStatus}},
		{name: "missing type", env: Envelope{V: Version, Type: " "}},
		{name: "unknown type", env: Envelope{V: Version, Type: "hello"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.env.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
