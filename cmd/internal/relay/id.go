package relay

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/blake2b"
)

// sessionIDBytes is the BLAKE2b digest size; ids are twice as many hex chars.
const sessionIDBytes = 16

// NewSessionID derives an opaque session id from a correlation value and the
// creation time. A ULID supplies the millisecond timestamp plus 80 random bits, so
// two ids for the same phone in the same millisecond still differ.
func NewSessionID(correlation string, now time.Time) (string, error) {
	u, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("session id entropy: %w", err)
	}

	h, err := blake2b.New(sessionIDBytes, nil)
	if err != nil {
		return "", err
	}
	_, _ = h.Write([]byte(correlation))
	_, _ = h.Write(u[:])
	return hex.EncodeToString(h.Sum(nil)), nil
}
