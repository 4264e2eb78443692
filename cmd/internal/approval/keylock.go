package approval

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const keyLockStripes = 64

// keyLock serializes operations per id with a fixed set of mutex stripes.
// Distinct ids only contend when they hash to the same stripe.
type keyLock struct {
	stripes [keyLockStripes]sync.Mutex
}

func (k *keyLock) lock(id string) func() {
	m := &k.stripes[xxhash.Sum64String(id)%keyLockStripes]
	m.Lock()
	return m.Unlock
}
