package utils

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// GenerateReference returns a sortable, unique reference such as
// TXN-01HZX3J5W6Q8M0B8K5V3Y4T2ZC.
func GenerateReference(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy)
	entropyMu.Unlock()

	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return id.String()
	}
	return prefix + "-" + id.String()
}
