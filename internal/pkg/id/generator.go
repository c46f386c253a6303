package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// placeholderRandLength is the number of random bytes in a placeholder ID suffix
const placeholderRandLength = 4

var (
	randReader = rand.Reader

	// placeholderSeq is the monotonic counter shared by all placeholder IDs
	// generated in this process. It guarantees placeholders never collide
	// even when the random suffix repeats.
	placeholderSeq atomic.Uint64
)

// NewPlaceholder generates a unique placeholder ID of the form
// "temp-<monotonic>-<random>" for detail records that arrive without a
// usable ID. Callers can still key rows on it without collision.
func NewPlaceholder() string {
	seq := placeholderSeq.Add(1)

	buf := make([]byte, placeholderRandLength)
	if _, err := randReader.Read(buf); err != nil {
		// Fallback to time-based suffix if random fails
		return fmt.Sprintf("temp-%d-%08x", seq, time.Now().UnixNano()&0xffffffff)
	}

	return fmt.Sprintf("temp-%d-%s", seq, hex.EncodeToString(buf))
}

// IsPlaceholder reports whether an ID was synthesized by NewPlaceholder
func IsPlaceholder(id string) bool {
	return len(id) > 5 && id[:5] == "temp-"
}

// NewUUID generates a new UUID v4
func NewUUID() string {
	return uuid.New().String()
}

// NewUUIDFromString parses a UUID from string
func NewUUIDFromString(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
