// Package tid generates timestamp-ordered record keys (TIDs).
//
// A TID packs 53 bits of microseconds since the Unix epoch and a 10-bit
// clock identifier into a 64-bit value, encoded as 13 characters of the
// sortable base32 alphabet. Keys generated by one process are strictly
// increasing, so lexicographic order matches creation order.
package tid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"
)

const alphabet = "234567abcdefghijklmnopqrstuvwxyz"

const encodedLen = 13

var (
	mu      sync.Mutex
	lastVal uint64
	clockID uint64 = randomClockID()
)

func randomClockID() uint64 {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// A zero clock ID still yields valid, ordered keys.
		return 0
	}
	return uint64(binary.BigEndian.Uint16(buf[:])) & 0x3FF
}

// Next returns a new TID. Successive calls return strictly increasing keys
// even when the clock does not advance between calls.
func Next() string {
	return FromTime(time.Now())
}

// FromTime returns a TID for the given wall-clock time, preserving the
// process-wide monotonic guarantee.
func FromTime(t time.Time) string {
	micros := uint64(t.UnixMicro()) & ((1 << 53) - 1)
	val := micros<<10 | clockID

	mu.Lock()
	if val <= lastVal {
		val = lastVal + 1
	}
	lastVal = val
	mu.Unlock()

	return encode(val)
}

func encode(val uint64) string {
	var out [encodedLen]byte
	for i := encodedLen - 1; i >= 0; i-- {
		out[i] = alphabet[val&0x1F]
		val >>= 5
	}
	return string(out[:])
}

// Validate reports whether key is a well-formed TID.
func Validate(key string) error {
	if len(key) != encodedLen {
		return fmt.Errorf("tid must be %d characters, got %d", encodedLen, len(key))
	}
	for _, r := range key {
		if !strings.ContainsRune(alphabet, r) {
			return fmt.Errorf("tid contains invalid character %q", r)
		}
	}
	// The leading bit of the packed value must be zero.
	if strings.IndexByte(alphabet, key[0]) > 7 {
		return fmt.Errorf("tid high bit must be zero")
	}
	return nil
}

// Time extracts the timestamp embedded in a TID.
func Time(key string) (time.Time, error) {
	if err := Validate(key); err != nil {
		return time.Time{}, err
	}
	var val uint64
	for i := 0; i < encodedLen; i++ {
		val = val<<5 | uint64(strings.IndexByte(alphabet, key[i]))
	}
	return time.UnixMicro(int64(val >> 10)), nil
}
