package tid

import (
	"sort"
	"testing"
	"time"
)

func TestNextFormat(t *testing.T) {
	key := Next()
	if err := Validate(key); err != nil {
		t.Fatalf("generated key failed validation: %v", err)
	}
	if len(key) != 13 {
		t.Fatalf("expected 13-character key, got %d", len(key))
	}
}

func TestNextStrictlyIncreasing(t *testing.T) {
	keys := make([]string, 100)
	for i := range keys {
		keys[i] = Next()
	}

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	for i := range keys {
		if keys[i] != sorted[i] {
			t.Fatalf("keys not in generation order at %d: %q", i, keys[i])
		}
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] == keys[i-1] {
			t.Fatalf("duplicate key %q", keys[i])
		}
	}
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Microsecond)
	key := FromTime(now)

	got, err := Time(key)
	if err != nil {
		t.Fatalf("extract time: %v", err)
	}
	// The monotonic guard may bump the value by a few microseconds.
	if diff := got.Sub(now); diff < 0 || diff > time.Millisecond {
		t.Fatalf("embedded time drifted: %v", diff)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"short",
		"3jzfcijpj2z2aa", // too long
		"3jzfcijpj2z!",   // invalid character
		"zzzzzzzzzzzzz",  // high bit set
	}
	for _, key := range cases {
		if err := Validate(key); err == nil {
			t.Fatalf("expected %q to fail validation", key)
		}
	}
}
