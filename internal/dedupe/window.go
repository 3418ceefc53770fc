// Package dedupe provides time-bounded idempotency windows keyed by content
// fingerprints or message identifiers. Each window is an owned value passed
// into the component that needs it; nothing here is global. State lives in
// memory only, so a restart resets every window (at-least-once across
// restarts is accepted).
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Window maps a key to the time it was first marked. Entries older than the
// TTL are pruned lazily on lookup and by Cleanup.
type Window struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time

	now func() time.Time // overridable in tests
}

func NewWindow(ttl time.Duration) *Window {
	return &Window{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Seen reports whether key was marked within the TTL. An expired entry is
// deleted on the spot. The empty key is never considered seen.
func (w *Window) Seen(key string) bool {
	if key == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	at, ok := w.entries[key]
	if !ok {
		return false
	}
	if w.now().Sub(at) > w.ttl {
		delete(w.entries, key)
		return false
	}
	return true
}

// Mark records key as processed now. Empty keys are ignored so that events
// without an identifier are treated as always-new.
func (w *Window) Mark(key string) {
	if key == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[key] = w.now()
}

// MarkIfNew marks key and reports true if it was not already present within
// the TTL. Check and mark happen under one lock so concurrent callers cannot
// both claim the same key.
func (w *Window) MarkIfNew(key string) bool {
	if key == "" {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if at, ok := w.entries[key]; ok && w.now().Sub(at) <= w.ttl {
		return false
	}
	w.entries[key] = w.now()
	return true
}

// Cleanup removes every expired entry and returns how many were dropped.
func (w *Window) Cleanup() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.ttl)
	removed := 0
	for key, at := range w.entries {
		if at.Before(cutoff) {
			delete(w.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Fingerprint hashes s into a stable hex key. Used for article identifiers
// and delivery keys so every window stores keys in one uniform format.
func Fingerprint(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
