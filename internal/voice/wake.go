package voice

import (
	"strings"
	"sync"
	"time"
)

// wakePhrases are checked as substrings of normalized text. The foxy variants
// cover a common recognition misspelling.
var wakePhrases = []string{
	"hey foxie",
	"hi foxie",
	"hello foxie",
	"ok foxie",
	"okay foxie",
	"hey foxy",
	"hi foxy",
}

const DefaultWakeTimeout = 30 * time.Second

// WakeDetector tracks whether the assistant is actively listening for
// commands. Wakefulness expires after a fixed inactivity window measured from
// the most recent wake or accepted command; the deadline is recomputed on each
// check, so there is always exactly one live timeout and nothing to cancel.
type WakeDetector struct {
	mu       sync.Mutex
	timeout  time.Duration
	deadline time.Time
}

func NewWakeDetector(timeout time.Duration) *WakeDetector {
	if timeout <= 0 {
		timeout = DefaultWakeTimeout
	}
	return &WakeDetector{timeout: timeout}
}

// Check inspects normalized text for a wake phrase. It reports whether the
// detector is awake after the check and whether this text triggered the wake.
// A wake phrase seen while already awake does not re-trigger.
func (d *WakeDetector) Check(normalized string, now time.Time) (awake, triggered bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	wasAwake := !d.deadline.IsZero() && now.Before(d.deadline)
	if ContainsWakePhrase(normalized) {
		d.deadline = now.Add(d.timeout)
		return true, !wasAwake
	}
	return wasAwake, false
}

// Refresh restarts the inactivity window. Called after every accepted command.
func (d *WakeDetector) Refresh(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.deadline.IsZero() && now.Before(d.deadline) {
		d.deadline = now.Add(d.timeout)
	}
}

// Awake reports the wake state at the given instant.
func (d *WakeDetector) Awake(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.deadline.IsZero() && now.Before(d.deadline)
}

// Sleep forces the detector back to the idle state.
func (d *WakeDetector) Sleep() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deadline = time.Time{}
}

// ContainsWakePhrase reports whether normalized text mentions any wake phrase.
func ContainsWakePhrase(normalized string) bool {
	for _, p := range wakePhrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// StripWakePhrase removes one leading wake phrase occurrence and returns the
// trimmed residue. Recognition engines sometimes emit the phrase twice for a
// single utterance, so callers strip twice.
func StripWakePhrase(normalized string) string {
	for _, p := range wakePhrases {
		if idx := strings.Index(normalized, p); idx >= 0 {
			residue := normalized[:idx] + normalized[idx+len(p):]
			return strings.TrimSpace(strings.Trim(strings.TrimSpace(residue), ","))
		}
	}
	return normalized
}
