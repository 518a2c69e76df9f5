package notify

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Deduper suppresses repeated identical notifications within a time window.
// Debug servers and discovery polls can emit the same warning every second;
// the user only needs to see it once per window.
type Deduper struct {
	mu     sync.Mutex
	next   Notifier
	window time.Duration
	clock  clock.Clock
	seen   map[string]dedupeEntry
}

type dedupeEntry struct {
	count    int
	lastSeen time.Time
}

// NewDeduper wraps next, collapsing identical (severity, message) pairs seen
// within window. window=0 disables suppression.
func NewDeduper(next Notifier, window time.Duration, clk clock.Clock) *Deduper {
	if clk == nil {
		clk = clock.New()
	}
	return &Deduper{
		next:   next,
		window: window,
		clock:  clk,
		seen:   make(map[string]dedupeEntry),
	}
}

func (d *Deduper) Notify(severity Severity, message string) {
	if d.window <= 0 {
		d.next.Notify(severity, message)
		return
	}

	key := string(severity) + "\x00" + message
	now := d.clock.Now()

	d.mu.Lock()
	d.cleanOld(now)
	entry, dup := d.seen[key]
	entry.count++
	entry.lastSeen = now
	d.seen[key] = entry
	d.mu.Unlock()

	if !dup {
		d.next.Notify(severity, message)
	}
}

// Reset clears suppression state, e.g. between debug sessions.
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]dedupeEntry)
}

func (d *Deduper) cleanOld(now time.Time) {
	cutoff := now.Add(-d.window)
	for key, entry := range d.seen {
		if entry.lastSeen.Before(cutoff) {
			delete(d.seen, key)
		}
	}
}
