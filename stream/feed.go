// ABOUTME: Append-only event feed for one subscription: ordered log lines or metric samples.
// ABOUTME: Written only by the owning session (or the one-shot fetch path), snapshot-read by the UI.
package stream

import (
	"sync"

	"github.com/runboard/runboard/api"
)

// Observer is notified of every item appended to a Feed. Used to attach the
// sqlite recorder without coupling the feed to storage.
type Observer interface {
	LogLine(line string)
	MetricSample(s api.MetricSample)
}

// Feed holds the ordered, append-only sequence of events for one
// (run, kind) subscription. It lives for the lifetime of the subscription
// and is discarded wholesale when the coordinator restarts for a different
// run; it is never truncated in place.
type Feed struct {
	mu       sync.RWMutex
	lines    []string
	samples  []api.MetricSample
	version  uint64
	observer Observer
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// SetObserver attaches an observer for subsequent appends. Must be called
// before the feed's session starts.
func (f *Feed) SetObserver(o Observer) {
	f.mu.Lock()
	f.observer = o
	f.mu.Unlock()
}

// AppendLine appends a log line unless it is textually identical to the
// immediately preceding line. The suppression is a defense against
// at-least-once redelivery after a reconnect, not a general dedup:
// non-adjacent repeats are kept. Returns whether the line was appended.
func (f *Feed) AppendLine(line string) bool {
	f.mu.Lock()
	if n := len(f.lines); n > 0 && f.lines[n-1] == line {
		f.mu.Unlock()
		return false
	}
	f.lines = append(f.lines, line)
	f.version++
	o := f.observer
	f.mu.Unlock()

	if o != nil {
		o.LogLine(line)
	}
	return true
}

// AppendSample appends a metric sample in arrival order.
func (f *Feed) AppendSample(s api.MetricSample) {
	f.mu.Lock()
	f.samples = append(f.samples, s)
	f.version++
	o := f.observer
	f.mu.Unlock()

	if o != nil {
		o.MetricSample(s)
	}
}

// ReplaceLines installs a historical tail fetched in one shot. It bypasses
// adjacent dedup: historical data is authoritative.
func (f *Feed) ReplaceLines(lines []string) {
	f.mu.Lock()
	f.lines = append([]string(nil), lines...)
	f.version++
	f.mu.Unlock()
}

// ReplaceSamples installs a historical metrics array fetched in one shot.
func (f *Feed) ReplaceSamples(samples []api.MetricSample) {
	f.mu.Lock()
	f.samples = append([]api.MetricSample(nil), samples...)
	f.version++
	f.mu.Unlock()
}

// Lines returns a snapshot of the log line sequence.
func (f *Feed) Lines() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.lines...)
}

// Samples returns a snapshot of the metric sample sequence.
func (f *Feed) Samples() []api.MetricSample {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]api.MetricSample(nil), f.samples...)
}

// Version increments on every mutation. The UI polls it to decide whether a
// re-render is worth doing.
func (f *Feed) Version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}
