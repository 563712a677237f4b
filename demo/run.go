// ABOUTME: Synthetic pipeline run for the demo orchestrator: generates log lines and metric
// ABOUTME: samples on a ticker and fans them out to any number of stream subscribers.
package demo

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runboard/runboard/api"
)

var logPhrases = []string{
	"resolving task graph",
	"pulling image registry.local/worker:latest",
	"executing step",
	"uploading artifact",
	"checkpoint written",
	"waiting on upstream dependency",
}

// Run is one synthetic pipeline execution. It owns its own generator
// goroutine and fans produced events out to subscribers.
type Run struct {
	mu         sync.Mutex
	info       api.Run
	lines      []string
	samples    []api.MetricSample
	logSubs    map[chan string]struct{}
	metricSubs map[chan api.MetricSample]struct{}

	done chan struct{}
}

// NewRun creates a pending run for the given pipeline name.
func NewRun(pipeline string) *Run {
	return &Run{
		info: api.Run{
			ID:        uuid.NewString(),
			Pipeline:  pipeline,
			Status:    api.RunPending,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
		logSubs:    make(map[chan string]struct{}),
		metricSubs: make(map[chan api.MetricSample]struct{}),
		done:       make(chan struct{}),
	}
}

// ID returns the run's identifier.
func (r *Run) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info.ID
}

// Info returns a snapshot of the run's current state.
func (r *Run) Info() api.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info
}

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Start launches the generator: one log line and one metric sample per tick,
// `ticks` ticks total, then SUCCESS. It returns immediately.
func (r *Run) Start(interval time.Duration, ticks int) {
	go r.generate(interval, ticks)
}

func (r *Run) generate(interval time.Duration, ticks int) {
	r.mu.Lock()
	r.info.Status = api.RunRunning
	r.info.StartedAt = time.Now().UTC().Format(time.RFC3339)
	r.mu.Unlock()

	limit := 2048.0
	for i := 0; i < ticks; i++ {
		time.Sleep(interval)

		phrase := logPhrases[i%len(logPhrases)]
		r.appendLine(fmt.Sprintf("[step %d/%d] %s", i+1, ticks, phrase))

		ram := 512 + 64*float64(i)
		r.appendSample(api.MetricSample{
			Timestamp:         time.Now().UTC().Format(time.RFC3339),
			CPUPercent:        50 + 45*math.Sin(float64(i)/3),
			RAMMb:             ram,
			RAMLimitMb:        &limit,
			SoftLimitExceeded: ram > limit*0.8,
		})
	}

	r.finish(api.RunSuccess)
}

func (r *Run) appendLine(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	for ch := range r.logSubs {
		select {
		case ch <- line:
		default: // slow subscriber, drop rather than stall the generator
		}
	}
	r.mu.Unlock()
}

func (r *Run) appendSample(s api.MetricSample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	for ch := range r.metricSubs {
		select {
		case ch <- s:
		default:
		}
	}
	r.mu.Unlock()
}

func (r *Run) finish(status api.RunStatus) {
	r.mu.Lock()
	r.info.Status = status
	r.info.EndedAt = time.Now().UTC().Format(time.RFC3339)
	for ch := range r.logSubs {
		close(ch)
	}
	r.logSubs = make(map[chan string]struct{})
	for ch := range r.metricSubs {
		close(ch)
	}
	r.metricSubs = make(map[chan api.MetricSample]struct{})
	r.mu.Unlock()

	close(r.done)
}

// Tail returns the last n log lines (all of them when n <= 0 or exceeds the
// stored count).
func (r *Run) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.lines) {
		n = len(r.lines)
	}
	return append([]string(nil), r.lines[len(r.lines)-n:]...)
}

// Samples returns all stored metric samples.
func (r *Run) Samples() []api.MetricSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.MetricSample(nil), r.samples...)
}

// SubscribeLogs registers a log subscriber. The channel is closed when the
// run finishes; the caller must invoke cancel when done. A terminal run
// returns an already-closed channel.
func (r *Run) SubscribeLogs() (ch chan string, cancel func()) {
	ch = make(chan string, 64)
	r.mu.Lock()
	if r.info.Status.IsTerminal() {
		close(ch)
	} else {
		r.logSubs[ch] = struct{}{}
	}
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		delete(r.logSubs, ch)
		r.mu.Unlock()
	}
}

// SubscribeMetrics registers a metric subscriber, with the same lifecycle as
// SubscribeLogs.
func (r *Run) SubscribeMetrics() (ch chan api.MetricSample, cancel func()) {
	ch = make(chan api.MetricSample, 64)
	r.mu.Lock()
	if r.info.Status.IsTerminal() {
		close(ch)
	} else {
		r.metricSubs[ch] = struct{}{}
	}
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		delete(r.metricSubs, ch)
		r.mu.Unlock()
	}
}
