// ABOUTME: RunStreamCoordinator decides, per view and run lifecycle state, whether a live
// ABOUTME: StreamSession should be running or a one-shot historical fetch should stand in.
package stream

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/runboard/runboard/api"
)

// DefaultTailLines is how many historical log lines the terminal-state
// fallback requests.
const DefaultTailLines = 500

// Backend is the slice of the orchestrator API the coordinator consumes.
// *api.Client satisfies it.
type Backend interface {
	LogTail(ctx context.Context, runID string, n int) ([]string, error)
	MetricHistory(ctx context.Context, runID string) ([]api.MetricSample, error)
	OpenLogStream(ctx context.Context, runID string) (io.ReadCloser, error)
	OpenMetricStream(ctx context.Context, runID string) (io.ReadCloser, error)
}

// State is the external situation the coordinator reconciles against:
// which run is watched, where its lifecycle stands, and which views are
// currently visible.
type State struct {
	RunID            string
	RunStatus        api.RunStatus
	LogViewActive    bool
	MetricViewActive bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTailLines sets the historical log tail size.
func WithTailLines(n int) Option {
	return func(c *Coordinator) { c.tail = n }
}

// WithObserver attaches a feed observer (e.g. the sqlite recorder) to every
// feed the coordinator creates.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithErrorSink routes server-reported stream errors somewhere other than
// the process log.
func WithErrorSink(s ErrorSink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// withSessionTuning overrides reconnect policy and cap. Test-only.
func withSessionTuning(p PolicyFunc, maxAttempts int) Option {
	return func(c *Coordinator) {
		c.policy = p
		c.maxAttempts = maxAttempts
	}
}

// Coordinator owns up to two StreamSessions (log, metric) for the watched
// run. Sessions are fully independent: separate cancellation handles,
// separate feeds, separate decoders. The coordinator is the only thing that
// starts or stops them.
type Coordinator struct {
	backend     Backend
	tail        int
	observer    Observer
	sink        ErrorSink
	policy      PolicyFunc
	maxAttempts int

	mu       sync.Mutex
	state    State
	feeds    map[Kind]*Feed
	sessions map[Kind]*Session
	fetched  map[Kind]bool
	closed   bool
}

// NewCoordinator creates a Coordinator over the given backend.
func NewCoordinator(backend Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend:  backend,
		tail:     DefaultTailLines,
		feeds:    make(map[Kind]*Feed),
		sessions: make(map[Kind]*Session),
		fetched:  make(map[Kind]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Feed returns the feed for a kind, creating it on first use. The returned
// pointer stays valid across reconnects of the same run but is replaced
// when the watched run changes.
func (c *Coordinator) Feed(kind Kind) *Feed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedLocked(kind)
}

func (c *Coordinator) feedLocked(kind Kind) *Feed {
	f, ok := c.feeds[kind]
	if !ok {
		f = NewFeed()
		if c.observer != nil {
			f.SetObserver(c.observer)
		}
		c.feeds[kind] = f
	}
	return f
}

// Status returns the connection health for a kind. With no session running
// (historical mode, or never started) it reports disconnected.
func (c *Coordinator) Status(kind Kind) Status {
	c.mu.Lock()
	s := c.sessions[kind]
	c.mu.Unlock()
	if s == nil {
		return StatusDisconnected
	}
	return s.Status()
}

// Apply reconciles sessions against the given external state. It is the
// single entry point the UI calls whenever the active view or the run's
// lifecycle state changes (the per-render decision from the design).
//
// Rules, per kind:
//   - view active and run active: exactly one session running;
//   - view active and run terminal: no session; one historical fetch, once;
//   - view inactive: no session, regardless of run state.
//
// A run identity change discards all feeds and sessions and starts from
// scratch.
func (c *Coordinator) Apply(ctx context.Context, st State) {
	var toStop []*Session
	var fetchLog, fetchMetric bool

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if st.RunID != c.state.RunID {
		for _, s := range c.sessions {
			toStop = append(toStop, s)
		}
		c.sessions = make(map[Kind]*Session)
		c.feeds = make(map[Kind]*Feed)
		c.fetched = make(map[Kind]bool)
	}
	c.state = st

	for _, kind := range []Kind{KindLog, KindMetric} {
		viewActive := st.LogViewActive
		if kind == KindMetric {
			viewActive = st.MetricViewActive
		}

		switch {
		case viewActive && st.RunStatus.IsActive():
			if c.sessions[kind] == nil {
				c.sessions[kind] = c.newSessionLocked(kind, st.RunID)
				c.sessions[kind].Start()
			}

		case viewActive && st.RunStatus.IsTerminal():
			if s := c.sessions[kind]; s != nil {
				toStop = append(toStop, s)
				delete(c.sessions, kind)
			}
			if !c.fetched[kind] {
				c.fetched[kind] = true
				if kind == KindLog {
					fetchLog = true
				} else {
					fetchMetric = true
				}
			}

		default:
			if s := c.sessions[kind]; s != nil {
				toStop = append(toStop, s)
				delete(c.sessions, kind)
			}
		}
	}
	logFeed := c.feedLocked(KindLog)
	metricFeed := c.feedLocked(KindMetric)
	tail := c.tail
	c.mu.Unlock()

	// Stop outside the lock: Stop waits for the session goroutine, which may
	// be inside the RunActive callback.
	for _, s := range toStop {
		s.Stop()
	}

	if fetchLog {
		lines, err := c.backend.LogTail(ctx, st.RunID, tail)
		if err != nil {
			log.Printf("component=stream.coordinator action=log_tail_failed run=%s err=%v", st.RunID, err)
		} else {
			logFeed.ReplaceLines(lines)
		}
	}
	if fetchMetric {
		samples, err := c.backend.MetricHistory(ctx, st.RunID)
		if err != nil {
			log.Printf("component=stream.coordinator action=metric_history_failed run=%s err=%v", st.RunID, err)
		} else {
			metricFeed.ReplaceSamples(samples)
		}
	}
}

// newSessionLocked builds a session bound to the coordinator's current run.
// The RunActive callback re-checks identity so a session outliving a run
// switch can never schedule a reconnect for the old run.
func (c *Coordinator) newSessionLocked(kind Kind, runID string) *Session {
	open := func(ctx context.Context) (io.ReadCloser, error) {
		if kind == KindMetric {
			return c.backend.OpenMetricStream(ctx, runID)
		}
		return c.backend.OpenLogStream(ctx, runID)
	}
	active := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.state.RunID == runID && c.state.RunStatus.IsActive()
	}
	return NewSession(SessionConfig{
		Kind:        kind,
		RunID:       runID,
		Feed:        c.feedLocked(kind),
		Open:        open,
		RunActive:   active,
		Policy:      c.policy,
		MaxAttempts: c.maxAttempts,
		Sink:        c.sink,
	})
}

// Close stops all sessions. The coordinator refuses further Apply calls.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	var toStop []*Session
	for _, s := range c.sessions {
		toStop = append(toStop, s)
	}
	c.sessions = make(map[Kind]*Session)
	c.mu.Unlock()

	for _, s := range toStop {
		s.Stop()
	}
}
