// ABOUTME: StreamSession owns one subscription's lifecycle: open, consume, bounded reconnect.
// ABOUTME: Drives FrameDecoder into EventDispatcher and exposes tri-state connection health.
package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/runboard/runboard/api"
)

// Status is the tri-state connection health of a subscription, the only
// view of transport trouble the presentation layer ever gets.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDisconnected Status = "disconnected"
)

// Opener performs one connection attempt and returns the response body to
// consume. Cancelling ctx must abort both the open and any subsequent read.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// SessionConfig configures a Session. Kind, RunID, Feed, and Open are
// required; the rest default sensibly.
type SessionConfig struct {
	Kind  Kind
	RunID string
	Feed  *Feed
	Open  Opener

	// RunActive reports whether the watched run is still in an active
	// lifecycle state. Reconnection is gated on it: a terminal run gets no
	// further attempts even with budget remaining. Nil means always active.
	RunActive func() bool

	Policy      PolicyFunc // defaults to FixedDelay
	MaxAttempts int        // defaults to DefaultMaxAttempts
	Sink        ErrorSink  // defaults to LogSink

	// sleep is injectable for tests; it returns false when ctx was
	// cancelled before the delay elapsed.
	sleep func(ctx context.Context, d time.Duration) bool
}

// Session is a single live subscription. It owns its feed appends, its
// cancellation handle, and its attempt counter; nothing else mutates them.
type Session struct {
	cfg        SessionConfig
	dispatcher *EventDispatcher

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	status   Status
	attempts int
	started  bool
	stopped  bool
}

// NewSession creates a Session in the reconnecting (not yet connected)
// state. Call Start to begin the connection loop.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Policy == nil {
		cfg.Policy = FixedDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RunActive == nil {
		cfg.RunActive = func() bool { return true }
	}
	if cfg.sleep == nil {
		cfg.sleep = sleepCtx
	}
	return &Session{
		cfg:        cfg,
		dispatcher: NewEventDispatcher(cfg.Kind, cfg.RunID, cfg.Feed, cfg.Sink),
		done:       make(chan struct{}),
		status:     StatusReconnecting,
	}
}

// Start launches the connection loop. It is a no-op on a second call or
// after Stop.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop cancels the session and waits for the loop to exit. Cancellation
// always wins over a pending reconnect: a scheduled delay is cut short and
// the aborted in-flight read is a silent exit, not a retry-worthy failure.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.stopped = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if !started {
		close(s.done)
		return
	}
	cancel()
	<-s.done
}

// Done is closed when the connection loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Status returns the current connection health.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Attempts returns the consecutive-failure count. Exposed for tests.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// run is the session state machine: connecting -> connected ->
// (reconnecting -> connecting | disconnected), until disconnected or
// cancelled.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for {
		body, err := s.cfg.Open(ctx)
		if err != nil {
			if cancelled(ctx, err) {
				return
			}
			if errors.Is(err, api.ErrNoCredential) {
				// Fatal: retrying an unauthenticated open cannot succeed.
				s.setStatus(StatusDisconnected)
				log.Printf("component=stream.session action=auth_missing kind=%s run=%s", s.cfg.Kind, s.cfg.RunID)
				return
			}
			log.Printf("component=stream.session action=connect_failed kind=%s run=%s err=%v", s.cfg.Kind, s.cfg.RunID, err)
		} else {
			s.mu.Lock()
			s.status = StatusConnected
			s.attempts = 0
			s.mu.Unlock()

			err = s.consume(ctx, body)
			_ = body.Close()
			if cancelled(ctx, err) {
				return
			}
			if err != nil {
				log.Printf("component=stream.session action=stream_interrupted kind=%s run=%s err=%v", s.cfg.Kind, s.cfg.RunID, err)
			}
		}

		// Connect failure, mid-stream error, and server-side close all land
		// here and are treated identically.
		s.mu.Lock()
		s.attempts++
		attempts := s.attempts
		s.mu.Unlock()

		decision := s.cfg.Policy(attempts, s.cfg.MaxAttempts, s.cfg.RunActive())
		if !decision.Retry {
			s.setStatus(StatusDisconnected)
			log.Printf("component=stream.session action=gave_up kind=%s run=%s attempts=%d", s.cfg.Kind, s.cfg.RunID, attempts)
			return
		}

		s.setStatus(StatusReconnecting)
		log.Printf("component=stream.session action=reconnect kind=%s run=%s attempt=%d delay=%s", s.cfg.Kind, s.cfg.RunID, attempts, decision.Delay)
		if !s.cfg.sleep(ctx, decision.Delay) {
			return
		}
	}
}

// consume reads the body chunk by chunk, feeding the decoder and dispatcher
// in strict arrival order. A fresh decoder per connection keeps partial
// frames from a dead connection out of the new one. Returns nil on a clean
// server close.
func (s *Session) consume(ctx context.Context, body io.Reader) error {
	dec := NewFrameDecoder()
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, payload := range dec.Decode(buf[:n]) {
				s.dispatcher.Dispatch(payload)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// cancelled reports whether err (or the context) signals a deliberate stop
// rather than a genuine transport failure.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// sleepCtx waits for d, returning false if ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
