// ABOUTME: Interprets decoded frame payloads into domain events: log lines appended to the feed,
// ABOUTME: metric samples appended, server-reported errors surfaced to the observability sink.
package stream

import (
	"encoding/json"
	"log"

	"github.com/runboard/runboard/api"
)

// Kind selects which of the two stream protocols a subscription speaks.
type Kind string

const (
	KindLog    Kind = "log"
	KindMetric Kind = "metric"
)

// ErrorSink receives server-reported errors carried in-band on the stream.
// The stream itself continues undisturbed after surfacing one.
type ErrorSink interface {
	ServerError(kind Kind, runID, msg string)
}

// LogSink is the default ErrorSink, writing to the process log.
type LogSink struct{}

// ServerError implements ErrorSink.
func (LogSink) ServerError(kind Kind, runID, msg string) {
	log.Printf("component=stream.dispatch action=server_error kind=%s run=%s err=%q", kind, runID, msg)
}

// EventDispatcher turns one frame payload into at most one feed append.
// Malformed or unexpected payloads never propagate an error: logs fall back
// to raw text (log data must not be lost), metrics drop silently (metrics
// tolerate loss).
type EventDispatcher struct {
	kind  Kind
	runID string
	feed  *Feed
	sink  ErrorSink
}

// NewEventDispatcher creates a dispatcher appending to feed. A nil sink
// defaults to LogSink.
func NewEventDispatcher(kind Kind, runID string, feed *Feed, sink ErrorSink) *EventDispatcher {
	if sink == nil {
		sink = LogSink{}
	}
	return &EventDispatcher{kind: kind, runID: runID, feed: feed, sink: sink}
}

// logEvent and metricEvent use pointer fields so field presence is
// distinguishable from a zero value.
type logEvent struct {
	Line  *string `json:"line"`
	Error *string `json:"error"`
}

type metricEvent struct {
	Timestamp *string `json:"timestamp"`
	Error     *string `json:"error"`
	api.MetricSample
}

// Dispatch interprets a single payload (the text after "data: ").
func (d *EventDispatcher) Dispatch(payload string) {
	switch d.kind {
	case KindMetric:
		d.dispatchMetric(payload)
	default:
		d.dispatchLog(payload)
	}
}

func (d *EventDispatcher) dispatchLog(payload string) {
	var evt logEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		// Unparseable but non-empty log data is never dropped silently:
		// append the raw payload verbatim.
		if payload != "" {
			d.feed.AppendLine(payload)
		}
		return
	}
	if evt.Error != nil {
		d.sink.ServerError(d.kind, d.runID, *evt.Error)
		return
	}
	if evt.Line != nil {
		d.feed.AppendLine(*evt.Line)
	}
}

func (d *EventDispatcher) dispatchMetric(payload string) {
	var evt metricEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return
	}
	if evt.Error != nil {
		d.sink.ServerError(d.kind, d.runID, *evt.Error)
		return
	}
	if evt.Timestamp == nil {
		// A sample without a timestamp is not a sample.
		return
	}
	sample := evt.MetricSample
	sample.Timestamp = *evt.Timestamp
	d.feed.AppendSample(sample)
}
