// ABOUTME: Incremental frame decoder for the SSE-style stream protocol: arbitrary text chunks in,
// ABOUTME: discrete "data: " payloads out. Knows nothing about transport or payload semantics.
package stream

import "strings"

// dataPrefix marks the payload line of a frame. Frames without it (e.g.
// ": keep-alive" comments) are dropped before they reach the dispatcher.
const dataPrefix = "data: "

// frameDelimiter terminates one frame on the wire.
const frameDelimiter = "\n\n"

// FrameDecoder accumulates stream chunks and splits them into complete
// frames. Chunk boundaries carry no meaning: the same logical stream split
// at different byte offsets yields the same frame sequence.
//
// A decoder is single-use per connection attempt; create a fresh one after
// every reconnect so stale partial frames from the dead connection cannot
// leak into the new one.
type FrameDecoder struct {
	rem string
}

// NewFrameDecoder returns an empty decoder.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Decode appends a chunk to the internal buffer and returns the payloads of
// every complete frame now available, in arrival order. Content after the
// last delimiter stays buffered for the next call.
func (d *FrameDecoder) Decode(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	data := d.rem + string(chunk)
	var payloads []string

	for {
		idx := strings.Index(data, frameDelimiter)
		if idx < 0 {
			break
		}
		frame := strings.TrimRight(data[:idx], " \t\r\n")
		data = data[idx+len(frameDelimiter):]

		if payload, ok := strings.CutPrefix(frame, dataPrefix); ok {
			payloads = append(payloads, payload)
		}
	}

	d.rem = data
	return payloads
}

// Buffered returns the undelimited remainder held by the decoder. Exposed
// for tests.
func (d *FrameDecoder) Buffered() string {
	return d.rem
}
