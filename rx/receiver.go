// Package rx implements the background framer for the FreeEMS application
// protocol: it owns the serial port's read side, reassembles 0xAA...0xCC
// frames, and demultiplexes them into response and telemetry channels.
package rx

import (
	"context"
	"io"

	"github.com/freeems/fuct/appproto"
	"github.com/freeems/fuct/logging"
)

// telemetryQueueSize bounds the telemetry channel; frames are dropped on
// overflow rather than blocking the reader.
const telemetryQueueSize = 64

// readChunkSize is the size of each read from the port. A short read is
// normal and does not end the receiver.
const readChunkSize = 1024

// frameState drives the byte-at-a-time reassembly automaton.
type frameState int

const (
	stateIdle frameState = iota
	stateInFrame
	stateInEscape
)

const (
	startByte  = 0xAA
	endByte    = 0xCC
	escapeByte = 0xBB

	escapedStart = 0x55
	escapedEsc   = 0x44
	escapedEnd   = 0x33
)

// Receiver owns the read side of a port and demultiplexes reassembled app
// frames into Responses and Telemetry.
type Receiver struct {
	reader    io.Reader
	sink      logging.Sink
	responses chan []byte
	telemetry chan []byte
	dropped   int
}

// New creates a Receiver reading from r. Run must be called to start it.
func New(r io.Reader, sink logging.Sink) *Receiver {
	if sink == nil {
		sink = logging.Discard
	}
	return &Receiver{
		reader:    r,
		sink:      sink,
		responses: make(chan []byte),
		telemetry: make(chan []byte, telemetryQueueSize),
	}
}

// Responses yields the body of every non-telemetry frame, in arrival
// order. It blocks the sender until read since at most one request is
// ever outstanding.
func (r *Receiver) Responses() <-chan []byte { return r.responses }

// Telemetry yields log-frame payloads. Frames are dropped silently when
// the channel is full.
func (r *Receiver) Telemetry() <-chan []byte { return r.telemetry }

// Dropped returns the number of telemetry frames dropped for backpressure.
func (r *Receiver) Dropped() int { return r.dropped }

// Run reads from the port until ctx is cancelled, reassembling frames and
// dispatching them. Read errors, including a closed port or end of input,
// do not end it: it keeps reading until ctx is cancelled. It should
// be run in its own goroutine; it closes neither channel, since readers
// are expected to stop pulling from them once ctx is done.
func (r *Receiver) Run(ctx context.Context) {
	state := stateIdle
	var buf []byte

	chunk := make([]byte, readChunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, _ := r.reader.Read(chunk)
		if n == 0 {
			continue
		}

		for _, b := range chunk[:n] {
			switch state {
			case stateIdle:
				if b == startByte {
					buf = buf[:0]
					state = stateInFrame
				}
			case stateInFrame:
				switch b {
				case startByte:
					buf = buf[:0]
				case endByte:
					r.finalize(ctx, buf)
					buf = buf[:0]
					state = stateIdle
				case escapeByte:
					state = stateInEscape
				default:
					buf = append(buf, b)
				}
			case stateInEscape:
				switch b {
				case escapedStart:
					buf = append(buf, startByte)
					state = stateInFrame
				case escapedEsc:
					buf = append(buf, escapeByte)
					state = stateInFrame
				case escapedEnd:
					buf = append(buf, endByte)
					state = stateInFrame
				default:
					buf = buf[:0]
					state = stateIdle
				}
			}
		}
	}
}

func (r *Receiver) finalize(ctx context.Context, buf []byte) {
	body, payloadID, mismatch, err := appproto.Finalize(buf)
	if err != nil {
		r.sink.Warnf("rx: dropping frame: %v", err)
		return
	}
	if mismatch {
		r.sink.Warnf("rx: frame 0x%04x accepted on size/checksum disagreement", payloadID)
	}

	if appproto.IsLogFrame(payloadID) {
		telemetry := appproto.TelemetryBody(body)
		out := make([]byte, len(telemetry))
		copy(out, telemetry)
		select {
		case r.telemetry <- out:
		default:
			r.dropped++
		}
		return
	}

	out := make([]byte, len(body))
	copy(out, body)
	select {
	case r.responses <- out:
	case <-ctx.Done():
	}
}
