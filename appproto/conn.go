package appproto

import (
	"fmt"
	"io"
	"time"
)

// ResponseSource is the subset of rx.Receiver a Conn needs: a channel of
// reassembled, checksum-stripped response frame bodies.
type ResponseSource interface {
	Responses() <-chan []byte
}

// Conn pairs the write side of the port with a response source to provide
// the single-outstanding-request call/response pattern the protocol
// relies on: outstanding requests are never more than one, so replies are
// matched purely by arrival order and the request id + 1 convention.
type Conn struct {
	w       io.Writer
	src     ResponseSource
	timeout time.Duration
}

// NewConn builds a Conn writing frames to w and reading replies from src.
func NewConn(w io.Writer, src ResponseSource, timeout time.Duration) *Conn {
	return &Conn{w: w, src: src, timeout: timeout}
}

// Request sends payloadID with opts and blocks for its response, verifying
// that the reply id is payloadID+1.
func (c *Conn) Request(payloadID uint16, opts ...PacketOption) (Frame, error) {
	wire := CreatePacket(payloadID, opts...)
	if _, err := c.w.Write(wire); err != nil {
		return Frame{}, fmt.Errorf("appproto: write request 0x%04x: %w", payloadID, err)
	}

	select {
	case body := <-c.src.Responses():
		frame, err := DecodePacket(body)
		if err != nil {
			return Frame{}, fmt.Errorf("appproto: decode reply to 0x%04x: %w", payloadID, err)
		}
		if frame.PayloadID != payloadID+1 {
			return Frame{}, fmt.Errorf("appproto: reply id 0x%04x does not match request 0x%04x", frame.PayloadID, payloadID)
		}
		return frame, nil
	case <-time.After(c.timeout):
		return Frame{}, fmt.Errorf("appproto: timed out waiting for reply to 0x%04x", payloadID)
	}
}
