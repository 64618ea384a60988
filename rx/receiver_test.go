package rx

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chunker splits a byte stream into fixed-size reads, simulating the
// framer's real read pattern regardless of how bytes actually arrived on
// the wire.
type chunker struct {
	data []byte
	size int
}

func (c *chunker) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func recvOneResponse(t *testing.T, r *Receiver) []byte {
	t.Helper()
	select {
	case body := <-r.Responses():
		return body
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
		return nil
	}
}

func TestReceiverResyncMidFrame(t *testing.T) {
	wire := []byte{0xAA, 0x00, 0x01, 0x06, 0xAA, 0x00, 0x01, 0x07, 0x08, 0xCC}
	r := New(&chunker{data: wire, size: len(wire)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	body := recvOneResponse(t, r)
	require.Equal(t, []byte{0x00, 0x01, 0x07}, body)
}

func TestReceiverHandlesChunkBoundaries(t *testing.T) {
	wire := []byte{0xAA, 0x00, 0x01, 0x06, 0xC0, 0x03, 0x00, 0x60, 0x00, 0x02, 0x2C, 0xCC}
	for size := 1; size <= len(wire); size++ {
		r := New(&chunker{data: append([]byte(nil), wire...), size: size}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		go r.Run(ctx)

		body := recvOneResponse(t, r)
		require.Equal(t, []byte{0x00, 0x01, 0x06, 0xC0, 0x03, 0x00, 0x60, 0x00, 0x02}, body)
		cancel()
	}
}

func TestReceiverEscapedBytesAcrossChunks(t *testing.T) {
	// flags=0x00, payload_id=0x00AA, checksum=0xAA: both 0xAA bytes must
	// survive the escape/unescape round trip, read one byte at a time.
	wire := []byte{0xAA, 0x00, 0x00, 0xBB, 0x55, 0xBB, 0x55, 0xCC}
	r := New(&chunker{data: wire, size: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	body := recvOneResponse(t, r)
	require.Equal(t, []byte{0x00, 0x00, 0xAA}, body)
}

func TestReceiverRoutesTelemetrySeparately(t *testing.T) {
	wire := []byte{0xAA, 0x00, 0x01, 0x91, 0x00, 0x00, 0x01, 0x02, 0x95, 0xCC}
	r := New(&chunker{data: wire, size: 4}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	select {
	case body := <-r.Telemetry():
		require.Equal(t, []byte{0x01, 0x02}, body)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for telemetry")
	}

	select {
	case <-r.Responses():
		t.Fatal("telemetry frame should not reach the response channel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReceiverDropsUndefinedEscapeAndKeepsReading(t *testing.T) {
	bad := []byte{0xAA, 0x01, 0xBB, 0xFF, 0x02, 0xCC}
	good := []byte{0xAA, 0x00, 0x01, 0x06, 0xC0, 0x03, 0x00, 0x60, 0x00, 0x02, 0x2C, 0xCC}
	wire := append(append([]byte(nil), bad...), good...)

	r := New(&chunker{data: wire, size: 3}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	body := recvOneResponse(t, r)
	require.Equal(t, []byte{0x00, 0x01, 0x06, 0xC0, 0x03, 0x00, 0x60, 0x00, 0x02}, body)
}
