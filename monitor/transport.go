package monitor

import (
	"time"

	"github.com/freeems/fuct/serial"
)

// nsPerByte is the worst-case per-byte time at 115200 bps, 10 bits/byte:
// 86.805 microseconds.
const nsPerByte = 86805 * time.Nanosecond

// transport paces commands against the serial monitor's line rate: write,
// sleep for the expected total byte count, then read exactly that many
// bytes and validate the trailer.
type transport struct {
	port *serial.Port
}

func newTransport(port *serial.Port) *transport {
	return &transport{port: port}
}

// pace computes the single deadline a transaction of n total bytes
// (echoed command plus response) must wait before its reply is read,
// clamped to at least 1ms.
func pace(n int, extra time.Duration) time.Duration {
	d := time.Duration(n)*nsPerByte + extra
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}

// exchange flushes pending input, writes cmd followed by args, sleeps for
// the paced deadline, then reads exactly totalBytes bytes (echo + reply).
// The echoed command+args and the trailing three bytes are both stripped;
// data holds only the monitor's actual reply payload.
func (t *transport) exchange(cmd byte, args []byte, totalBytes int, extra time.Duration) (data []byte, trailer [3]byte, err error) {
	if err := t.port.Flush(serial.TCIFLUSH); err != nil {
		return nil, trailer, &TimeoutError{Op: "flush", Dur: "0"}
	}

	out := make([]byte, 0, 1+len(args))
	out = append(out, cmd)
	out = append(out, args...)
	if _, werr := t.port.Write(out); werr != nil {
		return nil, trailer, &TimeoutError{Op: "write", Dur: "0"}
	}

	deadline := pace(totalBytes, extra)
	time.Sleep(deadline)

	buf := make([]byte, totalBytes)
	n, rerr := t.port.ReadTimeout(buf, deadline)
	if rerr != nil || n < totalBytes {
		return nil, trailer, &TimeoutError{Op: "read", Dur: deadline.String()}
	}

	trailer[0] = buf[n-3]
	trailer[1] = buf[n-2]
	trailer[2] = buf[n-1]
	echoLen := 1 + len(args)
	return buf[echoLen : n-3], trailer, nil
}

// validateGeneral checks the trailer every command but open-comm expects.
func validateGeneral(op string, trailer [3]byte) error {
	if trailer == [3]byte{RCNoError, SCMonitorActive, Prompt} {
		return nil
	}
	return &ProtocolError{Op: op, Expected: RCNoError, Got: trailer[0]}
}

// validateOpenComm checks the two trailers open-comm may legitimately
// reply with.
func validateOpenComm(trailer [3]byte) error {
	switch trailer {
	case [3]byte{RCNoError, SCColdResetExecuted, Prompt}:
		return nil
	case [3]byte{RCNotRecognised, SCMonitorActive, Prompt}:
		return nil
	default:
		return &ProtocolError{Op: "open-comm", Expected: RCNoError, Got: trailer[0]}
	}
}
