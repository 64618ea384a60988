// Package appproto implements the FreeEMS application protocol: framed,
// escaped, checksummed request/response and telemetry packets carried over
// the same serial link as the SM protocol.
package appproto

const (
	startByte  = 0xAA
	endByte    = 0xCC
	escapeByte = 0xBB

	escapedStart = 0x55
	escapedEsc   = 0x44
	escapedEnd   = 0x33
)

// Escape returns buf with every occurrence of 0xAA, 0xBB, 0xCC replaced by
// its two-byte 0xBB-prefixed escape sequence.
func Escape(buf []byte) []byte {
	out := make([]byte, 0, len(buf))
	for _, b := range buf {
		switch b {
		case startByte:
			out = append(out, escapeByte, escapedStart)
		case escapeByte:
			out = append(out, escapeByte, escapedEsc)
		case endByte:
			out = append(out, escapeByte, escapedEnd)
		default:
			out = append(out, b)
		}
	}
	return out
}

// escapeState drives the byte-at-a-time unescape automaton, kept explicit
// rather than folded into boolean flags.
type escapeState int

const (
	stateLiteral escapeState = iota
	stateEscaped
)

// Unescape reverses Escape. A trailing, unterminated escape byte is
// dropped.
func Unescape(buf []byte) []byte {
	out := make([]byte, 0, len(buf))
	state := stateLiteral
	for _, b := range buf {
		switch state {
		case stateLiteral:
			if b == escapeByte {
				state = stateEscaped
			} else {
				out = append(out, b)
			}
		case stateEscaped:
			switch b {
			case escapedStart:
				out = append(out, startByte)
			case escapedEsc:
				out = append(out, escapeByte)
			case escapedEnd:
				out = append(out, endByte)
			}
			state = stateLiteral
		}
	}
	return out
}
