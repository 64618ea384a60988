package appproto

import (
	"encoding/binary"
	"fmt"
)

// Payload IDs for every request the toolkit issues and the responses it
// expects back (request ID + 1).
const (
	FECmdInterface      uint16 = 0x0000
	FECmdFirmware       uint16 = 0x0002
	FECmdRAMWrite       uint16 = 0x0100
	FECmdRAMRead        uint16 = 0x0104
	FECmdFlashWrite     uint16 = 0x0102
	FECmdFlashRead      uint16 = 0x0106
	FECmdDatalogDesc    uint16 = 0x0300
	FECmdLocationIDList uint16 = 0xDA5E
	FECmdLocationIDInfo uint16 = 0xF8E0
	FECmdDecoder        uint16 = 0xEEEE
	FECmdBuildDate      uint16 = 0xEEF0
	FECmdCompiler       uint16 = 0xEEF2
	FECmdOSName         uint16 = 0xEEF4
	FECmdUser           uint16 = 0xEEF6
	FECmdEmail          uint16 = 0xEEF8
	payloadLogFrame     uint16 = 0x0191
)

// Location addresses a word in the FreeEMS location table.
type Location struct {
	ID     uint16
	Offset uint16
}

// TriggerLocation is the decoder's trigger offset, a big-endian u16 in
// units of 0.02 degrees.
var TriggerLocation = Location{ID: 0xC003, Offset: 0x0060}

// Frame is a decoded application-protocol packet.
type Frame struct {
	PayloadID uint16
	Body      []byte
}

type packetConfig struct {
	location  *Location
	size      *uint16
	data      []byte
	useLength bool
}

// PacketOption configures CreatePacket.
type PacketOption func(*packetConfig)

// WithLocation prepends a location/offset pair to the packet body.
func WithLocation(loc Location) PacketOption {
	return func(c *packetConfig) { c.location = &loc }
}

// WithSize appends a requested read size to the packet body (used for
// read requests, where there is no data to send).
func WithSize(size uint16) PacketOption {
	return func(c *packetConfig) { c.size = &size }
}

// WithData appends a length-prefixed data payload to the packet body
// (used for write requests).
func WithData(data []byte) PacketOption {
	return func(c *packetConfig) { c.data = data }
}

// WithLength sets the packet's length flag when the body is non-empty.
func WithLength() PacketOption {
	return func(c *packetConfig) { c.useLength = true }
}

// CreatePacket builds a complete, escaped, checksummed wire frame for
// payloadID with the given options, ready to write to the port.
func CreatePacket(payloadID uint16, opts ...PacketOption) []byte {
	cfg := packetConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var body []byte
	if cfg.location != nil {
		body = binary.BigEndian.AppendUint16(body, cfg.location.ID)
		body = binary.BigEndian.AppendUint16(body, cfg.location.Offset)
	}
	switch {
	case cfg.size != nil:
		body = binary.BigEndian.AppendUint16(body, *cfg.size)
	case cfg.data != nil:
		body = binary.BigEndian.AppendUint16(body, uint16(len(cfg.data)))
		body = append(body, cfg.data...)
	}

	flags := byte(0x00)
	if cfg.useLength && len(body) > 0 {
		flags = 0x01
	}

	header := make([]byte, 0, 5+len(body))
	header = append(header, flags)
	header = binary.BigEndian.AppendUint16(header, payloadID)
	if flags == 0x01 {
		header = binary.BigEndian.AppendUint16(header, uint16(len(body)))
	}
	header = append(header, body...)

	var sum int
	for _, b := range header {
		sum += int(b)
	}
	header = append(header, byte(sum&0xFF))

	out := make([]byte, 0, len(header)*2+2)
	out = append(out, startByte)
	out = append(out, Escape(header)...)
	out = append(out, endByte)
	return out
}

// DecodePacket interprets a checksum-stripped frame body (flags, payload
// ID, optional length, and the remaining data) the way the RX framer
// delivers it on the response channel.
func DecodePacket(body []byte) (Frame, error) {
	if len(body) < 3 {
		return Frame{}, fmt.Errorf("appproto: frame body too short (%d bytes)", len(body))
	}
	flags := body[0]
	id := binary.BigEndian.Uint16(body[1:3])
	if flags != 0x01 {
		return Frame{PayloadID: id}, nil
	}
	if len(body) < 5 {
		return Frame{}, fmt.Errorf("appproto: length-flagged frame missing length field")
	}
	length := int(binary.BigEndian.Uint16(body[3:5]))
	end := 5 + length
	if end > len(body) {
		return Frame{}, fmt.Errorf("appproto: declared length %d exceeds frame body", length)
	}
	return Frame{PayloadID: id, Body: body[5:end]}, nil
}

// Finalize validates a fully reassembled, unescaped, start/end-stripped
// frame (the RX framer's "outbuf") and returns the checksum-stripped body
// plus its payload ID. Per the source's tolerant-acceptance rule, a frame
// is accepted when either its declared length or its checksum agrees;
// mismatch reports whether the two disagreed even though the frame was
// accepted.
func Finalize(raw []byte) (body []byte, payloadID uint16, mismatch bool, err error) {
	if len(raw) < 1 {
		return nil, 0, false, fmt.Errorf("appproto: empty frame")
	}
	body = raw[:len(raw)-1]
	checksum1 := raw[len(raw)-1]

	if len(body) < 3 {
		return nil, 0, false, fmt.Errorf("appproto: frame too short for a header")
	}
	flags := body[0]
	length := 0
	if flags == 0x01 {
		if len(body) < 5 {
			return nil, 0, false, fmt.Errorf("appproto: length-flagged frame missing length field")
		}
		length = int(binary.BigEndian.Uint16(body[3:5]))
	}

	var checksum2 int
	for _, b := range body {
		checksum2 += int(b)
	}
	checksumOK := checksum1 == byte(checksum2&0xFF)
	sizeOK := len(body) == length+5

	if !sizeOK && !checksumOK {
		return nil, 0, false, fmt.Errorf("appproto: frame failed both the size and checksum checks")
	}

	return body, binary.BigEndian.Uint16(body[1:3]), sizeOK != checksumOK, nil
}

// IsLogFrame reports whether payloadID identifies a telemetry/log frame.
func IsLogFrame(payloadID uint16) bool { return payloadID == payloadLogFrame }

// TelemetryBody extracts the log payload from a telemetry frame's body,
// assuming the fixed 5-byte header telemetry frames always carry.
func TelemetryBody(body []byte) []byte {
	if len(body) < 5 {
		return nil
	}
	return body[5:]
}
