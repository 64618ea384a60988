// Package interrogate collects firmware metadata and location-table
// entries over the FreeEMS application protocol.
package interrogate

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/freeems/fuct/appproto"
)

// Driver is the minimal app-protocol transport an Interrogator needs: send
// a request, then block for its matching response.
type Driver interface {
	Request(payloadID uint16, opts ...appproto.PacketOption) (appproto.Frame, error)
}

// Metadata is the decoded, NUL-stripped ASCII string fields the firmware
// reports about itself.
type Metadata struct {
	Decoder   string
	BuildDate string
	Compiler  string
	OSName    string
	User      string
	Email     string
}

var metadataFields = []struct {
	id   uint16
	dest func(*Metadata) *string
}{
	{appproto.FECmdDecoder, func(m *Metadata) *string { return &m.Decoder }},
	{appproto.FECmdBuildDate, func(m *Metadata) *string { return &m.BuildDate }},
	{appproto.FECmdCompiler, func(m *Metadata) *string { return &m.Compiler }},
	{appproto.FECmdOSName, func(m *Metadata) *string { return &m.OSName }},
	{appproto.FECmdUser, func(m *Metadata) *string { return &m.User }},
	{appproto.FECmdEmail, func(m *Metadata) *string { return &m.Email }},
}

// LocationInfo is the decoded location-table entry get_location_info
// returns.
type LocationInfo struct {
	Flags     uint16
	Parent    uint16
	RAMPage   byte
	FlashPage byte
	RAMAddr   uint16
	FlashAddr uint16
	Size      uint16
}

// Interrogator queues metadata and location requests and decodes their
// replies.
type Interrogator struct {
	driver Driver
}

// New creates an Interrogator driving requests through driver.
func New(driver Driver) *Interrogator {
	return &Interrogator{driver: driver}
}

func decodeASCIIZ(body []byte) string {
	return string(bytes.TrimRight(body, "\x00"))
}

// CollectMetadata requests every metadata field in turn, sending each
// request only after the reply to the previous one has arrived; the
// requests are not queued back to back.
func (in *Interrogator) CollectMetadata() (Metadata, error) {
	var m Metadata
	for _, f := range metadataFields {
		frame, err := in.driver.Request(f.id)
		if err != nil {
			return Metadata{}, fmt.Errorf("interrogate: %w", err)
		}
		*f.dest(&m) = decodeASCIIZ(frame.Body)
	}
	return m, nil
}

// ListLocationIDs fetches the full location-table id list.
func (in *Interrogator) ListLocationIDs() ([]uint16, error) {
	frame, err := in.driver.Request(appproto.FECmdLocationIDList)
	if err != nil {
		return nil, fmt.Errorf("interrogate: location id list: %w", err)
	}
	if len(frame.Body)%2 != 0 {
		return nil, fmt.Errorf("interrogate: location id list has odd length %d", len(frame.Body))
	}
	ids := make([]uint16, len(frame.Body)/2)
	for i := range ids {
		ids[i] = binary.BigEndian.Uint16(frame.Body[i*2 : i*2+2])
	}
	return ids, nil
}

// LocationInfo fetches and decodes the location-table entry for id.
func (in *Interrogator) LocationInfo(id uint16) (LocationInfo, error) {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, id)
	frame, err := in.driver.Request(appproto.FECmdLocationIDInfo, appproto.WithData(payload), appproto.WithLength())
	if err != nil {
		return LocationInfo{}, fmt.Errorf("interrogate: location info 0x%04x: %w", id, err)
	}
	if len(frame.Body) < 12 {
		return LocationInfo{}, fmt.Errorf("interrogate: location info 0x%04x: short reply (%d bytes)", id, len(frame.Body))
	}
	b := frame.Body
	return LocationInfo{
		Flags:     binary.BigEndian.Uint16(b[0:2]),
		Parent:    binary.BigEndian.Uint16(b[2:4]),
		RAMPage:   b[4],
		FlashPage: b[5],
		RAMAddr:   binary.BigEndian.Uint16(b[6:8]),
		FlashAddr: binary.BigEndian.Uint16(b[8:10]),
		Size:      binary.BigEndian.Uint16(b[10:12]),
	}, nil
}

// ReadRAM reads size raw bytes from the given RAM location.
func (in *Interrogator) ReadRAM(loc appproto.Location, size uint16) ([]byte, error) {
	return in.read(appproto.FECmdRAMRead, loc, size)
}

// ReadFlash reads size raw bytes from the given flash location.
func (in *Interrogator) ReadFlash(loc appproto.Location, size uint16) ([]byte, error) {
	return in.read(appproto.FECmdFlashRead, loc, size)
}

func (in *Interrogator) read(payloadID uint16, loc appproto.Location, size uint16) ([]byte, error) {
	frame, err := in.driver.Request(payloadID, appproto.WithLocation(loc), appproto.WithSize(size))
	if err != nil {
		return nil, fmt.Errorf("interrogate: read 0x%04x: %w", payloadID, err)
	}
	return frame.Body, nil
}
