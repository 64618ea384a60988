// Package monitor implements the host side of the Freescale AN2548 serial
// monitor: device identification and banked-flash erase/program/verify/read.
package monitor

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/freeems/fuct/logging"
	"github.com/freeems/fuct/pages"
	"github.com/freeems/fuct/serial"
	"github.com/freeems/fuct/srecord"
)

// blockSize is the chunk size used for block read/write/verify.
const blockSize = 256

// Family classifies a decoded device ID against the set of parts this
// toolkit knows how to talk to.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyFreeEMSCompatible
	FamilyCompatibleWrongMaskset
	FamilyXEP100
	FamilyS12CUnsupported
)

func (f Family) String() string {
	switch f {
	case FamilyFreeEMSCompatible:
		return "S12X/XE, FreeEMS compatible"
	case FamilyCompatibleWrongMaskset:
		return "S12X/XE, compatible with wrong maskset"
	case FamilyXEP100:
		return "S12X/XE, XEP100"
	case FamilyS12CUnsupported:
		return "S12C family (unsupported)"
	default:
		return "unknown device"
	}
}

// DeviceID is the decoded four-field identifier DEVICE_INFO returns.
type DeviceID struct {
	MajorFamily  byte
	MinorFamily  byte
	MajorMaskRev byte
	MinorMaskRev byte
	Family       Family
}

func decodeDeviceID(raw uint16) DeviceID {
	id := DeviceID{
		MajorFamily:  byte(raw>>12) & 0xF,
		MinorFamily:  byte(raw>>8) & 0xF,
		MajorMaskRev: byte(raw>>4) & 0xF,
		MinorMaskRev: byte(raw) & 0xF,
	}
	id.Family = classify(id)
	return id
}

func classify(id DeviceID) Family {
	switch id.MajorFamily {
	case 0x0C:
		switch {
		case id.MinorFamily == 0x04 && id.MajorMaskRev == 1 && id.MinorMaskRev <= 2:
			return FamilyFreeEMSCompatible
		case id.MinorFamily <= 1 && id.MajorMaskRev == 0:
			return FamilyCompatibleWrongMaskset
		case id.MinorFamily == 0x0C && (id.MajorMaskRev == 8 || id.MajorMaskRev == 9):
			return FamilyXEP100
		default:
			return FamilyUnknown
		}
	case 0x03:
		return FamilyS12CUnsupported
	default:
		return FamilyUnknown
	}
}

// Device is a connection to a target running the serial monitor.
type Device struct {
	port *transport
	sink logging.Sink
}

// Open configures the serial port for the monitor's 115200 8-N-1 wire and
// returns a Device. The caller is responsible for closing the underlying
// port.
func Open(path string, readTimeout time.Duration, sink logging.Sink) (*Device, *serial.Port, error) {
	if sink == nil {
		sink = logging.Discard
	}
	port, err := serial.OpenConfigured(path, 115200, serial.ParityNone, readTimeout)
	if err != nil {
		return nil, nil, err
	}
	return &Device{port: newTransport(port), sink: sink}, port, nil
}

// Reinit performs reset followed by open-comm, the monitor's standard
// handshake sequence.
func (d *Device) Reinit() error {
	if _, _, err := d.port.exchange(CmdResetTarget, nil, 5, 2*time.Millisecond); err != nil {
		return err
	}
	data, trailer, err := d.port.exchange(SMOpen, nil, 4, 0)
	if err != nil {
		// The reply may be 3 bytes depending on the port's view of the
		// echoed CR; re-issue open-comm expecting one byte fewer.
		data, trailer, err = d.port.exchange(SMOpen, nil, 3, 0)
		if err != nil {
			return err
		}
	}
	_ = data
	return validateOpenComm(trailer)
}

// Identify issues DEVICE_INFO and decodes the reply.
func (d *Device) Identify() (DeviceID, error) {
	data, trailer, err := d.port.exchange(CmdDeviceInfo, nil, 1+3+3, 0)
	if err != nil {
		return DeviceID{}, err
	}
	if err := validateGeneral("device-info", trailer); err != nil {
		return DeviceID{}, err
	}
	if len(data) != 3 {
		return DeviceID{}, &ProtocolError{Op: "device-info", Expected: 3, Got: byte(len(data))}
	}
	if data[0] != deviceInfoConstant {
		return DeviceID{}, &ProtocolError{Op: "device-info", Expected: deviceInfoConstant, Got: data[0]}
	}
	raw := binary.BigEndian.Uint16(data[1:3])
	id := decodeDeviceID(raw)
	d.sink.Debugf("decoded device id: %s", logging.Dump(id))
	return id, nil
}

func (d *Device) setPage(page byte) error {
	args := make([]byte, 0, 3)
	args = binary.BigEndian.AppendUint16(args, PPAGERegister)
	args = append(args, page)
	_, trailer, err := d.port.exchange(CmdWriteByte, args, 1+len(args)+3, 0)
	if err != nil {
		return err
	}
	return validateGeneral("set-page", trailer)
}

func (d *Device) erasePage() error {
	_, trailer, err := d.port.exchange(CmdErasePage, nil, 1+3, 330*time.Millisecond)
	if err != nil {
		return err
	}
	return validateGeneral("erase-page", trailer)
}

func (d *Device) writeBlock(addr uint16, data []byte) error {
	args := make([]byte, 0, 3+len(data))
	args = binary.BigEndian.AppendUint16(args, addr)
	args = append(args, byte(len(data)-1))
	args = append(args, data...)
	_, trailer, err := d.port.exchange(CmdWriteBlock, args, 1+len(args)+3, 0)
	if err != nil {
		return err
	}
	return validateGeneral("write-block", trailer)
}

// readBlock asks for length bytes starting at addr. The wire argument is
// length-1 ("len"); the monitor replies with len+1 == length data bytes.
func (d *Device) readBlock(addr uint16, length int) ([]byte, error) {
	args := make([]byte, 0, 3)
	args = binary.BigEndian.AppendUint16(args, addr)
	args = append(args, byte(length-1))
	data, trailer, err := d.port.exchange(CmdReadBlock, args, 1+len(args)+length+3, 0)
	if err != nil {
		return nil, err
	}
	if err := validateGeneral("read-block", trailer); err != nil {
		return nil, err
	}
	if len(data) != length {
		return nil, &ProtocolError{Op: "read-block", Expected: byte(length), Got: byte(len(data))}
	}
	return data, nil
}

// EraseAndWrite programs page onto the target, optionally erasing first
// and verifying every block (including the trailing short block) by
// reading it back.
func (d *Device) EraseAndWrite(page *pages.MemoryPage, erase, verify bool) error {
	if err := page.Validate(); err != nil {
		return &RangeError{Reason: err.Error()}
	}

	if erase {
		if err := d.setPage(page.Page); err != nil {
			return err
		}
		if err := d.erasePage(); err != nil {
			return err
		}
	}

	addr := page.Address
	data := page.Data
	for offset := 0; offset < len(data); offset += blockSize {
		end := offset + blockSize
		if end > len(data) {
			end = len(data)
		}
		block := data[offset:end]
		blockAddr := addr + uint16(offset)

		if err := d.writeBlock(blockAddr, block); err != nil {
			return err
		}
		if verify {
			readBack, err := d.readBlock(blockAddr, len(block))
			if err != nil {
				return err
			}
			for i := range block {
				if readBack[i] != block[i] {
					return &VerifyError{Page: page.Page, Offset: offset + i, Want: block[i], Got: readBack[i]}
				}
			}
		}
	}
	return nil
}

// EraseRange erases every page in [start, end], reporting fractional
// progress after each one.
func (d *Device) EraseRange(start, end byte, progress func(float64)) error {
	total := int(end) - int(start) + 1
	for i, page := 0, start; i < total; i, page = i+1, page+1 {
		if err := d.setPage(page); err != nil {
			return err
		}
		if err := d.erasePage(); err != nil {
			return err
		}
		if progress != nil {
			progress(float64(i+1) / float64(total))
		}
	}
	return nil
}

const ripBanner = "FUCT RIPPED IMAGE"

// RipPages reads the full banked window for every page in [start, end] and
// emits it as an S19 image to w.
func (d *Device) RipPages(start, end byte, w io.Writer, progress func(float64)) error {
	header := srecord.SRecord{Type: srecord.S0, Address: []byte{0x00, 0x00}, Data: []byte(ripBanner)}
	if _, err := fmt.Fprintf(w, "%s\r\n", header.Emit()); err != nil {
		return err
	}

	total := int(end) - int(start) + 1
	for i, page := 0, start; i < total; i, page = i+1, page+1 {
		if err := d.setPage(page); err != nil {
			return err
		}
		for addr := uint16(pages.WindowBase); addr < pages.WindowBase+pages.WindowSize; addr += 16 {
			block, err := d.readBlock(addr, 16)
			if err != nil {
				return err
			}
			rec := srecord.SRecord{
				Type:    srecord.S2,
				Address: []byte{page, byte(addr >> 8), byte(addr)},
				Data:    block,
			}
			if _, err := fmt.Fprintf(w, "%s\r\n", rec.Emit()); err != nil {
				return err
			}
		}
		if progress != nil {
			progress(float64(i+1) / float64(total))
		}
	}

	trailer := srecord.SRecord{Type: srecord.S8, Address: []byte{0x00, 0xC0, 0x00}}
	_, err := fmt.Fprintf(w, "%s\r\n", trailer.Emit())
	return err
}
