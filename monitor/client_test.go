package monitor

import (
	"bytes"
	"testing"
	"time"

	"github.com/freeems/fuct/pages"
	"github.com/freeems/fuct/serial"
	"github.com/stretchr/testify/require"
)

// fakeMonitor emulates the serial monitor's echo-then-trailer behavior on
// one end of a loopback PTY pair: every command it reads is echoed back
// followed by a canned trailer (and, for read-block, a canned data block).
func fakeMonitor(t *testing.T, device *serial.Port, readBlockReply []byte) chan []byte {
	t.Helper()
	seen := make(chan []byte, 4096)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := device.ReadTimeout(buf, time.Second)
			if err != nil || n == 0 {
				return
			}
			cmd := append([]byte(nil), buf[:n]...)
			seen <- cmd

			reply := append([]byte(nil), cmd...)
			switch cmd[0] {
			case CmdReadBlock:
				reply = append(reply, readBlockReply...)
				reply = append(reply, RCNoError, SCMonitorActive, Prompt)
			case CmdDeviceInfo:
				reply = append(reply, 0xDC, 0xC4, 0x11)
				reply = append(reply, RCNoError, SCMonitorActive, Prompt)
			default:
				reply = append(reply, RCNoError, SCMonitorActive, Prompt)
			}
			if _, err := device.Write(reply); err != nil {
				return
			}
		}
	}()
	return seen
}

func newLoopback(t *testing.T) (*serial.Port, *serial.Port) {
	t.Helper()
	a, b, err := serial.OpenPTY(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(); b.Close() })
	a.SetReadTimeout(time.Second)
	b.SetReadTimeout(time.Second)
	return a, b
}

func TestEraseAndWritePageSequence(t *testing.T) {
	host, device := newLoopback(t)
	seen := fakeMonitor(t, device, nil)

	d := &Device{port: newTransport(host)}
	page := &pages.MemoryPage{Page: 0xE0, Address: 0x8000, Data: []byte{0x01, 0x02, 0x03}}

	err := d.EraseAndWrite(page, true, false)
	require.NoError(t, err)

	setPageCmd := <-seen
	require.Equal(t, []byte{CmdWriteByte, 0x00, 0x30, 0xE0}, setPageCmd)

	eraseCmd := <-seen
	require.Equal(t, []byte{CmdErasePage}, eraseCmd)

	writeCmd := <-seen
	require.Equal(t, CmdWriteBlock, writeCmd[0])
	require.Equal(t, []byte{0x01, 0x02, 0x03}, writeCmd[4:])
}

func TestEraseAndWriteVerifiesTrailingBlock(t *testing.T) {
	host, device := newLoopback(t)
	data := []byte{0xAA, 0xBB, 0xCC}
	fakeMonitor(t, device, data)

	d := &Device{port: newTransport(host)}
	page := &pages.MemoryPage{Page: 0xE0, Address: 0x8000, Data: data}

	require.NoError(t, d.EraseAndWrite(page, false, true))
}

func TestEraseAndWriteVerifyDetectsMismatch(t *testing.T) {
	host, device := newLoopback(t)
	fakeMonitor(t, device, []byte{0x00, 0x00, 0x00})

	d := &Device{port: newTransport(host)}
	page := &pages.MemoryPage{Page: 0xE0, Address: 0x8000, Data: []byte{0x01, 0x02, 0x03}}

	err := d.EraseAndWrite(page, false, true)
	require.Error(t, err)
	var verr *VerifyError
	require.ErrorAs(t, err, &verr)
}

func TestIdentifyDecodesDeviceID(t *testing.T) {
	host, device := newLoopback(t)
	fakeMonitor(t, device, nil)

	d := &Device{port: newTransport(host)}
	id, err := d.Identify()
	require.NoError(t, err)
	require.Equal(t, byte(0x0C), id.MajorFamily)
	require.Equal(t, FamilyFreeEMSCompatible, id.Family)
}

func TestRipPagesEmitsS19(t *testing.T) {
	host, device := newLoopback(t)
	fakeMonitor(t, device, bytes.Repeat([]byte{0x00}, 16))

	d := &Device{port: newTransport(host)}
	var out bytes.Buffer
	require.NoError(t, d.RipPages(0xE0, 0xE0, &out, nil))

	require.Contains(t, out.String(), "S0")
	require.Contains(t, out.String(), "S8")
}
