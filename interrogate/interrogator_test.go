package interrogate

import (
	"testing"

	"github.com/freeems/fuct/appproto"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	replies map[uint16]appproto.Frame
	calls   []uint16
}

func (f *fakeDriver) Request(payloadID uint16, opts ...appproto.PacketOption) (appproto.Frame, error) {
	f.calls = append(f.calls, payloadID)
	return f.replies[payloadID], nil
}

func TestCollectMetadataStripsNULs(t *testing.T) {
	driver := &fakeDriver{replies: map[uint16]appproto.Frame{
		appproto.FECmdDecoder:   {Body: []byte("Ford V8\x00\x00")},
		appproto.FECmdBuildDate: {Body: []byte("2014-01-01\x00")},
		appproto.FECmdCompiler:  {Body: []byte("avr-gcc")},
		appproto.FECmdOSName:    {Body: []byte("linux\x00")},
		appproto.FECmdUser:      {Body: []byte("fuct\x00")},
		appproto.FECmdEmail:     {Body: []byte("user@example.com")},
	}}

	in := New(driver)
	m, err := in.CollectMetadata()
	require.NoError(t, err)
	require.Equal(t, "Ford V8", m.Decoder)
	require.Equal(t, "2014-01-01", m.BuildDate)
	require.Equal(t, "avr-gcc", m.Compiler)
	require.Equal(t, "linux", m.OSName)
	require.Equal(t, "fuct", m.User)
	require.Equal(t, "user@example.com", m.Email)
}

func TestListLocationIDsDecodesU16Array(t *testing.T) {
	driver := &fakeDriver{replies: map[uint16]appproto.Frame{
		appproto.FECmdLocationIDList: {Body: []byte{0xC0, 0x03, 0xC0, 0x04}},
	}}
	in := New(driver)
	ids, err := in.ListLocationIDs()
	require.NoError(t, err)
	require.Equal(t, []uint16{0xC003, 0xC004}, ids)
}

func TestLocationInfoDecodesFields(t *testing.T) {
	driver := &fakeDriver{replies: map[uint16]appproto.Frame{
		appproto.FECmdLocationIDInfo: {Body: []byte{
			0x00, 0x01, // flags
			0x00, 0x00, // parent
			0x01,       // ram page
			0xE0,       // flash page
			0x10, 0x00, // ram addr
			0x80, 0x00, // flash addr
			0x00, 0x02, // size
		}},
	}}
	in := New(driver)
	info, err := in.LocationInfo(0xC003)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0001), info.Flags)
	require.Equal(t, byte(0xE0), info.FlashPage)
	require.Equal(t, uint16(0x8000), info.FlashAddr)
	require.Equal(t, uint16(0x0002), info.Size)
}

func TestReadFlashReturnsRawBytes(t *testing.T) {
	driver := &fakeDriver{replies: map[uint16]appproto.Frame{
		appproto.FECmdFlashRead: {Body: []byte{0x00, 0x60}},
	}}
	in := New(driver)
	data, err := in.ReadFlash(appproto.TriggerLocation, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x60}, data)
}
