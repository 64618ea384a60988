package srecord

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValidLine(t *testing.T) {
	rec, err := Parse("S1117AF00102030405060708090A0B0C0D0E1B")
	require.NoError(t, err)
	require.Equal(t, S1, rec.Type)
	require.Equal(t, []byte{0x7A, 0xF0}, rec.Address)
	require.Len(t, rec.Data, 14)
}

func TestParseChecksumMismatch(t *testing.T) {
	_, err := Parse("S1137AF000000102030405060708090A0B0C0D0E80")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseRejectsBlank(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}

func TestParseRejectsMixedCase(t *testing.T) {
	_, err := Parse("S1137aF000000102030405060708090A0B0C0D0E81")
	require.Error(t, err)
}

func TestParseRejectsUnknownPrefix(t *testing.T) {
	_, err := Parse("S4137AF000000102030405060708090A0B0C0D0E81")
	require.Error(t, err)
}

func TestParseRejectsOddLength(t *testing.T) {
	_, err := Parse("S1137AF0000001020304050607080")
	require.Error(t, err)
}

func TestRoundTripAllTypes(t *testing.T) {
	cases := []SRecord{
		{Type: S0, Address: []byte{0x00, 0x00}, Data: []byte("hi")},
		{Type: S1, Address: []byte{0x12, 0x34}, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{Type: S2, Address: []byte{0xE0, 0x80, 0x00}, Data: []byte{0xA0, 0xA1}},
		{Type: S3, Address: []byte{0x00, 0x01, 0x02, 0x03}, Data: []byte{0x01}},
		{Type: S5, Address: []byte{0x00, 0x02}},
		{Type: S7, Address: []byte{0x00, 0xC0, 0x00, 0x00}},
		{Type: S8, Address: []byte{0x00, 0xC0, 0x00}},
		{Type: S9, Address: []byte{0x00, 0x00}},
	}
	for _, rec := range cases {
		line := rec.Emit()
		parsed, err := Parse(line)
		require.NoError(t, err, line)
		require.Equal(t, line, parsed.Emit())
	}
}

func TestPageAndPageAddress(t *testing.T) {
	rec := SRecord{Type: S2, Address: []byte{0xE0, 0x80, 0x00}, Data: []byte{0xA0, 0xA1}}
	page, err := rec.Page()
	require.NoError(t, err)
	require.Equal(t, byte(0xE0), page)

	addr, err := rec.PageAddress()
	require.NoError(t, err)
	require.Equal(t, uint16(0x8000), addr)
}

func TestPageRejectsNonS2(t *testing.T) {
	rec := SRecord{Type: S1, Address: []byte{0x00, 0x00}, Data: []byte{0x01}}
	_, err := rec.Page()
	require.Error(t, err)
}
