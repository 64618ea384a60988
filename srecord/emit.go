package srecord

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Emit renders the record back to its uppercase textual form. For every
// record Parse accepts, Emit(Parse(line)) reproduces line up to casing,
// which Parse normalizes to upper.
//
// Data is always raw decoded bytes rather than a pre-hexed string; Emit
// is solely responsible for the hex rendering.
func (r SRecord) Emit() string {
	info := typeTable[r.Type]
	length := info.addrWidth + len(r.Data) + 1

	sum := length
	for _, b := range r.Address {
		sum += int(b)
	}
	for _, b := range r.Data {
		sum += int(b)
	}
	checksum := byte(0xFF - (sum & 0xFF))

	var b strings.Builder
	b.WriteString(info.prefix)
	fmt.Fprintf(&b, "%02X", length)
	b.WriteString(strings.ToUpper(hex.EncodeToString(r.Address)))
	if info.carriesData {
		b.WriteString(strings.ToUpper(hex.EncodeToString(r.Data)))
	}
	fmt.Fprintf(&b, "%02X", checksum)
	return b.String()
}
