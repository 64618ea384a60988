// Package pages groups S2 records into contiguous per-page memory images
// ready to be programmed into a banked-flash MCU.
package pages

import (
	"fmt"

	"github.com/freeems/fuct/logging"
	"github.com/freeems/fuct/srecord"
)

// WindowBase and WindowSize describe the banked flash window every page is
// mapped into on the MCU.
const (
	WindowBase = 0x8000
	WindowSize = 0xC000 - 0x8000
)

// MemoryPage is a contiguous run of bytes destined for one flash page.
type MemoryPage struct {
	Page    byte
	Address uint16
	Data    []byte
}

func (p *MemoryPage) append(data []byte) {
	p.Data = append(p.Data, data...)
}

// BuildPages groups the S2 records in records into MemoryPages. The caller
// is expected to have already stripped the S0 header and S8 terminator.
// Non-S2 records and S2 records with no data are skipped with a warning.
// It returns the pages in encounter order plus the total number of data
// bytes collected across all of them.
func BuildPages(records []srecord.SRecord, sink logging.Sink) ([]*MemoryPage, int) {
	if sink == nil {
		sink = logging.Discard
	}

	var (
		pages        []*MemoryPage
		current      *MemoryPage
		currentPage  byte
		nextAddr     uint16
		totalSize    int
		haveOpenPage bool
	)

	for _, rec := range records {
		if rec.Type != srecord.S2 {
			sink.Warnf("%s records are not supported, skipping", rec.Type)
			continue
		}
		if len(rec.Data) == 0 {
			sink.Warnf("record has no data, skipping")
			continue
		}

		page, err := rec.Page()
		if err != nil {
			sink.Warnf("%v, skipping", err)
			continue
		}
		addr, err := rec.PageAddress()
		if err != nil {
			sink.Warnf("%v, skipping", err)
			continue
		}

		if haveOpenPage && page == currentPage && addr == nextAddr {
			current.append(rec.Data)
		} else {
			if haveOpenPage {
				pages = append(pages, current)
			}
			current = &MemoryPage{Page: page, Address: addr}
			current.append(rec.Data)
			currentPage = page
			haveOpenPage = true
		}
		nextAddr = addr + uint16(len(rec.Data))
		totalSize += len(rec.Data)
	}

	if haveOpenPage {
		pages = append(pages, current)
	}

	return pages, totalSize
}

// Validate checks that address+len(data) stays inside the banked window
// and that the data does not exceed the window width.
func (p *MemoryPage) Validate() error {
	if p.Address < WindowBase || p.Address >= WindowBase+WindowSize {
		return fmt.Errorf("pages: address 0x%04x is out of range for page 0x%02x", p.Address, p.Page)
	}
	if int(p.Address)+len(p.Data) > WindowBase+WindowSize {
		return fmt.Errorf("pages: %d bytes overflow page 0x%02x at 0x%04x", len(p.Data), p.Page, p.Address)
	}
	return nil
}
