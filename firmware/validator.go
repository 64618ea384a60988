// Package firmware validates a whole S19/S28 file before it is handed to
// the page builder or the SM client.
package firmware

import (
	"os"
	"regexp"
	"strings"

	"github.com/freeems/fuct/logging"
	"github.com/freeems/fuct/srecord"
)

// EOLStyle classifies the line terminators found in a firmware file.
type EOLStyle int

const (
	EOLUnix EOLStyle = iota
	EOLOldMac
	EOLWindows
	EOLMixed
	EOLNone
)

func (s EOLStyle) String() string {
	switch s {
	case EOLUnix:
		return "Unix"
	case EOLOldMac:
		return "old Macintosh"
	case EOLWindows:
		return "Windows"
	case EOLMixed:
		return "mixed"
	default:
		return "none"
	}
}

func classifyEOL(content []byte) EOLStyle {
	cr, lf := 0, 0
	for _, b := range content {
		switch b {
		case '\r':
			cr++
		case '\n':
			lf++
		}
	}
	switch {
	case lf > 0 && cr == 0:
		return EOLUnix
	case lf == 0 && cr > 0:
		return EOLOldMac
	case cr > 0 && cr == lf:
		return EOLWindows
	case cr > 0 && lf > 0:
		return EOLMixed
	default:
		return EOLNone
	}
}

var lineSplitter = regexp.MustCompile(`\r\n|\r|\n`)

// ValidateFile reads path, classifies its EOL style (warning through sink
// on mixed or absent line terminators, but proceeding regardless), parses
// every line, and returns the ordered records. The first malformed line
// aborts validation with an error naming the 1-based line number.
func ValidateFile(path string, sink logging.Sink) ([]srecord.SRecord, error) {
	if sink == nil {
		sink = logging.Discard
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	style := classifyEOL(content)
	switch style {
	case EOLMixed:
		sink.Warnf("S19 file contains mixed EOL characters")
	case EOLNone:
		sink.Warnf("S19 file contains no EOL characters")
	default:
		sink.Infof("S19 file uses %s line endings", style)
	}

	lines := lineSplitter.Split(strings.TrimRight(string(content), "\r\n"), -1)
	records := make([]srecord.SRecord, 0, len(lines))
	for i, line := range lines {
		rec, err := srecord.Parse(line)
		if err != nil {
			if pe, ok := err.(*srecord.ParseError); ok {
				pe.Line = i + 1
				return nil, pe
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
