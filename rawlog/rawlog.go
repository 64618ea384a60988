// Package rawlog writes the raw byte stream off the serial port to disk,
// rotating to a new file once the current one crosses a size limit.
package rawlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultSizeLimit is used when the caller does not specify one: 128M
// decimal bytes, matching the source's default.
const DefaultSizeLimit = 128_000_000

// Writer rotates a raw dump file by size. It is not safe for concurrent
// use from multiple goroutines.
type Writer struct {
	basename   string
	sizeLimit  int64
	file       *os.File
	written    int64
	generation int
}

// Filename builds the timestamped log filename the source generates:
// "<prefix>-<YYYYMMDD-HHMMSS>.bin", optionally joined under dir.
func Filename(dir, prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "log"
	}
	name := fmt.Sprintf("%s-%s.bin", prefix, now.Format("20060102-150405"))
	if dir != "" {
		return filepath.Join(dir, name)
	}
	return name
}

// ParseSizeLimit parses a "<N>M" or "<N>G" size specification.
func ParseSizeLimit(spec string) (int64, error) {
	if len(spec) < 2 {
		return 0, fmt.Errorf("rawlog: size %q is not numeric value", spec)
	}
	unit := spec[len(spec)-1]
	digits := spec[:len(spec)-1]
	if !isDigits(digits) {
		return 0, fmt.Errorf("rawlog: size %q is not numeric value", digits)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rawlog: size %q is not numeric value", digits)
	}
	switch unit {
	case 'M':
		return n * 1_000_000, nil
	case 'G':
		return n * 1_000_000_000, nil
	default:
		return 0, fmt.Errorf("rawlog: size has invalid unit (%c)", unit)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}

// New opens basename for writing, rotating to basename.N once sizeLimit is
// exceeded. A sizeLimit of 0 uses DefaultSizeLimit.
func New(basename string, sizeLimit int64) (*Writer, error) {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	f, err := os.Create(basename)
	if err != nil {
		return nil, fmt.Errorf("rawlog: %w", err)
	}
	return &Writer{basename: basename, sizeLimit: sizeLimit, file: f}, nil
}

// Write appends p to the current file, rotating first if the file has
// already reached the size limit.
func (w *Writer) Write(p []byte) (int, error) {
	if w.written >= w.sizeLimit {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *Writer) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("rawlog: %w", err)
	}
	w.generation++
	name := fmt.Sprintf("%s.%d", w.basename, w.generation)
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("rawlog: %w", err)
	}
	w.file = f
	w.written = 0
	return nil
}

// CurrentName returns the path of the file currently being written.
func (w *Writer) CurrentName() string {
	if w.generation == 0 {
		return w.basename
	}
	return fmt.Sprintf("%s.%d", w.basename, w.generation)
}

// Close closes the current file.
func (w *Writer) Close() error {
	return w.file.Close()
}
