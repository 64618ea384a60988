// Package logging defines the log sink every FUCT subsystem is handed
// instead of reaching for a package-level logger. A colored console
// adapter lives only at the CLI boundary (see NewConsoleSink).
package logging

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// Dump renders v as a multi-line structure dump, for Debugf calls that
// want to show a whole decoded value rather than a formatted summary.
func Dump(v any) string {
	return spew.Sdump(v)
}

// Sink is implemented by anything that can receive leveled, printf-style
// log messages. Subsystems take a Sink at construction time and never
// import a concrete logging package themselves.
type Sink interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Discard is a Sink that drops everything, useful as a default in tests.
var Discard Sink = discard{}

type discard struct{}

func (discard) Debugf(string, ...any) {}
func (discard) Infof(string, ...any)  {}
func (discard) Warnf(string, ...any)  {}
func (discard) Errorf(string, ...any) {}

// Collector is a Sink that records every message, for tests that want to
// assert a particular warning or error was emitted.
type Collector struct {
	Messages []string
}

func (c *Collector) Debugf(format string, args ...any) { c.record("DEBUG", format, args) }
func (c *Collector) Infof(format string, args ...any)  { c.record("INFO", format, args) }
func (c *Collector) Warnf(format string, args ...any)  { c.record("WARN", format, args) }
func (c *Collector) Errorf(format string, args ...any) { c.record("ERROR", format, args) }

func (c *Collector) record(level, format string, args []any) {
	c.Messages = append(c.Messages, level+" "+fmt.Sprintf(format, args...))
}
