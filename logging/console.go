package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleSink is the colored, level-prefixed adapter used at the CLI
// boundary, the Go equivalent of the original's colorlog.ColoredFormatter.
type ConsoleSink struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool

	debugStyle lipgloss.Style
	infoStyle  lipgloss.Style
	warnStyle  lipgloss.Style
	errStyle   lipgloss.Style
}

// NewConsoleSink returns a ConsoleSink writing to stderr. Debug-level
// messages are suppressed unless debug is true.
func NewConsoleSink(debug bool) *ConsoleSink {
	return &ConsoleSink{
		out:        os.Stderr,
		debug:      debug,
		debugStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(false),
		infoStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warnStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		errStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

func (c *ConsoleSink) println(style lipgloss.Style, level, format string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(c.out, style.Render(fmt.Sprintf("%-8s", level))+" "+msg)
}

func (c *ConsoleSink) Debugf(format string, args ...any) {
	if !c.debug {
		return
	}
	c.println(c.debugStyle, "DEBUG", format, args)
}

func (c *ConsoleSink) Infof(format string, args ...any) {
	c.println(c.infoStyle, "INFO", format, args)
}

func (c *ConsoleSink) Warnf(format string, args ...any) {
	c.println(c.warnStyle, "WARNING", format, args)
}

func (c *ConsoleSink) Errorf(format string, args ...any) {
	c.println(c.errStyle, "ERROR", format, args)
}
