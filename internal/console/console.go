// Package console renders user-facing run output: status lines and a
// progress bar for remote writes.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

const barWidth = 20

var (
	dim    = color.New(color.Faint)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
)

// Console writes human-readable run output. Color handling is delegated to
// the color package, which honors NO_COLOR and non-TTY output on its own;
// DisableColor forces it off for the --no-color flag.
type Console struct {
	w io.Writer
}

// New returns a console writing to stdout.
func New() *Console {
	return &Console{w: os.Stdout}
}

// NewWithWriter returns a console writing to w, for tests.
func NewWithWriter(w io.Writer) *Console {
	return &Console{w: w}
}

// DisableColor turns off all color output process-wide.
func DisableColor() {
	color.NoColor = true
}

// Info prints a neutral status line.
func (c *Console) Info(msg string) {
	fmt.Fprintf(c.w, "  %s %s\n", dim.Sprint("•"), msg)
}

// Success prints a success line.
func (c *Console) Success(msg string) {
	fmt.Fprintf(c.w, "  %s %s\n", green.Sprint("✓"), msg)
}

// Warning prints a warning line.
func (c *Console) Warning(msg string) {
	fmt.Fprintf(c.w, "  %s %s\n", yellow.Sprint("!"), msg)
}

// Error prints an error line.
func (c *Console) Error(msg string) {
	fmt.Fprintf(c.w, "  %s %s\n", red.Sprint("✗"), msg)
}

// Progress redraws the in-place progress line, 1-based over the number of
// remote writes the plan needs. The final update ends the line.
func (c *Console) Progress(current, total int, msg string) {
	var pct float64
	filled := 0
	if total > 0 {
		pct = float64(current) / float64(total) * 100
		filled = barWidth * current / total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(c.w, "\r  %s %5.1f%% %-50s", cyan.Sprint(bar), pct, msg)
	if current == total {
		fmt.Fprintln(c.w)
	}
}

// Blank prints an empty line.
func (c *Console) Blank() {
	fmt.Fprintln(c.w)
}
