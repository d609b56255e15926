// Package color renders ANSI-colored terminal text. Coloring is disabled
// when NO_COLOR is set or when NoColor is flipped programmatically.
package color

import (
	"fmt"
	"io"
	"os"
)

const reset = "\033[0m"

// Foreground colors.
const (
	FgBlack   = 30
	FgRed     = 31
	FgGreen   = 32
	FgYellow  = 33
	FgBlue    = 34
	FgMagenta = 35
	FgCyan    = 36
	FgWhite   = 37
)

// Attributes.
const (
	Bold      = 1
	Dim       = 2
	Underline = 4
)

// NoColor disables all escape sequences. Honors the NO_COLOR convention.
var NoColor = os.Getenv("NO_COLOR") != ""

// Color is a reusable set of ANSI attributes.
type Color struct {
	params []int
}

// New creates a Color with the given attributes.
func New(attrs ...int) *Color {
	return &Color{params: attrs}
}

// wrap surrounds s with this color's escape sequence, or returns it
// unchanged when coloring is off.
func (c *Color) wrap(s string) string {
	if NoColor || len(c.params) == 0 {
		return s
	}
	seq := "\033["
	for i, p := range c.params {
		if i > 0 {
			seq += ";"
		}
		seq += fmt.Sprintf("%d", p)
	}
	return seq + "m" + s + reset
}

// Printf prints formatted colored output to stdout.
func (c *Color) Printf(format string, a ...interface{}) {
	fmt.Print(c.wrap(fmt.Sprintf(format, a...)))
}

// Fprintf prints formatted colored output to the given writer.
func (c *Color) Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, c.wrap(fmt.Sprintf(format, a...)))
}

// Sprint returns a colored string.
func (c *Color) Sprint(a ...interface{}) string {
	return c.wrap(fmt.Sprint(a...))
}

// Sprintf returns a formatted colored string.
func (c *Color) Sprintf(format string, a ...interface{}) string {
	return c.wrap(fmt.Sprintf(format, a...))
}
