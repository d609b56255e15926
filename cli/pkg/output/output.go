// Package output renders CLI results: status lines, JSON, aligned tables,
// and domain coloring for severities and anchor states.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chaintrace-systems/chaintrace-stack/cli/pkg/color"
)

var (
	successColor  = color.New(color.FgGreen, color.Bold)
	errorColor    = color.New(color.FgRed, color.Bold)
	infoColor     = color.New(color.FgCyan)
	warnColor     = color.New(color.FgYellow)
	headerColor   = color.New(color.FgWhite, color.Bold)
	lowColor      = color.New(color.FgGreen)
	mediumColor   = color.New(color.FgYellow)
	highColor     = color.New(color.FgRed)
	criticalColor = color.New(color.FgRed, color.Bold)
	dimColor      = color.New(color.Dim)
)

func Success(format string, a ...interface{}) {
	successColor.Printf("%s\n", "✓ "+fmt.Sprintf(format, a...))
}

func Error(format string, a ...interface{}) {
	errorColor.Fprintf(os.Stderr, "%s\n", "✗ "+fmt.Sprintf(format, a...))
}

func Info(format string, a ...interface{}) {
	infoColor.Printf("%s\n", fmt.Sprintf(format, a...))
}

func Warn(format string, a ...interface{}) {
	warnColor.Printf("%s\n", "⚠ "+fmt.Sprintf(format, a...))
}

// Severity colors a severity label by band.
func Severity(s string) string {
	switch strings.ToLower(s) {
	case "low":
		return lowColor.Sprint(s)
	case "medium":
		return mediumColor.Sprint(s)
	case "high":
		return highColor.Sprint(s)
	case "critical":
		return criticalColor.Sprint(s)
	}
	return s
}

// AnchorStatus colors a ledger anchor state.
func AnchorStatus(s string) string {
	switch strings.ToLower(s) {
	case "confirmed":
		return lowColor.Sprint(s)
	case "pending":
		return dimColor.Sprint(s)
	case "unreachable":
		return highColor.Sprint(s)
	}
	return s
}

// JSON writes v to stdout as indented JSON.
func JSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows in aligned columns.
type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers []string) *Table {
	return &Table{headers: headers}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	for i, h := range t.headers {
		headerColor.Printf("%-*s  ", widths[i], h)
	}
	fmt.Println()

	for i := range t.headers {
		fmt.Print(strings.Repeat("-", widths[i]) + "  ")
	}
	fmt.Println()

	for _, row := range t.rows {
		for i, cell := range row {
			// Escape sequences take bytes but no columns; pad by display width.
			fmt.Print(cell + strings.Repeat(" ", widths[i]-displayWidth(cell)) + "  ")
		}
		fmt.Println()
	}
}

// displayWidth counts printable characters, skipping ANSI escape sequences.
func displayWidth(s string) int {
	width := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\033':
			inEscape = true
		default:
			width++
		}
	}
	return width
}
