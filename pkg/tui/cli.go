// Package tui renders pipeline results for the terminal.
// Simple, streaming, no interactive UI: styled text and tables.
package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/schollz/progressbar/v3"

	"github.com/mesflow/mesflow/internal/model"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// Printer writes styled output to W.
type Printer struct {
	W io.Writer
}

// Section prints an accented section title.
func (p Printer) Section(title string) {
	fmt.Fprintln(p.W)
	fmt.Fprintln(p.W, accentStyle.Render("▸ "+strings.ToUpper(title)))
}

// Field prints one "label value" line.
func (p Printer) Field(label, value string) {
	fmt.Fprintf(p.W, "  %s %s\n", mutedStyle.Render(label+":"), titleStyle.Render(value))
}

// Success prints a check-marked line.
func (p Printer) Success(msg string) {
	fmt.Fprintln(p.W, successStyle.Render("  ✓ "+msg))
}

// Warn prints a highlighted line.
func (p Printer) Warn(msg string) {
	fmt.Fprintln(p.W, accentStyle.Render("  ✗ "+msg))
}

// Muted prints a dimmed line.
func (p Printer) Muted(msg string) {
	fmt.Fprintln(p.W, mutedStyle.Render("  "+msg))
}

// Table prints rows under headers.
func (p Printer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(p.W, t.Render())
}

// Measure formats a nullable measure with the given decimals.
func Measure(m model.Measure, decimals int) string {
	if !m.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(m.Float64, 'f', decimals, 64)
}

// Instant formats a nullable instant.
func Instant(i model.Instant) string {
	if !i.Valid {
		return "n/a"
	}
	return i.Time.Format("2006-01-02 15:04")
}

// Delimiter names a separator rune.
func Delimiter(r rune) string {
	switch r {
	case 0:
		return "n/a"
	case '\t':
		return "tab"
	default:
		return strconv.QuoteRune(r)
	}
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// FormatBytes formats a byte count with a binary unit.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// ProgressReader returns a reader wrapper that draws a byte progress bar on
// w. Unknown sizes (-1) render a spinner.
func ProgressReader(w io.Writer, description string) func(io.Reader, int64) io.Reader {
	return func(r io.Reader, size int64) io.Reader {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "",
				BarEnd:        "",
			}),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		pr := progressbar.NewReader(r, bar)
		return &pr
	}
}
