package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

// Styles holds all lipgloss styles derived from a palette
type Styles struct {
	Title      lipgloss.Style
	Header     lipgloss.Style
	Cell       lipgloss.Style
	Label      lipgloss.Style
	Muted      lipgloss.Style
	Border     lipgloss.Style
	HealthGood lipgloss.Style
	HealthMed  lipgloss.Style
	HealthBad  lipgloss.Style
	Warn       lipgloss.Style
	Error      lipgloss.Style
	OK         lipgloss.Style
}

// NewStyles creates styles from a palette
func NewStyles(p Palette) Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.FG)).Bold(true),
		Header:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true).Padding(0, 1),
		Cell:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.FG)).Padding(0, 1),
		Label:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)).Width(14),
		Muted:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		Border:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		HealthGood: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)),
		HealthMed:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warn)),
		HealthBad:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)),
		Warn:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warn)),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)).Bold(true),
		OK:         lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true),
	}
}

// Printer writes styled output to w.
type Printer struct {
	w      io.Writer
	styles Styles
	width  int
}

// NewPrinter returns a printer. width bounds the result table; zero means
// unbounded.
func NewPrinter(w io.Writer, styles Styles, width int) *Printer {
	return &Printer{w: w, styles: styles, width: width}
}

// Results prints records as a table, in the order given.
func (p *Printer) Results(records []torrent.Record) {
	if len(records) == 0 {
		fmt.Fprintln(p.w, p.styles.Muted.Render("No results."))
		return
	}

	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			TruncateString(r.Name, p.nameWidth()),
			r.SizeDisplay,
			strconv.Itoa(r.Seeders),
			strconv.Itoa(r.Leechers),
			p.HealthBar(r.Health(), 8),
			r.AddedDisplay,
			r.Provider,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.styles.Border).
		Headers("#", "NAME", "SIZE", "SE", "LE", "HEALTH", "ADDED", "SOURCE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.Header
			}
			if col == 0 {
				return p.styles.Muted.Padding(0, 1)
			}
			return p.styles.Cell
		})

	fmt.Fprintln(p.w, t.Render())
}

// nameWidth leaves room for the fixed-width columns.
func (p *Printer) nameWidth() int {
	if p.width <= 0 {
		return 60
	}
	w := p.width - 80
	if w < 16 {
		w = 16
	}
	return w
}

// ProviderErrors prints the providers that failed during a partial result.
func (p *Printer) ProviderErrors(errs []torrent.ProviderError) {
	for _, e := range errs {
		fmt.Fprintln(p.w, p.styles.Warn.Render("warning: "+e.Provider+" failed: "+e.Message))
	}
}

// Details prints one record. A placeholder is reported as not found.
func (p *Printer) Details(r torrent.Record, found bool) {
	if !found || r.IsPlaceholder() {
		fmt.Fprintln(p.w, p.styles.Error.Render("Torrent not found: "+r.Identity()))
		fmt.Fprintln(p.w, p.styles.Muted.Render("Details could not be retrieved from any available source."))
		return
	}

	fmt.Fprintln(p.w, p.styles.Title.Render(r.Name))
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintln(p.w, p.styles.Label.Render(label)+value)
	}
	field("Size", r.SizeDisplay)
	field("Seeders", strconv.Itoa(r.Seeders))
	field("Leechers", strconv.Itoa(r.Leechers))
	field("Health", p.HealthBar(r.Health(), 10)+fmt.Sprintf(" %d%%", r.Health()))
	field("Added", r.AddedDisplay)
	field("Category", string(r.Category))
	field("Type", r.Type)
	field("Language", r.Language)
	field("Source", r.Provider)
	field("Uploader", r.Uploader)
	if r.FileCount > 0 {
		field("Files", strconv.Itoa(r.FileCount))
	}
	field("Downloads", r.Downloads)
	field("Last checked", r.LastChecked)
	field("Info hash", r.InfoHash)
	if r.ID != "" && r.ID != r.InfoHash {
		field("ID", r.ID)
	}
	field("Magnet", r.Magnet)
	if r.Description != "" {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, r.Description)
	}
}

// Connection prints a probe outcome.
func (p *Printer) Connection(ok bool, message, url string) {
	status := p.styles.OK.Render("success")
	if !ok {
		status = p.styles.Error.Render("error")
	}
	fmt.Fprintf(p.w, "%s %s %s\n", status, message, p.styles.Muted.Render("("+url+")"))
}

// Error prints err in the error style.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.styles.Error.Render("error:")+" "+err.Error())
}

// HealthBar renders a visual health indicator
func (p *Printer) HealthBar(health int, width int) string {
	filled := (health * width) / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var style lipgloss.Style
	switch {
	case health >= 70:
		style = p.styles.HealthGood
	case health >= 40:
		style = p.styles.HealthMed
	default:
		style = p.styles.HealthBad
	}

	return style.Render(strings.Repeat("█", filled)) + p.styles.Muted.Render(strings.Repeat("░", width-filled))
}

// TruncateString shortens s to max display columns with an ellipsis
func TruncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	if max <= 3 {
		return runewidth.Truncate(s, max, "")
	}
	return runewidth.Truncate(s, max, "...")
}
