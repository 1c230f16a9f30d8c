package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for rendered cards.
type Theme struct {
	Primary lipgloss.Color // borders and labels
	Dim     lipgloss.Color // secondary text
	Warn    lipgloss.Color // degraded state
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#ffb86c"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
	Warn   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Warn:   lipgloss.NewStyle().Bold(true).Foreground(t.Warn),
	}
}

// cardWidth is the inner width of a record card.
const cardWidth = 46

// Card renders one record as a bordered card.
func (s Styles) Card(r study.Record) string {
	rows := [][2]string{
		{"ID", r.ID},
		{"Patient", r.Name},
		{"Date", r.StudyDateDisplay()},
		{"Modality", r.Modality},
		{"Sex", r.Sex},
		{"Size", fmt.Sprintf("%d bytes (%s)", r.SizeBytes, FormatMB(r.SizeBytes))},
	}
	var body []string
	for _, row := range rows {
		label := s.Label.Render(fmt.Sprintf("%-9s", row[0]))
		value := row[1]
		if limit := cardWidth - 10; lipgloss.Width(value) > limit {
			value = truncateString(value, limit-1) + "…"
		}
		body = append(body, label+" "+value)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.Border.GetForeground()).
		Padding(0, 1).
		Width(cardWidth)
	return box.Render(strings.Join(body, "\n"))
}

// Header renders the registry summary line shown above listings and in the
// interactive shell.
func (s Styles) Header(records int, totalBytes int64, durable string) string {
	title := s.Title.Render("medstudy")
	stats := s.Help.Render(fmt.Sprintf("%d records · %s in memory", records, FormatMB(totalBytes)))
	state := s.Help.Render("[durable: " + durable + "]")
	if durable != "connected" {
		state = s.Warn.Render("[durable: " + durable + "]")
	}
	return title + " " + stats + " " + state
}

// WriteRecordTable writes records as aligned columns in the given order.
func WriteRecordTable(w io.Writer, records []study.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tPATIENT\tDATE\tMODALITY\tSEX\tSIZE")
	for i, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, r.ID, r.Name, r.StudyDateDisplay(), r.Modality, r.Sex, FormatBytes(r.SizeBytes))
	}
	return tw.Flush()
}

// truncateString safely truncates a string to the given width,
// handling multi-byte characters correctly.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	currentWidth := 0
	for i, r := range runes {
		w := lipgloss.Width(string(r))
		if currentWidth+w > width {
			return string(runes[:i])
		}
		currentWidth += w
	}
	return s
}
