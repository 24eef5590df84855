// Package render turns the directory state into text for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/dirk.krummacker/person-directory/internal/directory"
	"gitlab.com/dirk.krummacker/person-directory/internal/notify"
	"gitlab.com/dirk.krummacker/person-directory/internal/phone"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// Texts shown by the directory view.
const (
	EmptyState  = "No person found"
	LoadingText = "Loading..."
	missing     = "-"
)

// Headers are the column titles of the directory table.
var Headers = []string{"ID", "LAST NAME", "FIRST NAME", "BIRTH DATE", "ADDRESS", "PHONE"}

var (
	successColor = lipgloss.Color("#8BC34A")
	errorColor   = lipgloss.Color("#e53935")
	mutedColor   = lipgloss.Color("#6b7280")
)

// Styles groups the lipgloss styles of the view.
type Styles struct {
	Chip    lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the styles used by the CLI.
func DefaultStyles() Styles {
	return Styles{
		Chip:    lipgloss.NewStyle().Bold(true).Foreground(successColor),
		Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Muted:   lipgloss.NewStyle().Foreground(mutedColor),
		Success: lipgloss.NewStyle().Foreground(successColor),
		Error:   lipgloss.NewStyle().Foreground(errorColor).Bold(true),
	}
}

// Chip is the result counter, e.g. "3 result(s)".
func Chip(count int) string {
	return fmt.Sprintf("%d result(s)", count)
}

// Phone renders a canonical phone for display, or "-" when it is absent.
func Phone(p *string) string {
	canonical := model.StringValue(p)
	if canonical == "" {
		return missing
	}
	display, err := phone.ToDisplay(canonical)
	if err != nil {
		// Keep whatever the backend sent rather than hide it.
		return canonical
	}
	return display
}

// Row returns the table cells of p.
func Row(p model.Person) []string {
	birth := missing
	if p.BirthDate != nil && !p.BirthDate.IsZero() {
		birth = p.BirthDate.String()
	}
	address := model.StringValue(p.Address)
	if address == "" {
		address = missing
	}
	return []string{
		strconv.FormatInt(p.Id, 10),
		p.LastName,
		p.FirstName,
		birth,
		address,
		Phone(p.Phone),
	}
}

// Directory renders the chip, the loading line and the table of v. An empty result set shows
// a single empty-state row.
func Directory(v directory.View, styles Styles) string {
	var sb strings.Builder
	sb.WriteString(styles.Chip.Render(Chip(v.Count())))
	sb.WriteString("\n")
	if v.Loading {
		sb.WriteString(styles.Muted.Render(LoadingText))
		sb.WriteString("\n")
	}

	rows := make([][]string, 0, len(v.Results))
	for _, p := range v.Results {
		rows = append(rows, Row(p))
	}
	sb.WriteString(table(Headers, rows, styles))

	if v.PendingDelete != nil {
		sb.WriteString(DeletePrompt(*v.PendingDelete))
		sb.WriteString("\n")
	}
	return sb.String()
}

// DeletePrompt is the question asked before a delete.
func DeletePrompt(p model.Person) string {
	return fmt.Sprintf("Delete %s %s?", p.LastName, p.FirstName)
}

// Notice renders a notice in the color of its severity.
func Notice(n notify.Notice, styles Styles) string {
	if n.Severity == notify.SeverityError {
		return styles.Error.Render(n.Message)
	}
	return styles.Success.Render(n.Message)
}

func table(headers []string, rows [][]string, styles Styles) string {
	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) {
				colWidths[i] = max(colWidths[i], lipgloss.Width(cell))
			}
		}
	}
	totalWidth := len(headers) - 1
	for i := range colWidths {
		// Padding counts into the lipgloss width.
		colWidths[i] += 2
		totalWidth += colWidths[i]
	}

	var sb strings.Builder
	sep := styles.Muted.Render("|")
	for i, h := range headers {
		sb.WriteString(styles.Header.Width(colWidths[i]).Render(h))
		if i < len(headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(styles.Muted.Render(strings.Repeat("-", totalWidth)))
	sb.WriteString("\n")

	if len(rows) == 0 {
		sb.WriteString(styles.Cell.Width(totalWidth).Align(lipgloss.Center).Render(EmptyState))
		sb.WriteString("\n")
		return sb.String()
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) {
				sb.WriteString(styles.Cell.Width(colWidths[i]).Render(cell))
				if i < len(row)-1 {
					sb.WriteString(sep)
				}
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
