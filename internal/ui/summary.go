package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ohmyjons/simple-elt/internal/pipeline"
	"github.com/ohmyjons/simple-elt/internal/seed"
)

// Color palette - keeping it minimal and accessible.
var (
	ColorPrimary   = lipgloss.Color("39")  // Blue
	ColorSecondary = lipgloss.Color("245") // Gray
	ColorSuccess   = lipgloss.Color("34")  // Green
	ColorError     = lipgloss.Color("196") // Red
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	successStyle = cellStyle.Foreground(ColorSuccess)
	errorStyle   = cellStyle.Foreground(ColorError)
	plainCell    = lipgloss.NewStyle().Padding(0, 1)
)

// RunSummary renders one line per stage of report. Styled output uses colors
// and a rounded border; plain output uses ASCII only.
func RunSummary(report *pipeline.Report, styled bool) string {
	var b strings.Builder

	title := fmt.Sprintf("run %s %s in %s", report.RunID, report.State, round(report.Duration()))
	if styled {
		title = titleStyle.Render(title)
	}
	b.WriteString(title)
	b.WriteString("\n")

	rows := make([][]string, 0, len(report.Stages))
	for _, s := range report.Stages {
		result := s.Artifact.String()
		if s.Err != nil {
			result = s.Err.Error()
		}
		rows = append(rows, []string{s.Name, string(s.State), strconv.Itoa(s.Attempts), round(s.Duration).String(), result})
	}

	t := newTable(styled, func(row, _ int) lipgloss.Style {
		if !styled {
			return plainCell
		}
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case rows[row][1] == string(pipeline.StateFailed):
			return errorStyle
		case rows[row][1] == string(pipeline.StateSucceeded):
			return successStyle
		default:
			return cellStyle
		}
	}).Headers("STAGE", "STATE", "ATTEMPTS", "DURATION", "RESULT").Rows(rows...)

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// SeedSummary renders the table written by a seed and its inferred columns.
func SeedSummary(result *seed.Result, styled bool) string {
	var b strings.Builder

	title := fmt.Sprintf("seeded %s with %d rows", result.Table, result.Rows)
	if styled {
		title = titleStyle.Render(title)
	}
	b.WriteString(title)
	b.WriteString("\n")

	rows := make([][]string, len(result.Columns))
	for i, c := range result.Columns {
		rows[i] = []string{c.Name, c.Type.SQL()}
	}
	t := newTable(styled, func(row, _ int) lipgloss.Style {
		if styled && row == table.HeaderRow {
			return headerStyle
		}
		return plainCell
	}).Headers("COLUMN", "TYPE").Rows(rows...)

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

func newTable(styled bool, style table.StyleFunc) *table.Table {
	t := table.New().StyleFunc(style)
	if styled {
		return t.Border(lipgloss.RoundedBorder()).BorderStyle(lipgloss.NewStyle().Foreground(ColorSecondary))
	}
	return t.Border(lipgloss.ASCIIBorder())
}

func round(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(100 * time.Millisecond)
}
