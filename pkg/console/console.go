// Package console renders CLI messages, parse errors and tables, with
// colors only when stdout is a terminal.
package console

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/lucasew/contapila/pkg/parser"
)

// SourceError is an error located in a ledger file.
type SourceError struct {
	File    string
	Line    int
	Column  int
	Message string
	// Context holds source lines starting at ContextStart.
	Context      []string
	ContextStart int
}

var (
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	infoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#50FA7B"))

	filePathStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#BD93F9"))

	lineNumberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#BD93F9"))

	tableBorderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6272A4"))
)

// isTTY checks if stdout is a terminal
func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// FromSyntaxError builds a SourceError for err, taking one line of context
// on each side of the failing line from text.
func FromSyntaxError(err *parser.SyntaxError, text string) SourceError {
	lines := strings.Split(text, "\n")
	start := max(err.Line-1, 1)
	end := min(err.Line+1, len(lines))

	var context []string
	if start <= end {
		context = lines[start-1 : end]
	}

	return SourceError{
		File:         err.Source,
		Line:         err.Line,
		Column:       err.Column,
		Message:      err.Message,
		Context:      context,
		ContextStart: start,
	}
}

// FormatParseError renders err. A *parser.SyntaxError gets a source
// excerpt from text; other errors are rendered as plain error messages.
func FormatParseError(err error, text string) string {
	var syntaxErr *parser.SyntaxError
	if errors.As(err, &syntaxErr) {
		return FormatSourceError(FromSyntaxError(syntaxErr, text))
	}
	return FormatErrorMessage(err.Error())
}

// FormatSourceError renders "file:line:column: error: message" followed by
// the numbered context and a caret under the column.
func FormatSourceError(err SourceError) string {
	var output strings.Builder

	if err.File != "" {
		location := fmt.Sprintf("%s:%d:%d:", err.File, err.Line, err.Column)
		output.WriteString(applyStyle(filePathStyle, location))
		output.WriteString(" ")
	}
	output.WriteString(applyStyle(errorStyle, "error:"))
	output.WriteString(" ")
	output.WriteString(err.Message)
	output.WriteString("\n")

	lastLine := err.ContextStart + len(err.Context) - 1
	width := len(fmt.Sprintf("%d", lastLine))
	for i, line := range err.Context {
		lineNum := err.ContextStart + i
		output.WriteString(applyStyle(lineNumberStyle, fmt.Sprintf("%*d", width, lineNum)))
		output.WriteString(" | ")
		output.WriteString(line)
		output.WriteString("\n")

		if lineNum == err.Line && err.Column > 0 {
			output.WriteString(strings.Repeat(" ", width+3+err.Column-1))
			output.WriteString(applyStyle(errorStyle, "^"))
			output.WriteString("\n")
		}
	}

	return output.String()
}

// FormatErrorMessage formats an error message
func FormatErrorMessage(message string) string {
	return applyStyle(errorStyle, "✗ ") + message
}

// FormatSuccessMessage formats a success message
func FormatSuccessMessage(message string) string {
	return applyStyle(successStyle, "✓ ") + message
}

// FormatInfoMessage formats an informational message
func FormatInfoMessage(message string) string {
	return applyStyle(infoStyle, "ℹ ") + message
}

// FormatWarningMessage formats a warning message
func FormatWarningMessage(message string) string {
	return applyStyle(warningStyle, "⚠ ") + message
}

// RenderTable renders rows under headers with padded columns.
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var output strings.Builder
	output.WriteString(renderRow(headers, widths, tableHeaderStyle))
	output.WriteString("\n")

	separators := make([]string, len(widths))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}
	output.WriteString(renderRow(separators, widths, tableBorderStyle))
	output.WriteString("\n")

	for _, row := range rows {
		output.WriteString(renderRow(row, widths, lipgloss.NewStyle()))
		output.WriteString("\n")
	}
	return output.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	var row strings.Builder
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		row.WriteString(applyStyle(style, fmt.Sprintf("%-*s", widths[i], cell)))
		if i < len(cells)-1 && i < len(widths)-1 {
			row.WriteString(applyStyle(tableBorderStyle, " | "))
		}
	}
	return row.String()
}
