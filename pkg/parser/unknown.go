package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var quotedSubstringPattern = regexp.MustCompile(`"([^"]*)"`)

// unknownDirective builds the recovery entry for a line no directive
// accepted. The line and the lines indented by two or more spaces right
// after it are kept, de-indented, as an opaque body.
func unknownDirective(c Cursor) Result[Entry] {
	lines := []string{c.RestOfLine()}
	end := SkipToEndOfLine(c)
	for {
		nl, ok := Newline(end)
		if !ok {
			break
		}
		next := nl.Cursor
		if !strings.HasPrefix(next.RestOfLine(), "  ") || IsBlankLine(next) {
			break
		}
		lines = append(lines, next.RestOfLine())
		end = SkipToEndOfLine(next)
	}
	if nl, ok := Newline(end); ok {
		end = nl.Cursor
	}

	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " ")
	}
	body := strings.TrimSpace(strings.Join(lines, "\n"))

	var date, kind string
	if words := strings.Fields(body); len(words) > 0 {
		if datePattern.MatchString(words[0]) {
			date = words[0]
			if len(words) > 1 {
				kind = words[1]
			}
		} else {
			kind = words[0]
		}
	}

	fields := map[string]any{
		"type": kind,
		"body": body,
	}
	if quoted := quotedSubstringPattern.FindAllStringSubmatch(body, -1); len(quoted) >= 2 {
		fields["value"] = quoted[1][1]
	}

	entry := Entry{
		Kind:   KindUnknownDirective,
		Date:   date,
		Fields: fields,
		Meta: Metadata{
			"warning": StringValue(fmt.Sprintf("Unknown directive at line %d, column %d", c.Line, c.Column)),
			"type":    StringValue(kind),
			"body":    StringValue(body),
		},
	}
	return Result[Entry]{Value: entry, Cursor: end}
}
