package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Patterns shared by the combinators. Every pattern is anchored so it only
// matches at the cursor.
var (
	datePattern         = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	accountPattern      = regexp.MustCompile(`^[A-Z][A-Za-z0-9:_-]+`)
	numberPattern       = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?`)
	currencyPattern     = regexp.MustCompile(`^[A-Z][A-Z0-9_]*`)
	amountUnitPattern   = regexp.MustCompile(`^[A-Z0-9_]+`)
	booleanPattern      = regexp.MustCompile(`^(?i:true|false|yes|no|1|0)`)
	unquotedPattern     = regexp.MustCompile(`^\S+`)
	arrayItemPattern    = regexp.MustCompile(`^[^\s,;]+`)
	emailPattern        = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tagPattern          = regexp.MustCompile(`^#([a-zA-Z0-9_-]+)`)
	linkPattern         = regexp.MustCompile(`^\^([a-zA-Z0-9_-]+)`)
	metadataKeyPattern  = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_-]*)[ \t]*:(?:[ \t]+|$)`)
	integerValuePattern = regexp.MustCompile(`^\d+$`)
	floatValuePattern   = regexp.MustCompile(`^\d*\.\d+$`)
)

// Regexp matches re at the cursor. The pattern must be anchored with ^ and
// must not match newlines unless the caller wants to cross lines.
func Regexp(c Cursor, re *regexp.Regexp) (Result[[]string], bool) {
	rest := c.RestOfLine()
	loc := re.FindStringSubmatchIndex(rest)
	if loc == nil || loc[0] != 0 {
		return Result[[]string]{}, false
	}

	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = rest[loc[2*i]:loc[2*i+1]]
		}
	}
	return Result[[]string]{Value: groups, Cursor: c.Advance(loc[1])}, true
}

// Literal matches s exactly.
func Literal(c Cursor, s string) (Result[string], bool) {
	if c.PeekString(len(s)) != s {
		return Result[string]{}, false
	}
	return Result[string]{Value: s, Cursor: c.Advance(len(s))}, true
}

// Keyword matches word followed by a non-word character or end of input,
// so "open" does not match the start of "opening".
func Keyword(c Cursor, word string) (Result[string], bool) {
	r, ok := Literal(c, word)
	if !ok {
		return r, false
	}
	if isWordByte(r.Cursor.Peek(0)) {
		return Result[string]{}, false
	}
	return r, true
}

// KeywordParser returns a FieldParser that matches the given keyword.
func KeywordParser(word string) FieldParser {
	return func(c Cursor) (Result[any], bool, error) {
		r, ok := Keyword(c, word)
		return Result[any]{Value: r.Value, Cursor: r.Cursor}, ok, nil
	}
}

// Date matches YYYY-MM-DD without calendar validation.
func Date(c Cursor) (Result[string], bool) {
	return firstGroup(Regexp(c, datePattern))
}

// Number matches a signed decimal number.
func Number(c Cursor) (Result[float64], bool) {
	r, ok := Regexp(c, numberPattern)
	if !ok {
		return Result[float64]{}, false
	}
	v, err := strconv.ParseFloat(r.Value[0], 64)
	if err != nil {
		return Result[float64]{}, false
	}
	return Result[float64]{Value: v, Cursor: r.Cursor}, true
}

// Currency matches a standalone commodity code starting with a letter.
func Currency(c Cursor) (Result[string], bool) {
	return firstGroup(Regexp(c, currencyPattern))
}

// ParseAmount matches a number, optional horizontal whitespace and a
// commodity code. The code may start with a digit in this position.
func ParseAmount(c Cursor) (Result[Amount], bool) {
	num, ok := Number(c)
	if !ok {
		return Result[Amount]{}, false
	}
	unit, ok := Regexp(SkipWhitespace(num.Cursor), amountUnitPattern)
	if !ok {
		return Result[Amount]{}, false
	}
	return Result[Amount]{
		Value:  Amount{Value: num.Value, Currency: unit.Value[0]},
		Cursor: unit.Cursor,
	}, true
}

// Account matches an account name such as Assets:Bank:Checking.
func Account(c Cursor) (Result[string], bool) {
	return firstGroup(Regexp(c, accountPattern))
}

// Flag matches a transaction flag, '*' or '!'.
func Flag(c Cursor) (Result[string], bool) {
	switch c.Peek(0) {
	case '*', '!':
		return Result[string]{Value: string(c.Peek(0)), Cursor: c.Advance(1)}, true
	}
	return Result[string]{}, false
}

// Boolean matches true/false/yes/no/1/0, case-insensitively.
func Boolean(c Cursor) (Result[bool], bool) {
	r, ok := Regexp(c, booleanPattern)
	if !ok {
		return Result[bool]{}, false
	}
	switch strings.ToLower(r.Value[0]) {
	case "true", "yes", "1":
		return Result[bool]{Value: true, Cursor: r.Cursor}, true
	default:
		return Result[bool]{Value: false, Cursor: r.Cursor}, true
	}
}

// Email matches an e-mail address.
func Email(c Cursor) (Result[string], bool) {
	return firstGroup(Regexp(c, emailPattern))
}

// QuotedString matches a double-quoted string with \" \n \t escapes; any
// other escaped byte is kept literally. A missing closing quote returns a
// *SyntaxError, which callers must propagate as fatal.
func QuotedString(c Cursor) (Result[string], bool, error) {
	if c.Peek(0) != '"' {
		return Result[string]{}, false, nil
	}

	var sb strings.Builder
	current := c.Advance(1)
	for !current.AtEnd() && current.Peek(0) != '"' {
		ch := current.Peek(0)
		if ch == '\\' {
			current = current.Advance(1)
			if current.AtEnd() {
				break
			}
			switch escaped := current.Peek(0); escaped {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(escaped)
			}
			current = current.Advance(1)
			continue
		}
		sb.WriteByte(ch)
		current = current.Advance(1)
	}

	if current.Peek(0) != '"' {
		return Result[string]{}, false, &SyntaxError{
			Line:    c.Line,
			Column:  c.Column,
			Message: "Unterminated string",
		}
	}
	return Result[string]{Value: sb.String(), Cursor: current.Advance(1)}, true, nil
}

// StringField matches a quoted string or, failing that, a run of
// non-whitespace characters.
func StringField(c Cursor) (Result[string], bool, error) {
	quoted, ok, err := QuotedString(c)
	if err != nil || ok {
		return quoted, ok, err
	}
	r, ok := firstGroup(Regexp(c, unquotedPattern))
	return r, ok, nil
}

// Array matches a list of string items separated by commas or whitespace.
// It stops before tags, links and comments.
func Array(c Cursor) (Result[[]string], bool, error) {
	var values []string
	current := c
	for !current.AtEnd() {
		switch current.Peek(0) {
		case '#', '^', ';', '\n':
			return arrayResult(values, current)
		}

		quoted, ok, err := QuotedString(current)
		if err != nil {
			return Result[[]string]{}, false, err
		}
		if ok {
			values = append(values, quoted.Value)
			current = quoted.Cursor
		} else {
			item, ok := Regexp(current, arrayItemPattern)
			if !ok {
				break
			}
			values = append(values, item.Value[0])
			current = item.Cursor
		}

		current = SkipWhitespace(current)
		if current.Peek(0) == ',' {
			current = SkipWhitespace(current.Advance(1))
		}
	}
	return arrayResult(values, current)
}

func arrayResult(values []string, c Cursor) (Result[[]string], bool, error) {
	if len(values) == 0 {
		return Result[[]string]{}, false, nil
	}
	return Result[[]string]{Value: values, Cursor: c}, true, nil
}

// TagOrLink matches a single #tag or ^link.
func TagOrLink(c Cursor) (Result[TagLink], bool) {
	if r, ok := Regexp(c, tagPattern); ok {
		return Result[TagLink]{Value: TagLink{Type: TagType, Value: r.Value[1]}, Cursor: r.Cursor}, true
	}
	if r, ok := Regexp(c, linkPattern); ok {
		return Result[TagLink]{Value: TagLink{Type: LinkType, Value: r.Value[1]}, Cursor: r.Cursor}, true
	}
	return Result[TagLink]{}, false
}

// TagsAndLinks matches a whitespace separated run of tags and links,
// preserving source order.
func TagsAndLinks(c Cursor) (Result[[]TagLink], bool) {
	var items []TagLink
	current := c
	for !current.AtEnd() {
		next := SkipWhitespace(current)
		item, ok := TagOrLink(next)
		if !ok {
			break
		}
		items = append(items, item.Value)
		current = item.Cursor
	}
	if len(items) == 0 {
		return Result[[]TagLink]{}, false
	}
	return Result[[]TagLink]{Value: items, Cursor: current}, true
}

// SplitTagsAndLinks separates a mixed sequence into tag and link names.
// Both slices are non-nil.
func SplitTagsAndLinks(items []TagLink) (tags, links []string) {
	tags, links = []string{}, []string{}
	for _, item := range items {
		if item.Type == LinkType {
			links = append(links, item.Value)
		} else {
			tags = append(tags, item.Value)
		}
	}
	return tags, links
}

// Newline consumes a single '\n'.
func Newline(c Cursor) (Result[string], bool) {
	if c.Peek(0) != '\n' {
		return Result[string]{}, false
	}
	return Result[string]{Value: "\n", Cursor: c.Advance(1)}, true
}

// SkipWhitespace skips horizontal whitespace. It never crosses a newline.
func SkipWhitespace(c Cursor) Cursor {
	n := 0
	rest := c.Rest()
	for n < len(rest) && isHorizontalSpace(rest[n]) {
		n++
	}
	return c.Advance(n)
}

// SkipToEndOfLine moves the cursor to the next newline, leaving it unread.
func SkipToEndOfLine(c Cursor) Cursor {
	return c.Advance(len(c.RestOfLine()))
}

// SkipLine moves the cursor past the next newline.
func SkipLine(c Cursor) Cursor {
	end := SkipToEndOfLine(c)
	if nl, ok := Newline(end); ok {
		return nl.Cursor
	}
	return end
}

// SliceAtComment returns the byte offset, relative to the cursor, of the
// first ';' on the current line that is not inside a quoted string.
func SliceAtComment(c Cursor) (int, bool) {
	line := c.RestOfLine()
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return i, true
			}
		}
	}
	return 0, false
}

// IndentWidth measures the leading whitespace at the cursor. Tabs count as
// four columns.
func IndentWidth(c Cursor) (width, size int) {
	rest := c.Rest()
	for size < len(rest) {
		switch rest[size] {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width, size
		}
		size++
	}
	return width, size
}

// IsBlankLine reports whether the line at the cursor holds only whitespace.
func IsBlankLine(c Cursor) bool {
	return strings.TrimSpace(c.RestOfLine()) == ""
}

func firstGroup(r Result[[]string], ok bool) (Result[string], bool) {
	if !ok {
		return Result[string]{}, false
	}
	return Result[string]{Value: r.Value[len(r.Value)-1], Cursor: r.Cursor}, true
}

func isHorizontalSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
