// Package parser provides the schema-driven ledger parsing engine.
//
// The engine threads an immutable Cursor through small combinators. Each
// combinator returns a Result holding the parsed value and the advanced
// cursor, so backtracking is just reusing an earlier cursor.
package parser

// Cursor is an immutable position inside the source text.
// Position is a byte offset; Line and Column are 1-based.
type Cursor struct {
	Text     string
	Position int
	Line     int
	Column   int
}

// Result is the outcome of a successful combinator.
type Result[T any] struct {
	Value  T
	Cursor Cursor
}

// NewCursor creates a cursor at the start of text.
func NewCursor(text string) Cursor {
	return Cursor{
		Text:     text,
		Position: 0,
		Line:     1,
		Column:   1,
	}
}

// Advance returns a new cursor moved forward by n bytes.
// Line and Column are updated for every newline crossed.
func (c Cursor) Advance(n int) Cursor {
	end := c.Position + n
	if end > len(c.Text) {
		end = len(c.Text)
	}

	next := c
	for i := c.Position; i < end; i++ {
		if c.Text[i] == '\n' {
			next.Line++
			next.Column = 1
		} else {
			next.Column++
		}
	}
	next.Position = end
	return next
}

// AtEnd reports whether the cursor reached the end of the text.
func (c Cursor) AtEnd() bool {
	return c.Position >= len(c.Text)
}

// Peek returns the byte at offset from the cursor, or 0 past the end.
func (c Cursor) Peek(offset int) byte {
	i := c.Position + offset
	if i < 0 || i >= len(c.Text) {
		return 0
	}
	return c.Text[i]
}

// PeekString returns up to n bytes starting at the cursor.
func (c Cursor) PeekString(n int) string {
	end := c.Position + n
	if end > len(c.Text) {
		end = len(c.Text)
	}
	return c.Text[c.Position:end]
}

// Rest returns the unread text.
func (c Cursor) Rest() string {
	return c.Text[c.Position:]
}

// RestOfLine returns the unread text up to, not including, the next newline.
func (c Cursor) RestOfLine() string {
	rest := c.Rest()
	for i := 0; i < len(rest); i++ {
		if rest[i] == '\n' {
			return rest[:i]
		}
	}
	return rest
}

// AtLineStart reports whether the cursor sits at the first column of a line.
func (c Cursor) AtLineStart() bool {
	return c.Position == 0 || c.Text[c.Position-1] == '\n'
}
