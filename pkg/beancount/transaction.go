package beancount

import (
	"maps"

	"github.com/lucasew/contapila/pkg/parser"
)

const (
	bodyIndent        = 2
	postingMetaIndent = 4
)

// TransactionDirective returns the custom directive for transactions:
//
//	2024-01-01 * "Payee" "Narration" #tag ^link
//	  key: value
//	  Assets:Cash     -100.00 USD
//	    posting-key: value
//	  Expenses:Food
func TransactionDirective() *parser.CustomDirective {
	return &parser.CustomDirective{
		Name:  KindTransaction,
		Parse: parseTransaction,
	}
}

func parseTransaction(c parser.Cursor, _ []parser.FieldDefinition) (parser.Result[parser.Entry], bool, error) {
	noMatch := parser.Result[parser.Entry]{}

	date, ok := parser.Date(c)
	if !ok {
		return noMatch, false, nil
	}
	flag, ok := parser.Flag(parser.SkipWhitespace(date.Cursor))
	if !ok {
		return noMatch, false, nil
	}

	current := parser.SkipWhitespace(flag.Cursor)
	first, ok, err := parser.QuotedString(current)
	if err != nil || !ok {
		return noMatch, false, err
	}
	current = parser.SkipWhitespace(first.Cursor)

	entry := parser.Entry{
		Kind:      KindTransaction,
		Date:      date.Value,
		Flag:      flag.Value,
		Narration: first.Value,
		Meta:      parser.Metadata{},
		Postings:  []parser.Posting{},
	}

	second, ok, err := parser.QuotedString(current)
	if err != nil {
		return noMatch, false, err
	}
	if ok {
		payee := first.Value
		entry.Payee = &payee
		entry.Narration = second.Value
		current = parser.SkipWhitespace(second.Cursor)
	}

	// From here on the transaction is committed.
	var items []parser.TagLink
	if r, ok := parser.TagsAndLinks(current); ok {
		items = r.Value
		current = r.Cursor
	}
	entry.Tags, entry.Links = parser.SplitTagsAndLinks(items)

	_, hasComment := parser.SliceAtComment(current)
	current = parser.SkipLine(current)
	if hasComment && !hasContinuation(current) {
		return parser.Result[parser.Entry]{Value: entry, Cursor: current}, true, nil
	}

	current, err = parseBody(current, &entry)
	if err != nil {
		return noMatch, false, err
	}
	return parser.Result[parser.Entry]{Value: entry, Cursor: resync(current)}, true, nil
}

// parseBody reads indented metadata, comments and postings. It stops at
// the first line that is under-indented or not understood, leaving that
// line for the dispatcher.
func parseBody(c parser.Cursor, entry *parser.Entry) (parser.Cursor, error) {
	current := c
	for !current.AtEnd() {
		if parser.IsBlankLine(current) {
			current = parser.SkipLine(current)
			continue
		}

		width, size := parser.IndentWidth(current)
		if width < bodyIndent {
			break
		}
		line := current.Advance(size)

		if line.Peek(0) == ';' {
			current = parser.SkipLine(line)
			continue
		}

		meta, ok, err := parser.MetadataBlock(current, bodyIndent)
		if err != nil {
			return current, err
		}
		if ok {
			maps.Copy(entry.Meta, meta.Value)
			current = meta.Cursor
			continue
		}

		posting, next, ok, err := parsePosting(line)
		if err != nil {
			return current, err
		}
		if !ok {
			break
		}
		entry.Postings = append(entry.Postings, posting)
		current = next
	}
	return current, nil
}

// parsePosting reads `[flag] Account [amount] ...` and an optional deeper
// metadata block. Anything after the amount is ignored.
func parsePosting(c parser.Cursor) (parser.Posting, parser.Cursor, bool, error) {
	posting := parser.Posting{Meta: parser.Metadata{}}

	current := c
	if flag, ok := parser.Flag(current); ok && isSpace(flag.Cursor.Peek(0)) {
		posting.Flag = flag.Value
		current = parser.SkipWhitespace(flag.Cursor)
	}

	account, ok := parser.Account(current)
	if !ok {
		return posting, c, false, nil
	}
	posting.Account = account.Value

	current = parser.SkipWhitespace(account.Cursor)
	if amount, ok := parser.ParseAmount(current); ok {
		value := amount.Value
		posting.Amount = &value
		current = amount.Cursor
	}
	current = parser.SkipLine(current)

	meta, ok, err := parser.MetadataBlock(current, postingMetaIndent)
	if err != nil {
		return posting, c, false, err
	}
	if ok {
		posting.Meta = meta.Value
		current = meta.Cursor
	}
	return posting, current, true, nil
}

// hasContinuation reports whether the line at c is an indented body line.
func hasContinuation(c parser.Cursor) bool {
	if c.AtEnd() || parser.IsBlankLine(c) {
		return false
	}
	width, _ := parser.IndentWidth(c)
	return width >= bodyIndent
}

// resync skips blank and comment lines after a transaction body.
func resync(c parser.Cursor) parser.Cursor {
	current := c
	for !current.AtEnd() {
		if !parser.IsBlankLine(current) {
			trimmed := parser.SkipWhitespace(current)
			if trimmed.Peek(0) != ';' {
				break
			}
		}
		current = parser.SkipLine(current)
	}
	return current
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}
