package parser

// FieldParser parses one field value at the cursor. A false result is a
// recoverable no-match; a non-nil error aborts the whole parse.
type FieldParser func(c Cursor) (Result[any], bool, error)

// FieldDefinition describes one positional field of a schema directive.
type FieldDefinition struct {
	Name     string
	Type     string
	Required bool
	// Default is stored when an optional field does not match.
	Default any
	// Validator rejects a successfully parsed value, turning it into a
	// no-match.
	Validator func(any) bool
	// ValidatorName refers to Config.Validators and is resolved by New.
	ValidatorName string
	// Parser overrides the registry lookup by Type.
	Parser FieldParser
}

// CustomParseFunc parses a whole directive on its own. It owns the cursor
// from the start of the directive up to wherever the next one begins.
type CustomParseFunc func(c Cursor, fields []FieldDefinition) (Result[Entry], bool, error)

// Directive is either a *SchemaDirective or a *CustomDirective.
type Directive interface {
	Kind() string
	isDirective()
}

// SchemaDirective is parsed field by field from its declaration.
type SchemaDirective struct {
	Name   string
	Fields []FieldDefinition
}

func (d *SchemaDirective) Kind() string { return d.Name }

func (*SchemaDirective) isDirective() {}

// CustomDirective bypasses the field machinery and delegates to Parse.
type CustomDirective struct {
	Name   string
	Fields []FieldDefinition
	Parse  CustomParseFunc
}

func (d *CustomDirective) Kind() string { return d.Name }

func (*CustomDirective) isDirective() {}

// parseSchema runs the field list of d, then the common line tail: tags and
// links, the rest of the line, and an indented metadata block.
func parseSchema(c Cursor, d *SchemaDirective, registry map[string]FieldParser) (Result[Entry], bool, error) {
	entry := Entry{
		Kind:   d.Name,
		Fields: make(map[string]any, len(d.Fields)),
		Meta:   Metadata{},
	}

	current := c
	for _, field := range d.Fields {
		current = SkipWhitespace(current)
		r, ok, err := ParseField(current, field, registry)
		if err != nil {
			return Result[Entry]{}, false, err
		}
		switch {
		case ok:
			entry.Fields[field.Name] = r.Value
			current = r.Cursor
		case field.Required:
			return Result[Entry]{}, false, nil
		case field.Default != nil:
			entry.Fields[field.Name] = field.Default
		}
	}

	if date, ok := entry.Fields["date"].(string); ok {
		entry.Date = date
		delete(entry.Fields, "date")
	}

	// Tags cannot start with ';', so only tokens ahead of a comment are read.
	current = SkipWhitespace(current)
	var items []TagLink
	if r, ok := TagsAndLinks(current); ok {
		items = r.Value
		current = r.Cursor
	}
	entry.Tags, entry.Links = SplitTagsAndLinks(items)

	current = SkipLine(current)
	meta, ok, err := MetadataBlock(current, 2)
	if err != nil {
		return Result[Entry]{}, false, err
	}
	if ok {
		entry.Meta = meta.Value
		current = skipBlankLines(meta.Cursor)
	}

	return Result[Entry]{Value: entry, Cursor: current}, true, nil
}

func skipBlankLines(c Cursor) Cursor {
	current := c
	for !current.AtEnd() && IsBlankLine(current) {
		next := SkipLine(current)
		if next.Position == current.Position {
			break
		}
		current = next
	}
	return current
}
