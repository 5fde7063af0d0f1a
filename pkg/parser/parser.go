package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
)

// DefaultSourceName is used in entry locations when no source is given.
const DefaultSourceName = "stdin"

// Config selects the directives and field types a Parser understands.
type Config struct {
	Modules []Module
	// FieldParsers are merged over the builtin registry; entries here win.
	FieldParsers map[string]FieldParser
	// Validators back FieldDefinition.ValidatorName.
	Validators map[string]func(any) bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithSourceName sets the name used in meta.location stamps.
func WithSourceName(name string) Option {
	return func(p *Parser) {
		p.source = name
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// Parser turns ledger text into entries. It holds no mutable state after
// construction, so one Parser can serve concurrent Parse calls.
type Parser struct {
	directives []Directive
	registry   map[string]FieldParser
	source     string
	logger     *slog.Logger
}

// New builds a parser from cfg. It fails with *ModuleError when a module
// depends on a missing one, and with *ConfigError when a field refers to an
// unknown type or validator.
func New(cfg Config, opts ...Option) (*Parser, error) {
	if problems := ValidateModuleDependencies(cfg.Modules); len(problems) > 0 {
		return nil, &ModuleError{Problems: problems}
	}

	p := &Parser{
		registry: BuiltinFieldParsers(),
		source:   DefaultSourceName,
		logger:   slog.Default(),
	}
	maps.Copy(p.registry, cfg.FieldParsers)

	for _, opt := range opts {
		opt(p)
	}

	for _, m := range cfg.Modules {
		for _, d := range m.Directives {
			resolved, err := p.resolve(d, cfg.Validators)
			if err != nil {
				return nil, fmt.Errorf("failed to load module %s: %w", m.Name, err)
			}
			p.directives = append(p.directives, resolved)
		}
	}
	return p, nil
}

// resolve checks field types and binds named validators. Schema
// directives are copied so the caller's definitions are left untouched.
func (p *Parser) resolve(d Directive, validators map[string]func(any) bool) (Directive, error) {
	switch d := d.(type) {
	case *SchemaDirective:
		fields := make([]FieldDefinition, len(d.Fields))
		for i, field := range d.Fields {
			if field.Parser == nil {
				if _, ok := p.registry[field.Type]; !ok {
					return nil, &ConfigError{
						Directive: d.Name,
						Field:     field.Name,
						Message:   fmt.Sprintf("No parser registered for field type: %s", field.Type),
					}
				}
			}
			if field.ValidatorName != "" && field.Validator == nil {
				validator, ok := validators[field.ValidatorName]
				if !ok {
					return nil, &ConfigError{
						Directive: d.Name,
						Field:     field.Name,
						Message:   fmt.Sprintf("unknown validator: %s", field.ValidatorName),
					}
				}
				field.Validator = validator
			}
			fields[i] = field
		}
		return &SchemaDirective{Name: d.Name, Fields: fields}, nil
	case *CustomDirective:
		if d.Parse == nil {
			return nil, &ConfigError{Directive: d.Name, Message: fmt.Sprintf("directive %q has no parse function", d.Name)}
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported directive type %T", d)
	}
}

// SourceName returns the name stamped into entry locations.
func (p *Parser) SourceName() string {
	return p.source
}

// Parse parses a whole document. Lines that no directive accepts become
// unknown_directive entries, so the only error is a fatal *SyntaxError.
func (p *Parser) Parse(text string) ([]Entry, error) {
	entries := []Entry{}
	unknown := 0
	cursor := NewCursor(text)

	for !cursor.AtEnd() {
		cursor = SkipWhitespace(cursor)
		if nl, ok := Newline(cursor); ok {
			cursor = nl.Cursor
			continue
		}
		if cursor.AtEnd() {
			break
		}
		if cursor.Peek(0) == ';' || isSectionMarker(cursor) {
			cursor = SkipToEndOfLine(cursor)
			continue
		}

		entry, next, err := p.dispatch(cursor)
		if err != nil {
			var syntaxErr *SyntaxError
			if errors.As(err, &syntaxErr) && syntaxErr.Source == "" {
				syntaxErr.Source = p.source
			}
			return nil, err
		}
		if entry.Kind == KindUnknownDirective {
			unknown++
			p.logger.Debug("unknown directive", "location", entry.Location(), "type", entry.Fields["type"])
		}
		entries = append(entries, entry)
		cursor = next
	}

	p.logger.Debug("parsed document", "source", p.source, "entries", len(entries), "unknown", unknown)
	return entries, nil
}

// dispatch tries every directive in registration order. The first one that
// matches and consumes input wins.
func (p *Parser) dispatch(c Cursor) (Entry, Cursor, error) {
	for _, d := range p.directives {
		var (
			r   Result[Entry]
			ok  bool
			err error
		)
		switch d := d.(type) {
		case *SchemaDirective:
			r, ok, err = parseSchema(c, d, p.registry)
		case *CustomDirective:
			r, ok, err = d.Parse(c, d.Fields)
		}
		if err != nil {
			return Entry{}, c, err
		}
		if !ok || r.Cursor.Position <= c.Position {
			continue
		}
		return p.stamp(r.Value, c), r.Cursor, nil
	}

	r := unknownDirective(c)
	return p.stamp(r.Value, c), r.Cursor, nil
}

// stamp fills the invariants every entry carries: a location and non-nil
// meta, tags and links.
func (p *Parser) stamp(entry Entry, start Cursor) Entry {
	if entry.Meta == nil {
		entry.Meta = Metadata{}
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	if entry.Links == nil {
		entry.Links = []string{}
	}
	entry.Meta["location"] = StringValue(fmt.Sprintf("%s:%d", p.source, start.Line))
	return entry
}

// isSectionMarker matches org-style headings and rules: a run of '*'
// followed by a space or the end of the line.
func isSectionMarker(c Cursor) bool {
	line := c.RestOfLine()
	i := 0
	for i < len(line) && line[i] == '*' {
		i++
	}
	return i > 0 && (i == len(line) || line[i] == ' ' || line[i] == '\t')
}
