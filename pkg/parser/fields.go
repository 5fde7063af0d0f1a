package parser

import "fmt"

// BuiltinFieldParsers returns a fresh registry of the builtin field types.
func BuiltinFieldParsers() map[string]FieldParser {
	tagsAndLinks := Lift(TagsAndLinks)
	return map[string]FieldParser{
		"string":  LiftFatal(StringField),
		"number":  Lift(Number),
		"boolean": Lift(Boolean),
		"date":    Lift(Date),
		"amount":  Lift(ParseAmount),
		"account": Lift(Account),
		"array":   LiftFatal(Array),
		"email":   Lift(Email),
		"object": LiftFatal(func(c Cursor) (Result[Metadata], bool, error) {
			return MetadataBlock(c, 0)
		}),
		"tag":          Lift(TagOrLink),
		"tags":         tagsAndLinks,
		"tagsAndLinks": tagsAndLinks,
	}
}

// ParseField parses field at the cursor. A field-local Parser wins over the
// registry. A value rejected by the field's validator is a no-match.
func ParseField(c Cursor, field FieldDefinition, registry map[string]FieldParser) (Result[any], bool, error) {
	parse := field.Parser
	if parse == nil {
		parse = registry[field.Type]
	}
	if parse == nil {
		return Result[any]{}, false, &ConfigError{
			Field:   field.Name,
			Message: fmt.Sprintf("No parser registered for field type: %s", field.Type),
		}
	}

	r, ok, err := parse(c)
	if err != nil || !ok {
		return Result[any]{}, false, err
	}
	if field.Validator != nil && !field.Validator(r.Value) {
		return Result[any]{}, false, nil
	}
	return r, true, nil
}

// Lift adapts a typed combinator into a FieldParser.
func Lift[T any](p func(Cursor) (Result[T], bool)) FieldParser {
	return func(c Cursor) (Result[any], bool, error) {
		r, ok := p(c)
		if !ok {
			return Result[any]{}, false, nil
		}
		return Result[any]{Value: r.Value, Cursor: r.Cursor}, true, nil
	}
}

// LiftFatal adapts a typed combinator that can fail fatally.
func LiftFatal[T any](p func(Cursor) (Result[T], bool, error)) FieldParser {
	return func(c Cursor) (Result[any], bool, error) {
		r, ok, err := p(c)
		if err != nil || !ok {
			return Result[any]{}, false, err
		}
		return Result[any]{Value: r.Value, Cursor: r.Cursor}, true, nil
	}
}
