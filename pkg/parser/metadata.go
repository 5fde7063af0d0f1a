package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MetaKind identifies which variant a MetaValue holds.
type MetaKind int

const (
	MetaNull MetaKind = iota
	MetaString
	MetaInt
	MetaFloat
	MetaBool
)

func (k MetaKind) String() string {
	switch k {
	case MetaString:
		return "string"
	case MetaInt:
		return "int"
	case MetaFloat:
		return "float"
	case MetaBool:
		return "bool"
	default:
		return "null"
	}
}

// MetaValue is a metadata value: null, string, integer, float or boolean.
// The zero value is null.
type MetaValue struct {
	kind MetaKind
	str  string
	num  int64
	flt  float64
	flag bool
}

// Metadata maps metadata keys to their values.
type Metadata map[string]MetaValue

func NullValue() MetaValue { return MetaValue{} }

func StringValue(s string) MetaValue { return MetaValue{kind: MetaString, str: s} }

func IntValue(n int64) MetaValue { return MetaValue{kind: MetaInt, num: n} }

func FloatValue(f float64) MetaValue { return MetaValue{kind: MetaFloat, flt: f} }

func BoolValue(b bool) MetaValue { return MetaValue{kind: MetaBool, flag: b} }

func (v MetaValue) Kind() MetaKind { return v.kind }

func (v MetaValue) IsNull() bool { return v.kind == MetaNull }

// AsString returns the string payload when v holds a string.
func (v MetaValue) AsString() (string, bool) { return v.str, v.kind == MetaString }

// AsInt returns the integer payload when v holds an integer.
func (v MetaValue) AsInt() (int64, bool) { return v.num, v.kind == MetaInt }

// AsFloat returns the numeric payload when v holds a float or an integer.
func (v MetaValue) AsFloat() (float64, bool) {
	switch v.kind {
	case MetaFloat:
		return v.flt, true
	case MetaInt:
		return float64(v.num), true
	}
	return 0, false
}

// AsBool returns the boolean payload when v holds a boolean.
func (v MetaValue) AsBool() (bool, bool) { return v.flag, v.kind == MetaBool }

// Any returns the payload as a plain Go value, nil for null.
func (v MetaValue) Any() any {
	switch v.kind {
	case MetaString:
		return v.str
	case MetaInt:
		return v.num
	case MetaFloat:
		return v.flt
	case MetaBool:
		return v.flag
	default:
		return nil
	}
}

func (v MetaValue) String() string {
	if v.kind == MetaNull {
		return "null"
	}
	return fmt.Sprint(v.Any())
}

func (v MetaValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = MetaValueOf(raw)
	return nil
}

// MetaValueOf converts a decoded JSON or YAML scalar into a MetaValue.
// Unsupported types are rendered as strings.
func MetaValueOf(raw any) MetaValue {
	switch x := raw.(type) {
	case nil:
		return NullValue()
	case MetaValue:
		return x
	case string:
		return StringValue(x)
	case bool:
		return BoolValue(x)
	case int:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return IntValue(int64(x))
		}
		return FloatValue(x)
	default:
		return StringValue(fmt.Sprint(x))
	}
}

// MetadataOf converts a generic map into Metadata.
func MetadataOf(raw map[string]any) Metadata {
	meta := make(Metadata, len(raw))
	for k, v := range raw {
		meta[k] = MetaValueOf(v)
	}
	return meta
}

// coerceMetaValue applies the unquoted value rules: integers, then
// decimals, then the literals true and false, then null for an empty value.
func coerceMetaValue(raw string) MetaValue {
	switch {
	case raw == "":
		return NullValue()
	case integerValuePattern.MatchString(raw):
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return IntValue(n)
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return FloatValue(f)
		}
	case floatValuePattern.MatchString(raw):
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return FloatValue(f)
		}
	case raw == "true":
		return BoolValue(true)
	case raw == "false":
		return BoolValue(false)
	}
	return StringValue(raw)
}

type metaPair struct {
	key   string
	value MetaValue
}

// metadataLine parses a `key: value` line at the cursor, which must already
// sit past the indentation. The returned cursor is past the line terminator.
func metadataLine(c Cursor) (Result[metaPair], bool, error) {
	key, ok := Regexp(c, metadataKeyPattern)
	if !ok {
		return Result[metaPair]{}, false, nil
	}
	current := SkipWhitespace(key.Cursor)

	var value MetaValue
	quoted, ok, err := QuotedString(current)
	if err != nil {
		return Result[metaPair]{}, false, err
	}
	if ok {
		value = StringValue(quoted.Value)
		current = quoted.Cursor
	} else {
		value = coerceMetaValue(strings.TrimSpace(current.RestOfLine()))
	}

	return Result[metaPair]{
		Value:  metaPair{key: key.Value[1], value: value},
		Cursor: SkipLine(current),
	}, true, nil
}

// MetadataBlock reads consecutive `key: value` lines indented by at least
// indent columns. Blank lines between pairs are skipped. The block ends at
// the first line that is under-indented or is not a pair, and the returned
// cursor sits right after the last pair read. It reports false when no pair
// was found.
func MetadataBlock(c Cursor, indent int) (Result[Metadata], bool, error) {
	meta := Metadata{}
	current := c
	last := c

	for !current.AtEnd() {
		if IsBlankLine(current) {
			current = SkipLine(current)
			continue
		}

		width, size := IndentWidth(current)
		if width < indent {
			break
		}
		pair, ok, err := metadataLine(current.Advance(size))
		if err != nil {
			return Result[Metadata]{}, false, err
		}
		if !ok {
			break
		}
		meta[pair.Value.key] = pair.Value.value
		current = pair.Cursor
		last = current
	}

	if len(meta) == 0 {
		return Result[Metadata]{}, false, nil
	}
	return Result[Metadata]{Value: meta, Cursor: last}, true, nil
}
