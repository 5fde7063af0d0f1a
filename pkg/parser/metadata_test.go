package parser

import (
	"errors"
	"testing"
)

func TestMetadataBlock(t *testing.T) {
	text := "  note: \"hi; there\"\n" +
		"  count: 42\n" +
		"\n" +
		"  rate: 0.5\n" +
		"  ok: true\n" +
		"  empty:\n" +
		"  misc: 12abc\n" +
		"next"

	r, ok, err := MetadataBlock(NewCursor(text), 2)
	if err != nil {
		t.Fatalf("MetadataBlock() error = %v", err)
	}
	if !ok {
		t.Fatal("MetadataBlock() found no metadata")
	}

	expected := Metadata{
		"note":  StringValue("hi; there"),
		"count": IntValue(42),
		"rate":  FloatValue(0.5),
		"ok":    BoolValue(true),
		"empty": NullValue(),
		"misc":  StringValue("12abc"),
	}
	if len(r.Value) != len(expected) {
		t.Errorf("got %d keys, expected %d: %v", len(r.Value), len(expected), r.Value)
	}
	for key, want := range expected {
		if got := r.Value[key]; got != want {
			t.Errorf("%s = %v (%s), expected %v (%s)", key, got, got.Kind(), want, want.Kind())
		}
	}
	if rest := r.Cursor.Rest(); rest != "next" {
		t.Errorf("rest = %q, expected %q", rest, "next")
	}
}

func TestMetadataBlockBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		indent int
		keys   int
		rest   string
	}{
		{"posting line is not metadata", "  Assets:Cash 10 USD", 2, 0, ""},
		{"under-indented", " a: 1", 2, 0, ""},
		{"tab counts as four", "\tkey: v\n", 4, 1, ""},
		{"trailing blank lines stay", "  a: 1\n\n\nnext", 2, 1, "\n\nnext"},
		{"leading blank lines skipped", "\n  a: 1\nnext", 2, 1, "next"},
		{"colon needs a space", "  url:http://x", 2, 0, ""},
		{"deeper indent accepted", "      deep: yes\n  shallow: no", 4, 1, "  shallow: no"},
		{"object at indent zero", "a: 1 b: 2", 0, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok, err := MetadataBlock(NewCursor(tt.text), tt.indent)
			if err != nil {
				t.Fatalf("MetadataBlock(%q) error = %v", tt.text, err)
			}
			if tt.keys == 0 {
				if ok {
					t.Errorf("MetadataBlock(%q) = %v, expected no match", tt.text, r.Value)
				}
				return
			}
			if !ok || len(r.Value) != tt.keys {
				t.Fatalf("MetadataBlock(%q) = %v (ok=%v), expected %d keys", tt.text, r.Value, ok, tt.keys)
			}
			if rest := r.Cursor.Rest(); rest != tt.rest {
				t.Errorf("MetadataBlock(%q) rest = %q, expected %q", tt.text, rest, tt.rest)
			}
		})
	}
}

func TestMetadataBlockUnterminated(t *testing.T) {
	_, _, err := MetadataBlock(NewCursor("  a: \"oops\n"), 2)
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error = %v, expected *SyntaxError", err)
	}
}

func TestCoerceMetaValue(t *testing.T) {
	tests := []struct {
		raw      string
		expected MetaValue
	}{
		{"42", IntValue(42)},
		{"-5", StringValue("-5")},
		{".5", FloatValue(0.5)},
		{"1.0", FloatValue(1)},
		{"1.", StringValue("1.")},
		{"true", BoolValue(true)},
		{"True", StringValue("True")},
		{"", NullValue()},
		{"USD", StringValue("USD")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := coerceMetaValue(tt.raw); got != tt.expected {
				t.Errorf("coerceMetaValue(%q) = %v (%s), expected %v (%s)",
					tt.raw, got, got.Kind(), tt.expected, tt.expected.Kind())
			}
		})
	}
}

func TestMetaValueOf(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected MetaValue
	}{
		{"nil", nil, NullValue()},
		{"string", "x", StringValue("x")},
		{"bool", false, BoolValue(false)},
		{"whole float", float64(3), IntValue(3)},
		{"fraction", 2.5, FloatValue(2.5)},
		{"int", 7, IntValue(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MetaValueOf(tt.raw); got != tt.expected {
				t.Errorf("MetaValueOf(%v) = %v, expected %v", tt.raw, got, tt.expected)
			}
		})
	}
}
