package beancount

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lucasew/contapila/pkg/parser"
)

func TestCoreDirectives(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		kind     string
		fields   map[string]any
		tags     []string
		expected string
	}{
		{
			name:   "open with currencies",
			text:   "2024-01-01 open Assets:Cash USD,BRL",
			kind:   KindOpen,
			fields: map[string]any{"keyword": "open", "account": "Assets:Cash", "currencies": []string{"USD", "BRL"}},
			tags:   []string{},
		},
		{
			name:   "open without currencies",
			text:   "2024-01-01 open Assets:Bank:Checking",
			kind:   KindOpen,
			fields: map[string]any{"keyword": "open", "account": "Assets:Bank:Checking"},
			tags:   []string{},
		},
		{
			name:   "close with tag",
			text:   "2024-12-31 close Expenses:Food #cleanup",
			kind:   KindClose,
			fields: map[string]any{"keyword": "close", "account": "Expenses:Food"},
			tags:   []string{"cleanup"},
		},
		{
			name:   "balance",
			text:   "2024-02-01 balance Assets:Cash 849.25 USD",
			kind:   KindBalance,
			fields: map[string]any{"keyword": "balance", "account": "Assets:Cash", "amount": parser.Amount{Value: 849.25, Currency: "USD"}},
			tags:   []string{},
		},
		{
			name:   "price of stock symbol",
			text:   "2024-01-01 price AAPL 185.50 USD",
			kind:   KindPrice,
			fields: map[string]any{"keyword": "price", "commodity": "AAPL", "amount": parser.Amount{Value: 185.5, Currency: "USD"}},
			tags:   []string{},
		},
		{
			name:   "note",
			text:   `2024-01-01 note Assets:Cash "Called the bank"`,
			kind:   KindNote,
			fields: map[string]any{"keyword": "note", "account": "Assets:Cash", "comment": "Called the bank"},
			tags:   []string{},
		},
		{
			name:   "budget with period",
			text:   "2024-01-01 budget Expenses:Food 600.00 USD weekly",
			kind:   KindBudget,
			fields: map[string]any{"keyword": "budget", "account": "Expenses:Food", "amount": parser.Amount{Value: 600, Currency: "USD"}, "period": "weekly"},
			tags:   []string{},
		},
		{
			name:   "budget defaults to monthly",
			text:   "2024-01-01 budget Expenses:Food 600.00 USD #budget",
			kind:   KindBudget,
			fields: map[string]any{"keyword": "budget", "account": "Expenses:Food", "amount": parser.Amount{Value: 600, Currency: "USD"}, "period": "monthly"},
			tags:   []string{"budget"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := parseLedger(t, tt.text)
			if len(entries) != 1 {
				t.Fatalf("got %d entries, expected 1", len(entries))
			}
			e := entries[0]
			if e.Kind != tt.kind {
				t.Errorf("kind = %q, expected %q", e.Kind, tt.kind)
			}
			if !reflect.DeepEqual(e.Fields, tt.fields) {
				t.Errorf("fields = %#v, expected %#v", e.Fields, tt.fields)
			}
			if !reflect.DeepEqual(e.Tags, tt.tags) {
				t.Errorf("tags = %v, expected %v", e.Tags, tt.tags)
			}
		})
	}
}

func TestNoteUnterminatedComment(t *testing.T) {
	p, err := NewParser("ledger.beancount")
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	_, err = p.Parse("2024-01-01 open Assets:Cash\n2024-01-02 note Assets:Cash \"never closed\n")
	var syntaxErr *parser.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error = %v, expected *parser.SyntaxError", err)
	}
	if syntaxErr.Line != 2 || syntaxErr.Source != "ledger.beancount" {
		t.Errorf("error at %s:%d, expected ledger.beancount:2", syntaxErr.Source, syntaxErr.Line)
	}
}

func TestModuleDependencies(t *testing.T) {
	_, err := parser.New(parser.Config{Modules: []parser.Module{TransactionModule()}})
	var modErr *parser.ModuleError
	if !errors.As(err, &modErr) {
		t.Fatalf("error = %v, expected *parser.ModuleError", err)
	}
	expected := "Module 'transactions' depends on missing module 'core-beancount'"
	if !strings.Contains(err.Error(), expected) {
		t.Errorf("error = %q, expected to contain %q", err.Error(), expected)
	}
}

func TestDefaultModulesKinds(t *testing.T) {
	expected := []string{KindOpen, KindClose, KindBalance, KindPrice, KindNote, KindTransaction, KindBudget}
	if got := parser.DirectiveKinds(DefaultModules()); !reflect.DeepEqual(got, expected) {
		t.Errorf("DirectiveKinds() = %v, expected %v", got, expected)
	}
}

const integrationLedger = `
; Comment line
2024-01-01 open Assets:Cash USD,BRL #primary #checking
  description: "Main cash account"

2024-01-01 open Expenses:Food USD #food

2024-01-15 * "Grocery Store" "Weekly groceries" #food #monthly
  category: "food"
  receipt: "12345"
  Assets:Cash      -150.75 USD
  Expenses:Food     150.75 USD
    tax_included: true

2024-02-01 balance Assets:Cash 849.25 USD #monthly

2024-02-01 budget Expenses:Food 600.00 USD monthly #budget #food
  note: "Monthly food budget"

2024-01-01 price USD 5.25 BRL #exchange-rate

2024-12-31 close Expenses:Food #cleanup
`

func TestParseIntegrationLedger(t *testing.T) {
	entries := parseLedger(t, integrationLedger)

	expected := []struct {
		kind     string
		line     string
		tags     []string
		metaKeys []string
	}{
		{KindOpen, "stdin:3", []string{"primary", "checking"}, []string{"description", "location"}},
		{KindOpen, "stdin:6", []string{"food"}, []string{"location"}},
		{KindTransaction, "stdin:8", []string{"food", "monthly"}, []string{"category", "location", "receipt"}},
		{KindBalance, "stdin:15", []string{"monthly"}, []string{"location"}},
		{KindBudget, "stdin:17", []string{"budget", "food"}, []string{"location", "note"}},
		{KindPrice, "stdin:20", []string{"exchange-rate"}, []string{"location"}},
		{KindClose, "stdin:22", []string{"cleanup"}, []string{"location"}},
	}

	if len(entries) != len(expected) {
		t.Fatalf("got %d entries, expected %d", len(entries), len(expected))
	}

	for i, want := range expected {
		e := entries[i]
		if e.Kind != want.kind {
			t.Errorf("entry %d kind = %q, expected %q", i, e.Kind, want.kind)
		}
		if e.Location() != want.line {
			t.Errorf("entry %d location = %q, expected %q", i, e.Location(), want.line)
		}
		if !reflect.DeepEqual(e.Tags, want.tags) {
			t.Errorf("entry %d tags = %v, expected %v", i, e.Tags, want.tags)
		}
		keys := make([]string, 0, len(e.Meta))
		for k := range e.Meta {
			keys = append(keys, k)
		}
		if !sameElements(keys, want.metaKeys) {
			t.Errorf("entry %d meta keys = %v, expected %v", i, keys, want.metaKeys)
		}
	}

	tx := entries[2]
	if len(tx.Postings) != 2 {
		t.Fatalf("got %d postings, expected 2", len(tx.Postings))
	}
	if v, ok := tx.Postings[1].Meta["tax_included"].AsBool(); !ok || !v {
		t.Errorf("tax_included = %v, expected true", tx.Postings[1].Meta["tax_included"])
	}
	if s, _ := tx.Meta["receipt"].AsString(); s != "12345" {
		t.Errorf("receipt = %v, expected the string 12345", tx.Meta["receipt"])
	}
}

func sameElements(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		if seen[s] == 0 {
			return false
		}
		seen[s]--
	}
	return true
}
