package beancount

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lucasew/contapila/pkg/parser"
)

func parseLedger(t *testing.T, text string) []parser.Entry {
	t.Helper()
	p, err := NewParser("stdin")
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}
	entries, err := p.Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return entries
}

func assertAmount(t *testing.T, p parser.Posting, value float64, currency string) {
	t.Helper()
	if p.Amount == nil {
		t.Fatalf("posting %s has no amount, expected %v %s", p.Account, value, currency)
	}
	if p.Amount.Value != value || p.Amount.Currency != currency {
		t.Errorf("posting %s amount = %v %s, expected %v %s", p.Account, p.Amount.Value, p.Amount.Currency, value, currency)
	}
}

func TestParseSimpleTransaction(t *testing.T) {
	entries := parseLedger(t, `2024-01-01 * "Store" "Purchase"
  Assets:Cash      -100.00 USD
  Expenses:Food     100.00 USD`)

	if len(entries) != 1 {
		t.Fatalf("got %d entries, expected 1", len(entries))
	}
	tx := entries[0]
	if tx.Kind != KindTransaction || tx.Date != "2024-01-01" || tx.Flag != "*" {
		t.Errorf("header = %s %s %s", tx.Kind, tx.Date, tx.Flag)
	}
	if tx.Payee == nil || *tx.Payee != "Store" {
		t.Errorf("payee = %v, expected Store", tx.Payee)
	}
	if tx.Narration != "Purchase" {
		t.Errorf("narration = %q, expected Purchase", tx.Narration)
	}
	if len(tx.Postings) != 2 {
		t.Fatalf("got %d postings, expected 2", len(tx.Postings))
	}
	assertAmount(t, tx.Postings[0], -100, "USD")
	assertAmount(t, tx.Postings[1], 100, "USD")
	if tx.Postings[0].Account != "Assets:Cash" || tx.Postings[1].Account != "Expenses:Food" {
		t.Errorf("accounts = %s, %s", tx.Postings[0].Account, tx.Postings[1].Account)
	}
	if tx.Location() != "stdin:1" {
		t.Errorf("location = %q", tx.Location())
	}
}

func TestParseTransactionWithoutPayee(t *testing.T) {
	entries := parseLedger(t, `2024-01-01 ! "Description only"
  Assets:Cash      -50.00 USD
  Expenses:Other    50.00 USD`)

	if len(entries) != 1 {
		t.Fatalf("got %d entries, expected 1", len(entries))
	}
	if entries[0].Payee != nil {
		t.Errorf("payee = %q, expected none", *entries[0].Payee)
	}
	if entries[0].Narration != "Description only" || entries[0].Flag != "!" {
		t.Errorf("narration = %q, flag = %q", entries[0].Narration, entries[0].Flag)
	}
}

func TestParseTransactionMetadata(t *testing.T) {
	entries := parseLedger(t, `2024-01-01 * "Store" "Purchase"
  category: "shopping"
  receipt_id: 12345
  Assets:Cash      -200.00 USD
  Expenses:Shopping 200.00 USD
    tax: 20.00
    item_count: 3`)

	if len(entries) != 1 {
		t.Fatalf("got %d entries, expected 1", len(entries))
	}
	tx := entries[0]

	expectedMeta := parser.Metadata{
		"category":   parser.StringValue("shopping"),
		"receipt_id": parser.IntValue(12345),
		"location":   parser.StringValue("stdin:1"),
	}
	if !reflect.DeepEqual(tx.Meta, expectedMeta) {
		t.Errorf("meta = %v, expected %v", tx.Meta, expectedMeta)
	}

	expectedPostingMeta := parser.Metadata{
		"tax":        parser.FloatValue(20),
		"item_count": parser.IntValue(3),
	}
	if !reflect.DeepEqual(tx.Postings[1].Meta, expectedPostingMeta) {
		t.Errorf("posting meta = %v, expected %v", tx.Postings[1].Meta, expectedPostingMeta)
	}
	if len(tx.Postings[0].Meta) != 0 {
		t.Errorf("first posting meta = %v, expected empty", tx.Postings[0].Meta)
	}
}

func TestParseTransactionCommodityUnits(t *testing.T) {
	entries := parseLedger(t, `2024-11-19 * "Investment Broker" "Sale of government bond" #todo
  doc-nr: "20241119000001234"
  details: ""
  transaction-type: "Bond-Sale"
  Assets:Investment:Bonds -0.07 GOVT_BOND_2029 {15000.00 USD}
  Assets:Bank:Checking 1000.00 USD
  Income:Investment:CapitalGains`)

	if len(entries) != 1 {
		t.Fatalf("got %d entries, expected 1", len(entries))
	}
	tx := entries[0]
	if !reflect.DeepEqual(tx.Tags, []string{"todo"}) {
		t.Errorf("tags = %v", tx.Tags)
	}
	if s, _ := tx.Meta["doc-nr"].AsString(); s != "20241119000001234" {
		t.Errorf("doc-nr = %v", tx.Meta["doc-nr"])
	}
	if s, ok := tx.Meta["details"].AsString(); !ok || s != "" {
		t.Errorf("details = %v (%s), expected empty string", tx.Meta["details"], tx.Meta["details"].Kind())
	}
	if len(tx.Postings) != 3 {
		t.Fatalf("got %d postings, expected 3", len(tx.Postings))
	}
	assertAmount(t, tx.Postings[0], -0.07, "GOVT_BOND_2029")
	assertAmount(t, tx.Postings[1], 1000, "USD")
	if tx.Postings[2].Amount != nil {
		t.Errorf("last posting amount = %+v, expected none", tx.Postings[2].Amount)
	}
}

func TestParseTransactionComments(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		kinds    []string
		postings int
		tags     []string
	}{
		{
			name: "comment line in body",
			text: "2024-11-19 * \"Store\" \"Purchase with comment\"\n" +
				"  Assets:Cash -100.00 USD\n" +
				"  ; This is a comment in the middle\n" +
				"  Expenses:Food 100.00 USD",
			kinds:    []string{KindTransaction},
			postings: 2,
			tags:     []string{},
		},
		{
			name: "trailing comment without body",
			text: "2024-01-01 * \"Store\" \"Coffee\" #cafe ;; annotated\n" +
				"2024-01-02 open Assets:Cash",
			kinds:    []string{KindTransaction, KindOpen},
			postings: 0,
			tags:     []string{"cafe"},
		},
		{
			name: "trailing comment with body",
			text: "2024-01-01 * \"Store\" \"Coffee\" ; paid cash\n" +
				"  Assets:Cash -5 USD\n" +
				"  Expenses:Coffee",
			kinds:    []string{KindTransaction},
			postings: 2,
			tags:     []string{},
		},
		{
			name: "semicolon inside narration",
			text: "2024-01-01 * \"a; b\"\n" +
				"  Assets:Cash -5 USD\n" +
				"  Expenses:Coffee 5 USD",
			kinds:    []string{KindTransaction},
			postings: 2,
			tags:     []string{},
		},
		{
			name: "comments and blank lines after body",
			text: "2024-01-01 * \"x\"\n" +
				"  Assets:Cash -5 USD\n" +
				"\n" +
				"; trailing\n" +
				"  ; indented trailing\n" +
				"2024-01-02 close Assets:Cash",
			kinds:    []string{KindTransaction, KindClose},
			postings: 1,
			tags:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := parseLedger(t, tt.text)
			kinds := make([]string, len(entries))
			for i, e := range entries {
				kinds[i] = e.Kind
			}
			if !reflect.DeepEqual(kinds, tt.kinds) {
				t.Fatalf("kinds = %v, expected %v", kinds, tt.kinds)
			}
			if got := len(entries[0].Postings); got != tt.postings {
				t.Errorf("got %d postings, expected %d", got, tt.postings)
			}
			if !reflect.DeepEqual(entries[0].Tags, tt.tags) {
				t.Errorf("tags = %v, expected %v", entries[0].Tags, tt.tags)
			}
		})
	}
}

func TestParseTransactionTagsAndLinks(t *testing.T) {
	entries := parseLedger(t, `2024-01-01 * "Store" "Groceries" #food ^receipt-42 #weekly
  Assets:Cash      -75.00 USD
  Expenses:Food     75.00 USD`)

	tx := entries[0]
	if !reflect.DeepEqual(tx.Tags, []string{"food", "weekly"}) {
		t.Errorf("tags = %v", tx.Tags)
	}
	if !reflect.DeepEqual(tx.Links, []string{"receipt-42"}) {
		t.Errorf("links = %v", tx.Links)
	}
}

func TestParseTransactionPostingFlag(t *testing.T) {
	entries := parseLedger(t, `2024-01-01 * "Store" "Groceries"
  ! Assets:Cash      -75.00 USD
  Expenses:Food`)

	tx := entries[0]
	if tx.Postings[0].Flag != "!" || tx.Postings[0].Account != "Assets:Cash" {
		t.Errorf("posting = %+v", tx.Postings[0])
	}
	if tx.Postings[1].Flag != "" {
		t.Errorf("flag = %q, expected none", tx.Postings[1].Flag)
	}
}

func TestParseTransactionMalformedBody(t *testing.T) {
	entries := parseLedger(t, `2024-01-01 * "x"
  Assets:Cash -5 USD
  not a posting
2024-01-02 close Assets:Cash`)

	kinds := make([]string, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
	}
	expected := []string{KindTransaction, parser.KindUnknownDirective, KindClose}
	if !reflect.DeepEqual(kinds, expected) {
		t.Fatalf("kinds = %v, expected %v", kinds, expected)
	}
	if len(entries[0].Postings) != 1 {
		t.Errorf("got %d postings, expected 1", len(entries[0].Postings))
	}
	if entries[1].Location() != "stdin:3" {
		t.Errorf("location = %q, expected stdin:3", entries[1].Location())
	}
}

func TestParseTransactionNoMatch(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing narration", "2024-01-01 * Store"},
		{"missing flag", `2024-01-01 "Store" "Purchase"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := parseLedger(t, tt.text)
			if len(entries) != 1 || entries[0].Kind != parser.KindUnknownDirective {
				t.Errorf("entries = %+v, expected one unknown_directive", entries)
			}
		})
	}
}

func TestParseTransactionUnterminatedString(t *testing.T) {
	p, err := NewParser("stdin")
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	_, err = p.Parse(`2024-01-01 * "Unterminated string`)
	if err == nil {
		t.Fatal("expected a fatal error")
	}
	var syntaxErr *parser.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error type = %T, expected *parser.SyntaxError", err)
	}
	if !strings.Contains(err.Error(), "Unterminated string") {
		t.Errorf("error = %q", err.Error())
	}
}
