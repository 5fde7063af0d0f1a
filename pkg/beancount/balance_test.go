package beancount

import (
	"errors"
	"strings"
	"testing"

	"github.com/lucasew/contapila/pkg/parser"
)

func TestBalance(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		filled   *parser.Amount
		errorMsg string
	}{
		{
			name: "infers single missing amount",
			text: `2024-01-01 * "Store" "Purchase"
  Assets:Cash      -100.00 USD
  Expenses:Food`,
			filled: &parser.Amount{Value: 100, Currency: "USD"},
		},
		{
			name: "sums without float drift",
			text: `2024-01-01 * "Split"
  Expenses:A  0.1 USD
  Expenses:B  0.2 USD
  Assets:Cash`,
			filled: &parser.Amount{Value: -0.3, Currency: "USD"},
		},
		{
			name: "multiple currencies",
			text: `2024-01-01 * "Exchange"
  Assets:Cash      -100.00 USD
  Assets:Wallet     500.00 BRL
  Expenses:Fees`,
			errorMsg: errMultipleCurrencies,
		},
		{
			name: "more than one missing",
			text: `2024-01-01 * "Store"
  Assets:Cash      -100.00 USD
  Expenses:Food
  Expenses:Other`,
			errorMsg: errMultipleMissing,
		},
		{
			name: "no amounts at all",
			text: `2024-01-01 * "Store"
  Expenses:Food`,
			errorMsg: errNoAmounts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := parseLedger(t, tt.text)
			balanced, errs := Balance(entries)

			if tt.errorMsg != "" {
				if len(errs) != 1 {
					t.Fatalf("got %d errors, expected 1", len(errs))
				}
				if errs[0].Message != tt.errorMsg {
					t.Errorf("message = %q, expected %q", errs[0].Message, tt.errorMsg)
				}
				if errs[0].Location != "stdin:1" || errs[0].Index != 0 {
					t.Errorf("error at %q index %d", errs[0].Location, errs[0].Index)
				}
				for _, p := range balanced[0].Postings {
					if p.Amount == nil {
						continue
					}
					if p.Account == "Expenses:Fees" || p.Account == "Expenses:Other" {
						t.Errorf("posting %s was filled on error", p.Account)
					}
				}
				return
			}

			if len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			postings := balanced[0].Postings
			got := postings[len(postings)-1].Amount
			if got == nil || *got != *tt.filled {
				t.Errorf("filled amount = %+v, expected %+v", got, tt.filled)
			}

			original := entries[0].Postings
			if original[len(original)-1].Amount != nil {
				t.Error("Balance() modified its input")
			}
		})
	}
}

func TestBalanceSkipsOtherDirectives(t *testing.T) {
	entries := parseLedger(t, `2024-01-01 open Assets:Cash
2024-01-02 * "Store"
  Assets:Cash -5 USD
  Expenses:Food 5 USD`)

	balanced, errs := Balance(entries)
	if err := errs.Err(); err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if len(balanced) != len(entries) {
		t.Errorf("got %d entries, expected %d", len(balanced), len(entries))
	}
}

func TestBalanceErrors(t *testing.T) {
	entries := parseLedger(t, `2024-01-01 * "a"
  Expenses:A
  Expenses:B

2024-01-02 * "b"
  Expenses:C`)

	_, errs := Balance(entries)
	err := errs.Err()
	if err == nil {
		t.Fatal("expected errors")
	}
	if !strings.Contains(err.Error(), "2 balance error(s) found") {
		t.Errorf("error = %q", err.Error())
	}

	var balanceErr BalanceError
	if !errors.As(err, &balanceErr) {
		t.Fatalf("errors.As failed for %T", err)
	}
	if balanceErr.Index != 0 {
		t.Errorf("first error index = %d, expected 0", balanceErr.Index)
	}
	if errs[1].Location != "stdin:5" {
		t.Errorf("second error location = %q, expected stdin:5", errs[1].Location)
	}

	var empty BalanceErrors
	if empty.Err() != nil {
		t.Error("empty BalanceErrors.Err() should be nil")
	}
}
