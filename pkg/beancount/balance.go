package beancount

import (
	"github.com/shopspring/decimal"

	"github.com/lucasew/contapila/pkg/parser"
)

const (
	errMultipleCurrencies = "cannot infer missing amount: multiple currencies present"
	errNoAmounts          = "cannot infer missing amount: no other postings carry an amount"
	errMultipleMissing    = "more than one posting without amount"
)

// Balance fills the single amount-less posting of each transaction with
// the negated sum of the others. Transactions that cannot be completed are
// reported and returned unchanged. The input slice is not modified.
func Balance(entries []parser.Entry) ([]parser.Entry, BalanceErrors) {
	out := make([]parser.Entry, len(entries))
	var errs BalanceErrors

	for i, entry := range entries {
		out[i] = entry
		if !entry.IsTransaction() {
			continue
		}

		missing := -1
		missingCount := 0
		for j, p := range entry.Postings {
			if p.Amount == nil {
				missing = j
				missingCount++
			}
		}

		switch {
		case missingCount == 0:
			continue
		case missingCount > 1:
			errs = append(errs, newBalanceError(i, entry, errMultipleMissing))
			continue
		}

		sums, order := sumByCurrency(entry.Postings)
		if len(order) != 1 {
			msg := errMultipleCurrencies
			if len(order) == 0 {
				msg = errNoAmounts
			}
			errs = append(errs, newBalanceError(i, entry, msg))
			continue
		}

		currency := order[0]
		value, _ := sums[currency].Neg().Float64()

		filled := entry.Clone()
		filled.Postings[missing].Amount = &parser.Amount{Value: value, Currency: currency}
		out[i] = filled
	}
	return out, errs
}

// sumByCurrency adds posting amounts per currency. order keeps the
// currencies in first-seen order.
func sumByCurrency(postings []parser.Posting) (map[string]decimal.Decimal, []string) {
	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, p := range postings {
		if p.Amount == nil {
			continue
		}
		sum, ok := sums[p.Amount.Currency]
		if !ok {
			order = append(order, p.Amount.Currency)
		}
		sums[p.Amount.Currency] = sum.Add(decimal.NewFromFloat(p.Amount.Value))
	}
	return sums, order
}

func newBalanceError(index int, entry parser.Entry, msg string) BalanceError {
	return BalanceError{
		Index:    index,
		Entry:    entry,
		Location: entry.Location(),
		Message:  msg,
	}
}
