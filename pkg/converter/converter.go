// Package converter turns Beancount-style records into parser entries.
package converter

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lucasew/contapila/pkg/parser"
)

// Keys that map onto Entry members instead of Fields.
var entryKeys = map[string]bool{
	"type":      true,
	"date":      true,
	"meta":      true,
	"flag":      true,
	"payee":     true,
	"narration": true,
	"postings":  true,
	"tags":      true,
	"links":     true,
}

// ConvertBeancountToGeneralizedFormat converts decoded records such as
// {"type": "balance", "amount": {"number": 1000, "currency": "USD"}} into
// entries. Record order is preserved.
func ConvertBeancountToGeneralizedFormat(records []map[string]any) []parser.Entry {
	entries := make([]parser.Entry, 0, len(records))
	for _, record := range records {
		entries = append(entries, ConvertRecord(record))
	}
	return entries
}

// ConvertRecord converts a single record.
func ConvertRecord(record map[string]any) parser.Entry {
	entry := parser.Entry{
		Kind:   stringOf(record["type"]),
		Date:   stringOf(record["date"]),
		Meta:   metadataOf(record["meta"]),
		Fields: map[string]any{},
		Tags:   stringsOf(record["tags"]),
		Links:  stringsOf(record["links"]),
	}

	for key, value := range record {
		if entryKeys[key] {
			continue
		}
		if amount, ok := amountOf(value); ok {
			entry.Fields[key] = amount
			continue
		}
		entry.Fields[key] = value
	}

	if entry.IsTransaction() {
		entry.Flag = stringOf(record["flag"])
		entry.Narration = stringOf(record["narration"])
		if payee, ok := record["payee"].(string); ok {
			entry.Payee = &payee
		}
		entry.Postings = postingsOf(record["postings"])
	}

	return entry
}

func postingsOf(raw any) []parser.Posting {
	items, ok := raw.([]any)
	if !ok {
		if typed, ok := raw.([]map[string]any); ok {
			items = make([]any, len(typed))
			for i, m := range typed {
				items[i] = m
			}
		}
	}

	postings := make([]parser.Posting, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		postings = append(postings, parser.Posting{
			Account: stringOf(m["account"]),
			Amount:  amountPtr(m["amount"]),
			Cost:    amountPtr(m["cost"]),
			Price:   amountPtr(m["price"]),
			Flag:    stringOf(m["flag"]),
			Meta:    metadataOf(m["meta"]),
		})
	}
	return postings
}

// amountOf reads a {"number", "currency"} object. A map without a number
// is not an amount.
func amountOf(raw any) (parser.Amount, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return parser.Amount{}, false
	}
	number, ok := m["number"]
	if !ok {
		return parser.Amount{}, false
	}
	value, err := toFloat(number)
	if err != nil {
		return parser.Amount{}, false
	}
	return parser.Amount{Value: value, Currency: stringOf(m["currency"])}, true
}

func amountPtr(raw any) *parser.Amount {
	amount, ok := amountOf(raw)
	if !ok {
		return nil
	}
	return &amount
}

func toFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("not a number: %v", raw)
	}
}

func metadataOf(raw any) parser.Metadata {
	switch m := raw.(type) {
	case parser.Metadata:
		return m
	case map[string]any:
		return parser.MetadataOf(m)
	default:
		return parser.Metadata{}
	}
}

func stringOf(raw any) string {
	s, _ := raw.(string)
	return s
}

func stringsOf(raw any) []string {
	out := []string{}
	switch items := raw.(type) {
	case []string:
		out = append(out, items...)
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
