package beancount

import (
	"regexp"

	"github.com/lucasew/contapila/pkg/parser"
)

var periodPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)`)

// Module names of the builtin directive sets.
const (
	CoreModuleName            = "core-beancount"
	TransactionModuleName     = "transactions"
	CustomReportingModuleName = "custom-reporting"
)

func dateField() parser.FieldDefinition {
	return parser.FieldDefinition{Name: "date", Type: "date", Required: true}
}

func keywordField(word string) parser.FieldDefinition {
	return parser.FieldDefinition{
		Name:     "keyword",
		Type:     "string",
		Required: true,
		Parser:   parser.KeywordParser(word),
	}
}

func accountField() parser.FieldDefinition {
	return parser.FieldDefinition{Name: "account", Type: "account", Required: true}
}

func amountField() parser.FieldDefinition {
	return parser.FieldDefinition{Name: "amount", Type: "amount", Required: true}
}

// CoreModule declares open, close, balance, price and note.
func CoreModule() parser.Module {
	return parser.Module{
		Name:    CoreModuleName,
		Version: "1.0.0",
		Directives: []parser.Directive{
			&parser.SchemaDirective{Name: KindOpen, Fields: []parser.FieldDefinition{
				dateField(),
				keywordField(KindOpen),
				accountField(),
				{Name: "currencies", Type: "array", Parser: parser.Lift(currencyList)},
			}},
			&parser.SchemaDirective{Name: KindClose, Fields: []parser.FieldDefinition{
				dateField(),
				keywordField(KindClose),
				accountField(),
			}},
			&parser.SchemaDirective{Name: KindBalance, Fields: []parser.FieldDefinition{
				dateField(),
				keywordField(KindBalance),
				accountField(),
				amountField(),
			}},
			&parser.SchemaDirective{Name: KindPrice, Fields: []parser.FieldDefinition{
				dateField(),
				keywordField(KindPrice),
				{Name: "commodity", Type: "string", Required: true},
				amountField(),
			}},
			&parser.SchemaDirective{Name: KindNote, Fields: []parser.FieldDefinition{
				dateField(),
				keywordField(KindNote),
				accountField(),
				{Name: "comment", Type: "string", Required: true, Parser: parser.LiftFatal(parser.QuotedString)},
			}},
		},
	}
}

// TransactionModule declares the transaction directive. It depends on the
// core module.
func TransactionModule() parser.Module {
	return parser.Module{
		Name:         TransactionModuleName,
		Version:      "1.0.0",
		Dependencies: []string{CoreModuleName},
		Directives:   []parser.Directive{TransactionDirective()},
	}
}

// CustomReportingModule declares budget, whose period defaults to monthly.
func CustomReportingModule() parser.Module {
	return parser.Module{
		Name:    CustomReportingModuleName,
		Version: "1.0.0",
		Directives: []parser.Directive{
			&parser.SchemaDirective{Name: KindBudget, Fields: []parser.FieldDefinition{
				dateField(),
				keywordField(KindBudget),
				accountField(),
				amountField(),
				{Name: "period", Type: "string", Default: "monthly", Parser: parser.Lift(period)},
			}},
		},
	}
}

// DefaultModules returns the builtin modules in dispatch order.
func DefaultModules() []parser.Module {
	return []parser.Module{CoreModule(), TransactionModule(), CustomReportingModule()}
}

// NewParser builds a parser for the builtin modules followed by extra.
func NewParser(sourceName string, extra ...parser.Module) (*parser.Parser, error) {
	return parser.New(Config(extra...), parser.WithSourceName(sourceName))
}

// Config returns a parser configuration with the builtin modules followed
// by extra.
func Config(extra ...parser.Module) parser.Config {
	return parser.Config{Modules: append(DefaultModules(), extra...)}
}

// currencyList reads comma separated commodity codes, as in "USD,BRL".
func currencyList(c parser.Cursor) (parser.Result[[]string], bool) {
	first, ok := parser.Currency(c)
	if !ok {
		return parser.Result[[]string]{}, false
	}

	currencies := []string{first.Value}
	current := first.Cursor
	for current.Peek(0) == ',' {
		next, ok := parser.Currency(parser.SkipWhitespace(current.Advance(1)))
		if !ok {
			break
		}
		currencies = append(currencies, next.Value)
		current = next.Cursor
	}
	return parser.Result[[]string]{Value: currencies, Cursor: current}, true
}

// period reads a bare word such as "monthly". Tags, links and comments do
// not start with a letter, so they are left for the caller.
func period(c parser.Cursor) (parser.Result[string], bool) {
	r, ok := parser.Regexp(c, periodPattern)
	if !ok {
		return parser.Result[string]{}, false
	}
	return parser.Result[string]{Value: r.Value[1], Cursor: r.Cursor}, true
}
