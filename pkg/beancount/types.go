// Package beancount provides the Beancount directive modules, the
// transaction parser, the balancing pass and read access to ledger files.
package beancount

import (
	"fmt"
	"strings"

	"github.com/lucasew/contapila/pkg/parser"
)

// Directive kinds declared by the builtin modules.
const (
	KindOpen        = "open"
	KindClose       = "close"
	KindBalance     = "balance"
	KindPrice       = "price"
	KindNote        = "note"
	KindTransaction = parser.KindTransaction
	KindBudget      = "budget"
)

// BalanceError reports a transaction whose missing amount could not be
// inferred. The entry itself is left untouched.
type BalanceError struct {
	Index    int          // Position of the entry in the parsed sequence
	Entry    parser.Entry // The offending transaction
	Location string       // "<source>:<line>" of the transaction
	Message  string
}

func (e BalanceError) Error() string {
	if e.Location == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// BalanceErrors wraps every error of a balancing pass.
type BalanceErrors []BalanceError

func (e BalanceErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	var buf strings.Builder
	for i, err := range e {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(err.Error())
	}
	buf.WriteString(fmt.Sprintf("\n%d balance error(s) found", len(e)))
	return buf.String()
}

// Unwrap returns the underlying errors for error unwrapping.
func (e BalanceErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// Err returns nil for an empty list so callers can write
// `if err := errs.Err(); err != nil`.
func (e BalanceErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
