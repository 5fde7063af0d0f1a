package parser

import (
	"fmt"
	"strings"
)

// SyntaxError is a fatal parse failure that aborts the whole document,
// such as an unterminated quoted string.
type SyntaxError struct {
	Source  string
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at line %d", e.Message, e.Line)
}

// ConfigError reports an invalid parser configuration, for example a field
// whose type has no registered parser.
type ConfigError struct {
	Directive string
	Field     string
	Message   string
}

func (e *ConfigError) Error() string {
	if e.Directive == "" {
		return e.Message
	}
	return fmt.Sprintf("directive %q field %q: %s", e.Directive, e.Field, e.Message)
}

// ModuleError lists every dependency violation found in a module set.
type ModuleError struct {
	Problems []string
}

func (e *ModuleError) Error() string {
	return "Module validation failed: " + strings.Join(e.Problems, ", ")
}
