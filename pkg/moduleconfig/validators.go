package moduleconfig

import (
	"strings"

	"github.com/lucasew/contapila/pkg/parser"
)

// Validators returns the named validators that module files may refer to.
func Validators() map[string]func(any) bool {
	return map[string]func(any) bool{
		"positive": func(v any) bool {
			n, ok := numeric(v)
			return ok && n > 0
		},
		"non-negative": func(v any) bool {
			n, ok := numeric(v)
			return ok && n >= 0
		},
		"non-empty": nonEmpty,
		"uppercase": func(v any) bool {
			s, ok := v.(string)
			return ok && s != "" && s == strings.ToUpper(s)
		},
	}
}

// numeric reads numbers and the value of amounts.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case parser.Amount:
		return x.Value, true
	default:
		return 0, false
	}
}

func nonEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case []string:
		return len(x) > 0
	case parser.Metadata:
		return len(x) > 0
	default:
		return true
	}
}
