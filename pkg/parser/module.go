package parser

import "fmt"

// Module is a named, versioned group of directive definitions.
type Module struct {
	Name         string
	Version      string
	Directives   []Directive
	Dependencies []string
}

// ValidateModuleDependencies returns one message per dependency that names
// a module missing from modules. An empty result means the set is valid.
func ValidateModuleDependencies(modules []Module) []string {
	names := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		names[m.Name] = struct{}{}
	}

	var problems []string
	for _, m := range modules {
		for _, dep := range m.Dependencies {
			if _, ok := names[dep]; !ok {
				problems = append(problems, fmt.Sprintf("Module '%s' depends on missing module '%s'", m.Name, dep))
			}
		}
	}
	return problems
}

// DirectiveKinds lists the directive kinds of modules in dispatch order.
func DirectiveKinds(modules []Module) []string {
	var kinds []string
	for _, m := range modules {
		for _, d := range m.Directives {
			kinds = append(kinds, d.Kind())
		}
	}
	return kinds
}

// FindModule returns the first module called name.
func FindModule(modules []Module, name string) (Module, bool) {
	for _, m := range modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}
