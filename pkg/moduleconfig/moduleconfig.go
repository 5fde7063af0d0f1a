// Package moduleconfig loads directive modules declared in YAML.
package moduleconfig

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/lucasew/contapila/pkg/parser"
)

//go:embed schemas/modules_schema.json
var modulesSchema string

const schemaURL = "https://contapila.local/modules_schema.json"

// File is the top level of a module file.
type File struct {
	Modules []ModuleSpec `yaml:"modules"`
}

// ModuleSpec declares one module.
type ModuleSpec struct {
	Name         string          `yaml:"name"`
	Version      string          `yaml:"version"`
	Dependencies []string        `yaml:"dependencies"`
	Directives   []DirectiveSpec `yaml:"directives"`
}

// DirectiveSpec declares one schema directive. When Keyword is set the
// directive starts with a date followed by that keyword, and Fields follow.
type DirectiveSpec struct {
	Name    string      `yaml:"name"`
	Keyword string      `yaml:"keyword"`
	Fields  []FieldSpec `yaml:"fields"`
}

// FieldSpec declares one positional field.
type FieldSpec struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Required  bool   `yaml:"required"`
	Default   any    `yaml:"default"`
	Validator string `yaml:"validator"`
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var schemaDoc any
	if err := json.Unmarshal([]byte(modulesSchema), &schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// Load reads, validates and converts a module file.
func Load(path string) ([]parser.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module file: %w", err)
	}

	modules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return modules, nil
}

// Parse validates YAML module declarations against the embedded schema and
// converts them.
func Parse(data []byte) ([]parser.Module, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse module file: %w", err)
	}
	return file.ToModules(), nil
}

// ToModules converts the declarations into parser modules.
func (f File) ToModules() []parser.Module {
	modules := make([]parser.Module, 0, len(f.Modules))
	for _, spec := range f.Modules {
		m := parser.Module{
			Name:         spec.Name,
			Version:      spec.Version,
			Dependencies: spec.Dependencies,
		}
		for _, d := range spec.Directives {
			m.Directives = append(m.Directives, d.toDirective())
		}
		modules = append(modules, m)
	}
	return modules
}

func (d DirectiveSpec) toDirective() *parser.SchemaDirective {
	var fields []parser.FieldDefinition
	if d.Keyword != "" {
		fields = append(fields,
			parser.FieldDefinition{Name: "date", Type: "date", Required: true},
			parser.FieldDefinition{
				Name:     "keyword",
				Type:     "string",
				Required: true,
				Parser:   parser.KeywordParser(d.Keyword),
			},
		)
	}
	for _, f := range d.Fields {
		fields = append(fields, parser.FieldDefinition{
			Name:          f.Name,
			Type:          f.Type,
			Required:      f.Required,
			Default:       f.Default,
			ValidatorName: f.Validator,
		})
	}
	return &parser.SchemaDirective{Name: d.Name, Fields: fields}
}

func validate(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse module file: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// Round-trip through JSON so YAML scalars match the types the
	// validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize module file: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("failed to normalize module file: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("invalid module file: %s", cleanSchemaError(err.Error()))
	}
	return nil
}

// cleanSchemaError drops the generic header lines of a validation error.
func cleanSchemaError(msg string) string {
	var lines []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		lines = append(lines, strings.TrimPrefix(line, "- "))
	}
	if len(lines) == 0 {
		return "schema validation failed"
	}
	return strings.Join(lines, "; ")
}
