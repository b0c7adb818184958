package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config API command names used by the suggester.
const (
	OpDeleteRequestHandler  = "delete-requesthandler"
	OpDeleteSearchComponent = "delete-searchcomponent"
	OpAddSearchComponent    = "add-searchcomponent"
	OpAddRequestHandler     = "add-requesthandler"
)

// Definitions is the desired schema of a core.
type Definitions struct {
	FieldTypes []FieldTypeDefinition `yaml:"fieldTypes"`
	Fields     []FieldDefinition     `yaml:"fields"`
	CopyFields []CopyFieldRule       `yaml:"copyFields"`
	Suggester  *Suggester            `yaml:"suggester,omitempty"`
}

// Suggester is an autosuggest search component and the request handler that
// serves it. It is always deleted and recreated rather than reconciled.
type Suggester struct {
	Component map[string]any `yaml:"component" json:"component"`
	Handler   map[string]any `yaml:"handler" json:"handler"`
}

// ComponentName returns the search component's name.
func (s *Suggester) ComponentName() string {
	name, _ := s.Component["name"].(string)
	return name
}

// HandlerName returns the request handler's path.
func (s *Suggester) HandlerName() string {
	name, _ := s.Handler["name"].(string)
	return name
}

// DeleteCommands removes the handler first, since it references the component.
func (s *Suggester) DeleteCommands() []Command {
	return []Command{
		{Op: OpDeleteRequestHandler, Items: s.HandlerName()},
		{Op: OpDeleteSearchComponent, Items: s.ComponentName()},
	}
}

// CreateCommands adds the component before the handler that uses it.
func (s *Suggester) CreateCommands() []Command {
	return []Command{
		{Op: OpAddSearchComponent, Items: s.Component},
		{Op: OpAddRequestHandler, Items: s.Handler},
	}
}

// LoadDefinitions reads desired definitions from a YAML file.
func LoadDefinitions(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("failed to read schema file: %w", err)
	}

	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return Definitions{}, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}

	if err := defs.Validate(); err != nil {
		return Definitions{}, fmt.Errorf("invalid schema file %s: %w", path, err)
	}
	return defs, nil
}

// Validate checks that every definition carries its identity key.
func (d Definitions) Validate() error {
	for i, t := range d.FieldTypes {
		if t.Name == "" || t.Class == "" {
			return fmt.Errorf("field type %d: name and class are required", i)
		}
	}
	for i, f := range d.Fields {
		if f.Name == "" || f.Type == "" {
			return fmt.Errorf("field %d: name and type are required", i)
		}
	}
	for i, c := range d.CopyFields {
		if c.Source == "" || c.Dest == "" {
			return fmt.Errorf("copy field %d: source and dest are required", i)
		}
	}
	if d.Suggester != nil && (d.Suggester.ComponentName() == "" || d.Suggester.HandlerName() == "") {
		return fmt.Errorf("suggester: component and handler names are required")
	}
	return nil
}
