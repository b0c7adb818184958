package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidschrooten/index-bootstrap/internal/engine"
	"github.com/davidschrooten/index-bootstrap/internal/schema"
)

// DefaultConfigSet is the only config set cores can be created from.
const DefaultConfigSet = "_default"

// Config API component kinds.
const (
	kindSearchComponent = "searchcomponent"
	kindRequestHandler  = "requesthandler"
)

// coreSchema is the persisted state of a core.
type coreSchema struct {
	ConfigSet     string                       `json:"configSet"`
	CreatedAt     time.Time                    `json:"createdAt"`
	FieldTypes    []schema.FieldTypeDefinition `json:"fieldTypes"`
	Fields        []schema.FieldDefinition     `json:"fields"`
	DynamicFields []schema.FieldDefinition     `json:"dynamicFields"`
	CopyFields    []schema.CopyFieldRule       `json:"copyFields"`
	// Components holds config API objects by kind, then name.
	Components map[string]map[string]map[string]any `json:"components"`
}

func seedSchema(configSet string) (*coreSchema, error) {
	if configSet == "" {
		configSet = DefaultConfigSet
	}
	if configSet != DefaultConfigSet {
		return nil, engine.NotFound("create core", "Could not load configuration from directory %s", configSet)
	}

	return &coreSchema{
		ConfigSet: configSet,
		CreatedAt: time.Now(),
		FieldTypes: []schema.FieldTypeDefinition{
			{Name: "string", Class: "solr.StrField"},
			{Name: "text_en", Class: "solr.TextField"},
			{Name: "text_general", Class: "solr.TextField"},
			{Name: "pdate", Class: "solr.DatePointField"},
			{Name: "pdouble", Class: "solr.DoublePointField"},
			{Name: "pint", Class: "solr.IntPointField"},
			{Name: "plong", Class: "solr.LongPointField"},
			{Name: "boolean", Class: "solr.BoolField"},
		},
		Fields: []schema.FieldDefinition{
			{Name: "id", Type: "string"},
			{Name: "_version_", Type: "plong"},
		},
		DynamicFields: []schema.FieldDefinition{
			{Name: "*_str", Type: "string", MultiValued: schema.Bool(true)},
		},
		Components: map[string]map[string]map[string]any{
			kindSearchComponent: {},
			kindRequestHandler:  {},
		},
	}, nil
}

func loadSchema(dir string) (*coreSchema, error) {
	data, err := os.ReadFile(filepath.Join(dir, schemaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, engine.NotFound("load core", "core %s does not exist", filepath.Base(dir))
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	var s coreSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if s.Components == nil {
		s.Components = make(map[string]map[string]map[string]any)
	}
	return &s, nil
}

// save writes the schema to a temporary file and renames it into place.
func (s *coreSchema) save(dir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	path := filepath.Join(dir, schemaFile)
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		return fmt.Errorf("failed to rename schema file: %w", err)
	}
	return nil
}

func (s *coreSchema) snapshot() schema.Snapshot {
	return schema.Snapshot{
		FieldTypes: append([]schema.FieldTypeDefinition(nil), s.FieldTypes...),
		Fields:     append([]schema.FieldDefinition(nil), s.Fields...),
		CopyFields: append([]schema.CopyFieldRule(nil), s.CopyFields...),
	}
}

func (s *coreSchema) fieldType(name string) (schema.FieldTypeDefinition, bool) {
	for _, t := range s.FieldTypes {
		if t.Name == name {
			return t, true
		}
	}
	return schema.FieldTypeDefinition{}, false
}

func (s *coreSchema) fieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// resolveField returns the explicit or dynamic field that name maps to.
func (s *coreSchema) resolveField(name string) (schema.FieldDefinition, bool) {
	if i := s.fieldIndex(name); i >= 0 {
		return s.Fields[i], true
	}
	for _, d := range s.DynamicFields {
		if matchDynamic(d.Name, name) {
			return d, true
		}
	}
	return schema.FieldDefinition{}, false
}

// matchDynamic matches a "*_suffix" or "prefix_*" pattern.
func matchDynamic(pattern, name string) bool {
	switch {
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(name, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	default:
		return pattern == name
	}
}

func schemaError(op, format string, args ...any) *engine.Error {
	return &engine.Error{Op: op, Message: fmt.Sprintf(format, args...)}
}

// applySchema applies cmd to s. On error s may be partially modified and
// must not be saved.
func (s *coreSchema) applySchema(cmd schema.Command) error {
	switch cmd.Op {
	case schema.OpAddFieldType, schema.OpReplaceFieldType:
		items, ok := cmd.Items.([]schema.FieldTypeDefinition)
		if !ok {
			return schemaError(cmd.Op, "unexpected items %T", cmd.Items)
		}
		for _, t := range items {
			if err := s.putFieldType(cmd.Op, t); err != nil {
				return err
			}
		}

	case schema.OpAddField, schema.OpReplaceField:
		items, ok := cmd.Items.([]schema.FieldDefinition)
		if !ok {
			return schemaError(cmd.Op, "unexpected items %T", cmd.Items)
		}
		for _, f := range items {
			if err := s.putField(cmd.Op, f); err != nil {
				return err
			}
		}

	case schema.OpAddCopyField:
		items, ok := cmd.Items.([]schema.CopyFieldRule)
		if !ok {
			return schemaError(cmd.Op, "unexpected items %T", cmd.Items)
		}
		for _, c := range items {
			if err := s.addCopyField(cmd.Op, c); err != nil {
				return err
			}
		}

	default:
		return schemaError(cmd.Op, "unknown schema command %s", cmd.Op)
	}
	return nil
}

func (s *coreSchema) putFieldType(op string, t schema.FieldTypeDefinition) error {
	if t.Name == "" || t.Class == "" {
		return schemaError(op, "field type requires name and class")
	}

	for i, existing := range s.FieldTypes {
		if existing.Name != t.Name {
			continue
		}
		if op == schema.OpAddFieldType {
			return schemaError(op, "Field type '%s' already exists.", t.Name)
		}
		s.FieldTypes[i] = t
		return nil
	}

	if op == schema.OpReplaceFieldType {
		return schemaError(op, "The field type '%s' is not present in this schema, and so cannot be replaced.", t.Name)
	}
	s.FieldTypes = append(s.FieldTypes, t)
	return nil
}

func (s *coreSchema) putField(op string, f schema.FieldDefinition) error {
	if _, ok := s.fieldType(f.Type); !ok {
		return schemaError(op, "Field '%s': Field type '%s' is unknown.", f.Name, f.Type)
	}

	i := s.fieldIndex(f.Name)
	switch {
	case i >= 0 && op == schema.OpAddField:
		return schemaError(op, "Field '%s' already exists.", f.Name)
	case i < 0 && op == schema.OpReplaceField:
		return schemaError(op, "The field '%s' is not present in this schema, and so cannot be replaced.", f.Name)
	case i >= 0:
		s.Fields[i] = f
	default:
		s.Fields = append(s.Fields, f)
	}
	return nil
}

func (s *coreSchema) addCopyField(op string, c schema.CopyFieldRule) error {
	if _, ok := s.resolveField(c.Source); !ok {
		return schemaError(op, "copyField source :'%s' is not a glob and doesn't match any explicit field or dynamicField.", c.Source)
	}
	if _, ok := s.resolveField(c.Dest); !ok {
		return schemaError(op, "copyField dest :'%s' is not an explicit field and doesn't match a dynamicField.", c.Dest)
	}
	for _, existing := range s.CopyFields {
		if existing.Key() == c.Key() {
			return schemaError(op, "Copy field '%s' -> '%s' already exists.", c.Source, c.Dest)
		}
	}
	s.CopyFields = append(s.CopyFields, c)
	return nil
}

// applyConfig applies a config API command to the stored components.
func (s *coreSchema) applyConfig(cmd schema.Command) error {
	var kind string
	var remove bool
	switch cmd.Op {
	case schema.OpAddSearchComponent:
		kind = kindSearchComponent
	case schema.OpAddRequestHandler:
		kind = kindRequestHandler
	case schema.OpDeleteSearchComponent:
		kind, remove = kindSearchComponent, true
	case schema.OpDeleteRequestHandler:
		kind, remove = kindRequestHandler, true
	default:
		return schemaError(cmd.Op, "unknown config command %s", cmd.Op)
	}

	components := s.Components[kind]
	if components == nil {
		components = make(map[string]map[string]any)
		s.Components[kind] = components
	}

	if remove {
		name, ok := cmd.Items.(string)
		if !ok {
			return schemaError(cmd.Op, "unexpected items %T", cmd.Items)
		}
		if _, exists := components[name]; !exists {
			return engine.NotFound(cmd.Op, "No such %s: %s", kind, name)
		}
		delete(components, name)
		return nil
	}

	def, ok := cmd.Items.(map[string]any)
	if !ok {
		return schemaError(cmd.Op, "unexpected items %T", cmd.Items)
	}
	name, _ := def["name"].(string)
	if name == "" {
		return schemaError(cmd.Op, "%s requires a name", kind)
	}
	if _, exists := components[name]; exists {
		return schemaError(cmd.Op, "'%s' already exists . Do an 'update-%s' , if you want to change it", name, kind)
	}
	components[name] = def
	return nil
}
