// Package schema describes the desired field, field type and copy-field
// configuration of a search core and reconciles it against the live schema.
package schema

// FieldDefinition is a named, typed slot in the index schema.
type FieldDefinition struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	// Unset attributes fall back to the field type's default; an explicit
	// false is sent as false.
	MultiValued *bool `json:"multiValued,omitempty" yaml:"multiValued,omitempty"`
	OmitNorms   *bool `json:"omitNorms,omitempty" yaml:"omitNorms,omitempty"`
}

// Bool returns a pointer to b, for optional field attributes.
func Bool(b bool) *bool { return &b }

// Key identifies a field by name.
func (f FieldDefinition) Key() string { return f.Name }

// Component is one stage of an analysis chain: a "name" (or "class") entry
// plus stage parameters.
type Component map[string]any

// Name returns the stage name, falling back to its class.
func (c Component) Name() string {
	if name, ok := c["name"].(string); ok {
		return name
	}
	if class, ok := c["class"].(string); ok {
		return class
	}
	return ""
}

// AnalyzerSpec is a tokenizer followed by token filters.
type AnalyzerSpec struct {
	Name      string      `json:"name,omitempty" yaml:"name,omitempty"`
	Tokenizer Component   `json:"tokenizer,omitempty" yaml:"tokenizer,omitempty"`
	Filters   []Component `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// FieldTypeDefinition is a named analysis pipeline fields can refer to.
type FieldTypeDefinition struct {
	Name     string        `json:"name" yaml:"name"`
	Class    string        `json:"class" yaml:"class"`
	Analyzer *AnalyzerSpec `json:"analyzer,omitempty" yaml:"analyzer,omitempty"`
}

// Key identifies a field type by name.
func (t FieldTypeDefinition) Key() string { return t.Name }

// CopyFieldRule duplicates the content of Source into Dest at index time.
type CopyFieldRule struct {
	Source string `json:"source" yaml:"source"`
	Dest   string `json:"dest" yaml:"dest"`
}

// CopyFieldKey identifies a copy-field rule. Rules have no other attributes.
type CopyFieldKey struct {
	Source string
	Dest   string
}

// Key returns the (source, dest) pair.
func (c CopyFieldRule) Key() CopyFieldKey { return CopyFieldKey{Source: c.Source, Dest: c.Dest} }

// Set is a set of identity keys.
type Set[K comparable] map[K]struct{}

// NewSet builds a set from keys.
func NewSet[K comparable](keys ...K) Set[K] {
	s := make(Set[K], len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set[K]) Has(k K) bool {
	_, ok := s[k]
	return ok
}

// Add inserts keys.
func (s Set[K]) Add(keys ...K) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

// KeysOf collects the identity keys of items.
func KeysOf[T any, K comparable](items []T, key func(T) K) Set[K] {
	s := make(Set[K], len(items))
	for _, item := range items {
		s[key(item)] = struct{}{}
	}
	return s
}

// Snapshot is the schema observed on the live core.
type Snapshot struct {
	FieldTypes []FieldTypeDefinition `json:"fieldTypes"`
	Fields     []FieldDefinition     `json:"fields"`
	CopyFields []CopyFieldRule       `json:"copyFields"`
}

// FieldTypeNames returns the names of the observed field types.
func (s Snapshot) FieldTypeNames() Set[string] {
	return KeysOf(s.FieldTypes, FieldTypeDefinition.Key)
}

// FieldNames returns the names of the observed fields.
func (s Snapshot) FieldNames() Set[string] {
	return KeysOf(s.Fields, FieldDefinition.Key)
}

// CopyFieldKeys returns the (source, dest) pairs of the observed copy fields.
func (s Snapshot) CopyFieldKeys() Set[CopyFieldKey] {
	return KeysOf(s.CopyFields, CopyFieldRule.Key)
}
