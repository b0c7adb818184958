package schema

import (
	"encoding/json"
	"fmt"
)

// Schema API command names.
const (
	OpAddFieldType     = "add-field-type"
	OpReplaceFieldType = "replace-field-type"
	OpAddField         = "add-field"
	OpReplaceField     = "replace-field"
	OpAddCopyField     = "add-copy-field"
)

// Batch partitions desired items into those to create and those to replace.
type Batch[T any] struct {
	Create  []T `json:"create"`
	Replace []T `json:"replace"`
}

// Empty reports whether the batch requires no request at all.
func (b Batch[T]) Empty() bool {
	return len(b.Create) == 0 && len(b.Replace) == 0
}

// Reconcile partitions desired by whether each item's key is already
// observed. Present keys are replaced with the desired definition as-is; no
// attribute diff is made. Absent keys are created.
func Reconcile[T any, K comparable](desired []T, observed Set[K], key func(T) K) Batch[T] {
	var b Batch[T]
	for _, item := range desired {
		if observed.Has(key(item)) {
			b.Replace = append(b.Replace, item)
		} else {
			b.Create = append(b.Create, item)
		}
	}
	return b
}

// Plan holds the reconciliation result for every kind of schema object.
type Plan struct {
	FieldTypes Batch[FieldTypeDefinition] `json:"fieldTypes"`
	Fields     Batch[FieldDefinition]     `json:"fields"`
	// CopyFields never carries replacements: a rule that already exists is
	// left alone.
	CopyFields Batch[CopyFieldRule] `json:"copyFields"`
}

// ReconcileAll reconciles every kind of desired definition against snap.
func ReconcileAll(desired Definitions, snap Snapshot) Plan {
	copyFields := Reconcile(desired.CopyFields, snap.CopyFieldKeys(), CopyFieldRule.Key)
	copyFields.Replace = nil

	return Plan{
		FieldTypes: Reconcile(desired.FieldTypes, snap.FieldTypeNames(), FieldTypeDefinition.Key),
		Fields:     Reconcile(desired.Fields, snap.FieldNames(), FieldDefinition.Key),
		CopyFields: copyFields,
	}
}

// Empty reports whether the plan issues no command.
func (p Plan) Empty() bool {
	return p.FieldTypes.Empty() && p.Fields.Empty() && p.CopyFields.Empty()
}

// Commands returns the schema commands in the order they must be applied:
// field types, then fields, then copy fields. Empty batches are omitted.
func (p Plan) Commands() []Command {
	var cmds []Command
	if len(p.FieldTypes.Replace) > 0 {
		cmds = append(cmds, Command{Op: OpReplaceFieldType, Items: p.FieldTypes.Replace})
	}
	if len(p.FieldTypes.Create) > 0 {
		cmds = append(cmds, Command{Op: OpAddFieldType, Items: p.FieldTypes.Create})
	}
	if len(p.Fields.Replace) > 0 {
		cmds = append(cmds, Command{Op: OpReplaceField, Items: p.Fields.Replace})
	}
	if len(p.Fields.Create) > 0 {
		cmds = append(cmds, Command{Op: OpAddField, Items: p.Fields.Create})
	}
	if len(p.CopyFields.Create) > 0 {
		cmds = append(cmds, Command{Op: OpAddCopyField, Items: p.CopyFields.Create})
	}
	return cmds
}

// Command is one request to a schema or config endpoint. It encodes as
// {"<op>": items}.
type Command struct {
	Op    string
	Items any
}

// Len returns the number of items carried by the command.
func (c Command) Len() int {
	switch items := c.Items.(type) {
	case []FieldTypeDefinition:
		return len(items)
	case []FieldDefinition:
		return len(items)
	case []CopyFieldRule:
		return len(items)
	case []any:
		return len(items)
	default:
		return 1
	}
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%d)", c.Op, c.Len())
}

// MarshalJSON encodes the command as a single-key object.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{c.Op: c.Items})
}
