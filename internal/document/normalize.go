package document

import (
	"errors"
	"fmt"
)

const (
	SentinelBegin = "SENTINEL_BEGIN"
	SentinelEnd   = "SENTINEL_END"

	// NodeTypeField tags documents with their role in nested mode.
	NodeTypeField = "node_type"
	NodeParent    = "parent"
	NodeChild     = "child"

	suffixBigram = ".bigrammed"
	suffixExact  = ".exact"
)

// Wrap brackets a value with the exact-match sentinels.
func Wrap(v string) string {
	return SentinelBegin + " " + v + " " + SentinelEnd
}

// Normalizer converts documents into the shape submitted to the search core.
//
// In flat mode (the default) the output holds only scalars and lists of
// scalars. In nested mode embedded objects are kept and tagged as children
// with synthetic ids, so the no-nesting guarantee does not hold there.
type Normalizer struct {
	opts Options
}

// NewNormalizer creates a normalizer with the given options.
func NewNormalizer(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Nested reports whether the normalizer runs in nested mode.
func (n *Normalizer) Nested() bool {
	return n.opts.Nested
}

// Normalize runs the configured mode on one document. ids is required in
// nested mode and ignored otherwise.
func (n *Normalizer) Normalize(doc Document, ids *IDAllocator) (Document, error) {
	if !n.opts.Nested {
		return n.Flatten(doc), nil
	}
	if ids == nil {
		return nil, errors.New("nested normalization requires an id allocator")
	}
	return n.Nest(doc, ids), nil
}

// NormalizeAll normalizes every document of c in collection order. In nested
// mode the id allocator is seeded from the collection's ids, which must all
// be integers.
func (n *Normalizer) NormalizeAll(c *Collection) ([]Document, error) {
	var ids *IDAllocator
	if n.opts.Nested {
		var err error
		ids, err = NewIDAllocator(c.IDs())
		if err != nil {
			return nil, fmt.Errorf("failed to seed child ids: %w", err)
		}
	}

	out := make([]Document, 0, c.Len())
	for _, id := range c.IDs() {
		doc, _ := c.Get(id)
		normalized, err := n.Normalize(doc, ids)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		out = append(out, normalized)
	}
	return out, nil
}

// Flatten projects configured subfields of nested values into flat fields and
// drops every nested field. The input is not modified.
func (n *Normalizer) Flatten(doc Document) Document {
	derived := make(Document)

	for _, field := range doc.Keys() {
		value := doc[field]
		if !IsNested(value) {
			continue
		}
		for _, p := range projections(n.opts.Rules, field) {
			projected, ok := project(value, p.subfield)
			if !ok {
				continue
			}
			name := field + "." + p.subfield
			derived[name] = projected
			if p.bigram {
				derived[name+suffixBigram] = projected
			}
			if p.exact {
				derived[name+suffixExact] = wrapValue(projected)
			}
		}
	}

	// Exact fields are always derived; a missing, null or nested value wraps
	// the empty string.
	for _, field := range n.opts.ExactFields {
		v, ok := doc[field]
		if s, isScalar := v.(Scalar); !ok || IsNested(v) || (isScalar && s.V == nil) {
			v = Scalar{V: ""}
		}
		derived[field+suffixExact] = wrapValue(v)
	}

	out := make(Document, len(doc)+len(derived))
	for k, v := range doc {
		if IsNested(v) {
			continue
		}
		out[k] = v
	}
	for k, v := range derived {
		out[k] = v
	}
	return out
}

// Nest tags doc as a parent and every object inside a list field as a child
// with a fresh id. Fields are visited in lexical order so allocation is
// deterministic for a given input.
func (n *Normalizer) Nest(doc Document, ids *IDAllocator) Document {
	out := doc.Clone()
	out[NodeTypeField] = Scalar{V: NodeParent}

	for _, field := range doc.Keys() {
		list, ok := doc[field].(ObjectList)
		if !ok {
			continue
		}
		tagged := make(ObjectList, len(list))
		for i, item := range list {
			obj, ok := item.(Object)
			if !ok {
				tagged[i] = item
				continue
			}
			child := Document(obj).Clone()
			child["id"] = Scalar{V: ids.Next()}
			child[NodeTypeField] = Scalar{V: NodeChild}
			tagged[i] = Object(child)
		}
		out[field] = tagged
	}
	return out
}

// project extracts subfield from a single object or from every object of a
// list that has it. Objects without the subfield are skipped. Subfield values
// that are themselves nested are dropped.
func project(v Value, subfield string) (Value, bool) {
	switch t := v.(type) {
	case Object:
		sv, ok := t[subfield]
		if !ok || IsNested(sv) {
			return nil, false
		}
		return sv, true
	case ObjectList:
		values := make(ScalarList, 0, len(t))
		for _, obj := range t.Objects() {
			switch sv := obj[subfield].(type) {
			case Scalar:
				values = append(values, sv.V)
			case ScalarList:
				values = append(values, sv...)
			}
		}
		return values, true
	default:
		return nil, false
	}
}

func wrapValue(v Value) Value {
	switch t := v.(type) {
	case Scalar:
		return Scalar{V: Wrap(text(t.V))}
	case ScalarList:
		wrapped := make(ScalarList, len(t))
		for i, item := range t {
			wrapped[i] = Wrap(text(item))
		}
		return wrapped
	default:
		return v
	}
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
