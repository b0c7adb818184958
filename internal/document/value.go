// Package document holds the tagged value model for source documents and the
// normalizer that turns nested documents into the flat shape a search core
// indexes.
package document

import "fmt"

// Kind identifies the shape of a field value.
type Kind uint8

const (
	KindScalar Kind = iota
	KindScalarList
	KindObject
	KindObjectList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindScalarList:
		return "scalar_list"
	case KindObject:
		return "object"
	case KindObjectList:
		return "object_list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a field value. The set of implementations is closed: Scalar,
// ScalarList, Object and ObjectList.
type Value interface {
	Kind() Kind
	// Any returns the plain Go representation used for encoding.
	Any() any
	sealed()
}

// Scalar is a single leaf value: string, number, bool, date or nil. Values of
// unrecognized types are carried as scalars and passed through unchanged.
type Scalar struct {
	V any
}

// ScalarList is a list that contains no objects.
type ScalarList []any

// Object is an embedded sub-document.
type Object Document

// ObjectList is a list with at least one Object element. Non-object elements
// are kept as they were found.
type ObjectList []Value

func (Scalar) Kind() Kind     { return KindScalar }
func (ScalarList) Kind() Kind { return KindScalarList }
func (Object) Kind() Kind     { return KindObject }
func (ObjectList) Kind() Kind { return KindObjectList }

func (Scalar) sealed()     {}
func (ScalarList) sealed() {}
func (Object) sealed()     {}
func (ObjectList) sealed() {}

func (s Scalar) Any() any { return s.V }

func (l ScalarList) Any() any {
	out := make([]any, len(l))
	copy(out, l)
	return out
}

func (o Object) Any() any { return Document(o).Map() }

func (l ObjectList) Any() any {
	out := make([]any, len(l))
	for i, v := range l {
		out[i] = v.Any()
	}
	return out
}

// Objects returns the Object elements of the list in order.
func (l ObjectList) Objects() []Object {
	objs := make([]Object, 0, len(l))
	for _, v := range l {
		if o, ok := v.(Object); ok {
			objs = append(objs, o)
		}
	}
	return objs
}

// FromAny classifies a decoded value.
func FromAny(v any) Value {
	switch t := v.(type) {
	case Value:
		return t
	case map[string]any:
		return Object(FromMap(t))
	case []any:
		return fromSlice(t)
	case []string:
		l := make(ScalarList, len(t))
		for i, s := range t {
			l[i] = s
		}
		return l
	default:
		return Scalar{V: v}
	}
}

func fromSlice(items []any) Value {
	hasObject := false
	for _, item := range items {
		if _, ok := item.(map[string]any); ok {
			hasObject = true
			break
		}
	}
	if !hasObject {
		l := make(ScalarList, len(items))
		copy(l, items)
		return l
	}

	l := make(ObjectList, len(items))
	for i, item := range items {
		l[i] = FromAny(item)
	}
	return l
}

// IsNested reports whether v is an object or a list containing an object.
func IsNested(v Value) bool {
	switch v.(type) {
	case Object, ObjectList:
		return true
	default:
		return false
	}
}
