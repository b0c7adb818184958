package document

import (
	"sort"
	"strconv"
)

// Document maps field names to values.
type Document map[string]Value

// FromMap classifies every field of a decoded document.
func FromMap(m map[string]any) Document {
	doc := make(Document, len(m))
	for k, v := range m {
		doc[k] = FromAny(v)
	}
	return doc
}

// Map returns the plain Go representation of the document, suitable for JSON
// encoding and for submission to a search engine.
func (d Document) Map() map[string]any {
	m := make(map[string]any, len(d))
	for k, v := range d {
		m[k] = v.Any()
	}
	return m
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Keys returns the field names in lexical order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flat reports whether no field holds an object or a list containing one.
func (d Document) Flat() bool {
	for _, v := range d {
		if IsNested(v) {
			return false
		}
	}
	return true
}

// Collection is an ordered set of documents keyed by their external id.
type Collection struct {
	ids  []string
	docs map[string]Document
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{docs: make(map[string]Document)}
}

// Add stores doc under id. Re-adding an id replaces the document but keeps
// its original position.
func (c *Collection) Add(id string, doc Document) {
	if _, exists := c.docs[id]; !exists {
		c.ids = append(c.ids, id)
	}
	c.docs[id] = doc
}

// Get returns the document stored under id.
func (c *Collection) Get(id string) (Document, bool) {
	doc, ok := c.docs[id]
	return doc, ok
}

// IDs returns the document ids in iteration order.
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	return len(c.ids)
}

// SortByID orders the collection by numeric id, ascending. Non-numeric ids
// sort after numeric ones, lexically.
func (c *Collection) SortByID() {
	sort.SliceStable(c.ids, func(i, j int) bool {
		a, aErr := strconv.ParseInt(c.ids[i], 10, 64)
		b, bErr := strconv.ParseInt(c.ids[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return c.ids[i] < c.ids[j]
		}
	})
}
