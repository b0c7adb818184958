package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"

	"github.com/davidschrooten/index-bootstrap/internal/engine"
	"github.com/davidschrooten/index-bootstrap/internal/schema"
)

// Fields added to documents on submission.
const (
	IDField   = "id"
	RootField = "_root_"
)

// SearchResult represents search results
type SearchResult struct {
	Hits     []SearchHit `json:"hits"`
	Total    int         `json:"total"`
	MaxScore float64     `json:"maxScore"`
}

// SearchHit represents a single search result
type SearchHit struct {
	ID     string                 `json:"id"`
	Score  float64                `json:"score"`
	Source map[string]interface{} `json:"source"`
}

type indexedDocument struct {
	id     string
	fields map[string]any
}

// Submit buffers documents for the bound core. Copy fields are applied and
// embedded child documents are split off and indexed on their own, with
// _root_ pointing at the top-level document. Documents become searchable on
// Commit.
func (e *Engine) Submit(ctx context.Context, docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	s, err := loadSchema(e.coreDir(e.core))
	if err != nil {
		return err
	}
	index, err := e.openIndex()
	if err != nil {
		return err
	}

	batch, ok := e.pending[e.core]
	if !ok {
		batch = index.NewBatch()
		e.pending[e.core] = batch
	}

	for _, doc := range docs {
		expanded, err := expandDocument(doc, s.CopyFields, "")
		if err != nil {
			return &engine.Error{Op: "update", Message: err.Error()}
		}
		for _, d := range expanded {
			if err := batch.Index(d.id, d.fields); err != nil {
				return fmt.Errorf("failed to index document %s: %w", d.id, err)
			}
		}
	}
	return nil
}

// Commit executes the buffered batch.
func (e *Engine) Commit(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	batch, ok := e.pending[e.core]
	if !ok || batch.Size() == 0 {
		return nil
	}
	index, err := e.openIndex()
	if err != nil {
		return err
	}
	if err := index.Batch(batch); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	delete(e.pending, e.core)
	return nil
}

// DocCount returns the number of committed documents, children included.
func (e *Engine) DocCount(ctx context.Context) (uint64, error) {
	e.mutex.RLock()
	index, ok := e.indexes[e.core]
	e.mutex.RUnlock()

	if !ok {
		return 0, nil
	}
	return index.DocCount()
}

// Search runs a match query for text against field of the bound core.
func (e *Engine) Search(ctx context.Context, field, text string, size int) (*SearchResult, error) {
	e.mutex.RLock()
	index, ok := e.indexes[e.core]
	e.mutex.RUnlock()

	if !ok {
		return &SearchResult{Hits: []SearchHit{}}, nil
	}

	matchQuery := bleve.NewMatchQuery(text)
	matchQuery.SetField(field)

	searchReq := bleve.NewSearchRequestOptions(matchQuery, size, 0, false)
	// Include all stored fields in results
	searchReq.Fields = []string{"*"}

	searchResult, err := index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return convertSearchResult(searchResult), nil
}

// convertSearchResult converts Bleve search result to our format
func convertSearchResult(result *bleve.SearchResult) *SearchResult {
	hits := make([]SearchHit, len(result.Hits))

	for i, hit := range result.Hits {
		source := make(map[string]interface{}, len(hit.Fields))
		for field, value := range hit.Fields {
			source[field] = value
		}

		hits[i] = SearchHit{
			ID:     hit.ID,
			Score:  hit.Score,
			Source: source,
		}
	}

	return &SearchResult{
		Hits:     hits,
		Total:    int(result.Total),
		MaxScore: result.MaxScore,
	}
}

// expandDocument prepares doc for indexing: copy fields are applied to the
// original values, JSON numbers are converted, and lists of objects that
// carry an id become child documents listed before their parent.
func expandDocument(doc map[string]any, copyFields []schema.CopyFieldRule, root string) ([]indexedDocument, error) {
	id, ok := documentID(doc[IDField])
	if !ok {
		return nil, fmt.Errorf("Document is missing mandatory uniqueKey field: %s", IDField)
	}
	if root == "" {
		root = id
	}

	fields := make(map[string]any, len(doc)+len(copyFields))
	for k, v := range doc {
		fields[k] = convertNumbers(v)
	}
	fields[IDField] = id
	if root != id {
		fields[RootField] = root
	}

	for _, rule := range copyFields {
		if v, ok := doc[rule.Source]; ok && v != nil {
			fields[rule.Dest] = appendValues(fields[rule.Dest], convertNumbers(v))
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []indexedDocument
	for _, k := range keys {
		children, ok := childDocuments(fields[k])
		if !ok {
			continue
		}
		for _, child := range children {
			expanded, err := expandDocument(child, copyFields, root)
			if err != nil {
				return nil, fmt.Errorf("child of %s in %s: %w", id, k, err)
			}
			out = append(out, expanded...)
		}
		delete(fields, k)
	}

	return append(out, indexedDocument{id: id, fields: fields}), nil
}

// childDocuments returns the elements of v when it is a non-empty list of
// objects that all carry an id.
func childDocuments(v any) ([]map[string]any, bool) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	children := make([]map[string]any, 0, len(items))
	for _, item := range items {
		child, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		if _, ok := documentID(child[IDField]); !ok {
			return nil, false
		}
		children = append(children, child)
	}
	return children, true
}

func documentID(v any) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	default:
		return fmt.Sprint(id), true
	}
}

// convertNumbers replaces json.Number values with float64 so that numeric
// field mappings index them.
func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = convertNumbers(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = convertNumbers(item)
		}
		return out
	default:
		return v
	}
}

func appendValues(existing, add any) any {
	var out []any
	switch e := existing.(type) {
	case nil:
	case []any:
		out = append(out, e...)
	default:
		out = append(out, e)
	}
	switch a := add.(type) {
	case []any:
		out = append(out, a...)
	default:
		out = append(out, a)
	}
	return out
}
