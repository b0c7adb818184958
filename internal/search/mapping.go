package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/token/shingle"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/davidschrooten/index-bootstrap/internal/schema"
)

// buildMapping creates a Bleve mapping from the live schema. Text field types
// with an analysis chain become custom analyzers named after the type.
// Fields not in the schema are indexed dynamically.
func buildMapping(s *coreSchema) (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name
	indexMapping.DefaultMapping.Dynamic = true
	indexMapping.StoreDynamic = true

	analyzers := make(map[string]string, len(s.FieldTypes))
	for _, ft := range s.FieldTypes {
		name, err := addAnalyzer(indexMapping, ft)
		if err != nil {
			return nil, fmt.Errorf("field type %s: %w", ft.Name, err)
		}
		analyzers[ft.Name] = name
	}

	for _, f := range s.Fields {
		ft, ok := s.fieldType(f.Type)
		if !ok {
			return nil, fmt.Errorf("field %s: unknown field type %s", f.Name, f.Type)
		}
		addFieldMappingAt(indexMapping.DefaultMapping, f.Name, createFieldMapping(ft, analyzers[ft.Name]))
	}

	return indexMapping, nil
}

// addFieldMappingAt adds fm at a dotted path. Bleve resolves document keys
// containing dots through nested document mappings, so "title.exact" lives
// under the "exact" property of "title".
func addFieldMappingAt(root *mapping.DocumentMapping, path string, fm *mapping.FieldMapping) {
	current := root
	for _, element := range strings.Split(path, ".") {
		if current.Properties == nil {
			current.Properties = make(map[string]*mapping.DocumentMapping)
		}
		next, ok := current.Properties[element]
		if !ok {
			next = bleve.NewDocumentMapping()
			current.Properties[element] = next
		}
		current = next
	}
	current.AddFieldMapping(fm)
}

// createFieldMapping maps a field type's class to a Bleve field mapping.
func createFieldMapping(ft schema.FieldTypeDefinition, analyzer string) *mapping.FieldMapping {
	var fieldMapping *mapping.FieldMapping

	switch class := strings.TrimPrefix(ft.Class, "solr."); {
	case class == "StrField":
		fieldMapping = bleve.NewKeywordFieldMapping()
	case class == "BoolField":
		fieldMapping = bleve.NewBooleanFieldMapping()
	case class == "DatePointField" || class == "TrieDateField":
		fieldMapping = bleve.NewDateTimeFieldMapping()
	case strings.HasSuffix(class, "PointField") || strings.HasPrefix(class, "Trie"):
		fieldMapping = bleve.NewNumericFieldMapping()
	default:
		fieldMapping = bleve.NewTextFieldMapping()
		fieldMapping.Analyzer = analyzer
	}

	// Always store field values so they can be retrieved in search results
	fieldMapping.Store = true

	return fieldMapping
}

// addAnalyzer registers the analysis chain of ft and returns the analyzer
// name to use for it. Stages without a Bleve equivalent are left out.
func addAnalyzer(indexMapping *mapping.IndexMappingImpl, ft schema.FieldTypeDefinition) (string, error) {
	if ft.Analyzer == nil {
		if ft.Name == "text_en" {
			return en.AnalyzerName, nil
		}
		return standard.Name, nil
	}

	filters := make([]interface{}, 0, len(ft.Analyzer.Filters))
	for i, c := range ft.Analyzer.Filters {
		switch componentKey(c) {
		case "lowercase":
			filters = append(filters, lowercase.Name)
		case "stop":
			filters = append(filters, en.StopName)
		case "englishpossessive":
			filters = append(filters, en.PossessiveName)
		case "porterstem":
			filters = append(filters, porter.Name)
		case "shingle":
			name := fmt.Sprintf("%s_shingle_%d", ft.Name, i)
			err := indexMapping.AddCustomTokenFilter(name, map[string]interface{}{
				"type":            shingle.Name,
				"min":             number(c["minShingleSize"], 2),
				"max":             number(c["maxShingleSize"], 2),
				"output_original": flag(c["outputUnigrams"], true),
			})
			if err != nil {
				return "", err
			}
			filters = append(filters, name)
		}
	}

	err := indexMapping.AddCustomAnalyzer(ft.Name, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     tokenizer(ft.Analyzer.Tokenizer),
		"token_filters": filters,
	})
	if err != nil {
		return "", err
	}
	return ft.Name, nil
}

func tokenizer(c schema.Component) string {
	switch componentKey(c) {
	case "whitespace":
		return whitespace.Name
	case "keyword":
		return single.Name
	default:
		return unicode.Name
	}
}

// componentKey normalizes a stage to a lower-case short name, so that
// "porterStem" and "solr.PorterStemFilterFactory" compare equal.
func componentKey(c schema.Component) string {
	name := strings.TrimPrefix(c.Name(), "solr.")
	name = strings.TrimSuffix(name, "FilterFactory")
	name = strings.TrimSuffix(name, "TokenizerFactory")
	return strings.ToLower(name)
}

func number(v any, def float64) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

func flag(v any, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}
