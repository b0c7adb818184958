package schema

// englishChain is the stock English analysis chain shared by the custom text
// types.
func englishChain() []Component {
	return []Component{
		{"name": "stop", "words": "lang/stopwords_en.txt"},
		{"name": "lowercase"},
		{"name": "englishPossessive"},
		{"name": "keywordMarker", "protected": "protwords.txt"},
		{"name": "porterStem"},
	}
}

// DefaultDefinitions returns the flat movie schema: English text fields,
// bigram and exact aliases for people names, and copy fields feeding the
// people.* and text_all catch-all fields.
func DefaultDefinitions() Definitions {
	bigram := append(englishChain(), Component{
		"name": "shingle", "maxShingleSize": 2, "minShingleSize": 2, "outputUnigrams": false,
	})

	fieldTypes := []FieldTypeDefinition{
		{
			Name:  "text_en_clone",
			Class: "solr.TextField",
			Analyzer: &AnalyzerSpec{
				Name:      "tokenizerChain",
				Tokenizer: Component{"name": "standard"},
				Filters:   englishChain(),
			},
		},
		{
			Name:  "text_en_bigram",
			Class: "solr.TextField",
			Analyzer: &AnalyzerSpec{
				Name:      "tokenizerChain",
				Tokenizer: Component{"name": "standard"},
				Filters:   bigram,
			},
		},
		{
			Name:  "text_dbl_metaphone",
			Class: "solr.TextField",
			Analyzer: &AnalyzerSpec{
				Name:      "tokenizerChain",
				Tokenizer: Component{"name": "standard"},
				Filters: []Component{
					{"name": "lowercase"},
					{"name": "phonetic", "encoder": "DoubleMetaphone", "inject": true},
				},
			},
		},
	}

	people := func(name, typ string) FieldDefinition {
		return FieldDefinition{Name: name, Type: typ, MultiValued: Bool(true), OmitNorms: Bool(true)}
	}

	fields := []FieldDefinition{
		{Name: "title", Type: "text_en"},
		{Name: "title.exact", Type: "text_en"},
		{Name: "title_str", Type: "string"},
		{Name: "overview", Type: "text_en"},
		people("cast.name", "text_en"),
		people("directors.name", "text_en"),
		people("people.name", "text_en"),
		{Name: "text_all", Type: "text_en", MultiValued: Bool(true)},
		people("cast.name.bigrammed", "text_en_bigram"),
		people("directors.name.bigrammed", "text_en_bigram"),
		people("people.name.bigrammed", "text_en_bigram"),
		people("cast.name.exact", "text_en"),
		people("directors.name.exact", "text_en"),
		people("people.name.exact", "text_en"),
		{Name: "release_date", Type: "pdate", MultiValued: Bool(false), OmitNorms: Bool(true)},
		{Name: "vote_average", Type: "pdouble", MultiValued: Bool(false), OmitNorms: Bool(true)},
		{Name: "popularity", Type: "pdouble", MultiValued: Bool(false), OmitNorms: Bool(true)},
	}

	copyFields := []CopyFieldRule{
		{Source: "cast.name.bigrammed", Dest: "people.name.bigrammed"},
		{Source: "directors.name.bigrammed", Dest: "people.name.bigrammed"},
		{Source: "cast.name", Dest: "people.name"},
		{Source: "cast.name", Dest: "people.name_str"},
		{Source: "directors.name", Dest: "people.name"},
		{Source: "directors.name", Dest: "people.name_str"},
		{Source: "cast.name.exact", Dest: "people.name.exact"},
		{Source: "directors.name.exact", Dest: "people.name.exact"},
		{Source: "cast.name", Dest: "text_all"},
		{Source: "directors.name", Dest: "text_all"},
		{Source: "title", Dest: "text_all"},
		{Source: "title", Dest: "title_str"},
		{Source: "overview", Dest: "text_all"},
	}

	return Definitions{
		FieldTypes: fieldTypes,
		Fields:     fields,
		CopyFields: copyFields,
		Suggester:  DefaultSuggester(),
	}
}

// DefaultNestedDefinitions returns the schema for parent/child indexing: the
// fields that occur inside embedded cast and crew documents.
func DefaultNestedDefinitions() Definitions {
	return Definitions{
		Fields: []FieldDefinition{
			{Name: "iso_3166_1", Type: "string"},
			{Name: "iso_639_1", Type: "string"},
			{Name: "name", Type: "text_en"},
			{Name: "character", Type: "text_en"},
			{Name: "credit_id", Type: "string"},
			{Name: "cast_id", Type: "pint"},
			{Name: "department", Type: "text_en"},
			{Name: "job", Type: "text_en"},
			{Name: "profile_path", Type: "string"},
			{Name: "order", Type: "pint"},
		},
	}
}

// DefaultSuggester returns a fuzzy title suggester weighted by popularity.
func DefaultSuggester() *Suggester {
	return &Suggester{
		Component: map[string]any{
			"name":  "suggest",
			"class": "solr.SuggestComponent",
			"suggester": map[string]any{
				"name":                     "mySuggester",
				"lookupImpl":               "FuzzyLookupFactory",
				"dictionaryImpl":           "DocumentDictionaryFactory",
				"field":                    "title",
				"weightField":              "popularity",
				"suggestAnalyzerFieldType": "string",
			},
		},
		Handler: map[string]any{
			"name":  "/suggest",
			"class": "solr.SearchHandler",
			"defaults": map[string]any{
				"suggest":       true,
				"suggest.count": 10,
			},
			"components": []any{"suggest"},
		},
	}
}
