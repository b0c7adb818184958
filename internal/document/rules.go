package document

// AnyField matches every top-level field in a FieldPath.
const AnyField = "*"

// FieldPath names a field and, optionally, a subfield of the objects it holds.
type FieldPath struct {
	Field    string `mapstructure:"field" yaml:"field" json:"field"`
	Subfield string `mapstructure:"subfield" yaml:"subfield,omitempty" json:"subfield,omitempty"`
}

// String returns the flat field name the path projects to.
func (p FieldPath) String() string {
	if p.Subfield == "" {
		return p.Field
	}
	return p.Field + "." + p.Subfield
}

// Matches reports whether the path applies to the given top-level field.
func (p FieldPath) Matches(field string) bool {
	return p.Field == AnyField || p.Field == field
}

// FlattenRule declares which subfields are pulled out of nested values and
// which alias fields are derived from them.
type FlattenRule struct {
	Subfields []string `mapstructure:"subfields" yaml:"subfields" json:"subfields"`
	// ExactWrapping derives "<field>.<subfield>.exact" with sentinel-wrapped values.
	ExactWrapping bool `mapstructure:"exact" yaml:"exact" json:"exact"`
	// BigramAlias derives "<field>.<subfield>.bigrammed" with the same values.
	BigramAlias bool `mapstructure:"bigram" yaml:"bigram" json:"bigram"`
}

// Rule binds a FlattenRule to the fields it applies to. A path with a
// subfield restricts the rule to that subfield alone.
type Rule struct {
	Path    FieldPath   `mapstructure:"path" yaml:"path" json:"path"`
	Flatten FlattenRule `mapstructure:"flatten" yaml:"flatten" json:"flatten"`
}

// Options configures a Normalizer.
type Options struct {
	Rules []Rule
	// ExactFields are top-level scalar fields copied to "<field>.exact" with
	// sentinel wrapping.
	ExactFields []string
	// Nested switches to parent/child tagging instead of flattening.
	Nested bool
}

// DefaultOptions returns the rules used for the movie corpus: every nested
// field projects "name" and "character" with bigram aliases, cast and
// director names get exact variants, and the title gets an exact copy.
func DefaultOptions() Options {
	return Options{
		Rules: []Rule{
			{
				Path:    FieldPath{Field: AnyField},
				Flatten: FlattenRule{Subfields: []string{"name", "character"}, BigramAlias: true},
			},
			{
				Path:    FieldPath{Field: "cast", Subfield: "name"},
				Flatten: FlattenRule{ExactWrapping: true},
			},
			{
				Path:    FieldPath{Field: "directors", Subfield: "name"},
				Flatten: FlattenRule{ExactWrapping: true},
			},
		},
		ExactFields: []string{"title"},
	}
}

type projection struct {
	subfield string
	bigram   bool
	exact    bool
}

// projections merges every rule matching field into one ordered list of
// subfield projections. Flags are OR-ed across rules.
func projections(rules []Rule, field string) []projection {
	var out []projection
	index := make(map[string]int)

	add := func(sub string, r FlattenRule) {
		if i, ok := index[sub]; ok {
			out[i].bigram = out[i].bigram || r.BigramAlias
			out[i].exact = out[i].exact || r.ExactWrapping
			return
		}
		index[sub] = len(out)
		out = append(out, projection{subfield: sub, bigram: r.BigramAlias, exact: r.ExactWrapping})
	}

	for _, r := range rules {
		if !r.Path.Matches(field) {
			continue
		}
		if r.Path.Subfield != "" {
			add(r.Path.Subfield, r.Flatten)
			continue
		}
		for _, sub := range r.Flatten.Subfields {
			add(sub, r.Flatten)
		}
	}
	return out
}
