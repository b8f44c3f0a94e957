// Package categories maps MedDRA Preferred Terms to the adverse-event
// categories the analysis tests. The lookup tables live in an explicitly
// constructed, immutable Config passed in at build time, never in package
// state.
package categories

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"pvsignal/domain/signal"
	"pvsignal/internal/errors"
)

// Rules defines how one category claims preferred terms: exact matches are
// checked before keyword patterns.
type Rules struct {
	ExactMatches []string `yaml:"exact_matches"`
	Keywords     []string `yaml:"keywords"`
}

// Config is the full category mapping table. Core and extended tiers are
// merged when building a Mapper; AnalysisCategories names the event values
// a default analysis screens.
type Config struct {
	Tier1              map[string]Rules `yaml:"tier1_core_categories"`
	Tier2              map[string]Rules `yaml:"tier2_extended_categories"`
	AnalysisCategories []string         `yaml:"analysis_categories"`
}

// LoadConfig reads a mapping config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithCode(err, errors.CodeMapping, "failed to read category config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithCode(err, errors.CodeMapping, "failed to parse category config")
	}
	return &cfg, nil
}

// Mapper resolves preferred terms to categories. Immutable after
// construction and safe for concurrent use.
type Mapper struct {
	exactMatches map[string]string // upper-cased PT -> category
	categories   []string          // keyword lookup order, alphabetical
	patterns     map[string][]*regexp.Regexp
}

// NewMapper compiles the config's lookup tables. Keyword categories are
// consulted in alphabetical order so that mapping is deterministic even when
// keywords of different categories overlap.
func NewMapper(cfg *Config) (*Mapper, error) {
	m := &Mapper{
		exactMatches: make(map[string]string),
		patterns:     make(map[string][]*regexp.Regexp),
	}

	merged := make(map[string]Rules, len(cfg.Tier1)+len(cfg.Tier2))
	for name, rules := range cfg.Tier1 {
		merged[name] = rules
	}
	for name, rules := range cfg.Tier2 {
		merged[name] = rules
	}

	for category, rules := range merged {
		for _, pt := range rules.ExactMatches {
			m.exactMatches[strings.ToUpper(strings.TrimSpace(pt))] = category
		}

		var patterns []*regexp.Regexp
		for _, keyword := range rules.Keywords {
			pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.ToUpper(keyword)) + `\b`)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid keyword %q in category %s", keyword, category)
			}
			patterns = append(patterns, pattern)
		}
		if len(patterns) > 0 {
			m.patterns[category] = patterns
		}
		m.categories = append(m.categories, category)
	}
	sort.Strings(m.categories)

	return m, nil
}

// Map resolves one preferred term. Exact matches win over keywords; an
// unmapped term returns "", the missing-event value, so it is excluded from
// every contingency cell downstream.
func (m *Mapper) Map(pt string) string {
	if strings.TrimSpace(pt) == "" {
		return ""
	}
	ptUpper := strings.ToUpper(strings.TrimSpace(pt))

	if category, ok := m.exactMatches[ptUpper]; ok {
		return category
	}

	for _, category := range m.categories {
		for _, pattern := range m.patterns[category] {
			if pattern.MatchString(ptUpper) {
				return category
			}
		}
	}
	return ""
}

// MapRecords rewrites each record's event from a preferred term to its
// category. Returns a new slice; the input records are not modified.
func (m *Mapper) MapRecords(records []signal.Record) []signal.Record {
	out := make([]signal.Record, len(records))
	for i, r := range records {
		r.Event = m.Map(r.Event)
		out[i] = r
	}
	return out
}

// AnalysisCategories returns the configured default event list for analysis
// runs, falling back to every known category in alphabetical order.
func (m *Mapper) AnalysisCategories(cfg *Config) []string {
	if len(cfg.AnalysisCategories) > 0 {
		return cfg.AnalysisCategories
	}
	return m.categories
}
