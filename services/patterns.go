package services

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PatternKind tags what a row pattern recognises.
type PatternKind string

const (
	PatternBillHeader  PatternKind = "bill_header"
	PatternBillTotal   PatternKind = "bill_total"
	PatternSubItemCode PatternKind = "sub_item_code"
)

// PatternField names the row cell a pattern is matched against.
type PatternField string

const (
	FieldItemNumber  PatternField = "item_number"
	FieldDescription PatternField = "description"
)

// Confidence tiers, highest first.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RowPattern is one entry of the classifier's pattern table.
type RowPattern struct {
	Name       string
	Kind       PatternKind
	Fields     []PatternField
	Confidence Confidence
	Re         *regexp.Regexp
}

// Match reports whether any of the pattern's fields matches the row.
func (p RowPattern) Match(row RawRow) bool {
	for _, f := range p.Fields {
		var v string
		switch f {
		case FieldItemNumber:
			v = row.ItemNumber
		case FieldDescription:
			v = row.Description
		}
		if v != "" && p.Re.MatchString(v) {
			return true
		}
	}
	return false
}

// PatternSet is an ordered pattern table. Earlier entries win.
type PatternSet []RowPattern

// DefaultPatterns returns the built-in table.
func DefaultPatterns() PatternSet {
	return PatternSet{
		{
			Name:       "bill-no-header",
			Kind:       PatternBillHeader,
			Fields:     []PatternField{FieldItemNumber, FieldDescription},
			Confidence: ConfidenceHigh,
			Re:         regexp.MustCompile(`(?i)^\s*BILL\s+NO\.?\s*\d+`),
		},
		{
			Name:       "total-bill-no",
			Kind:       PatternBillTotal,
			Fields:     []PatternField{FieldDescription},
			Confidence: ConfidenceHigh,
			Re:         regexp.MustCompile(`(?i)^\s*Total\s+Bill\s+No\.?\s*\d+`),
		},
		{
			Name:       "single-letter",
			Kind:       PatternSubItemCode,
			Fields:     []PatternField{FieldItemNumber},
			Confidence: ConfidenceHigh,
			Re:         regexp.MustCompile(`^[A-Za-z]$`),
		},
		{
			Name:       "short-code",
			Kind:       PatternSubItemCode,
			Fields:     []PatternField{FieldItemNumber},
			Confidence: ConfidenceMedium,
			Re:         regexp.MustCompile(`^[A-Za-z]{1,4}-?\d{1,3}$`),
		},
	}
}

// Of returns the patterns of one kind, in table order.
func (ps PatternSet) Of(kind PatternKind) PatternSet {
	var out PatternSet
	for _, p := range ps {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// MatchRow returns the first pattern of kind that matches the row.
func (ps PatternSet) MatchRow(kind PatternKind, row RawRow) (RowPattern, bool) {
	for _, p := range ps {
		if p.Kind == kind && p.Match(row) {
			return p, true
		}
	}
	return RowPattern{}, false
}

type patternFileEntry struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	Fields     []string `yaml:"fields"`
	Confidence string   `yaml:"confidence"`
	Regex      string   `yaml:"regex"`
}

type patternFile struct {
	Patterns []patternFileEntry `yaml:"patterns"`
}

// ParsePatterns decodes a YAML pattern table:
//
//	patterns:
//	  - name: schedule-header
//	    kind: bill_header
//	    fields: [description]
//	    confidence: medium
//	    regex: '(?i)^\s*SCHEDULE\s+\d+'
func ParsePatterns(data []byte) (PatternSet, error) {
	var pf patternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("decode pattern file: %w", err)
	}

	out := make(PatternSet, 0, len(pf.Patterns))
	for i, e := range pf.Patterns {
		kind := PatternKind(e.Kind)
		switch kind {
		case PatternBillHeader, PatternBillTotal, PatternSubItemCode:
		default:
			return nil, fmt.Errorf("pattern %d (%s): unknown kind %q", i, e.Name, e.Kind)
		}

		re, err := regexp.Compile(e.Regex)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (%s): %w", i, e.Name, err)
		}

		fields := make([]PatternField, 0, len(e.Fields))
		for _, f := range e.Fields {
			switch PatternField(f) {
			case FieldItemNumber, FieldDescription:
				fields = append(fields, PatternField(f))
			default:
				return nil, fmt.Errorf("pattern %d (%s): unknown field %q", i, e.Name, f)
			}
		}
		if len(fields) == 0 {
			fields = []PatternField{FieldItemNumber}
		}

		conf := Confidence(e.Confidence)
		if conf == "" {
			conf = ConfidenceMedium
		}

		out = append(out, RowPattern{
			Name:       e.Name,
			Kind:       kind,
			Fields:     fields,
			Confidence: conf,
			Re:         re,
		})
	}
	return out, nil
}

// LoadPatternFile returns DefaultPatterns extended with the patterns declared
// in a YAML file. An empty path yields the defaults.
func LoadPatternFile(path string) (PatternSet, error) {
	patterns := DefaultPatterns()
	if path == "" {
		return patterns, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	extra, err := ParsePatterns(data)
	if err != nil {
		return nil, err
	}
	return append(patterns, extra...), nil
}
