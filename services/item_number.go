// Package services holds the BOQ structural inference engine, the bid roll-up
// aggregator and the import/export plumbing around them.
package services

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// ParsedItemNumber is the normalized, hierarchical form of a raw item-number token.
type ParsedItemNumber struct {
	Success         bool     `json:"success"`
	Error           string   `json:"error,omitempty"`
	Original        string   `json:"original"`
	NormalizedValue string   `json:"normalized_value"`
	Parts           []string `json:"parts"`
	Level           int      `json:"level"`
	SectionNumber   string   `json:"section_number"`
	IsSectionHeader bool     `json:"is_section_header"`
}

const (
	errEmptyItemNumber   = "item number is empty"
	errInvalidItemFormat = "item number does not match expected format"
)

// itemNumberGrammar accepts alphanumeric segments separated by '.', '-' or '/'.
// Letters and digits may mix inside a segment (E001, 2A).
var itemNumberGrammar = regexp.MustCompile(`^[A-Za-z0-9]+(?:[./-][A-Za-z0-9]+)*$`)

var itemNumberNormalizer = strings.NewReplacer(" ", "", "\t", "", ",", ".", "_", ".")

// ParseItemNumber parses a raw item-number token. It never fails hard: a token
// that cannot be parsed comes back with Success=false and an Error message.
func ParseItemNumber(token string) ParsedItemNumber {
	result := ParsedItemNumber{Original: token}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		result.Error = errEmptyItemNumber
		return result
	}

	normalized := itemNumberNormalizer.Replace(trimmed)
	result.NormalizedValue = normalized

	if !itemNumberGrammar.MatchString(normalized) {
		result.Error = errInvalidItemFormat
		return result
	}

	parts := splitItemNumber(normalized)
	result.Success = true
	result.Parts = parts
	result.Level = len(parts)
	result.IsSectionHeader = len(parts) == 1
	if len(parts) == 1 {
		result.SectionNumber = parts[0]
	} else {
		result.SectionNumber = strings.Join(parts[:len(parts)-1], ".")
	}
	return result
}

// Key returns the canonical dot-joined form of the parsed parts, or "" when
// parsing failed.
func (p ParsedItemNumber) Key() string {
	if !p.Success {
		return ""
	}
	return strings.Join(p.Parts, ".")
}

func isItemNumberSeparator(r rune) bool {
	return r == '.' || r == '-' || r == '/'
}

// splitItemNumber splits on any of the three separators, dropping empty segments.
func splitItemNumber(s string) []string {
	return strings.FieldsFunc(s, isItemNumberSeparator)
}

// normalizeSeparators rewrites '-' and '/' to '.'.
func normalizeSeparators(s string) string {
	return strings.NewReplacer("-", ".", "/", ".").Replace(s)
}

var segmentFolder = cases.Fold()

// CompareSectionNumbers orders section numbers naturally: dot-separated
// segments compare numerically when both are integers, otherwise
// lexicographically ignoring case. When one number is a prefix of the other
// the shorter sorts first. It returns -1, 0 or 1.
func CompareSectionNumbers(a, b string) int {
	as := splitItemNumber(a)
	bs := splitItemNumber(b)

	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

func compareSegment(a, b string) int {
	an, aErr := strconv.ParseInt(a, 10, 64)
	bn, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	return strings.Compare(segmentFolder.String(a), segmentFolder.String(b))
}
