package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10", "10", true},
		{" 1,250.50 ", "1250.5", true},
		{"0", "0", true},
		{"", "0", false},
		{"LS", "0", false},
		{"-3", "-3", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseQuantity(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestIsSectionHeaderRow(t *testing.T) {
	tests := []struct {
		name           string
		item, qty, uom string
		want           bool
	}{
		{"number only", "1", "", "", true},
		{"zero quantity", "1.2", "0", "", true},
		{"text quantity", "1.2", "LS", "", true},
		{"priced row", "1.1", "10", "m3", false},
		{"quantity without unit", "1.1", "10", "", false},
		{"unit without quantity", "1.1", "", "nos", false},
		{"no item number", "", "", "", false},
		{"blank item number", "   ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSectionHeaderRow(tt.item, tt.qty, tt.uom))
		})
	}
}

func TestGetParentSectionNumber(t *testing.T) {
	assert.Equal(t, "", GetParentSectionNumber("1"))
	assert.Equal(t, "", GetParentSectionNumber(""))
	assert.Equal(t, "1", GetParentSectionNumber("1.2"))
	assert.Equal(t, "1.2", GetParentSectionNumber("1.2.3"))
	assert.Equal(t, "E", GetParentSectionNumber("E-001"))
}

func TestFindBestSection(t *testing.T) {
	tests := []struct {
		name  string
		item  string
		known []string
		want  string
	}{
		{"full key known", "E-001", []string{"E.001", "E"}, "E.001"},
		{"parent known", "1.2.3", []string{"1", "1.2"}, "1.2"},
		{"only root known", "1.2.3", []string{"1"}, "1"},
		{"nothing known guesses parent", "1.2.3", nil, "1.2"},
		{"single segment", "5", nil, "5"},
		{"unparseable", "1..2", []string{"3"}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			known := make(map[string]bool)
			for _, k := range tt.known {
				known[k] = true
			}
			assert.Equal(t, tt.want, FindBestSection(tt.item, known))
		})
	}
}

func sectionNumbers(sections []DetectedSection, level int) []string {
	var out []string
	for _, s := range sections {
		if s.Level == level {
			out = append(out, s.SectionNumber)
		}
	}
	return out
}

func bySectionNumber(sections []DetectedSection) map[string]DetectedSection {
	out := make(map[string]DetectedSection, len(sections))
	for _, s := range sections {
		out[s.SectionNumber] = s
	}
	return out
}

func TestDetectSectionsFromRows_HeaderRows(t *testing.T) {
	rows := []RawRow{
		{ItemNumber: "1", Description: "Earthworks"},
		{ItemNumber: "1.1", Description: "Clearance"},
		{ItemNumber: "1.1.1", Description: "Clear site", Quantity: "100", UOM: "m2"},
		{ItemNumber: "1.2", Description: "Excavation"},
		{ItemNumber: "1.2.1", Description: "Dig trenches", Quantity: "50", UOM: "m3"},
		{ItemNumber: "2", Description: "Concrete"},
		{ItemNumber: "2.1", Description: "Blinding"},
		{ItemNumber: "2.1.1", Description: "Pour blinding", Quantity: "10", UOM: "m3"},
	}

	sections := DetectSectionsFromRows(rows)
	require.Len(t, sections, 5)
	assert.Equal(t, []string{"1", "2"}, sectionNumbers(sections, 0))
	assert.Equal(t, []string{"1.1", "1.2", "2.1"}, sectionNumbers(sections, 1))

	got := bySectionNumber(sections)
	assert.Equal(t, "Earthworks", got["1"].Title)
	assert.Equal(t, "", got["1"].ParentSectionNumber)
	assert.Equal(t, "1", got["1.2"].ParentSectionNumber)
	assert.Equal(t, "Blinding", got["2.1"].Title)
	assert.Equal(t, 1, got["1.1"].ItemCount)
	assert.Equal(t, 1, got["2.1"].ItemCount)
	assert.Equal(t, 0, got["1"].ItemCount)
	assert.Equal(t, 3, got["1.2"].FirstRowIndex)
	for _, s := range sections {
		assert.False(t, s.Synthesized, s.SectionNumber)
	}
}

func TestDetectSectionsFromRows_SynthesizesMissingSections(t *testing.T) {
	rows := []RawRow{
		{ItemNumber: "3.2.1", Description: "Brickwork", Quantity: "5", UOM: "m3"},
		{ItemNumber: "3.2.2", Description: "Plaster", Quantity: "20", UOM: "m2"},
	}

	sections := DetectSectionsFromRows(rows)
	require.Len(t, sections, 2)

	got := bySectionNumber(sections)
	assert.True(t, got["3"].Synthesized)
	assert.Equal(t, "Section 3", got["3"].Title)
	assert.True(t, got["3.2"].Synthesized)
	assert.Equal(t, "3", got["3.2"].ParentSectionNumber)
	assert.Equal(t, 2, got["3.2"].ItemCount)
}

func TestDetectSectionsFromRows_LateHeaderReplacesPlaceholder(t *testing.T) {
	rows := []RawRow{
		{ItemNumber: "4.1.2", Description: "Internal walls"},
		{ItemNumber: "4.1", Description: "Walls"},
	}

	got := bySectionNumber(DetectSectionsFromRows(rows))
	require.Contains(t, got, "4.1")
	assert.Equal(t, "Walls", got["4.1"].Title)
	assert.False(t, got["4.1"].Synthesized)
	assert.Equal(t, 0, got["4.1"].FirstRowIndex)
	assert.True(t, got["4"].Synthesized)
}

func TestDetectSectionsFromRows_ParentsAlwaysExist(t *testing.T) {
	rows := []RawRow{
		{ItemNumber: "1", Description: "General"},
		{ItemNumber: "1.1", Description: "Mobilisation", Quantity: "1", UOM: "LS"},
		{ItemNumber: "2.3.4.5", Description: "Deep item", Quantity: "2", UOM: "nos"},
		{ItemNumber: "E-001", Description: "Electrical", Quantity: "3", UOM: "nos"},
		{ItemNumber: "garbage #", Description: "Unparseable", Quantity: "1", UOM: "nos"},
	}

	sections := DetectSectionsFromRows(rows)
	got := bySectionNumber(sections)
	for _, s := range sections {
		if s.ParentSectionNumber == "" {
			assert.Equal(t, 0, s.Level, s.SectionNumber)
			continue
		}
		assert.Contains(t, got, s.ParentSectionNumber, "parent of %s", s.SectionNumber)
	}
	assert.Contains(t, got, "2.3.4")
	assert.Contains(t, got, "E")
}

func TestDetectSectionsFromRows_Empty(t *testing.T) {
	assert.Empty(t, DetectSectionsFromRows(nil))
	assert.Empty(t, DetectSectionsFromRows([]RawRow{{Description: "Notes"}}))
}

func TestSortSections(t *testing.T) {
	sections := []DetectedSection{
		{SectionNumber: "10", Level: 0},
		{SectionNumber: "1.10", Level: 1},
		{SectionNumber: "2", Level: 0},
		{SectionNumber: "1.9", Level: 1},
	}
	SortSections(sections)

	var got []string
	for _, s := range sections {
		got = append(got, s.SectionNumber)
	}
	assert.Equal(t, []string{"2", "10", "1.9", "1.10"}, got)
}
