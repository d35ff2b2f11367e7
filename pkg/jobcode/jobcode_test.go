package jobcode

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDecompose(t *testing.T) {
	tests := []struct {
		job                   string
		typ, project, element string
	}{
		{"WELD_P100_X_E42", "WELD", "P100", "E42"},
		{"STANDALONE", "STANDALONE", "unassigned", "unknown"},
		{"CUT_P7", "CUT", "P7", "P7"},
		{"  SAW_P1_E9  ", "SAW", "P1", "E9"},
		{"", "", "unassigned", "unknown"},
		{"_P100_", "", "P100", ""},
	}

	for _, tt := range tests {
		got := Decompose(tt.job)
		if got.TypeTag != tt.typ || got.ProjectID != tt.project || got.ElementID != tt.element {
			t.Errorf("Decompose(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tt.job, got.TypeTag, got.ProjectID, got.ElementID, tt.typ, tt.project, tt.element)
		}
	}
}

func TestDecompose_CustomSeparatorAndSentinels(t *testing.T) {
	d := Decomposer{Separator: "-", Unassigned: "Overig", Unknown: "Onbekend"}

	got := d.Decompose("PAINT-P3-E1")
	if got.TypeTag != "PAINT" || got.ProjectID != "P3" || got.ElementID != "E1" {
		t.Errorf("got %+v", got)
	}

	got = d.Decompose("PAINT_P3_E1")
	if got.ProjectID != "Overig" || got.ElementID != "Onbekend" {
		t.Errorf("sentinels not applied: %+v", got)
	}
}

func TestDecompose_ZeroValueUsesDefaults(t *testing.T) {
	got := Decomposer{}.Decompose("A_B_C")
	if got.ProjectID != "B" || got.ElementID != "C" {
		t.Errorf("got %+v", got)
	}
}

func TestProperty_DecomposeIsTotal(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("type tag is the first segment", prop.ForAll(
		func(job string) bool {
			p := Decompose(job)
			return strings.HasPrefix(strings.TrimSpace(job), p.TypeTag) && p == Decompose(job)
		},
		gen.AnyString(),
	))

	properties.Property("element is last segment when a project exists", prop.ForAll(
		func(segs []string) bool {
			if len(segs) < 2 {
				return true
			}
			p := Decompose(strings.Join(segs, "_"))
			return p.ProjectID == segs[1] && p.ElementID == segs[len(segs)-1]
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
