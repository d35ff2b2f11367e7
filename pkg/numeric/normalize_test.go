package numeric

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParse_Auto(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"1.234,56", 1234.56, true},
		{"12,5", 12.5, true},
		{"1234.56", 1234.56, true},
		{"abc", 0, false},
		{"1,234.56", 1234.56, true},
		{"1.234.567,8", 1234567.8, true},
		{"  42 ", 42, true},
		{"0", 0, true},
		{"-3,5", -3.5, true},
		{"", 0, false},
		{"NaN", 0, false},
		{"n/a", 0, false},
		{"Inf", 0, false},
		{"0x1p-2", 0, false},
		{"1_000", 0, false},
		{"1.234.567", 0, false},
		{"1,2,3", 0, false},
		{"1.234,56.7", 0, false},
		{"1e3", 1000, true},
	}

	for _, tt := range tests {
		got := Parse(tt.in)
		if got.Valid != tt.valid {
			t.Errorf("Parse(%q).Valid = %v, want %v", tt.in, got.Valid, tt.valid)
			continue
		}
		if tt.valid && math.Abs(got.Float64-tt.want) > 1e-9 {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got.Float64, tt.want)
		}
	}
}

func TestParse_FixedPolicies(t *testing.T) {
	tests := []struct {
		policy Policy
		in     string
		want   float64
		valid  bool
	}{
		{PolicyEuropean, "1.234.567", 1234567, true},
		{PolicyEuropean, "1.234,5", 1234.5, true},
		{PolicyEuropean, "1,2,3", 0, false},
		{PolicyAmerican, "1,234,567", 1234567, true},
		{PolicyAmerican, "1,234.5", 1234.5, true},
		{PolicyAmerican, "12.5", 12.5, true},
	}

	for _, tt := range tests {
		got := Normalizer{Policy: tt.policy}.Parse(tt.in)
		if got.Valid != tt.valid || (tt.valid && math.Abs(got.Float64-tt.want) > 1e-9) {
			t.Errorf("%s Parse(%q) = %+v, want %v (valid=%v)", tt.policy, tt.in, got, tt.want, tt.valid)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyAuto, false},
		{"AUTO", PolicyAuto, false},
		{"european", PolicyEuropean, false},
		{"nl", PolicyEuropean, false},
		{"us", PolicyAmerican, false},
		{"klingon", PolicyAuto, true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestProperty_LocaleRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Both renderings of the same cent amount parse to the same value.
	properties.Property("european and american renderings agree", prop.ForAll(
		func(cents int64) bool {
			whole := cents / 100
			frac := cents % 100
			american := fmt.Sprintf("%s.%02d", group(whole, ","), frac)
			european := fmt.Sprintf("%s,%02d", group(whole, "."), frac)

			a, e := Parse(american), Parse(european)
			want := float64(cents) / 100
			return a.Valid && e.Valid &&
				math.Abs(a.Float64-want) < 1e-6 &&
				math.Abs(e.Float64-want) < 1e-6
		},
		gen.Int64Range(100000, 1000000000),
	))

	properties.Property("parsed values are always finite", prop.ForAll(
		func(s string) bool {
			m := Parse(s)
			return !m.Valid || (!math.IsNaN(m.Float64) && !math.IsInf(m.Float64, 0))
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// group renders n with sep every three digits.
func group(n int64, sep string) string {
	s := fmt.Sprintf("%d", n)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, sep)
}
