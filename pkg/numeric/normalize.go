// Package numeric converts locale-ambiguous numeric tokens from MES exports
// into canonical floats.
//
// Exports written by Dutch and German installations use ',' as the decimal
// separator and '.' for thousands; others use the opposite convention. The
// default policy resolves tokens that carry both separators by position:
// the earlier separator groups thousands, the later one marks decimals.
// Tokens that repeat a single separator ("1.234.567") are ambiguous and are
// reported invalid unless a fixed locale policy is configured.
package numeric

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mesflow/mesflow/internal/model"
)

// Policy selects how decimal and thousands separators are interpreted.
type Policy int

const (
	// PolicyAuto applies the positional heuristic.
	PolicyAuto Policy = iota
	// PolicyEuropean reads '.' as thousands and ',' as decimal.
	PolicyEuropean
	// PolicyAmerican reads ',' as thousands and '.' as decimal.
	PolicyAmerican
)

func (p Policy) String() string {
	switch p {
	case PolicyAuto:
		return "auto"
	case PolicyEuropean:
		return "european"
	case PolicyAmerican:
		return "american"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PolicyAuto, nil
	case "european", "eu", "nl", "de":
		return PolicyEuropean, nil
	case "american", "us", "en":
		return PolicyAmerican, nil
	default:
		return PolicyAuto, fmt.Errorf("unknown numeric policy %q", s)
	}
}

// UnmarshalText lets a Policy be read straight from YAML.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// nullTokens are spreadsheet spellings of "no value".
var nullTokens = map[string]bool{
	"nan": true, "null": true, "none": true, "nil": true,
	"n/a": true, "na": true, "-": true, "#n/a": true,
	"inf": true, "+inf": true, "-inf": true, "infinity": true,
}

// Normalizer parses numeric tokens under a Policy. The zero value uses
// PolicyAuto.
type Normalizer struct {
	Policy Policy
}

// Parse returns the token's value, or model.Invalid. It never returns a
// zero in place of a failed parse.
func (n Normalizer) Parse(token string) model.Measure {
	s := strings.TrimSpace(token)
	if s == "" || nullTokens[strings.ToLower(s)] {
		return model.Invalid
	}

	canonical, ok := n.canonicalize(s)
	if !ok {
		return model.Invalid
	}

	v, err := strconv.ParseFloat(canonical, 64)
	if err != nil {
		return model.Invalid
	}
	return model.Some(v)
}

// Parse normalizes token with the default policy.
func Parse(token string) model.Measure {
	return Normalizer{}.Parse(token)
}

func (n Normalizer) canonicalize(s string) (string, bool) {
	if !plainNumeral(s) {
		return "", false
	}

	switch n.Policy {
	case PolicyEuropean:
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1), strings.Count(s, ",") <= 1
	case PolicyAmerican:
		return strings.ReplaceAll(s, ",", ""), true
	}

	dot := strings.IndexByte(s, '.')
	comma := strings.IndexByte(s, ',')

	switch {
	case dot >= 0 && comma >= 0:
		thousands, decimal := ".", ","
		if comma < dot {
			thousands, decimal = ",", "."
		}
		if strings.LastIndex(s, thousands) > strings.Index(s, decimal) {
			return "", false
		}
		s = strings.ReplaceAll(s, thousands, "")
		if strings.Count(s, decimal) != 1 {
			return "", false
		}
		return strings.Replace(s, decimal, ".", 1), true
	case comma >= 0:
		return strings.ReplaceAll(s, ",", "."), true
	default:
		return s, true
	}
}

// plainNumeral rejects tokens strconv would accept but an export never
// means as a measurement (hex floats, underscores, "Inf").
func plainNumeral(s string) bool {
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' || c == ',':
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case (c == 'e' || c == 'E') && digits > 0:
		default:
			return false
		}
	}
	return digits > 0
}
