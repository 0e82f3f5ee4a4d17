// Package billing resolves SMS billing metadata for international dialing
// prefixes. The rate table ships embedded in the binary; lookups use longest
// prefix match so Caribbean area codes inside the North American numbering
// plan win over the plain "1" country code.
package billing

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rates.yaml
var ratesYAML []byte

// Attributes carries per-destination sending rules.
type Attributes struct {
	Alpha   string `yaml:"alpha"`
	Comment string `yaml:"comment,omitempty"`
}

// Rate is the billing entry for one dialing prefix.
type Rate struct {
	Names         []string   `yaml:"names"`
	BillableUnits int        `yaml:"billable_units"`
	Attributes    Attributes `yaml:"attributes"`
}

var (
	rates    map[string]Rate
	prefixes []string // longest first, then lexicographic
)

func init() {
	if err := yaml.Unmarshal(ratesYAML, &rates); err != nil {
		panic(fmt.Sprintf("billing: embedded rates.yaml is invalid: %v", err))
	}
	prefixes = make([]string, 0, len(rates))
	for p := range rates {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
}

// MatchPrefix returns the longest known dialing prefix that digits starts
// with, or false when no known prefix matches.
func MatchPrefix(digits string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(digits, p) {
			return p, true
		}
	}
	return "", false
}

// Lookup returns the billing entry for an exact prefix.
func Lookup(prefix string) (Rate, bool) {
	r, ok := rates[prefix]
	return r, ok
}

// Units returns the billable unit count for an exact prefix, defaulting to 1
// for unknown prefixes.
func Units(prefix string) int {
	if r, ok := rates[prefix]; ok {
		return r.BillableUnits
	}
	return 1
}

// AlphaSenderAllowed reports whether the destination behind prefix accepts
// an alphanumeric sender ID.
func AlphaSenderAllowed(prefix string) bool {
	r, ok := rates[prefix]
	return ok && r.Attributes.Alpha != "NO"
}

// Prefixes returns every known dialing prefix, longest first.
func Prefixes() []string {
	out := make([]string, len(prefixes))
	copy(out, prefixes)
	return out
}
