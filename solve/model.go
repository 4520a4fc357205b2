package solve

import (
	"sort"
	"strings"

	"github.com/holiman/uint256"
)

// A Model is a satisfying assignment of free symbolic constants, as
// returned by Context.Check/CheckModel.
type Model map[string]*uint256.Int

// Valid reports whether m assigns only to ordinary symbolic constants,
// never to an uninterpreted function (name prefix "f_" or "evm_"), per
// spec.md §4.7 step 3 / §8 property 6.
func (m Model) Valid() bool {
	for name := range m {
		if strings.HasPrefix(name, "f_") || strings.HasPrefix(name, "evm_") {
			return false
		}
	}
	return true
}

// Select returns the subset of m whose names start with any of prefixes,
// sorted for deterministic reporting (spec.md §6: "the model restricted to
// variables whose name starts with p_").
func (m Model) Select(prefixes ...string) []NamedValue {
	var out []NamedValue
	for name, v := range m {
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				out = append(out, NamedValue{Name: name, Value: v})
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// A NamedValue pairs a symbol name with its model value, for reporting.
type NamedValue struct {
	Name  string
	Value *uint256.Int
}
