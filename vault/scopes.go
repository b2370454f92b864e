package vault

import (
	"sort"
	"strings"
)

// ScopeSet is a set of granted OAuth scopes.
type ScopeSet map[string]struct{}

// NewScopeSet builds a set from individual scope names. Blank names are dropped.
func NewScopeSet(scopes ...string) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

// ParseScopes parses a space-delimited scope string (RFC 6749 section 3.3).
func ParseScopes(raw string) ScopeSet {
	return NewScopeSet(strings.Fields(raw)...)
}

// Has reports whether scope is in the set.
func (s ScopeSet) Has(scope string) bool {
	_, ok := s[scope]
	return ok
}

// Missing returns the members of required that s does not contain, sorted.
// An empty result means s is a superset of required.
func (s ScopeSet) Missing(required ScopeSet) []string {
	var missing []string
	for scope := range required {
		if !s.Has(scope) {
			missing = append(missing, scope)
		}
	}
	sort.Strings(missing)
	return missing
}

// Slice returns the scopes sorted.
func (s ScopeSet) Slice() []string {
	out := make([]string, 0, len(s))
	for scope := range s {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

// String joins the sorted scopes with single spaces. This is the stored form.
func (s ScopeSet) String() string {
	return strings.Join(s.Slice(), " ")
}
