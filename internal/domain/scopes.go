package domain

import (
	"sort"
	"strings"
)

// Scopes is a set of Shopify access scopes.
// Write scopes imply their read counterparts, so "write_products" and
// "read_products,write_products" are the same set.
type Scopes struct {
	compressed map[string]struct{}
}

// ParseScopes builds a scope set from a comma separated list
func ParseScopes(raw string) Scopes {
	return NewScopes(strings.Split(raw, ","))
}

// NewScopes builds a scope set from individual scope names
func NewScopes(scopes []string) Scopes {
	all := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		all[scope] = struct{}{}
	}

	compressed := make(map[string]struct{}, len(all))
	for scope := range all {
		if implied, ok := impliedBy(scope); ok {
			if _, exists := all[implied]; exists {
				continue
			}
		}
		compressed[scope] = struct{}{}
	}
	return Scopes{compressed: compressed}
}

// impliedBy returns the write scope that makes a read scope redundant
func impliedBy(scope string) (string, bool) {
	switch {
	case strings.HasPrefix(scope, "unauthenticated_read_"):
		return "unauthenticated_write_" + strings.TrimPrefix(scope, "unauthenticated_read_"), true
	case strings.HasPrefix(scope, "read_"):
		return "write_" + strings.TrimPrefix(scope, "read_"), true
	}
	return "", false
}

// Equal reports whether both sets grant exactly the same access
func (s Scopes) Equal(other Scopes) bool {
	if len(s.compressed) != len(other.compressed) {
		return false
	}
	for scope := range s.compressed {
		if _, ok := other.compressed[scope]; !ok {
			return false
		}
	}
	return true
}

// String returns the sorted, comma separated compressed set
func (s Scopes) String() string {
	list := make([]string, 0, len(s.compressed))
	for scope := range s.compressed {
		list = append(list, scope)
	}
	sort.Strings(list)
	return strings.Join(list, ",")
}
