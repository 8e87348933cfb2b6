package gateway

import "strings"

// Rule marks a path prefix as reachable without a token. An empty Methods
// list matches every method.
type Rule struct {
	Methods []string
	Prefix  string
}

func (r Rule) matches(method, path string) bool {
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// OpenPolicy is the allowlist of endpoints the edge serves without
// authentication. Everything not listed requires a verified bearer token.
type OpenPolicy struct {
	rules []Rule
}

func NewOpenPolicy(rules ...Rule) *OpenPolicy {
	return &OpenPolicy{rules: rules}
}

// DefaultOpenPolicy opens the credential endpoints and read-only browsing of
// restaurants and menus. Writes to those prefixes still need a token.
func DefaultOpenPolicy() *OpenPolicy {
	return NewOpenPolicy(
		Rule{Prefix: "/api/auth/"},
		Rule{Methods: []string{"GET"}, Prefix: "/api/restaurants"},
		Rule{Methods: []string{"GET"}, Prefix: "/api/menu"},
	)
}

func (p *OpenPolicy) IsOpen(method, path string) bool {
	for _, r := range p.rules {
		if r.matches(method, path) {
			return true
		}
	}
	return false
}
