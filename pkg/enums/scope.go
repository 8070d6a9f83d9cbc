package enums

import "fmt"

// Scope is the visibility classifier of an asset relation.
type Scope string

const (
	ScopeGlobal  Scope = "Global"
	ScopeChannel Scope = "Channel"
)

var validScopes = []Scope{
	ScopeGlobal,
	ScopeChannel,
}

// String returns the literal string for the scope.
func (s Scope) String() string {
	return string(s)
}

// IsValid reports whether the scope is known.
func (s Scope) IsValid() bool {
	for _, candidate := range validScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseScope converts raw input into a Scope.
func ParseScope(value string) (Scope, error) {
	for _, candidate := range validScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scope %q", value)
}
