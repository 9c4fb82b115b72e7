package core

import (
	"fmt"
	"strings"
)

// Scope is the test lifecycle span a service must stay running for. Scopes
// are ordered by how long the instance lives.
type Scope int

const (
	// ScopeExternal services are never started or stopped; they are assumed
	// to be running already.
	ScopeExternal Scope = iota
	// ScopeTest services are started before each test and stopped after it.
	ScopeTest
	// ScopeTestClass services are started before the first test of a class
	// and stopped after its last.
	ScopeTestClass
	// ScopeTestSuite services are started at registration and stopped when
	// the suite finishes.
	ScopeTestSuite
)

// IsValid reports whether s is a recognized Scope value.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeExternal, ScopeTest, ScopeTestClass, ScopeTestSuite:
		return true
	default:
		return false
	}
}

// String returns the autostart property spelling of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeExternal:
		return "external"
	case ScopeTest:
		return "test"
	case ScopeTestClass:
		return "testclass"
	case ScopeTestSuite:
		return "testsuite"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ParseScope parses an autostart property value. "false" is an alias of
// "external". Matching is case-insensitive.
func ParseScope(v string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "external":
		return ScopeExternal, nil
	case "test":
		return ScopeTest, nil
	case "testclass":
		return ScopeTestClass, nil
	case "testsuite":
		return ScopeTestSuite, nil
	default:
		return ScopeTestSuite, fmt.Errorf("unknown scope %q", v)
	}
}
