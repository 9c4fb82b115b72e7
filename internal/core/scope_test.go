package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    Scope
		wantErr bool
	}{
		"false":             {in: "false", want: ScopeExternal},
		"external":          {in: "external", want: ScopeExternal},
		"test":              {in: "test", want: ScopeTest},
		"testclass":         {in: "testclass", want: ScopeTestClass},
		"testsuite":         {in: "testsuite", want: ScopeTestSuite},
		"mixed case":        {in: "TestClass", want: ScopeTestClass},
		"surrounding space": {in: " test ", want: ScopeTest},
		"unknown":           {in: "forever", want: ScopeTestSuite, wantErr: true},
		"empty":             {in: "", want: ScopeTestSuite, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseScope(tc.in)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScopeOrderingAndString(t *testing.T) {
	t.Parallel()

	assert.Less(t, ScopeExternal, ScopeTest)
	assert.Less(t, ScopeTest, ScopeTestClass)
	assert.Less(t, ScopeTestClass, ScopeTestSuite)

	for _, s := range []Scope{ScopeExternal, ScopeTest, ScopeTestClass, ScopeTestSuite} {
		assert.True(t, s.IsValid())
		parsed, err := ParseScope(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.False(t, Scope(42).IsValid())
	assert.Equal(t, "Scope(42)", Scope(42).String())
}

func TestSignalString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "class-started", SignalClassStarted.String())
	assert.Equal(t, "suite-finished", SignalSuiteFinished.String())
	assert.Equal(t, "Signal(99)", Signal(99).String())
}
