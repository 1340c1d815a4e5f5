package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateBool(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name       string
		expression string
		env        map[string]interface{}
		expected   bool
		expectErr  bool
	}{
		{
			name:       "Numeric Comparison",
			expression: "qty >= 0",
			env:        map[string]interface{}{"qty": 5.0},
			expected:   true,
		},
		{
			name:       "Failing Comparison",
			expression: "qty >= 0",
			env:        map[string]interface{}{"qty": -1.0},
			expected:   false,
		},
		{
			name:       "String Function",
			expression: `LEN(name) > 2`,
			env:        map[string]interface{}{"name": "Widget"},
			expected:   true,
		},
		{
			name:       "Combined Condition",
			expression: `price > 0 && UPPER(status) == "ACTIVE"`,
			env:        map[string]interface{}{"price": 10.0, "status": "active"},
			expected:   true,
		},
		{
			name:       "Non Boolean Result",
			expression: "price * 2",
			env:        map[string]interface{}{"price": 10.0},
			expectErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.EvaluateBool(tt.expression, tt.env)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCheck(t *testing.T) {
	engine := NewEngine()

	assert.NoError(t, engine.Check("qty >= 0 && price > 0"))
	assert.Error(t, engine.Check("qty >= &&"))
}

func TestProgramCacheSurvivesInvalidation(t *testing.T) {
	engine := NewEngine()
	env := map[string]interface{}{"qty": 1.0}

	result, err := engine.EvaluateBool("qty > 0", env)
	require.NoError(t, err)
	assert.True(t, result)

	engine.InvalidateCache()

	result, err = engine.EvaluateBool("qty > 0", env)
	require.NoError(t, err)
	assert.True(t, result)
}
