package toolgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleToSchema(t *testing.T) {
	tests := []struct {
		name string
		rule SchemaRule
		want map[string]any
	}{
		{"string", ScalarRule(ScalarString), map[string]any{"type": "string"}},
		{"datetime", ScalarRule(ScalarDateTime), map[string]any{"type": "string", "format": "date-time"}},
		{"integer", ScalarRule(ScalarInteger), map[string]any{"type": "integer"}},
		{"any", ScalarRule(ScalarAny), map[string]any{}},
		{"enum", EnumRule([]any{"a", "b"}), map[string]any{"type": "string", "enum": []any{"a", "b"}}},
		{
			"array of numbers",
			ArrayRule(ScalarRule(ScalarNumber)),
			map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
		},
		{
			"permissive",
			PermissiveRule(),
			map[string]any{"type": "object", "additionalProperties": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RuleToSchema(tt.rule))
		})
	}
}

func TestValidateArgumentsEnum(t *testing.T) {
	params := map[string]SchemaRule{
		"status": EnumRule([]any{"available", "sold"}),
	}
	schema, err := MarshalInputSchema(params, []string{"status"})
	require.NoError(t, err)

	assert.NoError(t, ValidateArguments(schema, map[string]any{"status": "available"}))
	assert.NoError(t, ValidateArguments(schema, map[string]any{"status": "sold"}))
	assert.Error(t, ValidateArguments(schema, map[string]any{"status": "pending"}))
	assert.Error(t, ValidateArguments(schema, nil), "missing required field")
}

func TestValidateArgumentsTypes(t *testing.T) {
	params := map[string]SchemaRule{
		"limit": ScalarRule(ScalarInteger),
		"tags":  ArrayRule(ScalarRule(ScalarString)),
	}
	schema, err := MarshalInputSchema(params, nil)
	require.NoError(t, err)

	assert.NoError(t, ValidateArguments(schema, map[string]any{"limit": 10}))
	assert.NoError(t, ValidateArguments(schema, map[string]any{"tags": []any{"a", "b"}}))
	assert.Error(t, ValidateArguments(schema, map[string]any{"limit": "ten"}))
	assert.Error(t, ValidateArguments(schema, map[string]any{"tags": "a,b"}))
}
