package toolgen

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaRef(s *openapi3.Schema) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: s}
}

func typed(kind string) *openapi3.Schema {
	return &openapi3.Schema{Type: &openapi3.Types{kind}}
}

func TestTranslateFragmentScalars(t *testing.T) {
	tests := []struct {
		name string
		in   *openapi3.SchemaRef
		want SchemaRule
	}{
		{"string", schemaRef(typed("string")), ScalarRule(ScalarString)},
		{"number", schemaRef(typed("number")), ScalarRule(ScalarNumber)},
		{"integer", schemaRef(typed("integer")), ScalarRule(ScalarInteger)},
		{"boolean", schemaRef(typed("boolean")), ScalarRule(ScalarBoolean)},
		{"nil fragment", nil, ScalarRule(ScalarAny)},
		{"unrecognized type", schemaRef(&openapi3.Schema{Type: &openapi3.Types{"file"}}), ScalarRule(ScalarAny)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateFragment(tt.in))
		})
	}
}

func TestTranslateFragmentDateTime(t *testing.T) {
	s := typed("string")
	s.Format = "date-time"

	rule := TranslateFragment(schemaRef(s))
	assert.Equal(t, RuleScalar, rule.Kind)
	assert.Equal(t, ScalarDateTime, rule.Scalar)
}

func TestTranslateFragmentEnum(t *testing.T) {
	s := typed("string")
	s.Enum = []any{"available", "sold"}

	rule := TranslateFragment(schemaRef(s))
	assert.Equal(t, RuleEnum, rule.Kind)
	assert.Equal(t, []any{"available", "sold"}, rule.Enum)
}

func TestTranslateFragmentArrays(t *testing.T) {
	scalarItems := typed("array")
	scalarItems.Items = schemaRef(typed("integer"))

	rule := TranslateFragment(schemaRef(scalarItems))
	require.Equal(t, RuleArray, rule.Kind)
	require.NotNil(t, rule.Elem)
	assert.Equal(t, ScalarInteger, rule.Elem.Scalar)

	// Object items degrade to an array of unconstrained values.
	objectItems := typed("array")
	objectItems.Items = schemaRef(typed("object"))

	rule = TranslateFragment(schemaRef(objectItems))
	require.Equal(t, RuleArray, rule.Kind)
	assert.Equal(t, ScalarAny, rule.Elem.Scalar)

	// Ref items likewise.
	refItems := typed("array")
	refItems.Items = &openapi3.SchemaRef{Ref: "#/components/schemas/Pet"}

	rule = TranslateFragment(schemaRef(refItems))
	require.Equal(t, RuleArray, rule.Kind)
	assert.Equal(t, ScalarAny, rule.Elem.Scalar)
}

func TestTranslateFragmentObjects(t *testing.T) {
	obj := typed("object")
	obj.Properties = openapi3.Schemas{
		"name": schemaRef(typed("string")),
		"tags": schemaRef(typed("object")),
	}

	rule := TranslateFragment(schemaRef(obj))
	require.Equal(t, RuleObject, rule.Kind)
	assert.Equal(t, ScalarString, rule.Fields["name"].Scalar)
	// One flattening level: the nested object degrades to permissive.
	assert.Equal(t, RulePermissive, rule.Fields["tags"].Kind)
}

func TestTranslateFragmentPermissive(t *testing.T) {
	// Object without properties.
	rule := TranslateFragment(schemaRef(typed("object")))
	assert.Equal(t, RulePermissive, rule.Kind)

	// $ref marker.
	rule = TranslateFragment(&openapi3.SchemaRef{Ref: "#/components/schemas/Pet"})
	assert.Equal(t, RulePermissive, rule.Kind)
}

func TestTranslateOperationParameters(t *testing.T) {
	op := Operation{
		Parameters: openapi3.Parameters{
			{Value: &openapi3.Parameter{Name: "petId", In: "path", Required: true, Schema: schemaRef(typed("string"))}},
			{Value: &openapi3.Parameter{Name: "limit", In: "query", Schema: schemaRef(typed("integer"))}},
		},
	}

	params, required := TranslateOperation(op)
	assert.Equal(t, ScalarString, params["petId"].Scalar)
	assert.Equal(t, ScalarInteger, params["limit"].Scalar)
	assert.Equal(t, []string{"petId"}, required)
}

func jsonBody(schema *openapi3.SchemaRef, bodyRequired bool) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: bodyRequired,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{Schema: schema},
			},
		},
	}
}

func TestTranslateOperationBodyMergesFlat(t *testing.T) {
	body := typed("object")
	body.Properties = openapi3.Schemas{
		"name": schemaRef(typed("string")),
		"tag":  schemaRef(typed("string")),
	}
	body.Required = []string{"name"}

	op := Operation{
		Parameters: openapi3.Parameters{
			// Same name as a body field: the body field wins.
			{Value: &openapi3.Parameter{Name: "name", In: "query", Schema: schemaRef(typed("integer"))}},
		},
		RequestBody: jsonBody(schemaRef(body), true),
	}

	params, required := TranslateOperation(op)
	assert.Equal(t, ScalarString, params["name"].Scalar)
	assert.Equal(t, ScalarString, params["tag"].Scalar)
	assert.Equal(t, []string{"name"}, required)
}

func TestTranslateOperationOpaqueBodies(t *testing.T) {
	// $ref body contributes a single permissive field.
	op := Operation{RequestBody: jsonBody(&openapi3.SchemaRef{Ref: "#/components/schemas/Pet"}, false)}
	params, _ := TranslateOperation(op)
	require.Contains(t, params, "body")
	assert.Equal(t, RulePermissive, params["body"].Kind)

	// Array body contributes a single array-typed field.
	arr := typed("array")
	arr.Items = schemaRef(typed("string"))
	op = Operation{RequestBody: jsonBody(schemaRef(arr), false)}
	params, _ = TranslateOperation(op)
	require.Contains(t, params, "body")
	assert.Equal(t, RuleArray, params["body"].Kind)
}

func TestTranslateOperationIgnoresNonJSONBody(t *testing.T) {
	op := Operation{
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Content: openapi3.Content{
					"text/plain": &openapi3.MediaType{Schema: schemaRef(typed("string"))},
				},
			},
		},
	}

	params, required := TranslateOperation(op)
	assert.Empty(t, params)
	assert.Empty(t, required)
}
