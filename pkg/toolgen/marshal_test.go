package toolgen

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolfront/openapi-bridge/pkg/auth"
)

func petByIDDescriptor() ToolDescriptor {
	return BuildDescriptor(Operation{
		OperationID: "getPet",
		Method:      "GET",
		Path:        "/pets/{petId}",
		Parameters: openapi3.Parameters{
			{Value: &openapi3.Parameter{Name: "petId", In: "path", Required: true, Schema: schemaRef(typed("string"))}},
			{Value: &openapi3.Parameter{Name: "verbose", In: "query", Schema: schemaRef(typed("boolean"))}},
			{Value: &openapi3.Parameter{Name: "X-Trace", In: "header", Schema: schemaRef(typed("string"))}},
		},
	})
}

func TestMarshalPathSubstitution(t *testing.T) {
	m := NewMarshaler(nil)
	desc := petByIDDescriptor()

	plan, err := m.Marshal(desc, map[string]any{"petId": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/pets/42", plan.Path)

	// Missing argument substitutes an empty string, never an error.
	plan, err = m.Marshal(desc, nil)
	require.NoError(t, err)
	assert.Equal(t, "/pets/", plan.Path)

	// Values are URL-encoded.
	plan, err = m.Marshal(desc, map[string]any{"petId": "a/b c"})
	require.NoError(t, err)
	assert.Equal(t, "/pets/a%2Fb%20c", plan.Path)
}

func TestMarshalQueryAndHeaders(t *testing.T) {
	m := NewMarshaler(nil)
	desc := petByIDDescriptor()

	plan, err := m.Marshal(desc, map[string]any{
		"petId":   "1",
		"verbose": true,
		"X-Trace": "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "true", plan.Query.Get("verbose"))
	assert.Equal(t, "abc", plan.Header.Get("X-Trace"))
}

func TestMarshalQueryAPIKeyWinsOverArgument(t *testing.T) {
	resolved := &auth.Resolved{
		Kind:       auth.SchemeAPIKey,
		QueryName:  "api_key",
		QueryValue: "abc",
		Headers:    http.Header{},
	}
	m := NewMarshaler(resolved)

	desc := BuildDescriptor(Operation{
		OperationID: "listPets",
		Method:      "GET",
		Path:        "/pets",
		Parameters: openapi3.Parameters{
			{Value: &openapi3.Parameter{Name: "api_key", In: "query", Schema: schemaRef(typed("string"))}},
		},
	})

	plan, err := m.Marshal(desc, map[string]any{"api_key": "spoofed"})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, plan.Query["api_key"])
}

func TestMarshalDefaultHeaders(t *testing.T) {
	resolved := &auth.Resolved{Headers: http.Header{}}
	resolved.Headers.Set("Authorization", "Bearer tok")
	m := NewMarshaler(resolved)

	plan, err := m.Marshal(petByIDDescriptor(), map[string]any{"petId": "1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", plan.Header.Get("Authorization"))
}

func createPetDescriptor(bodyRequired bool) ToolDescriptor {
	body := typed("object")
	body.Properties = openapi3.Schemas{
		"name": schemaRef(typed("string")),
		"tag":  schemaRef(typed("string")),
	}
	body.Required = []string{"name"}

	return BuildDescriptor(Operation{
		OperationID: "createPet",
		Method:      "POST",
		Path:        "/pets",
		RequestBody: jsonBody(schemaRef(body), bodyRequired),
	})
}

func TestMarshalBodySuppliedFieldsOnly(t *testing.T) {
	m := NewMarshaler(nil)

	plan, err := m.Marshal(createPetDescriptor(true), map[string]any{"name": "Rex"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Rex"}`, string(plan.Body))
	assert.Equal(t, "application/json", plan.ContentType)
	assert.Equal(t, "application/json", plan.Header.Get("Content-Type"))
}

func TestMarshalBodyNestedGrouping(t *testing.T) {
	m := NewMarshaler(nil)

	// Callers may group body fields under a "body" key.
	plan, err := m.Marshal(createPetDescriptor(true), map[string]any{
		"body": map[string]any{"name": "Rex", "tag": "dog"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Rex","tag":"dog"}`, string(plan.Body))
}

func TestMarshalArrayBodyBypassesFieldAssembly(t *testing.T) {
	arr := typed("array")
	arr.Items = schemaRef(typed("string"))
	desc := BuildDescriptor(Operation{
		OperationID: "bulk",
		Method:      "POST",
		Path:        "/pets:bulk",
		RequestBody: jsonBody(schemaRef(arr), true),
	})

	m := NewMarshaler(nil)
	plan, err := m.Marshal(desc, map[string]any{"body": []any{"a", "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(plan.Body))
}

func TestMarshalMultipartBody(t *testing.T) {
	form := typed("object")
	form.Properties = openapi3.Schemas{
		"file": schemaRef(typed("string")),
		"note": schemaRef(typed("string")),
	}
	desc := BuildDescriptor(Operation{
		OperationID: "upload",
		Method:      "POST",
		Path:        "/upload",
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Content: openapi3.Content{
					"multipart/form-data": &openapi3.MediaType{Schema: schemaRef(form)},
				},
			},
		},
	})

	m := NewMarshaler(nil)
	plan, err := m.Marshal(desc, map[string]any{"file": "data", "note": "hello"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plan.ContentType, "multipart/form-data; boundary="))
	assert.Contains(t, string(plan.Body), `name="file"`)
	assert.Contains(t, string(plan.Body), "hello")
}

func TestRecoverArray(t *testing.T) {
	// JSON array literal parses as JSON.
	got := RecoverArray(`["a", "b"]`)
	assert.Equal(t, []any{"a", "b"}, got)

	// Comma-joined strings split and trim.
	got = RecoverArray("a, b ,c")
	assert.Equal(t, []any{"a", "b", "c"}, got)

	// A malformed literal degrades to comma-splitting, not an error.
	got = RecoverArray(`["a", "b"`)
	assert.Equal(t, []any{`["a"`, `"b"`}, got)

	// Plain string without commas wraps as one element.
	got = RecoverArray("solo")
	assert.Equal(t, []any{"solo"}, got)

	// Non-string scalars wrap as one element.
	got = RecoverArray(42)
	assert.Equal(t, []any{42}, got)

	// Arrays pass through.
	got = RecoverArray([]any{1, 2})
	assert.Equal(t, []any{1, 2}, got)
}

func TestMarshalRecoversStringArrayField(t *testing.T) {
	body := typed("object")
	tags := typed("array")
	tags.Items = schemaRef(typed("string"))
	body.Properties = openapi3.Schemas{"tags": schemaRef(tags)}

	desc := BuildDescriptor(Operation{
		OperationID: "tagPet",
		Method:      "POST",
		Path:        "/tags",
		RequestBody: jsonBody(schemaRef(body), true),
	})

	m := NewMarshaler(nil)
	plan, err := m.Marshal(desc, map[string]any{"tags": "small, fluffy"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(plan.Body, &decoded))
	assert.Equal(t, []any{"small", "fluffy"}, decoded["tags"])
}
