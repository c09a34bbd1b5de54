package toolgen

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseDoc(t *testing.T, spec string) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(spec))
	require.NoError(t, err)
	return doc
}

const petstoreSpec = `
openapi: 3.0.0
info:
  title: Petstore
  version: 1.0.0
paths:
  /pets:
    get:
      operationId: listPets
      summary: List all pets
      responses:
        '200':
          description: ok
    post:
      summary: Create a pet
      responses:
        '201':
          description: created
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        schema:
          type: string
    delete:
      operationId: deletePet
      responses:
        '204':
          description: deleted
`

func TestExtractOperations(t *testing.T) {
	doc := mustParseDoc(t, petstoreSpec)

	ops, err := ExtractOperations(doc)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	// Paths are sorted, verbs in fixed order within a path.
	assert.Equal(t, "listPets", ops[0].OperationID)
	assert.Equal(t, "GET", ops[0].Method)
	assert.Equal(t, "/pets", ops[0].Path)

	assert.Equal(t, "POST__pets", ops[1].OperationID)
	assert.Equal(t, "POST", ops[1].Method)

	assert.Equal(t, "deletePet", ops[2].OperationID)
	assert.Equal(t, "/pets/{petId}", ops[2].Path)
}

func TestExtractOperationsMissingPaths(t *testing.T) {
	_, err := ExtractOperations(&openapi3.T{})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestExtractOperationsNilDoc(t *testing.T) {
	_, err := ExtractOperations(nil)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestSynthesizeOperationID(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{"get", "/pets", "GET__pets"},
		{"POST", "/pets/{petId}", "POST__pets__petId_"},
		{"delete", "/v1/store-orders/{id}", "DELETE__v1_store_orders__id_"},
		{"put", "/", "PUT__"},
	}
	for _, tt := range tests {
		got := SynthesizeOperationID(tt.method, tt.path)
		assert.Equal(t, tt.want, got)

		// Deterministic: same inputs, same id.
		assert.Equal(t, got, SynthesizeOperationID(tt.method, tt.path))
	}
}

func TestExtractOperationsSkipsUnrecognizedEntries(t *testing.T) {
	doc := mustParseDoc(t, `
openapi: 3.0.0
info:
  title: t
  version: "1"
paths:
  /things:
    trace:
      operationId: traceThings
      responses:
        '200':
          description: ok
    get:
      operationId: getThings
      responses:
        '200':
          description: ok
`)

	ops, err := ExtractOperations(doc)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "getThings", ops[0].OperationID)
}
