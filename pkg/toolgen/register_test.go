package toolgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func testHandler(t *testing.T, backendURL string) server.ToolHandlerFunc {
	t.Helper()
	doc := mustParseDoc(t, petstoreSpec)
	ops, err := ExtractOperations(doc)
	require.NoError(t, err)

	var getPet Operation
	for _, op := range ops {
		if op.OperationID == "deletePet" {
			getPet = op
		}
	}
	require.NotEmpty(t, getPet.OperationID)

	desc := BuildDescriptor(getPet)
	schemaJSON, err := MarshalInputSchema(desc.Params, desc.Required)
	require.NoError(t, err)

	marshaler := NewMarshaler(nil)
	executor := NewExecutor(nil, backendURL, nil)
	return invocationHandler(desc, schemaJSON, marshaler, executor)
}

func TestInvocationHandlerSuccess(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("deleted"))
	}))
	defer backend.Close()

	handler := testHandler(t, backend.URL)
	result, err := handler(context.Background(), callRequest("deletePet", map[string]any{"petId": "1"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "deleted", resultText(t, result))
}

func TestInvocationHandlerAPIFailureIsTextResult(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such pet"))
	}))
	defer backend.Close()

	handler := testHandler(t, backend.URL)

	// The failure is surfaced as an "Error: " text result, never as a
	// protocol error.
	result, err := handler(context.Background(), callRequest("deletePet", map[string]any{"petId": "404"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "Error: ")
	assert.Contains(t, text, "404")
	assert.Contains(t, text, "no such pet")

	// The handler stays usable after a failed call.
	result, err = handler(context.Background(), callRequest("deletePet", map[string]any{"petId": "404"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestInvocationHandlerValidatesArguments(t *testing.T) {
	doc := mustParseDoc(t, `
openapi: 3.0.0
info:
  title: t
  version: "1"
paths:
  /pets:
    get:
      operationId: listPets
      parameters:
        - name: status
          in: query
          schema:
            type: string
            enum: [available, sold]
      responses:
        '200':
          description: ok
`)
	ops, err := ExtractOperations(doc)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	desc := BuildDescriptor(ops[0])
	schemaJSON, err := MarshalInputSchema(desc.Params, desc.Required)
	require.NoError(t, err)

	handler := invocationHandler(desc, schemaJSON, NewMarshaler(nil), NewExecutor(nil, "http://127.0.0.1:0", nil))

	result, err := handler(context.Background(), callRequest("listPets", map[string]any{"status": "pending"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Error: ")
}

func TestRegisterToolsAddsEveryOperation(t *testing.T) {
	doc := mustParseDoc(t, petstoreSpec)
	ops, err := ExtractOperations(doc)
	require.NoError(t, err)

	srv := server.NewMCPServer("petstore", "1.0.0", server.WithToolCapabilities(true))
	require.NoError(t, RegisterTools(srv, doc, ops, Options{}))
}

func TestNewServerRejectsEmptyDoc(t *testing.T) {
	_, err := NewServer("empty", "1.0.0", nil, Options{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}
