package toolgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyPlan(method, path string) *RequestPlan {
	return &RequestPlan{
		Method: method,
		Path:   path,
		Query:  url.Values{},
		Header: http.Header{},
	}
}

func TestExecuteSuccessReturnsRawBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pets/42", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("verbose"))
		w.Write([]byte(`{"id":42,"name":"Rex"}`))
	}))
	defer backend.Close()

	e := NewExecutor(nil, backend.URL, nil)
	plan := emptyPlan("GET", "/pets/42")
	plan.Query.Set("verbose", "true")

	body, err := e.Execute(context.Background(), Operation{Method: "GET"}, plan)
	require.NoError(t, err)
	assert.Equal(t, `{"id":42,"name":"Rex"}`, body)
}

func TestExecuteNon2xxIsApiError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no such pet"}`))
	}))
	defer backend.Close()

	e := NewExecutor(nil, backend.URL, nil)

	_, err := e.Execute(context.Background(), Operation{Method: "GET"}, emptyPlan("GET", "/pets/999"))
	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, `{"message":"no such pet"}`, apiErr.Body)
	assert.Contains(t, apiErr.Error(), "404")
}

func TestExecuteUnreachableIsNetworkError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close() // nothing listening anymore

	e := NewExecutor(nil, backend.URL, nil)

	_, err := e.Execute(context.Background(), Operation{Method: "GET"}, emptyPlan("GET", "/pets"))
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestExecuteSendsHeadersAndBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	e := NewExecutor(nil, backend.URL, nil)
	plan := emptyPlan("POST", "/pets")
	plan.Body = []byte(`{"name":"Rex"}`)
	plan.Header.Set("Content-Type", "application/json")
	plan.Header.Set("Authorization", "Bearer tok")

	_, err := e.Execute(context.Background(), Operation{Method: "POST"}, plan)
	require.NoError(t, err)
}

func TestBaseURLResolution(t *testing.T) {
	docServers := openapi3.Servers{{URL: "https://doc.example.com"}}
	opServers := openapi3.Servers{{URL: "https://op.example.com"}}

	// Explicit override beats everything.
	e := NewExecutor(nil, "https://override.example.com", docServers)
	assert.Equal(t, "https://override.example.com", e.BaseURLFor(Operation{Servers: opServers}))

	// The operation's own server list beats the description's.
	e = NewExecutor(nil, "", docServers)
	assert.Equal(t, "https://op.example.com", e.BaseURLFor(Operation{Servers: opServers}))

	// The description's first server is the fallback.
	assert.Equal(t, "https://doc.example.com", e.BaseURLFor(Operation{}))

	// Nothing declared: empty.
	e = NewExecutor(nil, "", nil)
	assert.Equal(t, "", e.BaseURLFor(Operation{}))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://x.test/pets", joinURL("https://x.test", "/pets"))
	assert.Equal(t, "https://x.test/pets", joinURL("https://x.test/", "/pets"))
	assert.Equal(t, "https://x.test/pets", joinURL("https://x.test", "pets"))
	assert.Equal(t, "/pets", joinURL("", "/pets"))
	assert.Equal(t, "https://x.test", joinURL("https://x.test", ""))
}
