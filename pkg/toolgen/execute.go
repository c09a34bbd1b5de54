package toolgen

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/toolfront/openapi-bridge/pkg/memory"
)

// Executor issues marshaled requests and classifies the outcome. The
// base URL override and the description's server list are fixed at
// construction; calls share nothing else, so concurrent invocations are
// safe on one Executor.
type Executor struct {
	client     *http.Client
	baseURL    string
	docServers openapi3.Servers
	reader     *memory.CappedReader
}

// NewExecutor builds an executor. baseURL, when non-empty, overrides
// every server declared by the description; otherwise an operation's own
// server list wins over the description's, and the first entry of
// whichever list applies is used.
func NewExecutor(client *http.Client, baseURL string, docServers openapi3.Servers) *Executor {
	if client == nil {
		client = &http.Client{}
	}
	return &Executor{
		client:     client,
		baseURL:    baseURL,
		docServers: docServers,
		reader:     memory.NewCappedReader(0),
	}
}

// BaseURLFor resolves the base URL for one operation.
func (e *Executor) BaseURLFor(op Operation) string {
	if e.baseURL != "" {
		return e.baseURL
	}
	if len(op.Servers) > 0 && op.Servers[0] != nil && op.Servers[0].URL != "" {
		return op.Servers[0].URL
	}
	if len(e.docServers) > 0 && e.docServers[0] != nil {
		return e.docServers[0].URL
	}
	return ""
}

// Execute performs the planned call. Non-2xx responses become ApiError,
// calls that produce no response become NetworkError, and any other
// transport failure becomes TransportError. On success the raw response
// body is returned unmodified; responses are never schema-validated.
func (e *Executor) Execute(ctx context.Context, op Operation, plan *RequestPlan) (string, error) {
	target := joinURL(e.BaseURLFor(op), plan.Path)
	if encoded := plan.Query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var body io.Reader
	if plan.Body != nil {
		body = bytes.NewReader(plan.Body)
	}
	req, err := http.NewRequestWithContext(ctx, plan.Method, target, body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	for key, values := range plan.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := e.reader.ReadAll(ctx, resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ApiError{Status: resp.StatusCode, Body: string(data)}
	}
	return string(data), nil
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	base = strings.TrimSuffix(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
