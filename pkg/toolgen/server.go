package toolgen

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/server"
	"github.com/phuslu/log"

	"github.com/toolfront/openapi-bridge/pkg/auth"
	"github.com/toolfront/openapi-bridge/pkg/models"
)

// NewServer creates an MCP server and registers every operation of the
// description as a tool. Equivalent to extracting the operations and
// calling NewServerWithOps.
//
// Example:
//
//	doc, _ := loader.New().Load(ctx, "petstore.yaml")
//	srv, _ := toolgen.NewServer("petstore", doc.Info.Version, doc, toolgen.Options{})
//	toolgen.ServeStdio(srv)
func NewServer(name, version string, doc *openapi3.T, opts Options) (*server.MCPServer, error) {
	ops, err := ExtractOperations(doc)
	if err != nil {
		return nil, err
	}
	return NewServerWithOps(name, version, doc, ops, opts)
}

// NewServerWithOps creates an MCP server from an already-extracted
// operation list.
func NewServerWithOps(name, version string, doc *openapi3.T, ops []Operation, opts Options) (*server.MCPServer, error) {
	srv := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	if err := RegisterTools(srv, doc, ops, opts); err != nil {
		return nil, err
	}
	log.Info().Str("server", name).Int("tools", len(ops)).Msg("registered operations")
	return srv, nil
}

// NewServerWithSpec creates an MCP server for a stored spec row. The
// row's token, when present and no explicit credential was resolved,
// becomes the startup credential.
func NewServerWithSpec(name, version string, doc *openapi3.T, row *models.APISpec, opts Options) (*server.MCPServer, error) {
	if opts.Resolved == nil {
		credential := ""
		if row != nil && row.APIKeyToken != nil {
			credential = *row.APIKeyToken
		}
		opts.Resolved = auth.Resolve(doc, credential, nil)
	}
	return NewServer(name, version, doc, opts)
}

// ServeStdio runs the server over stdin/stdout until the stream closes.
// Logging stays on stderr so the protocol stream is never polluted.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}

// ServeStreamableHTTP serves the MCP server over streamable HTTP at
// addr, mounted under basePath (default "/mcp"). The server is
// stateless: any client request can reach any replica.
func ServeStreamableHTTP(srv *server.MCPServer, addr, basePath string) error {
	httpServer := server.NewStreamableHTTPServer(srv,
		server.WithEndpointPath(defaultBasePath(basePath)),
		server.WithStateLess(true),
	)
	return httpServer.Start(addr)
}

// HandlerForStreamableHTTP returns an http.Handler serving the MCP
// server under basePath, for multi-mount HTTP servers hosting several
// descriptions side by side. ctxFn, when non-nil, enriches every
// request context before dispatch; per-call auth rides on it.
func HandlerForStreamableHTTP(srv *server.MCPServer, basePath string, ctxFn server.HTTPContextFunc) http.Handler {
	options := []server.StreamableHTTPOption{
		server.WithEndpointPath(defaultBasePath(basePath)),
		server.WithStateLess(true),
	}
	if ctxFn != nil {
		options = append(options, server.WithHTTPContextFunc(ctxFn))
	}
	return server.NewStreamableHTTPServer(srv, options...)
}

// GetStreamableHTTPURL returns the URL of the streamable HTTP endpoint.
//
//	toolgen.GetStreamableHTTPURL(":8080", "/petstore")
//	// "http://localhost:8080/petstore"
func GetStreamableHTTPURL(addr, basePath string) string {
	return fmt.Sprintf("http://%s%s", normalizeAddrToHost(addr), defaultBasePath(basePath))
}

func defaultBasePath(basePath string) string {
	if basePath == "" {
		return "/mcp"
	}
	if !strings.HasPrefix(basePath, "/") {
		return "/" + basePath
	}
	return basePath
}

// normalizeAddrToHost converts a net/http listen address to a host:port
// usable in URLs: ":8080" becomes "localhost:8080".
func normalizeAddrToHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "localhost"
	}
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
