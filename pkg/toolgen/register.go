package toolgen

import (
	"context"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/phuslu/log"

	"github.com/toolfront/openapi-bridge/pkg/auth"
)

// Options is the immutable configuration threaded into registration:
// command-line overrides plus the authentication placement resolved at
// startup. The zero value registers tools with no overrides, no
// credential, and a default per-call-auth HTTP client.
type Options struct {
	// BaseURL overrides every server URL the description declares.
	BaseURL string
	// Resolved is the startup authentication context.
	Resolved *auth.Resolved
	// Client issues the HTTP calls. Nil gets a default client whose
	// transport applies per-call auth from the request context.
	Client *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{
		Transport: auth.NewSecureRoundTripper(nil, auth.NewProvider()),
	}
}

// RegisterTools builds a descriptor for every operation and registers
// each one as an invocable tool. Registering a duplicate name replaces
// the earlier tool; colliding operation ids are last-write-wins.
func RegisterTools(srv *server.MCPServer, doc *openapi3.T, ops []Operation, opts Options) error {
	marshaler := NewMarshaler(opts.Resolved)
	var docServers openapi3.Servers
	if doc != nil {
		docServers = doc.Servers
	}
	executor := NewExecutor(opts.httpClient(), opts.BaseURL, docServers)

	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		desc := BuildDescriptor(op)
		schemaJSON, err := MarshalInputSchema(desc.Params, desc.Required)
		if err != nil {
			return err
		}
		if seen[desc.Name] {
			log.Debug().Str("tool", desc.Name).Msg("duplicate operation id, last registration wins")
		}
		seen[desc.Name] = true

		tool := mcp.NewToolWithRawSchema(desc.Name, desc.Description, schemaJSON)
		srv.AddTool(tool, invocationHandler(desc, schemaJSON, marshaler, executor))
	}
	return nil
}

// invocationHandler wraps one descriptor as a tool handler. Every
// failure is converted into an "Error: "-prefixed text result at this
// boundary; a failing call never surfaces an error to the protocol
// layer, so one bad call cannot take the server down.
func invocationHandler(desc ToolDescriptor, schemaJSON []byte, marshaler *Marshaler, executor *Executor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if err := ValidateArguments(schemaJSON, args); err != nil {
			return errorResult(err), nil
		}
		plan, err := marshaler.Marshal(desc, args)
		if err != nil {
			return errorResult(err), nil
		}
		body, err := executor.Execute(ctx, desc.Operation, plan)
		if err != nil {
			log.Debug().Str("tool", desc.Name).Err(err).Msg("call failed")
			return errorResult(err), nil
		}
		return textResult(body), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent("Error: " + err.Error()),
		},
		IsError: true,
	}
}
