package toolgen

import (
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operation describes a single API operation to be mapped to a tool.
// It carries the operation's ID, summary, description, HTTP path/method,
// parameters, request body, tags, and security requirements. Schema data
// is borrowed from the parsed description and never mutated.
type Operation struct {
	OperationID string
	Summary     string
	Description string
	Path        string
	Method      string
	Parameters  openapi3.Parameters
	RequestBody *openapi3.RequestBodyRef
	Tags        []string
	Security    openapi3.SecurityRequirements
	Servers     openapi3.Servers
}

// methodOrder fixes the verbs recognized under a path entry and the order
// they are emitted in. Anything else under a path (shared parameter
// blocks, TRACE, vendor extensions) is skipped.
var methodOrder = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodOptions,
	http.MethodHead,
}

var nonWordChars = regexp.MustCompile(`\W`)

// SynthesizeOperationID builds the fallback tool name for operations that
// do not declare an operationId: the upper-cased method joined to the path
// with every non-word character replaced by an underscore. The result is
// deterministic and idempotent.
func SynthesizeOperationID(method, path string) string {
	return strings.ToUpper(method) + "_" + nonWordChars.ReplaceAllString(path, "_")
}

// ExtractOperations walks the description's path table and returns one
// Operation per path and recognized HTTP verb, in sorted path order.
// Duplicate operation IDs are kept as-is; the registry's last write wins.
func ExtractOperations(doc *openapi3.T) ([]Operation, error) {
	if doc == nil || doc.Paths == nil {
		return nil, NewValidationError("description has no path table")
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var ops []Operation
	for _, path := range paths {
		item := pathMap[path]
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			op := operationForMethod(item, method)
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = SynthesizeOperationID(method, path)
			}
			extracted := Operation{
				OperationID: id,
				Summary:     op.Summary,
				Description: op.Description,
				Path:        path,
				Method:      method,
				Parameters:  op.Parameters,
				RequestBody: op.RequestBody,
				Tags:        op.Tags,
			}
			if op.Security != nil {
				extracted.Security = *op.Security
			}
			if op.Servers != nil {
				extracted.Servers = *op.Servers
			}
			ops = append(ops, extracted)
		}
	}
	return ops, nil
}

func operationForMethod(item *openapi3.PathItem, method string) *openapi3.Operation {
	switch method {
	case http.MethodGet:
		return item.Get
	case http.MethodPost:
		return item.Post
	case http.MethodPut:
		return item.Put
	case http.MethodDelete:
		return item.Delete
	case http.MethodPatch:
		return item.Patch
	case http.MethodOptions:
		return item.Options
	case http.MethodHead:
		return item.Head
	}
	return nil
}
