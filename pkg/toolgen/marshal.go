package toolgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cast"
	"github.com/yosida95/uritemplate/v3"

	"github.com/toolfront/openapi-bridge/pkg/auth"
)

// RequestPlan is the concrete HTTP request derived from one invocation:
// the substituted path, assembled query and headers, and the serialized
// body. The executor joins it with the resolved base URL.
type RequestPlan struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
}

// Marshaler maps invocation arguments onto request plans. It holds only
// the immutable authentication placement resolved at startup; every call
// is otherwise stateless, so concurrent invocations are safe.
type Marshaler struct {
	resolved *auth.Resolved
}

func NewMarshaler(resolved *auth.Resolved) *Marshaler {
	if resolved == nil {
		resolved = &auth.Resolved{Headers: http.Header{}}
	}
	return &Marshaler{resolved: resolved}
}

// Marshal builds the request plan for one invocation of the descriptor's
// operation. Missing path arguments substitute an empty string rather
// than failing; the lenient policy is deliberate.
func (m *Marshaler) Marshal(desc ToolDescriptor, args map[string]any) (*RequestPlan, error) {
	if args == nil {
		args = map[string]any{}
	}
	op := desc.Operation

	plan := &RequestPlan{
		Method: op.Method,
		Path:   substitutePath(op.Path, args),
		Query:  url.Values{},
		Header: http.Header{},
	}

	for _, ref := range op.Parameters {
		p := ref.Value
		if p == nil {
			continue
		}
		value, present := args[p.Name]
		if !present {
			continue
		}
		switch p.In {
		case "query":
			addQueryValue(plan.Query, p.Name, value)
		case "header":
			plan.Header.Set(p.Name, cast.ToString(value))
		}
	}

	// The resolved query API key goes in last and wins over any
	// same-named argument.
	if m.resolved.QueryName != "" && m.resolved.QueryValue != "" {
		plan.Query.Set(m.resolved.QueryName, m.resolved.QueryValue)
	}

	for key, values := range m.resolved.Headers {
		for _, value := range values {
			plan.Header.Set(key, value)
		}
	}

	if err := m.marshalBody(desc, args, plan); err != nil {
		return nil, err
	}
	if plan.ContentType != "" {
		plan.Header.Set("Content-Type", plan.ContentType)
	}
	return plan, nil
}

var pathTokenPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// pathVariables enumerates the {name} tokens of a path template.
func pathVariables(path string) []string {
	if tpl, err := uritemplate.New(path); err == nil {
		return tpl.Varnames()
	}
	var names []string
	for _, match := range pathTokenPattern.FindAllStringSubmatch(path, -1) {
		names = append(names, match[1])
	}
	return names
}

func substitutePath(path string, args map[string]any) string {
	for _, name := range pathVariables(path) {
		value := ""
		if raw, ok := args[name]; ok {
			value = cast.ToString(raw)
		}
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path
}

func addQueryValue(q url.Values, name string, value any) {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			q.Add(name, cast.ToString(item))
		}
	case []string:
		for _, item := range v {
			q.Add(name, item)
		}
	default:
		q.Set(name, cast.ToString(value))
	}
}

func (m *Marshaler) marshalBody(desc ToolDescriptor, args map[string]any, plan *RequestPlan) error {
	op := desc.Operation
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	rb := op.RequestBody.Value

	if rb.Content.Get("multipart/form-data") != nil {
		return m.marshalMultipart(desc, args, plan)
	}

	rawBody, hasRawBody := args[bodyArgName]
	schema := jsonBodySchema(op)

	// A declared array-typed JSON body bypasses field assembly and is
	// sent as the raw body argument.
	if schema != nil && schema.Ref == "" && schema.Value != nil && schema.Value.Type.Is(openapi3.TypeArray) {
		if !hasRawBody {
			return nil
		}
		data, err := json.Marshal(rawBody)
		if err != nil {
			return fmt.Errorf("failed to serialize array body: %w", err)
		}
		plan.Body = data
		plan.ContentType = "application/json"
		return nil
	}

	if schema != nil && schema.Ref == "" && schema.Value != nil && len(schema.Value.Properties) > 0 {
		source := bodyFieldSource(args)
		fields := map[string]any{}
		for _, name := range sortedPropertyNames(schema.Value.Properties) {
			value, present := source[name]
			if !present {
				continue
			}
			if rule, ok := desc.Params[name]; ok && rule.Kind == RuleArray {
				value = RecoverArray(value)
			}
			fields[name] = value
		}
		if len(fields) == 0 && !rb.Required {
			return nil
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to serialize body: %w", err)
		}
		plan.Body = data
		plan.ContentType = "application/json"
		return nil
	}

	// Opaque body: a $ref, a property-less object, a scalar schema, or a
	// non-JSON content type. Whatever arrived under the body argument is
	// serialized as JSON.
	if !hasRawBody {
		return nil
	}
	data, err := json.Marshal(rawBody)
	if err != nil {
		return fmt.Errorf("failed to serialize body: %w", err)
	}
	plan.Body = data
	plan.ContentType = "application/json"
	return nil
}

func (m *Marshaler) marshalMultipart(desc ToolDescriptor, args map[string]any, plan *RequestPlan) error {
	op := desc.Operation
	source := bodyFieldSource(args)

	var names []string
	mt := op.RequestBody.Value.Content.Get("multipart/form-data")
	if mt != nil && mt.Schema != nil && mt.Schema.Value != nil && len(mt.Schema.Value.Properties) > 0 {
		for _, name := range sortedPropertyNames(mt.Schema.Value.Properties) {
			if _, present := source[name]; present {
				names = append(names, name)
			}
		}
	} else {
		for name := range source {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, name := range names {
		if err := writer.WriteField(name, formFieldValue(source[name])); err != nil {
			return fmt.Errorf("failed to write form field %q: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form body: %w", err)
	}
	plan.Body = buf.Bytes()
	plan.ContentType = writer.FormDataContentType()
	return nil
}

func formFieldValue(value any) string {
	switch value.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err != nil {
			return cast.ToString(value)
		}
		return string(data)
	default:
		return cast.ToString(value)
	}
}

// bodyFieldSource picks the body field source: a nested "body" object
// when the caller grouped fields under one, otherwise the flat top-level
// arguments.
func bodyFieldSource(args map[string]any) map[string]any {
	if nested, ok := args[bodyArgName].(map[string]any); ok {
		return nested
	}
	return args
}

// RecoverArray recovers array values that arrive as strings: a JSON
// array literal parses as JSON; otherwise the string splits on commas
// with the pieces trimmed; failing both, the value wraps as a
// single-element array. Best-effort by design; a malformed literal
// becomes a one-element array instead of an error.
func RecoverArray(value any) any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, item)
		}
		return out
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			var arr []any
			if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
				return arr
			}
		}
		parts := strings.Split(v, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			out = append(out, strings.TrimSpace(part))
		}
		return out
	default:
		return []any{value}
	}
}
