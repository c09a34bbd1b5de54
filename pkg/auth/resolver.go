package auth

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// SchemeKind classifies a declared security scheme.
type SchemeKind string

const (
	SchemeNone   SchemeKind = ""
	SchemeBearer SchemeKind = "bearer"
	SchemeAPIKey SchemeKind = "apiKey"
)

// Resolved is the authentication context built once at startup: which
// scheme was selected and where a caller-supplied credential is placed.
// It is immutable after construction and shared read-only by every call.
type Resolved struct {
	Kind       SchemeKind
	SchemeName string
	// HeaderName is set for apiKey schemes placed in a header.
	HeaderName string
	// QueryName/QueryValue record an apiKey placed in the query string;
	// the marshaler injects the pair into every call, last, so a
	// same-named argument can never override it.
	QueryName  string
	QueryValue string
	// Headers are the default headers attached to every outgoing call:
	// caller-supplied pairs plus the placed credential.
	Headers http.Header
}

type declaredScheme struct {
	name string
	kind SchemeKind
	in   string
	key  string
}

// Resolve scans the description's declared security schemes and decides
// credential placement. apiKey takes precedence over bearer; otherwise
// the first scheme in sorted component order wins. Schemes that are
// neither (oauth2, openIdConnect, unknown) are not auto-handled; callers
// supply a pre-built header instead.
func Resolve(doc *openapi3.T, credential string, extraHeaders http.Header) *Resolved {
	resolved := &Resolved{Headers: cloneHeader(extraHeaders)}

	selected, ok := selectScheme(doc)
	if !ok {
		return resolved
	}

	resolved.Kind = selected.kind
	resolved.SchemeName = selected.name
	switch selected.kind {
	case SchemeBearer:
		if credential != "" {
			resolved.Headers.Set("Authorization", "Bearer "+credential)
		}
	case SchemeAPIKey:
		if selected.in == "query" {
			resolved.QueryName = selected.key
			resolved.QueryValue = credential
		} else {
			resolved.HeaderName = selected.key
			if credential != "" {
				resolved.Headers.Set(selected.key, credential)
			}
		}
	}
	return resolved
}

// selectScheme applies the selection precedence: the first apiKey scheme
// in sorted component order, else the first bearer scheme.
func selectScheme(doc *openapi3.T) (declaredScheme, bool) {
	schemes := declaredSchemes(doc)
	for _, s := range schemes {
		if s.kind == SchemeAPIKey {
			return s, true
		}
	}
	for _, s := range schemes {
		if s.kind == SchemeBearer {
			return s, true
		}
	}
	return declaredScheme{}, false
}

// declaredSchemes lists the description's security schemes in sorted
// component order, classified. Sorting keeps scheme selection stable
// across runs; which same-kind scheme wins stays a documented artifact
// of that order.
func declaredSchemes(doc *openapi3.T) []declaredScheme {
	if doc == nil || doc.Components == nil || len(doc.Components.SecuritySchemes) == 0 {
		return nil
	}
	names := make([]string, 0, len(doc.Components.SecuritySchemes))
	for name := range doc.Components.SecuritySchemes {
		names = append(names, name)
	}
	sort.Strings(names)

	schemes := make([]declaredScheme, 0, len(names))
	for _, name := range names {
		ref := doc.Components.SecuritySchemes[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		scheme := ref.Value
		switch scheme.Type {
		case "apiKey":
			in := "header"
			if scheme.In == "query" {
				in = "query"
			}
			schemes = append(schemes, declaredScheme{name: name, kind: SchemeAPIKey, in: in, key: scheme.Name})
		case "http":
			if scheme.Scheme == "bearer" {
				schemes = append(schemes, declaredScheme{name: name, kind: SchemeBearer, in: "header", key: "Authorization"})
			}
		}
	}
	return schemes
}

// RequiresAuth reports whether the description demands authentication: a
// non-empty security requirement at the root or on any operation.
func RequiresAuth(doc *openapi3.T) bool {
	if doc == nil {
		return false
	}
	if hasRequirement(doc.Security) {
		return true
	}
	if doc.Paths == nil {
		return false
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.Security != nil && hasRequirement(*op.Security) {
				return true
			}
		}
	}
	return false
}

func hasRequirement(reqs openapi3.SecurityRequirements) bool {
	for _, req := range reqs {
		if len(req) > 0 {
			return true
		}
	}
	return false
}

// EnsureCredential enforces the startup precondition: when the
// description requires auth and neither a credential nor a matching
// caller-supplied header is present, ask the prompt for one. A nil or
// failing prompt makes the missing credential fatal.
func EnsureCredential(doc *openapi3.T, resolved *Resolved, credential string, prompt func(hint string) (string, error)) (string, error) {
	if !RequiresAuth(doc) || credential != "" {
		return credential, nil
	}
	if headerSatisfies(resolved) {
		return credential, nil
	}

	hint := credentialHint(resolved)
	if prompt != nil {
		supplied, err := prompt(hint)
		if err != nil {
			return "", fmt.Errorf("credential prompt failed: %w", err)
		}
		if supplied != "" {
			return supplied, nil
		}
	}
	return "", fmt.Errorf("description requires authentication (%s) but no credential or matching header was supplied", hint)
}

// headerSatisfies reports whether the caller already supplied the header
// the selected scheme needs.
func headerSatisfies(resolved *Resolved) bool {
	if resolved == nil {
		return false
	}
	switch resolved.Kind {
	case SchemeBearer:
		return resolved.Headers.Get("Authorization") != ""
	case SchemeAPIKey:
		if resolved.HeaderName != "" {
			return resolved.Headers.Get(resolved.HeaderName) != ""
		}
		return resolved.QueryValue != ""
	}
	// No auto-handled scheme: a pre-built Authorization header counts.
	return resolved.Headers.Get("Authorization") != ""
}

func credentialHint(resolved *Resolved) string {
	if resolved == nil {
		return "unknown scheme"
	}
	switch resolved.Kind {
	case SchemeBearer:
		return fmt.Sprintf("bearer token for scheme %q", resolved.SchemeName)
	case SchemeAPIKey:
		if resolved.QueryName != "" {
			return fmt.Sprintf("API key for query parameter %q", resolved.QueryName)
		}
		return fmt.Sprintf("API key for header %q", resolved.HeaderName)
	}
	return "pre-built Authorization header for a scheme that is not auto-handled"
}

func cloneHeader(h http.Header) http.Header {
	clone := make(http.Header, len(h))
	for key, values := range h {
		for _, value := range values {
			clone.Add(key, value)
		}
	}
	return clone
}
