package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/toolfront/openapi-bridge/pkg/models"
)

// RequestAuth carries the credential material of one incoming call when
// the server fronts several callers, each bringing their own token. The
// transport stores it on the request context; the executor's round
// tripper applies it at dispatch time. Nothing shared is mutated.
type RequestAuth struct {
	Token     string
	Kind      SchemeKind
	ParamName string
	In        string
	Endpoint  string
}

type contextKey string

const requestAuthKey contextKey = "auth"

// FromRequest builds the per-call auth context for an incoming HTTP
// request: the scheme classification comes from the description, the
// token from the caller's Authorization header, the scheme's query
// parameter, or the stored spec row, in that order.
func FromRequest(r *http.Request, doc *openapi3.T, row *models.APISpec) *RequestAuth {
	ra := &RequestAuth{Endpoint: firstPathSegment(r.URL.Path)}

	if scheme, ok := selectScheme(doc); ok {
		ra.Kind = scheme.kind
		ra.ParamName = scheme.key
		ra.In = scheme.in
	}

	if header := r.Header.Get("Authorization"); header != "" {
		ra.Token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if ra.Token == "" && ra.In == "query" && ra.ParamName != "" {
		ra.Token = r.URL.Query().Get(ra.ParamName)
	}
	if ra.Token == "" && row != nil && row.APIKeyToken != nil {
		ra.Token = *row.APIKeyToken
	}
	return ra
}

func firstPathSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return ""
	}
	return strings.ToLower(strings.SplitN(trimmed, "/", 2)[0])
}

// WithRequestAuth stores the per-call auth context.
func WithRequestAuth(ctx context.Context, ra *RequestAuth) context.Context {
	return context.WithValue(ctx, requestAuthKey, ra)
}

// FromContext retrieves the per-call auth context, if any.
func FromContext(ctx context.Context) (*RequestAuth, bool) {
	ra, ok := ctx.Value(requestAuthKey).(*RequestAuth)
	return ra, ok
}
