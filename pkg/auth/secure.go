package auth

import (
	"context"
)

// Provider supplies per-call authentication material without mutating
// shared state.
type Provider interface {
	// HeadersFor returns the auth headers for this call, or nil.
	HeadersFor(ctx context.Context) map[string]string

	// QueryFor returns the auth query parameters for this call, or nil.
	QueryFor(ctx context.Context) map[string]string
}

type contextProvider struct{}

// NewProvider returns a Provider that reads the per-call auth context
// stored by the transport layer.
func NewProvider() Provider {
	return &contextProvider{}
}

func (p *contextProvider) HeadersFor(ctx context.Context) map[string]string {
	ra, ok := FromContext(ctx)
	if !ok || ra.Token == "" {
		return nil
	}
	switch ra.Kind {
	case SchemeBearer:
		return map[string]string{"Authorization": "Bearer " + ra.Token}
	case SchemeAPIKey:
		if ra.In == "header" && ra.ParamName != "" {
			return map[string]string{ra.ParamName: ra.Token}
		}
	}
	return nil
}

func (p *contextProvider) QueryFor(ctx context.Context) map[string]string {
	ra, ok := FromContext(ctx)
	if !ok || ra.Token == "" || ra.Kind != SchemeAPIKey {
		return nil
	}
	if ra.In != "query" || ra.ParamName == "" {
		return nil
	}
	return map[string]string{ra.ParamName: ra.Token}
}
