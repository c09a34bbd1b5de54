package auth

import (
	"net/http"
)

// SecureRoundTripper applies per-call authentication as an http.RoundTripper
// wrapper. Requests are cloned before modification so the originals stay
// untouched and concurrent calls cannot interfere.
type SecureRoundTripper struct {
	base     http.RoundTripper
	provider Provider
}

// NewSecureRoundTripper wraps base with per-call authentication.
func NewSecureRoundTripper(base http.RoundTripper, provider Provider) *SecureRoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &SecureRoundTripper{base: base, provider: provider}
}

// RoundTrip executes a single HTTP transaction with the call's auth applied.
func (t *SecureRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())

	if headers := t.provider.HeadersFor(req.Context()); headers != nil {
		for key, value := range headers {
			cloned.Header.Set(key, value)
		}
	}

	if params := t.provider.QueryFor(req.Context()); params != nil {
		q := cloned.URL.Query()
		for key, value := range params {
			q.Set(key, value)
		}
		cloned.URL.RawQuery = q.Encode()
	}

	return t.base.RoundTrip(cloned)
}
