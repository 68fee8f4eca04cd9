// Package csrf attaches the page's CSRF token to mutating requests.
package csrf

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// HeaderName is the header Flask-WTF style backends read the token from.
const HeaderName = "X-CSRFToken"

// TokenSource yields the current CSRF token.
type TokenSource interface {
	Token() string
}

// Store holds the token from the most recently parsed page.
type Store struct {
	mu    sync.RWMutex
	token string
}

func (s *Store) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Safe reports whether method never needs a CSRF token.
func Safe(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// Transport sets HeaderName on unsafe requests to Origin.
type Transport struct {
	Base   http.RoundTripper
	Origin *url.URL
	Source TokenSource
}

func NewTransport(base http.RoundTripper, origin *url.URL, source TokenSource) *Transport {
	return &Transport{Base: base, Origin: origin, Source: source}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !Safe(req.Method) && sameOrigin(t.Origin, req.URL) {
		if token := t.Source.Token(); token != "" {
			req = req.Clone(req.Context())
			req.Header.Set(HeaderName, token)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func sameOrigin(origin, u *url.URL) bool {
	if origin == nil || u == nil {
		return false
	}
	return strings.EqualFold(origin.Scheme, u.Scheme) && strings.EqualFold(origin.Host, u.Host)
}
