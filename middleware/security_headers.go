package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/mnehpets/onerpc/endpoint"
)

// SecurityHeaders sets response headers suited to a JSON API and answers CORS
// preflight requests.
//
// Defaults (NewAPISecurityHeaders):
//   - Strict-Transport-Security: max-age=31536000; includeSubDomains
//   - Referrer-Policy: no-referrer
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//   - Cache-Control: no-store
//   - Cross-Origin-Resource-Policy: same-origin
type SecurityHeaders struct {
	// HSTSMaxAge in seconds. Zero disables the header.
	HSTSMaxAge int
	// Empty values disable the corresponding header.
	ReferrerPolicy            string
	FrameOptions              string
	ContentSecurityPolicy     string
	CacheControl              string
	CrossOriginResourcePolicy string
	// CORS is nil unless cross-origin callers are expected.
	CORS *CORSConfig
}

// CORSConfig configures Cross-Origin Resource Sharing.
type CORSConfig struct {
	// AllowedOrigins lists permitted origins. "*" permits any origin unless
	// AllowCredentials is set.
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is how long, in seconds, a preflight result may be cached.
	MaxAge int
}

// DefaultCORS returns a CORS configuration for a JSON-RPC endpoint reachable
// from the given origins.
func DefaultCORS(origins ...string) *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         3600,
	}
}

// SecurityHeadersOption configures SecurityHeaders.
type SecurityHeadersOption func(*SecurityHeaders)

// NewAPISecurityHeaders creates the processor with API defaults.
func NewAPISecurityHeaders(opts ...SecurityHeadersOption) *SecurityHeaders {
	p := &SecurityHeaders{
		HSTSMaxAge:                31536000,
		ReferrerPolicy:            "no-referrer",
		FrameOptions:              "DENY",
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		CacheControl:              "no-store",
		CrossOriginResourcePolicy: "same-origin",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithHSTSMaxAge sets the HSTS max-age; zero disables HSTS.
func WithHSTSMaxAge(seconds int) SecurityHeadersOption {
	return func(p *SecurityHeaders) { p.HSTSMaxAge = seconds }
}

// WithCORS enables CORS handling.
func WithCORS(config *CORSConfig) SecurityHeadersOption {
	return func(p *SecurityHeaders) { p.CORS = config }
}

// Process implements endpoint.Processor.
func (p *SecurityHeaders) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	h := w.Header()
	if p.HSTSMaxAge > 0 {
		h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(p.HSTSMaxAge)+"; includeSubDomains")
	}
	setIf(h, "Referrer-Policy", p.ReferrerPolicy)
	setIf(h, "X-Frame-Options", p.FrameOptions)
	setIf(h, "Content-Security-Policy", p.ContentSecurityPolicy)
	setIf(h, "Cache-Control", p.CacheControl)
	setIf(h, "Cross-Origin-Resource-Policy", p.CrossOriginResourcePolicy)
	h.Set("X-Content-Type-Options", "nosniff")

	if p.CORS != nil && r.Header.Get("Origin") != "" {
		p.CORS.apply(h, r)
		// Preflight requests never reach the endpoint.
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}
	}
	return next(w, r)
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

func (c *CORSConfig) apply(h http.Header, r *http.Request) {
	origin := r.Header.Get("Origin")
	h.Add("Vary", "Origin")
	switch {
	case slices.Contains(c.AllowedOrigins, origin):
		h.Set("Access-Control-Allow-Origin", origin)
	case slices.Contains(c.AllowedOrigins, "*") && !c.AllowCredentials:
		// Credentials must never be combined with a wildcard origin.
		h.Set("Access-Control-Allow-Origin", "*")
	default:
		return
	}
	if c.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(c.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(c.ExposedHeaders, ", "))
	}
	if r.Method != http.MethodOptions {
		return
	}
	if len(c.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
	}
	if len(c.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
	}
	if c.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
}

var _ endpoint.Processor = (*SecurityHeaders)(nil)
