package identity

import (
	"strings"
)

// Encoding tags the scheme a payload was recognized as
type Encoding string

const (
	EncodingProductionURL Encoding = "production_url"
	EncodingDevTunnel     Encoding = "dev_tunnel"
	EncodingCustomScheme  Encoding = "custom_scheme"
	EncodingDirectToken   Encoding = "direct_token"
	EncodingShortCode     Encoding = "short_code"
)

const (
	DefaultProductionBaseURL = "https://parqr.app"
	DefaultCustomScheme      = "parqr"

	profileMarker   = "/profile/"
	devTunnelScheme = "exp://"
	devTunnelMarker = "/--/profile/"
	shortCodePrefix = "QR_"
	directTokenLen  = 8
)

// matcher recognizes one payload encoding. claims reports whether the payload
// belongs to this encoding at all; extract is only called on claimed payloads.
type matcher struct {
	encoding Encoding
	claims   func(payload string) bool
	extract  func(payload string) (Identity, error)
}

// Result is a successful resolution
type Result struct {
	Identity Identity
	Encoding Encoding
}

// Resolver turns scanned text into a canonical identity.
// It holds no per-scan state and is safe for concurrent use.
type Resolver struct {
	productionBaseURL string
	customScheme      string
	matchers          []matcher
}

// Option configures a Resolver
type Option func(*Resolver)

// WithProductionBaseURL overrides the production profile host (scheme included)
func WithProductionBaseURL(baseURL string) Option {
	return func(r *Resolver) {
		if baseURL != "" {
			r.productionBaseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithCustomScheme overrides the app URI scheme, without "://"
func WithCustomScheme(scheme string) Option {
	return func(r *Resolver) {
		if scheme != "" {
			r.customScheme = strings.TrimSuffix(scheme, "://")
		}
	}
}

// NewResolver creates a resolver with the matchers in priority order
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		productionBaseURL: DefaultProductionBaseURL,
		customScheme:      DefaultCustomScheme,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.matchers = []matcher{
		prefixMatcher(EncodingProductionURL, r.productionBaseURL+profileMarker),
		{
			encoding: EncodingDevTunnel,
			claims: func(p string) bool {
				return strings.HasPrefix(p, devTunnelScheme) && strings.Contains(p, devTunnelMarker)
			},
			extract: func(p string) (Identity, error) {
				_, rest, _ := strings.Cut(p, devTunnelMarker)
				return nonEmpty(EncodingDevTunnel, untilMarker(rest, devTunnelMarker))
			},
		},
		prefixMatcher(EncodingCustomScheme, r.customScheme+"://profile/"),
		{
			encoding: EncodingDirectToken,
			claims:   isDirectToken,
			extract: func(p string) (Identity, error) {
				return Identity(p), nil
			},
		},
		{
			encoding: EncodingShortCode,
			claims: func(p string) bool {
				return strings.HasPrefix(p, shortCodePrefix)
			},
			extract: func(string) (Identity, error) {
				return "", &ResolutionError{Reason: ReasonUnsupportedEncoding, Encoding: EncodingShortCode}
			},
		},
	}

	return r
}

// Resolve returns the identity encoded in payload, or a *ResolutionError
func (r *Resolver) Resolve(payload string) (Identity, error) {
	res, err := r.Match(payload)
	if err != nil {
		return "", err
	}
	return res.Identity, nil
}

// Match is Resolve that also reports which encoding matched.
// The first matcher that claims the payload decides the outcome.
func (r *Resolver) Match(payload string) (Result, error) {
	for _, m := range r.matchers {
		if !m.claims(payload) {
			continue
		}
		id, err := m.extract(payload)
		if err != nil {
			return Result{}, err
		}
		return Result{Identity: id, Encoding: m.encoding}, nil
	}
	return Result{}, &ResolutionError{Reason: ReasonNoMatch}
}

// Encodings lists the matcher tags in evaluation order
func (r *Resolver) Encodings() []Encoding {
	out := make([]Encoding, len(r.matchers))
	for i, m := range r.matchers {
		out[i] = m.encoding
	}
	return out
}

func prefixMatcher(enc Encoding, prefix string) matcher {
	return matcher{
		encoding: enc,
		claims: func(p string) bool {
			return strings.HasPrefix(p, prefix)
		},
		extract: func(p string) (Identity, error) {
			return nonEmpty(enc, untilMarker(strings.TrimPrefix(p, prefix), profileMarker))
		},
	}
}

// untilMarker drops everything from the next marker on, so a repeated
// profile path yields only the first identity.
func untilMarker(rest, marker string) string {
	id, _, _ := strings.Cut(rest, marker)
	return id
}

func nonEmpty(enc Encoding, s string) (Identity, error) {
	if s == "" {
		return "", &ResolutionError{Reason: ReasonNoMatch, Encoding: enc}
	}
	return Identity(s), nil
}

func isDirectToken(p string) bool {
	if len(p) != directTokenLen {
		return false
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
