package tenant

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrUnresolvedTenant indicates no usable identity could be determined.
	ErrUnresolvedTenant = errors.New("tenant could not be resolved")

	// ErrInvalidSecret indicates the invalidation secret did not match the configured token.
	ErrInvalidSecret = errors.New("invalid cache secret")
)

// PrefixNamespace is the leading segment of every tenant cache prefix.
const PrefixNamespace = "church"

// tokenHashLength is the number of hex characters of the token digest used in prefixes.
const tokenHashLength = 12

// Kind tells which identity a Context carries.
type Kind int

const (
	// KindToken identifies a tenant by a fixed upstream API token (single-tenant mode).
	KindToken Kind = iota + 1

	// KindDomain identifies a tenant by request host name (multi-tenant mode).
	KindDomain
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// Context is the immutable identity of one tenant.
// The zero value is not a valid tenant; use NewToken or NewDomain.
type Context struct {
	kind  Kind
	value string
}

// NewToken creates a token identity. The token is used verbatim.
func NewToken(token string) (Context, error) {
	if strings.TrimSpace(token) == "" {
		return Context{}, ErrUnresolvedTenant
	}
	return Context{kind: KindToken, value: token}, nil
}

// NewDomain creates a domain identity from a host name.
// The host is trimmed, lower-cased and stripped of a trailing root dot.
func NewDomain(domain string) (Context, error) {
	d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if d == "" {
		return Context{}, ErrUnresolvedTenant
	}
	return Context{kind: KindDomain, value: d}, nil
}

// Kind returns the identity kind.
func (c Context) Kind() Kind {
	return c.kind
}

// Token returns the API token and true for token identities.
func (c Context) Token() (string, bool) {
	if c.kind != KindToken {
		return "", false
	}
	return c.value, true
}

// Domain returns the host name and true for domain identities.
func (c Context) Domain() (string, bool) {
	if c.kind != KindDomain {
		return "", false
	}
	return c.value, true
}

// IsZero reports whether c carries no identity.
func (c Context) IsZero() bool {
	return c.kind != KindToken && c.kind != KindDomain
}

// IsMultiTenant reports whether c was derived from a request host.
func (c Context) IsMultiTenant() bool {
	return c.kind == KindDomain
}

// CachePrefix returns the cache namespace for this tenant.
//
// Domain identities produce "church:" followed by the host with dots replaced
// by underscores (a.example.com -> church:a_example_com). Characters that would
// make two hosts collide after that replacement ('_' and '%') are percent
// escaped first. Token identities produce "church:" followed by the first 12
// hex characters of the token's MD5 digest, so the token never appears in keys.
//
// Returns an empty string for the zero Context.
func (c Context) CachePrefix() string {
	switch c.kind {
	case KindDomain:
		return PrefixNamespace + ":" + escapeDomain(c.value)
	case KindToken:
		sum := md5.Sum([]byte(c.value))
		return PrefixNamespace + ":" + hex.EncodeToString(sum[:])[:tokenHashLength]
	default:
		return ""
	}
}

// String returns a log-safe description. Tokens are shown only as their prefix.
func (c Context) String() string {
	switch c.kind {
	case KindDomain:
		return "domain:" + c.value
	case KindToken:
		return "token:" + strings.TrimPrefix(c.CachePrefix(), PrefixNamespace+":")
	default:
		return "unresolved"
	}
}

var domainEscaper = strings.NewReplacer("%", "%25", "_", "%5F", ".", "_")

func escapeDomain(domain string) string {
	return domainEscaper.Replace(domain)
}
