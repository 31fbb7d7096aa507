package tenant

import (
	"errors"
	"strings"
	"testing"
)

func TestContext_CachePrefix(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (Context, error)
		want string
	}{
		{
			name: "domain with dots",
			ctx:  func() (Context, error) { return NewDomain("a.example.com") },
			want: "church:a_example_com",
		},
		{
			name: "domain is lower-cased",
			ctx:  func() (Context, error) { return NewDomain("Grace.Example.COM") },
			want: "church:grace_example_com",
		},
		{
			name: "trailing root dot ignored",
			ctx:  func() (Context, error) { return NewDomain("b.example.com.") },
			want: "church:b_example_com",
		},
		{
			name: "underscore escaped",
			ctx:  func() (Context, error) { return NewDomain("a_b.com") },
			want: "church:a%5Fb_com",
		},
		{
			name: "token hashed to 12 hex chars",
			ctx:  func() (Context, error) { return NewToken("abc123") },
			want: "church:e99a18c428cb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.ctx()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := c.CachePrefix(); got != tt.want {
				t.Errorf("CachePrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContext_CachePrefix_NoCollisions(t *testing.T) {
	domains := []string{
		"a.example.com",
		"b.example.com",
		"a_example.com",
		"a.example_com",
		"a_example_com",
		"a%5Fexample.com",
		"a%2example.com",
		"example.com",
		"www.example.com",
		"www-example.com",
		"localhost",
	}
	tokens := []string{"abc123", "abc124", "ABC123", "token", "another-token"}

	seen := make(map[string]string)
	for _, d := range domains {
		c, err := NewDomain(d)
		if err != nil {
			t.Fatalf("NewDomain(%q) failed: %v", d, err)
		}
		p := c.CachePrefix()
		if prev, ok := seen[p]; ok {
			t.Errorf("prefix %q shared by %q and %q", p, prev, d)
		}
		seen[p] = d
	}
	for _, tok := range tokens {
		c, err := NewToken(tok)
		if err != nil {
			t.Fatalf("NewToken(%q) failed: %v", tok, err)
		}
		p := c.CachePrefix()
		if prev, ok := seen[p]; ok {
			t.Errorf("prefix %q shared by %q and token %q", p, prev, tok)
		}
		seen[p] = "token:" + tok
	}
}

func TestContext_CachePrefix_Determinism(t *testing.T) {
	c, _ := NewToken("abc123")
	first := c.CachePrefix()
	for i := 0; i < 10; i++ {
		if got := c.CachePrefix(); got != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, got, first)
		}
	}
}

func TestContext_TokenNeverInPrefix(t *testing.T) {
	c, _ := NewToken("super-secret-token")
	if strings.Contains(c.CachePrefix(), "super-secret-token") {
		t.Errorf("CachePrefix() leaks token: %q", c.CachePrefix())
	}
	if strings.Contains(c.String(), "super-secret-token") {
		t.Errorf("String() leaks token: %q", c.String())
	}
}

func TestContext_ExactlyOneIdentity(t *testing.T) {
	tok, _ := NewToken("abc123")
	if _, ok := tok.Domain(); ok {
		t.Error("token context must not carry a domain")
	}
	if v, ok := tok.Token(); !ok || v != "abc123" {
		t.Errorf("Token() = %q, %v", v, ok)
	}
	if tok.IsMultiTenant() {
		t.Error("token context reported multi-tenant")
	}

	dom, _ := NewDomain("a.example.com")
	if _, ok := dom.Token(); ok {
		t.Error("domain context must not carry a token")
	}
	if v, ok := dom.Domain(); !ok || v != "a.example.com" {
		t.Errorf("Domain() = %q, %v", v, ok)
	}
	if !dom.IsMultiTenant() {
		t.Error("domain context should be multi-tenant")
	}
}

func TestContext_Empty(t *testing.T) {
	if _, err := NewToken("  "); !errors.Is(err, ErrUnresolvedTenant) {
		t.Errorf("NewToken(blank) error = %v, want ErrUnresolvedTenant", err)
	}
	if _, err := NewDomain(""); !errors.Is(err, ErrUnresolvedTenant) {
		t.Errorf("NewDomain(empty) error = %v, want ErrUnresolvedTenant", err)
	}

	var zero Context
	if !zero.IsZero() {
		t.Error("zero Context should report IsZero")
	}
	if zero.CachePrefix() != "" {
		t.Errorf("zero CachePrefix() = %q, want empty", zero.CachePrefix())
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindToken, "token"},
		{KindDomain, "domain"},
		{Kind(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
