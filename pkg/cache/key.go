package cache

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// HomepageKey is the logical key of a tenant's homepage document.
const HomepageKey = "website:homepage"

// versionSuffix names the per-tenant version counter.
const versionSuffix = "version"

// Key represents a versioned cache key for one tenant and logical resource.
type Key struct {
	// Prefix is the tenant cache prefix (e.g., "church:a_example_com")
	Prefix string

	// Logical identifies the resource (e.g., "website:homepage", "page:events:<hash>")
	Logical string

	// Version is the tenant version counter value at read/write time
	Version int64
}

// String generates the versioned key.
// Format: {prefix}:{logical}:v{version}
//
// Example:
//
//	church:a_example_com:page:about:v1
func (k Key) String() string {
	return k.Prefix + ":" + k.Logical + ":v" + strconv.FormatInt(k.Version, 10)
}

// VersionKey returns the key of the tenant's version counter.
func VersionKey(prefix string) string {
	return prefix + ":" + versionSuffix
}

// PageKey builds the logical key of a page.
// Format: page:{slug} or page:{slug}:{queryHash} when query has non-empty values.
func PageKey(slug string, query map[string]string) string {
	key := "page:" + slug
	if h := QueryHash(query); h != "" {
		key += ":" + h
	}
	return key
}

// QueryHash returns the MD5 hex digest of the canonical query encoding,
// or an empty string when query has no non-empty values.
func QueryHash(query map[string]string) string {
	canonical := CanonicalQuery(query)
	if canonical == "" {
		return ""
	}
	return hashHex(canonical)
}

// CanonicalQuery encodes query as key=value pairs sorted by key.
// Parameters with empty values are dropped, so parameter order and blank
// filters never produce a second cache entry for the same query.
func CanonicalQuery(query map[string]string) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for k, v := range query {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(query[k]))
	}
	return strings.Join(parts, "&")
}

func hashHex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
