package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ETag returns a strong entity tag for a response body.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// NotModified reports whether the request's If-None-Match header matches etag.
func NotModified(req *http.Request, etag string) bool {
	if req == nil || etag == "" {
		return false
	}
	header := req.Header.Get("If-None-Match")
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// SetCacheHeaders sets ETag and Cache-Control on a response.
// A ttl <= 0 marks the response as not storable.
func SetCacheHeaders(h http.Header, etag string, ttl time.Duration) {
	if etag != "" {
		h.Set("ETag", etag)
	}
	if ttl <= 0 {
		h.Set("Cache-Control", "no-store")
		return
	}
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(ttl.Seconds())))
}
