package schema

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// NormalizeMethod upper-cases a method and defaults it to GET.
func NormalizeMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(method)
}

// RequestKey returns the identity used to store and match a request.
// Two requests are the same entry when method and absolute URL agree.
// The fragment never reaches the network, so it is dropped.
func RequestKey(method, rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		u.Fragment = ""
		u.RawFragment = ""
		rawURL = u.String()
	}
	return NormalizeMethod(method) + " " + rawURL
}

// Key returns the identity of the request.
func (r Request) Key() string {
	return RequestKey(r.Method, r.URL)
}

// ResolveURL resolves an asset path or URL against the origin.
// Absolute http(s) URLs are returned unchanged. Scheme-relative references
// such as "//host/x" are rejected since they would leave the origin.
func ResolveURL(origin *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid asset %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if u.Host != "" || strings.HasPrefix(ref, "//") {
		return "", fmt.Errorf("asset %q is scheme-relative; use a path or an absolute URL", ref)
	}
	if origin == nil {
		return "", fmt.Errorf("asset %q is relative but no origin is configured", ref)
	}
	return origin.ResolveReference(u).String(), nil
}

// StaleBuckets returns the names not present in the whitelist, keeping input order.
func StaleBuckets(names, whitelist []string) []string {
	var stale []string
	for _, name := range names {
		if !slices.Contains(whitelist, name) {
			stale = append(stale, name)
		}
	}
	return stale
}

// CloneHeader returns a deep copy of h, or an empty header when h is nil.
func CloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
