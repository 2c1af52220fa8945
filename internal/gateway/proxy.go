package gateway

import (
	"errors"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// maxRequestBody caps a request payload forwarded to the origin.
const maxRequestBody = 10 << 20

// errNoOrigin is returned when a request arrives but no origin is configured.
var errNoOrigin = errors.New("no origin is configured")

// hopHeaders are the hop-by-hop headers of RFC 7230 section 6.1.
// They describe one connection and are never forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// removeHopHeaders deletes hop-by-hop headers, including any named by Connection.
func removeHopHeaders(h http.Header) {
	for _, field := range h["Connection"] {
		for name := range strings.SplitSeq(field, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// originTarget maps a request onto the origin.
// Only the path and query come from the client, so the host is always the origin's.
func originTarget(origin *url.URL, r *http.Request) (string, error) {
	if origin == nil {
		return "", errNoOrigin
	}
	u := *origin
	u.Path = r.URL.Path
	u.RawPath = r.URL.RawPath
	u.RawQuery = r.URL.RawQuery
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	return u.String(), nil
}

// readBody reads at most maxRequestBody bytes of the request payload.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
}
