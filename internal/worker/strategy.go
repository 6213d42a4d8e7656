package worker

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// RequestClass is the closed set of fetch strategies. Every intercepted
// request maps to exactly one class; dispatch on the class is exhaustive
// rather than string-matched.
type RequestClass int

const (
	// ClassPassthrough requests are never cached: non-GET methods and API
	// paths outside the cacheable allowlist.
	ClassPassthrough RequestClass = iota
	// ClassAPI requests are network-first with cache then synthesized
	// offline fallback.
	ClassAPI
	// ClassImage requests are cache-first against the image cache.
	ClassImage
	// ClassNavigation requests are network-first with the pre-cached
	// offline page as fallback.
	ClassNavigation
	// ClassStatic requests are cache-first against the static-assets cache.
	ClassStatic
)

var requestClassNames = map[RequestClass]string{
	ClassPassthrough: "passthrough",
	ClassAPI:         "api",
	ClassImage:       "image",
	ClassNavigation:  "navigation",
	ClassStatic:      "static",
}

func (c RequestClass) String() string {
	if name, ok := requestClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Destination is what the page intends to do with the response, the
// equivalent of a browser request destination.
type Destination int

const (
	DestinationOther Destination = iota
	DestinationDocument
	DestinationImage
)

// FetchRequest is one intercepted page request.
type FetchRequest struct {
	Method      string
	URL         *url.URL
	Destination Destination
	Header      http.Header
	Body        []byte
}

// cacheableAPIPatterns is the allowlist of API paths worth caching: catalog
// listings, cache status, and the session probe. Everything else under
// /api/ passes through untouched.
var cacheableAPIPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/api/anime/(trending|popular|airing)`),
	regexp.MustCompile(`^/api/cache/status`),
	regexp.MustCompile(`^/api/auth/user`),
}

// Classify maps a request to its strategy class.
func Classify(req *FetchRequest) RequestClass {
	if req.Method != http.MethodGet {
		return ClassPassthrough
	}

	switch req.Destination {
	case DestinationImage:
		return ClassImage
	case DestinationDocument:
		return ClassNavigation
	}

	if strings.HasPrefix(req.URL.Path, "/api/") {
		for _, pattern := range cacheableAPIPatterns {
			if pattern.MatchString(req.URL.Path) {
				return ClassAPI
			}
		}
		return ClassPassthrough
	}

	return ClassStatic
}

// ResultTag distinguishes a genuinely fresh response from degraded and
// synthesized ones, instead of overloading the HTTP status code.
type ResultTag int

const (
	// ResultOk is a fresh response, from network or a deliberate
	// cache-first hit.
	ResultOk ResultTag = iota
	// ResultDegraded is a stale cached response served because the network
	// failed.
	ResultDegraded
	// ResultUnavailable is a synthesized response: no network and no cache.
	ResultUnavailable
)

var resultTagNames = map[ResultTag]string{
	ResultOk:          "ok",
	ResultDegraded:    "degraded",
	ResultUnavailable: "unavailable",
}

func (t ResultTag) String() string {
	if name, ok := resultTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("result(%d)", int(t))
}

// FetchResult is the outcome of one intercepted fetch.
type FetchResult struct {
	Tag      ResultTag
	Response *CachedResponse
	Reason   string
}
