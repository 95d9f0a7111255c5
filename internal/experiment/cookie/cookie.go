// Package cookie persists variation assignments in client-side cookies.
//
// One cookie is written per experiment run in a request. Its name is the
// namespace and the experiment id joined by a double underscore, and its value
// is the decimal variation index.
package cookie

//go:generate mockgen -source=cookie.go -destination=mocks/mocks.go -package=mocks Reader,Writer

import (
	"strconv"
)

const (
	// DefaultNamespace matches the cookie names issued by earlier deployments
	// so existing visitors keep their assignments.
	DefaultNamespace = "flask_google_optimize"
	// DefaultMaxAge is 30 days in seconds.
	DefaultMaxAge = 3600 * 24 * 30

	separator = "__"
)

// Reader looks up the raw value of a cookie sent with the request.
type Reader interface {
	Get(name string) (string, bool)
}

// Writer sets a cookie on the response.
type Writer interface {
	Set(name, value string, maxAge int)
}

// Codec names and encodes assignment cookies.
type Codec struct {
	Namespace string
	MaxAge    int
}

// DefaultCodec returns the codec used when none is configured.
func DefaultCodec() Codec {
	return Codec{Namespace: DefaultNamespace, MaxAge: DefaultMaxAge}
}

// Name returns the cookie name for an experiment id.
func (c Codec) Name(experimentID string) string {
	return c.Namespace + separator + experimentID
}

// Encode renders a variation index as a cookie value.
func (c Codec) Encode(index int) string {
	return strconv.Itoa(index)
}

// Decode parses a cookie value into an index valid for n variations.
// Anything else, including non-numeric or out of range values, reports false.
func (c Codec) Decode(raw string, n int) (int, bool) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if v < 0 || v >= n {
		return 0, false
	}
	return v, true
}
