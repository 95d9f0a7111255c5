package cookie

import "net/http"

// RequestReader reads cookies from an incoming request.
type RequestReader struct {
	r *http.Request
}

// NewRequestReader wraps r.
func NewRequestReader(r *http.Request) RequestReader {
	return RequestReader{r: r}
}

// Get returns the value of the named cookie.
func (rr RequestReader) Get(name string) (string, bool) {
	c, err := rr.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// ResponseWriter sets cookies as Set-Cookie headers. Headers must not have
// been sent yet.
type ResponseWriter struct {
	w      http.ResponseWriter
	secure bool
}

// NewResponseWriter wraps w. When secure is true cookies carry the Secure flag.
func NewResponseWriter(w http.ResponseWriter, secure bool) ResponseWriter {
	return ResponseWriter{w: w, secure: secure}
}

// Set adds a Set-Cookie header scoped to the whole site.
func (rw ResponseWriter) Set(name, value string, maxAge int) {
	http.SetCookie(rw.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   rw.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
