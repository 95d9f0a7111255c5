package cookie

// Jar is an in-memory Reader and Writer. Values written to a Jar are visible
// to subsequent reads, which makes it a stand-in for a browser across
// simulated requests.
type Jar struct {
	values map[string]string
	maxAge map[string]int
}

// NewJar returns a jar seeded with values.
func NewJar(values map[string]string) *Jar {
	j := &Jar{values: make(map[string]string, len(values)), maxAge: make(map[string]int)}
	for k, v := range values {
		j.values[k] = v
	}
	return j
}

// Get implements Reader.
func (j *Jar) Get(name string) (string, bool) {
	v, ok := j.values[name]
	return v, ok
}

// Set implements Writer. A non-positive max age deletes the cookie.
func (j *Jar) Set(name, value string, maxAge int) {
	if maxAge <= 0 {
		delete(j.values, name)
		delete(j.maxAge, name)
		return
	}
	j.values[name] = value
	j.maxAge[name] = maxAge
}

// MaxAge returns the max age last written for name.
func (j *Jar) MaxAge(name string) int {
	return j.maxAge[name]
}

// Len returns the number of cookies held.
func (j *Jar) Len() int {
	return len(j.values)
}
