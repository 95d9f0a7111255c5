package assignment

import (
	"html/template"
	"strconv"
	"strings"
)

// Snippet returns the analytics commands reporting this request's variations,
// one `ga('set', 'exp', '<id>.<index>');` line per assignment in assignment
// order. The result is trusted markup for embedding in a page's analytics tag.
func (c *Context) Snippet() template.HTML {
	var b strings.Builder
	for _, a := range c.Assignments() {
		b.WriteString("ga('set', 'exp', '")
		b.WriteString(template.JSEscapeString(a.ExperimentID))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(a.Index))
		b.WriteString("');\n")
	}
	return template.HTML(b.String()) //nolint:gosec // ids are operator configured and JS-escaped
}
