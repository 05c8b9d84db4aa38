// Package sanitize strips markup from user-supplied comment text before it
// reaches the comment engine.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policy reduces raw input to plain text: all tags removed, entities
// decoded, whitespace trimmed.
type Policy struct {
	p *bluemonday.Policy
}

func New() *Policy {
	return &Policy{p: bluemonday.StrictPolicy()}
}

func (s *Policy) Strip(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.p.Sanitize(raw)))
}
