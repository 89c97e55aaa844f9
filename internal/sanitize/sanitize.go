// Package sanitize reduces user-submitted form values to plain text before
// they are stored. Uses bluemonday's strict policy, which drops every tag
// (and the bodies of script/style elements), then unescapes the entities
// bluemonday emits so the stored value is the literal text. Output escaping
// stays the job of html/template at render time.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy. bluemonday policies are safe for
// concurrent use once built.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all markup from input and trims surrounding whitespace.
func Text(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(input)))
}
