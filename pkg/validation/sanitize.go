package validation

import (
	"regexp"
	"strings"
)

var (
	scriptTag = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	htmlTag   = regexp.MustCompile(`<[^>]+>`)
)

// Sanitize strips script blocks and markup tags and trims surrounding space.
func Sanitize(s string) string {
	s = scriptTag.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
