package sentiment

import (
	"regexp"
	"strings"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	punctRunRE   = regexp.MustCompile(`(!)!+|(\?)\?+|(\.)\.+`)
)

// Normalize cleans raw comment text: leading/trailing whitespace is
// trimmed, internal whitespace runs collapse to a single space, and runs
// of a repeated terminal punctuation mark ("!!!", "??", "...") collapse
// to one occurrence. The function is idempotent.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	text = whitespaceRE.ReplaceAllString(text, " ")
	text = punctRunRE.ReplaceAllString(text, "$1$2$3")
	return text
}
