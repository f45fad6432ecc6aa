package sentiment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// LanguageSwitchAnalyzer tags tokens as belonging to one of exactly two
// languages and counts how often a text switches between them. A token
// is tagged TagNative when any of its runes falls inside the configured
// script range; everything else, including punctuation and digits, is
// tagged TagLatin.
type LanguageSwitchAnalyzer struct {
	script *unicode.RangeTable
}

// NewLanguageSwitchAnalyzer builds an analyzer for the given native
// script ranges. With no arguments it detects Devanagari, covering the
// common Hindi-English code-mixing case.
func NewLanguageSwitchAnalyzer(scripts ...*unicode.RangeTable) *LanguageSwitchAnalyzer {
	if len(scripts) == 0 {
		scripts = []*unicode.RangeTable{unicode.Devanagari}
	}
	return &LanguageSwitchAnalyzer{script: rangetable.Merge(scripts...)}
}

// DetectScript classifies a single token.
func (a *LanguageSwitchAnalyzer) DetectScript(token string) ScriptTag {
	for _, r := range token {
		if unicode.Is(a.script, r) {
			return TagNative
		}
	}
	return TagLatin
}

// CountSwitches returns the number of adjacent-token language-tag
// transitions in text. Texts with fewer than two whitespace-separated
// tokens, including the empty string, yield 0.
func (a *LanguageSwitchAnalyzer) CountSwitches(text string) int {
	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return 0
	}

	switches := 0
	prev := a.DetectScript(tokens[0])
	for _, token := range tokens[1:] {
		tag := a.DetectScript(token)
		if tag != prev {
			switches++
		}
		prev = tag
	}
	return switches
}
