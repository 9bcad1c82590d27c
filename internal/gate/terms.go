package gate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// patternPrefix marks a denylist entry as a regular expression matched
// against whole words.
const patternPrefix = "re:"

// TermMatcher finds denylisted words and phrases in a transcript. Matching is
// on whole words after Unicode normalization and case folding, so a term never
// matches inside a longer word. An allowlisted word never matches a single-word
// entry or a pattern, but multi-word phrases still match through it.
type TermMatcher struct {
	phrases  []string
	patterns []*regexp.Regexp
	labels   []string
	allow    map[string]struct{}
}

// NewTermMatcher compiles a denylist and allowlist. Denylist entries are plain
// words or phrases, or "re:" followed by a pattern for a single word.
func NewTermMatcher(deny, allow []string) (*TermMatcher, error) {
	m := &TermMatcher{allow: make(map[string]struct{})}
	for _, entry := range deny {
		entry = strings.TrimSpace(entry)
		if pattern, ok := strings.CutPrefix(entry, patternPrefix); ok {
			re, err := regexp.Compile(`^(?i:` + pattern + `)$`)
			if err != nil {
				return nil, fmt.Errorf("invalid denylist pattern %q: %w", pattern, err)
			}
			m.patterns = append(m.patterns, re)
			m.labels = append(m.labels, entry)
			continue
		}
		if phrase := strings.Join(Words(entry), " "); phrase != "" {
			m.phrases = append(m.phrases, phrase)
		}
	}
	for _, entry := range allow {
		for _, w := range Words(entry) {
			m.allow[w] = struct{}{}
		}
	}
	return m, nil
}

// Match returns the denylist entries found in text, in denylist order.
func (m *TermMatcher) Match(text string) []string {
	words := Words(text)
	padded := " " + strings.Join(words, " ") + " "

	var matched []string
	for _, phrase := range m.phrases {
		if strings.Contains(phrase, " ") {
			if strings.Contains(padded, " "+phrase+" ") {
				matched = append(matched, phrase)
			}
			continue
		}
		for _, w := range words {
			if w == phrase && !m.allowed(w) {
				matched = append(matched, phrase)
				break
			}
		}
	}
	for i, re := range m.patterns {
		for _, w := range words {
			if !m.allowed(w) && re.MatchString(w) {
				matched = append(matched, m.labels[i])
				break
			}
		}
	}
	return matched
}

func (m *TermMatcher) allowed(word string) bool {
	_, ok := m.allow[word]
	return ok
}

// Words splits text into normalized, case-folded words. Apostrophes inside a
// word are kept.
func Words(text string) []string {
	folded := cases.Fold().String(norm.NFKC.String(text))
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\'' && r != '’'
	})
	words := fields[:0]
	for _, f := range fields {
		f = strings.Trim(strings.ReplaceAll(f, "’", "'"), "'")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}
