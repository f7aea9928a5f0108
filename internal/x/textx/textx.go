package textx

import (
	stdhtml "html"
	"regexp"
	"strings"
)

// PreviewString trims s and returns at most maxRunes runes, appending an ellipsis when truncated.
func PreviewString(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "…"
}

var htmlTagRe = regexp.MustCompile(`(?is)<[^>]*>`)

// CleanText normalizes a possibly-HTML string into a single-line plain text.
// It unescapes HTML entities, strips HTML tags, and collapses whitespace.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = stdhtml.UnescapeString(s)
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}

var sentenceTerminators = []rune{'.', '!', '?', '。', '！', '？', '…'}

// TruncatePost normalizes generated text and fits it to the platform limit.
// budget is the target length, ceiling the hard platform wall, both in
// runes. The ladder: restore escaped newlines and trim; text within the
// budget passes unchanged; text over the ceiling is cut back to its last
// newline; text still over the budget is cut back to the last sentence
// terminator, retried once while the result stays over the ceiling; anything
// still over the ceiling is hard-cut to exactly budget runes. A terminator
// cut landing between budget and ceiling stands.
func TruncatePost(s string, budget, ceiling int) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.TrimSpace(s)
	if budget <= 0 {
		return s
	}
	if ceiling < budget {
		ceiling = budget
	}

	r := []rune(s)
	if len(r) <= budget {
		return s
	}

	if len(r) > ceiling {
		if i := lastNewline(r); i > 0 {
			r = r[:i]
		}
	}

	if len(r) > budget {
		for attempt := 0; attempt < 2; attempt++ {
			i := lastTerminator(r[:len(r)-1])
			if i < 0 {
				break
			}
			r = r[:i+1]
			if len(r) <= ceiling {
				break
			}
		}
	}

	if len(r) > ceiling {
		r = r[:budget]
	}
	return strings.TrimSpace(string(r))
}

func lastNewline(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == '\n' {
			return i
		}
	}
	return -1
}

func lastTerminator(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		for _, t := range sentenceTerminators {
			if r[i] == t {
				return i
			}
		}
	}
	return -1
}
