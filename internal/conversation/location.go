package conversation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// A location prefix ends at the first `.`, `:` or `;` followed by
// whitespace and a non-digit. Requiring the non-digit keeps numeric road
// abbreviations like "Rv. 3" in one piece.
var terminatorPattern = regexp.MustCompile(`[.:;]\s[^0-9]`)

// ExtractLocation derives the shared location prefix of a thread and the
// per-message display texts with that prefix stripped. The thread-level
// prefix governs both: for a single message it is that message's own
// terminator-scan prefix, for several it is their common prefix, truncated
// at a terminator when one appears inside it.
func ExtractLocation(texts []string) (string, []string) {
	var prefix string
	switch len(texts) {
	case 0:
		return "", nil
	case 1:
		if idx := terminatorIndex(texts[0]); idx >= 0 {
			prefix = texts[0][:idx]
		}
	default:
		prefix = commonPrefix(texts)
		if idx := terminatorIndex(prefix); idx >= 0 {
			prefix = prefix[:idx]
		}
	}

	display := make([]string, len(texts))
	for i, text := range texts {
		display[i] = displayText(text, prefix)
	}
	return normalizeLocation(prefix), display
}

// terminatorIndex returns the byte offset of the first terminator match,
// or -1.
func terminatorIndex(text string) int {
	if match := terminatorPattern.FindStringIndex(text); match != nil {
		return match[0]
	}
	return -1
}

// commonPrefix returns the longest character-wise common prefix.
func commonPrefix(texts []string) string {
	prefix := []rune(texts[0])
	for _, text := range texts[1:] {
		runes := []rune(text)
		if len(runes) < len(prefix) {
			prefix = prefix[:len(runes)]
		}
		for i := range prefix {
			if runes[i] != prefix[i] {
				prefix = prefix[:i]
				break
			}
		}
	}
	return string(prefix)
}

// normalizeLocation trims trailing separators and drops hashtag markers.
func normalizeLocation(prefix string) string {
	trimmed := strings.TrimRight(prefix, " ,:;.")
	return strings.ReplaceAll(trimmed, "#", "")
}

// displayText strips the thread prefix from a message, trims leading
// punctuation and capitalizes the first character.
func displayText(text, prefix string) string {
	if prefix != "" {
		text = strings.TrimPrefix(text, prefix)
	}
	text = strings.TrimLeft(text, " \t.,:;-")
	return capitalize(text)
}

func capitalize(text string) string {
	if text == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToUpper(first)) + text[size:]
}
