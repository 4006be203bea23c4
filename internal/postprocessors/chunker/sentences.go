package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences is the default SentenceSplitter.
// Every line is at least one sentence. Within a line, a break follows '.', '!'
// or '?' when whitespace and then an upper-case letter, digit, quote or
// opening bracket come next.
func SplitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, splitLine(line)...)
	}
	return out
}

func splitLine(line string) []string {
	var out []string
	start := 0

	for i := 0; i < len(line); i++ {
		if !isTerminal(line[i]) {
			continue
		}
		j := i + 1
		for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
			j++
		}
		if j == i+1 || j >= len(line) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(line[j:])
		if !opensSentence(r) {
			continue
		}
		if s := strings.TrimSpace(line[start : i+1]); s != "" {
			out = append(out, s)
		}
		start = j
		i = j - 1
	}

	if s := strings.TrimSpace(line[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func opensSentence(r rune) bool {
	if unicode.IsUpper(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '"', '\'', '(', '[', '“', '‘':
		return true
	}
	return false
}
