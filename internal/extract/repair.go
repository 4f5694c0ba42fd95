package extract

import (
	"errors"
	"strings"
	"unicode"
)

// ErrParse marks an LLM response that stayed unparseable or schema-incomplete
// after the repair pass. Fatal for the job, not the batch.
var ErrParse = errors.New("extract: unparseable llm response")

// StripFences removes a markdown code-fence wrapper (``` or ```json) around
// the response body, if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// drop the language tag on the opening fence line
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{[") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// RepairJSON escapes unescaped double quotes inside string values so a
// response like {"title": "The "Best" Grant"} parses. A quote inside a
// string is treated as closing only when the next non-space rune is a
// structural character; anything else gets escaped.
func RepairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	inString := false
	escaped := false

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if escaped {
			b.WriteRune(c)
			escaped = false
			continue
		}
		if inString && c == '\\' {
			b.WriteRune(c)
			escaped = true
			continue
		}
		if c != '"' {
			b.WriteRune(c)
			continue
		}

		if !inString {
			inString = true
			b.WriteRune(c)
			continue
		}

		// Inside a string: closing quote or stray quote?
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j >= len(runes) {
			inString = false
			b.WriteRune(c)
			continue
		}
		switch runes[j] {
		case ',', '}', ']', ':':
			inString = false
			b.WriteRune(c)
		default:
			b.WriteString(`\"`)
		}
	}

	return b.String()
}
