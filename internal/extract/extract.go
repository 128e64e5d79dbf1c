// Package extract recovers a JSON object from free-form model replies and
// turns it into a normalized listing record.
package extract

import (
	"encoding/json"
	"strings"

	"occasioncheck/internal/errs"
)

// ExtractJSON returns the candidate JSON object text contained in raw.
//
// Markdown fences are stripped first. The first complete, parseable object
// found by a string-aware brace scanner, starting at any '{', wins; otherwise
// the text between the first '{' and the last '}' is returned as is and
// parsing is left to the validator. A reply without any '{' fails with
// NoJsonFound.
func ExtractJSON(raw string) (string, error) {
	cleaned := stripFences(raw)

	start := strings.Index(cleaned, "{")
	if start == -1 {
		return "", noJSON(raw)
	}

	// A balanced but unparseable span, such as "{geen}" in prose, is skipped
	// whole so objects nested inside it are never picked on their own.
	for i := start; i < len(cleaned); {
		obj, ok := firstBalancedObject(cleaned[i:])
		if !ok {
			break
		}
		if json.Valid([]byte(obj)) {
			return obj, nil
		}
		next := strings.IndexByte(cleaned[i+len(obj):], '{')
		if next == -1 {
			break
		}
		i += len(obj) + next
	}

	end := strings.LastIndex(cleaned, "}")
	if end <= start {
		return "", noJSON(raw)
	}
	return cleaned[start : end+1], nil
}

func noJSON(raw string) error {
	return errs.New(errs.CodeNoJSONFound, "the AI returned an unexpected answer that contained no JSON data").
		WithDiagnostic(raw)
}

// stripFences removes a leading ```/```json marker line and a trailing ```
// marker.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl != -1 {
			// language tag, e.g. "json"
			if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{}") {
				s = s[nl+1:]
			}
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// firstBalancedObject scans s, which must start with '{', and returns the
// first complete object. Braces inside JSON strings are ignored.
func firstBalancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
