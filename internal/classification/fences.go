package classification

import (
	"encoding/json"
	"strings"
)

// StripFences removes markdown code fences (```json ... ```) and any prose
// around the payload. If the unwrapped text is not valid JSON on its own it
// falls back to the first balanced JSON object. The returned string may still
// be invalid JSON; callers must check.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		// drop the opening fence line, including any language tag
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimLeft(s, "`")
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}

	if json.Valid([]byte(s)) {
		return s
	}
	if obj := firstObject(s); obj != "" {
		return obj
	}
	return s
}

// firstObject returns the first balanced {...} in s, skipping braces that
// appear inside JSON strings.
func firstObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	// no balanced object
	return ""
}
