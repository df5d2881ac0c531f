// JSON extraction from free-form model output. Models wrap answers in
// prose and markdown fences no matter how firmly the prompt forbids it,
// so parsing always goes through here rather than straight Unmarshal.
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoObject means the response contained no balanced JSON object.
	ErrNoObject = errors.New("no JSON object in response")
	// ErrNoArray means the response contained no balanced JSON array.
	ErrNoArray = errors.New("no JSON array in response")
)

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	plusNumber    = regexp.MustCompile(`:\s*\+(\d+)`)
)

// ExtractObject finds the first balanced JSON object in raw and
// unmarshals it into v. Markdown fences and trailing commas are
// tolerated. Returns ErrNoObject when no object is present.
func ExtractObject(raw string, v any) error {
	s := sanitize(raw)
	obj, ok := balancedSlice(s, '{', '}')
	if !ok {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("parse extracted object: %w", err)
	}
	return nil
}

// ExtractArray finds the first balanced JSON array in raw and
// unmarshals it into v. Returns ErrNoArray when no array is present.
func ExtractArray(raw string, v any) error {
	s := sanitize(raw)
	arr, ok := balancedSlice(s, '[', ']')
	if !ok {
		return ErrNoArray
	}
	if err := json.Unmarshal([]byte(arr), v); err != nil {
		return fmt.Errorf("parse extracted array: %w", err)
	}
	return nil
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = trailingComma.ReplaceAllString(s, "$1")
	// Models write explicit-positive numbers ("affectionChange": +5),
	// which JSON does not allow.
	s = plusNumber.ReplaceAllString(s, ": $1")
	return strings.TrimSpace(s)
}

// balancedSlice returns the substring from the first open delimiter to
// its matching close, tracking string literals so delimiters inside
// quoted text don't affect the depth count.
func balancedSlice(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case open:
			if !inString {
				depth++
			}
		case close:
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
