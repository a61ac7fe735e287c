package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSONObject is returned when the input contains no balanced {...} block
var ErrNoJSONObject = errors.New("no JSON object found")

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// DecodeLLMJSON decodes the first JSON object found in LLM output into target.
// The reply may contain:
// - Pure JSON
// - JSON wrapped in markdown code blocks (```json ... ```)
// - JSON with surrounding prose
// - Trailing commas, unquoted keys or single-quoted values
func DecodeLLMJSON(input string, target interface{}) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("empty input")
	}

	obj, err := ExtractJSONObject(input)
	if err != nil {
		return fmt.Errorf("%w in: %s", err, truncateString(input, 100))
	}

	if err := json.Unmarshal([]byte(obj), target); err == nil {
		return nil
	}

	// Try to clean and fix common JSON issues
	cleaned := cleanAndFixJSON(obj)
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("failed to parse JSON from input: %s: %w", truncateString(obj, 100), err)
	}
	return nil
}

// ExtractJSONObject returns the first balanced {...} block in input, ignoring
// braces inside string literals.
func ExtractJSONObject(input string) (string, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "\ufeff")

	for offset := 0; offset < len(input); {
		start := strings.IndexByte(input[offset:], '{')
		if start < 0 {
			break
		}
		start += offset
		if extracted := extractBalancedBraces(input[start:], '{', '}'); extracted != "" {
			return extracted, nil
		}
		// a stray unclosed brace in prose; retry from the next one
		offset = start + 1
	}
	return "", ErrNoJSONObject
}

// extractBalancedBraces extracts content with balanced braces
func extractBalancedBraces(input string, open, close rune) string {
	if len(input) == 0 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		if ch == '\\' {
			escape = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if ch == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// cleanAndFixJSON attempts to fix common JSON formatting issues
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)

	s = trailingCommaRe.ReplaceAllString(s, "$1")

	// {word: "value"} -> {"word": "value"}
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)

	s = fixSingleQuotes(s)

	return controlCharRe.ReplaceAllString(s, "")
}

// fixSingleQuotes converts single-quoted JSON strings to double-quoted ones.
// Apostrophes inside words are left alone.
func fixSingleQuotes(input string) string {
	var result strings.Builder
	inDouble := false
	inSingle := false
	escape := false
	var prev rune

	for _, ch := range input {
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '\'' && !inDouble:
			if inSingle {
				inSingle = false
				ch = '"'
			} else if isJSONDelimiter(prev) {
				inSingle = true
				ch = '"'
			}
		}
		result.WriteRune(ch)
		if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			prev = ch
		}
	}

	return result.String()
}

func isJSONDelimiter(r rune) bool {
	return r == 0 || r == ':' || r == ',' || r == '[' || r == '{'
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
