package formatting

import (
	"regexp"
	"strings"
)

var fenceRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\n?```")

// TrimBOM removes a leading UTF-8 byte order mark.
func TrimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

// StripFences returns the body of the first markdown code fence in s.
// An unterminated opening fence yields everything after it.
func StripFences(s string) (string, bool) {
	if m := fenceRegex.FindStringSubmatch(s); len(m) >= 2 {
		return strings.TrimSpace(m[1]), true
	}

	idx := strings.Index(s, "```")
	if idx < 0 {
		return s, false
	}

	rest := s[idx+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
		rest = rest[nl+1:]
	}
	return strings.TrimSpace(rest), true
}

// ExtractBalanced returns the substring from the first '{' or '[' to its
// matching close, skipping brackets inside string literals.
func ExtractBalanced(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}

	var stack []byte
	inString, escaped := false, false

	for i := start; i < len(s); i++ {
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
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 || !matches(stack[len(stack)-1], c) {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// RemoveTrailingCommas drops commas that directly precede a closing
// bracket or brace, leaving string contents untouched.
func RemoveTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false

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
			b.WriteByte(c)
			continue
		}

		if c == '"' {
			inString = true
		}

		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}

		b.WriteByte(c)
	}

	return b.String()
}

// SalvageTruncated repairs a document cut off mid-stream by trimming back to
// the last complete element and closing every bracket still open at that point.
// Returns false when no complete element exists to salvage.
func SalvageTruncated(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}

	var (
		stack     []byte
		safeEnd   = -1
		safeStack []byte
	)
	inString, escaped := false, false

	for i := start; i < len(s); i++ {
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
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 || !matches(stack[len(stack)-1], c) {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
			safeEnd = i + 1
			safeStack = append(safeStack[:0], stack...)
		case ',':
			safeEnd = i
			safeStack = append(safeStack[:0], stack...)
		}
	}

	if safeEnd < 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString(strings.TrimRightFunc(s[start:safeEnd], func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\r' || r == '\t'
	}))
	for i := len(safeStack) - 1; i >= 0; i-- {
		b.WriteByte(closer(safeStack[i]))
	}

	return b.String(), true
}

func matches(open, close byte) bool {
	return (open == '{' && close == '}') || (open == '[' && close == ']')
}

func closer(open byte) byte {
	if open == '{' {
		return '}'
	}
	return ']'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}
