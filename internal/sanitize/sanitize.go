// Package sanitize classifies and repairs the JSON-ish bodies returned by the
// reference API and the LLM. Every JSON parse in the system goes through
// CleanJSON or SafeJSONParse so that HTML error pages and mangled model
// output never reach callers as raw parse errors.
package sanitize

import (
	"encoding/json"
	"errors"
	"strings"
)

// htmlSignatures are the markers that classify a body as an HTML document.
// Substring sniffing is a heuristic: a legitimate JSON payload containing
// "<html" inside a string field is misclassified. Accepted limitation.
var htmlSignatures = []string{
	"<html",
	"<!doctype",
	"<body",
	"<head",
	"<div",
	"<script",
}

// IsHTMLResponse reports whether body looks like an HTML document rather than
// JSON. It must be consulted before attempting any JSON parse.
func IsHTMLResponse(body string) bool {
	if body == "" {
		return false
	}
	lower := strings.ToLower(body)
	for _, sig := range htmlSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// ErrUnparseable is returned by CleanJSON when no stage of the repair
// pipeline produces valid JSON.
var ErrUnparseable = errors.New("sanitize: body is not repairable JSON")

// ErrHTMLBody is returned by CleanJSON when the body looks like an HTML
// document rather than JSON.
var ErrHTMLBody = errors.New("sanitize: body looks like HTML")

// CleanJSON normalizes raw into parseable JSON text through a staged repair
// pipeline. The pipeline is deterministic and side-effect-free:
//
//  1. reject empty input
//  2. reject HTML-shaped input
//  3. strip markdown code fences
//  4. strip control characters
//  5. validate; on failure extract the outermost {...} and validate again
//  6. repair syntax (trailing commas, bare keys, single quotes, unclosed
//     delimiters) and validate one last time
func CleanJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrUnparseable
	}
	if IsHTMLResponse(text) {
		return "", ErrHTMLBody
	}

	text = stripCodeFence(text)
	text = stripControlChars(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrUnparseable
	}

	if json.Valid([]byte(text)) {
		return text, nil
	}

	if extracted, ok := extractObject(text); ok {
		if json.Valid([]byte(extracted)) {
			return extracted, nil
		}
		text = extracted
	}

	repaired := repairSyntax(text)
	if json.Valid([]byte(repaired)) {
		return repaired, nil
	}

	return "", ErrUnparseable
}

// SafeJSONParse parses raw through CleanJSON and returns the decoded value,
// or def when raw is empty, HTML-shaped, or unrepairable.
func SafeJSONParse(raw string, def any) any {
	text, err := CleanJSON(raw)
	if err != nil {
		return def
	}
	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return def
	}
	return out
}

// stripCodeFence removes a leading ```json or ``` fence and its closing ```.
func stripCodeFence(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// stripControlChars drops U+0000–U+001F and U+007F–U+009F. Unescaped control
// characters are invalid inside JSON strings anyway; escaped ones (\n written
// as backslash-n) are two printable bytes and pass through untouched.
func stripControlChars(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
			return -1
		}
		return r
	}, text)
}

// extractObject slices from the first '{' to the last '}' (greedy). Returns
// false when no object-shaped span exists.
func extractObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1], true
	}
	return "", false
}

// repairSyntax applies the lenient-JSON fixes in sequence: single-quoted
// strings to double-quoted, bare object keys quoted, trailing commas removed,
// unclosed delimiters closed.
func repairSyntax(text string) string {
	text = normalizeQuotes(text)
	text = quoteBareKeys(text)
	text = stripTrailingCommas(text)
	text = closeUnclosed(text)
	return text
}

// normalizeQuotes rewrites single-quoted strings as double-quoted ones.
// Inside a converted string, embedded double quotes are escaped and \' becomes
// a plain apostrophe. Existing double-quoted strings pass through untouched.
func normalizeQuotes(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inDouble := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inDouble {
			b.WriteByte(c)
			if escape {
				escape = false
				continue
			}
			if c == '\\' {
				escape = true
				continue
			}
			if c == '"' {
				inDouble = false
			}
			continue
		}

		if c == '"' {
			inDouble = true
			b.WriteByte(c)
			continue
		}

		if c != '\'' {
			b.WriteByte(c)
			continue
		}

		// Single-quoted string: convert to double-quoted.
		b.WriteByte('"')
		i++
		for i < len(text) {
			c = text[i]
			if c == '\\' && i+1 < len(text) && text[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			if c == '\'' {
				break
			}
			if c == '"' {
				b.WriteString(`\"`)
				i++
				continue
			}
			b.WriteByte(c)
			i++
		}
		b.WriteByte('"')
	}

	return b.String()
}

// quoteBareKeys wraps unquoted object keys in double quotes. A bare key is an
// identifier run following '{' or ',' (outside strings) and followed by ':'.
func quoteBareKeys(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 16)

	inString := false
	escape := false
	expectKey := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			b.WriteByte(c)
			if escape {
				escape = false
			} else if c == '\\' {
				escape = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			expectKey = false
			b.WriteByte(c)
		case c == '{' || c == ',':
			expectKey = true
			b.WriteByte(c)
		case expectKey && isIdentStart(c):
			j := i
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			// Only a key when the next non-space byte is ':'.
			k := j
			for k < len(text) && (text[k] == ' ' || text[k] == '\t') {
				k++
			}
			if k < len(text) && text[k] == ':' {
				b.WriteByte('"')
				b.WriteString(text[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(text[i:j])
			}
			i = j - 1
			expectKey = false
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(c)
		default:
			expectKey = false
			b.WriteByte(c)
		}
	}

	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// stripTrailingCommas removes commas that directly precede '}' or ']'.
func stripTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			b.WriteByte(c)
			if escape {
				escape = false
			} else if c == '\\' {
				escape = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue // drop the comma
			}
		}

		b.WriteByte(c)
	}

	return b.String()
}

// closeUnclosed appends closing delimiters for any brackets or braces left
// open, trimming a dangling comma first. Handles truncated model output.
func closeUnclosed(text string) string {
	if len(text) == 0 {
		return text
	}

	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escape {
			escape = false
			continue
		}
		if c == '\\' && inString {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		text = strings.TrimRight(text, " \t\n\r,")
		text += string(stack[i])
	}

	return text
}
