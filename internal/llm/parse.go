package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

// ParseIntentReply decodes the model's intent JSON into an IntentReply.
// Tolerates markdown fences, surrounding prose, and trailing commas; field
// coercion is handled by model.IntentFromMap. A response with no JSON object
// at all is an error.
func ParseIntentReply(raw string) (*model.IntentReply, error) {
	text := extractObject(cleanFences(raw))
	if text == "" {
		return nil, fmt.Errorf("no JSON object in model response: %s", truncate(raw, 200))
	}

	m := map[string]any{}
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		// Some models emit trailing commas; retry once with them stripped.
		if err2 := json.Unmarshal([]byte(stripTrailingCommas(text)), &m); err2 != nil {
			return nil, fmt.Errorf("decode model response: %w", err)
		}
	}

	out := &model.IntentReply{Intent: model.IntentFromMap(m)}
	if reply, ok := m["reply"].(string); ok {
		out.Reply = strings.TrimSpace(reply)
	} else if reply, ok := m["response"].(string); ok {
		out.Reply = strings.TrimSpace(reply)
	}
	return out, nil
}

// cleanFences strips markdown code fences and surrounding whitespace.
func cleanFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced {...} in s, or "" when none
// exists. Brace counting ignores braces inside JSON strings.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// stripTrailingCommas removes commas that directly precede a closing brace
// or bracket, outside of strings.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
