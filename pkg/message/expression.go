package message

import "strings"

const (
	exprOpen  = "${"
	exprClose = "}"
)

// EvalExpression substitutes every ${path} span in expr with the text form
// of the message field at that path. Unresolved paths substitute "". An
// unterminated "${" is copied through literally.
func (m *Message) EvalExpression(expr string) string {
	if !strings.Contains(expr, exprOpen) {
		return expr
	}

	var b strings.Builder
	b.Grow(len(expr))

	rest := expr
	for {
		start := strings.Index(rest, exprOpen)
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(exprOpen):], exprClose)
		if end < 0 {
			b.WriteString(rest)
			break
		}

		b.WriteString(rest[:start])
		path := strings.TrimSpace(rest[start+len(exprOpen) : start+len(exprOpen)+end])
		if v, ok := m.Lookup(path); ok {
			b.WriteString(Text(v))
		}
		rest = rest[start+len(exprOpen)+end+len(exprClose):]
	}

	return b.String()
}

// IsExpression reports whether s contains at least one ${...} span.
func IsExpression(s string) bool {
	start := strings.Index(s, exprOpen)
	return start >= 0 && strings.Contains(s[start:], exprClose)
}
