package ddl

import (
	"strings"
)

// splitSQL splits a script into statements on top-level semicolons. Quoted
// strings, quoted identifiers, dollar-quoted bodies and comments are kept
// intact; comment-only statements are dropped.
func splitSQL(script string) []string {
	var (
		statements []string
		current    strings.Builder
		hasCode    bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" && hasCode {
			statements = append(statements, stmt)
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(script); {
		c := script[i]
		switch {
		case c == '-' && strings.HasPrefix(script[i:], "--"):
			end := strings.IndexByte(script[i:], '\n')
			if end == -1 {
				end = len(script) - i
			}
			i += end
		case c == '/' && strings.HasPrefix(script[i:], "/*"):
			end := strings.Index(script[i+2:], "*/")
			if end == -1 {
				i = len(script)
			} else {
				i += end + 4
			}
			current.WriteByte(' ')
		case c == '\'' || c == '"':
			end := closingQuote(script, i)
			current.WriteString(script[i:end])
			hasCode = true
			i = end
		case c == '$':
			if tag, ok := dollarTag(script[i:]); ok {
				body := strings.Index(script[i+len(tag):], tag)
				end := len(script)
				if body != -1 {
					end = i + len(tag) + body + len(tag)
				}
				current.WriteString(script[i:end])
				hasCode = true
				i = end
				continue
			}
			current.WriteByte(c)
			hasCode = true
			i++
		case c == ';':
			flush()
			i++
		default:
			current.WriteByte(c)
			if c != ' ' && c != '\n' && c != '\t' && c != '\r' {
				hasCode = true
			}
			i++
		}
	}
	flush()
	return statements
}

// closingQuote returns the index just past the quote that closes the one at
// start. Doubled quotes are escapes.
func closingQuote(s string, start int) int {
	q := s[start]
	for i := start + 1; i < len(s); i++ {
		if s[i] != q {
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

// dollarTag recognizes $$ or $tag$ at the start of s.
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '$':
			return s[:i+1], true
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 1 && c >= '0' && c <= '9':
		default:
			return "", false
		}
	}
	return "", false
}
