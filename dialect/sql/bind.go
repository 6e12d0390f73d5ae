package sql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/recordstore/dialect"
)

// Bind rewrites the @name parameter markers of query into the form the
// dialect's driver expects and returns the matching argument list.
//
//   - BindNamed keeps the markers and returns one sql.NamedArg per distinct name.
//   - BindDollar numbers each distinct name once ($1, $2, ...) in order of first use.
//   - BindQuestion replaces every occurrence with ? and repeats the value.
//
// String literals, quoted identifiers, -- and /* */ comments and
// @@variables are left untouched. A marker without a value in params is an error.
func Bind(d *dialect.Dialect, query string, params map[string]any) (string, []any, error) {
	var (
		b     strings.Builder
		args  []any
		index = make(map[string]int)
	)
	b.Grow(len(query))
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' ||
			(c == '[' && d.Quoting == dialect.QuoteBracket) ||
			(c == '`' && d.Quoting == dialect.QuoteBacktick):
			end := skipQuoted(query, i)
			b.WriteString(query[i:end])
			i = end
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i
			}
			b.WriteString(query[i : i+end])
			i += end
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				end = len(query)
			} else {
				end += i + 4
			}
			b.WriteString(query[i:end])
			i = end
		case c == '@' && i+1 < len(query) && query[i+1] == '@':
			end := i + 2
			for end < len(query) && isNameByte(query[end]) {
				end++
			}
			b.WriteString(query[i:end])
			i = end
		case c == '@' && i+1 < len(query) && isNameStart(query[i+1]):
			end := i + 2
			for end < len(query) && isNameByte(query[end]) {
				end++
			}
			name := query[i+1 : end]
			v, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("dialect/sql: parameter @%s is not declared", name)
			}
			switch d.Binding {
			case dialect.BindNamed:
				if _, seen := index[name]; !seen {
					index[name] = len(args)
					args = append(args, sql.Named(name, v))
				}
				b.WriteString(query[i:end])
			case dialect.BindDollar:
				n, seen := index[name]
				if !seen {
					args = append(args, v)
					n = len(args)
					index[name] = n
				}
				b.WriteByte('$')
				b.WriteString(strconv.Itoa(n))
			default:
				args = append(args, v)
				b.WriteByte('?')
			}
			i = end
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), args, nil
}

// skipQuoted returns the index just past the quoted section starting at i.
// Doubled closing characters are treated as escapes.
func skipQuoted(s string, i int) int {
	closing := s[i]
	if closing == '[' {
		closing = ']'
	}
	for j := i + 1; j < len(s); j++ {
		if s[j] != closing {
			continue
		}
		if j+1 < len(s) && s[j+1] == closing {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
