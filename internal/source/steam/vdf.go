package steam

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// KeyValues is a parsed Valve KeyValues block. Values are either strings or
// nested KeyValues.
type KeyValues map[string]any

// Block returns the nested block at key, matching keys case-insensitively
// as Steam does.
func (kv KeyValues) Block(key string) (KeyValues, bool) {
	v, ok := kv.lookup(key)
	if !ok {
		return nil, false
	}
	b, ok := v.(KeyValues)
	return b, ok
}

// String returns the string value at key, or "" when absent
func (kv KeyValues) String(key string) string {
	v, _ := kv.lookup(key)
	s, _ := v.(string)
	return s
}

func (kv KeyValues) lookup(key string) (any, bool) {
	if v, ok := kv[key]; ok {
		return v, true
	}
	for k, v := range kv {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// ParseKeyValues reads text KeyValues (libraryfolders.vdf, appmanifest_*.acf)
func ParseKeyValues(r io.Reader) (KeyValues, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	scanner.Split(scanTokens)

	p := &kvParser{}
	for scanner.Scan() {
		p.tokens = append(p.tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keyvalues: %w", err)
	}
	return p.block(true)
}

type kvParser struct {
	tokens []string
	pos    int
}

func (p *kvParser) block(top bool) (KeyValues, error) {
	out := KeyValues{}
	for p.pos < len(p.tokens) {
		key := p.tokens[p.pos]
		p.pos++
		if key == "}" {
			if top {
				return nil, fmt.Errorf("keyvalues: unexpected }")
			}
			return out, nil
		}
		if p.pos >= len(p.tokens) {
			return nil, fmt.Errorf("keyvalues: unexpected end after key %q", key)
		}

		if p.tokens[p.pos] == "{" {
			p.pos++
			inner, err := p.block(false)
			if err != nil {
				return nil, err
			}
			out[key] = inner
			continue
		}
		out[key] = p.tokens[p.pos]
		p.pos++
	}
	if !top {
		return nil, fmt.Errorf("keyvalues: unclosed block")
	}
	return out, nil
}

// scanTokens yields quoted strings without their quotes, bare words and
// the braces. Line comments are skipped.
func scanTokens(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for {
		for start < len(data) && unicode.IsSpace(rune(data[start])) {
			start++
		}
		if start+1 < len(data) && data[start] == '/' && data[start+1] == '/' {
			end := start
			for end < len(data) && data[end] != '\n' {
				end++
			}
			if end == len(data) && !atEOF {
				return start, nil, nil
			}
			start = end
			continue
		}
		break
	}
	if start >= len(data) {
		return start, nil, nil
	}
	rest := data[start:]

	switch rest[0] {
	case '{', '}':
		return start + 1, rest[:1], nil
	case '"':
		var sb strings.Builder
		for i := 1; i < len(rest); i++ {
			switch rest[i] {
			case '\\':
				if i+1 < len(rest) {
					i++
					sb.WriteByte(unescape(rest[i]))
				}
			case '"':
				return start + i + 1, []byte(sb.String()), nil
			default:
				sb.WriteByte(rest[i])
			}
		}
		if atEOF {
			return 0, nil, fmt.Errorf("keyvalues: unclosed quote")
		}
		return start, nil, nil
	}

	i := 0
	for i < len(rest) && !unicode.IsSpace(rune(rest[i])) && rest[i] != '"' && rest[i] != '{' && rest[i] != '}' {
		i++
	}
	if i == len(rest) && !atEOF {
		return start, nil, nil
	}
	return start + i, rest[:i], nil
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	default:
		return c
	}
}
