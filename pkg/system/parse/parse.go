// Package parse implements the virtual file formats used by cgroup and
// procfs pseudo-files. See Documentation/admin-guide/cgroup-v2.rst for
// examples of the formats handled here.
//
// All functions are pure: they take text already read from a file and
// perform no I/O.
package parse

import (
	"fmt"
	"strings"
)

// KV is one key/value pair parsed from a keyed line.
type KV struct {
	Key   string
	Value string
}

// NLSV splits a "new-line separated values" file into lines. A trailing
// newline does not produce a final empty line.
func NLSV(text string) []string {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// OneNLSV returns the single line of a one-line pseudo-file, failing
// if the file has any other number of lines.
func OneNLSV(text string) (string, error) {
	lines := NLSV(text)
	if len(lines) != 1 {
		return "", fmt.Errorf("%w: expected 1, got %d lines", ErrFormat, len(lines))
	}
	return lines[0], nil
}

// SpaceSep splits a line into space separated tokens. Runs of spaces do
// not produce empty tokens; an empty line yields no tokens.
func SpaceSep(line string) []string {
	var tokens []string
	for _, tok := range strings.Split(line, " ") {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// FlatKeyed parses a "flat keyed" line of exactly two space separated
// tokens, e.g. "user_usec 10827674051".
func FlatKeyed(line string) (KV, error) {
	tokens := SpaceSep(line)
	if len(tokens) != 2 {
		return KV{}, fmt.Errorf("%w: expected 2 tokens in flat keyed line, found %d", ErrFormat, len(tokens))
	}
	return KV{Key: tokens[0], Value: tokens[1]}, nil
}

// NestedKeyed parses a "nested keyed" line such as
//
//	253952 anon=0 file=12288 kernel=0
//
// The first token is a bare value and is returned under the synthetic
// subkey "key"; every following token must be subkey=value with exactly
// one "=".
func NestedKeyed(line string) ([]KV, error) {
	tokens := SpaceSep(line)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty nested keyed line", ErrFormat)
	}

	pairs := make([]KV, 0, len(tokens))
	pairs = append(pairs, KV{Key: "key", Value: tokens[0]})

	for _, tok := range tokens[1:] {
		k, v, found := strings.Cut(tok, "=")
		if !found || k == "" || v == "" || strings.Contains(v, "=") {
			return nil, fmt.Errorf("%w: expected one subkey=value in nested keyed line token %q", ErrFormat, tok)
		}
		pairs = append(pairs, KV{Key: k, Value: v})
	}

	return pairs, nil
}

// KeyEqualsQuotedValue parses a `key="quoted value"` line, as produced by
// the Kubernetes Downward API, e.g.
//
//	cluster="test-cluster1"
//	var="abc=123"
//	multiline="multi\nline"
//
// The line splits at the first "="; the remainder must be a double-quoted
// string whose escapes are decoded.
func KeyEqualsQuotedValue(line string) (KV, error) {
	key, rest, found := strings.Cut(line, "=")
	if !found || key == "" {
		return KV{}, fmt.Errorf("%w: expected 2 tokens in key equals quoted value line", ErrFormat)
	}

	value, trailing, err := parseQuotedString(rest)
	if err != nil {
		return KV{}, err
	}
	if trailing != "" {
		return KV{}, fmt.Errorf("%w: unexpected content %q after quoted value", ErrFormat, trailing)
	}

	return KV{Key: key, Value: value}, nil
}

// parseQuotedString removes quotes and escapes from src, returning the
// decoded contents and any text remaining after the closing quote.
func parseQuotedString(src string) (string, string, error) {
	var out strings.Builder

	i := 0
	if i < len(src) && src[i] == '"' {
		i++
	}

	for i < len(src) {
		c := src[i]

		if c == '"' {
			// closing quote, not copied; anything after it is returned
			// for the caller to judge
			i++
			break
		}

		if c != '\\' {
			out.WriteByte(c)
			i++
			continue
		}

		// escape sequence
		i++
		if i >= len(src) {
			break
		}
		e := src[i]
		switch e {
		case '\\':
			out.WriteByte('\\')
			i++
		case '"':
			out.WriteByte('"')
			i++
		case 'a':
			out.WriteByte('\a')
			i++
		case 'b':
			out.WriteByte('\b')
			i++
		case 'f':
			out.WriteByte('\f')
			i++
		case 'n':
			out.WriteByte('\n')
			i++
		case 'r':
			out.WriteByte('\r')
			i++
		case 't':
			out.WriteByte('\t')
			i++
		case 'v':
			out.WriteByte('\v')
			i++
		case 'x':
			// exactly two hex digits forming one raw byte
			if i+2 >= len(src) || !isHexDigit(src[i+1]) || !isHexDigit(src[i+2]) {
				return "", "", fmt.Errorf(`%w: malformed \x literal`, ErrFormat)
			}
			out.WriteByte(hexValue(src[i+1])<<4 | hexValue(src[i+2]))
			i += 3
		case 'u', 'U':
			ndigits := 4
			if e == 'U' {
				ndigits = 8
			}
			var cp rune
			for j := 1; j <= ndigits; j++ {
				if i+j >= len(src) || !isHexDigit(src[i+j]) {
					return "", "", fmt.Errorf("%w: malformed unicode literal", ErrFormat)
				}
				cp = cp<<4 | rune(hexValue(src[i+j]))
			}
			out.WriteRune(cp)
			i += ndigits + 1
		default:
			// unrecognized escape passes through without the backslash
			out.WriteByte(e)
			i++
		}
	}

	return out.String(), src[i:], nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	if c >= '0' && c <= '9' {
		return c - '0'
	}
	return c&0x0f + 9
}
