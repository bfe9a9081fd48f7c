package http

import (
	"errors"
	"strings"
)

var ErrMultipleWildcards = errors.New("http: only one wildcard per path is supported")

// Wildcard macros that may appear once in a registered path.
const (
	MacroDigit  = "<digit>"  // exactly one digit
	MacroInt    = "<int>"    // one or more digits
	MacroFloat  = "<float>"  // optionally signed decimal
	MacroString = "<string>" // any run of characters, possibly empty
)

var macros = map[string]func(string) bool{
	MacroDigit:  matchDigit,
	MacroInt:    matchInt,
	MacroFloat:  matchFloat,
	MacroString: matchString,
}

// pattern matches lookup keys of the form prefix + capture + suffix, anchored
// at both ends.
type pattern struct {
	prefix string
	suffix string
	accept func(string) bool
}

// compilePattern returns nil for a literal key.
func compilePattern(key string) (*pattern, error) {
	var found *pattern
	for i := 0; i < len(key); i++ {
		if key[i] != '<' {
			continue
		}

		end := strings.IndexByte(key[i:], '>')
		if end < 0 {
			break
		}

		macro := key[i : i+end+1]
		accept, ok := macros[macro]
		if !ok {
			continue
		}
		if found != nil {
			return nil, ErrMultipleWildcards
		}

		found = &pattern{
			prefix: key[:i],
			suffix: key[i+len(macro):],
			accept: accept,
		}
		i += len(macro) - 1
	}

	return found, nil
}

func (p *pattern) match(key string) (string, bool) {
	if len(key) < len(p.prefix)+len(p.suffix) {
		return "", false
	}
	if !strings.HasPrefix(key, p.prefix) || !strings.HasSuffix(key, p.suffix) {
		return "", false
	}

	capture := key[len(p.prefix) : len(key)-len(p.suffix)]
	if !p.accept(capture) {
		return "", false
	}

	return capture, true
}

func matchDigit(s string) bool {
	return len(s) == 1 && isDigit(s[0])
}

func matchInt(s string) bool {
	return s != "" && allDigits(s)
}

// matchFloat accepts [-+]?[0-9]*\.?[0-9]+
func matchFloat(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}

	whole, frac, found := strings.Cut(s, ".")
	if !found {
		return matchInt(whole)
	}

	return allDigits(whole) && matchInt(frac)
}

func matchString(string) bool {
	return true
}
