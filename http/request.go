package http

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrParse = errors.New("http: malformed request")

// Request is one parsed request. The whole request, body included, must have
// arrived in a single read; the body is the last line of that read and
// Content-Length is never consulted.
type Request struct {
	Method     string
	Path       string
	Query      map[string]string
	Headers    map[string]string
	Proto      string
	Body       string
	RemoteAddr string
}

// Header returns the value of the named header, matched case-insensitively.
func (req *Request) Header(name string) string {
	return req.Headers[strings.ToLower(name)]
}

func ParseRequest(buf []byte) (*Request, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrParse)
	}
	if !utf8.Valid(buf) {
		return nil, fmt.Errorf("%w: invalid utf-8", ErrParse)
	}

	lines := strings.Split(string(buf), "\r\n")

	parts := strings.Split(lines[0], " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: malformed request line: %q", ErrParse, lines[0])
	}
	method, target, proto := parts[0], parts[1], parts[2]
	if method == "" || target == "" || proto == "" {
		return nil, fmt.Errorf("%w: malformed request line: %q", ErrParse, lines[0])
	}

	req := &Request{
		Method:  strings.ToUpper(method),
		Path:    target,
		Query:   map[string]string{},
		Headers: map[string]string{},
		Proto:   proto,
	}

	if i := strings.IndexByte(target, '?'); i >= 0 {
		req.Path = target[:i]
		req.Query = ParseQuery(target[i+1:])
	}

	// The last line is reserved for the body.
	for _, line := range lines[1:max(len(lines)-1, 1)] {
		if line == "" {
			break
		}

		i := strings.IndexByte(line, ':')
		if i < 0 {
			return nil, fmt.Errorf("%w: malformed header line: %q", ErrParse, line)
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		req.Headers[key] = strings.TrimSpace(line[i+1:])
	}

	if len(lines) > 1 {
		req.Body = lines[len(lines)-1]
	}

	return req, nil
}
