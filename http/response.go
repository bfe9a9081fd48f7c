package http

import (
	"io"
)

// Response is written once and never kept. Every response closes the
// connection.
type Response struct {
	Status          int
	Body            string
	ContentType     string
	ContentEncoding string
}

// AppendHeader appends the status line and the header block for a body of
// contentLength bytes.
func AppendHeader(dst []byte, status int, contentType, contentEncoding, server string, contentLength int64) []byte {
	code, text := StatusText(status)

	dst = append(dst, protocolHttp11...)
	dst = appendUint(dst, int64(code))
	dst = append(dst, ' ')
	dst = append(dst, text...)
	dst = append(dst, crlf...)

	dst = append(dst, connectionClose...)
	if contentEncoding != "" {
		dst = append(dst, contentEncodingKey...)
		dst = append(dst, contentEncoding...)
		dst = append(dst, crlf...)
	}
	dst = append(dst, contentLengthPrefix...)
	dst = appendUint(dst, contentLength)
	dst = append(dst, crlf...)
	if contentType != "" {
		dst = append(dst, contentTypeKey...)
		dst = append(dst, contentType...)
		dst = append(dst, crlf...)
	}
	dst = append(dst, serverKey...)
	dst = append(dst, server...)
	dst = append(dst, crlf...)

	return append(dst, crlf...)
}

// Append appends the full wire form of res.
func (res *Response) Append(dst []byte, server string) []byte {
	dst = AppendHeader(dst, res.Status, res.ContentType, res.ContentEncoding, server, int64(len(res.Body)))
	return append(dst, res.Body...)
}

// WriteTo writes res with DefaultServerName in one call to w.
func (res *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(res.Append(nil, DefaultServerName))
	return int64(n), err
}
