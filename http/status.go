// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package http

const (
	StatusOK        = 200 // RFC 7231, 6.3.1
	StatusCreated   = 201 // RFC 7231, 6.3.2
	StatusNoContent = 204 // RFC 7231, 6.3.5

	StatusMovedPermanently = 301 // RFC 7231, 6.4.2
	StatusFound            = 302 // RFC 7231, 6.4.3
	StatusNotModified      = 304 // RFC 7232, 4.1

	StatusBadRequest       = 400 // RFC 7231, 6.5.1
	StatusUnauthorized     = 401 // RFC 7235, 3.1
	StatusForbidden        = 403 // RFC 7231, 6.5.3
	StatusNotFound         = 404 // RFC 7231, 6.5.4
	StatusMethodNotAllowed = 405 // RFC 7231, 6.5.5

	StatusInternalServerError = 500 // RFC 7231, 6.6.1
	StatusNotImplemented      = 501 // RFC 7231, 6.6.2
	StatusServiceUnavailable  = 503 // RFC 7231, 6.6.4
)

// Only these codes are ever put on the wire.
var statusMessages = map[int]string{
	StatusOK:        "OK",
	StatusCreated:   "Created",
	StatusNoContent: "No Content",

	StatusMovedPermanently: "Moved Permanently",
	StatusFound:            "Found",
	StatusNotModified:      "Not Modified",

	StatusBadRequest:       "Bad Request",
	StatusUnauthorized:     "Unauthorized",
	StatusForbidden:        "Forbidden",
	StatusNotFound:         "Not Found",
	StatusMethodNotAllowed: "Method Not Allowed",

	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
	StatusServiceUnavailable:  "Service Unavailable",
}

// StatusText returns the reason phrase for code, with the code itself
// replaced by 500 when it is not in the table.
func StatusText(code int) (int, string) {
	if text, ok := statusMessages[code]; ok {
		return code, text
	}

	return StatusInternalServerError, statusMessages[StatusInternalServerError]
}
