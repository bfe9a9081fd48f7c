//go:build !unix

package http

import "syscall"

var reuseAddr func(network, address string, c syscall.RawConn) error
