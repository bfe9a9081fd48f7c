package http

import (
	"context"
	"net"
)

// Listen binds a TCP listener on addr. On unix the socket is marked
// SO_REUSEADDR so a restarted device can take its port back at once.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	return lc.Listen(ctx, "tcp", addr)
}
