package probe

import (
	"context"
	"net"
)

// TCPChecker succeeds when a TCP connection to def.Target (host:port) opens.
type TCPChecker struct {
	Dialer net.Dialer
}

func NewTCPChecker() *TCPChecker { return &TCPChecker{} }

func (c *TCPChecker) Probe(ctx context.Context, def Definition) (Raw, error) {
	if _, _, err := net.SplitHostPort(def.Target); err != nil {
		return Raw{}, Fault(err)
	}
	conn, err := c.Dialer.DialContext(ctx, "tcp", def.Target)
	if err != nil {
		return Raw{}, err
	}
	defer conn.Close()
	return Raw{Output: conn.RemoteAddr().String()}, nil
}
