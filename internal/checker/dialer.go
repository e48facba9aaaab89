package checker

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// NewDialer returns a direct dialer, or a SOCKS5 dialer when socksAddr is set
// (for example a local Tor client on 127.0.0.1:9050).
func NewDialer(socksAddr string, timeout time.Duration) (proxy.ContextDialer, error) {
	base := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	if socksAddr == "" {
		return base, nil
	}

	d, err := proxy.SOCKS5("tcp", socksAddr, nil, base)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer %s: %w", socksAddr, err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd, nil
	}
	return contextDialer{d}, nil
}

// contextDialer adapts a plain proxy.Dialer. The dial keeps running in the
// background after ctx is done; its connection is closed when it arrives.
type contextDialer struct {
	d proxy.Dialer
}

func (c contextDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}
	done := make(chan dialResult, 1)
	go func() {
		conn, err := c.d.Dial(network, addr)
		done <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		return r.conn, r.err
	}
}
