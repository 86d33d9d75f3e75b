package transport

import (
	"fmt"
	"net"
)

// NewUnix binds a listening Unix domain socket at path and spawns the
// accept loop, reusing the same handshake and framing code as New. The
// returned Transport encodes addresses as host="unix", service=path.
func NewUnix(path string, opts ...Option) (*Transport, error) {
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: listen unix: %w", err)
	}
	allOpts := append([]Option{WithListener(l)}, opts...)
	t, err := newBase("unix", path, allOpts...)
	if err != nil {
		l.Close()
		return nil, err
	}
	if _, ok := t.dialers["unix"]; !ok {
		t.dialers["unix"] = unixDialer{}
	}
	go t.acceptLoop()
	return t, nil
}
