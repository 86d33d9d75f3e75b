package transport

import (
	"log"
	"net"

	"github.com/nodelink-io/eptransport/endpoint"
)

// Option configures a Transport at construction time.
type Option func(*Transport)

// WithLogger overrides the default log.Default() used for diagnostic
// logging.
func WithLogger(logger *log.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// WithDialer registers (or replaces) the Dialer used for
// ConnectHints.DialerHint == hint.
func WithDialer(hint string, d endpoint.Dialer) Option {
	return func(t *Transport) { t.dialers[hint] = d }
}

// WithListener supplies a pre-bound listener instead of having New bind
// one itself, mainly so tests can use net.Listen("tcp", "127.0.0.1:0")
// and inspect the address before endpoints are created.
func WithListener(l net.Listener) Option {
	return func(t *Transport) { t.listener = l }
}
