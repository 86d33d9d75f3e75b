// Package transport is the process-wide root: it owns a listening
// socket, the registry of LocalEndPoints reachable through it, and the
// accept loop that hands inbound sockets off to the endpoint package's
// handshake handler.
package transport

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"code.hybscloud.com/atomix"

	"github.com/nodelink-io/eptransport/address"
	"github.com/nodelink-io/eptransport/endpoint"
)

// transportState is the tagged state of a Transport: Valid while
// accepting connections and serving new endpoints, Closed forever after.
type transportState uint8

const (
	transportValid transportState = iota
	transportClosed
)

// Transport is the root handle for a process's participation in the
// messaging fabric: one listening socket, shared by every LocalEndPoint
// allocated from it.
type Transport struct {
	host, service string
	logger        *log.Logger

	listener net.Listener

	mu      sync.Mutex
	state   transportState
	locals  map[address.EndPointAddress]*endpoint.LocalEndPoint
	dialers map[string]endpoint.Dialer

	nextEndpointID atomix.Uint32
}

// newBase constructs a Transport with the default dialer set and logger,
// applies opts, and binds a listener if one wasn't supplied via
// WithListener. It does not start the accept loop.
func newBase(host, service string, opts ...Option) (*Transport, error) {
	t := &Transport{
		host:    host,
		service: service,
		logger:  log.Default(),
		locals:  make(map[address.EndPointAddress]*endpoint.LocalEndPoint),
		dialers: map[string]endpoint.Dialer{
			"tcp": tcpDialer{},
			"ws":  wsDialer{},
		},
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.listener == nil {
		l, err := net.Listen("tcp", net.JoinHostPort(host, service))
		if err != nil {
			return nil, fmt.Errorf("transport: listen: %w", err)
		}
		t.listener = l
	}
	if tcpAddr, ok := t.listener.Addr().(*net.TCPAddr); ok {
		t.service = strconv.Itoa(tcpAddr.Port)
	}
	return t, nil
}

// New binds a listening TCP socket at host:service and spawns the
// accept loop. Passing "0" as service binds an ephemeral port; the
// resolved port is reflected in addresses handed out by NewEndPoint.
func New(host, service string, opts ...Option) (*Transport, error) {
	t, err := newBase(host, service, opts...)
	if err != nil {
		return nil, err
	}
	go t.acceptLoop()
	return t, nil
}

// Host returns the host this transport is bound to.
func (t *Transport) Host() string { return t.host }

// Service returns the resolved service (port, for TCP) this transport
// is bound to.
func (t *Transport) Service() string { return t.service }

// NewEndPoint allocates the next endpoint-id, constructs its address,
// and registers a fresh LocalEndPoint under it.
func (t *Transport) NewEndPoint() (*endpoint.LocalEndPoint, error) {
	t.mu.Lock()
	if t.state == transportClosed {
		t.mu.Unlock()
		return nil, &endpoint.NewEndPointError{Code: endpoint.NewEndPointFailed, Err: endpoint.ErrEndPointClosed}
	}
	id := int32(t.nextEndpointID.Add(1)) - 1
	addr, err := address.New(t.host, t.service, id)
	if err != nil {
		t.mu.Unlock()
		return nil, &endpoint.NewEndPointError{Code: endpoint.NewEndPointFailed, Err: err}
	}
	local := endpoint.NewLocalEndPoint(addr, t.logger, t.lookupDialer)
	t.locals[addr] = local
	t.mu.Unlock()
	return local, nil
}

func (t *Transport) lookupDialer(hint string) (endpoint.Dialer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.dialers[hint]
	return d, ok
}

// Close atomically swaps Transport to Closed, closes the listener, and
// tears down every local endpoint (each emits EndPointClosed). Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.state == transportClosed {
		t.mu.Unlock()
		return nil
	}
	t.state = transportClosed
	locals := make([]*endpoint.LocalEndPoint, 0, len(t.locals))
	for _, l := range t.locals {
		locals = append(locals, l)
	}
	t.locals = make(map[address.EndPointAddress]*endpoint.LocalEndPoint)
	t.mu.Unlock()

	err := t.listener.Close()
	for _, l := range locals {
		l.CloseEndPoint()
	}
	return err
}

// failAll marks the transport Closed and posts TransportFailed to every
// local endpoint, per the accept loop's termination handler.
func (t *Transport) failAll(reason error) {
	t.mu.Lock()
	if t.state == transportClosed {
		t.mu.Unlock()
		return
	}
	t.state = transportClosed
	locals := make([]*endpoint.LocalEndPoint, 0, len(t.locals))
	for _, l := range t.locals {
		locals = append(locals, l)
	}
	t.locals = make(map[address.EndPointAddress]*endpoint.LocalEndPoint)
	t.mu.Unlock()

	t.listener.Close()
	for _, l := range locals {
		l.Fail(reason)
	}
}
