package endpoint

import (
	"fmt"
	"log"
	"net"
	"sync"

	"code.hybscloud.com/atomix"

	"github.com/nodelink-io/eptransport/address"
	"github.com/nodelink-io/eptransport/frame"
)

// Dialer opens the physical connection used to reach peer, selected by
// ConnectHints.DialerHint. Registered per Transport; see the transport
// package for the "tcp" and "ws" implementations.
type Dialer interface {
	Dial(peer address.EndPointAddress) (net.Conn, error)
}

// localState is the tagged state of a LocalEndPoint: Valid until
// CloseEndPoint is called, then Closed forever after.
type localState uint8

const (
	localValid localState = iota
	localClosed
)

// LocalEndPoint is one addressable endpoint within a Transport: it owns
// a mailbox of Events, a registry of RemoteEndPoints, and the counters
// used to allocate ConnectionIds and ControlRequestIds.
type LocalEndPoint struct {
	addr    address.EndPointAddress
	logger  *log.Logger
	dialers func(hint string) (Dialer, bool)

	box *mailbox

	mu      sync.Mutex
	state   localState
	remotes map[address.EndPointAddress]*RemoteEndPoint

	connIDMu   sync.Mutex
	nextConnID ConnectionId

	nextCtrlID atomix.Uint32

	pendingMu sync.Mutex
	pending   map[ControlRequestId]chan []byte
}

// NewLocalEndPoint constructs a LocalEndPoint, called by the transport
// package when allocating a fresh endpoint. logger may be nil to disable
// diagnostic logging; dialers resolves a ConnectHints.DialerHint to a
// registered Dialer.
func NewLocalEndPoint(addr address.EndPointAddress, logger *log.Logger, dialers func(string) (Dialer, bool)) *LocalEndPoint {
	return newLocalEndPoint(addr, logger, dialers)
}

func newLocalEndPoint(addr address.EndPointAddress, logger *log.Logger, dialers func(string) (Dialer, bool)) *LocalEndPoint {
	return &LocalEndPoint{
		addr:       addr,
		logger:     logger,
		dialers:    dialers,
		box:        newMailbox(),
		state:      localValid,
		remotes:    make(map[address.EndPointAddress]*RemoteEndPoint),
		nextConnID: ConnectionId(frame.FirstNonReserved),
		pending:    make(map[ControlRequestId]chan []byte),
	}
}

// Address returns this endpoint's address.
func (l *LocalEndPoint) Address() address.EndPointAddress {
	return l.addr
}

func (l *LocalEndPoint) allocConnectionID() ConnectionId {
	l.connIDMu.Lock()
	defer l.connIDMu.Unlock()
	id := l.nextConnID
	l.nextConnID++
	return id
}

func (l *LocalEndPoint) allocRequestID() ControlRequestId {
	return ControlRequestId(l.nextCtrlID.Add(1))
}

func (l *LocalEndPoint) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == localClosed
}

func (l *LocalEndPoint) unlinkRemote(r *RemoteEndPoint) {
	l.mu.Lock()
	if l.remotes[r.peer] == r {
		delete(l.remotes, r.peer)
	}
	l.mu.Unlock()
}

// selfConnect loops a connection back without touching the network,
// matching the requirement that Connect(self) succeeds trivially.
func (l *LocalEndPoint) selfConnect(reliability Reliability) (*Connection, error) {
	if l.isClosed() {
		return nil, &ConnectError{Code: ConnectFailed, Err: ErrEndPointClosed}
	}
	id := l.allocConnectionID()
	l.box.post(ConnectionOpened{ID: id, Reliability: reliability, Peer: l.addr})
	return &Connection{local: l, id: id, loopback: true, alive: true}, nil
}

// Receive blocks until the next Event is available, or returns
// ErrEndPointClosed once CloseEndPoint has drained the mailbox.
func (l *LocalEndPoint) Receive() (Event, error) {
	return l.box.receive()
}

// CloseEndPoint tears down every remote connection, posts EndPointClosed,
// and poisons the mailbox. Idempotent.
func (l *LocalEndPoint) CloseEndPoint() error {
	l.teardown(EndPointClosed{})
	return nil
}

// Fail tears down every remote connection the same way CloseEndPoint
// does, but posts an ErrorEvent(TransportFailed) instead of
// EndPointClosed: the accept loop's termination handler marks the
// transport Closed and then calls this on every local endpoint that was
// live at that moment.
func (l *LocalEndPoint) Fail(reason error) {
	l.teardown(ErrorEvent{Err: &TransportFailedError{Reason: reason}})
}

func (l *LocalEndPoint) teardown(final Event) {
	l.mu.Lock()
	if l.state == localClosed {
		l.mu.Unlock()
		return
	}
	l.state = localClosed
	remotes := make([]*RemoteEndPoint, 0, len(l.remotes))
	for _, r := range l.remotes {
		remotes = append(remotes, r)
	}
	l.remotes = make(map[address.EndPointAddress]*RemoteEndPoint)
	l.mu.Unlock()

	for _, r := range remotes {
		r.mu.Lock()
		tag := r.state.tag
		conn := r.state.conn
		r.state.tag = stateClosed
		r.mu.Unlock()
		if (tag == stateValid || tag == stateClosing) && conn != nil {
			_ = frame.SendMany(conn, frame.EncodeInt32(frame.HeaderCloseSocket))
			conn.Close()
		}
	}

	l.box.post(final)
	l.box.poison()
}

func (l *LocalEndPoint) dialerFor(hint string) (Dialer, error) {
	if l.dialers == nil {
		return nil, fmt.Errorf("endpoint: no dialers registered")
	}
	d, ok := l.dialers(hint)
	if !ok {
		return nil, fmt.Errorf("endpoint: no dialer registered for hint %q", hint)
	}
	return d, nil
}
