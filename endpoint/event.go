package endpoint

import "github.com/nodelink-io/eptransport/address"

// Event is delivered, in FIFO order, through a LocalEndPoint's mailbox.
type Event interface {
	isEvent()
}

// ConnectionOpened is posted before any Received for the same
// ConnectionId, exactly once per id.
type ConnectionOpened struct {
	ID          ConnectionId
	Reliability Reliability
	Peer        address.EndPointAddress
}

// Received carries one message sent on an already-opened connection.
type Received struct {
	ID      ConnectionId
	Payload []byte
}

// ConnectionClosed is posted exactly once per ConnectionId, after all of
// its Received events.
type ConnectionClosed struct {
	ID ConnectionId
}

// ErrorEvent reports an asynchronous failure discovered by the incoming
// loop or the accept path. Err is either *ConnectionLostError or
// *TransportFailedError.
type ErrorEvent struct {
	Err error
}

// EndPointClosed is posted once, as part of close_endpoint's teardown,
// immediately before the mailbox is poisoned.
type EndPointClosed struct{}

func (ConnectionOpened) isEvent() {}
func (Received) isEvent()         {}
func (ConnectionClosed) isEvent() {}
func (ErrorEvent) isEvent()       {}
func (EndPointClosed) isEvent()   {}
