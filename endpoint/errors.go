package endpoint

import (
	"errors"
	"fmt"

	"github.com/nodelink-io/eptransport/address"
)

// ConnectErrorCode classifies why Connect failed.
type ConnectErrorCode int

const (
	ConnectNotFound ConnectErrorCode = iota
	ConnectFailed
	ConnectInsufficientResources
	ConnectTimeout
)

func (c ConnectErrorCode) String() string {
	switch c {
	case ConnectNotFound:
		return "ConnectNotFound"
	case ConnectFailed:
		return "ConnectFailed"
	case ConnectInsufficientResources:
		return "ConnectInsufficientResources"
	case ConnectTimeout:
		return "ConnectTimeout"
	default:
		return fmt.Sprintf("ConnectErrorCode(%d)", int(c))
	}
}

// ConnectError is returned by Connect.
type ConnectError struct {
	Code ConnectErrorCode
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SendErrorCode classifies why Send failed.
type SendErrorCode int

const (
	SendFailed SendErrorCode = iota
	SendClosed
)

func (c SendErrorCode) String() string {
	if c == SendClosed {
		return "SendClosed"
	}
	return "SendFailed"
}

// SendError is returned by Connection.Send.
type SendError struct {
	Code SendErrorCode
	Err  error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// NewEndPointErrorCode classifies why new-endpoint allocation failed.
type NewEndPointErrorCode int

const (
	NewEndPointFailed NewEndPointErrorCode = iota
)

// NewEndPointError is returned when a Transport cannot allocate a fresh
// LocalEndPoint (the transport is already Closed).
type NewEndPointError struct {
	Code NewEndPointErrorCode
	Err  error
}

func (e *NewEndPointError) Error() string {
	if e.Err == nil {
		return "NewEndPointFailed"
	}
	return fmt.Sprintf("NewEndPointFailed: %s", e.Err)
}

func (e *NewEndPointError) Unwrap() error { return e.Err }

// ConnectionLostError is the cause carried by an ErrorEvent when a
// remote's physical connection fails or is torn down prematurely.
type ConnectionLostError struct {
	Peer address.EndPointAddress
	Ids  []ConnectionId
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("connection lost to %s (%d open connections)", e.Peer, len(e.Ids))
}

// TransportFailedError is the cause carried by an ErrorEvent when the
// accept loop itself fails unrecoverably.
type TransportFailedError struct {
	Reason error
}

func (e *TransportFailedError) Error() string {
	return fmt.Sprintf("transport failed: %s", e.Reason)
}

func (e *TransportFailedError) Unwrap() error { return e.Reason }

// ErrEndPointClosed is returned by operations attempted after
// close_endpoint, and is the terminal error returned by Receive once the
// mailbox has drained past its poison marker.
var ErrEndPointClosed = errors.New("endpoint: closed")

// errAlreadyConnected is the carried cause of a "Remote-originated Init
// and our origin is Remote too" collision (two inbound handshakes racing
// for the same peer before either resolved).
var errAlreadyConnected = errors.New("endpoint: already connecting to this peer")

// ErrConnectTimeout is the carried cause of a ConnectTimeout ConnectError.
var ErrConnectTimeout = errors.New("endpoint: timed out waiting for crossed connection attempt to resolve")
