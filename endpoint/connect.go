package endpoint

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/nodelink-io/eptransport/address"
	"github.com/nodelink-io/eptransport/frame"
)

// Connect establishes, or reuses, a logical connection to peer, dialing
// a physical socket on first use and racing safely against concurrent
// Connect and inbound-accept calls to the same peer.
func (l *LocalEndPoint) Connect(peer address.EndPointAddress, reliability Reliability, hints ConnectHints) (*Connection, error) {
	if l.isClosed() {
		return nil, &ConnectError{Code: ConnectFailed, Err: ErrEndPointClosed}
	}
	if peer == l.addr {
		return l.selfConnect(reliability)
	}

	for {
		remote, isNew, err := findOrCreateRemote(l, peer, OriginLocal)
		if err != nil {
			return nil, &ConnectError{Code: ConnectFailed, Err: err}
		}

		if isNew {
			_, retry, cErr := l.establishOutbound(remote, peer, hints)
			if cErr != nil {
				return nil, cErr
			}
			if retry {
				continue
			}
		} else if remote.snapshotTag() != stateValid {
			// A racing transition (e.g. the crossed tiebreak resolving
			// elsewhere) hasn't settled yet; re-resolve.
			continue
		}

		id, err := l.requestConnectionID(remote)
		if err != nil {
			return nil, &ConnectError{Code: ConnectFailed, Err: err}
		}
		return newConnection(l, remote, id), nil
	}
}

// establishOutbound dials peer and performs the handshake for a freshly
// created Init(origin=Local) remote. done reports the remote reached
// Valid and the caller may proceed to the control-request exchange;
// retry asks the caller to loop back to findOrCreateRemote.
func (l *LocalEndPoint) establishOutbound(remote *RemoteEndPoint, peer address.EndPointAddress, hints ConnectHints) (done, retry bool, err *ConnectError) {
	conn, dialErr := l.dial(peer, hints)
	if dialErr != nil {
		remote.publishInvalid(dialErr)
		return false, false, &ConnectError{Code: ConnectFailed, Err: dialErr}
	}

	if hsErr := writeOutboundHandshake(conn, peer, l.addr); hsErr != nil {
		conn.Close()
		remote.publishInvalid(hsErr)
		return false, false, &ConnectError{Code: ConnectFailed, Err: hsErr}
	}
	code, hsErr := frame.RecvInt32(conn)
	if hsErr != nil {
		conn.Close()
		remote.publishInvalid(hsErr)
		return false, false, &ConnectError{Code: ConnectFailed, Err: hsErr}
	}

	switch code {
	case frame.ConnectionRequestAccepted:
		remote.publishValid(conn, 1)
		go l.readIncoming(remote, conn)
		return true, false, nil

	case frame.ConnectionRequestInvalid:
		conn.Close()
		notFound := fmt.Errorf("endpoint: peer rejected connection to %s", peer)
		remote.publishInvalid(notFound)
		return false, false, &ConnectError{Code: ConnectNotFound, Err: notFound}

	case frame.ConnectionRequestCrossed:
		conn.Close()
		remote.mu.Lock()
		resolved := remote.state.resolved
		remote.mu.Unlock()
		if resolved == nil || resolved.waitTimeout(hints.resolveTimeout()) {
			return false, true, nil
		}
		remote.publishInvalid(ErrConnectTimeout)
		return false, false, &ConnectError{Code: ConnectTimeout, Err: ErrConnectTimeout}

	default:
		conn.Close()
		protoErr := fmt.Errorf("endpoint: unknown handshake response %d", code)
		remote.publishInvalid(protoErr)
		return false, false, &ConnectError{Code: ConnectFailed, Err: protoErr}
	}
}

func (l *LocalEndPoint) dial(peer address.EndPointAddress, hints ConnectHints) (net.Conn, error) {
	d, err := l.dialerFor(hints.dialerHint())
	if err != nil {
		return nil, err
	}
	return d.Dial(peer)
}

// writeOutboundHandshake sends the outbound initiator's half of the
// handshake: the target endpoint-id and the initiator's own address.
func writeOutboundHandshake(conn net.Conn, peer, self address.EndPointAddress) error {
	return frame.SendMany(conn,
		frame.EncodeInt32(peer.EndpointID),
		frame.EncodeWithLength(self.Bytes()),
	)
}

// requestConnectionID performs the RequestConnectionId control exchange
// against an already-Valid remote, returning the ConnectionId the peer
// assigned for this logical connection.
func (l *LocalEndPoint) requestConnectionID(remote *RemoteEndPoint) (ConnectionId, error) {
	reqID, ch := l.newPendingSlot()
	if err := remote.send(frame.EncodeInt32(frame.HeaderRequestConnectionID), frame.EncodeInt32(int32(reqID))); err != nil {
		l.takePendingSlot(reqID)
		return 0, err
	}
	blob := <-ch
	if len(blob) != 4 {
		return 0, fmt.Errorf("endpoint: malformed connection-id response")
	}
	return ConnectionId(int32(binary.BigEndian.Uint32(blob))), nil
}
