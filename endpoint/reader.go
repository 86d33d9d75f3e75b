package endpoint

import (
	"fmt"
	"net"

	"github.com/nodelink-io/eptransport/frame"
)

// readIncoming is the per-remote reader loop (§4.6): it owns conn for
// reads until the socket is torn down, either by a protocol-level
// CloseSocket negotiation or by I/O failure.
func (l *LocalEndPoint) readIncoming(remote *RemoteEndPoint, conn net.Conn) {
	for {
		header, err := frame.RecvInt32(conn)
		if err != nil {
			l.onReaderExit(remote, conn, err)
			return
		}

		if !frame.IsControlHeader(header) {
			payload, err := frame.RecvWithLength(conn)
			if err != nil {
				l.onReaderExit(remote, conn, err)
				return
			}
			l.box.post(Received{ID: ConnectionId(header), Payload: payload})
			continue
		}

		switch header {
		case frame.HeaderRequestConnectionID:
			reqID, err := frame.RecvInt32(conn)
			if err != nil {
				l.onReaderExit(remote, conn, err)
				return
			}
			newID := l.allocConnectionID()
			remote.admitIncoming(newID)
			sendErr := remote.send(
				frame.EncodeInt32(frame.HeaderControlResponse),
				frame.EncodeInt32(reqID),
				frame.EncodeWithLength(frame.EncodeInt32(int32(newID))),
			)
			if sendErr != nil {
				l.onReaderExit(remote, conn, sendErr)
				return
			}
			l.box.post(ConnectionOpened{ID: newID, Reliability: ReliableOrdered, Peer: remote.peer})

		case frame.HeaderControlResponse:
			reqID, err := frame.RecvInt32(conn)
			if err != nil {
				l.onReaderExit(remote, conn, err)
				return
			}
			blob, err := frame.RecvWithLength(conn)
			if err != nil {
				l.onReaderExit(remote, conn, err)
				return
			}
			l.deliverControlResponse(ControlRequestId(reqID), blob)

		case frame.HeaderCloseConnection:
			connID, err := frame.RecvInt32(conn)
			if err != nil {
				l.onReaderExit(remote, conn, err)
				return
			}
			remote.removeIncoming(ConnectionId(connID))
			l.box.post(ConnectionClosed{ID: ConnectionId(connID)})
			remote.closeSocketIfUnused()

		case frame.HeaderCloseSocket:
			if l.handleCloseSocket(remote) {
				return
			}

		default:
			l.onReaderExit(remote, conn, fmt.Errorf("endpoint: unknown control header %d", header))
			return
		}
	}
}

// handleCloseSocket implements the receiving side of the two-phase close
// negotiation (§4.8). Returns true if the reader loop should exit.
func (l *LocalEndPoint) handleCloseSocket(remote *RemoteEndPoint) bool {
	remote.mu.Lock()
	switch remote.state.tag {
	case stateValid:
		ids := make([]ConnectionId, 0, len(remote.state.incoming))
		for id := range remote.state.incoming {
			ids = append(ids, id)
		}
		remote.state.incoming = map[ConnectionId]struct{}{}
		if remote.state.outgoing > 0 {
			remote.mu.Unlock()
			for _, id := range ids {
				l.box.post(ConnectionClosed{ID: id})
			}
			return false
		}
		conn := remote.state.conn
		l.unlinkRemote(remote)
		remote.state.tag = stateClosed
		remote.mu.Unlock()

		for _, id := range ids {
			l.box.post(ConnectionClosed{ID: id})
		}
		_ = frame.SendMany(conn, frame.EncodeInt32(frame.HeaderCloseSocket))
		conn.Close()
		return true

	case stateClosing:
		resolved := remote.state.closeResolved
		conn := remote.state.conn
		l.unlinkRemote(remote)
		remote.state.tag = stateClosed
		remote.mu.Unlock()
		resolved.fire()
		conn.Close()
		return true

	default:
		tag := remote.state.tag
		remote.mu.Unlock()
		if l.logger != nil {
			l.logger.Printf("endpoint: CloseSocket from %s in unexpected state %d", remote.peer, tag)
		}
		return true
	}
}

// onReaderExit handles a premature socket failure or framing error.
func (l *LocalEndPoint) onReaderExit(remote *RemoteEndPoint, conn net.Conn, cause error) {
	if l.logger != nil {
		l.logger.Printf("endpoint: reader for %s exiting: %v", remote.peer, cause)
	}
	remote.mu.Lock()
	switch remote.state.tag {
	case stateValid:
		ids := make([]ConnectionId, 0, len(remote.state.incoming))
		for id := range remote.state.incoming {
			ids = append(ids, id)
		}
		l.unlinkRemote(remote)
		remote.state.tag = stateClosed
		remote.mu.Unlock()
		conn.Close()
		l.box.post(ErrorEvent{Err: &ConnectionLostError{Peer: remote.peer, Ids: ids}})

	case stateClosing:
		resolved := remote.state.closeResolved
		l.unlinkRemote(remote)
		remote.state.tag = stateClosed
		remote.mu.Unlock()
		resolved.fire()
		conn.Close()

	default:
		remote.mu.Unlock()
		conn.Close()
	}
}
