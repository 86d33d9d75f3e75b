package endpoint

import (
	"net"

	"github.com/nodelink-io/eptransport/address"
	"github.com/nodelink-io/eptransport/frame"
)

// HandleAccepted runs the per-endpoint half of the inbound handshake
// (§4.4): the caller (the transport's listener) has already read the
// target endpoint-id and the initiator's address off conn and resolved
// it to this LocalEndPoint; everything from here on runs under this
// endpoint's own goroutine.
func (l *LocalEndPoint) HandleAccepted(conn net.Conn, peer address.EndPointAddress) {
	if l.isClosed() {
		_ = frame.SendMany(conn, frame.EncodeInt32(frame.ConnectionRequestInvalid))
		conn.Close()
		return
	}

	remote, isNew, err := findOrCreateRemote(l, peer, OriginRemote)
	if err != nil {
		_ = frame.SendMany(conn, frame.EncodeInt32(frame.ConnectionRequestInvalid))
		conn.Close()
		return
	}

	if !isNew {
		switch remote.snapshotTag() {
		case stateValid:
			// A physical connection to this peer is already established;
			// reject the duplicate rather than silently replacing it.
			_ = frame.SendMany(conn, frame.EncodeInt32(frame.ConnectionRequestInvalid))
			conn.Close()
			return
		case stateInit:
			if l.addr.Less(peer) {
				_ = frame.SendMany(conn, frame.EncodeInt32(frame.ConnectionRequestCrossed))
				conn.Close()
				return
			}
			// our address is not smaller: accept, resolving the racing
			// local Connect attempt onto this socket instead.
		default:
			_ = frame.SendMany(conn, frame.EncodeInt32(frame.ConnectionRequestInvalid))
			conn.Close()
			return
		}
	}

	if err := frame.SendMany(conn, frame.EncodeInt32(frame.ConnectionRequestAccepted)); err != nil {
		remote.publishInvalid(err)
		conn.Close()
		return
	}
	remote.publishValid(conn, 0)
	l.readIncoming(remote, conn)
}
