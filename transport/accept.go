package transport

import (
	"net"

	"github.com/nodelink-io/eptransport/address"
	"github.com/nodelink-io/eptransport/frame"
)

// acceptLoop runs for the lifetime of the Transport. On any unhandled
// Accept error it fails every live local endpoint and marks the
// transport Closed.
func (t *Transport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			t.mu.Lock()
			closed := t.state == transportClosed
			t.mu.Unlock()
			if closed {
				return
			}
			if t.logger != nil {
				t.logger.Printf("transport: accept loop terminating: %v", err)
			}
			t.failAll(err)
			return
		}
		go t.handleAccepted(conn)
	}
}

// handleAccepted reads the handshake's endpoint-selection prefix,
// resolves the target LocalEndPoint, and hands off to its own handshake
// handler (§4.4). Everything past this point runs on the endpoint's own
// goroutine, owned by that endpoint.
func (t *Transport) handleAccepted(conn net.Conn) {
	epID, err := frame.RecvInt32(conn)
	if err != nil {
		conn.Close()
		return
	}
	peerAddrBytes, err := frame.RecvWithLength(conn)
	if err != nil {
		conn.Close()
		return
	}
	peer, err := address.Parse(string(peerAddrBytes))
	if err != nil {
		_ = frame.SendMany(conn, frame.EncodeInt32(frame.ConnectionRequestInvalid))
		conn.Close()
		return
	}

	t.mu.Lock()
	localAddr, addrErr := address.New(t.host, t.service, epID)
	var local = t.locals[localAddr]
	if addrErr != nil {
		local = nil
	}
	t.mu.Unlock()

	if local == nil {
		_ = frame.SendMany(conn, frame.EncodeInt32(frame.ConnectionRequestInvalid))
		conn.Close()
		return
	}
	local.HandleAccepted(conn, peer)
}
