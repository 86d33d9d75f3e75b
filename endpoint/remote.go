package endpoint

import (
	"net"
	"sync"

	"github.com/nodelink-io/eptransport/address"
	"github.com/nodelink-io/eptransport/frame"
)

// stateTag is the tag of a RemoteEndPoint's tagged-union state.
type stateTag uint8

const (
	stateInvalid stateTag = iota
	stateInit
	stateValid
	stateClosing
	stateClosed
)

// remoteState is the single mutable state slot of a RemoteEndPoint. Only
// the fields relevant to the current tag are meaningful; conn, outgoing
// and incoming persist unchanged across the Valid<->Closing transitions
// since Closing is a provisional variant of Valid awaiting peer ack.
type remoteState struct {
	tag stateTag

	err error // Invalid

	origin   Origin          // Init
	resolved *resolvedSignal // Init

	conn     net.Conn                  // Valid, Closing
	outgoing int                       // Valid, Closing
	incoming map[ConnectionId]struct{} // Valid, Closing

	closeResolved *resolvedSignal // Closing
}

// RemoteEndPoint tracks everything a LocalEndPoint knows about one peer:
// the physical connection (if any), and the logical connections
// multiplexed over it. Lock ordering: a holder of this mutex may acquire
// local.mu, never the reverse without releasing this one first.
type RemoteEndPoint struct {
	mu    sync.Mutex
	peer  address.EndPointAddress
	local *LocalEndPoint
	state remoteState
}

func newRemoteEndPoint(local *LocalEndPoint, peer address.EndPointAddress) *RemoteEndPoint {
	return &RemoteEndPoint{
		local: local,
		peer:  peer,
		state: remoteState{tag: stateInvalid},
	}
}

// findOrCreateRemote returns the RemoteEndPoint for peer, creating one in
// Init state if none exists, or looping until a stable state is reached
// if one is found mid-transition. isNew reports whether this call is the
// one that created the Init state (the caller then owns resolving it).
//
// origin distinguishes a caller driven by Connect (OriginLocal) from one
// driven by an inbound accept (OriginRemote): the two have different
// blocking semantics on a colliding Init, see below.
func findOrCreateRemote(local *LocalEndPoint, peer address.EndPointAddress, origin Origin) (r *RemoteEndPoint, isNew bool, err error) {
	for {
		local.mu.Lock()
		existing, ok := local.remotes[peer]
		if !ok {
			r = newRemoteEndPoint(local, peer)
			r.state = remoteState{tag: stateInit, origin: origin, resolved: newResolvedSignal()}
			local.remotes[peer] = r
			local.mu.Unlock()
			return r, true, nil
		}
		local.mu.Unlock()

		existing.mu.Lock()
		switch existing.state.tag {
		case stateValid:
			if origin == OriginLocal {
				existing.state.outgoing++
			}
			existing.mu.Unlock()
			return existing, false, nil

		case stateInit:
			if origin == OriginRemote {
				if existing.state.origin == OriginRemote {
					existing.mu.Unlock()
					return nil, false, errAlreadyConnected
				}
				// existing.origin == OriginLocal: a concurrent Connect is
				// mid-handshake for the same peer. Return immediately,
				// not new, without waiting: the accept path's own
				// crossed-tiebreak logic resolves this, and waiting here
				// would deadlock against that very resolution.
				existing.mu.Unlock()
				return existing, false, nil
			}
			resolved := existing.state.resolved
			existing.mu.Unlock()
			resolved.wait()
			continue

		case stateClosing:
			resolved := existing.state.closeResolved
			existing.mu.Unlock()
			resolved.wait()
			continue

		case stateClosed:
			existing.mu.Unlock()
			local.mu.Lock()
			if local.remotes[peer] == existing {
				delete(local.remotes, peer)
			}
			local.mu.Unlock()
			continue

		default: // stateInvalid
			carried := existing.state.err
			existing.mu.Unlock()
			return nil, false, carried
		}
	}
}

// publishValid transitions r from Init (or a racing Init) to Valid over
// conn, waking any goroutines blocked on the Init resolved signal.
// outgoing is the initial outgoing-connection count: 1 for an outbound
// Connect that just got Accepted (it owns the one logical connection it
// is about to request), 0 for a freshly accepted inbound socket, which
// per §4.4 starts with no logical connections until a peer requests one.
func (r *RemoteEndPoint) publishValid(conn net.Conn, outgoing int) {
	r.mu.Lock()
	resolved := r.state.resolved
	r.state = remoteState{tag: stateValid, conn: conn, outgoing: outgoing, incoming: map[ConnectionId]struct{}{}}
	r.mu.Unlock()
	if resolved != nil {
		resolved.fire()
	}
}

// publishInvalid transitions r from Init to Invalid, recording err on r,
// and wakes waiters. Per INV-CLOSE-THEN-UNLINK the entry is unlinked from
// the local map first, so a findOrCreateRemote caller woken here looks
// the peer up again, finds no entry, and starts a fresh attempt; it does
// not return err.
func (r *RemoteEndPoint) publishInvalid(err error) {
	r.local.unlinkRemote(r)
	r.mu.Lock()
	resolved := r.state.resolved
	r.state = remoteState{tag: stateInvalid, err: err}
	r.mu.Unlock()
	if resolved != nil {
		resolved.fire()
	}
}

// send writes chunks as a single ordered, exclusive write while holding
// the remote lock (INV-SEND-EXCLUSIVE). Valid required.
func (r *RemoteEndPoint) send(chunks ...[]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.tag != stateValid {
		return ErrEndPointClosed
	}
	return frame.SendMany(r.state.conn, chunks...)
}

// snapshotTag returns the current tag, for callers that only need to branch
// on it without holding the lock across I/O.
func (r *RemoteEndPoint) snapshotTag() stateTag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.tag
}

// admitIncoming records a peer-initiated RequestConnectionId grant. If r
// was Closing, the peer has implicitly refused our CloseSocket proposal
// by opening new work; promote back to Valid and fire closeResolved.
func (r *RemoteEndPoint) admitIncoming(id ConnectionId) {
	r.mu.Lock()
	switch r.state.tag {
	case stateValid:
		r.state.incoming[id] = struct{}{}
		r.mu.Unlock()
	case stateClosing:
		resolved := r.state.closeResolved
		if r.state.incoming == nil {
			r.state.incoming = map[ConnectionId]struct{}{}
		}
		r.state.incoming[id] = struct{}{}
		r.state.tag = stateValid
		r.state.closeResolved = nil
		r.mu.Unlock()
		resolved.fire()
	default:
		r.mu.Unlock()
	}
}

func (r *RemoteEndPoint) removeIncoming(id ConnectionId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.tag == stateValid {
		delete(r.state.incoming, id)
	}
}

// closeConnection implements the outbound half of Connection.Close: send
// CloseConnection, decrement outgoing, then evaluate close-if-unused.
func (r *RemoteEndPoint) closeConnection(id ConnectionId) {
	r.mu.Lock()
	if r.state.tag != stateValid {
		r.mu.Unlock()
		return
	}
	_ = frame.SendMany(r.state.conn, frame.EncodeInt32(frame.HeaderCloseConnection), frame.EncodeInt32(int32(id)))
	r.state.outgoing--
	r.mu.Unlock()
	r.closeSocketIfUnused()
}

// closeSocketIfUnused sends CloseSocket and transitions Valid->Closing
// when no logical connections remain. No-op otherwise or if not Valid.
func (r *RemoteEndPoint) closeSocketIfUnused() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.tag != stateValid {
		return
	}
	if r.state.outgoing > 0 || len(r.state.incoming) > 0 {
		return
	}
	_ = frame.SendMany(r.state.conn, frame.EncodeInt32(frame.HeaderCloseSocket))
	r.state.tag = stateClosing
	r.state.closeResolved = newResolvedSignal()
}
