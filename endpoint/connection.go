package endpoint

import (
	"sync"

	"github.com/nodelink-io/eptransport/frame"
)

// Connection is a single logical, multiplexed channel to a peer,
// returned by Connect.
type Connection struct {
	local    *LocalEndPoint
	remote   *RemoteEndPoint
	id       ConnectionId
	loopback bool

	mu    sync.Mutex
	alive bool
}

func newConnection(local *LocalEndPoint, remote *RemoteEndPoint, id ConnectionId) *Connection {
	return &Connection{local: local, remote: remote, id: id, alive: true}
}

// ID returns the ConnectionId assigned to this logical connection.
func (c *Connection) ID() ConnectionId {
	return c.id
}

// Send writes chunks as a single ordered, length-prefixed data frame.
func (c *Connection) Send(chunks ...[]byte) error {
	c.mu.Lock()
	alive := c.alive
	c.mu.Unlock()
	if !alive {
		return &SendError{Code: SendClosed, Err: ErrEndPointClosed}
	}

	if c.loopback {
		c.local.box.post(Received{ID: c.id, Payload: concat(chunks)})
		return nil
	}

	total := 0
	for _, ch := range chunks {
		total += len(ch)
	}
	parts := make([][]byte, 0, len(chunks)+2)
	parts = append(parts, frame.EncodeInt32(int32(c.id)), frame.EncodeInt32(int32(total)))
	parts = append(parts, chunks...)

	if err := c.remote.send(parts...); err != nil {
		return &SendError{Code: SendFailed, Err: err}
	}
	return nil
}

// Close ends this logical connection. Idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return nil
	}
	c.alive = false
	c.mu.Unlock()

	if c.loopback {
		c.local.box.post(ConnectionClosed{ID: c.id})
		return nil
	}

	c.remote.closeConnection(c.id)
	return nil
}

func concat(chunks [][]byte) []byte {
	total := 0
	for _, ch := range chunks {
		total += len(ch)
	}
	out := make([]byte, 0, total)
	for _, ch := range chunks {
		out = append(out, ch...)
	}
	return out
}
