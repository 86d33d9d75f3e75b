package transport_test

import (
	"testing"
	"time"

	"github.com/nodelink-io/eptransport/endpoint"
	"github.com/nodelink-io/eptransport/transport"
)

func recvEvent(t *testing.T, l *endpoint.LocalEndPoint) endpoint.Event {
	t.Helper()
	type result struct {
		ev  endpoint.Event
		err error
	}
	ch := make(chan result, 1)
	go func() {
		ev, err := l.Receive()
		ch <- result{ev, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("receive: %v", r.err)
		}
		return r.ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// TestTransportPingAcrossEndpoints exercises the full stack: a bound
// listener, the accept loop's handshake dispatch, and two LocalEndPoints
// allocated from the same Transport talking to each other.
func TestTransportPingAcrossEndpoints(t *testing.T) {
	tr, err := transport.New("127.0.0.1", "0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	e1, err := tr.NewEndPoint()
	if err != nil {
		t.Fatalf("NewEndPoint e1: %v", err)
	}
	e2, err := tr.NewEndPoint()
	if err != nil {
		t.Fatalf("NewEndPoint e2: %v", err)
	}

	conn, err := e1.Connect(e2.Address(), endpoint.ReliableOrdered, endpoint.ConnectHints{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := conn.Send([]byte("ping")); err != nil {
		t.Fatalf("send: %v", err)
	}

	opened, ok := recvEvent(t, e2).(endpoint.ConnectionOpened)
	if !ok {
		t.Fatalf("expected ConnectionOpened, got %#v", opened)
	}
	received, ok := recvEvent(t, e2).(endpoint.Received)
	if !ok || string(received.Payload) != "ping" {
		t.Fatalf("expected Received(ping), got %#v", received)
	}
}

// TestNewEndPointAfterCloseFails ensures a Closed transport rejects
// further endpoint allocation, per NewEndPointFailed.
func TestNewEndPointAfterCloseFails(t *testing.T) {
	tr, err := transport.New("127.0.0.1", "0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := tr.NewEndPoint(); err == nil {
		t.Fatal("expected NewEndPoint to fail after Close")
	} else if _, ok := err.(*endpoint.NewEndPointError); !ok {
		t.Fatalf("expected *endpoint.NewEndPointError, got %T: %v", err, err)
	}
}

// TestCloseIsIdempotent covers the idempotence property from the
// testable-properties section.
func TestCloseIsIdempotent(t *testing.T) {
	tr, err := transport.New("127.0.0.1", "0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// TestCloseDeliversEndPointClosed checks that an allocated endpoint
// receives EndPointClosed, then ErrEndPointClosed, once the transport
// shuts down.
func TestCloseDeliversEndPointClosed(t *testing.T) {
	tr, err := transport.New("127.0.0.1", "0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e, err := tr.NewEndPoint()
	if err != nil {
		t.Fatalf("NewEndPoint: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, ok := recvEvent(t, e).(endpoint.EndPointClosed); !ok {
		t.Fatal("expected EndPointClosed")
	}
	if _, err := e.Receive(); err != endpoint.ErrEndPointClosed {
		t.Fatalf("expected ErrEndPointClosed after drain, got %v", err)
	}
}

// TestNewUnixTransport checks that the Unix-domain listener variant
// accepts the same handshake and framing as TCP.
func TestNewUnixTransport(t *testing.T) {
	sockPath := t.TempDir() + "/eptransport.sock"
	tr, err := transport.NewUnix(sockPath)
	if err != nil {
		t.Fatalf("NewUnix: %v", err)
	}
	defer tr.Close()

	e1, err := tr.NewEndPoint()
	if err != nil {
		t.Fatalf("NewEndPoint e1: %v", err)
	}
	e2, err := tr.NewEndPoint()
	if err != nil {
		t.Fatalf("NewEndPoint e2: %v", err)
	}

	conn, err := e1.Connect(e2.Address(), endpoint.ReliableOrdered, endpoint.ConnectHints{DialerHint: "unix"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := conn.Send([]byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}
	received, ok := recvEvent(t, e2).(endpoint.ConnectionOpened)
	_ = received
	if !ok {
		t.Fatalf("expected ConnectionOpened")
	}
	msg, ok := recvEvent(t, e2).(endpoint.Received)
	if !ok || string(msg.Payload) != "hello" {
		t.Fatalf("expected Received(hello), got %#v", msg)
	}
}
