package transport

import (
	"fmt"
	"net"

	"golang.org/x/net/websocket"

	"github.com/nodelink-io/eptransport/address"
)

// tcpDialer is the default Dialer, used when ConnectHints.DialerHint is
// empty or "tcp".
type tcpDialer struct{}

func (tcpDialer) Dial(peer address.EndPointAddress) (net.Conn, error) {
	return net.Dial("tcp", peer.HostPort())
}

// unixDialer reaches a peer through a Unix domain socket path carried
// in the address's Service field (see NewUnix).
type unixDialer struct{}

func (unixDialer) Dial(peer address.EndPointAddress) (net.Conn, error) {
	return net.Dial("unix", peer.Service)
}

// wsDialer reaches a peer over a WebSocket connection, selected via
// ConnectHints{DialerHint: "ws"}.
type wsDialer struct{}

func (wsDialer) Dial(peer address.EndPointAddress) (net.Conn, error) {
	origin := fmt.Sprintf("http://%s/", peer.HostPort())
	url := fmt.Sprintf("ws://%s/", peer.HostPort())
	ws, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	ws.PayloadType = websocket.BinaryFrame
	return ws, nil
}
