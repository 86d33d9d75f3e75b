// Package address implements the endpoint addressing scheme: an opaque
// identifier encoding host, service and a per-process endpoint id.
package address

import (
	"fmt"
	"strconv"
	"strings"
)

// EndPointAddress identifies a single LocalEndPoint within a Transport
// process, reachable at host:service.
//
// The zero value is not a valid address; use Parse or New.
type EndPointAddress struct {
	Host       string
	Service    string
	EndpointID int32
}

// New builds an address from its parts. EndpointID must be >= 0.
func New(host, service string, endpointID int32) (EndPointAddress, error) {
	if endpointID < 0 {
		return EndPointAddress{}, fmt.Errorf("address: endpoint id %d is negative", endpointID)
	}
	if strings.Contains(host, ":") || strings.Contains(service, ":") {
		return EndPointAddress{}, fmt.Errorf("address: host and service must not contain ':'")
	}
	return EndPointAddress{Host: host, Service: service, EndpointID: endpointID}, nil
}

// Parse decodes the wire form "host:service:endpoint-id" produced by Bytes/String.
func Parse(s string) (EndPointAddress, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return EndPointAddress{}, fmt.Errorf("address: malformed address %q", s)
	}
	id, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return EndPointAddress{}, fmt.Errorf("address: malformed endpoint id in %q: %w", s, err)
	}
	return New(parts[0], parts[1], int32(id))
}

// String returns the wire form "host:service:endpoint-id".
func (a EndPointAddress) String() string {
	return a.Host + ":" + a.Service + ":" + strconv.FormatInt(int64(a.EndpointID), 10)
}

// Bytes returns the UTF-8 wire form, as sent in the handshake.
func (a EndPointAddress) Bytes() []byte {
	return []byte(a.String())
}

// IsZero reports whether a is the unset address.
func (a EndPointAddress) IsZero() bool {
	return a == EndPointAddress{}
}

// Less compares two addresses lexicographically on their encoded byte
// form. This is the deterministic, symmetry-breaking rule used to
// resolve simultaneous connection attempts between the same two peers.
func (a EndPointAddress) Less(b EndPointAddress) bool {
	return a.String() < b.String()
}

// HostPort returns the host:service pair suitable for net.Dial.
func (a EndPointAddress) HostPort() string {
	return a.Host + ":" + a.Service
}
