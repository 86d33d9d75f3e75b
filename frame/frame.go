// Package frame implements the on-wire codec shared by the handshake and
// the per-connection control/data protocol: fixed-width big-endian int32
// headers and int32-length-prefixed byte payloads over a blocking byte
// stream.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// Debug, if set, receives a line for every frame sent or received. It
// exists purely for local troubleshooting and is nil by default.
var Debug io.Writer

// RecvInt32 reads one big-endian int32 from r. A short read is
// accumulated until complete; EOF after some but not all bytes is
// reported as io.ErrUnexpectedEOF by io.ReadFull, and EOF before any byte
// as io.EOF.
func RecvInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(buf[:]))
	if Debug != nil {
		fmt.Fprintf(Debug, ">>DEC int32 %d\n", v)
	}
	return v, nil
}

// RecvWithLength reads an int32 count n followed by n bytes and returns
// the payload. n must be >= 0.
func RecvWithLength(r io.Reader) ([]byte, error) {
	n, err := RecvInt32(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("frame: negative length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if Debug != nil {
		fmt.Fprintf(Debug, ">>DEC %d bytes\n", n)
	}
	return buf, nil
}

// EncodeInt32 returns the 4-byte big-endian encoding of v.
func EncodeInt32(v int32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	return buf[:]
}

// EncodeWithLength returns the int32-length-prefixed encoding of b.
func EncodeWithLength(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(out[:4], uint32(len(b)))
	copy(out[4:], b)
	return out
}

// SendMany writes all chunks to w in order. When w supports vectored
// writes (e.g. *net.TCPConn) net.Buffers sends them in one writev call;
// otherwise it issues one Write per chunk. SendMany itself does not keep
// other writers out: callers that share w serialize their calls (see
// RemoteEndPoint.send, which holds the remote lock).
func SendMany(w io.Writer, chunks ...[]byte) error {
	if Debug != nil {
		total := 0
		for _, c := range chunks {
			total += len(c)
		}
		fmt.Fprintf(Debug, "<<ENC %d chunks, %d bytes\n", len(chunks), total)
	}
	bufs := net.Buffers(chunks)
	_, err := bufs.WriteTo(w)
	return err
}
