package frame

import (
	"bytes"
	"io"
	"testing"
)

func TestInt32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMany(&buf, EncodeInt32(1234)); err != nil {
		t.Fatal(err)
	}
	v, err := RecvInt32(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1234 {
		t.Fatalf("got %d, want 1234", v)
	}
}

func TestWithLengthRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello, world")
	if err := SendMany(&buf, EncodeWithLength(payload)); err != nil {
		t.Fatal(err)
	}
	got, err := RecvWithLength(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestSendManyWritesChunksInOrder(t *testing.T) {
	var buf bytes.Buffer
	err := SendMany(&buf,
		EncodeInt32(HeaderRequestConnectionID),
		EncodeInt32(42),
	)
	if err != nil {
		t.Fatal(err)
	}
	header, err := RecvInt32(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if header != HeaderRequestConnectionID {
		t.Fatalf("got header %d, want %d", header, HeaderRequestConnectionID)
	}
	reqID, err := RecvInt32(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if reqID != 42 {
		t.Fatalf("got reqID %d, want 42", reqID)
	}
}

func TestRecvInt32ShortReadIsEOF(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 1})
	_, err := RecvInt32(buf)
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestRecvWithLengthRejectsNegative(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeInt32(-1))
	if _, err := RecvWithLength(&buf); err == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestIsControlHeader(t *testing.T) {
	if !IsControlHeader(0) || !IsControlHeader(FirstNonReserved - 1) {
		t.Fatal("expected values below FirstNonReserved to be control headers")
	}
	if IsControlHeader(FirstNonReserved) {
		t.Fatal("expected FirstNonReserved to be a data ConnectionId")
	}
}
