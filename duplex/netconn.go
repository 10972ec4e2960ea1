package duplex

import (
	"context"
	"io"
	"net"
	"sync"
)

// NetDuplex is a reference ByteDuplex over a net.Conn (raw TCP and
// similar stream transports that do not preserve message boundaries on
// their own). It uses the same 3-byte length-prefix convention the
// fragmentation layer's `encode_length` toggle produces purely to find
// fragment boundaries on the wire; the bytes it hands to and receives
// from its caller always include that prefix, so the caller's own
// encode_length-driven (de)framing (see duplex.go) stays the single
// place that understands the prefix semantically.
type NetDuplex struct {
	conn net.Conn

	mu       sync.Mutex
	disposed bool
	closed   chan struct{}
}

// NewNetDuplex wraps conn. Callers using NetDuplex with
// FragmentingDuplex must set encodeLength=true; NetDuplex has no other
// way to delimit fragments on a raw stream.
func NewNetDuplex(conn net.Conn) *NetDuplex {
	return &NetDuplex{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

// SendOne writes wire — which already carries its own 3-byte length
// prefix — verbatim to the connection.
func (n *NetDuplex) SendOne(ctx context.Context, wire []byte) error {
	if n.IsDisposed() {
		return ErrDisposed
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = n.conn.SetWriteDeadline(dl)
	}
	_, err := n.conn.Write(wire)
	return err
}

// Receive reads one length-prefixed chunk (3-byte big-endian length,
// then that many bytes) and returns it including the prefix, so the
// caller's StripLength call finds exactly what PrependLength produced.
func (n *NetDuplex) Receive(ctx context.Context) ([]byte, error) {
	if n.IsDisposed() {
		return nil, ErrDisposed
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = n.conn.SetReadDeadline(dl)
	}

	var lenBuf [3]byte
	if _, err := io.ReadFull(n.conn, lenBuf[:]); err != nil {
		return nil, err
	}
	n3 := int(lenBuf[0])<<16 | int(lenBuf[1])<<8 | int(lenBuf[2])

	body := make([]byte, 3+n3)
	copy(body, lenBuf[:])
	if _, err := io.ReadFull(n.conn, body[3:]); err != nil {
		return nil, err
	}
	return body, nil
}

// OnClose returns a channel closed once Dispose runs.
func (n *NetDuplex) OnClose() <-chan struct{} {
	return n.closed
}

// Dispose closes the underlying connection. Idempotent.
func (n *NetDuplex) Dispose() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.disposed {
		return
	}
	n.disposed = true
	close(n.closed)
	_ = n.conn.Close()
}

// IsDisposed reports whether Dispose has run.
func (n *NetDuplex) IsDisposed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.disposed
}

// Availability reports 1.0 while open, 0.0 once disposed. A production
// transport would fold in send-buffer pressure; this reference duplex
// has none to report.
func (n *NetDuplex) Availability() float64 {
	if n.IsDisposed() {
		return 0
	}
	return 1
}
