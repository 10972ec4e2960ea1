package duplex

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetDuplexSendReceiveRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	server := NewNetDuplex(serverConn)
	client := NewNetDuplex(clientConn)
	defer server.Dispose()
	defer client.Dispose()

	wire := PrependLength([]byte("hello wire"))

	done := make(chan error, 1)
	go func() {
		done <- server.SendOne(context.Background(), wire)
	}()

	got, err := client.Receive(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, wire, got)
}

func TestNetDuplexDisposeClosesConnAndIsIdempotent(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	n := NewNetDuplex(serverConn)

	n.Dispose()
	n.Dispose() // must not panic
	assert.True(t, n.IsDisposed())
	assert.Equal(t, 0.0, n.Availability())

	err := n.SendOne(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrDisposed)
}
