// Package duplex implements the fragmenting duplex adapter (C4): it
// wraps a raw byte-frame duplex connection, delegating oversized
// fragmentable frames to the fragmenter on send and feeding every
// inbound wire frame through the reassembler on receive.
package duplex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/filegrind/rsocket-fragment/fragment"
	"github.com/filegrind/rsocket-fragment/frame"
	"github.com/filegrind/rsocket-fragment/reassemble"
)

// ByteDuplex is the external collaborator this layer decorates: a raw
// byte-frame duplex connection (TCP, WebSocket, ...). Buffers exchanged
// are already-framed wire bytes, without the fragmentation layer's own
// semantics.
type ByteDuplex interface {
	SendOne(ctx context.Context, wire []byte) error
	Receive(ctx context.Context) ([]byte, error) // io.EOF when the peer closes cleanly
	OnClose() <-chan struct{}
	Dispose()
	IsDisposed() bool
	Availability() float64
}

// ErrDisposed is returned by any operation attempted after Dispose.
var ErrDisposed = errors.New("duplex: disposed")

// FragmentingDuplex is the C4 adapter. Construct with New.
type FragmentingDuplex struct {
	underlying        ByteDuplex
	mtu               int // <= 0 disables fragmentation
	encodeLength      bool
	maxReassemblySize int

	reassembler *reassemble.Reassembler
	log         zerolog.Logger

	mu       sync.Mutex
	disposed bool
}

// New builds a FragmentingDuplex over underlying. mtu of 0 or negative
// disables fragmentation entirely (frames are forwarded as single wire
// writes regardless of size). maxReassemblySize of 0 disables the
// reassembly size cap.
func New(underlying ByteDuplex, mtu int, encodeLength bool, maxReassemblySize int, log zerolog.Logger) *FragmentingDuplex {
	d := &FragmentingDuplex{
		underlying:        underlying,
		mtu:               mtu,
		encodeLength:      encodeLength,
		maxReassemblySize: maxReassemblySize,
		reassembler:       reassemble.New(maxReassemblySize),
		log:               log,
	}
	go d.watchClose()
	return d
}

func (d *FragmentingDuplex) watchClose() {
	<-d.underlying.OnClose()
	d.Dispose()
}

// SendOne encodes f and forwards it to the underlying duplex, splitting
// it into MTU-bounded fragments first when it is fragmentable and
// oversized.
func (d *FragmentingDuplex) SendOne(ctx context.Context, f *frame.Frame) error {
	if d.IsDisposed() {
		return ErrDisposed
	}

	wire, err := frame.Encode(f)
	if err != nil {
		return fmt.Errorf("duplex: encode: %w", err)
	}

	if d.mtu > 0 && f.Fragmentable() && len(wire) > d.mtu {
		return d.sendFragmented(ctx, f)
	}
	return d.writeWire(ctx, wire)
}

func (d *FragmentingDuplex) sendFragmented(ctx context.Context, f *frame.Frame) error {
	fr, err := fragment.New(f, d.mtu, d.encodeLength)
	if err != nil {
		d.log.Error().Err(err).Uint32("stream_id", f.StreamID).Msg("invalid frame type reached fragmenter")
		return err
	}
	for {
		wire, err := fr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("duplex: fragment: %w", err)
		}
		if err := d.writeWire(ctx, wire); err != nil {
			return err
		}
	}
}

func (d *FragmentingDuplex) writeWire(ctx context.Context, wire []byte) error {
	if d.encodeLength {
		wire = PrependLength(wire)
	}
	return d.underlying.SendOne(ctx, wire)
}

// Send forwards frames strictly in order, with no interleaving: one
// frame's fragments (if any) complete on the wire before the next
// frame's first byte is written.
func (d *FragmentingDuplex) Send(ctx context.Context, frames []*frame.Frame) error {
	for _, f := range frames {
		if err := d.SendOne(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// Receive returns the next reassembled logical frame. It transparently
// loops over inbound wire fragments that do not yet complete a chain.
func (d *FragmentingDuplex) Receive(ctx context.Context) (*frame.Frame, error) {
	for {
		wire, err := d.underlying.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.Dispose()
			}
			return nil, err
		}
		if d.encodeLength {
			wire, err = StripLength(wire)
			if err != nil {
				d.Dispose()
				return nil, fmt.Errorf("duplex: %w", err)
			}
		}

		decoded, err := frame.Decode(wire)
		if err != nil {
			// A malformed frame is fatal for the connection: the byte
			// stream can no longer be trusted to delimit frames
			// correctly, so every in-flight stream's reassembly state is
			// torn down along with the connection.
			d.log.Error().Err(err).Msg("malformed inbound frame, aborting connection")
			d.Dispose()
			return nil, fmt.Errorf("duplex: %w", err)
		}

		reassembled, err := d.reassembler.Reassemble(decoded)
		if err != nil {
			var rerr *reassemble.Error
			if errors.As(err, &rerr) {
				d.log.Warn().Err(err).Uint32("stream_id", rerr.StreamID).Msg("reassembly aborted")
			}
			return nil, err
		}
		if reassembled == nil {
			continue
		}
		return reassembled, nil
	}
}

// OnClose forwards the underlying duplex's close signal.
func (d *FragmentingDuplex) OnClose() <-chan struct{} {
	return d.underlying.OnClose()
}

// Dispose tears down the adapter's reassembler state and disposes the
// underlying duplex. Idempotent.
func (d *FragmentingDuplex) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	d.mu.Unlock()

	d.reassembler.Dispose()
	d.underlying.Dispose()
}

// IsDisposed reports whether Dispose has run.
func (d *FragmentingDuplex) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Availability forwards the underlying duplex's availability signal.
func (d *FragmentingDuplex) Availability() float64 {
	if d.IsDisposed() {
		return 0
	}
	return d.underlying.Availability()
}
