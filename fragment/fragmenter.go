// Package fragment implements the frame fragmenter (C2): given one
// logical frame and an MTU, it produces an ordered, lazy sequence of
// wire fragments obeying the MTU-accounting and flag-propagation rules
// of the fragmentation layer.
package fragment

import (
	"fmt"
	"io"

	"github.com/filegrind/rsocket-fragment/frame"
)

// Fragmenter is a pull-based, single-producer/single-consumer iterator:
// each call to Next produces exactly one wire fragment, in order, with
// no fragment constructed ahead of demand. This mirrors the reactive
// generator the protocol's reference implementation uses for the same
// purpose — any one-per-demand iterator shape satisfies the contract.
type Fragmenter struct {
	wireType frame.Type // original.WireType()
	streamID uint32

	chainFlags uint16 // N/C bits to emit on the terminal fragment of a PAYLOAD chain
	extraFlags uint16 // non-M/F bits to emit on the first fragment of a request type

	initialRequestN *uint32
	isPayloadChain  bool

	metadata    []byte
	mdRemaining []byte
	mdDone      bool // true once the (possibly zero-length) metadata block has been fully emitted

	data []byte

	mtu          int
	encodeLength bool

	first bool
	done  bool
}

// New builds a Fragmenter for f at the given mtu. encodeLength only
// affects the budget accounting a caller performs externally when the
// underlying transport needs the 3-byte length prefix; Fragmenter
// itself never writes that prefix (see the duplex package).
func New(f *frame.Frame, mtu int, encodeLength bool) (*Fragmenter, error) {
	if !f.Fragmentable() {
		return nil, &InvalidFrameTypeError{Type: f.Type}
	}

	wt := f.WireType()
	isPayloadChain := wt == frame.Payload

	fr := &Fragmenter{
		wireType:       wt,
		streamID:       f.StreamID,
		mtu:            mtu,
		encodeLength:   encodeLength,
		first:          true,
		isPayloadChain: isPayloadChain,
	}

	if isPayloadChain {
		fr.chainFlags = f.Flags & (frame.FlagN | frame.FlagC)
	} else {
		// Preserve everything but M/F: request types carry their own
		// semantic flags (e.g. CHANNEL's L, which shares C's bit) on
		// the first fragment only; M and F are recomputed per fragment.
		fr.extraFlags = f.Flags &^ (frame.FlagM | frame.FlagF)
	}

	if frame.HasInitialRequestN(f.Type) {
		n := uint32(0)
		if f.InitialRequestN != nil {
			n = *f.InitialRequestN
		}
		fr.initialRequestN = &n
	}

	if f.HasMetadata() {
		fr.metadata = f.Metadata
		fr.mdRemaining = f.Metadata
	} else {
		fr.mdDone = true
	}
	fr.data = f.Data

	return fr, nil
}

// Next produces the next wire fragment, or io.EOF once the sequence is
// exhausted (the sequence terminates after the fragment that exhausts
// both metadata and data).
func (fr *Fragmenter) Next() ([]byte, error) {
	if fr.done {
		return nil, io.EOF
	}

	isFirst := fr.first
	fr.first = false

	ftype := fr.wireType
	if !isFirst {
		ftype = frame.Payload
	}

	m := fr.mtu - frame.HeaderSize

	var prefix []byte
	if isFirst && fr.initialRequestN != nil {
		m -= 4
		prefix = make([]byte, 4)
		putUint32(prefix, *fr.initialRequestN)
	}

	var mdChunk []byte
	emitMD := false
	if !fr.mdDone {
		if m < 3 {
			return nil, fmt.Errorf("fragment: mtu %d too small to carry metadata length prefix", fr.mtu)
		}
		m -= 3
		r := m
		if r > len(fr.mdRemaining) {
			r = len(fr.mdRemaining)
		}
		if r < 0 {
			r = 0
		}
		mdChunk = fr.mdRemaining[:r]
		fr.mdRemaining = fr.mdRemaining[r:]
		m -= r
		emitMD = true
		if len(fr.mdRemaining) == 0 {
			fr.mdDone = true
		}
	}

	var dataChunk []byte
	if m > 0 && len(fr.data) > 0 {
		r := m
		if r > len(fr.data) {
			r = len(fr.data)
		}
		dataChunk = fr.data[:r]
		fr.data = fr.data[r:]
	}

	moreRemain := !fr.mdDone || len(fr.data) > 0

	out := &frame.Frame{
		StreamID: fr.streamID,
		Type:     ftype,
	}
	if moreRemain {
		out.Flags |= frame.FlagF
	}
	if emitMD {
		out.Flags |= frame.FlagM
		out.Metadata = mdChunk
	}
	out.Data = dataChunk

	if isFirst {
		out.Flags |= fr.extraFlags
		if fr.initialRequestN != nil {
			out.InitialRequestN = fr.initialRequestN
		}
	}
	if fr.isPayloadChain && !moreRemain {
		out.Flags |= fr.chainFlags
	}

	if !moreRemain {
		fr.done = true
	}

	return frame.Encode(out)
}

func putUint32(buf []byte, v uint32) {
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
}

// Collect drains the Fragmenter eagerly, returning all wire fragments in
// order. Convenience for tests and for transports without native
// backpressure; production send paths should prefer Next() so fragment
// construction tracks downstream demand.
func Collect(f *frame.Frame, mtu int, encodeLength bool) ([][]byte, error) {
	fr, err := New(f, mtu, encodeLength)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for {
		wire, err := fr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, wire)
	}
}
