// Package reassemble implements the frame reassembler (C3): per
// stream-id, it accumulates incoming fragments and emits the
// reassembled logical frame once the terminal fragment of a chain
// arrives.
package reassemble

import (
	"sync"

	"github.com/filegrind/rsocket-fragment/frame"
)

// entry is the per-stream accumulator: the captured first-fragment
// header, and growing metadata/data buffers.
type entry struct {
	firstType       frame.Type
	firstFlags      uint16 // extra bits (e.g. L) captured from the first fragment, for request chains
	initialRequestN *uint32
	isPayloadChain  bool

	metadata     []byte
	mdContribued bool
	data         []byte
}

func (e *entry) size() int {
	return len(e.metadata) + len(e.data)
}

// Reassembler holds one accumulator per stream-id. The zero value is
// not usable; construct with New.
type Reassembler struct {
	mu                sync.Mutex
	entries           map[uint32]*entry
	maxReassemblySize int // 0 means unbounded
}

// New constructs a Reassembler. maxReassemblySize of 0 disables the
// accumulated-size bound per stream.
func New(maxReassemblySize int) *Reassembler {
	return &Reassembler{
		entries:           make(map[uint32]*entry),
		maxReassemblySize: maxReassemblySize,
	}
}

// Reassemble feeds one inbound, already-decoded fragment through the
// per-stream state machine. It returns the reassembled frame once the
// terminal fragment of a chain arrives; otherwise it returns (nil, nil)
// and retains state.
func (r *Reassembler) Reassemble(fragment *frame.Frame) (*frame.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	streamID := fragment.StreamID
	e, collecting := r.entries[streamID]

	if !collecting {
		if !fragment.Follows() {
			// IDLE --F=0--> emit as-is, stay IDLE.
			return fragment, nil
		}
		if !fragment.Fragmentable() {
			// Non-fragmentable types never start a chain; on them the F
			// bit position carries a type-specific flag (SETUP's R), so
			// they are emitted as-is.
			return fragment, nil
		}
		// IDLE --F=1, fragmentable type--> COLLECTING
		e = &entry{
			firstType:       fragment.WireType(),
			isPayloadChain:  fragment.WireType() == frame.Payload,
			initialRequestN: fragment.InitialRequestN,
		}
		if e.isPayloadChain {
			// N/C (and L, which shares C's bit) are restored from the
			// terminal fragment for PAYLOAD chains, not the first.
		} else {
			e.firstFlags = fragment.Flags &^ (frame.FlagM | frame.FlagF)
		}
		r.appendInto(e, fragment)
		if err := r.checkSize(streamID, e); err != nil {
			delete(r.entries, streamID)
			return nil, err
		}
		r.entries[streamID] = e
		return nil, nil
	}

	// COLLECTING state.
	if fragment.Type != frame.Payload {
		delete(r.entries, streamID)
		return nil, violation(streamID, "expected a PAYLOAD continuation fragment, got "+fragment.Type.String())
	}

	r.appendInto(e, fragment)
	if err := r.checkSize(streamID, e); err != nil {
		delete(r.entries, streamID)
		return nil, err
	}

	if fragment.Follows() {
		// COLLECTING --F=1, type=PAYLOAD--> COLLECTING
		return nil, nil
	}

	// COLLECTING --F=0, type=PAYLOAD--> emit reassembled, go IDLE.
	out := &frame.Frame{
		StreamID:        streamID,
		Type:            e.firstType,
		InitialRequestN: e.initialRequestN,
		Data:            e.data,
	}
	if e.mdContribued {
		out.Flags |= frame.FlagM
		out.Metadata = e.metadata
	}
	if e.isPayloadChain {
		out.Flags |= fragment.Flags & (frame.FlagN | frame.FlagC)
	} else {
		out.Flags |= e.firstFlags
	}

	delete(r.entries, streamID)
	return out, nil
}

func (r *Reassembler) appendInto(e *entry, fragment *frame.Frame) {
	if fragment.HasMetadata() {
		e.mdContribued = true
		e.metadata = append(e.metadata, fragment.Metadata...)
	}
	e.data = append(e.data, fragment.Data...)
}

func (r *Reassembler) checkSize(streamID uint32, e *entry) error {
	if r.maxReassemblySize <= 0 {
		return nil
	}
	if e.size() > r.maxReassemblySize {
		return tooLarge(streamID, "accumulated size exceeds configured maximum")
	}
	return nil
}

// DisposeStream discards in-progress state for one stream without
// emitting a frame, e.g. on an upper-layer cancel. Reassemble clears a
// stream's state itself when it aborts a chain.
func (r *Reassembler) DisposeStream(streamID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, streamID)
}

// Dispose releases all accumulators and discards all pending state; no
// frame is emitted for any in-progress chain. Safe to call more than
// once.
func (r *Reassembler) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[uint32]*entry)
}

// InProgress reports whether streamID currently has an accumulating
// chain. Exposed for tests and metrics.
func (r *Reassembler) InProgress(streamID uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[streamID]
	return ok
}
