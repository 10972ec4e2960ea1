package frame

// Frame is the logical, immutable view of an RSocket frame: a stream id,
// a type, flags, optional metadata, data, and any type-specific prefix
// fields. It is the unit C2 (fragmenter) splits and C3 (reassembler)
// reconstructs.
//
// Metadata presence is decided by FlagM alone: with M set, a nil or
// zero-length Metadata is encoded as zero metadata bytes, distinct from
// M unset (no metadata region at all). Decode leaves Metadata nil when M
// is unset and non-nil, possibly zero-length, when M is set.
type Frame struct {
	StreamID uint32 // 31-bit stream identifier
	Type     Type
	Flags    uint16 // named bits: FlagM, FlagF, FlagC, FlagN, FlagL

	Metadata []byte
	Data     []byte

	// InitialRequestN is set only for REQUEST_STREAM / REQUEST_CHANNEL.
	InitialRequestN *uint32

	// RequestN carries the REQUEST_N frame's increment.
	RequestN *uint32

	// ErrorCode and the ERROR frame's data (carried in Data) describe a
	// protocol-level error.
	ErrorCode *uint32

	// Lease fields.
	TimeToLiveMillis  *uint32
	NumberOfRequests  *uint32

	// Setup fields.
	SetupMajorVersion    *uint16
	SetupMinorVersion    *uint16
	KeepaliveIntervalMs  *uint32
	MaxLifetimeMs        *uint32
	ResumeToken          []byte // present iff SETUP's resume bit is set
	MetadataMimeType     *string
	DataMimeType         *string

	// Resume/ResumeOK fields.
	ResumeIdentificationToken []byte
	ResumeLastReceivedPos     *uint64
	ResumeFirstAvailablePos   *uint64
}

// HasMetadata reports whether M is set (Metadata present, possibly empty).
func (f *Frame) HasMetadata() bool {
	return f.Flags&FlagM != 0
}

// Follows reports whether F is set: more fragments of this chain follow.
func (f *Frame) Follows() bool {
	return f.Flags&FlagF != 0
}

// Fragmentable reports whether this frame's type may be split by C2.
func (f *Frame) Fragmentable() bool {
	return IsFragmentable(f.Type)
}

// WireType returns the 6-bit type that would actually appear in the
// header: the synthetic inbound-only aliases (Next, Complete,
// NextComplete) all collapse to Payload.
func (f *Frame) WireType() Type {
	switch f.Type {
	case Next, Complete, NextComplete:
		return Payload
	default:
		return f.Type
	}
}

// Clone returns a deep-enough copy for tests and accumulators: byte
// slices are copied so mutation of one frame never affects another.
func (f *Frame) Clone() *Frame {
	clone := *f
	clone.Metadata = cloneBytes(f.Metadata)
	clone.Data = cloneBytes(f.Data)
	clone.ResumeToken = cloneBytes(f.ResumeToken)
	clone.ResumeIdentificationToken = cloneBytes(f.ResumeIdentificationToken)
	return &clone
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
