package frame

import "encoding/binary"

// ParseHeader reads the fixed 6-byte header from wire and returns the
// stream id, type, and flags. It does not touch the payload region.
func ParseHeader(wire []byte) (streamID uint32, t Type, flags uint16, err error) {
	if len(wire) < HeaderSize {
		return 0, 0, 0, malformed("header truncated")
	}
	word := binary.BigEndian.Uint32(wire[0:4])
	streamID = word >> 1
	second := binary.BigEndian.Uint16(wire[4:6])
	t = Type(second >> 10)
	flags = second & 0x3FF
	return streamID, t, flags, nil
}

func putHeader(buf []byte, streamID uint32, t Type, flags uint16) {
	binary.BigEndian.PutUint32(buf[0:4], streamID<<1)
	binary.BigEndian.PutUint16(buf[4:6], uint16(t)<<10|(flags&0x3FF))
}

// prefixSize returns the fixed-size type-specific prefix length, in
// bytes, that precedes the metadata/data payload region for wire type t.
// Types not listed here carry no fixed prefix (the payload region starts
// immediately after the header). SETUP, RESUME and RESUME_OK have their
// own variable-length layouts, encoded and decoded in setup.go.
func prefixSize(t Type) int {
	switch t {
	case RequestStream, RequestChannel:
		return 4 // initial_request_n
	case RequestN:
		return 4 // request_n
	case Error:
		return 4 // error_code
	case Lease:
		return 8 // ttl + number_of_requests
	default:
		return 0
	}
}

// SliceMetadata returns a zero-copy view of the metadata bytes in wire,
// or (nil, false) if M is not set. t must be the frame's wire type (the
// prefix size depends on it).
func SliceMetadata(wire []byte, t Type) ([]byte, bool, error) {
	_, _, flags, err := ParseHeader(wire)
	if err != nil {
		return nil, false, err
	}
	if flags&FlagM == 0 {
		return nil, false, nil
	}
	off := HeaderSize + prefixSize(t)
	if len(wire) < off+3 {
		return nil, false, malformed("truncated metadata length")
	}
	mdLen := uint32(wire[off])<<16 | uint32(wire[off+1])<<8 | uint32(wire[off+2])
	start := off + 3
	end := start + int(mdLen)
	if end > len(wire) {
		return nil, false, malformed("declared metadata length exceeds frame")
	}
	return wire[start:end], true, nil
}

// SliceData returns a zero-copy view of the data bytes in wire: whatever
// follows the type-specific prefix and, if present, the metadata region.
func SliceData(wire []byte, t Type) ([]byte, error) {
	_, _, flags, err := ParseHeader(wire)
	if err != nil {
		return nil, err
	}
	off := HeaderSize + prefixSize(t)
	if flags&FlagM != 0 {
		if len(wire) < off+3 {
			return nil, malformed("truncated metadata length")
		}
		mdLen := uint32(wire[off])<<16 | uint32(wire[off+1])<<8 | uint32(wire[off+2])
		off += 3 + int(mdLen)
		if off > len(wire) {
			return nil, malformed("declared metadata length exceeds frame")
		}
	}
	return wire[off:], nil
}

// Encode renders f to its on-wire byte layout (header, type-specific
// prefix, optional metadata-length+metadata, data). It never applies the
// outer frame-length prefix; that is a transport-level concern (see the
// duplex package's length framing).
func Encode(f *Frame) ([]byte, error) {
	switch f.Type {
	case Setup:
		body := encodeSetup(f)
		buf := make([]byte, HeaderSize+len(body))
		putHeader(buf, f.StreamID, f.Type, f.Flags)
		copy(buf[HeaderSize:], body)
		return buf, nil
	case Resume:
		body := encodeResume(f)
		buf := make([]byte, HeaderSize+len(body))
		putHeader(buf, f.StreamID, f.Type, f.Flags)
		copy(buf[HeaderSize:], body)
		return buf, nil
	case ResumeOK:
		body := encodeResumeOK(f)
		buf := make([]byte, HeaderSize+len(body))
		putHeader(buf, f.StreamID, f.Type, f.Flags)
		copy(buf[HeaderSize:], body)
		return buf, nil
	}

	prefix, err := encodePrefix(f)
	if err != nil {
		return nil, err
	}

	mdLen := 0
	hasMd := f.Flags&FlagM != 0
	if hasMd {
		mdLen = 3 + len(f.Metadata)
	}

	buf := make([]byte, HeaderSize+len(prefix)+mdLen+len(f.Data))
	// The header carries the 6-bit wire type; the synthetic Next/Complete/
	// NextComplete aliases always collapse to PAYLOAD here.
	putHeader(buf, f.StreamID, f.WireType(), f.Flags)
	n := HeaderSize
	n += copy(buf[n:], prefix)
	if hasMd {
		putUint24(buf[n:], uint32(len(f.Metadata)))
		n += 3
		n += copy(buf[n:], f.Metadata)
	}
	copy(buf[n:], f.Data)
	return buf, nil
}

// Decode parses wire into a logical Frame, including type-specific
// prefix fields and the metadata/data split.
func Decode(wire []byte) (*Frame, error) {
	streamID, t, flags, err := ParseHeader(wire)
	if err != nil {
		return nil, err
	}
	f := &Frame{StreamID: streamID, Type: t, Flags: flags}

	switch t {
	case Setup:
		if err := decodeSetup(f, wire[HeaderSize:]); err != nil {
			return nil, err
		}
		return f, nil
	case Resume:
		if err := decodeResume(f, wire[HeaderSize:]); err != nil {
			return nil, err
		}
		return f, nil
	case ResumeOK:
		if err := decodeResumeOK(f, wire[HeaderSize:]); err != nil {
			return nil, err
		}
		return f, nil
	}

	off := HeaderSize
	consumed, err := decodePrefix(f, wire[off:])
	if err != nil {
		return nil, err
	}
	off += consumed

	if flags&FlagM != 0 {
		if len(wire) < off+3 {
			return nil, malformed("truncated metadata length")
		}
		mdLen := int(uint32(wire[off])<<16 | uint32(wire[off+1])<<8 | uint32(wire[off+2]))
		off += 3
		if off+mdLen > len(wire) {
			return nil, malformed("declared metadata length exceeds frame")
		}
		f.Metadata = wire[off : off+mdLen]
		off += mdLen
	}
	f.Data = wire[off:]
	return f, nil
}

func putUint24(buf []byte, v uint32) {
	buf[0] = byte(v >> 16)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v)
}

// encodePrefix renders the type-specific prefix fields that precede the
// metadata/data payload region. Only REQUEST_STREAM, REQUEST_CHANNEL,
// REQUEST_N, ERROR and LEASE carry a fixed-size prefix under this
// codec; all others return an empty prefix.
func encodePrefix(f *Frame) ([]byte, error) {
	switch f.Type {
	case RequestStream, RequestChannel:
		buf := make([]byte, 4)
		var n uint32
		if f.InitialRequestN != nil {
			n = *f.InitialRequestN
		}
		binary.BigEndian.PutUint32(buf, n)
		return buf, nil
	case RequestN:
		buf := make([]byte, 4)
		var n uint32
		if f.RequestN != nil {
			n = *f.RequestN
		}
		binary.BigEndian.PutUint32(buf, n)
		return buf, nil
	case Error:
		buf := make([]byte, 4)
		var code uint32
		if f.ErrorCode != nil {
			code = *f.ErrorCode
		}
		binary.BigEndian.PutUint32(buf, code)
		return buf, nil
	case Lease:
		buf := make([]byte, 8)
		var ttl, num uint32
		if f.TimeToLiveMillis != nil {
			ttl = *f.TimeToLiveMillis
		}
		if f.NumberOfRequests != nil {
			num = *f.NumberOfRequests
		}
		binary.BigEndian.PutUint32(buf[0:4], ttl)
		binary.BigEndian.PutUint32(buf[4:8], num)
		return buf, nil
	default:
		return nil, nil
	}
}

// decodePrefix parses the type-specific prefix from the bytes following
// the header and returns how many bytes it consumed.
func decodePrefix(f *Frame, rest []byte) (int, error) {
	need := prefixSize(f.Type)
	if len(rest) < need {
		return 0, malformed("truncated type-specific prefix")
	}
	switch f.Type {
	case RequestStream, RequestChannel:
		n := binary.BigEndian.Uint32(rest[0:4])
		f.InitialRequestN = &n
	case RequestN:
		n := binary.BigEndian.Uint32(rest[0:4])
		f.RequestN = &n
	case Error:
		code := binary.BigEndian.Uint32(rest[0:4])
		f.ErrorCode = &code
	case Lease:
		ttl := binary.BigEndian.Uint32(rest[0:4])
		num := binary.BigEndian.Uint32(rest[4:8])
		f.TimeToLiveMillis = &ttl
		f.NumberOfRequests = &num
	}
	return need, nil
}
