package frame

import "encoding/binary"

// FlagR is SETUP's "resume enabled" bit. SETUP is non-fragmentable, so
// it never needs a Follows flag; the bit position is reused, the same
// way REQUEST_CHANNEL reuses C's position for L.
const FlagR = FlagF

// SETUP, RESUME and RESUME_OK carry variable-length fields the generic
// prefix/metadata/data codec in codec.go does not model; they are
// non-fragmentable passthrough traffic the duplex adapter must still be
// able to encode and decode whole.

func encodeSetup(f *Frame) []byte {
	var resumeTokenField []byte
	if f.Flags&FlagR != 0 {
		resumeTokenField = make([]byte, 2+len(f.ResumeToken))
		binary.BigEndian.PutUint16(resumeTokenField, uint16(len(f.ResumeToken)))
		copy(resumeTokenField[2:], f.ResumeToken)
	}

	mdMime := stringField(f.MetadataMimeType)
	dataMime := stringField(f.DataMimeType)

	fixed := make([]byte, 12)
	putUint16(fixed[0:2], valUint16(f.SetupMajorVersion))
	putUint16(fixed[2:4], valUint16(f.SetupMinorVersion))
	binary.BigEndian.PutUint32(fixed[4:8], valUint32(f.KeepaliveIntervalMs))
	binary.BigEndian.PutUint32(fixed[8:12], valUint32(f.MaxLifetimeMs))

	mdLen := 0
	hasMd := f.Flags&FlagM != 0
	if hasMd {
		mdLen = 3 + len(f.Metadata)
	}

	out := make([]byte, 0, len(fixed)+len(resumeTokenField)+1+len(mdMime)+1+len(dataMime)+mdLen+len(f.Data))
	out = append(out, fixed...)
	out = append(out, resumeTokenField...)
	out = append(out, byte(len(mdMime)))
	out = append(out, mdMime...)
	out = append(out, byte(len(dataMime)))
	out = append(out, dataMime...)
	if hasMd {
		lenBuf := make([]byte, 3)
		putUint24(lenBuf, uint32(len(f.Metadata)))
		out = append(out, lenBuf...)
		out = append(out, f.Metadata...)
	}
	out = append(out, f.Data...)
	return out
}

func decodeSetup(f *Frame, rest []byte) error {
	if len(rest) < 12 {
		return malformed("truncated SETUP fixed fields")
	}
	major := binary.BigEndian.Uint16(rest[0:2])
	minor := binary.BigEndian.Uint16(rest[2:4])
	keepalive := binary.BigEndian.Uint32(rest[4:8])
	maxLifetime := binary.BigEndian.Uint32(rest[8:12])
	f.SetupMajorVersion = &major
	f.SetupMinorVersion = &minor
	f.KeepaliveIntervalMs = &keepalive
	f.MaxLifetimeMs = &maxLifetime
	off := 12

	if f.Flags&FlagR != 0 {
		if len(rest) < off+2 {
			return malformed("truncated SETUP resume token length")
		}
		tokLen := int(binary.BigEndian.Uint16(rest[off : off+2]))
		off += 2
		if len(rest) < off+tokLen {
			return malformed("truncated SETUP resume token")
		}
		f.ResumeToken = rest[off : off+tokLen]
		off += tokLen
	}

	mdMime, n, err := readStringField(rest, off)
	if err != nil {
		return err
	}
	off += n
	f.MetadataMimeType = &mdMime

	dataMime, n, err := readStringField(rest, off)
	if err != nil {
		return err
	}
	off += n
	f.DataMimeType = &dataMime

	if f.Flags&FlagM != 0 {
		if len(rest) < off+3 {
			return malformed("truncated SETUP metadata length")
		}
		mdLen := int(uint32(rest[off])<<16 | uint32(rest[off+1])<<8 | uint32(rest[off+2]))
		off += 3
		if len(rest) < off+mdLen {
			return malformed("declared SETUP metadata length exceeds frame")
		}
		f.Metadata = rest[off : off+mdLen]
		off += mdLen
	}
	f.Data = rest[off:]
	return nil
}

func encodeResume(f *Frame) []byte {
	tokField := make([]byte, 2+len(f.ResumeIdentificationToken))
	binary.BigEndian.PutUint16(tokField, uint16(len(f.ResumeIdentificationToken)))
	copy(tokField[2:], f.ResumeIdentificationToken)

	out := make([]byte, 4, 4+len(tokField)+16)
	putUint16(out[0:2], valUint16(f.SetupMajorVersion))
	putUint16(out[2:4], valUint16(f.SetupMinorVersion))
	out = append(out, tokField...)

	pos := make([]byte, 16)
	binary.BigEndian.PutUint64(pos[0:8], valUint64(f.ResumeLastReceivedPos))
	binary.BigEndian.PutUint64(pos[8:16], valUint64(f.ResumeFirstAvailablePos))
	out = append(out, pos...)
	return out
}

func decodeResume(f *Frame, rest []byte) error {
	if len(rest) < 4 {
		return malformed("truncated RESUME version")
	}
	major := binary.BigEndian.Uint16(rest[0:2])
	minor := binary.BigEndian.Uint16(rest[2:4])
	f.SetupMajorVersion = &major
	f.SetupMinorVersion = &minor
	off := 4

	if len(rest) < off+2 {
		return malformed("truncated RESUME token length")
	}
	tokLen := int(binary.BigEndian.Uint16(rest[off : off+2]))
	off += 2
	if len(rest) < off+tokLen {
		return malformed("truncated RESUME token")
	}
	f.ResumeIdentificationToken = rest[off : off+tokLen]
	off += tokLen

	if len(rest) < off+16 {
		return malformed("truncated RESUME positions")
	}
	last := binary.BigEndian.Uint64(rest[off : off+8])
	first := binary.BigEndian.Uint64(rest[off+8 : off+16])
	f.ResumeLastReceivedPos = &last
	f.ResumeFirstAvailablePos = &first
	return nil
}

func encodeResumeOK(f *Frame) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, valUint64(f.ResumeLastReceivedPos))
	return buf
}

func decodeResumeOK(f *Frame, rest []byte) error {
	if len(rest) < 8 {
		return malformed("truncated RESUME_OK position")
	}
	last := binary.BigEndian.Uint64(rest[0:8])
	f.ResumeLastReceivedPos = &last
	return nil
}

func stringField(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func readStringField(buf []byte, off int) (string, int, error) {
	if len(buf) < off+1 {
		return "", 0, malformed("truncated string field length")
	}
	l := int(buf[off])
	if len(buf) < off+1+l {
		return "", 0, malformed("truncated string field")
	}
	return string(buf[off+1 : off+1+l]), 1 + l, nil
}

func putUint16(buf []byte, v uint16) {
	binary.BigEndian.PutUint16(buf, v)
}

func valUint16(p *uint16) uint16 {
	if p == nil {
		return 0
	}
	return *p
}

func valUint32(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}

func valUint64(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}
