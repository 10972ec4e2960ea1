// Package frame implements the bit-exact on-wire layout of RSocket frames:
// header parsing, metadata/data slicing, and per-type accessors. It is the
// frame codec (C1) that the fragmenter and reassembler build on.
package frame

import "fmt"

// HeaderSize is the fixed size, in bytes, of every frame header.
const HeaderSize = 6

// Type is the 6-bit frame type discriminant carried in the header.
type Type uint8

// Wire-level frame types, numbered per the RSocket protocol.
const (
	Reserved        Type = 0
	Setup           Type = 1
	Lease           Type = 2
	Keepalive       Type = 3
	RequestResponse Type = 4
	RequestFNF      Type = 5
	RequestStream   Type = 6
	RequestChannel  Type = 7
	RequestN        Type = 8
	Cancel          Type = 9
	Payload         Type = 10
	Error           Type = 11
	MetadataPush    Type = 12
	Resume          Type = 13
	ResumeOK        Type = 14
	Ext             Type = 63
)

// Synthetic inbound-only aliases. These never appear on the wire as a
// distinct type code: they are PAYLOAD frames distinguished by flags,
// named separately because callers (and the fragmentability table) care
// about the N/C flag combination, not just the wire type.
const (
	Next         Type = 100 + iota // PAYLOAD with N=1, C=0
	Complete                       // PAYLOAD with N=0, C=1
	NextComplete                   // PAYLOAD with N=1, C=1
)

func (t Type) String() string {
	switch t {
	case Setup:
		return "SETUP"
	case Lease:
		return "LEASE"
	case Keepalive:
		return "KEEPALIVE"
	case RequestResponse:
		return "REQUEST_RESPONSE"
	case RequestFNF:
		return "REQUEST_FNF"
	case RequestStream:
		return "REQUEST_STREAM"
	case RequestChannel:
		return "REQUEST_CHANNEL"
	case RequestN:
		return "REQUEST_N"
	case Cancel:
		return "CANCEL"
	case Payload:
		return "PAYLOAD"
	case Error:
		return "ERROR"
	case MetadataPush:
		return "METADATA_PUSH"
	case Resume:
		return "RESUME"
	case ResumeOK:
		return "RESUME_OK"
	case Ext:
		return "EXT"
	case Next:
		return "NEXT"
	case Complete:
		return "COMPLETE"
	case NextComplete:
		return "NEXT_COMPLETE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// IsWireType reports whether t is one of the 6-bit codes that can appear
// in a frame header, as opposed to a synthetic inbound alias.
func (t Type) IsWireType() bool {
	switch t {
	case Setup, Lease, Keepalive, RequestResponse, RequestFNF, RequestStream,
		RequestChannel, RequestN, Cancel, Payload, Error, MetadataPush,
		Resume, ResumeOK, Ext:
		return true
	default:
		return false
	}
}

// Flag bits, as laid out in the 10-bit flags field (high byte of the
// second header word carries M; the rest share the low byte).
const (
	FlagM uint16 = 0x100 // Metadata present
	FlagF uint16 = 0x080 // Follows: more fragments coming
	FlagC uint16 = 0x040 // Complete (also reused as "L"/last on REQUEST_CHANNEL)
	FlagN uint16 = 0x020 // Next
	FlagL        = FlagC // CHANNEL's "last" bit shares C's position
)

// fragmentable is the set of types whose payload may legally be split
// across multiple wire fragments.
var fragmentable = map[Type]bool{
	RequestResponse: true,
	RequestFNF:      true,
	RequestStream:   true,
	RequestChannel:  true,
	Payload:         true,
	Next:            true,
	Complete:        true,
	NextComplete:    true,
}

// IsFragmentable reports whether frames of type t may be split by the
// fragmenter. All other types are emitted as-is regardless of size.
func IsFragmentable(t Type) bool {
	return fragmentable[t]
}

// hasInitialRequestN is the set of types carrying a 4-byte
// initial_request_n prefix field ahead of metadata/data.
var hasInitialRequestN = map[Type]bool{
	RequestStream:  true,
	RequestChannel: true,
}

// HasInitialRequestN reports whether t carries the initial_request_n
// prefix field.
func HasInitialRequestN(t Type) bool {
	return hasInitialRequestN[t]
}
