package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderSize)
	putHeader(buf, 0x12345678&0x7FFFFFFF, RequestResponse, FlagM|FlagF)

	streamID, typ, flags, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678&0x7FFFFFFF), streamID)
	assert.Equal(t, RequestResponse, typ)
	assert.Equal(t, FlagM|FlagF, flags)
}

func TestParseHeaderTruncated(t *testing.T) {
	_, _, _, err := ParseHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestEncodeDecodeRequestResponse(t *testing.T) {
	f := &Frame{
		StreamID: 7,
		Type:     RequestResponse,
		Flags:    FlagM,
		Metadata: []byte("meta"),
		Data:     []byte("hello world"),
	}
	wire, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, f.StreamID, got.StreamID)
	assert.Equal(t, f.Type, got.Type)
	assert.Equal(t, f.Flags, got.Flags)
	assert.Equal(t, f.Metadata, got.Metadata)
	assert.Equal(t, f.Data, got.Data)
}

func TestEncodeDecodeNoMetadata(t *testing.T) {
	f := &Frame{StreamID: 1, Type: RequestFNF, Data: []byte("payload")}
	wire, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(wire)
	require.NoError(t, err)
	assert.False(t, got.HasMetadata())
	assert.Nil(t, got.Metadata)
	assert.Equal(t, f.Data, got.Data)
}

func TestEncodeDecodeZeroLengthMetadataDistinctFromNoMetadata(t *testing.T) {
	f := &Frame{StreamID: 1, Type: Payload, Flags: FlagM | FlagN | FlagC, Metadata: []byte{}, Data: []byte("x")}
	wire, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(wire)
	require.NoError(t, err)
	assert.True(t, got.HasMetadata())
	assert.NotNil(t, got.Metadata)
	assert.Len(t, got.Metadata, 0)
}

func TestEncodeCollapsesSyntheticTypeToPayload(t *testing.T) {
	f := &Frame{StreamID: 3, Type: NextComplete, Flags: FlagN | FlagC, Data: []byte("ok")}
	wire, err := Encode(f)
	require.NoError(t, err)

	_, typ, flags, err := ParseHeader(wire)
	require.NoError(t, err)
	assert.Equal(t, Payload, typ)
	assert.Equal(t, FlagN|FlagC, flags)
}

func TestEncodeDecodeRequestStreamInitialRequestN(t *testing.T) {
	n := uint32(42)
	f := &Frame{StreamID: 9, Type: RequestStream, InitialRequestN: &n, Data: []byte("d")}
	wire, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(wire)
	require.NoError(t, err)
	require.NotNil(t, got.InitialRequestN)
	assert.Equal(t, n, *got.InitialRequestN)
}

func TestEncodeDecodeRequestN(t *testing.T) {
	n := uint32(100)
	f := &Frame{StreamID: 5, Type: RequestN, RequestN: &n}
	wire, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(wire)
	require.NoError(t, err)
	require.NotNil(t, got.RequestN)
	assert.Equal(t, n, *got.RequestN)
}

func TestEncodeDecodeError(t *testing.T) {
	code := uint32(0x00000203) // APPLICATION_ERROR
	f := &Frame{StreamID: 5, Type: Error, ErrorCode: &code, Data: []byte("boom")}
	wire, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(wire)
	require.NoError(t, err)
	require.NotNil(t, got.ErrorCode)
	assert.Equal(t, code, *got.ErrorCode)
	assert.Equal(t, f.Data, got.Data)
}

func TestEncodeDecodeLease(t *testing.T) {
	ttl := uint32(5000)
	num := uint32(10)
	f := &Frame{StreamID: 0, Type: Lease, TimeToLiveMillis: &ttl, NumberOfRequests: &num}
	wire, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(wire)
	require.NoError(t, err)
	require.NotNil(t, got.TimeToLiveMillis)
	require.NotNil(t, got.NumberOfRequests)
	assert.Equal(t, ttl, *got.TimeToLiveMillis)
	assert.Equal(t, num, *got.NumberOfRequests)
}

func TestSliceMetadataAndData(t *testing.T) {
	f := &Frame{StreamID: 1, Type: Payload, Flags: FlagM | FlagN, Metadata: []byte("md"), Data: []byte("dd")}
	wire, err := Encode(f)
	require.NoError(t, err)

	md, ok, err := SliceMetadata(wire, Payload)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("md"), md)

	data, err := SliceData(wire, Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("dd"), data)
}

func TestDecodeRejectsTruncatedMetadataLength(t *testing.T) {
	f := &Frame{StreamID: 1, Type: Payload, Flags: FlagM | FlagN, Metadata: []byte("md"), Data: []byte("dd")}
	wire, err := Encode(f)
	require.NoError(t, err)

	_, err = Decode(wire[:HeaderSize+1])
	assert.Error(t, err)
}

func TestTypeStringAndWireType(t *testing.T) {
	assert.Equal(t, "PAYLOAD", Payload.String())
	assert.Equal(t, "NEXT_COMPLETE", NextComplete.String())
	assert.Contains(t, Type(99).String(), "UNKNOWN")

	f := &Frame{Type: Next}
	assert.Equal(t, Payload, f.WireType())
	f2 := &Frame{Type: RequestResponse}
	assert.Equal(t, RequestResponse, f2.WireType())
}

func TestFragmentableAndInitialRequestN(t *testing.T) {
	assert.True(t, IsFragmentable(RequestStream))
	assert.True(t, IsFragmentable(NextComplete))
	assert.False(t, IsFragmentable(Cancel))

	assert.True(t, HasInitialRequestN(RequestChannel))
	assert.False(t, HasInitialRequestN(RequestResponse))
}

func TestFrameClone(t *testing.T) {
	f := &Frame{StreamID: 1, Type: Payload, Metadata: []byte("m"), Data: []byte("d")}
	c := f.Clone()
	c.Metadata[0] = 'X'
	assert.Equal(t, byte('m'), f.Metadata[0])
}
