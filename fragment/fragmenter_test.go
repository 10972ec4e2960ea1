package fragment

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegrind/rsocket-fragment/frame"
)

func decodeAll(t *testing.T, wires [][]byte) []*frame.Frame {
	t.Helper()
	out := make([]*frame.Frame, 0, len(wires))
	for _, w := range wires {
		f, err := frame.Decode(w)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

// S1 — small REQUEST_RESPONSE that fits in a single fragment.
func TestS1SmallFrameNoFragmentation(t *testing.T) {
	f := &frame.Frame{
		StreamID: 1,
		Type:     frame.RequestResponse,
		Flags:    frame.FlagM,
		Metadata: []byte("md"),
		Data:     []byte("hello"),
	}
	wires, err := Collect(f, 64, false)
	require.NoError(t, err)
	require.Len(t, wires, 1)
	assert.Equal(t, 16, len(wires[0]))

	_, _, flags, err := frame.ParseHeader(wires[0])
	require.NoError(t, err)
	assert.NotZero(t, flags&frame.FlagM)
	assert.Zero(t, flags&frame.FlagF)
}

// S2 — split data only, across 4 fragments.
func TestS2SplitDataOnly(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	f := &frame.Frame{StreamID: 3, Type: frame.RequestFNF, Data: data}

	wires, err := Collect(f, 14, false)
	require.NoError(t, err)
	require.Len(t, wires, 4)

	frames := decodeAll(t, wires)
	assert.Equal(t, frame.RequestFNF, frames[0].Type)
	for _, fr := range frames[1:] {
		assert.Equal(t, frame.Payload, fr.Type)
	}

	for i, fr := range frames {
		wantFollows := i != len(frames)-1
		assert.Equal(t, wantFollows, fr.Follows(), "fragment %d", i)
	}

	var reassembled []byte
	for _, fr := range frames {
		reassembled = append(reassembled, fr.Data...)
	}
	assert.Equal(t, data, reassembled)
}

// S3 — split across the metadata/data boundary.
func TestS3SplitAcrossMetadataDataBoundary(t *testing.T) {
	md := make([]byte, 10)
	data := make([]byte, 10)
	for i := range md {
		md[i] = byte('a' + i)
	}
	for i := range data {
		data[i] = byte('A' + i)
	}
	f := &frame.Frame{StreamID: 5, Type: frame.RequestResponse, Flags: frame.FlagM, Metadata: md, Data: data}

	wires, err := Collect(f, 15, false)
	require.NoError(t, err)
	require.True(t, len(wires) >= 2)

	frames := decodeAll(t, wires)
	assert.Equal(t, 6, len(frames[0].Metadata))
	assert.Equal(t, 0, len(frames[0].Data))

	var gotMd, gotData []byte
	for _, fr := range frames {
		gotMd = append(gotMd, fr.Metadata...)
		gotData = append(gotData, fr.Data...)
	}
	assert.Equal(t, md, gotMd)
	assert.Equal(t, data, gotData)
}

// S4 — REQUEST_STREAM carries initial_request_n on the first fragment only.
func TestS4InitialRequestNOnFirstFragmentOnly(t *testing.T) {
	n := uint32(42)
	data := make([]byte, 100)
	f := &frame.Frame{StreamID: 7, Type: frame.RequestStream, InitialRequestN: &n, Data: data}

	wires, err := Collect(f, 20, false)
	require.NoError(t, err)
	require.True(t, len(wires) > 1)

	frames := decodeAll(t, wires)
	require.NotNil(t, frames[0].InitialRequestN)
	assert.Equal(t, n, *frames[0].InitialRequestN)
	assert.Equal(t, 10, len(frames[0].Data))

	for _, fr := range frames[1:] {
		assert.Nil(t, fr.InitialRequestN)
	}
}

// S5 — PAYLOAD chain: N/C only on the terminal fragment.
func TestS5PayloadChainFlagsOnTerminalOnly(t *testing.T) {
	data := make([]byte, 50)
	f := &frame.Frame{StreamID: 9, Type: frame.NextComplete, Flags: frame.FlagN | frame.FlagC, Data: data}

	wires, err := Collect(f, 12, false)
	require.NoError(t, err)
	require.True(t, len(wires) > 2)

	frames := decodeAll(t, wires)
	for _, fr := range frames[:len(frames)-1] {
		assert.Zero(t, fr.Flags&(frame.FlagN|frame.FlagC))
	}
	last := frames[len(frames)-1]
	assert.Equal(t, frame.FlagN|frame.FlagC, last.Flags&(frame.FlagN|frame.FlagC))
}

func TestRequestChannelPreservesLFlagOnFirstFragmentOnly(t *testing.T) {
	n := uint32(1)
	data := make([]byte, 40)
	f := &frame.Frame{StreamID: 11, Type: frame.RequestChannel, Flags: frame.FlagL, InitialRequestN: &n, Data: data}

	wires, err := Collect(f, 16, false)
	require.NoError(t, err)
	require.True(t, len(wires) > 1)

	frames := decodeAll(t, wires)
	assert.NotZero(t, frames[0].Flags&frame.FlagL)
	for _, fr := range frames[1:] {
		assert.Zero(t, fr.Flags&frame.FlagL)
	}
}

func TestMTUBoundNeverExceeded(t *testing.T) {
	data := make([]byte, 1000)
	f := &frame.Frame{StreamID: 1, Type: frame.RequestResponse, Flags: frame.FlagM, Metadata: []byte("some metadata"), Data: data}

	const mtu = 40
	wires, err := Collect(f, mtu, false)
	require.NoError(t, err)
	for _, w := range wires {
		assert.LessOrEqual(t, len(w), mtu)
	}
}

func TestNonFragmentableTypeRejected(t *testing.T) {
	f := &frame.Frame{StreamID: 1, Type: frame.Cancel}
	_, err := New(f, 64, false)
	require.Error(t, err)
	var invalid *InvalidFrameTypeError
	assert.ErrorAs(t, err, &invalid)
}

func TestNextReturnsEOFAfterExhaustion(t *testing.T) {
	f := &frame.Frame{StreamID: 1, Type: frame.RequestFNF, Data: []byte("abc")}
	fr, err := New(f, 64, false)
	require.NoError(t, err)

	_, err = fr.Next()
	require.NoError(t, err)
	_, err = fr.Next()
	assert.ErrorIs(t, err, io.EOF)
}
