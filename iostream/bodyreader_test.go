package iostream

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "github.com/axmq/mqttv5/errors"
)

func bodyOver(data []byte, remaining uint32) *BodyReader {
	return NewBodyReader(bufio.NewReader(bytes.NewReader(data)), remaining, HeapProvider{})
}

func TestBodyReaderDecrementsBudget(t *testing.T) {
	r := bodyOver([]byte{0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x03}, 7)

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b)
	assert.Equal(t, uint32(6), r.Remaining())

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), u16)
	assert.Equal(t, uint32(4), r.Remaining())

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), u32)
	assert.Equal(t, uint32(0), r.Remaining())
}

func TestBodyReaderRejectsReadPastBudget(t *testing.T) {
	r := bodyOver([]byte{0x00, 0x00, 0x00, 0x00}, 2)

	_, err := r.ReadUint16()
	require.NoError(t, err)

	// Bytes exist on the stream, but the packet's budget is spent.
	_, err = r.ReadByte()
	assert.ErrorIs(t, err, merrors.ErrMalformedPacket)
}

func TestBodyReaderStringAndBinary(t *testing.T) {
	data := []byte{0x00, 0x02, 'h', 'i', 0x00, 0x03, 0x01, 0x02, 0x03}
	r := bodyOver(data, uint32(len(data)))

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	b, err := r.ReadBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, b.View())
	assert.Equal(t, uint32(0), r.Remaining())
}

func TestBodyReaderStringRejectsInvalidUTF8(t *testing.T) {
	data := []byte{0x00, 0x02, 0xFF, 0xFE}
	r := bodyOver(data, uint32(len(data)))

	_, err := r.ReadString()
	assert.ErrorIs(t, err, merrors.ErrMalformedPacket)
}

func TestBodyReaderStringTruncatedByBudget(t *testing.T) {
	// Length prefix promises 5 bytes but the budget only covers 2.
	data := []byte{0x00, 0x05, 'a', 'b', 'c', 'd', 'e'}
	r := bodyOver(data, 4)

	_, err := r.ReadString()
	assert.ErrorIs(t, err, merrors.ErrMalformedPacket)
}

func TestBodyReaderSkip(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	r := bodyOver(data, 5)

	require.NoError(t, r.Skip(3))
	assert.Equal(t, uint32(2), r.Remaining())

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(4), b)

	assert.ErrorIs(t, r.Skip(2), merrors.ErrMalformedPacket)
}

func TestBodyReaderReadRawWithBumpProvider(t *testing.T) {
	scratch := make([]byte, 16)
	provider := NewBumpProvider(scratch)
	data := []byte{0xAA, 0xBB, 0xCC}
	r := NewBodyReader(bufio.NewReader(bytes.NewReader(data)), 3, provider)

	v, err := r.ReadRaw(3)
	require.NoError(t, err)
	assert.Equal(t, data, v.View())
	assert.False(t, v.Owned())
	assert.Equal(t, data, scratch[:3], "span is borrowed from the scratch region")
}

func TestBodyReaderVarInt(t *testing.T) {
	data := []byte{0x80, 0x01}
	r := bodyOver(data, 2)

	v, err := r.ReadVarInt()
	require.NoError(t, err)
	assert.Equal(t, uint32(128), v)
	assert.Equal(t, uint32(0), r.Remaining())
}
