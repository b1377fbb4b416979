package iostream

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axmq/mqttv5/packet"
)

// slowReader yields one byte per Read call, so tests can interleave
// cancellation between individual fixed-header bytes.
type slowReader struct {
	data []byte
	pos  int
}

func (s *slowReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	p[0] = s.data[s.pos]
	s.pos++
	return 1, nil
}

func TestFixedHeaderReaderSimple(t *testing.T) {
	// PUBLISH, QoS1, remaining length 3.
	raw := []byte{0x32, 0x03}
	var f FixedHeaderReader
	hdr, err := f.Read(context.Background(), bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, packet.PUBLISH, hdr.Type)
	assert.Equal(t, byte(0x2), hdr.Flags)
	assert.Equal(t, uint32(3), hdr.RemainingLength)
}

func TestFixedHeaderReaderResumesAcrossCancellation(t *testing.T) {
	// CONNACK, remaining length 130 (two-byte VBI: 0x82 0x01).
	raw := []byte{0x20, 0x82, 0x01}
	br := bufio.NewReader(&slowReader{data: raw})
	var f FixedHeaderReader

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Read(canceled, br)
	require.Error(t, err)

	// Internal state (we haven't consumed anything yet, since ctx was
	// already canceled before any byte read) should allow a clean retry.
	hdr, err := f.Read(context.Background(), br)
	require.NoError(t, err)
	assert.Equal(t, packet.CONNACK, hdr.Type)
	assert.Equal(t, uint32(130), hdr.RemainingLength)
}

func TestFixedHeaderReaderRejectsOversizedRemainingLength(t *testing.T) {
	raw := []byte{0x20, 0xFF, 0xFF, 0xFF, 0xFF}
	var f FixedHeaderReader
	_, err := f.Read(context.Background(), bufio.NewReader(bytes.NewReader(raw)))
	assert.Error(t, err)
}

func TestFixedHeaderReaderRejectsBadFlags(t *testing.T) {
	// CONNACK with non-zero flags nibble is malformed.
	raw := []byte{0x21, 0x00}
	var f FixedHeaderReader
	_, err := f.Read(context.Background(), bufio.NewReader(bytes.NewReader(raw)))
	assert.Error(t, err)
}
