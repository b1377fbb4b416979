package packet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVariableByteInteger(t *testing.T) {
	tests := []struct {
		name     string
		input    uint32
		expected []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"max_single_byte", 127, []byte{0x7F}},
		{"min_two_byte", 128, []byte{0x80, 0x01}},
		{"max_two_byte", 16383, []byte{0xFF, 0x7F}},
		{"min_three_byte", 16384, []byte{0x80, 0x80, 0x01}},
		{"max_three_byte", 2097151, []byte{0xFF, 0xFF, 0x7F}},
		{"min_four_byte", 2097152, []byte{0x80, 0x80, 0x80, 0x01}},
		{"protocol_maximum", MaxVariableByteInteger, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeVariableByteInteger(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, len(tt.expected), VariableByteIntegerSize(tt.input))
		})
	}
}

func TestEncodeVariableByteIntegerOverflow(t *testing.T) {
	_, err := EncodeVariableByteInteger(MaxVariableByteInteger + 1)
	assert.Error(t, err)
}

func TestDecodeVariableByteIntegerRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, MaxVariableByteInteger}
	for _, v := range values {
		encoded, err := EncodeVariableByteInteger(v)
		require.NoError(t, err)
		decoded, n, err := DecodeVariableByteInteger(bytes.NewReader(encoded))
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
		assert.Equal(t, len(encoded), n)
	}
}

func TestDecodeVariableByteIntegerMalformed(t *testing.T) {
	_, _, err := DecodeVariableByteInteger(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}))
	assert.Error(t, err)
}
