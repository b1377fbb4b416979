package packet

import merrors "github.com/axmq/mqttv5/errors"

// MaxVariableByteInteger is the largest value a Variable Byte Integer can
// encode (0x0FFFFFFF), per §1.5.5.
const MaxVariableByteInteger uint32 = 268435455

// MaxVariableByteIntegerBytes is the maximum number of bytes a Variable
// Byte Integer occupies on the wire.
const MaxVariableByteIntegerBytes = 4

// EncodeVariableByteInteger encodes value as 1-4 bytes.
func EncodeVariableByteInteger(value uint32) ([]byte, error) {
	if value > MaxVariableByteInteger {
		return nil, merrors.ErrPacketTooLong
	}
	out := make([]byte, 0, MaxVariableByteIntegerBytes)
	for {
		b := byte(value % 128)
		value /= 128
		if value > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if value == 0 {
			break
		}
	}
	return out, nil
}

// EncodeVariableByteIntegerTo writes value into buf at offset and returns
// the number of bytes written.
func EncodeVariableByteIntegerTo(buf []byte, offset int, value uint32) (int, error) {
	if value > MaxVariableByteInteger {
		return 0, merrors.ErrPacketTooLong
	}
	n := 0
	for {
		if offset+n >= len(buf) {
			return 0, merrors.ErrInsufficientBufferSize
		}
		b := byte(value % 128)
		value /= 128
		if value > 0 {
			b |= 0x80
		}
		buf[offset+n] = b
		n++
		if value == 0 {
			break
		}
	}
	return n, nil
}

// VariableByteIntegerSize returns the number of bytes EncodeVariableByteInteger
// would use for value, without allocating.
func VariableByteIntegerSize(value uint32) int {
	switch {
	case value <= 0x7F:
		return 1
	case value <= 0x3FFF:
		return 2
	case value <= 0x1FFFFF:
		return 3
	default:
		return 4
	}
}

// byteSource is the minimal single-byte read contract the streaming VBI
// decoder needs; iostream.BodyReader and bufio.Reader both satisfy it.
type byteSource interface {
	ReadByte() (byte, error)
}

// DecodeVariableByteInteger decodes a Variable Byte Integer by reading one
// byte at a time from src, per the accumulation rule in §1.5.5: value +=
// (byte & 0x7F) * multiplier, multiplier *= 128 each step, stop when the
// continuation bit is clear. A fifth continuation byte is malformed.
func DecodeVariableByteInteger(src byteSource) (uint32, int, error) {
	var value uint32
	var multiplier uint32 = 1
	n := 0
	for {
		b, err := src.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		value += uint32(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return value, n, nil
		}
		if n == MaxVariableByteIntegerBytes {
			return 0, n, merrors.Wrap(merrors.ErrMalformedPacket, "variable byte integer continues past 4 bytes")
		}
		multiplier *= 128
	}
}
