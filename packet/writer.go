package packet

import (
	"encoding/binary"

	merrors "github.com/axmq/mqttv5/errors"
)

// Writer assembles a packet into a caller-supplied buffer. Every packet's
// Encode computes its total remaining length up front so Writer
// never needs to backpatch the Variable Byte Integer length prefix.
type Writer struct {
	buf []byte
	n   int
}

// NewWriter wraps buf for sequential writes starting at offset 0.
func NewWriter(buf []byte) *Writer { return &Writer{buf: buf} }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.n }

func (w *Writer) ensure(extra int) error {
	if w.n+extra > len(w.buf) {
		return merrors.ErrInsufficientBufferSize
	}
	return nil
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) error {
	if err := w.ensure(1); err != nil {
		return err
	}
	w.buf[w.n] = b
	w.n++
	return nil
}

// Bool writes a single byte, 1 for true and 0 for false.
func (w *Writer) Bool(b bool) error {
	if b {
		return w.Byte(1)
	}
	return w.Byte(0)
}

// Uint16 writes a 16-bit big-endian integer.
func (w *Writer) Uint16(v uint16) error {
	if err := w.ensure(2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(w.buf[w.n:], v)
	w.n += 2
	return nil
}

// Uint32 writes a 32-bit big-endian integer.
func (w *Writer) Uint32(v uint32) error {
	if err := w.ensure(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(w.buf[w.n:], v)
	w.n += 4
	return nil
}

// VarInt writes v as a Variable Byte Integer.
func (w *Writer) VarInt(v uint32) error {
	n, err := EncodeVariableByteIntegerTo(w.buf, w.n, v)
	if err != nil {
		return err
	}
	w.n += n
	return nil
}

// Bytes writes raw bytes with no length prefix.
func (w *Writer) Bytes(b []byte) error {
	if err := w.ensure(len(b)); err != nil {
		return err
	}
	copy(w.buf[w.n:], b)
	w.n += len(b)
	return nil
}

// String writes a length-prefixed UTF-8 string (§1.5.4).
func (w *Writer) String(s string) error {
	if len(s) > 65535 {
		return merrors.Wrap(merrors.ErrPacketTooLong, "string exceeds 65535 bytes")
	}
	if err := w.Uint16(uint16(len(s))); err != nil {
		return err
	}
	return w.Bytes([]byte(s))
}

// Binary writes length-prefixed binary data (§1.5.6).
func (w *Writer) Binary(b []byte) error {
	if len(b) > 65535 {
		return merrors.Wrap(merrors.ErrPacketTooLong, "binary data exceeds 65535 bytes")
	}
	if err := w.Uint16(uint16(len(b))); err != nil {
		return err
	}
	return w.Bytes(b)
}

// StringPair writes a name/value length-prefixed string pair (§1.5.7).
func (w *Writer) StringPair(name, value string) error {
	if err := w.String(name); err != nil {
		return err
	}
	return w.String(value)
}

// EncodedStringLen returns the on-wire length of a length-prefixed string.
func EncodedStringLen(s string) uint32 { return 2 + uint32(len(s)) }

// EncodedBinaryLen returns the on-wire length of length-prefixed binary data.
func EncodedBinaryLen(b []byte) uint32 { return 2 + uint32(len(b)) }
