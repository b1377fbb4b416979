package iostream

import (
	"bufio"
	"io"

	"github.com/axmq/mqttv5/packet"

	merrors "github.com/axmq/mqttv5/errors"
)

// BodyReader reads a single packet's variable header and payload from a
// bufio.Reader, bounded by the remaining-length budget taken from the
// fixed header. It implements packet.Reader, so the packet decoders never
// import this package directly. Unlike FixedHeaderReader, BodyReader is
// NOT cancel-safe: a caller that abandons a body read mid-packet has left
// the underlying stream desynchronized and must close the connection
// rather than retry.
type BodyReader struct {
	br        *bufio.Reader
	remaining uint32
	provider  packet.BufferProvider
}

// NewBodyReader bounds reads from br to remainingLength bytes, sourcing
// dynamic fields from provider.
func NewBodyReader(br *bufio.Reader, remainingLength uint32, provider packet.BufferProvider) *BodyReader {
	return &BodyReader{br: br, remaining: remainingLength, provider: provider}
}

func (b *BodyReader) consume(n int) error {
	if uint32(n) > b.remaining {
		return merrors.Wrap(merrors.ErrMalformedPacket, "packet body read past remaining length")
	}
	b.remaining -= uint32(n)
	return nil
}

// Remaining reports how many bytes of the packet body are left unread.
func (b *BodyReader) Remaining() uint32 { return b.remaining }

func (b *BodyReader) ReadByte() (byte, error) {
	if err := b.consume(1); err != nil {
		return 0, err
	}
	return b.br.ReadByte()
}

func (b *BodyReader) ReadBool() (bool, error) {
	v, err := b.ReadByte()
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, merrors.Wrap(merrors.ErrMalformedPacket, "boolean property byte not 0 or 1")
	}
	return v == 1, nil
}

func (b *BodyReader) readFull(dst []byte) error {
	if err := b.consume(len(dst)); err != nil {
		return err
	}
	_, err := io.ReadFull(b.br, dst)
	return err
}

func (b *BodyReader) ReadUint16() (uint16, error) {
	var buf [2]byte
	if err := b.readFull(buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func (b *BodyReader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := b.readFull(buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]), nil
}

func (b *BodyReader) ReadVarInt() (uint32, error) {
	value, _, err := packet.DecodeVariableByteInteger(b)
	return value, err
}

// ReadRaw consumes exactly n bytes as an opaque view via the body reader's
// buffer provider.
func (b *BodyReader) ReadRaw(n int) (packet.Bytes, error) {
	if err := b.consume(n); err != nil {
		return packet.Bytes{}, err
	}
	view, err := b.provider.Provide(n)
	if err != nil {
		return packet.Bytes{}, err
	}
	if _, err := io.ReadFull(b.br, view.View()); err != nil {
		return packet.Bytes{}, err
	}
	return view, nil
}

func (b *BodyReader) ReadBinary() (packet.Bytes, error) {
	length, err := b.ReadUint16()
	if err != nil {
		return packet.Bytes{}, err
	}
	return b.ReadRaw(int(length))
}

func (b *BodyReader) ReadString() (string, error) {
	length, err := b.ReadUint16()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	view, err := b.ReadRaw(int(length))
	if err != nil {
		return "", err
	}
	s := view.String()
	if err := packet.ValidateUTF8String(view.View()); err != nil {
		return "", err
	}
	return s, nil
}

func (b *BodyReader) ReadStringPair() (string, string, error) {
	name, err := b.ReadString()
	if err != nil {
		return "", "", err
	}
	value, err := b.ReadString()
	if err != nil {
		return "", "", err
	}
	return name, value, nil
}

func (b *BodyReader) ReadReasonCode() (packet.ReasonCode, error) {
	v, err := b.ReadByte()
	return packet.ReasonCode(v), err
}

func (b *BodyReader) Skip(n int) error {
	if err := b.consume(n); err != nil {
		return err
	}
	_, err := io.CopyN(io.Discard, b.br, int64(n))
	return err
}

var _ packet.Reader = (*BodyReader)(nil)
