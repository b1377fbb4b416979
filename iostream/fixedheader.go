package iostream

import (
	"bufio"
	"context"

	"github.com/axmq/mqttv5/packet"

	merrors "github.com/axmq/mqttv5/errors"
)

// fhStage identifies which byte of the fixed header a resumable read is
// currently waiting on.
type fhStage int

const (
	fhStageType fhStage = iota
	fhStageLength
	fhStageDone
)

// FixedHeaderReader decodes a packet.FixedHeader from a bufio.Reader one
// byte at a time, preserving partial progress across context cancellation.
// Read is cancel-safe: if ctx is canceled mid-header, the next call to Read
// resumes from exactly the byte it was waiting on rather than losing or
// re-reading bytes already consumed from the stream.
type FixedHeaderReader struct {
	stage      fhStage
	typeByte   byte
	lenValue   uint32
	lenShift   uint
	lenBytes   int
}

// Reset discards any partial progress, starting the next Read from the
// first byte of a new fixed header.
func (f *FixedHeaderReader) Reset() {
	*f = FixedHeaderReader{}
}

// Read advances the resumable decode using br, returning the completed
// header once all of its bytes have been consumed. ctx is checked before
// each blocking byte read; on cancellation Read returns ctx.Err() with its
// internal state untouched, safe to retry later.
func (f *FixedHeaderReader) Read(ctx context.Context, br *bufio.Reader) (packet.FixedHeader, error) {
	for {
		if err := ctx.Err(); err != nil {
			return packet.FixedHeader{}, err
		}
		switch f.stage {
		case fhStageType:
			b, err := br.ReadByte()
			if err != nil {
				return packet.FixedHeader{}, err
			}
			f.typeByte = b
			f.stage = fhStageLength
		case fhStageLength:
			b, err := br.ReadByte()
			if err != nil {
				return packet.FixedHeader{}, err
			}
			f.lenBytes++
			f.lenValue += uint32(b&0x7F) << f.lenShift
			if b&0x80 == 0 {
				f.stage = fhStageDone
				break
			}
			f.lenShift += 7
			if f.lenBytes >= packet.MaxVariableByteIntegerBytes {
				return packet.FixedHeader{}, merrors.Wrap(merrors.ErrMalformedPacket, "remaining length exceeds four bytes")
			}
		case fhStageDone:
			t := packet.Type(f.typeByte >> 4)
			flags := f.typeByte & 0x0F
			if err := packet.ValidateFlags(t, flags); err != nil {
				f.Reset()
				return packet.FixedHeader{}, err
			}
			if f.lenValue > packet.MaxVariableByteInteger {
				f.Reset()
				return packet.FixedHeader{}, merrors.Wrap(merrors.ErrPacketTooLong, "remaining length exceeds protocol maximum")
			}
			hdr := packet.FixedHeader{Type: t, Flags: flags, RemainingLength: f.lenValue}
			f.Reset()
			return hdr, nil
		}
	}
}
