package iostream

import (
	"github.com/axmq/mqttv5/packet"

	merrors "github.com/axmq/mqttv5/errors"
)

// BumpProvider hands out successive borrowed spans of a single
// caller-owned scratch buffer, advancing a monotonic offset. It never
// allocates; callers that need a decoded packet's fields to outlive the
// next Reset must copy them out first. A packet's dynamic fields are
// decoded directly into successive slices of one buffer rather than into
// per-field heap allocations, so a fixed scratch region suffices for
// steady-state operation.
type BumpProvider struct {
	buf    []byte
	offset int
}

// NewBumpProvider wraps buf as the scratch region for one packet's worth
// of decoded dynamic fields.
func NewBumpProvider(buf []byte) *BumpProvider {
	return &BumpProvider{buf: buf}
}

// Reset rewinds the provider to the start of its scratch buffer, ready for
// the next packet. Any Bytes previously handed out become invalid.
func (b *BumpProvider) Reset() { b.offset = 0 }

// Provide reserves the next n bytes of the scratch buffer.
func (b *BumpProvider) Provide(n int) (packet.Bytes, error) {
	if b.offset+n > len(b.buf) {
		return packet.Bytes{}, merrors.Wrapf(merrors.ErrAlloc, "scratch region exhausted: %d requested, %d free", n, len(b.buf)-b.offset)
	}
	span := b.buf[b.offset : b.offset+n]
	b.offset += n
	return packet.BorrowedBytes(span), nil
}

var _ packet.BufferProvider = (*BumpProvider)(nil)
