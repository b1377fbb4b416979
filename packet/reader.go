package packet

// Bytes is a read-only view over a decoded dynamic field (a topic name, a
// payload, binary property data, ...). Its backing storage is either
// borrowed from a caller-owned scratch buffer or owned on the heap; both
// cases are modeled behind this single accessor so higher layers never
// need to know which.
type Bytes struct {
	data  []byte
	owned bool
}

// BorrowedBytes wraps data without claiming ownership. The caller must
// keep the backing storage alive and unmodified for as long as the Bytes
// value is in use.
func BorrowedBytes(data []byte) Bytes { return Bytes{data: data} }

// OwnedBytes wraps data that was allocated specifically for this value
// (e.g. by a heap-allocating buffer provider).
func OwnedBytes(data []byte) Bytes { return Bytes{data: data, owned: true} }

// View returns the underlying byte slice. Callers must not retain it past
// the lifetime documented by whichever buffer provider produced it.
func (b Bytes) View() []byte { return b.data }

// Owned reports whether the backing storage is heap-owned rather than
// borrowed from a scratch region.
func (b Bytes) Owned() bool { return b.owned }

// Len returns the number of bytes in the view.
func (b Bytes) Len() int { return len(b.data) }

// String returns the view decoded as a string. This copies.
func (b Bytes) String() string { return string(b.data) }

// BufferProvider allocates backing storage for a decoded dynamic field of
// n bytes. The Bump provider returns spans borrowed from a single
// scratch region; the heap-allocating provider returns owned boxes.
type BufferProvider interface {
	Provide(n int) (Bytes, error)
}

// Reader is the streaming contract a packet decoder reads from: primitive
// reads plus ReadRaw/Skip over a remaining-length budget.
// iostream.BodyReader is the concrete implementation; this package only
// depends on the interface so it stays free of any I/O or buffer-provider
// import.
type Reader interface {
	ReadByte() (byte, error)
	ReadBool() (bool, error)
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
	ReadVarInt() (uint32, error)
	ReadString() (string, error)
	ReadBinary() (Bytes, error)
	ReadStringPair() (string, string, error)
	ReadReasonCode() (ReasonCode, error)
	// ReadRaw consumes exactly n bytes as an opaque view, via the reader's
	// buffer provider. Used for PUBLISH payloads, which are the untyped
	// remainder of the packet after the property section.
	ReadRaw(n int) (Bytes, error)
	Skip(n int) error
	Remaining() uint32
}
