package iostream

import "github.com/axmq/mqttv5/packet"

// HeapProvider allocates a fresh byte slice per Provide call. It is the
// fallback for callers who need decoded fields to outlive the packet that
// produced them (e.g. a PUBLISH queued for delivery to an application
// goroutine after the next packet has already been read).
type HeapProvider struct{}

// Provide allocates n bytes.
func (HeapProvider) Provide(n int) (packet.Bytes, error) {
	return packet.OwnedBytes(make([]byte, n)), nil
}

var _ packet.BufferProvider = HeapProvider{}
