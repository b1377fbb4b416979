package iostream

import (
	"bufio"
	"context"

	"github.com/axmq/mqttv5/packet"

	merrors "github.com/axmq/mqttv5/errors"
)

// Conn pairs a Transport with the read-side state needed to decode packets
// off the wire: a buffered reader, the resumable fixed header decoder, and
// a buffer provider for the body's dynamic fields.
type Conn struct {
	transport *Transport
	br        *bufio.Reader
	fh        FixedHeaderReader
	provider  packet.BufferProvider

	maxPacketSize uint32
}

// ConnConfig configures a Conn.
type ConnConfig struct {
	// ReadBufferSize sizes the bufio.Reader wrapping the transport.
	ReadBufferSize int
	// Provider backs decoded dynamic fields. Defaults to a HeapProvider.
	Provider packet.BufferProvider
	// MaxPacketSize rejects any incoming packet whose remaining length
	// would make the total packet larger than this, mirroring the
	// server's own Maximum Packet Size property (§3.1.2.11.4). Zero means
	// no local limit beyond the protocol's 256MiB ceiling.
	MaxPacketSize uint32
}

// NewConn wraps transport for packet-oriented reads and writes.
func NewConn(transport *Transport, cfg ConnConfig) *Conn {
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 4096
	}
	provider := cfg.Provider
	if provider == nil {
		provider = HeapProvider{}
	}
	return &Conn{
		transport:     transport,
		br:            bufio.NewReaderSize(transport, cfg.ReadBufferSize),
		provider:      provider,
		maxPacketSize: cfg.MaxPacketSize,
	}
}

// ReadFixedHeader advances the resumable fixed header decode. It is
// cancel-safe: callers may pass a ctx with a deadline or that the caller
// cancels to implement keepalive timeouts, and retry later without losing
// partially-read bytes.
func (c *Conn) ReadFixedHeader(ctx context.Context) (packet.FixedHeader, error) {
	return c.fh.Read(ctx, c.br)
}

// ReadBody decodes the packet whose fixed header has already been read,
// dispatching to the correct decoder by type. This is NOT cancel-safe;
// once started it must run to completion or the connection must be
// abandoned.
func (c *Conn) ReadBody(fh packet.FixedHeader) (any, error) {
	if c.maxPacketSize > 0 {
		total := uint32(1+packet.VariableByteIntegerSize(fh.RemainingLength)) + fh.RemainingLength
		if total > c.maxPacketSize {
			return nil, merrors.Wrap(merrors.ErrServerMaximumPacketSizeExceeded, "incoming packet exceeds configured maximum")
		}
	}
	r := NewBodyReader(c.br, fh.RemainingLength, c.provider)
	switch fh.Type {
	case packet.CONNECT:
		return packet.DecodeConnect(r)
	case packet.CONNACK:
		return packet.DecodeConnack(r)
	case packet.PUBLISH:
		qos := packet.QoS((fh.Flags >> 1) & 0x03)
		dup := fh.Flags&(1<<3) != 0
		retain := fh.Flags&0x01 != 0
		return packet.DecodePublish(r, dup, qos, retain)
	case packet.PUBACK:
		return packet.DecodePuback(r)
	case packet.PUBREC:
		return packet.DecodePubrec(r)
	case packet.PUBREL:
		return packet.DecodePubrel(r)
	case packet.PUBCOMP:
		return packet.DecodePubcomp(r)
	case packet.SUBSCRIBE:
		return packet.DecodeSubscribe(r)
	case packet.SUBACK:
		return packet.DecodeSuback(r)
	case packet.UNSUBSCRIBE:
		return packet.DecodeUnsubscribe(r)
	case packet.UNSUBACK:
		return packet.DecodeUnsuback(r)
	case packet.PINGREQ:
		return packet.Pingreq{}, nil
	case packet.PINGRESP:
		return packet.Pingresp{}, nil
	case packet.DISCONNECT:
		return packet.DecodeDisconnect(r)
	case packet.AUTH:
		return packet.DecodeAuth(r)
	default:
		return nil, merrors.Wrapf(merrors.ErrMalformedPacket, "unknown packet type %d", fh.Type)
	}
}

// ReadPacket reads one complete packet, combining ReadFixedHeader and
// ReadBody. Only the fixed header phase honors ctx cancellation.
func (c *Conn) ReadPacket(ctx context.Context) (any, error) {
	fh, err := c.ReadFixedHeader(ctx)
	if err != nil {
		return nil, err
	}
	return c.ReadBody(fh)
}

// WritePacket encodes p into a freshly sized buffer and writes it to the
// transport in one call, so a partial write never interleaves with
// another goroutine's packet.
func (c *Conn) WritePacket(p packet.Encodable) error {
	buf := make([]byte, p.EncodedLen())
	n, err := p.Encode(buf)
	if err != nil {
		return err
	}
	_, err = c.transport.Write(buf[:n])
	return err
}

// Close releases the underlying transport.
func (c *Conn) Close() error { return c.transport.Close() }
