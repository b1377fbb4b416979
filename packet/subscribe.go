package packet

import merrors "github.com/axmq/mqttv5/errors"

// RetainHandling controls whether the server sends retained messages at
// subscription time (§3.8.3.1).
type RetainHandling byte

const (
	RetainSendAtSubscribe      RetainHandling = 0
	RetainSendAtSubscribeIfNew RetainHandling = 1
	RetainDoNotSend            RetainHandling = 2
)

// SubscriptionOptions is the per-filter options byte in a SUBSCRIBE
// payload (§3.8.3.1).
type SubscriptionOptions struct {
	QoS               QoS
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    RetainHandling
}

func (o SubscriptionOptions) encode() byte {
	b := byte(o.QoS)
	if o.NoLocal {
		b |= 1 << 2
	}
	if o.RetainAsPublished {
		b |= 1 << 3
	}
	b |= byte(o.RetainHandling) << 4
	return b
}

func decodeSubscriptionOptions(b byte) (SubscriptionOptions, error) {
	if b&0xC0 != 0 {
		return SubscriptionOptions{}, merrors.Wrap(merrors.ErrMalformedPacket, "reserved subscription option bits set")
	}
	qos := QoS(b & 0x03)
	if qos == 3 {
		return SubscriptionOptions{}, merrors.Wrap(merrors.ErrMalformedPacket, "invalid subscription QoS")
	}
	rh := RetainHandling((b >> 4) & 0x03)
	if rh > RetainDoNotSend {
		return SubscriptionOptions{}, merrors.Wrap(merrors.ErrMalformedPacket, "invalid retain handling value")
	}
	return SubscriptionOptions{
		QoS:               qos,
		NoLocal:           b&(1<<2) != 0,
		RetainAsPublished: b&(1<<3) != 0,
		RetainHandling:    rh,
	}, nil
}

// Subscription is one topic filter and its options within a SUBSCRIBE
// packet.
type Subscription struct {
	Filter  string
	Options SubscriptionOptions
}

// Subscribe is the SUBSCRIBE packet (§3.8).
type Subscribe struct {
	PacketID      uint16
	Properties    PropertyList
	Subscriptions []Subscription
}

func (s *Subscribe) remainingLen() uint32 {
	propsLen := s.Properties.Len()
	n := uint32(2) + uint32(VariableByteIntegerSize(propsLen)) + propsLen
	for _, sub := range s.Subscriptions {
		n += EncodedStringLen(sub.Filter) + 1
	}
	return n
}

// EncodedLen returns the total wire size of the SUBSCRIBE packet.
func (s *Subscribe) EncodedLen() int {
	remaining := s.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the SUBSCRIBE packet into buf.
func (s *Subscribe) Encode(buf []byte) (int, error) {
	if len(s.Subscriptions) == 0 {
		return 0, merrors.Wrap(merrors.ErrProtocolError, "SUBSCRIBE requires at least one topic filter")
	}
	remaining := s.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, SUBSCRIBE, 0x2, remaining)
	if err != nil {
		return 0, err
	}
	w := NewWriter(buf[headerLen:])
	if err := w.Uint16(s.PacketID); err != nil {
		return 0, err
	}
	if err := s.Properties.Encode(w); err != nil {
		return 0, err
	}
	for _, sub := range s.Subscriptions {
		if err := w.String(sub.Filter); err != nil {
			return 0, err
		}
		if err := w.Byte(sub.Options.encode()); err != nil {
			return 0, err
		}
	}
	return headerLen + w.Len(), nil
}

// DecodeSubscribe reads a SUBSCRIBE packet's variable header and payload
// from r.
func DecodeSubscribe(r Reader) (*Subscribe, error) {
	packetID, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if packetID == 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "SUBSCRIBE packet identifier must be non-zero")
	}
	props, err := DecodeProperties(r, subscribeWhitelist)
	if err != nil {
		return nil, err
	}
	s := &Subscribe{PacketID: packetID, Properties: props}
	for r.Remaining() > 0 {
		filter, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		optByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		opts, err := decodeSubscriptionOptions(optByte)
		if err != nil {
			return nil, err
		}
		s.Subscriptions = append(s.Subscriptions, Subscription{Filter: filter, Options: opts})
	}
	if len(s.Subscriptions) == 0 {
		return nil, merrors.Wrap(merrors.ErrProtocolError, "SUBSCRIBE requires at least one topic filter")
	}
	return s, nil
}

// Suback is the SUBACK packet (§3.9).
type Suback struct {
	PacketID    uint16
	Properties  PropertyList
	ReasonCodes []ReasonCode
}

func (s *Suback) remainingLen() uint32 {
	propsLen := s.Properties.Len()
	return 2 + uint32(VariableByteIntegerSize(propsLen)) + propsLen + uint32(len(s.ReasonCodes))
}

// EncodedLen returns the total wire size of the SUBACK packet.
func (s *Suback) EncodedLen() int {
	remaining := s.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the SUBACK packet into buf.
func (s *Suback) Encode(buf []byte) (int, error) {
	remaining := s.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, SUBACK, 0, remaining)
	if err != nil {
		return 0, err
	}
	w := NewWriter(buf[headerLen:])
	if err := w.Uint16(s.PacketID); err != nil {
		return 0, err
	}
	if err := s.Properties.Encode(w); err != nil {
		return 0, err
	}
	for _, rc := range s.ReasonCodes {
		if err := w.Byte(byte(rc)); err != nil {
			return 0, err
		}
	}
	return headerLen + w.Len(), nil
}

// DecodeSuback reads a SUBACK packet's variable header and payload from r.
func DecodeSuback(r Reader) (*Suback, error) {
	packetID, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	props, err := DecodeProperties(r, subackFamilyWhitelist)
	if err != nil {
		return nil, err
	}
	s := &Suback{PacketID: packetID, Properties: props}
	for r.Remaining() > 0 {
		rcByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		rc := ReasonCode(rcByte)
		if !IsValidSuback(rc) {
			return nil, merrors.Wrapf(merrors.ErrProtocolError, "invalid SUBACK reason code 0x%02x", rcByte)
		}
		s.ReasonCodes = append(s.ReasonCodes, rc)
	}
	if len(s.ReasonCodes) == 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "SUBACK requires at least one reason code")
	}
	return s, nil
}
