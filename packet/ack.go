package packet

import merrors "github.com/axmq/mqttv5/errors"

// ackKind is a marker describing one of the four single-packet-identifier
// acknowledgement packets. They share an identical wire shape (packet
// identifier, optional reason code, optional properties) and differ only
// in packet type, fixed flags, and which reason codes are legal, so they
// are implemented once behind this marker rather than as four duplicated
// types.
type ackKind struct {
	pktType     Type
	flags       byte
	whitelist   map[PropertyID]bool
	validReason func(ReasonCode) bool
}

var (
	pubackKind  = ackKind{pktType: PUBACK, flags: 0, whitelist: pubackFamilyWhitelist, validReason: IsValidPuback}
	pubrecKind  = ackKind{pktType: PUBREC, flags: 0, whitelist: pubackFamilyWhitelist, validReason: IsValidPuback}
	pubrelKind  = ackKind{pktType: PUBREL, flags: 0x2, whitelist: pubackFamilyWhitelist, validReason: IsValidPubrel}
	pubcompKind = ackKind{pktType: PUBCOMP, flags: 0, whitelist: pubackFamilyWhitelist, validReason: IsValidPubrel}
)

// Ack is the shared representation of PUBACK, PUBREC, PUBREL and PUBCOMP.
// Kind identifies which of the four it is; callers use the NewX
// constructors rather than setting Kind directly.
type Ack struct {
	Kind       ackKind
	PacketID   uint16
	ReasonCode ReasonCode
	Properties PropertyList
}

func newAck(kind ackKind, packetID uint16, reasonCode ReasonCode, props PropertyList) *Ack {
	return &Ack{Kind: kind, PacketID: packetID, ReasonCode: reasonCode, Properties: props}
}

// NewPuback, NewPubrec, NewPubrel and NewPubcomp construct the respective
// acknowledgement packet.
func NewPuback(packetID uint16, reasonCode ReasonCode, props PropertyList) *Ack {
	return newAck(pubackKind, packetID, reasonCode, props)
}

func NewPubrec(packetID uint16, reasonCode ReasonCode, props PropertyList) *Ack {
	return newAck(pubrecKind, packetID, reasonCode, props)
}

func NewPubrel(packetID uint16, reasonCode ReasonCode, props PropertyList) *Ack {
	return newAck(pubrelKind, packetID, reasonCode, props)
}

func NewPubcomp(packetID uint16, reasonCode ReasonCode, props PropertyList) *Ack {
	return newAck(pubcompKind, packetID, reasonCode, props)
}

// Type returns which of the four acknowledgement packet types this is.
func (a *Ack) Type() Type { return a.Kind.pktType }

// shortForm reports whether this ack can be encoded with only a packet
// identifier: reason code Success and no properties (§3.4.2.1 and peers).
func (a *Ack) shortForm() bool {
	return a.ReasonCode == ReasonSuccess && len(a.Properties.Items) == 0
}

func (a *Ack) remainingLen() uint32 {
	if a.shortForm() {
		return 2
	}
	propsLen := a.Properties.Len()
	if propsLen == 0 {
		return 3
	}
	return 3 + uint32(VariableByteIntegerSize(propsLen)) + propsLen
}

// EncodedLen returns the total wire size of the packet.
func (a *Ack) EncodedLen() int {
	remaining := a.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the packet into buf.
func (a *Ack) Encode(buf []byte) (int, error) {
	remaining := a.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, a.Kind.pktType, a.Kind.flags, remaining)
	if err != nil {
		return 0, err
	}
	w := NewWriter(buf[headerLen:])
	if err := w.Uint16(a.PacketID); err != nil {
		return 0, err
	}
	if a.shortForm() {
		return headerLen + w.Len(), nil
	}
	if err := w.Byte(byte(a.ReasonCode)); err != nil {
		return 0, err
	}
	if a.Properties.Len() > 0 {
		if err := a.Properties.Encode(w); err != nil {
			return 0, err
		}
	}
	return headerLen + w.Len(), nil
}

// DecodeAck reads one of PUBACK/PUBREC/PUBREL/PUBCOMP's variable header
// from r, given kind identifies which packet type was read from the fixed
// header.
func DecodeAck(r Reader, kind ackKind) (*Ack, error) {
	packetID, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if packetID == 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "packet identifier must be non-zero")
	}
	if r.Remaining() == 0 {
		return newAck(kind, packetID, ReasonSuccess, PropertyList{}), nil
	}
	reasonByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	reason := ReasonCode(reasonByte)
	if !kind.validReason(reason) {
		return nil, merrors.Wrapf(merrors.ErrProtocolError, "invalid reason code 0x%02x for %s", reasonByte, kind.pktType)
	}
	if r.Remaining() == 0 {
		return newAck(kind, packetID, reason, PropertyList{}), nil
	}
	props, err := DecodeProperties(r, kind.whitelist)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, merrors.Wrapf(merrors.ErrMalformedPacket, "%s remaining length not exactly consumed", kind.pktType)
	}
	return newAck(kind, packetID, reason, props), nil
}

// DecodePuback, DecodePubrec, DecodePubrel and DecodePubcomp decode the
// respective packet's variable header from r.
func DecodePuback(r Reader) (*Ack, error)  { return DecodeAck(r, pubackKind) }
func DecodePubrec(r Reader) (*Ack, error)  { return DecodeAck(r, pubrecKind) }
func DecodePubrel(r Reader) (*Ack, error)  { return DecodeAck(r, pubrelKind) }
func DecodePubcomp(r Reader) (*Ack, error) { return DecodeAck(r, pubcompKind) }
