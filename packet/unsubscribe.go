package packet

import merrors "github.com/axmq/mqttv5/errors"

// Unsubscribe is the UNSUBSCRIBE packet (§3.10).
type Unsubscribe struct {
	PacketID   uint16
	Properties PropertyList
	Filters    []string
}

func (u *Unsubscribe) remainingLen() uint32 {
	propsLen := u.Properties.Len()
	n := uint32(2) + uint32(VariableByteIntegerSize(propsLen)) + propsLen
	for _, f := range u.Filters {
		n += EncodedStringLen(f)
	}
	return n
}

// EncodedLen returns the total wire size of the UNSUBSCRIBE packet.
func (u *Unsubscribe) EncodedLen() int {
	remaining := u.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the UNSUBSCRIBE packet into buf.
func (u *Unsubscribe) Encode(buf []byte) (int, error) {
	if len(u.Filters) == 0 {
		return 0, merrors.Wrap(merrors.ErrProtocolError, "UNSUBSCRIBE requires at least one topic filter")
	}
	remaining := u.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, UNSUBSCRIBE, 0x2, remaining)
	if err != nil {
		return 0, err
	}
	w := NewWriter(buf[headerLen:])
	if err := w.Uint16(u.PacketID); err != nil {
		return 0, err
	}
	if err := u.Properties.Encode(w); err != nil {
		return 0, err
	}
	for _, f := range u.Filters {
		if err := w.String(f); err != nil {
			return 0, err
		}
	}
	return headerLen + w.Len(), nil
}

// DecodeUnsubscribe reads an UNSUBSCRIBE packet's variable header and
// payload from r.
func DecodeUnsubscribe(r Reader) (*Unsubscribe, error) {
	packetID, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if packetID == 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "UNSUBSCRIBE packet identifier must be non-zero")
	}
	props, err := DecodeProperties(r, unsubscribeWhitelist)
	if err != nil {
		return nil, err
	}
	u := &Unsubscribe{PacketID: packetID, Properties: props}
	for r.Remaining() > 0 {
		filter, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		u.Filters = append(u.Filters, filter)
	}
	if len(u.Filters) == 0 {
		return nil, merrors.Wrap(merrors.ErrProtocolError, "UNSUBSCRIBE requires at least one topic filter")
	}
	return u, nil
}

// Unsuback is the UNSUBACK packet (§3.11).
type Unsuback struct {
	PacketID    uint16
	Properties  PropertyList
	ReasonCodes []ReasonCode
}

func (u *Unsuback) remainingLen() uint32 {
	propsLen := u.Properties.Len()
	return 2 + uint32(VariableByteIntegerSize(propsLen)) + propsLen + uint32(len(u.ReasonCodes))
}

// EncodedLen returns the total wire size of the UNSUBACK packet.
func (u *Unsuback) EncodedLen() int {
	remaining := u.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the UNSUBACK packet into buf.
func (u *Unsuback) Encode(buf []byte) (int, error) {
	remaining := u.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, UNSUBACK, 0, remaining)
	if err != nil {
		return 0, err
	}
	w := NewWriter(buf[headerLen:])
	if err := w.Uint16(u.PacketID); err != nil {
		return 0, err
	}
	if err := u.Properties.Encode(w); err != nil {
		return 0, err
	}
	for _, rc := range u.ReasonCodes {
		if err := w.Byte(byte(rc)); err != nil {
			return 0, err
		}
	}
	return headerLen + w.Len(), nil
}

// DecodeUnsuback reads an UNSUBACK packet's variable header and payload
// from r.
func DecodeUnsuback(r Reader) (*Unsuback, error) {
	packetID, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	props, err := DecodeProperties(r, subackFamilyWhitelist)
	if err != nil {
		return nil, err
	}
	u := &Unsuback{PacketID: packetID, Properties: props}
	for r.Remaining() > 0 {
		rcByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		rc := ReasonCode(rcByte)
		if !IsValidUnsuback(rc) {
			return nil, merrors.Wrapf(merrors.ErrProtocolError, "invalid UNSUBACK reason code 0x%02x", rcByte)
		}
		u.ReasonCodes = append(u.ReasonCodes, rc)
	}
	if len(u.ReasonCodes) == 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "UNSUBACK requires at least one reason code")
	}
	return u, nil
}
