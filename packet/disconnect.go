package packet

import merrors "github.com/axmq/mqttv5/errors"

// Disconnect is the DISCONNECT packet (§3.14). An absent variable header
// decodes as ReasonNormalDisconnection with no properties.
type Disconnect struct {
	ReasonCode ReasonCode
	Properties PropertyList
}

func (d *Disconnect) shortForm() bool {
	return d.ReasonCode == ReasonNormalDisconnection && len(d.Properties.Items) == 0
}

func (d *Disconnect) remainingLen() uint32 {
	if d.shortForm() {
		return 0
	}
	propsLen := d.Properties.Len()
	if propsLen == 0 {
		return 1
	}
	return 1 + uint32(VariableByteIntegerSize(propsLen)) + propsLen
}

// EncodedLen returns the total wire size of the DISCONNECT packet.
func (d *Disconnect) EncodedLen() int {
	remaining := d.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the DISCONNECT packet into buf.
func (d *Disconnect) Encode(buf []byte) (int, error) {
	remaining := d.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, DISCONNECT, 0, remaining)
	if err != nil {
		return 0, err
	}
	if remaining == 0 {
		return headerLen, nil
	}
	w := NewWriter(buf[headerLen:])
	if err := w.Byte(byte(d.ReasonCode)); err != nil {
		return 0, err
	}
	if d.Properties.Len() > 0 {
		if err := d.Properties.Encode(w); err != nil {
			return 0, err
		}
	}
	return headerLen + w.Len(), nil
}

// DecodeDisconnect reads a DISCONNECT packet's variable header from r.
func DecodeDisconnect(r Reader) (*Disconnect, error) {
	if r.Remaining() == 0 {
		return &Disconnect{ReasonCode: ReasonNormalDisconnection}, nil
	}
	reasonByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	reason := ReasonCode(reasonByte)
	if !IsValidDisconnect(reason) {
		return nil, merrors.Wrapf(merrors.ErrProtocolError, "invalid DISCONNECT reason code 0x%02x", reasonByte)
	}
	if r.Remaining() == 0 {
		return &Disconnect{ReasonCode: reason}, nil
	}
	props, err := DecodeProperties(r, disconnectWhitelist)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "DISCONNECT remaining length not exactly consumed")
	}
	return &Disconnect{ReasonCode: reason, Properties: props}, nil
}
