package packet

import merrors "github.com/axmq/mqttv5/errors"

// Connack is the CONNACK packet (§3.2).
type Connack struct {
	SessionPresent bool
	ReasonCode     ReasonCode
	Properties     PropertyList
}

func (c *Connack) remainingLen() uint32 {
	propsLen := c.Properties.Len()
	return 1 + 1 + uint32(VariableByteIntegerSize(propsLen)) + propsLen
}

// EncodedLen returns the total wire size of the CONNACK packet.
func (c *Connack) EncodedLen() int {
	remaining := c.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the CONNACK packet into buf.
func (c *Connack) Encode(buf []byte) (int, error) {
	remaining := c.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, CONNACK, 0, remaining)
	if err != nil {
		return 0, err
	}
	w := NewWriter(buf[headerLen:])
	flags := byte(0)
	if c.SessionPresent {
		flags = 1
	}
	if err := w.Byte(flags); err != nil {
		return 0, err
	}
	if err := w.Byte(byte(c.ReasonCode)); err != nil {
		return 0, err
	}
	if err := c.Properties.Encode(w); err != nil {
		return 0, err
	}
	return headerLen + w.Len(), nil
}

// DecodeConnack reads a CONNACK packet's variable header from r.
func DecodeConnack(r Reader) (*Connack, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if flags&0xFE != 0 {
		return nil, merrors.Wrap(merrors.ErrProtocolError, "reserved CONNACK flag bits set")
	}
	reasonByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	reason := ReasonCode(reasonByte)
	if !IsValidConnack(reason) {
		return nil, merrors.Wrapf(merrors.ErrProtocolError, "invalid CONNACK reason code 0x%02x", reasonByte)
	}
	props, err := DecodeProperties(r, connackWhitelist)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "CONNACK remaining length not exactly consumed")
	}
	return &Connack{
		SessionPresent: flags&0x01 != 0,
		ReasonCode:     reason,
		Properties:     props,
	}, nil
}
