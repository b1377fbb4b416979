package packet

import merrors "github.com/axmq/mqttv5/errors"

// Auth is the AUTH packet (§3.15), used for extended (SASL-style)
// authentication exchanges. An absent variable header decodes as
// ReasonSuccess with no properties.
type Auth struct {
	ReasonCode ReasonCode
	Properties PropertyList
}

func (a *Auth) shortForm() bool {
	return a.ReasonCode == ReasonSuccess && len(a.Properties.Items) == 0
}

func (a *Auth) remainingLen() uint32 {
	if a.shortForm() {
		return 0
	}
	propsLen := a.Properties.Len()
	if propsLen == 0 {
		return 1
	}
	return 1 + uint32(VariableByteIntegerSize(propsLen)) + propsLen
}

// EncodedLen returns the total wire size of the AUTH packet.
func (a *Auth) EncodedLen() int {
	remaining := a.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the AUTH packet into buf.
func (a *Auth) Encode(buf []byte) (int, error) {
	remaining := a.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, AUTH, 0, remaining)
	if err != nil {
		return 0, err
	}
	if remaining == 0 {
		return headerLen, nil
	}
	w := NewWriter(buf[headerLen:])
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

// DecodeAuth reads an AUTH packet's variable header from r.
func DecodeAuth(r Reader) (*Auth, error) {
	if r.Remaining() == 0 {
		return &Auth{ReasonCode: ReasonSuccess}, nil
	}
	reasonByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	reason := ReasonCode(reasonByte)
	if !IsValidAuth(reason) {
		return nil, merrors.Wrapf(merrors.ErrProtocolError, "invalid AUTH reason code 0x%02x", reasonByte)
	}
	if r.Remaining() == 0 {
		return &Auth{ReasonCode: reason}, nil
	}
	props, err := DecodeProperties(r, authWhitelist)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "AUTH remaining length not exactly consumed")
	}
	return &Auth{ReasonCode: reason, Properties: props}, nil
}
