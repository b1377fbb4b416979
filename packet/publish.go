package packet

import merrors "github.com/axmq/mqttv5/errors"

// Publish is the PUBLISH packet (§3.3). Topic may be empty when a
// topic_alias property with value >= 1 stands in for it (§3.3.2.3.4).
type Publish struct {
	Dup        bool
	QoS        QoS
	Retain     bool
	Topic      string
	PacketID   uint16 // present iff QoS > 0
	Properties PropertyList
	Payload    Bytes
	// PayloadBytes is used by the encoder when constructing an outgoing
	// PUBLISH from a caller-owned payload slice; decoders populate Payload
	// instead, via the buffer provider.
	PayloadBytes []byte
}

func (p *Publish) flags() byte {
	var f byte
	if p.Dup {
		f |= 1 << 3
	}
	f |= byte(p.QoS) << 1
	if p.Retain {
		f |= 1
	}
	return f
}

func (p *Publish) remainingLen() uint32 {
	n := EncodedStringLen(p.Topic)
	if p.QoS > QoS0 {
		n += 2
	}
	propsLen := p.Properties.Len()
	n += uint32(VariableByteIntegerSize(propsLen)) + propsLen
	n += uint32(len(p.PayloadBytes))
	return n
}

// EncodedLen returns the total wire size of the PUBLISH packet.
func (p *Publish) EncodedLen() int {
	remaining := p.remainingLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the PUBLISH packet into buf.
func (p *Publish) Encode(buf []byte) (int, error) {
	if !p.QoS.IsValid() {
		return 0, merrors.Wrap(merrors.ErrMalformedPacket, "invalid QoS")
	}
	remaining := p.remainingLen()
	headerLen, err := EncodeFixedHeader(buf, 0, PUBLISH, p.flags(), remaining)
	if err != nil {
		return 0, err
	}
	w := NewWriter(buf[headerLen:])
	if err := w.String(p.Topic); err != nil {
		return 0, err
	}
	if p.QoS > QoS0 {
		if err := w.Uint16(p.PacketID); err != nil {
			return 0, err
		}
	}
	if err := p.Properties.Encode(w); err != nil {
		return 0, err
	}
	if err := w.Bytes(p.PayloadBytes); err != nil {
		return 0, err
	}
	return headerLen + w.Len(), nil
}

// DecodePublish reads a PUBLISH packet's variable header and payload from
// r, given the fixed header's flags byte already parsed into dup/qos/retain.
func DecodePublish(r Reader, dup bool, qos QoS, retain bool) (*Publish, error) {
	if qos == 3 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "invalid PUBLISH QoS value 3")
	}
	topic, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	p := &Publish{Dup: dup, QoS: qos, Retain: retain, Topic: topic}

	if qos > QoS0 {
		pid, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		if pid == 0 {
			return nil, merrors.Wrap(merrors.ErrMalformedPacket, "PUBLISH packet identifier must be non-zero")
		}
		p.PacketID = pid
	}

	props, err := DecodeProperties(r, publishWhitelist)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	if topic == "" {
		alias, hasAlias := props.Find(PropTopicAlias)
		if !hasAlias || alias.(TopicAlias).Value == 0 {
			return nil, merrors.Wrap(merrors.ErrProtocolError, "empty topic requires a non-zero topic_alias property")
		}
	}

	remaining := r.Remaining()
	payload, err := r.ReadRaw(int(remaining))
	if err != nil {
		return nil, err
	}
	p.Payload = payload
	if r.Remaining() != 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "PUBLISH remaining length not exactly consumed")
	}
	return p, nil
}

// TopicAliasOf returns the topic_alias property value carried by p, if any.
func (p *Publish) TopicAliasOf() (uint16, bool) {
	if prop, ok := p.Properties.Find(PropTopicAlias); ok {
		return prop.(TopicAlias).Value, true
	}
	return 0, false
}
