package packet

import merrors "github.com/axmq/mqttv5/errors"

const (
	protocolName    = "MQTT"
	protocolVersion = 5
)

// Will carries the optional CONNECT will message (§3.1.3).
type Will struct {
	Topic      string
	Payload    []byte
	QoS        QoS
	Retain     bool
	Properties PropertyList
}

// Connect is the CONNECT packet (§3.1). ClientID may be empty, requesting
// a server-assigned identifier via AssignedClientIdentifier in CONNACK.
type Connect struct {
	CleanStart bool
	KeepAlive  uint16
	ClientID   string
	Will       *Will
	Username   string
	HasUser    bool
	Password   []byte
	HasPass    bool
	Properties PropertyList
}

// connectFlags packs user_name/password/will_retain/will_qos/will_flag/
// clean_start/reserved(0) into the CONNECT variable header's flags byte.
func (c *Connect) connectFlags() byte {
	var flags byte
	if c.HasUser {
		flags |= 1 << 7
	}
	if c.HasPass {
		flags |= 1 << 6
	}
	if c.Will != nil {
		if c.Will.Retain {
			flags |= 1 << 5
		}
		flags |= byte(c.Will.QoS) << 3
		flags |= 1 << 2
	}
	if c.CleanStart {
		flags |= 1 << 1
	}
	return flags
}

func (c *Connect) variableHeaderAndPayloadLen() uint32 {
	n := uint32(len(protocolName)) + 2 + 1 + 1 + 2 // protocol name, version, flags, keepalive
	propsLen := c.Properties.Len()
	n += uint32(VariableByteIntegerSize(propsLen)) + propsLen
	n += EncodedStringLen(c.ClientID)
	if c.Will != nil {
		willPropsLen := c.Will.Properties.Len()
		n += uint32(VariableByteIntegerSize(willPropsLen)) + willPropsLen
		n += EncodedStringLen(c.Will.Topic)
		n += EncodedBinaryLen(c.Will.Payload)
	}
	if c.HasUser {
		n += EncodedStringLen(c.Username)
	}
	if c.HasPass {
		n += EncodedBinaryLen(c.Password)
	}
	return n
}

// EncodedLen returns the total wire size of the CONNECT packet.
func (c *Connect) EncodedLen() int {
	remaining := c.variableHeaderAndPayloadLen()
	return headerOverhead(remaining) + int(remaining)
}

// Encode writes the CONNECT packet into buf, returning the number of
// bytes written.
func (c *Connect) Encode(buf []byte) (int, error) {
	remaining := c.variableHeaderAndPayloadLen()
	headerLen, err := EncodeFixedHeader(buf, 0, CONNECT, 0, remaining)
	if err != nil {
		return 0, err
	}
	w := NewWriter(buf[headerLen:])
	if err := w.String(protocolName); err != nil {
		return 0, err
	}
	if err := w.Byte(protocolVersion); err != nil {
		return 0, err
	}
	if err := w.Byte(c.connectFlags()); err != nil {
		return 0, err
	}
	if err := w.Uint16(c.KeepAlive); err != nil {
		return 0, err
	}
	if err := c.Properties.Encode(w); err != nil {
		return 0, err
	}
	if err := w.String(c.ClientID); err != nil {
		return 0, err
	}
	if c.Will != nil {
		if err := c.Will.Properties.Encode(w); err != nil {
			return 0, err
		}
		if err := w.String(c.Will.Topic); err != nil {
			return 0, err
		}
		if err := w.Binary(c.Will.Payload); err != nil {
			return 0, err
		}
	}
	if c.HasUser {
		if err := w.String(c.Username); err != nil {
			return 0, err
		}
	}
	if c.HasPass {
		if err := w.Binary(c.Password); err != nil {
			return 0, err
		}
	}
	return headerLen + w.Len(), nil
}

// DecodeConnect reads a CONNECT packet's variable header and payload from
// r, given the fixed header already consumed.
func DecodeConnect(r Reader) (*Connect, error) {
	name, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	if name != protocolName {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "invalid protocol name")
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != protocolVersion {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "unsupported protocol version")
	}
	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if flags&0x01 != 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "CONNECT reserved flag bit set")
	}
	keepAlive, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	props, err := DecodeProperties(r, connectWhitelist)
	if err != nil {
		return nil, err
	}

	clientID, err := r.ReadString()
	if err != nil {
		return nil, err
	}

	c := &Connect{
		CleanStart: flags&(1<<1) != 0,
		KeepAlive:  keepAlive,
		ClientID:   clientID,
		Properties: props,
	}

	willFlag := flags&(1<<2) != 0
	willQoS := QoS((flags >> 3) & 0x03)
	willRetain := flags&(1<<5) != 0
	if willFlag {
		if !willQoS.IsValid() {
			return nil, merrors.Wrap(merrors.ErrMalformedPacket, "invalid will QoS")
		}
		willProps, err := DecodeProperties(r, willWhitelist)
		if err != nil {
			return nil, err
		}
		topic, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		payload, err := r.ReadBinary()
		if err != nil {
			return nil, err
		}
		c.Will = &Will{
			Topic:      topic,
			Payload:    payload.View(),
			QoS:        willQoS,
			Retain:     willRetain,
			Properties: willProps,
		}
	}

	if flags&(1<<7) != 0 {
		username, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		c.Username = username
		c.HasUser = true
	}
	if flags&(1<<6) != 0 {
		if flags&(1<<7) == 0 {
			return nil, merrors.Wrap(merrors.ErrMalformedPacket, "password flag set without username flag")
		}
		password, err := r.ReadBinary()
		if err != nil {
			return nil, err
		}
		c.Password = password.View()
		c.HasPass = true
	}

	if r.Remaining() != 0 {
		return nil, merrors.Wrap(merrors.ErrMalformedPacket, "CONNECT remaining length not exactly consumed")
	}
	return c, nil
}
