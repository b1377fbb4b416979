package client

import (
	"github.com/axmq/mqttv5/packet"
)

// KeepAlive is the requested keep-alive interval in seconds. Zero encodes
// the protocol's "infinite" keep-alive directly.
type KeepAlive uint16

// KeepAliveInfinite disables the keep-alive mechanism.
const KeepAliveInfinite KeepAlive = 0

// SessionExpiry is the requested session expiry interval in seconds.
// SessionExpiryEndOnDisconnect (zero) ends the session when the network
// connection closes; SessionExpiryNever keeps it for as long as the
// server allows.
type SessionExpiry uint32

const (
	SessionExpiryEndOnDisconnect SessionExpiry = 0
	SessionExpiryNever           SessionExpiry = 0xFFFFFFFF
)

// WillOptions configures the CONNECT will message.
type WillOptions struct {
	Topic   string
	Payload []byte
	QoS     packet.QoS
	Retain  bool

	// DelayInterval postpones will publication by the given number of
	// seconds after an abnormal disconnect. Zero publishes immediately.
	DelayInterval uint32
	// PayloadFormatUTF8 marks the will payload as UTF-8 text rather than
	// opaque bytes.
	PayloadFormatUTF8 bool
	// MessageExpiryInterval, if non-zero, bounds the will message's
	// lifetime in seconds.
	MessageExpiryInterval uint32
	ContentType           string
	ResponseTopic         string
	CorrelationData       []byte
}

// ConnectOptions configures the CONNECT handshake.
type ConnectOptions struct {
	// ClientID may be empty to request a server-assigned identifier; the
	// assignment arrives in CONNACK and replaces the empty value.
	ClientID string
	// CleanStart discards any prior session state before connecting.
	CleanStart bool
	KeepAlive  KeepAlive
	// SessionExpiry is the session expiry interval requested of the
	// server. The server may override it in CONNACK.
	SessionExpiry SessionExpiry
	// MaximumPacketSize, if non-zero, tells the server not to send
	// packets larger than this.
	MaximumPacketSize uint32

	Username    string
	HasUsername bool
	Password    []byte
	HasPassword bool

	Will *WillOptions
}

// connectProperties assembles the CONNECT property list in the stable
// field order used on the wire: session expiry, receive maximum, maximum
// packet size. Session expiry and maximum packet size are omitted when
// zero. Topic alias maximum, request response/problem information and
// authentication method/data are never sent.
func (o *ConnectOptions) connectProperties(receiveMaximum uint16) packet.PropertyList {
	var props packet.PropertyList
	if o.SessionExpiry != SessionExpiryEndOnDisconnect {
		props.Items = append(props.Items, packet.SessionExpiryInterval{Value: uint32(o.SessionExpiry)})
	}
	props.Items = append(props.Items, packet.ReceiveMaximum{Value: receiveMaximum})
	if o.MaximumPacketSize != 0 {
		props.Items = append(props.Items, packet.MaximumPacketSize{Value: o.MaximumPacketSize})
	}
	return props
}

func (o *WillOptions) properties() packet.PropertyList {
	var props packet.PropertyList
	if o.DelayInterval != 0 {
		props.Items = append(props.Items, packet.WillDelayInterval{Value: o.DelayInterval})
	}
	if o.PayloadFormatUTF8 {
		props.Items = append(props.Items, packet.PayloadFormatIndicator{Value: 1})
	}
	if o.MessageExpiryInterval != 0 {
		props.Items = append(props.Items, packet.MessageExpiryInterval{Value: o.MessageExpiryInterval})
	}
	if o.ContentType != "" {
		props.Items = append(props.Items, packet.ContentType{Value: o.ContentType})
	}
	if o.ResponseTopic != "" {
		props.Items = append(props.Items, packet.ResponseTopic{Value: o.ResponseTopic})
	}
	if o.CorrelationData != nil {
		props.Items = append(props.Items, packet.CorrelationData{Value: o.CorrelationData})
	}
	return props
}

// TopicReference names the destination of a publication: a plain topic
// name, a previously mapped alias, or a name-and-alias pair establishing
// a new mapping.
type TopicReference struct {
	name  string
	alias uint16
	kind  topicRefKind
}

type topicRefKind byte

const (
	topicRefName topicRefKind = iota
	topicRefAlias
	topicRefMapping
)

// TopicName publishes to topic by name, with no alias involved.
func TopicName(name string) TopicReference {
	return TopicReference{name: name, kind: topicRefName}
}

// TopicAlias publishes to a previously mapped alias; the topic name on
// the wire is empty.
func TopicAlias(alias uint16) TopicReference {
	return TopicReference{alias: alias, kind: topicRefAlias}
}

// TopicMapping publishes to name while instructing the server to remember
// alias for it.
func TopicMapping(name string, alias uint16) TopicReference {
	return TopicReference{name: name, alias: alias, kind: topicRefMapping}
}

// Name returns the topic name carried on the wire (empty for a pure alias
// reference).
func (t TopicReference) Name() string { return t.name }

// Alias returns the alias and whether one is in play.
func (t TopicReference) Alias() (uint16, bool) {
	return t.alias, t.kind != topicRefName
}

// PublicationOptions configures a single Publish call.
type PublicationOptions struct {
	Topic  TopicReference
	QoS    packet.QoS
	Retain bool
	// MessageExpiryInterval, if non-zero, bounds the message's lifetime
	// in seconds.
	MessageExpiryInterval uint32
	// PayloadFormatUTF8 marks the payload as UTF-8 text.
	PayloadFormatUTF8 bool
	ContentType       string
	ResponseTopic     string
	CorrelationData   []byte
}

func (o *PublicationOptions) properties() packet.PropertyList {
	var props packet.PropertyList
	if o.PayloadFormatUTF8 {
		props.Items = append(props.Items, packet.PayloadFormatIndicator{Value: 1})
	}
	if o.MessageExpiryInterval != 0 {
		props.Items = append(props.Items, packet.MessageExpiryInterval{Value: o.MessageExpiryInterval})
	}
	if alias, ok := o.Topic.Alias(); ok {
		props.Items = append(props.Items, packet.TopicAlias{Value: alias})
	}
	if o.ResponseTopic != "" {
		props.Items = append(props.Items, packet.ResponseTopic{Value: o.ResponseTopic})
	}
	if o.CorrelationData != nil {
		props.Items = append(props.Items, packet.CorrelationData{Value: o.CorrelationData})
	}
	if o.ContentType != "" {
		props.Items = append(props.Items, packet.ContentType{Value: o.ContentType})
	}
	return props
}

// SubscriptionOptions configures a single Subscribe call.
type SubscriptionOptions struct {
	QoS               packet.QoS
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    packet.RetainHandling
	// SubscriptionIdentifier, if non-zero, is echoed back by the server
	// on matching publications.
	SubscriptionIdentifier uint32
}

// DisconnectOptions configures a graceful Disconnect.
type DisconnectOptions struct {
	// PublishWill asks the server to publish the will message despite the
	// orderly disconnect, using the DisconnectWithWillMessage reason.
	PublishWill bool
	// SessionExpiry, if set, overrides the session expiry interval agreed
	// at connect time. Raising it from zero is a protocol violation and
	// is rejected before anything touches the wire.
	SessionExpiry    SessionExpiry
	HasSessionExpiry bool
}
