package packet

import merrors "github.com/axmq/mqttv5/errors"

// PropertyID is the one-byte MQTT 5.0 property identifier (§2.2.2).
type PropertyID byte

const (
	PropPayloadFormatIndicator          PropertyID = 0x01
	PropMessageExpiryInterval           PropertyID = 0x02
	PropContentType                     PropertyID = 0x03
	PropResponseTopic                   PropertyID = 0x08
	PropCorrelationData                 PropertyID = 0x09
	PropSubscriptionIdentifier          PropertyID = 0x0B
	PropSessionExpiryInterval           PropertyID = 0x11
	PropAssignedClientIdentifier        PropertyID = 0x12
	PropServerKeepAlive                 PropertyID = 0x13
	PropAuthenticationMethod            PropertyID = 0x15
	PropAuthenticationData              PropertyID = 0x16
	PropRequestProblemInformation       PropertyID = 0x17
	PropWillDelayInterval                PropertyID = 0x18
	PropRequestResponseInformation       PropertyID = 0x19
	PropResponseInformation              PropertyID = 0x1A
	PropServerReference                  PropertyID = 0x1C
	PropReasonString                     PropertyID = 0x1F
	PropReceiveMaximum                   PropertyID = 0x21
	PropTopicAliasMaximum                PropertyID = 0x22
	PropTopicAlias                       PropertyID = 0x23
	PropMaximumQoS                       PropertyID = 0x24
	PropRetainAvailable                  PropertyID = 0x25
	PropUserProperty                     PropertyID = 0x26
	PropMaximumPacketSize                PropertyID = 0x27
	PropWildcardSubscriptionAvailable    PropertyID = 0x28
	PropSubscriptionIdentifierAvailable  PropertyID = 0x29
	PropSharedSubscriptionAvailable      PropertyID = 0x2A
)

// Property is the sum type over the 27 registered property identifiers.
// There is exactly one concrete type per identifier, never a string-keyed
// map, so the whitelist tables below are keyed by identifier. A decode
// switch on an identifier it does not list falls to its default case.
type Property interface {
	ID() PropertyID
	wireLen() uint32
	encode(w *Writer) error
}

// atMostOnce reports whether id must appear at most once per packet
// (§2.2.2). A decoder observing it twice fails with ProtocolError.
func (id PropertyID) atMostOnce() bool {
	switch id {
	case PropUserProperty, PropSubscriptionIdentifier:
		return false
	default:
		return true
	}
}

type (
	PayloadFormatIndicator          struct{ Value byte }
	MessageExpiryInterval           struct{ Value uint32 }
	ContentType                     struct{ Value string }
	ResponseTopic                   struct{ Value string }
	CorrelationData                 struct{ Value []byte }
	SubscriptionIdentifier          struct{ Value uint32 }
	SessionExpiryInterval           struct{ Value uint32 }
	AssignedClientIdentifier        struct{ Value string }
	ServerKeepAlive                 struct{ Value uint16 }
	AuthenticationMethod            struct{ Value string }
	AuthenticationData              struct{ Value []byte }
	RequestProblemInformation       struct{ Value byte }
	WillDelayInterval                struct{ Value uint32 }
	RequestResponseInformation       struct{ Value byte }
	ResponseInformation              struct{ Value string }
	ServerReference                  struct{ Value string }
	ReasonStringProp                 struct{ Value string }
	ReceiveMaximum                    struct{ Value uint16 }
	TopicAliasMaximum                 struct{ Value uint16 }
	TopicAlias                        struct{ Value uint16 }
	MaximumQoS                        struct{ Value byte }
	RetainAvailable                   struct{ Value byte }
	UserProperty                      struct{ Key, Value string }
	MaximumPacketSize                 struct{ Value uint32 }
	WildcardSubscriptionAvailable     struct{ Value byte }
	SubscriptionIdentifierAvailable   struct{ Value byte }
	SharedSubscriptionAvailable       struct{ Value byte }
)

// per-type whitelist sets: one allowed-identifier set per packet type,
// from the property tables of the protocol specification.
var (
	connectWhitelist = map[PropertyID]bool{
		PropSessionExpiryInterval: true, PropReceiveMaximum: true,
		PropMaximumPacketSize: true, PropTopicAliasMaximum: true,
		PropRequestResponseInformation: true, PropRequestProblemInformation: true,
		PropUserProperty: true, PropAuthenticationMethod: true, PropAuthenticationData: true,
	}
	connackWhitelist = map[PropertyID]bool{
		PropSessionExpiryInterval: true, PropReceiveMaximum: true, PropMaximumQoS: true,
		PropMaximumPacketSize: true, PropAssignedClientIdentifier: true,
		PropTopicAliasMaximum: true, PropReasonString: true, PropUserProperty: true,
		PropWildcardSubscriptionAvailable: true, PropSubscriptionIdentifierAvailable: true,
		PropSharedSubscriptionAvailable: true, PropServerKeepAlive: true,
		PropResponseInformation: true, PropServerReference: true,
		PropAuthenticationMethod: true, PropAuthenticationData: true,
	}
	publishWhitelist = map[PropertyID]bool{
		PropPayloadFormatIndicator: true, PropMessageExpiryInterval: true,
		PropTopicAlias: true, PropResponseTopic: true, PropCorrelationData: true,
		PropUserProperty: true, PropSubscriptionIdentifier: true, PropContentType: true,
	}
	pubackFamilyWhitelist = map[PropertyID]bool{
		PropReasonString: true, PropUserProperty: true,
	}
	subscribeWhitelist = map[PropertyID]bool{
		PropSubscriptionIdentifier: true, PropUserProperty: true,
	}
	subackFamilyWhitelist = map[PropertyID]bool{
		PropReasonString: true, PropUserProperty: true,
	}
	unsubscribeWhitelist = map[PropertyID]bool{
		PropUserProperty: true,
	}
	disconnectWhitelist = map[PropertyID]bool{
		PropSessionExpiryInterval: true, PropReasonString: true,
		PropUserProperty: true, PropServerReference: true,
	}
	authWhitelist = map[PropertyID]bool{
		PropAuthenticationMethod: true, PropAuthenticationData: true,
		PropReasonString: true, PropUserProperty: true,
	}
	willWhitelist = map[PropertyID]bool{
		PropWillDelayInterval: true, PropPayloadFormatIndicator: true,
		PropMessageExpiryInterval: true, PropContentType: true,
		PropResponseTopic: true, PropCorrelationData: true, PropUserProperty: true,
	}
)

func allowedBy(set map[PropertyID]bool, id PropertyID) bool { return set[id] }

func (p PayloadFormatIndicator) ID() PropertyID   { return PropPayloadFormatIndicator }
func (p MessageExpiryInterval) ID() PropertyID    { return PropMessageExpiryInterval }
func (p ContentType) ID() PropertyID              { return PropContentType }
func (p ResponseTopic) ID() PropertyID            { return PropResponseTopic }
func (p CorrelationData) ID() PropertyID          { return PropCorrelationData }
func (p SubscriptionIdentifier) ID() PropertyID   { return PropSubscriptionIdentifier }
func (p SessionExpiryInterval) ID() PropertyID    { return PropSessionExpiryInterval }
func (p AssignedClientIdentifier) ID() PropertyID { return PropAssignedClientIdentifier }
func (p ServerKeepAlive) ID() PropertyID          { return PropServerKeepAlive }
func (p AuthenticationMethod) ID() PropertyID     { return PropAuthenticationMethod }
func (p AuthenticationData) ID() PropertyID       { return PropAuthenticationData }
func (p RequestProblemInformation) ID() PropertyID { return PropRequestProblemInformation }
func (p WillDelayInterval) ID() PropertyID          { return PropWillDelayInterval }
func (p RequestResponseInformation) ID() PropertyID { return PropRequestResponseInformation }
func (p ResponseInformation) ID() PropertyID        { return PropResponseInformation }
func (p ServerReference) ID() PropertyID            { return PropServerReference }
func (p ReasonStringProp) ID() PropertyID           { return PropReasonString }
func (p ReceiveMaximum) ID() PropertyID             { return PropReceiveMaximum }
func (p TopicAliasMaximum) ID() PropertyID          { return PropTopicAliasMaximum }
func (p TopicAlias) ID() PropertyID                 { return PropTopicAlias }
func (p MaximumQoS) ID() PropertyID                 { return PropMaximumQoS }
func (p RetainAvailable) ID() PropertyID            { return PropRetainAvailable }
func (p UserProperty) ID() PropertyID               { return PropUserProperty }
func (p MaximumPacketSize) ID() PropertyID          { return PropMaximumPacketSize }
func (p WildcardSubscriptionAvailable) ID() PropertyID   { return PropWildcardSubscriptionAvailable }
func (p SubscriptionIdentifierAvailable) ID() PropertyID { return PropSubscriptionIdentifierAvailable }
func (p SharedSubscriptionAvailable) ID() PropertyID     { return PropSharedSubscriptionAvailable }

func (p PayloadFormatIndicator) wireLen() uint32   { return 1 }
func (p MessageExpiryInterval) wireLen() uint32    { return 4 }
func (p ContentType) wireLen() uint32              { return EncodedStringLen(p.Value) }
func (p ResponseTopic) wireLen() uint32            { return EncodedStringLen(p.Value) }
func (p CorrelationData) wireLen() uint32          { return EncodedBinaryLen(p.Value) }
func (p SubscriptionIdentifier) wireLen() uint32   { return uint32(VariableByteIntegerSize(p.Value)) }
func (p SessionExpiryInterval) wireLen() uint32    { return 4 }
func (p AssignedClientIdentifier) wireLen() uint32 { return EncodedStringLen(p.Value) }
func (p ServerKeepAlive) wireLen() uint32          { return 2 }
func (p AuthenticationMethod) wireLen() uint32     { return EncodedStringLen(p.Value) }
func (p AuthenticationData) wireLen() uint32       { return EncodedBinaryLen(p.Value) }
func (p RequestProblemInformation) wireLen() uint32 { return 1 }
func (p WillDelayInterval) wireLen() uint32          { return 4 }
func (p RequestResponseInformation) wireLen() uint32 { return 1 }
func (p ResponseInformation) wireLen() uint32        { return EncodedStringLen(p.Value) }
func (p ServerReference) wireLen() uint32            { return EncodedStringLen(p.Value) }
func (p ReasonStringProp) wireLen() uint32            { return EncodedStringLen(p.Value) }
func (p ReceiveMaximum) wireLen() uint32               { return 2 }
func (p TopicAliasMaximum) wireLen() uint32            { return 2 }
func (p TopicAlias) wireLen() uint32                   { return 2 }
func (p MaximumQoS) wireLen() uint32                   { return 1 }
func (p RetainAvailable) wireLen() uint32              { return 1 }
func (p UserProperty) wireLen() uint32                 { return EncodedStringLen(p.Key) + EncodedStringLen(p.Value) }
func (p MaximumPacketSize) wireLen() uint32            { return 4 }
func (p WildcardSubscriptionAvailable) wireLen() uint32   { return 1 }
func (p SubscriptionIdentifierAvailable) wireLen() uint32 { return 1 }
func (p SharedSubscriptionAvailable) wireLen() uint32     { return 1 }

func (p PayloadFormatIndicator) encode(w *Writer) error   { return w.Byte(p.Value) }
func (p MessageExpiryInterval) encode(w *Writer) error    { return w.Uint32(p.Value) }
func (p ContentType) encode(w *Writer) error              { return w.String(p.Value) }
func (p ResponseTopic) encode(w *Writer) error            { return w.String(p.Value) }
func (p CorrelationData) encode(w *Writer) error          { return w.Binary(p.Value) }
func (p SubscriptionIdentifier) encode(w *Writer) error   { return w.VarInt(p.Value) }
func (p SessionExpiryInterval) encode(w *Writer) error    { return w.Uint32(p.Value) }
func (p AssignedClientIdentifier) encode(w *Writer) error { return w.String(p.Value) }
func (p ServerKeepAlive) encode(w *Writer) error          { return w.Uint16(p.Value) }
func (p AuthenticationMethod) encode(w *Writer) error     { return w.String(p.Value) }
func (p AuthenticationData) encode(w *Writer) error       { return w.Binary(p.Value) }
func (p RequestProblemInformation) encode(w *Writer) error { return w.Byte(p.Value) }
func (p WillDelayInterval) encode(w *Writer) error          { return w.Uint32(p.Value) }
func (p RequestResponseInformation) encode(w *Writer) error { return w.Byte(p.Value) }
func (p ResponseInformation) encode(w *Writer) error        { return w.String(p.Value) }
func (p ServerReference) encode(w *Writer) error            { return w.String(p.Value) }
func (p ReasonStringProp) encode(w *Writer) error            { return w.String(p.Value) }
func (p ReceiveMaximum) encode(w *Writer) error               { return w.Uint16(p.Value) }
func (p TopicAliasMaximum) encode(w *Writer) error            { return w.Uint16(p.Value) }
func (p TopicAlias) encode(w *Writer) error                   { return w.Uint16(p.Value) }
func (p MaximumQoS) encode(w *Writer) error                    { return w.Byte(p.Value) }
func (p RetainAvailable) encode(w *Writer) error               { return w.Byte(p.Value) }
func (p UserProperty) encode(w *Writer) error                  { return w.StringPair(p.Key, p.Value) }
func (p MaximumPacketSize) encode(w *Writer) error             { return w.Uint32(p.Value) }
func (p WildcardSubscriptionAvailable) encode(w *Writer) error   { return w.Byte(p.Value) }
func (p SubscriptionIdentifierAvailable) encode(w *Writer) error { return w.Byte(p.Value) }
func (p SharedSubscriptionAvailable) encode(w *Writer) error     { return w.Byte(p.Value) }

// IsPropertyAllowedIn reports whether id may appear on packet type t,
// consulting the whitelist table for t (§2.2.2).
func IsPropertyAllowedIn(id PropertyID, t Type) bool { return whitelistFor(t)[id] }

// whitelistFor returns the allowed-property-ID set for packet type t. AUTH
// and CONNECT's embedded will-properties share the auth/will sets
// respectively; callers needing the will-properties whitelist use
// WillPropertiesWhitelist directly since there is no dedicated Type for it.
func whitelistFor(t Type) map[PropertyID]bool {
	switch t {
	case CONNECT:
		return connectWhitelist
	case CONNACK:
		return connackWhitelist
	case PUBLISH:
		return publishWhitelist
	case PUBACK, PUBREC, PUBREL, PUBCOMP:
		return pubackFamilyWhitelist
	case SUBSCRIBE:
		return subscribeWhitelist
	case SUBACK, UNSUBACK:
		return subackFamilyWhitelist
	case UNSUBSCRIBE:
		return unsubscribeWhitelist
	case DISCONNECT:
		return disconnectWhitelist
	case AUTH:
		return authWhitelist
	default:
		return nil
	}
}

// WillPropertiesWhitelist is the allowed-property-ID set for a CONNECT
// packet's embedded will properties (§3.1.3.2).
func WillPropertiesWhitelist() map[PropertyID]bool { return willWhitelist }

// PropertyList is an ordered collection of properties, decoded or about
// to be encoded, for a single packet or will-properties section.
type PropertyList struct {
	Items []Property
}

// Len returns the on-wire length of the properties section's contents,
// excluding its own length-prefix VBI (one byte identifier + typed value
// per property).
func (pl PropertyList) Len() uint32 {
	var n uint32
	for _, p := range pl.Items {
		n += 1 + p.wireLen()
	}
	return n
}

// Encode writes the properties_length VBI followed by each property's
// identifier byte and typed value.
func (pl PropertyList) Encode(w *Writer) error {
	if err := w.VarInt(pl.Len()); err != nil {
		return err
	}
	for _, p := range pl.Items {
		if err := w.Byte(byte(p.ID())); err != nil {
			return err
		}
		if err := p.encode(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeProperties reads the properties_length VBI and then each property
// from r, rejecting identifiers outside whitelist and duplicate
// at-most-once properties (§2.2.2). whitelist selects the allowed-ID
// set for the enclosing packet type (or the will-properties set).
func DecodeProperties(r Reader, whitelist map[PropertyID]bool) (PropertyList, error) {
	length, err := r.ReadVarInt()
	if err != nil {
		return PropertyList{}, err
	}
	if length == 0 {
		return PropertyList{}, nil
	}

	budget := int64(length)
	seen := make(map[PropertyID]bool)
	var items []Property

	for budget > 0 {
		before := r.Remaining()
		idByte, err := r.ReadByte()
		if err != nil {
			return PropertyList{}, err
		}
		id := PropertyID(idByte)
		if whitelist == nil || !whitelist[id] {
			return PropertyList{}, merrors.Wrapf(merrors.ErrMalformedPacket, "property 0x%02x not allowed here", id)
		}
		if id.atMostOnce() && seen[id] {
			return PropertyList{}, merrors.Wrap(merrors.ErrProtocolError, "duplicate at-most-once property")
		}
		seen[id] = true

		prop, err := decodeOneProperty(r, id)
		if err != nil {
			return PropertyList{}, err
		}
		items = append(items, prop)

		consumed := int64(before) - int64(r.Remaining())
		budget -= consumed
		if budget < 0 {
			return PropertyList{}, merrors.Wrap(merrors.ErrMalformedPacket, "property section underflow")
		}
	}
	if budget != 0 {
		return PropertyList{}, merrors.Wrap(merrors.ErrMalformedPacket, "property section not exactly consumed")
	}
	return PropertyList{Items: items}, nil
}

func decodeOneProperty(r Reader, id PropertyID) (Property, error) {
	switch id {
	case PropPayloadFormatIndicator:
		v, err := r.ReadByte()
		return PayloadFormatIndicator{v}, err
	case PropMessageExpiryInterval:
		v, err := r.ReadUint32()
		return MessageExpiryInterval{v}, err
	case PropContentType:
		v, err := r.ReadString()
		return ContentType{v}, err
	case PropResponseTopic:
		v, err := r.ReadString()
		return ResponseTopic{v}, err
	case PropCorrelationData:
		v, err := r.ReadBinary()
		return CorrelationData{v.View()}, err
	case PropSubscriptionIdentifier:
		v, err := r.ReadVarInt()
		return SubscriptionIdentifier{v}, err
	case PropSessionExpiryInterval:
		v, err := r.ReadUint32()
		return SessionExpiryInterval{v}, err
	case PropAssignedClientIdentifier:
		v, err := r.ReadString()
		return AssignedClientIdentifier{v}, err
	case PropServerKeepAlive:
		v, err := r.ReadUint16()
		return ServerKeepAlive{v}, err
	case PropAuthenticationMethod:
		v, err := r.ReadString()
		return AuthenticationMethod{v}, err
	case PropAuthenticationData:
		v, err := r.ReadBinary()
		return AuthenticationData{v.View()}, err
	case PropRequestProblemInformation:
		v, err := r.ReadByte()
		return RequestProblemInformation{v}, err
	case PropWillDelayInterval:
		v, err := r.ReadUint32()
		return WillDelayInterval{v}, err
	case PropRequestResponseInformation:
		v, err := r.ReadByte()
		return RequestResponseInformation{v}, err
	case PropResponseInformation:
		v, err := r.ReadString()
		return ResponseInformation{v}, err
	case PropServerReference:
		v, err := r.ReadString()
		return ServerReference{v}, err
	case PropReasonString:
		v, err := r.ReadString()
		return ReasonStringProp{v}, err
	case PropReceiveMaximum:
		v, err := r.ReadUint16()
		return ReceiveMaximum{v}, err
	case PropTopicAliasMaximum:
		v, err := r.ReadUint16()
		return TopicAliasMaximum{v}, err
	case PropTopicAlias:
		v, err := r.ReadUint16()
		return TopicAlias{v}, err
	case PropMaximumQoS:
		v, err := r.ReadByte()
		return MaximumQoS{v}, err
	case PropRetainAvailable:
		v, err := r.ReadByte()
		return RetainAvailable{v}, err
	case PropUserProperty:
		k, v, err := r.ReadStringPair()
		return UserProperty{k, v}, err
	case PropMaximumPacketSize:
		v, err := r.ReadUint32()
		return MaximumPacketSize{v}, err
	case PropWildcardSubscriptionAvailable:
		v, err := r.ReadByte()
		return WildcardSubscriptionAvailable{v}, err
	case PropSubscriptionIdentifierAvailable:
		v, err := r.ReadByte()
		return SubscriptionIdentifierAvailable{v}, err
	case PropSharedSubscriptionAvailable:
		v, err := r.ReadByte()
		return SharedSubscriptionAvailable{v}, err
	default:
		return nil, merrors.Wrapf(merrors.ErrMalformedPacket, "unknown property id 0x%02x", id)
	}
}

// Find returns the first property in pl matching id, for the common case
// of reading a single at-most-once property out of a decoded list.
func (pl PropertyList) Find(id PropertyID) (Property, bool) {
	for _, p := range pl.Items {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}
