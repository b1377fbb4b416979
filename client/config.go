package client

import (
	"github.com/axmq/mqttv5/packet"
)

// ServerConfig is the server's capabilities and limits as announced in
// CONNACK properties. Absent properties take the protocol's documented
// defaults.
type ServerConfig struct {
	// ReceiveMaximum caps concurrent client-originated QoS>0
	// publications. Never zero; defaults to 65535.
	ReceiveMaximum uint16
	// MaximumQoS is the highest QoS the server accepts. Defaults to
	// exactly-once.
	MaximumQoS packet.QoS
	// RetainSupported reports whether the server accepts retained
	// publications. Defaults to true.
	RetainSupported bool
	// MaximumPacketSize, if non-zero, bounds outgoing packets; zero means
	// the server declared no limit.
	MaximumPacketSize uint32
	// TopicAliasMaximum is the highest topic alias the server accepts.
	// Defaults to zero: no aliases.
	TopicAliasMaximum uint16
	// AssignedClientID is the server-assigned client identifier, when the
	// server chose one.
	AssignedClientID string

	WildcardSubscriptionAvailable   bool
	SubscriptionIdentifierAvailable bool
	SharedSubscriptionAvailable     bool
}

// DefaultServerConfig returns the configuration a server that sends no
// CONNACK properties is taken to have.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReceiveMaximum:                  65535,
		MaximumQoS:                      packet.QoS2,
		RetainSupported:                 true,
		TopicAliasMaximum:               0,
		WildcardSubscriptionAvailable:   true,
		SubscriptionIdentifierAvailable: true,
		SharedSubscriptionAvailable:     true,
	}
}

// SharedConfig is the configuration both peers agreed on during the
// handshake: the server may override the keep-alive the client requested
// and the session expiry interval it offered.
type SharedConfig struct {
	// KeepAlive is the negotiated keep-alive interval in seconds; zero
	// means no keep-alive. The caller is responsible for invoking Ping
	// within this interval.
	KeepAlive uint16
	// SessionExpiryInterval is the negotiated session expiry interval in
	// seconds; 0xFFFFFFFF means the session never expires.
	SessionExpiryInterval uint32
}

// serverConfigFromConnack folds the CONNACK property list over the
// defaults, also returning the negotiated shared configuration given what
// the client originally requested.
func serverConfigFromConnack(props packet.PropertyList, requested *ConnectOptions) (ServerConfig, SharedConfig) {
	server := DefaultServerConfig()
	shared := SharedConfig{
		KeepAlive:             uint16(requested.KeepAlive),
		SessionExpiryInterval: uint32(requested.SessionExpiry),
	}

	for _, p := range props.Items {
		switch v := p.(type) {
		case packet.ReceiveMaximum:
			if v.Value != 0 {
				server.ReceiveMaximum = v.Value
			}
		case packet.MaximumQoS:
			server.MaximumQoS = packet.QoS(v.Value)
		case packet.RetainAvailable:
			server.RetainSupported = v.Value == 1
		case packet.MaximumPacketSize:
			server.MaximumPacketSize = v.Value
		case packet.TopicAliasMaximum:
			server.TopicAliasMaximum = v.Value
		case packet.AssignedClientIdentifier:
			server.AssignedClientID = v.Value
		case packet.WildcardSubscriptionAvailable:
			server.WildcardSubscriptionAvailable = v.Value == 1
		case packet.SubscriptionIdentifierAvailable:
			server.SubscriptionIdentifierAvailable = v.Value == 1
		case packet.SharedSubscriptionAvailable:
			server.SharedSubscriptionAvailable = v.Value == 1
		case packet.ServerKeepAlive:
			shared.KeepAlive = v.Value
		case packet.SessionExpiryInterval:
			shared.SessionExpiryInterval = v.Value
		}
	}
	return server, shared
}
