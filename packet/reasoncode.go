package packet

// ReasonCode is the MQTT 5.0 reason code carried by CONNACK, the
// PUBACK/PUBREC/PUBREL/PUBCOMP family, SUBACK/UNSUBACK and DISCONNECT.
type ReasonCode byte

const (
	ReasonSuccess                   ReasonCode = 0x00
	ReasonNormalDisconnection       ReasonCode = 0x00
	ReasonGrantedQoS0               ReasonCode = 0x00
	ReasonGrantedQoS1               ReasonCode = 0x01
	ReasonGrantedQoS2               ReasonCode = 0x02
	ReasonDisconnectWithWillMessage ReasonCode = 0x04
	ReasonNoMatchingSubscribers     ReasonCode = 0x10
	ReasonNoSubscriptionExisted     ReasonCode = 0x11
	ReasonContinueAuthentication    ReasonCode = 0x18
	ReasonReAuthenticate            ReasonCode = 0x19

	ReasonUnspecifiedError                    ReasonCode = 0x80
	ReasonMalformedPacket                     ReasonCode = 0x81
	ReasonProtocolError                       ReasonCode = 0x82
	ReasonImplementationSpecificError         ReasonCode = 0x83
	ReasonUnsupportedProtocolVersion          ReasonCode = 0x84
	ReasonClientIdentifierNotValid            ReasonCode = 0x85
	ReasonBadUsernameOrPassword               ReasonCode = 0x86
	ReasonNotAuthorized                       ReasonCode = 0x87
	ReasonServerUnavailable                   ReasonCode = 0x88
	ReasonServerBusy                          ReasonCode = 0x89
	ReasonBanned                              ReasonCode = 0x8A
	ReasonServerShuttingDown                  ReasonCode = 0x8B
	ReasonBadAuthenticationMethod             ReasonCode = 0x8C
	ReasonKeepAliveTimeout                    ReasonCode = 0x8D
	ReasonSessionTakenOver                    ReasonCode = 0x8E
	ReasonTopicFilterInvalid                  ReasonCode = 0x8F
	ReasonTopicNameInvalid                    ReasonCode = 0x90
	ReasonPacketIdentifierInUse               ReasonCode = 0x91
	ReasonPacketIdentifierNotFound             ReasonCode = 0x92
	ReasonReceiveMaximumExceeded               ReasonCode = 0x93
	ReasonTopicAliasInvalid                    ReasonCode = 0x94
	ReasonPacketTooLarge                       ReasonCode = 0x95
	ReasonMessageRateTooHigh                   ReasonCode = 0x96
	ReasonQuotaExceeded                        ReasonCode = 0x97
	ReasonAdministrativeAction                 ReasonCode = 0x98
	ReasonPayloadFormatInvalid                 ReasonCode = 0x99
	ReasonRetainNotSupported                   ReasonCode = 0x9A
	ReasonQoSNotSupported                      ReasonCode = 0x9B
	ReasonUseAnotherServer                     ReasonCode = 0x9C
	ReasonServerMoved                          ReasonCode = 0x9D
	ReasonSharedSubscriptionsNotSupported      ReasonCode = 0x9E
	ReasonConnectionRateExceeded               ReasonCode = 0x9F
	ReasonMaximumConnectTime                   ReasonCode = 0xA0
	ReasonSubscriptionIdentifiersNotSupported  ReasonCode = 0xA1
	ReasonWildcardSubscriptionsNotSupported    ReasonCode = 0xA2
)

// connackAllowed is the subset of reason codes CONNACK may carry (§3.2.2.2).
var connackAllowed = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonUnspecifiedError: true, ReasonMalformedPacket: true,
	ReasonProtocolError: true, ReasonImplementationSpecificError: true,
	ReasonUnsupportedProtocolVersion: true, ReasonClientIdentifierNotValid: true,
	ReasonBadUsernameOrPassword: true, ReasonNotAuthorized: true,
	ReasonServerUnavailable: true, ReasonServerBusy: true, ReasonBanned: true,
	ReasonBadAuthenticationMethod: true, ReasonTopicNameInvalid: true,
	ReasonPacketTooLarge: true, ReasonQuotaExceeded: true,
	ReasonPayloadFormatInvalid: true, ReasonRetainNotSupported: true,
	ReasonQoSNotSupported: true, ReasonUseAnotherServer: true,
	ReasonServerMoved: true, ReasonConnectionRateExceeded: true,
}

// IsValidConnack reports whether code is one of the reason codes CONNACK
// is allowed to carry.
func IsValidConnack(code ReasonCode) bool { return connackAllowed[code] }

var pubackAllowed = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonNoMatchingSubscribers: true,
	ReasonUnspecifiedError: true, ReasonImplementationSpecificError: true,
	ReasonNotAuthorized: true, ReasonTopicNameInvalid: true,
	ReasonPacketIdentifierInUse: true, ReasonQuotaExceeded: true,
	ReasonPayloadFormatInvalid: true,
}

// IsValidPuback reports whether code is valid on PUBACK or PUBREC.
func IsValidPuback(code ReasonCode) bool { return pubackAllowed[code] }

var pubrelAllowed = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonPacketIdentifierNotFound: true,
}

// IsValidPubrel reports whether code is valid on PUBREL or PUBCOMP.
func IsValidPubrel(code ReasonCode) bool { return pubrelAllowed[code] }

var subackAllowed = map[ReasonCode]bool{
	ReasonGrantedQoS0: true, ReasonGrantedQoS1: true, ReasonGrantedQoS2: true,
	ReasonUnspecifiedError: true, ReasonImplementationSpecificError: true,
	ReasonNotAuthorized: true, ReasonTopicFilterInvalid: true,
	ReasonPacketIdentifierInUse: true, ReasonQuotaExceeded: true,
	ReasonSharedSubscriptionsNotSupported: true, ReasonSubscriptionIdentifiersNotSupported: true,
	ReasonWildcardSubscriptionsNotSupported: true,
}

// IsValidSuback reports whether code is valid in a SUBACK payload.
func IsValidSuback(code ReasonCode) bool { return subackAllowed[code] }

var unsubackAllowed = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonNoSubscriptionExisted: true,
	ReasonUnspecifiedError: true, ReasonImplementationSpecificError: true,
	ReasonNotAuthorized: true, ReasonTopicFilterInvalid: true,
	ReasonPacketIdentifierInUse: true,
}

// IsValidUnsuback reports whether code is valid in an UNSUBACK payload.
func IsValidUnsuback(code ReasonCode) bool { return unsubackAllowed[code] }

var disconnectAllowed = map[ReasonCode]bool{
	ReasonNormalDisconnection: true, ReasonDisconnectWithWillMessage: true,
	ReasonUnspecifiedError: true, ReasonMalformedPacket: true, ReasonProtocolError: true,
	ReasonImplementationSpecificError: true, ReasonNotAuthorized: true,
	ReasonServerBusy: true, ReasonServerShuttingDown: true,
	ReasonKeepAliveTimeout: true, ReasonSessionTakenOver: true,
	ReasonTopicFilterInvalid: true, ReasonTopicNameInvalid: true,
	ReasonReceiveMaximumExceeded: true, ReasonTopicAliasInvalid: true,
	ReasonPacketTooLarge: true, ReasonMessageRateTooHigh: true,
	ReasonQuotaExceeded: true, ReasonAdministrativeAction: true,
	ReasonPayloadFormatInvalid: true, ReasonRetainNotSupported: true,
	ReasonQoSNotSupported: true, ReasonUseAnotherServer: true,
	ReasonServerMoved: true, ReasonSharedSubscriptionsNotSupported: true,
	ReasonConnectionRateExceeded: true, ReasonMaximumConnectTime: true,
	ReasonSubscriptionIdentifiersNotSupported: true, ReasonWildcardSubscriptionsNotSupported: true,
}

// IsValidDisconnect reports whether code is valid on a DISCONNECT packet.
func IsValidDisconnect(code ReasonCode) bool { return disconnectAllowed[code] }

var authAllowed = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonContinueAuthentication: true, ReasonReAuthenticate: true,
}

// IsValidAuth reports whether code is valid on an AUTH packet.
func IsValidAuth(code ReasonCode) bool { return authAllowed[code] }

// IsError reports whether code denotes a failure (>= 0x80).
func (r ReasonCode) IsError() bool { return r >= 0x80 }
