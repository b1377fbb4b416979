// Package errors defines the error taxonomy shared by the codec, the flow
// engine and the public client API. Every sentinel is wrapped with
// cockroachdb/errors so that callers can use errors.Is against the sentinels
// below while still being able to recover a reason code or reason string
// attached deeper in the call stack (e.g. the CONNACK/DISCONNECT
// reason_string property).
package errors

import (
	"github.com/cockroachdb/errors"
)

// Codec-level sentinels.
var (
	ErrMalformedPacket        = errors.New("malformed packet")
	ErrProtocolError          = errors.New("protocol error")
	ErrPacketTooLong          = errors.New("packet exceeds maximum encodable length")
	ErrInsufficientBufferSize = errors.New("insufficient buffer size")
)

// Unrecoverable sentinels. A connection observing one of these
// transitions to Faulted or Terminated.
var (
	ErrNetwork            = errors.New("transport error")
	ErrServer             = errors.New("server sent a structurally invalid packet")
	ErrReceiveBuffer      = errors.New("fixed-size receive slot too small")
	ErrAlloc              = errors.New("buffer provider rejected allocation request")
	ErrAuthPacketReceived = errors.New("AUTH packet is unsupported by this client")
	ErrDisconnect         = errors.New("server-initiated disconnect")
	ErrRecoveryRequired   = errors.New("prior unrecoverable error was not acknowledged by abort")
)

// Recoverable sentinels. These never touch the transport and leave the
// connection state untouched.
var (
	ErrPacketIdentifierNotInFlight     = errors.New("packet identifier not in flight")
	ErrRepublishQoSNotMatching         = errors.New("republish QoS does not match original publication")
	ErrPacketIdentifierAwaitingPubcomp = errors.New("packet identifier awaiting pubcomp cannot be republished")
	ErrPacketMaximumLengthExceeded     = errors.New("outgoing packet body exceeds variable byte integer maximum")
	ErrServerMaximumPacketSizeExceeded = errors.New("outgoing packet exceeds server-advertised maximum packet size")
	ErrInvalidTopicAlias               = errors.New("topic alias out of range")
	ErrSessionBuffer                   = errors.New("in-flight table or pending ack list is full")
	ErrSendQuotaExceeded               = errors.New("send quota exhausted")
	ErrIllegalDisconnectSessionExpiry  = errors.New("disconnect session_expiry_interval violates zero-interval rule from connect")
)

// wrappedReason is the concrete carrier used by WithReasonCode below; it
// keeps the sentinel's identity intact via error wrapping (Unwrap) so
// errors.Is(err, ErrDisconnect) still succeeds after a reason is attached.
type wrappedReason struct {
	error
	reasonCode   uint8
	reasonString string
}

func (w *wrappedReason) Unwrap() error { return w.error }

// WithReasonCode wraps err with an MQTT reason code and optional reason
// string, preserving errors.Is/errors.As against err.
func WithReasonCode(err error, reasonCode uint8, reasonString string) error {
	if err == nil {
		return nil
	}
	return &wrappedReason{error: err, reasonCode: reasonCode, reasonString: reasonString}
}

// ReasonCode recovers the reason code attached by WithReasonCode, walking
// the error chain.
func ReasonCode(err error) (code uint8, reasonString string, ok bool) {
	for err != nil {
		if wr, isWr := err.(*wrappedReason); isWr {
			return wr.reasonCode, wr.reasonString, true
		}
		err = errors.Unwrap(err)
	}
	return 0, "", false
}

// Is reports whether err wraps target, matching on sentinel identity.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target's type.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Mark associates err with reference's identity, so errors.Is matches
// both the original chain and the reference sentinel. Used where an
// underlying failure (a transport error, a codec error) must also carry
// one of the taxonomy sentinels above.
func Mark(err, reference error) error {
	if err == nil {
		return nil
	}
	return &marked{error: errors.Mark(err, reference), reference: reference}
}

// marked lets the standard library's errors.Is see the reference sentinel
// of a Mark, which the cockroachdb mark alone only exposes to its own Is.
type marked struct {
	error
	reference error
}

func (m *marked) Unwrap() error        { return m.error }
func (m *marked) Is(target error) bool { return target == m.reference }

// Wrap annotates err with msg while preserving its identity.
func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

// Wrapf annotates err with a formatted message while preserving its identity.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
