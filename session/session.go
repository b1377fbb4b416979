// Package session holds the per-client-identifier state the flow engine
// operates on: the client-publish and server-publish in-flight tables, the
// pending subscribe/unsubscribe lists, and the packet identifier
// allocator. The session may outlive a single connection; the client
// clears it on a clean start or when the server refuses to resume.
//
// A Session is not safe for concurrent use. The client owns it and drives
// it from one task at a time; callers that want to keep a copy across a
// reconnect use Clone before handing it back.
package session

import (
	"github.com/axmq/mqttv5/packet"

	merrors "github.com/axmq/mqttv5/errors"
)

// Config bounds the session's in-flight state.
type Config struct {
	// SendMaximum caps concurrent client-originated QoS>0 publications.
	SendMaximum uint16
	// ReceiveMaximum caps concurrent server-originated QoS 2 publications
	// and is advertised to the server in CONNECT.
	ReceiveMaximum uint16
	// MaxPendingSubscribes caps SUBSCRIBE packets awaiting SUBACK.
	MaxPendingSubscribes uint16
	// MaxPendingUnsubscribes caps UNSUBSCRIBE packets awaiting UNSUBACK.
	MaxPendingUnsubscribes uint16
}

// DefaultConfig returns the session bounds used when the caller does not
// supply its own.
func DefaultConfig() Config {
	return Config{
		SendMaximum:            64,
		ReceiveMaximum:         64,
		MaxPendingSubscribes:   16,
		MaxPendingUnsubscribes: 16,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SendMaximum == 0 {
		c.SendMaximum = d.SendMaximum
	}
	if c.ReceiveMaximum == 0 {
		c.ReceiveMaximum = d.ReceiveMaximum
	}
	if c.MaxPendingSubscribes == 0 {
		c.MaxPendingSubscribes = d.MaxPendingSubscribes
	}
	if c.MaxPendingUnsubscribes == 0 {
		c.MaxPendingUnsubscribes = d.MaxPendingUnsubscribes
	}
	return c
}

// Session is the flow engine's bookkeeping for one client identifier.
type Session struct {
	cfg Config

	clientPublish   inflightTable // QoS 1 and 2 client-originated flows
	serverPublish   inflightTable // QoS 2 server-originated, AwaitingPubrel only
	pendingSuback   pidList
	pendingUnsuback pidList

	nextPacketID uint16
}

// New creates an empty session bounded by cfg. Zero-valued cfg fields take
// their defaults.
func New(cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:             cfg,
		clientPublish:   newInflightTable(int(cfg.SendMaximum)),
		serverPublish:   newInflightTable(int(cfg.ReceiveMaximum)),
		pendingSuback:   newPidList(int(cfg.MaxPendingSubscribes)),
		pendingUnsuback: newPidList(int(cfg.MaxPendingUnsubscribes)),
		nextPacketID:    1,
	}
}

// Config returns the bounds the session was created with.
func (s *Session) Config() Config { return s.cfg }

// ReceiveMaximum returns the cap on concurrent server-originated QoS 2
// publications, as advertised in CONNECT.
func (s *Session) ReceiveMaximum() uint16 { return s.cfg.ReceiveMaximum }

// inUse reports whether packetID is allocated anywhere: either in-flight
// table or either pending ack list. Packet identifier uniqueness spans
// all four.
func (s *Session) inUse(packetID uint16) bool {
	if _, ok := s.clientPublish.get(packetID); ok {
		return true
	}
	if _, ok := s.serverPublish.get(packetID); ok {
		return true
	}
	return s.pendingSuback.contains(packetID) || s.pendingUnsuback.contains(packetID)
}

// AllocatePacketID returns the next free packet identifier. The counter
// rolls over from 65535 to 1; zero is reserved by the protocol and never
// produced.
func (s *Session) AllocatePacketID() uint16 {
	for {
		id := s.nextPacketID
		s.nextPacketID++
		if s.nextPacketID == 0 {
			s.nextPacketID = 1
		}
		if !s.inUse(id) {
			return id
		}
	}
}

// InFlightClientPublishes returns the number of client-originated QoS>0
// publications currently awaiting acknowledgement, counted against the
// server's receive maximum.
func (s *Session) InFlightClientPublishes() int { return s.clientPublish.len() }

// InFlightServerPublishes returns the number of server-originated QoS 2
// publications currently awaiting PUBREL.
func (s *Session) InFlightServerPublishes() int { return s.serverPublish.len() }

// TrackClientPublish records a client-originated publication before it is
// transmitted, so a mid-send failure leaves the packet recoverable. state
// must be AwaitingPuback (QoS 1) or AwaitingPubrec (QoS 2).
func (s *Session) TrackClientPublish(packetID uint16, state PublishState, qos packet.QoS) error {
	return s.clientPublish.add(InFlight{PacketID: packetID, State: state, QoS: qos})
}

// ClientPublish looks up a client-originated in-flight entry.
func (s *Session) ClientPublish(packetID uint16) (InFlight, bool) {
	return s.clientPublish.get(packetID)
}

// ClientPublishes returns a copy of the client-publish table, used to
// drive rerelease after a reconnect.
func (s *Session) ClientPublishes() []InFlight {
	out := make([]InFlight, len(s.clientPublish.entries))
	copy(out, s.clientPublish.entries)
	return out
}

// RemoveClientPublish frees the entry for packetID, returning it.
func (s *Session) RemoveClientPublish(packetID uint16) (InFlight, bool) {
	return s.clientPublish.remove(packetID)
}

// RestoreClientPublish re-inserts an entry previously removed, used when
// an acknowledgement turns out to be invalid for the entry's state and
// the table must be left as it was.
func (s *Session) RestoreClientPublish(e InFlight) error {
	return s.clientPublish.add(e)
}

// TransitionClientPublish moves packetID to state, reporting whether the
// entry exists.
func (s *Session) TransitionClientPublish(packetID uint16, state PublishState) bool {
	return s.clientPublish.setState(packetID, state)
}

// TrackServerPublish records a server-originated QoS 2 publication
// awaiting PUBREL. It does not check for duplicates: the caller detects a
// second arrival of the same identifier with HasServerPublish first. When
// the table is full it returns ErrSessionBuffer, which the caller treats
// as a receive-maximum violation.
func (s *Session) TrackServerPublish(packetID uint16) error {
	if s.serverPublish.full() {
		return merrors.ErrSessionBuffer
	}
	return s.serverPublish.add(InFlight{PacketID: packetID, State: AwaitingPubrel, QoS: packet.QoS2})
}

// HasServerPublish reports whether packetID is awaiting PUBREL.
func (s *Session) HasServerPublish(packetID uint16) bool {
	_, ok := s.serverPublish.get(packetID)
	return ok
}

// RemoveServerPublish frees the server-publish entry for packetID.
func (s *Session) RemoveServerPublish(packetID uint16) bool {
	_, ok := s.serverPublish.remove(packetID)
	return ok
}

// TrackSubscribe records a sent SUBSCRIBE awaiting SUBACK.
func (s *Session) TrackSubscribe(packetID uint16) error { return s.pendingSuback.add(packetID) }

// AckSubscribe removes packetID from the pending SUBACK list, reporting
// whether it was there.
func (s *Session) AckSubscribe(packetID uint16) bool { return s.pendingSuback.remove(packetID) }

// TrackUnsubscribe records a sent UNSUBSCRIBE awaiting UNSUBACK.
func (s *Session) TrackUnsubscribe(packetID uint16) error { return s.pendingUnsuback.add(packetID) }

// AckUnsubscribe removes packetID from the pending UNSUBACK list,
// reporting whether it was there.
func (s *Session) AckUnsubscribe(packetID uint16) bool { return s.pendingUnsuback.remove(packetID) }

// PendingSubscribes returns the number of SUBSCRIBE packets awaiting
// SUBACK.
func (s *Session) PendingSubscribes() int { return s.pendingSuback.len() }

// PendingUnsubscribes returns the number of UNSUBSCRIBE packets awaiting
// UNSUBACK.
func (s *Session) PendingUnsubscribes() int { return s.pendingUnsuback.len() }

// Clear discards all in-flight state and resets the packet identifier
// counter. Called on a clean start and when the server refuses to resume
// a session.
func (s *Session) Clear() {
	s.clientPublish.clear()
	s.serverPublish.clear()
	s.pendingSuback.clear()
	s.pendingUnsuback.clear()
	s.nextPacketID = 1
}

// Clone returns an independent copy of the session, for callers that keep
// session state across a reconnect while the original is still attached
// to a closing client.
func (s *Session) Clone() *Session {
	c := New(s.cfg)
	c.clientPublish.entries = append(c.clientPublish.entries, s.clientPublish.entries...)
	c.serverPublish.entries = append(c.serverPublish.entries, s.serverPublish.entries...)
	c.pendingSuback.ids = append(c.pendingSuback.ids, s.pendingSuback.ids...)
	c.pendingUnsuback.ids = append(c.pendingUnsuback.ids, s.pendingUnsuback.ids...)
	c.nextPacketID = s.nextPacketID
	return c
}
