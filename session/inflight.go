package session

import (
	"github.com/axmq/mqttv5/packet"

	merrors "github.com/axmq/mqttv5/errors"
)

// PublishState tracks where a QoS>0 publication sits in its
// acknowledgement exchange.
type PublishState byte

const (
	// AwaitingPuback marks a client-originated QoS 1 PUBLISH waiting for
	// its PUBACK.
	AwaitingPuback PublishState = iota
	// AwaitingPubrec marks a client-originated QoS 2 PUBLISH waiting for
	// its PUBREC.
	AwaitingPubrec
	// AwaitingPubcomp marks a client-originated QoS 2 flow that has seen
	// PUBREC, sent PUBREL, and is waiting for PUBCOMP.
	AwaitingPubcomp
	// AwaitingPubrel marks a server-originated QoS 2 PUBLISH waiting for
	// the server's PUBREL.
	AwaitingPubrel
)

func (s PublishState) String() string {
	switch s {
	case AwaitingPuback:
		return "awaiting-puback"
	case AwaitingPubrec:
		return "awaiting-pubrec"
	case AwaitingPubcomp:
		return "awaiting-pubcomp"
	case AwaitingPubrel:
		return "awaiting-pubrel"
	default:
		return "unknown"
	}
}

// InFlight is one entry of an in-flight table.
type InFlight struct {
	PacketID uint16
	State    PublishState
	QoS      packet.QoS
}

// inflightTable is a bounded, contiguous in-flight table searched
// linearly. The tables are small (capped by send/receive maximum) and
// entry order carries no meaning, so removal swaps the last entry into
// the hole rather than shifting.
type inflightTable struct {
	entries []InFlight
	cap     int
}

func newInflightTable(capacity int) inflightTable {
	return inflightTable{entries: make([]InFlight, 0, capacity), cap: capacity}
}

func (t *inflightTable) len() int   { return len(t.entries) }
func (t *inflightTable) full() bool { return len(t.entries) >= t.cap }

func (t *inflightTable) add(e InFlight) error {
	if t.full() {
		return merrors.ErrSessionBuffer
	}
	t.entries = append(t.entries, e)
	return nil
}

func (t *inflightTable) index(packetID uint16) int {
	for i := range t.entries {
		if t.entries[i].PacketID == packetID {
			return i
		}
	}
	return -1
}

func (t *inflightTable) get(packetID uint16) (InFlight, bool) {
	if i := t.index(packetID); i >= 0 {
		return t.entries[i], true
	}
	return InFlight{}, false
}

func (t *inflightTable) remove(packetID uint16) (InFlight, bool) {
	i := t.index(packetID)
	if i < 0 {
		return InFlight{}, false
	}
	e := t.entries[i]
	last := len(t.entries) - 1
	t.entries[i] = t.entries[last]
	t.entries = t.entries[:last]
	return e, true
}

func (t *inflightTable) setState(packetID uint16, state PublishState) bool {
	i := t.index(packetID)
	if i < 0 {
		return false
	}
	t.entries[i].State = state
	return true
}

func (t *inflightTable) clear() { t.entries = t.entries[:0] }

// pidList is a bounded list of packet identifiers awaiting a SUBACK or
// UNSUBACK. Same compact representation as the in-flight tables.
type pidList struct {
	ids []uint16
	cap int
}

func newPidList(capacity int) pidList {
	return pidList{ids: make([]uint16, 0, capacity), cap: capacity}
}

func (l *pidList) len() int { return len(l.ids) }

func (l *pidList) add(packetID uint16) error {
	if len(l.ids) >= l.cap {
		return merrors.ErrSessionBuffer
	}
	l.ids = append(l.ids, packetID)
	return nil
}

func (l *pidList) contains(packetID uint16) bool {
	for _, id := range l.ids {
		if id == packetID {
			return true
		}
	}
	return false
}

func (l *pidList) remove(packetID uint16) bool {
	for i, id := range l.ids {
		if id == packetID {
			last := len(l.ids) - 1
			l.ids[i] = l.ids[last]
			l.ids = l.ids[:last]
			return true
		}
	}
	return false
}

func (l *pidList) clear() { l.ids = l.ids[:0] }
