// Package client implements the MQTT 5.0 client: the connection
// lifecycle state machine, the QoS 1 and 2 publication flows, the
// subscribe/unsubscribe bookkeeping, and the event stream surfaced to the
// caller via Poll.
//
// A Client is single-task: it owns its transport exclusively and performs
// no internal locking. Concurrency is achieved by running independent
// client instances. The keep-alive timer is not owned by the client; the
// caller invokes Ping within the negotiated interval.
package client

import (
	"context"

	"github.com/axmq/mqttv5/internal/logger"
	"github.com/axmq/mqttv5/iostream"
	"github.com/axmq/mqttv5/packet"
	"github.com/axmq/mqttv5/session"
	"github.com/axmq/mqttv5/topic"

	merrors "github.com/axmq/mqttv5/errors"
)

type stateKind int

const (
	// stateTerminated has no transport: before the first connect, after a
	// graceful disconnect, and after Abort.
	stateTerminated stateKind = iota
	// stateConnected owns a live transport.
	stateConnected
	// stateFaulted still owns the transport, but only Abort may touch it,
	// to transmit the farewell DISCONNECT and close.
	stateFaulted
)

// connState is the tagged connection state. The transport is reachable
// only through the live arms, so no operation can write to a faulted
// connection without an explicit Abort.
type connState struct {
	kind      stateKind
	conn      *iostream.Conn
	reason    packet.ReasonCode
	hasReason bool
}

// Client drives one MQTT 5.0 connection at a time over transports handed
// to Connect.
type Client struct {
	opts    ConnectOptions
	session *session.Session
	log     logger.Logger

	st     connState
	server ServerConfig
	shared SharedConfig

	// connectedWithZeroExpiry records that the CONNECT carried a session
	// expiry interval of zero, which forbids raising it at DISCONNECT
	// time.
	connectedWithZeroExpiry bool
}

// Option customizes a Client beyond its ConnectOptions.
type Option func(*Client)

// WithLogger directs the client's diagnostics to l.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = logger.OrNop(l) }
}

// WithSession hands the client a previously kept session, typically a
// Clone taken before a reconnect.
func WithSession(s *session.Session) Option {
	return func(c *Client) { c.session = s }
}

// WithSessionConfig bounds the session the client creates for itself.
// Ignored when WithSession supplies one.
func WithSessionConfig(cfg session.Config) Option {
	return func(c *Client) {
		if c.session == nil {
			c.session = session.New(cfg)
		}
	}
}

// New creates a disconnected client. Connect must be called with a
// transport before any other operation.
func New(opts ConnectOptions, options ...Option) *Client {
	c := &Client{
		opts:   opts,
		log:    logger.Nop{},
		server: DefaultServerConfig(),
	}
	for _, o := range options {
		o(c)
	}
	if c.session == nil {
		c.session = session.New(session.Config{})
	}
	return c
}

// Session returns the client's session, which the caller may Clone before
// discarding the client to carry state into a reconnect.
func (c *Client) Session() *session.Session { return c.session }

// ServerConfig returns the server limits received in CONNACK. Before a
// successful Connect it holds the protocol defaults.
func (c *Client) ServerConfig() ServerConfig { return c.server }

// SharedConfig returns the negotiated keep-alive and session expiry.
func (c *Client) SharedConfig() SharedConfig { return c.shared }

// ClientID returns the effective client identifier: the server-assigned
// one when the server chose to assign, otherwise the one from
// ConnectOptions.
func (c *Client) ClientID() string {
	if c.server.AssignedClientID != "" {
		return c.server.AssignedClientID
	}
	return c.opts.ClientID
}

// operational returns nil when the client holds a live connection, and
// the appropriate taxonomy error otherwise. Recoverable errors never pass
// through here; any prior unrecoverable error must be acknowledged by
// Abort before the client is usable again.
func (c *Client) operational() error {
	switch c.st.kind {
	case stateConnected:
		return nil
	case stateFaulted:
		return merrors.ErrRecoveryRequired
	default:
		return merrors.Wrap(merrors.ErrRecoveryRequired, "not connected")
	}
}

// fault transitions the connection into the faulted state, keeping the
// transport for Abort's farewell DISCONNECT.
func (c *Client) fault(reason packet.ReasonCode, hasReason bool) {
	c.st = connState{kind: stateFaulted, conn: c.st.conn, reason: reason, hasReason: hasReason}
}

// terminate drops the transport without touching it.
func (c *Client) terminate() {
	c.st = connState{kind: stateTerminated}
}

// send encodes p and writes it to the live transport. A write failure is
// a network fault: the connection transitions to faulted and the error is
// marked with ErrNetwork.
func (c *Client) send(p packet.Encodable) error {
	if err := c.st.conn.WritePacket(p); err != nil {
		c.fault(0, false)
		return merrors.Mark(err, merrors.ErrNetwork)
	}
	return nil
}

// Connect performs the CONNECT/CONNACK handshake over conn. On success
// the client is connected and conn is owned by it until Disconnect or
// Abort. A fresh transport may be supplied to Connect again after either.
func (c *Client) Connect(ctx context.Context, conn *iostream.Conn) error {
	if c.st.kind == stateFaulted {
		return merrors.ErrRecoveryRequired
	}
	if c.st.kind == stateConnected {
		return merrors.Wrap(merrors.ErrRecoveryRequired, "already connected")
	}

	if c.opts.CleanStart {
		c.session.Clear()
	}

	pkt := &packet.Connect{
		CleanStart: c.opts.CleanStart,
		KeepAlive:  uint16(c.opts.KeepAlive),
		ClientID:   c.opts.ClientID,
		Properties: c.opts.connectProperties(c.session.ReceiveMaximum()),
	}
	if c.opts.HasUsername {
		pkt.Username = c.opts.Username
		pkt.HasUser = true
	}
	if c.opts.HasPassword {
		pkt.Password = c.opts.Password
		pkt.HasPass = true
	}
	if w := c.opts.Will; w != nil {
		pkt.Will = &packet.Will{
			Topic:      w.Topic,
			Payload:    w.Payload,
			QoS:        w.QoS,
			Retain:     w.Retain,
			Properties: w.properties(),
		}
	}

	c.st = connState{kind: stateConnected, conn: conn}
	if err := c.send(pkt); err != nil {
		return err
	}

	raw, err := conn.ReadPacket(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.fault(0, false)
			return err
		}
		c.fault(0, false)
		return merrors.Mark(err, merrors.ErrNetwork)
	}

	ack, ok := raw.(*packet.Connack)
	if !ok {
		c.fault(packet.ReasonProtocolError, true)
		return merrors.Wrap(merrors.ErrServer, "expected CONNACK")
	}

	if ack.ReasonCode.IsError() {
		// The server closes the connection after an erroneous CONNACK;
		// nothing is owed on the wire.
		_ = conn.Close()
		c.terminate()
		reasonString := ""
		if rs, found := ack.Properties.Find(packet.PropReasonString); found {
			reasonString = rs.(packet.ReasonStringProp).Value
		}
		return merrors.WithReasonCode(merrors.ErrDisconnect, byte(ack.ReasonCode), reasonString)
	}

	if !ack.SessionPresent && !c.opts.CleanStart {
		c.log.Warn("server refused to resume session, clearing local state",
			"client_id", c.opts.ClientID)
		c.session.Clear()
	}

	c.server, c.shared = serverConfigFromConnack(ack.Properties, &c.opts)
	c.connectedWithZeroExpiry = c.opts.SessionExpiry == SessionExpiryEndOnDisconnect

	if c.opts.ClientID == "" && c.server.AssignedClientID == "" {
		c.fault(packet.ReasonProtocolError, true)
		return merrors.Wrap(merrors.ErrServer, "server assigned no client identifier")
	}

	return nil
}

// validateTopicReference applies the topic-alias range rule and, when a
// name is on the wire, the topic name validity rules.
func (c *Client) validateTopicReference(ref TopicReference) error {
	if alias, ok := ref.Alias(); ok {
		if alias == 0 || alias > c.server.TopicAliasMaximum {
			return merrors.Wrapf(merrors.ErrInvalidTopicAlias,
				"alias %d outside 1..=%d", alias, c.server.TopicAliasMaximum)
		}
	}
	if ref.Name() == "" {
		// An empty name is only legal as a pure alias reference.
		if _, ok := ref.Alias(); !ok {
			return topic.ValidateName(ref.Name())
		}
		return nil
	}
	return topic.ValidateName(ref.Name())
}

// checkOutgoingSize enforces the protocol's encodable maximum and the
// server's advertised maximum packet size. Both violations are
// recoverable and leave the session untouched.
func (c *Client) checkOutgoingSize(p packet.Encodable) error {
	total := uint32(p.EncodedLen())
	if total > packet.MaxVariableByteInteger+5 {
		return merrors.ErrPacketMaximumLengthExceeded
	}
	if c.server.MaximumPacketSize != 0 && total > c.server.MaximumPacketSize {
		return merrors.ErrServerMaximumPacketSizeExceeded
	}
	return nil
}

// Publish sends payload to the destination named by opts.Topic. For QoS 0
// the returned identifier is zero and nothing is tracked. For QoS 1 and 2
// the publication is recorded in the session before the first byte is
// written, so a mid-send network failure leaves it recoverable via
// Republish on a fresh connection.
func (c *Client) Publish(ctx context.Context, payload []byte, opts PublicationOptions) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := c.operational(); err != nil {
		return 0, err
	}
	if err := c.validateTopicReference(opts.Topic); err != nil {
		return 0, err
	}

	p := &packet.Publish{
		QoS:          opts.QoS,
		Retain:       opts.Retain,
		Topic:        opts.Topic.Name(),
		Properties:   opts.properties(),
		PayloadBytes: payload,
	}

	if opts.QoS == packet.QoS0 {
		if err := c.checkOutgoingSize(p); err != nil {
			return 0, err
		}
		return 0, c.send(p)
	}

	if c.session.InFlightClientPublishes() >= int(c.server.ReceiveMaximum) {
		return 0, merrors.ErrSendQuotaExceeded
	}

	pid := c.session.AllocatePacketID()
	p.PacketID = pid
	if err := c.checkOutgoingSize(p); err != nil {
		return 0, err
	}

	state := session.AwaitingPuback
	if opts.QoS == packet.QoS2 {
		state = session.AwaitingPubrec
	}
	if err := c.session.TrackClientPublish(pid, state, opts.QoS); err != nil {
		return 0, err
	}
	if err := c.send(p); err != nil {
		return pid, err
	}
	return pid, nil
}

// Republish retransmits a publication still in flight from a previous
// connection, with the DUP flag set. Valid only while the entry awaits
// PUBACK or PUBREC; an entry past PUBREC awaits PUBCOMP and is finished
// by Rerelease instead. The session does not retain payloads, so the
// caller supplies the original payload and options again.
func (c *Client) Republish(ctx context.Context, packetID uint16, payload []byte, opts PublicationOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.operational(); err != nil {
		return err
	}
	e, ok := c.session.ClientPublish(packetID)
	if !ok {
		return merrors.ErrPacketIdentifierNotInFlight
	}
	if e.State == session.AwaitingPubcomp {
		return merrors.ErrPacketIdentifierAwaitingPubcomp
	}
	if e.QoS != opts.QoS {
		return merrors.ErrRepublishQoSNotMatching
	}
	if err := c.validateTopicReference(opts.Topic); err != nil {
		return err
	}

	p := &packet.Publish{
		Dup:          true,
		QoS:          opts.QoS,
		Retain:       opts.Retain,
		Topic:        opts.Topic.Name(),
		PacketID:     packetID,
		Properties:   opts.properties(),
		PayloadBytes: payload,
	}
	if err := c.checkOutgoingSize(p); err != nil {
		return err
	}
	return c.send(p)
}

// Rerelease retransmits PUBREL for every QoS 2 publication that had
// already seen its PUBREC before the previous connection went away.
// PUBREL carries no DUP flag on the wire.
func (c *Client) Rerelease(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.operational(); err != nil {
		return err
	}
	for _, e := range c.session.ClientPublishes() {
		if e.State != session.AwaitingPubcomp {
			continue
		}
		if err := c.send(packet.NewPubrel(e.PacketID, packet.ReasonSuccess, packet.PropertyList{})); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe sends a SUBSCRIBE for a single topic filter and returns the
// packet identifier the eventual EventSuback will carry.
func (c *Client) Subscribe(ctx context.Context, filter string, opts SubscriptionOptions) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := c.operational(); err != nil {
		return 0, err
	}
	if err := topic.ValidateFilter(filter); err != nil {
		return 0, err
	}

	pid := c.session.AllocatePacketID()
	var props packet.PropertyList
	if opts.SubscriptionIdentifier != 0 {
		props.Items = append(props.Items, packet.SubscriptionIdentifier{Value: opts.SubscriptionIdentifier})
	}
	p := &packet.Subscribe{
		PacketID:   pid,
		Properties: props,
		Subscriptions: []packet.Subscription{{
			Filter: filter,
			Options: packet.SubscriptionOptions{
				QoS:               opts.QoS,
				NoLocal:           opts.NoLocal,
				RetainAsPublished: opts.RetainAsPublished,
				RetainHandling:    opts.RetainHandling,
			},
		}},
	}
	if err := c.checkOutgoingSize(p); err != nil {
		return 0, err
	}
	if err := c.session.TrackSubscribe(pid); err != nil {
		return 0, err
	}
	if err := c.send(p); err != nil {
		return pid, err
	}
	return pid, nil
}

// Unsubscribe sends an UNSUBSCRIBE for a single topic filter and returns
// the packet identifier the eventual EventUnsuback will carry.
func (c *Client) Unsubscribe(ctx context.Context, filter string) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := c.operational(); err != nil {
		return 0, err
	}
	if err := topic.ValidateFilter(filter); err != nil {
		return 0, err
	}

	pid := c.session.AllocatePacketID()
	p := &packet.Unsubscribe{PacketID: pid, Filters: []string{filter}}
	if err := c.checkOutgoingSize(p); err != nil {
		return 0, err
	}
	if err := c.session.TrackUnsubscribe(pid); err != nil {
		return 0, err
	}
	if err := c.send(p); err != nil {
		return pid, err
	}
	return pid, nil
}

// Ping sends a PINGREQ. The matching EventPingresp arrives via Poll. The
// client does not schedule pings itself; the caller drives this within
// the negotiated keep-alive interval.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.operational(); err != nil {
		return err
	}
	return c.send(packet.Pingreq{})
}

// Disconnect performs an orderly shutdown: it sends DISCONNECT and closes
// the transport. The client may be connected again with a fresh transport
// afterwards.
func (c *Client) Disconnect(ctx context.Context, opts DisconnectOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.operational(); err != nil {
		return err
	}
	if opts.HasSessionExpiry && c.connectedWithZeroExpiry && opts.SessionExpiry != SessionExpiryEndOnDisconnect {
		return merrors.ErrIllegalDisconnectSessionExpiry
	}

	reason := packet.ReasonNormalDisconnection
	if opts.PublishWill {
		reason = packet.ReasonDisconnectWithWillMessage
	}
	var props packet.PropertyList
	if opts.HasSessionExpiry {
		props.Items = append(props.Items, packet.SessionExpiryInterval{Value: uint32(opts.SessionExpiry)})
	}

	sendErr := c.send(&packet.Disconnect{ReasonCode: reason, Properties: props})
	conn := c.st.conn
	c.terminate()
	if conn != nil {
		_ = conn.Close()
	}
	return sendErr
}

// Abort acknowledges an unrecoverable error: it transmits the fault's
// farewell DISCONNECT on a best-effort basis, closes the transport, and
// returns the client to the disconnected state. Calling Abort while
// connected simply closes the transport.
func (c *Client) Abort() error {
	conn := c.st.conn
	if conn == nil {
		c.terminate()
		return nil
	}
	if c.st.kind == stateFaulted && c.st.hasReason {
		_ = conn.WritePacket(&packet.Disconnect{ReasonCode: c.st.reason})
	}
	err := conn.Close()
	c.terminate()
	return err
}

// Poll reads one inbound packet, reconciles it against the session, and
// returns the resulting event. The fixed-header phase of the read honors
// ctx cancellation and may be retried; once the body read has begun the
// packet is consumed to completion or the connection faults.
func (c *Client) Poll(ctx context.Context) (Event, error) {
	if err := c.operational(); err != nil {
		return nil, err
	}

	raw, err := c.st.conn.ReadPacket(ctx)
	if err != nil {
		if ctx.Err() != nil && merrors.Is(err, ctx.Err()) {
			// Cancellation mid-header is resumable; the connection stays
			// live.
			return nil, err
		}
		if merrors.Is(err, merrors.ErrMalformedPacket) || merrors.Is(err, merrors.ErrProtocolError) {
			c.fault(packet.ReasonMalformedPacket, true)
			return nil, merrors.Mark(err, merrors.ErrServer)
		}
		c.fault(0, false)
		return nil, merrors.Mark(err, merrors.ErrNetwork)
	}

	switch p := raw.(type) {
	case *packet.Publish:
		return c.handleServerPublish(p)
	case *packet.Ack:
		switch p.Type() {
		case packet.PUBACK:
			return c.handlePuback(p)
		case packet.PUBREC:
			return c.handlePubrec(p)
		case packet.PUBREL:
			return c.handlePubrel(p)
		default:
			return c.handlePubcomp(p)
		}
	case *packet.Suback:
		return c.handleSuback(p)
	case *packet.Unsuback:
		return c.handleUnsuback(p)
	case packet.Pingresp:
		return EventPingresp{}, nil
	case *packet.Disconnect:
		return nil, c.handleServerDisconnect(p)
	case *packet.Auth:
		// AUTH is decoded for completeness but unsupported: pre-schedule
		// the farewell DISCONNECT and surface the error.
		c.fault(packet.ReasonImplementationSpecificError, true)
		return nil, merrors.ErrAuthPacketReceived
	default:
		c.fault(packet.ReasonProtocolError, true)
		return nil, merrors.Wrapf(merrors.ErrServer, "unexpected %T from server", raw)
	}
}

func (c *Client) handleServerPublish(p *packet.Publish) (Event, error) {
	switch p.QoS {
	case packet.QoS0:
		return EventPublish{Publish: p}, nil
	case packet.QoS1:
		if err := c.send(packet.NewPuback(p.PacketID, packet.ReasonSuccess, packet.PropertyList{})); err != nil {
			return nil, err
		}
		return EventPublish{Publish: p}, nil
	default:
		if c.session.HasServerPublish(p.PacketID) {
			if err := c.send(packet.NewPubrec(p.PacketID, packet.ReasonSuccess, packet.PropertyList{})); err != nil {
				return nil, err
			}
			return EventDuplicate{Publish: p}, nil
		}
		if c.session.InFlightServerPublishes() >= int(c.session.ReceiveMaximum()) {
			c.fault(packet.ReasonReceiveMaximumExceeded, true)
			return nil, merrors.Wrap(merrors.ErrServer, "server exceeded the advertised receive maximum")
		}
		if err := c.session.TrackServerPublish(p.PacketID); err != nil {
			c.fault(packet.ReasonReceiveMaximumExceeded, true)
			return nil, merrors.Mark(err, merrors.ErrServer)
		}
		if err := c.send(packet.NewPubrec(p.PacketID, packet.ReasonSuccess, packet.PropertyList{})); err != nil {
			return nil, err
		}
		return EventPublish{Publish: p}, nil
	}
}

func (c *Client) handlePuback(a *packet.Ack) (Event, error) {
	e, ok := c.session.RemoveClientPublish(a.PacketID)
	if !ok {
		return EventIgnored{}, nil
	}
	if e.State != session.AwaitingPuback {
		// Leave the table exactly as it was before failing.
		_ = c.session.RestoreClientPublish(e)
		c.fault(packet.ReasonProtocolError, true)
		return nil, merrors.Wrapf(merrors.ErrServer, "PUBACK for identifier in state %s", e.State)
	}
	if a.ReasonCode.IsError() {
		return EventPublishRejected{PacketID: a.PacketID, ReasonCode: a.ReasonCode}, nil
	}
	return EventPublishAcknowledged{PacketID: a.PacketID, ReasonCode: a.ReasonCode}, nil
}

func (c *Client) handlePubrec(a *packet.Ack) (Event, error) {
	e, ok := c.session.ClientPublish(a.PacketID)
	if !ok {
		return EventIgnored{}, nil
	}
	if e.State != session.AwaitingPubrec {
		c.fault(packet.ReasonProtocolError, true)
		return nil, merrors.Wrapf(merrors.ErrServer, "PUBREC for identifier in state %s", e.State)
	}
	if a.ReasonCode.IsError() {
		_, _ = c.session.RemoveClientPublish(a.PacketID)
		return EventPublishRejected{PacketID: a.PacketID, ReasonCode: a.ReasonCode}, nil
	}
	c.session.TransitionClientPublish(a.PacketID, session.AwaitingPubcomp)
	if err := c.send(packet.NewPubrel(a.PacketID, packet.ReasonSuccess, packet.PropertyList{})); err != nil {
		return nil, err
	}
	return EventPublishReceived{PacketID: a.PacketID, ReasonCode: a.ReasonCode}, nil
}

func (c *Client) handlePubcomp(a *packet.Ack) (Event, error) {
	e, ok := c.session.RemoveClientPublish(a.PacketID)
	if !ok {
		return EventIgnored{}, nil
	}
	if e.State != session.AwaitingPubcomp {
		_ = c.session.RestoreClientPublish(e)
		c.fault(packet.ReasonProtocolError, true)
		return nil, merrors.Wrapf(merrors.ErrServer, "PUBCOMP for identifier in state %s", e.State)
	}
	return EventPublishComplete{PacketID: a.PacketID, ReasonCode: a.ReasonCode}, nil
}

func (c *Client) handlePubrel(a *packet.Ack) (Event, error) {
	if !c.session.RemoveServerPublish(a.PacketID) {
		if err := c.send(packet.NewPubcomp(a.PacketID, packet.ReasonPacketIdentifierNotFound, packet.PropertyList{})); err != nil {
			return nil, err
		}
		return EventIgnored{}, nil
	}
	if err := c.send(packet.NewPubcomp(a.PacketID, packet.ReasonSuccess, packet.PropertyList{})); err != nil {
		return nil, err
	}
	return EventPublishReleased{PacketID: a.PacketID, ReasonCode: a.ReasonCode}, nil
}

func (c *Client) handleSuback(s *packet.Suback) (Event, error) {
	if !c.session.AckSubscribe(s.PacketID) {
		return EventIgnored{}, nil
	}
	// The client sends exactly one filter per SUBSCRIBE.
	if len(s.ReasonCodes) != 1 {
		c.fault(packet.ReasonProtocolError, true)
		return nil, merrors.Wrapf(merrors.ErrServer, "SUBACK carries %d reason codes for 1 filter", len(s.ReasonCodes))
	}
	return EventSuback{PacketID: s.PacketID, ReasonCode: s.ReasonCodes[0]}, nil
}

func (c *Client) handleUnsuback(u *packet.Unsuback) (Event, error) {
	if !c.session.AckUnsubscribe(u.PacketID) {
		return EventIgnored{}, nil
	}
	if len(u.ReasonCodes) != 1 {
		c.fault(packet.ReasonProtocolError, true)
		return nil, merrors.Wrapf(merrors.ErrServer, "UNSUBACK carries %d reason codes for 1 filter", len(u.ReasonCodes))
	}
	return EventUnsuback{PacketID: u.PacketID, ReasonCode: u.ReasonCodes[0]}, nil
}

func (c *Client) handleServerDisconnect(d *packet.Disconnect) error {
	conn := c.st.conn
	c.terminate()
	if conn != nil {
		_ = conn.Close()
	}
	reasonString := ""
	if rs, found := d.Properties.Find(packet.PropReasonString); found {
		reasonString = rs.(packet.ReasonStringProp).Value
	}
	return merrors.WithReasonCode(merrors.ErrDisconnect, byte(d.ReasonCode), reasonString)
}
