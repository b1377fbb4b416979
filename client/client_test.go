package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axmq/mqttv5/iostream"
	"github.com/axmq/mqttv5/packet"
	"github.com/axmq/mqttv5/session"

	merrors "github.com/axmq/mqttv5/errors"
)

// scriptConn is an in-memory net.Conn: reads are served from a
// pre-scripted inbound buffer and writes are captured for inspection.
type scriptConn struct {
	inbound  *bytes.Buffer
	outbound bytes.Buffer
	closed   bool
}

func newScriptConn(inbound []byte) *scriptConn {
	return &scriptConn{inbound: bytes.NewBuffer(inbound)}
}

func (c *scriptConn) Read(b []byte) (int, error) {
	if c.closed {
		return 0, io.EOF
	}
	return c.inbound.Read(b)
}

func (c *scriptConn) Write(b []byte) (int, error) {
	if c.closed {
		return 0, net.ErrClosed
	}
	return c.outbound.Write(b)
}

func (c *scriptConn) Close() error                     { c.closed = true; return nil }
func (c *scriptConn) LocalAddr() net.Addr              { return &net.TCPAddr{} }
func (c *scriptConn) RemoteAddr() net.Addr             { return &net.TCPAddr{} }
func (c *scriptConn) SetDeadline(time.Time) error      { return nil }
func (c *scriptConn) SetReadDeadline(time.Time) error  { return nil }
func (c *scriptConn) SetWriteDeadline(time.Time) error { return nil }

func encodePacket(t *testing.T, p packet.Encodable) []byte {
	t.Helper()
	buf := make([]byte, p.EncodedLen())
	n, err := p.Encode(buf)
	require.NoError(t, err)
	return buf[:n]
}

func script(t *testing.T, pkts ...packet.Encodable) []byte {
	t.Helper()
	var in bytes.Buffer
	for _, p := range pkts {
		in.Write(encodePacket(t, p))
	}
	return in.Bytes()
}

func wrapConn(sc *scriptConn) *iostream.Conn {
	return iostream.NewConn(iostream.NewTransport(sc, iostream.TransportConfig{}), iostream.ConnConfig{})
}

func successConnack() *packet.Connack {
	return &packet.Connack{SessionPresent: true, ReasonCode: packet.ReasonSuccess}
}

// connect builds a client with opts, scripts the server's packets
// (CONNACK first), and completes the handshake.
func connect(t *testing.T, opts ConnectOptions, serverPkts ...packet.Encodable) (*Client, *scriptConn) {
	t.Helper()
	sc := newScriptConn(script(t, serverPkts...))
	c := New(opts)
	require.NoError(t, c.Connect(context.Background(), wrapConn(sc)))
	return c, sc
}

// sentPackets re-decodes everything the client wrote, skipping the
// leading CONNECT.
func sentPackets(t *testing.T, sc *scriptConn) []any {
	t.Helper()
	replay := newScriptConn(append([]byte(nil), sc.outbound.Bytes()...))
	conn := wrapConn(replay)
	var pkts []any
	for {
		p, err := conn.ReadPacket(context.Background())
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		pkts = append(pkts, p)
	}
	require.NotEmpty(t, pkts)
	_, isConnect := pkts[0].(*packet.Connect)
	require.True(t, isConnect, "first outbound packet must be CONNECT")
	return pkts[1:]
}

func TestConnectHandshake(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1", KeepAlive: 30, SessionExpiry: 120},
		&packet.Connack{SessionPresent: true, ReasonCode: packet.ReasonSuccess, Properties: packet.PropertyList{Items: []packet.Property{
			packet.ReceiveMaximum{Value: 10},
			packet.TopicAliasMaximum{Value: 5},
			packet.ServerKeepAlive{Value: 15},
			packet.MaximumQoS{Value: 1},
		}}})

	server := c.ServerConfig()
	assert.Equal(t, uint16(10), server.ReceiveMaximum)
	assert.Equal(t, uint16(5), server.TopicAliasMaximum)
	assert.Equal(t, packet.QoS1, server.MaximumQoS)

	shared := c.SharedConfig()
	assert.Equal(t, uint16(15), shared.KeepAlive, "server keep-alive overrides the requested value")
	assert.Equal(t, uint32(120), shared.SessionExpiryInterval)
	assert.Equal(t, "c1", c.ClientID())

	pkts := sentPackets(t, sc)
	assert.Empty(t, pkts)
}

func TestConnectRefused(t *testing.T) {
	sc := newScriptConn(script(t, &packet.Connack{
		ReasonCode: packet.ReasonNotAuthorized,
		Properties: packet.PropertyList{Items: []packet.Property{packet.ReasonStringProp{Value: "bad credentials"}}},
	}))
	c := New(ConnectOptions{ClientID: "c1", HasUsername: true, Username: "xyz"})

	err := c.Connect(context.Background(), wrapConn(sc))
	require.ErrorIs(t, err, merrors.ErrDisconnect)

	code, reasonString, ok := merrors.ReasonCode(err)
	require.True(t, ok)
	assert.Equal(t, byte(packet.ReasonNotAuthorized), code)
	assert.Equal(t, "bad credentials", reasonString)
	assert.True(t, sc.closed)
}

func TestConnectClearsSessionWhenServerRefusesResume(t *testing.T) {
	sess := session.New(session.Config{})
	require.NoError(t, sess.TrackClientPublish(7, session.AwaitingPuback, packet.QoS1))

	sc := newScriptConn(script(t, &packet.Connack{SessionPresent: false, ReasonCode: packet.ReasonSuccess}))
	c := New(ConnectOptions{ClientID: "c1", CleanStart: false}, WithSession(sess))
	require.NoError(t, c.Connect(context.Background(), wrapConn(sc)))

	assert.Equal(t, 0, sess.InFlightClientPublishes())
}

func TestConnectMissingAssignedClientID(t *testing.T) {
	sc := newScriptConn(script(t, successConnack()))
	c := New(ConnectOptions{})

	err := c.Connect(context.Background(), wrapConn(sc))
	require.ErrorIs(t, err, merrors.ErrServer)

	_, opErr := c.Publish(context.Background(), nil, PublicationOptions{Topic: TopicName("t")})
	assert.ErrorIs(t, opErr, merrors.ErrRecoveryRequired)

	require.NoError(t, c.Abort())
	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 1)
	d, ok := pkts[0].(*packet.Disconnect)
	require.True(t, ok)
	assert.Equal(t, packet.ReasonProtocolError, d.ReasonCode)
}

func TestConnectAdoptsAssignedClientID(t *testing.T) {
	c, _ := connect(t, ConnectOptions{},
		&packet.Connack{SessionPresent: false, ReasonCode: packet.ReasonSuccess, Properties: packet.PropertyList{Items: []packet.Property{
			packet.AssignedClientIdentifier{Value: "srv-42"},
		}}})
	assert.Equal(t, "srv-42", c.ClientID())
}

func TestPublishQoS0(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack())

	pid, err := c.Publish(context.Background(), []byte("testMessage"), PublicationOptions{Topic: TopicName("test/topic")})
	require.NoError(t, err)
	assert.Equal(t, uint16(0), pid)
	assert.Equal(t, 0, c.Session().InFlightClientPublishes())

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 1)
	p := pkts[0].(*packet.Publish)
	assert.Equal(t, "test/topic", p.Topic)
	assert.Equal(t, []byte("testMessage"), p.Payload.View())
	assert.False(t, p.Retain)
	assert.False(t, p.Dup)
}

func TestPublishQoS1Flow(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		packet.NewPuback(1, packet.ReasonSuccess, packet.PropertyList{}))

	pid, err := c.Publish(context.Background(), []byte("hello"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS1})
	require.NoError(t, err)
	assert.Equal(t, uint16(1), pid)

	e, ok := c.Session().ClientPublish(pid)
	require.True(t, ok)
	assert.Equal(t, session.AwaitingPuback, e.State)

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventPublishAcknowledged{PacketID: pid, ReasonCode: packet.ReasonSuccess}, ev)
	assert.Equal(t, 0, c.Session().InFlightClientPublishes())
}

func TestPublishQoS1Rejected(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		packet.NewPuback(1, packet.ReasonNotAuthorized, packet.PropertyList{}))

	pid, err := c.Publish(context.Background(), []byte("hello"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS1})
	require.NoError(t, err)

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventPublishRejected{PacketID: pid, ReasonCode: packet.ReasonNotAuthorized}, ev)
	assert.Equal(t, 0, c.Session().InFlightClientPublishes())
}

func TestPubackUnknownIdentifierIgnored(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		packet.NewPuback(99, packet.ReasonSuccess, packet.PropertyList{}))

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventIgnored{}, ev)
}

func TestPubackWrongStateFaults(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		packet.NewPubrec(1, packet.ReasonSuccess, packet.PropertyList{}),
		packet.NewPuback(1, packet.ReasonSuccess, packet.PropertyList{}))

	pid, err := c.Publish(context.Background(), []byte("x"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS2})
	require.NoError(t, err)

	_, err = c.Poll(context.Background()) // PUBREC: entry moves to AwaitingPubcomp
	require.NoError(t, err)

	_, err = c.Poll(context.Background()) // PUBACK for a QoS 2 flow
	require.ErrorIs(t, err, merrors.ErrServer)

	// The entry is back in its original state for a later reconnect.
	e, ok := c.Session().ClientPublish(pid)
	require.True(t, ok)
	assert.Equal(t, session.AwaitingPubcomp, e.State)

	_, err = c.Poll(context.Background())
	assert.ErrorIs(t, err, merrors.ErrRecoveryRequired)
}

func TestPublishQoS2Flow(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		packet.NewPubrec(1, packet.ReasonSuccess, packet.PropertyList{}),
		packet.NewPubcomp(1, packet.ReasonSuccess, packet.PropertyList{}))

	pid, err := c.Publish(context.Background(), []byte("01001000 01101001"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS2})
	require.NoError(t, err)

	e, _ := c.Session().ClientPublish(pid)
	assert.Equal(t, session.AwaitingPubrec, e.State)

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventPublishReceived{PacketID: pid, ReasonCode: packet.ReasonSuccess}, ev)

	e, _ = c.Session().ClientPublish(pid)
	assert.Equal(t, session.AwaitingPubcomp, e.State)

	ev, err = c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventPublishComplete{PacketID: pid, ReasonCode: packet.ReasonSuccess}, ev)
	assert.Equal(t, 0, c.Session().InFlightClientPublishes())

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 2)
	_, isPublish := pkts[0].(*packet.Publish)
	assert.True(t, isPublish)
	rel := pkts[1].(*packet.Ack)
	assert.Equal(t, packet.PUBREL, rel.Type())
	assert.Equal(t, pid, rel.PacketID)
}

func TestPublishQoS2RejectedAtPubrec(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		packet.NewPubrec(1, packet.ReasonQuotaExceeded, packet.PropertyList{}))

	pid, err := c.Publish(context.Background(), []byte("x"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS2})
	require.NoError(t, err)

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventPublishRejected{PacketID: pid, ReasonCode: packet.ReasonQuotaExceeded}, ev)
	assert.Equal(t, 0, c.Session().InFlightClientPublishes())
}

func TestServerPublishQoS2(t *testing.T) {
	inbound := &packet.Publish{QoS: packet.QoS2, Topic: "s/t", PacketID: 9, PayloadBytes: []byte("m")}
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		inbound,
		inbound, // duplicate delivery
		packet.NewPubrel(9, packet.ReasonSuccess, packet.PropertyList{}),
		packet.NewPubrel(50, packet.ReasonSuccess, packet.PropertyList{}))

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	pub, ok := ev.(EventPublish)
	require.True(t, ok)
	assert.Equal(t, "s/t", pub.Publish.Topic)
	assert.Equal(t, 1, c.Session().InFlightServerPublishes())

	ev, err = c.Poll(context.Background())
	require.NoError(t, err)
	_, ok = ev.(EventDuplicate)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Session().InFlightServerPublishes())

	ev, err = c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventPublishReleased{PacketID: 9, ReasonCode: packet.ReasonSuccess}, ev)
	assert.Equal(t, 0, c.Session().InFlightServerPublishes())

	ev, err = c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventIgnored{}, ev)

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 4)
	for i, want := range []struct {
		t  packet.Type
		rc packet.ReasonCode
	}{
		{packet.PUBREC, packet.ReasonSuccess},
		{packet.PUBREC, packet.ReasonSuccess},
		{packet.PUBCOMP, packet.ReasonSuccess},
		{packet.PUBCOMP, packet.ReasonPacketIdentifierNotFound},
	} {
		a := pkts[i].(*packet.Ack)
		assert.Equal(t, want.t, a.Type(), "packet %d", i)
		assert.Equal(t, want.rc, a.ReasonCode, "packet %d", i)
	}
}

func TestServerPublishQoS1RepliesPuback(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		&packet.Publish{QoS: packet.QoS1, Topic: "s/t", PacketID: 4, PayloadBytes: []byte("m")})

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	_, ok := ev.(EventPublish)
	assert.True(t, ok)

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 1)
	a := pkts[0].(*packet.Ack)
	assert.Equal(t, packet.PUBACK, a.Type())
	assert.Equal(t, uint16(4), a.PacketID)
}

func TestReceiveMaximumExceededFaults(t *testing.T) {
	sess := session.New(session.Config{ReceiveMaximum: 1})
	sc := newScriptConn(script(t, successConnack(),
		&packet.Publish{QoS: packet.QoS2, Topic: "a", PacketID: 1, PayloadBytes: []byte("x")},
		&packet.Publish{QoS: packet.QoS2, Topic: "a", PacketID: 2, PayloadBytes: []byte("x")}))
	c := New(ConnectOptions{ClientID: "c1"}, WithSession(sess))
	require.NoError(t, c.Connect(context.Background(), wrapConn(sc)))

	_, err := c.Poll(context.Background())
	require.NoError(t, err)

	_, err = c.Poll(context.Background())
	require.ErrorIs(t, err, merrors.ErrServer)

	require.NoError(t, c.Abort())
	pkts := sentPackets(t, sc)
	d, ok := pkts[len(pkts)-1].(*packet.Disconnect)
	require.True(t, ok)
	assert.Equal(t, packet.ReasonReceiveMaximumExceeded, d.ReasonCode)
}

func TestSubscribeFlow(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		&packet.Suback{PacketID: 1, ReasonCodes: []packet.ReasonCode{packet.ReasonGrantedQoS1}})

	pid, err := c.Subscribe(context.Background(), "test/topic", SubscriptionOptions{QoS: packet.QoS1, SubscriptionIdentifier: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Session().PendingSubscribes())

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventSuback{PacketID: pid, ReasonCode: packet.ReasonGrantedQoS1}, ev)
	assert.Equal(t, 0, c.Session().PendingSubscribes())

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 1)
	sub := pkts[0].(*packet.Subscribe)
	require.Len(t, sub.Subscriptions, 1)
	assert.Equal(t, "test/topic", sub.Subscriptions[0].Filter)
	assert.Equal(t, packet.QoS1, sub.Subscriptions[0].Options.QoS)
	id, found := sub.Properties.Find(packet.PropSubscriptionIdentifier)
	require.True(t, found)
	assert.Equal(t, uint32(3), id.(packet.SubscriptionIdentifier).Value)
}

func TestSubackCountMismatchFaults(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		&packet.Suback{PacketID: 1, ReasonCodes: []packet.ReasonCode{packet.ReasonGrantedQoS0, packet.ReasonGrantedQoS1}})

	_, err := c.Subscribe(context.Background(), "a/b", SubscriptionOptions{})
	require.NoError(t, err)

	_, err = c.Poll(context.Background())
	assert.ErrorIs(t, err, merrors.ErrServer)
}

func TestUnsubscribeFlow(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		&packet.Unsuback{PacketID: 1, ReasonCodes: []packet.ReasonCode{packet.ReasonSuccess}})

	pid, err := c.Unsubscribe(context.Background(), "unsub/topic2")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Session().PendingUnsubscribes())

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventUnsuback{PacketID: pid, ReasonCode: packet.ReasonSuccess}, ev)
	assert.Equal(t, 0, c.Session().PendingUnsubscribes())
}

func TestPingPingresp(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(), packet.Pingresp{})

	require.NoError(t, c.Ping(context.Background()))

	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventPingresp{}, ev)

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 1)
	_, isPingreq := pkts[0].(packet.Pingreq)
	assert.True(t, isPingreq)
}

func TestDisconnect(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1", SessionExpiry: 60}, successConnack())

	require.NoError(t, c.Disconnect(context.Background(), DisconnectOptions{PublishWill: true}))
	assert.True(t, sc.closed)

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 1)
	d := pkts[0].(*packet.Disconnect)
	assert.Equal(t, packet.ReasonDisconnectWithWillMessage, d.ReasonCode)

	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, merrors.ErrRecoveryRequired)
}

func TestDisconnectIllegalSessionExpiry(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1", SessionExpiry: SessionExpiryEndOnDisconnect}, successConnack())

	err := c.Disconnect(context.Background(), DisconnectOptions{HasSessionExpiry: true, SessionExpiry: 30})
	require.ErrorIs(t, err, merrors.ErrIllegalDisconnectSessionExpiry)

	// Recoverable: the connection is untouched.
	assert.NoError(t, c.Ping(context.Background()))
}

func TestTopicAliasValidation(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"},
		&packet.Connack{SessionPresent: true, ReasonCode: packet.ReasonSuccess, Properties: packet.PropertyList{Items: []packet.Property{
			packet.TopicAliasMaximum{Value: 5},
		}}})

	_, err := c.Publish(context.Background(), nil, PublicationOptions{Topic: TopicAlias(0)})
	assert.ErrorIs(t, err, merrors.ErrInvalidTopicAlias)

	_, err = c.Publish(context.Background(), nil, PublicationOptions{Topic: TopicMapping("t", 5)})
	assert.NoError(t, err, "alias equal to the maximum is accepted")

	_, err = c.Publish(context.Background(), nil, PublicationOptions{Topic: TopicAlias(6)})
	assert.ErrorIs(t, err, merrors.ErrInvalidTopicAlias)
}

func TestTopicAliasOnWire(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"},
		&packet.Connack{SessionPresent: true, ReasonCode: packet.ReasonSuccess, Properties: packet.PropertyList{Items: []packet.Property{
			packet.TopicAliasMaximum{Value: 5},
		}}})

	_, err := c.Publish(context.Background(), []byte("m"), PublicationOptions{Topic: TopicMapping("sensors/a", 2)})
	require.NoError(t, err)
	_, err = c.Publish(context.Background(), []byte("m"), PublicationOptions{Topic: TopicAlias(2)})
	require.NoError(t, err)

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 2)

	mapping := pkts[0].(*packet.Publish)
	assert.Equal(t, "sensors/a", mapping.Topic)
	alias, hasAlias := mapping.TopicAliasOf()
	require.True(t, hasAlias)
	assert.Equal(t, uint16(2), alias)

	ref := pkts[1].(*packet.Publish)
	assert.Equal(t, "", ref.Topic)
	alias, hasAlias = ref.TopicAliasOf()
	require.True(t, hasAlias)
	assert.Equal(t, uint16(2), alias)
}

func TestSendQuota(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"},
		&packet.Connack{SessionPresent: true, ReasonCode: packet.ReasonSuccess, Properties: packet.PropertyList{Items: []packet.Property{
			packet.ReceiveMaximum{Value: 1},
		}}})

	_, err := c.Publish(context.Background(), []byte("a"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS1})
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), []byte("b"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS1})
	assert.ErrorIs(t, err, merrors.ErrSendQuotaExceeded)
}

func TestServerMaximumPacketSizeBoundary(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"},
		&packet.Connack{SessionPresent: true, ReasonCode: packet.ReasonSuccess, Properties: packet.PropertyList{Items: []packet.Property{
			packet.MaximumPacketSize{Value: 16},
		}}})

	// Topic "t" and an empty property section give a 6-byte envelope; a
	// 10-byte payload lands exactly on the 16-byte limit.
	_, err := c.Publish(context.Background(), bytes.Repeat([]byte("x"), 10), PublicationOptions{Topic: TopicName("t")})
	assert.NoError(t, err)

	_, err = c.Publish(context.Background(), bytes.Repeat([]byte("x"), 11), PublicationOptions{Topic: TopicName("t")})
	assert.ErrorIs(t, err, merrors.ErrServerMaximumPacketSizeExceeded)
}

func TestAuthPacketFaults(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		&packet.Auth{ReasonCode: packet.ReasonContinueAuthentication, Properties: packet.PropertyList{Items: []packet.Property{
			packet.AuthenticationMethod{Value: "SCRAM-SHA-1"},
		}}})

	_, err := c.Poll(context.Background())
	require.ErrorIs(t, err, merrors.ErrAuthPacketReceived)

	require.NoError(t, c.Abort())
	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 1)
	d := pkts[0].(*packet.Disconnect)
	assert.Equal(t, packet.ReasonImplementationSpecificError, d.ReasonCode)
}

func TestServerDisconnect(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		&packet.Disconnect{ReasonCode: packet.ReasonServerShuttingDown, Properties: packet.PropertyList{Items: []packet.Property{
			packet.ReasonStringProp{Value: "maintenance"},
		}}})

	_, err := c.Poll(context.Background())
	require.ErrorIs(t, err, merrors.ErrDisconnect)

	code, reasonString, ok := merrors.ReasonCode(err)
	require.True(t, ok)
	assert.Equal(t, byte(packet.ReasonServerShuttingDown), code)
	assert.Equal(t, "maintenance", reasonString)
	assert.True(t, sc.closed)
}

func TestRepublishMisuse(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		packet.NewPubrec(2, packet.ReasonSuccess, packet.PropertyList{}))

	err := c.Republish(context.Background(), 42, nil, PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS1})
	assert.ErrorIs(t, err, merrors.ErrPacketIdentifierNotInFlight)

	pid1, err := c.Publish(context.Background(), []byte("a"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS1})
	require.NoError(t, err)
	err = c.Republish(context.Background(), pid1, []byte("a"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS2})
	assert.ErrorIs(t, err, merrors.ErrRepublishQoSNotMatching)

	pid2, err := c.Publish(context.Background(), []byte("b"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS2})
	require.NoError(t, err)
	_, err = c.Poll(context.Background()) // PUBREC moves pid2 to AwaitingPubcomp
	require.NoError(t, err)
	err = c.Republish(context.Background(), pid2, []byte("b"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS2})
	assert.ErrorIs(t, err, merrors.ErrPacketIdentifierAwaitingPubcomp)
}

func TestRepublishSetsDupFlag(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack())

	pid, err := c.Publish(context.Background(), []byte("a"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS1})
	require.NoError(t, err)
	require.NoError(t, c.Republish(context.Background(), pid, []byte("a"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS1}))

	pkts := sentPackets(t, sc)
	require.Len(t, pkts, 2)
	assert.False(t, pkts[0].(*packet.Publish).Dup)
	re := pkts[1].(*packet.Publish)
	assert.True(t, re.Dup)
	assert.Equal(t, pid, re.PacketID)
}

func TestRerelease(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack(),
		packet.NewPubrec(1, packet.ReasonSuccess, packet.PropertyList{}))

	_, err := c.Publish(context.Background(), []byte("a"), PublicationOptions{Topic: TopicName("t"), QoS: packet.QoS2})
	require.NoError(t, err)
	_, err = c.Poll(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Rerelease(context.Background()))

	pkts := sentPackets(t, sc)
	// PUBLISH, PUBREL from the flow, then the re-released PUBREL.
	require.Len(t, pkts, 3)
	rel := pkts[2].(*packet.Ack)
	assert.Equal(t, packet.PUBREL, rel.Type())
	assert.Equal(t, uint16(1), rel.PacketID)
}

func TestNetworkErrorFaultsAndRequiresAbort(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack())
	sc.closed = true

	err := c.Ping(context.Background())
	require.ErrorIs(t, err, merrors.ErrNetwork)

	err = c.Ping(context.Background())
	require.ErrorIs(t, err, merrors.ErrRecoveryRequired)

	require.NoError(t, c.Abort())

	// A fresh transport may now be connected.
	sc2 := newScriptConn(script(t, successConnack()))
	assert.NoError(t, c.Connect(context.Background(), wrapConn(sc2)))
}

func TestPollEOFIsNetworkError(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack())

	_, err := c.Poll(context.Background())
	assert.ErrorIs(t, err, merrors.ErrNetwork)
}

func TestPollContextCancellationIsRetryable(t *testing.T) {
	c, sc := connect(t, ConnectOptions{ClientID: "c1"}, successConnack())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Poll(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The connection is still live; feeding a packet lets Poll succeed.
	sc.inbound.Write(encodePacket(t, packet.Pingresp{}))
	ev, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventPingresp{}, ev)
}

func TestConnectWithWill(t *testing.T) {
	sc := newScriptConn(script(t, successConnack()))
	c := New(ConnectOptions{
		ClientID: "c1",
		Will: &WillOptions{
			Topic:         "will/a",
			Payload:       []byte("bye"),
			QoS:           packet.QoS1,
			Retain:        true,
			DelayInterval: 5,
		},
	})
	require.NoError(t, c.Connect(context.Background(), wrapConn(sc)))

	replay := newScriptConn(append([]byte(nil), sc.outbound.Bytes()...))
	raw, err := wrapConn(replay).ReadPacket(context.Background())
	require.NoError(t, err)
	conn := raw.(*packet.Connect)
	require.NotNil(t, conn.Will)
	assert.Equal(t, "will/a", conn.Will.Topic)
	assert.Equal(t, []byte("bye"), conn.Will.Payload)
	assert.Equal(t, packet.QoS1, conn.Will.QoS)
	assert.True(t, conn.Will.Retain)
	delay, found := conn.Will.Properties.Find(packet.PropWillDelayInterval)
	require.True(t, found)
	assert.Equal(t, uint32(5), delay.(packet.WillDelayInterval).Value)
}

func TestInvalidTopicRejected(t *testing.T) {
	c, _ := connect(t, ConnectOptions{ClientID: "c1"}, successConnack())

	_, err := c.Publish(context.Background(), nil, PublicationOptions{Topic: TopicName("a/+/b")})
	assert.Error(t, err)

	_, err = c.Subscribe(context.Background(), "a/#/b", SubscriptionOptions{})
	assert.Error(t, err)
}
