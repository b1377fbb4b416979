// Package iostream implements the cancel-safety-aware packet transport:
// reading fixed headers in a resumable fashion, bounded packet bodies, and
// the buffer providers that back a session's decoded dynamic fields.
package iostream

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	merrors "github.com/axmq/mqttv5/errors"
)

// Transport wraps a net.Conn with the read/write deadlines and activity
// bookkeeping a client connection needs. It is not safe for concurrent
// reads, nor concurrent writes, though a concurrent read and write pair is.
type Transport struct {
	conn net.Conn

	readDeadline  time.Duration
	writeDeadline time.Duration

	lastActivity atomic.Int64
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64

	closeOnce sync.Once
	closeCh   chan struct{}
}

// TransportConfig configures a Transport's deadlines. Zero durations
// disable the corresponding deadline.
type TransportConfig struct {
	ReadDeadline  time.Duration
	WriteDeadline time.Duration
}

// NewTransport wraps conn with cfg's deadlines.
func NewTransport(conn net.Conn, cfg TransportConfig) *Transport {
	t := &Transport{
		conn:          conn,
		readDeadline:  cfg.ReadDeadline,
		writeDeadline: cfg.WriteDeadline,
		closeCh:       make(chan struct{}),
	}
	t.touch()
	return t
}

func (t *Transport) touch() { t.lastActivity.Store(time.Now().UnixNano()) }

// Read implements io.Reader, applying the configured read deadline.
func (t *Transport) Read(b []byte) (int, error) {
	select {
	case <-t.closeCh:
		return 0, merrors.ErrNetwork
	default:
	}
	if t.readDeadline > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.readDeadline))
	}
	n, err := t.conn.Read(b)
	if n > 0 {
		t.bytesRead.Add(uint64(n))
		t.touch()
	}
	return n, err
}

// Write implements io.Writer, applying the configured write deadline.
func (t *Transport) Write(b []byte) (int, error) {
	select {
	case <-t.closeCh:
		return 0, merrors.ErrNetwork
	default:
	}
	if t.writeDeadline > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeDeadline))
	}
	n, err := t.conn.Write(b)
	if n > 0 {
		t.bytesWritten.Add(uint64(n))
		t.touch()
	}
	return n, err
}

// Close closes the underlying connection. Safe to call more than once.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closeCh)
		err = t.conn.Close()
	})
	return err
}

// LastActivity reports when data was last read from or written to the
// connection, used to drive keepalive PINGREQ scheduling.
func (t *Transport) LastActivity() time.Time {
	return time.Unix(0, t.lastActivity.Load())
}

func (t *Transport) BytesRead() uint64    { return t.bytesRead.Load() }
func (t *Transport) BytesWritten() uint64 { return t.bytesWritten.Load() }

var _ io.ReadWriteCloser = (*Transport)(nil)
