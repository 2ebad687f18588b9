// Package transport provides TCP/SCTP connection management for
// Diameter peers, plus framed Message read/write on top of the raw
// byte stream (the 20-byte header's Length field is the only framing
// a Diameter connection has). Adapted from the teacher's
// transport/connection.go.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/ishidawataru/sctp"

	"github.com/arkenstone-tel/diameter/diammsg"
)

// Protocol identifies the transport a Conn rides on (spec.md §4.6: TCP
// is required, SCTP is optional multi-homed transport per RFC 6733 §2.1.1).
type Protocol int

const (
	ProtoTCP Protocol = iota
	ProtoSCTP
)

// Conn wraps a net.Conn (TCP or SCTP) with the read/write-deadline and
// message-framing behavior every Diameter peer connection needs.
type Conn struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	protocol     Protocol
	logger       log.Logger
}

// Dial establishes a new connection to a peer (client/initiator side).
// A nil logger is replaced with a no-op logger.
func Dial(ctx context.Context, addr string, protocol Protocol, timeout time.Duration, logger log.Logger) (*Conn, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	var conn net.Conn
	var err error

	switch protocol {
	case ProtoTCP:
		dialer := net.Dialer{Timeout: timeout}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	case ProtoSCTP:
		var raddr *sctp.SCTPAddr
		raddr, err = sctp.ResolveSCTPAddr("sctp", addr)
		if err == nil {
			conn, err = sctp.DialSCTP("sctp", nil, raddr)
		}
	default:
		return nil, ErrUnsupportedProtocol
	}
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	level.Debug(logger).Log("message", "connected", "addr", addr, "protocol", protocol)
	return &Conn{conn: conn, protocol: protocol, logger: logger}, nil
}

// wrap adapts an already-accepted net.Conn (server side).
func wrap(conn net.Conn, protocol Protocol, logger log.Logger) *Conn {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Conn{conn: conn, protocol: protocol, logger: logger}
}

// NewConnFromNetConn adapts an arbitrary net.Conn (an in-memory
// net.Pipe() end, most commonly) into a Conn, for tests that need two
// connected peers without a real socket.
func NewConnFromNetConn(conn net.Conn, protocol Protocol, logger log.Logger) *Conn {
	return wrap(conn, protocol, logger)
}

// SetTimeouts sets the read/write deadlines applied before every I/O call.
func (c *Conn) SetTimeouts(readTimeout, writeTimeout time.Duration) {
	c.readTimeout = readTimeout
	c.writeTimeout = writeTimeout
}

// Read reads raw bytes from the connection, honoring the configured
// read timeout.
func (c *Conn) Read(buf []byte) (int, error) {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return c.conn.Read(buf)
}

// Write writes raw bytes to the connection, honoring the configured
// write timeout.
func (c *Conn) Write(data []byte) (int, error) {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.Write(data)
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

func (c *Conn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// ReadMessage reads exactly one framed Diameter message: the 20-byte
// header first (to learn the total length), then the remaining bytes
// it declares.
func (c *Conn) ReadMessage() (*diammsg.Message, error) {
	header := make([]byte, diammsg.HeaderSize)
	if err := c.readFull(header); err != nil {
		return nil, err
	}
	h, err := diammsg.DecodeHeader(header)
	if err != nil {
		return nil, err
	}
	rest := make([]byte, h.Length-diammsg.HeaderSize)
	if err := c.readFull(rest); err != nil {
		return nil, err
	}
	return diammsg.FromBytes(append(header, rest...))
}

func (c *Conn) readFull(buf []byte) error {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	_, err := io.ReadFull(c.conn, buf)
	return err
}

// WriteMessage encodes and writes one Diameter message.
func (c *Conn) WriteMessage(msg *diammsg.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	_, err = c.Write(data)
	return err
}
