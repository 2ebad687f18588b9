package transport

import (
	"net"
	"time"

	"github.com/go-kit/log"
	"github.com/ishidawataru/sctp"
)

// Listener accepts incoming Diameter connections on the server side.
type Listener struct {
	listener      net.Listener
	addr          string
	acceptTimeout time.Duration
	protocol      Protocol
	logger        log.Logger
}

// Listen opens a Listener on addr for the given protocol. A nil logger
// is replaced with a no-op logger and threaded into every Conn Accept
// returns.
func Listen(addr string, protocol Protocol, acceptTimeout time.Duration, logger log.Logger) (*Listener, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	var listener net.Listener
	var err error

	switch protocol {
	case ProtoTCP:
		listener, err = net.Listen("tcp", addr)
	case ProtoSCTP:
		var laddr *sctp.SCTPAddr
		laddr, err = sctp.ResolveSCTPAddr("sctp", addr)
		if err == nil {
			listener, err = sctp.ListenSCTP("sctp", laddr)
		}
	default:
		return nil, ErrUnsupportedProtocol
	}
	if err != nil {
		return nil, err
	}
	return &Listener{listener: listener, addr: addr, acceptTimeout: acceptTimeout, protocol: protocol, logger: logger}, nil
}

// Accept waits for and returns the next incoming connection, applying
// the configured accept timeout where the underlying listener supports it.
func (l *Listener) Accept() (*Conn, error) {
	if l.protocol == ProtoTCP {
		if l.acceptTimeout > 0 {
			if tl, ok := l.listener.(*net.TCPListener); ok {
				_ = tl.SetDeadline(time.Now().Add(l.acceptTimeout))
			}
		}
		conn, err := l.listener.Accept()
		if err != nil {
			return nil, err
		}
		return wrap(conn, l.protocol, l.logger), nil
	}

	// net.Listener has no portable Accept-deadline for SCTP, so apply
	// the timeout with a select instead.
	connCh := make(chan net.Conn, 1)
	errCh := make(chan error, 1)
	go func() {
		conn, err := l.listener.Accept()
		if err != nil {
			errCh <- err
			return
		}
		connCh <- conn
	}()

	if l.acceptTimeout <= 0 {
		select {
		case conn := <-connCh:
			return wrap(conn, l.protocol, l.logger), nil
		case err := <-errCh:
			return nil, err
		}
	}

	select {
	case conn := <-connCh:
		return wrap(conn, l.protocol, l.logger), nil
	case err := <-errCh:
		return nil, err
	case <-time.After(l.acceptTimeout):
		return nil, ErrAcceptTimeout
	}
}

// Close stops the listener from accepting further connections.
func (l *Listener) Close() error { return l.listener.Close() }

// Addr returns the address the listener is bound to.
func (l *Listener) Addr() net.Addr { return l.listener.Addr() }
