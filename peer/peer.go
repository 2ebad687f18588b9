package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/arkenstone-tel/diameter/command"
	"github.com/arkenstone-tel/diameter/diammsg"
	"github.com/arkenstone-tel/diameter/transport"
)

// Role records which side of a connection this node played: it decides
// who sends CER vs who answers with CEA, and who a lost election falls
// back to (spec.md §4.5 "MAY merge I/R").
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// Context is the value threaded through every FSM transition: the
// message that triggered the event (if any), plus the peer it belongs
// to, so actions can reach the connection, watchdog and outstanding table.
type Context struct {
	Msg  *diammsg.Message
	Peer *Peer
}

// Peer is one Diameter peer connection: its negotiated capabilities,
// transport, watchdog, outstanding request table and state machine.
type Peer struct {
	mu sync.Mutex

	fsm  *FSM[Context]
	role Role

	Local  command.Identity
	Remote command.Identity

	Conn        *transport.Conn
	Watchdog    *Watchdog
	Outstanding *OutstandingTable

	Logger log.Logger

	sendQueue chan *diammsg.Message
	openCh    chan struct{}
	openOnce  sync.Once
	dwaCh     chan struct{}
}

// defaultSendQueueDepth backs New when callers pass sendQueueDepth <= 0.
const defaultSendQueueDepth = 64

// New builds a Peer bound to an already-connected transport.Conn. The
// caller still has to drive the CER/CEA exchange (via Open) before the
// peer is usable for application traffic. sendQueueDepth sizes the
// outbound queue (node.PeerConfig.SendQueueDepth); <= 0 uses
// defaultSendQueueDepth.
func New(conn *transport.Conn, role Role, local command.Identity, logger log.Logger, sendQueueDepth int) *Peer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if sendQueueDepth <= 0 {
		sendQueueDepth = defaultSendQueueDepth
	}
	p := &Peer{
		fsm:         NewFSM[Context](Closed),
		role:        role,
		Local:       local,
		Conn:        conn,
		Watchdog:    NewWatchdog(),
		Outstanding: NewOutstandingTable(),
		Logger:      logger,
		sendQueue:   make(chan *diammsg.Message, sendQueueDepth),
		openCh:      make(chan struct{}),
		dwaCh:       make(chan struct{}, 1),
	}
	p.registerTransitions()
	p.Watchdog.SendDWR = p.sendDWR
	p.Watchdog.AwaitDWA = p.awaitDWA
	p.Watchdog.OnDead = func() {
		level.Warn(p.Logger).Log("message", "watchdog declared peer dead", "remote", p.Remote.OriginHost)
		_ = p.Conn.Close()
	}
	return p
}

// State returns the peer's current RFC 6733 §5.6 state.
func (p *Peer) State() State { return p.fsm.GetState() }

// Role reports whether this side initiated or accepted the connection,
// the input the RFC 6733 §5.6.4 election needs to decide which side of
// a simultaneous connection pair to keep.
func (p *Peer) Role() Role { return p.role }

// IsOpen reports whether the peer has completed capabilities exchange
// and can carry application traffic (R-Open or I-Open).
func (p *Peer) IsOpen() bool {
	s := p.State()
	return s == ROpen || s == IOpen
}

// WaitOpen blocks until the peer reaches an Open state or ctx is done.
func (p *Peer) WaitOpen(ctx context.Context) error {
	select {
	case <-p.openCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Peer) markOpen() {
	p.openOnce.Do(func() { close(p.openCh) })
}

// registerTransitions wires the subset of the RFC 6733 §5.6 table this
// node drives directly. The Wait-Conn-Ack-Elect/Wait-Returns election
// states are not modeled here: node.Node constructs a Peer for every
// accepted or dialed connection first, then calls Elect itself
// (node.admitPeer) once a second connection to the same remote
// Origin-Host shows up, closing the losing side before it is ever
// admitted to the router. The FSM only needs the winning path.
func (p *Peer) registerTransitions() {
	p.fsm.AddTransition(Closed, WaitICEA, EvStart, []Action[Context]{
		{Name: "SendCER", Fn: actionSendCER},
	})
	p.fsm.AddTransition(WaitICEA, IOpen, EvRcvCEA, []Action[Context]{
		{Name: "ProcessCEA", Fn: actionProcessCEA},
	})
	p.fsm.AddTransition(WaitICEA, Closed, EvRcvNonCEA, []Action[Context]{
		{Name: "Error", Fn: actionDisconnect},
	})
	p.fsm.AddTransition(Closed, ROpen, EvRcvCER, []Action[Context]{
		{Name: "ProcessCERSendCEA", Fn: actionProcessCERAndAnswer},
	})

	for _, open := range []State{ROpen, IOpen} {
		p.fsm.AddTransition(open, Closing, EvStop, []Action[Context]{
			{Name: "SendDPR", Fn: actionSendDPR},
		})
		p.fsm.AddTransition(open, Closing, EvRcvDPR, []Action[Context]{
			{Name: "SendDPA", Fn: actionSendDPA},
		})
		p.fsm.AddTransition(open, open, EvRcvDWR, []Action[Context]{
			{Name: "ProcessDWR", Fn: actionProcessDWR},
		})
		p.fsm.AddTransition(open, open, EvRcvDWA, []Action[Context]{
			{Name: "ProcessDWA", Fn: actionProcessDWA},
		})
	}

	p.fsm.AddTransition(Closing, Closed, EvRcvDPA, []Action[Context]{
		{Name: "Disconnect", Fn: actionDisconnect},
	})
	p.fsm.AddTransition(Closing, Closed, EvTimeout, []Action[Context]{
		{Name: "Disconnect", Fn: actionDisconnect},
	})
}

// Open drives the capabilities-exchange handshake to completion
// (initiator sends CER and awaits CEA; responder is driven by Dispatch
// receiving the peer's CER instead). On success the peer reaches an
// Open state and WaitOpen unblocks.
func (p *Peer) Open(ctx context.Context) error {
	if p.role != RoleInitiator {
		return fmt.Errorf("peer: Open called on a %s-role peer", p.role)
	}
	_, err := p.fsm.Trigger(ctx, EvStart, &Context{Peer: p})
	if err != nil {
		return err
	}
	msg, err := p.Conn.ReadMessage()
	if err != nil {
		return err
	}
	ev := EvRcvCEA
	if msg.Header.CommandCode != command.CodeCER {
		ev = EvRcvNonCEA
	}
	_, err = p.fsm.Trigger(ctx, ev, &Context{Peer: p, Msg: msg})
	return err
}

// Dispatch feeds one received message into the state machine/router. It
// is the entry point RunReader uses, and tests can call it directly
// without a live connection.
func (p *Peer) Dispatch(ctx context.Context, msg *diammsg.Message) error {
	p.Watchdog.Kick()
	switch {
	case msg.Header.CommandCode == command.CodeCER && msg.Header.IsRequest():
		_, err := p.fsm.Trigger(ctx, EvRcvCER, &Context{Peer: p, Msg: msg})
		if err == nil {
			p.markOpen()
		}
		return err
	case msg.Header.CommandCode == command.CodeDWR && msg.Header.IsRequest():
		_, err := p.fsm.Trigger(ctx, EvRcvDWR, &Context{Peer: p, Msg: msg})
		return err
	case msg.Header.CommandCode == command.CodeDWR && !msg.Header.IsRequest():
		_, err := p.fsm.Trigger(ctx, EvRcvDWA, &Context{Peer: p, Msg: msg})
		return err
	case msg.Header.CommandCode == command.CodeDPR && msg.Header.IsRequest():
		_, err := p.fsm.Trigger(ctx, EvRcvDPR, &Context{Peer: p, Msg: msg})
		return err
	case msg.Header.CommandCode == command.CodeDPR && !msg.Header.IsRequest():
		_, err := p.fsm.Trigger(ctx, EvRcvDPA, &Context{Peer: p, Msg: msg})
		return err
	default:
		if msg.Header.IsRequest() {
			return nil // application traffic: the router handles this, not the FSM
		}
		p.Outstanding.Resolve(msg)
		return nil
	}
}

// Send queues msg for the writer goroutine and kicks the watchdog, as
// any outbound traffic postpones the next DWR the same as inbound does.
// It blocks if the send queue is full.
func (p *Peer) Send(msg *diammsg.Message) {
	p.Watchdog.Kick()
	p.sendQueue <- msg
}

// TrySend queues msg like Send, but when failFast is true it does not
// block on a full queue: it returns ErrSendQueueFull immediately
// instead (node.PeerConfig.FailFast; node.Router.SendRequest surfaces
// this as node.ErrQueueFull, wrapped in node.ErrUnableToDeliver).
func (p *Peer) TrySend(msg *diammsg.Message, failFast bool) error {
	p.Watchdog.Kick()
	if !failFast {
		p.sendQueue <- msg
		return nil
	}
	select {
	case p.sendQueue <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// RunWriter drains the send queue onto the wire until ctx is canceled.
func (p *Peer) RunWriter(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-p.sendQueue:
			if err := p.Conn.WriteMessage(msg); err != nil {
				level.Error(p.Logger).Log("message", "write failed", "error", err)
				return err
			}
		}
	}
}

// RunReader reads framed messages off the wire and dispatches them
// until ctx is canceled or the connection errors.
func (p *Peer) RunReader(ctx context.Context) error {
	for {
		msg, err := p.Conn.ReadMessage()
		if err != nil {
			level.Error(p.Logger).Log("message", "read failed", "error", err)
			return err
		}
		if err := p.Dispatch(ctx, msg); err != nil {
			level.Error(p.Logger).Log("message", "dispatch failed", "error", err, "command", msg.Header.CommandCode)
		}
	}
}

func (p *Peer) sendDWR(ctx context.Context) error {
	msg, err := command.NewDWR(p.Local.OriginHost, p.Local.OriginRealm, p.Local.OriginStateID)
	if err != nil {
		return err
	}
	p.Send(msg)
	return nil
}

func (p *Peer) awaitDWA(ctx context.Context, timeout time.Duration) bool {
	select {
	case <-p.dwaCh:
		return true
	case <-ctx.Done():
		return false
	case <-time.After(timeout):
		return false
	}
}

// notifyDWA wakes up a pending awaitDWA call; used by actionProcessDWA.
func (p *Peer) notifyDWA() {
	select {
	case p.dwaCh <- struct{}{}:
	default:
	}
}
