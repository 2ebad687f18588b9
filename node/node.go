// Package node ties the transport, peer and command layers together
// into a runnable Diameter node: it owns this host's identity, accepts
// and dials peer connections, drives their capabilities exchange, and
// routes application traffic to registered Applications (spec.md-
// equivalent components C7-C9). Adapted from the teacher's
// client/server split, merged into one type since a production
// Diameter node is simultaneously an initiator and a responder.
package node

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/arkenstone-tel/diameter/avp"
	"github.com/arkenstone-tel/diameter/command"
	"github.com/arkenstone-tel/diameter/diammsg"
	"github.com/arkenstone-tel/diameter/peer"
	"github.com/arkenstone-tel/diameter/transport"
)

// Option configures a Node at construction time.
type Option func(*Node)

// WithLogger sets the go-kit logger every peer and the router log
// through. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(n *Node) { n.logger = logger }
}

// WithRuntime overrides the default WorkerPoolRuntime (16 concurrent
// requests) an Application handler runs under.
func WithRuntime(rt Runtime) Option {
	return func(n *Node) { n.runtime = rt }
}

// WithDialTimeout overrides defaultDialTimeout for outbound connections.
func WithDialTimeout(d time.Duration) Option {
	return func(n *Node) { n.dialTimeout = d }
}

// nodePeer is one configured or dynamically accepted peer: the live
// peer.Peer plus the bookkeeping the Router needs to send to it.
type nodePeer struct {
	name     string
	peer     *peer.Peer
	hopByHop *HopByHopGenerator
	cfg      PeerConfig
}

func (np *nodePeer) sendRequest(ctx context.Context, msg *diammsg.Message) (*diammsg.Message, error) {
	ch := np.peer.Outstanding.Register(msg)
	if err := np.peer.TrySend(msg, np.cfg.FailFast); err != nil {
		np.peer.Outstanding.Abandon(msg.Header.HopByHopID)
		return nil, ErrQueueFull
	}
	select {
	case ans, ok := <-ch:
		if !ok || ans == nil {
			return nil, ErrPeerGone
		}
		return ans, nil
	case <-ctx.Done():
		np.peer.Outstanding.Abandon(msg.Header.HopByHopID)
		return nil, ctx.Err()
	}
}

// Node is a running Diameter node: one local identity, a Router
// applications register against, and a set of peer connections it
// maintains (spec.md §4 C7-C9).
type Node struct {
	cfg      *Config
	identity command.Identity
	Router   *Router

	logger      log.Logger
	runtime     Runtime
	dialTimeout time.Duration

	listener *transport.Listener

	// electionMu/electedPeers track, by remote Origin-Host, which live
	// connection survived the RFC 6733 §5.6.4 election: a dial and an
	// accept racing each other against the same remote host resolve
	// here instead of both running.
	electionMu   sync.Mutex
	electedPeers map[string]*peer.Peer
}

// New builds a Node from cfg. The node does not start accepting or
// dialing connections until Run is called.
func New(cfg *Config, opts ...Option) *Node {
	n := &Node{
		cfg:          cfg,
		logger:       log.NewNopLogger(),
		dialTimeout:  defaultDialTimeout,
		electedPeers: make(map[string]*peer.Peer),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.runtime == nil {
		n.runtime = NewWorkerPoolRuntime(16, n.logger)
	}
	n.Router = newRouter(n.runtime, n.logger)
	n.identity = command.Identity{
		OriginHost:    cfg.OriginHost,
		OriginRealm:   cfg.OriginRealm,
		HostAddresses: cfg.hostAddresses(),
		VendorID:      cfg.VendorID,
		ProductName:   cfg.ProductName,
		OriginStateID: uint32(time.Now().Unix()),
		AuthAppIDs:    cfg.AuthApplicationIDs,
		AcctAppIDs:    cfg.AcctApplicationIDs,
	}
	return n
}

// Identity returns the capabilities this node advertises, refreshed
// with whatever applications are registered with the Router at call
// time (RegisterApplication may run after New).
func (n *Node) Identity() command.Identity {
	id := n.identity
	id.AuthAppIDs = mergeApplicationIDs(id.AuthAppIDs, n.Router.applicationIDs())
	return id
}

func mergeApplicationIDs(configured, registered []uint32) []uint32 {
	seen := make(map[uint32]bool, len(configured))
	out := make([]uint32, 0, len(configured)+len(registered))
	for _, id := range configured {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range registered {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// RegisterApplication registers app with this node's Router so inbound
// requests for its application id and command codes reach it.
func (n *Node) RegisterApplication(app Application, requestCodes ...uint32) {
	n.Router.RegisterApplication(app, requestCodes...)
}

// Run starts accepting inbound connections (if ListenAddr is set) and
// dialing every persistent peer, blocking until ctx is canceled.
func (n *Node) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	running := 0

	if n.cfg.ListenAddr != "" {
		listener, err := transport.Listen(n.cfg.ListenAddr, n.cfg.protocol(), n.dialTimeout, n.logger)
		if err != nil {
			return fmt.Errorf("node: listen: %w", err)
		}
		n.listener = listener
		running++
		go func() { errCh <- n.acceptLoop(ctx) }()
	}

	for name, pc := range n.cfg.Peers {
		name, pc := name, pc
		running++
		go func() { errCh <- n.dialLoop(ctx, name, pc) }()
	}

	if running == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *Node) acceptLoop(ctx context.Context) error {
	defer n.listener.Close()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == transport.ErrAcceptTimeout {
				continue
			}
			level.Error(n.logger).Log("message", "accept failed", "error", err)
			continue
		}
		go n.acceptPeer(ctx, conn)
	}
}

func (n *Node) acceptPeer(ctx context.Context, conn *transport.Conn) {
	msg, err := conn.ReadMessage()
	if err != nil {
		level.Warn(n.logger).Log("message", "responder read failed before CER", "error", err)
		conn.Close()
		return
	}
	if msg.Header.CommandCode != command.CodeCER {
		conn.Close()
		return
	}
	remote := command.ParseCER(msg)
	pc, known := n.peerConfigFor(remote.OriginHost)
	if !n.cfg.AllowUnknownPeers && !known {
		level.Warn(n.logger).Log("message", "rejecting unknown peer", "origin_host", remote.OriginHost)
		ans, err := command.NewCEA(msg, n.Identity(), uint32(diammsg.UnknownPeer))
		if err == nil {
			_ = conn.WriteMessage(ans)
		}
		conn.Close()
		return
	}
	if !known {
		pc = PeerConfig{SendQueueDepth: DefaultSendQueueDepth}
	}

	p := peer.New(conn, peer.RoleResponder, n.Identity(), n.logger, pc.SendQueueDepth)
	if err := n.admitPeer(remote.OriginHost, p); err != nil {
		level.Warn(n.logger).Log("message", "dropping accepted connection", "origin_host", remote.OriginHost, "error", err)
		conn.Close()
		return
	}
	if err := p.Dispatch(ctx, msg); err != nil {
		level.Error(n.logger).Log("message", "capabilities exchange failed", "error", err)
		n.releasePeer(remote.OriginHost, p)
		conn.Close()
		return
	}
	n.runPeer(ctx, remote.OriginHost, p, pc)
}

// peerConfigFor looks up the statically configured peer whose Origin-
// Host matches originHost, for reusing its send-queue/fail-fast
// settings on an inbound connection.
func (n *Node) peerConfigFor(originHost string) (PeerConfig, bool) {
	for _, pc := range n.cfg.Peers {
		if pc.Host == originHost {
			return pc, true
		}
	}
	return PeerConfig{}, false
}

func (n *Node) dialLoop(ctx context.Context, name string, pc PeerConfig) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := transport.Dial(ctx, pc.addr(), n.cfg.protocol(), n.dialTimeout, n.logger)
		if err != nil {
			if pc.FailFast || !pc.Persistent {
				return err
			}
			level.Warn(n.logger).Log("message", "dial failed, retrying", "peer", name, "error", err, "backoff", backoff)
			select {
			case <-time.After(jitterBackoff(backoff)):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		p := peer.New(conn, peer.RoleInitiator, n.Identity(), n.logger, pc.SendQueueDepth)
		go p.RunWriter(ctx)
		if err := p.Open(ctx); err != nil {
			level.Warn(n.logger).Log("message", "capabilities exchange failed", "peer", name, "error", err)
			conn.Close()
			continue
		}
		if err := n.admitPeer(pc.Host, p); err != nil {
			level.Warn(n.logger).Log("message", "dropping initiated connection", "peer", name, "error", err)
			conn.Close()
			if !pc.Persistent {
				return err
			}
			continue
		}
		n.runPeer(ctx, name, p, pc)

		if !pc.Persistent {
			return nil
		}
	}
}

// admitPeer registers p as the live connection for remoteHost. If
// another connection is already registered for that host (a dial and
// an accept racing each other against the same remote), it runs the
// RFC 6733 §5.6.4 election to decide which one survives: the side
// whose Initiator-role connection matches the election winner is kept,
// the other is closed. Returns peer.ErrElectionLost when p is the one
// that loses.
func (n *Node) admitPeer(remoteHost string, p *peer.Peer) error {
	n.electionMu.Lock()
	defer n.electionMu.Unlock()

	existing, ok := n.electedPeers[remoteHost]
	if !ok || existing == p {
		n.electedPeers[remoteHost] = p
		return nil
	}

	localWins := peer.Elect(n.identity.OriginHost, remoteHost)
	keepExisting := localWins == (existing.Role() == peer.RoleInitiator)
	if keepExisting {
		level.Warn(n.logger).Log("message", "election: keeping existing connection, closing new one", "remote", remoteHost, "local_wins", localWins)
		return peer.ErrElectionLost
	}
	level.Warn(n.logger).Log("message", "election: new connection wins, closing existing one", "remote", remoteHost, "local_wins", localWins)
	n.electedPeers[remoteHost] = p
	go existing.Conn.Close()
	return nil
}

// releasePeer clears remoteHost's election entry when it still points
// at p, called as each peer's connection loop exits.
func (n *Node) releasePeer(remoteHost string, p *peer.Peer) {
	n.electionMu.Lock()
	defer n.electionMu.Unlock()
	if n.electedPeers[remoteHost] == p {
		delete(n.electedPeers, remoteHost)
	}
}

// jitterBackoff spreads reconnect attempts +/-10% so a peer restart
// does not get hit by every dialing node in lockstep.
func jitterBackoff(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := d / 10
	delta := time.Duration(rand.Int63n(int64(2*spread+1))) - spread
	next := d + delta
	if next < 0 {
		return 0
	}
	return next
}

// runPeer registers an opened peer with the Router and runs its
// reader/watchdog until the connection drops, then unregisters it and
// drains its outstanding-request table so callers blocked in
// nodePeer.sendRequest fail with ErrPeerGone instead of hanging until
// their own context expires.
func (n *Node) runPeer(ctx context.Context, name string, p *peer.Peer, pc PeerConfig) {
	np := &nodePeer{name: name, peer: p, hopByHop: NewHopByHopGenerator(), cfg: pc}
	n.Router.addPeer(name, np)
	defer n.Router.removePeer(name)
	defer n.releasePeer(p.Remote.OriginHost, p)
	defer func() {
		for _, req := range p.Outstanding.DrainAll() {
			close(req.Answer)
		}
	}()

	peerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go p.Watchdog.Run(peerCtx)
	// dialLoop already started the writer for an initiator-role peer.
	if p.Role() == peer.RoleResponder {
		go p.RunWriter(peerCtx)
	}

	level.Info(n.logger).Log("message", "peer open", "peer", name, "remote", p.Remote.OriginHost)
	for {
		msg, err := p.Conn.ReadMessage()
		if err != nil {
			level.Info(n.logger).Log("message", "peer connection closed", "peer", name, "error", err)
			return
		}
		n.handleInbound(peerCtx, p, msg)
	}
}

// handleInbound routes one inbound message: base-protocol traffic goes
// through the peer's FSM, application requests go through the Router,
// and application answers resolve the peer's outstanding-request table.
func (n *Node) handleInbound(ctx context.Context, p *peer.Peer, msg *diammsg.Message) {
	if isBaseProtocolCode(msg.Header.CommandCode) {
		if err := p.Dispatch(ctx, msg); err != nil {
			level.Error(n.logger).Log("message", "dispatch failed", "error", err)
		}
		return
	}
	if !msg.Header.IsRequest() {
		p.Watchdog.Kick()
		p.Outstanding.Resolve(msg)
		return
	}
	p.Watchdog.Kick()
	go func() {
		ans, err := n.Router.HandleRequest(ctx, msg)
		if err != nil {
			level.Error(n.logger).Log("message", "application handler error", "error", err)
			return
		}
		if ans != nil {
			if ans.GetAVP(264, 0) == nil {
				if oh, err := avp.New(264, n.identity.OriginHost, avp.FlagMandatory); err == nil {
					ans.AVPs = append(ans.AVPs, oh)
				}
			}
			if ans.GetAVP(296, 0) == nil {
				if or, err := avp.New(296, n.identity.OriginRealm, avp.FlagMandatory); err == nil {
					ans.AVPs = append(ans.AVPs, or)
				}
			}
			p.Send(ans)
		}
	}()
}

func isBaseProtocolCode(code uint32) bool {
	switch code {
	case command.CodeCER, command.CodeDWR, command.CodeDPR:
		return true
	default:
		return false
	}
}

// SendRequest routes msg to peerName (or any healthy peer supporting
// its application id when peerName is ""), blocking for the answer.
func (n *Node) SendRequest(ctx context.Context, peerName string, msg *diammsg.Message) (*diammsg.Message, error) {
	return n.Router.SendRequest(ctx, peerName, msg)
}

// Close shuts down the listener, if any.
func (n *Node) Close() error {
	if n.listener != nil {
		return n.listener.Close()
	}
	return nil
}
