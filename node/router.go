package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/arkenstone-tel/diameter/command"
	"github.com/arkenstone-tel/diameter/diammsg"
)

// appKey identifies a registered handler by the (application id,
// command code) pair RFC 6733 §2.4 application negotiation resolves to.
type appKey struct {
	applicationID uint32
	commandCode   uint32
}

// Router owns the application registry and the peer table, and decides
// which peer an outbound request travels over (spec.md-equivalent C8).
type Router struct {
	mu   sync.Mutex
	apps map[appKey]Application
	// appIDs is the set of application ids with at least one handler,
	// independent of command code, so CER/CEA negotiation can check
	// "do we serve this application at all" without enumerating codes.
	appIDs  map[uint32]bool
	peers   map[string]*nodePeer
	runtime Runtime
	logger  log.Logger

	hopByHop *HopByHopGenerator
	endToEnd *EndToEndGenerator
}

func newRouter(runtime Runtime, logger log.Logger) *Router {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Router{
		apps:     make(map[appKey]Application),
		appIDs:   make(map[uint32]bool),
		peers:    make(map[string]*nodePeer),
		runtime:  runtime,
		logger:   logger,
		hopByHop: NewHopByHopGenerator(),
		endToEnd: NewEndToEndGenerator(),
	}
}

// RegisterApplication wires app to every request command code it wants
// to serve. Credit-Control registers CCR (code 272); other applications
// register whichever request codes they define.
func (r *Router) RegisterApplication(app Application, requestCodes ...uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appIDs[app.ApplicationID()] = true
	for _, code := range requestCodes {
		r.apps[appKey{app.ApplicationID(), code}] = app
	}
}

// SupportsApplication reports whether any handler is registered for id.
// Nothing in this module calls it; CER/CEA handling does not consult it.
func (r *Router) SupportsApplication(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appIDs[id]
}

// applicationIDs returns every application id with a registered handler,
// for this node's own CER/CEA Auth-/Acct-Application-Id AVPs.
func (r *Router) applicationIDs() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint32, 0, len(r.appIDs))
	for id := range r.appIDs {
		out = append(out, id)
	}
	return out
}

// HandleRequest dispatches an inbound application request to its
// registered Application, answering 3001/3007 itself when nothing
// matches (RFC 6733 §7.1 DIAMETER_COMMAND_UNSUPPORTED / §5.3
// DIAMETER_APPLICATION_UNSUPPORTED).
func (r *Router) HandleRequest(ctx context.Context, req *diammsg.Message) (*diammsg.Message, error) {
	r.mu.Lock()
	app, ok := r.apps[appKey{req.Header.ApplicationID, req.Header.CommandCode}]
	servesApp := r.appIDs[req.Header.ApplicationID]
	r.mu.Unlock()

	if !ok {
		code := diammsg.CommandUnsupported
		if !servesApp {
			code = diammsg.ApplicationUnsupported
		}
		level.Warn(r.logger).Log("message", "no application registered", "application_id", req.Header.ApplicationID, "command_code", req.Header.CommandCode)
		return errorAnswerFor(req, uint32(code))
	}
	return r.runtime.Submit(ctx, app, req)
}

// errorAnswerFor builds a minimal error answer when no application
// handler could be found or invoked; origin fields are added by the
// caller (node.go) which knows this node's own identity.
func errorAnswerFor(req *diammsg.Message, resultCode uint32) (*diammsg.Message, error) {
	rc, err := command.ResultCodeAVP(resultCode)
	if err != nil {
		return nil, err
	}
	return req.ToAnswer(rc)
}

// addPeer/removePeer/peerFor manage the live peer table a Router
// selects from when sending requests.
func (r *Router) addPeer(name string, p *nodePeer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[name] = p
}

func (r *Router) removePeer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, name)
}

func (r *Router) peerByName(name string) (*nodePeer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[name]
	return p, ok
}

// candidatePeers returns every open peer that advertised applicationID
// during capabilities exchange, in map-iteration order (Go's random map
// order is this router's round-robin: no peer is statically favored).
func (r *Router) candidatePeers(applicationID uint32) []*nodePeer {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*nodePeer
	for _, p := range r.peers {
		if !p.peer.IsOpen() {
			continue
		}
		if supportsApplication(p.peer.Remote, applicationID) {
			out = append(out, p)
		}
	}
	return out
}

func supportsApplication(id command.Identity, applicationID uint32) bool {
	for _, a := range id.AuthAppIDs {
		if a == applicationID {
			return true
		}
	}
	for _, a := range id.AcctAppIDs {
		if a == applicationID {
			return true
		}
	}
	return false
}

// SendRequest picks a healthy peer supporting msg's application id,
// assigns fresh ids, and dispatches it, retrying on a different peer if
// the first one fails before an answer arrives (RFC 6733 §7.3 failover).
// peerName pins the request to a specific configured peer; pass "" to
// let the router choose.
func (r *Router) SendRequest(ctx context.Context, peerName string, msg *diammsg.Message) (*diammsg.Message, error) {
	var candidates []*nodePeer
	if peerName != "" {
		p, ok := r.peerByName(peerName)
		if !ok || !p.peer.IsOpen() {
			return nil, ErrNoSuchPeer
		}
		candidates = []*nodePeer{p}
	} else {
		candidates = r.candidatePeers(msg.Header.ApplicationID)
	}
	if len(candidates) == 0 {
		return nil, ErrUnableToDeliver
	}

	msg.Header.EndToEndID = r.endToEnd.Next()
	var lastErr error
	for i, p := range candidates {
		msg.Header.HopByHopID = p.hopByHop.Next()
		if i > 0 {
			msg.Header.Flags |= diammsg.FlagRetransmit
		}
		ans, err := p.sendRequest(ctx, msg)
		if err == nil {
			return ans, nil
		}
		lastErr = err
		level.Warn(r.logger).Log("message", "send failed, failing over", "peer", p.name, "error", err)
	}
	return nil, fmt.Errorf("node: %w: %w", ErrUnableToDeliver, lastErr)
}
