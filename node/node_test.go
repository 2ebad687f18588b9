package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/arkenstone-tel/diameter/avp"
	"github.com/arkenstone-tel/diameter/command"
	"github.com/arkenstone-tel/diameter/diammsg"
	"github.com/arkenstone-tel/diameter/peer"
	"github.com/arkenstone-tel/diameter/transport"
)

func TestParsePeerURIDefaults(t *testing.T) {
	pc, err := ParsePeerURI("aaa://peer.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if pc.Port != 3868 || pc.RequireTLS {
		t.Fatalf("unexpected defaults: %+v", pc)
	}

	secure, err := ParsePeerURI("aaas://peer.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if secure.Port != 5868 || !secure.RequireTLS {
		t.Fatalf("unexpected secure defaults: %+v", secure)
	}

	explicit, err := ParsePeerURI("aaa://peer.example.com:4000")
	if err != nil {
		t.Fatal(err)
	}
	if explicit.Port != 4000 {
		t.Fatalf("explicit port not honored: %+v", explicit)
	}
}

func TestParseConfigWiresPeers(t *testing.T) {
	data := []byte(`
origin_host = "node.example.com"
origin_realm = "example.com"
host_addresses = ["10.0.0.1"]
auth_application_ids = [4]

[peer.upstream]
uri = "aaa://upstream.example.com:3868"
persistent = true
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatal(err)
	}
	pc, ok := cfg.Peers["upstream"]
	if !ok {
		t.Fatal("expected peer 'upstream' to be parsed")
	}
	if pc.Host != "upstream.example.com" || pc.Port != 3868 || !pc.Persistent {
		t.Fatalf("unexpected peer config: %+v", pc)
	}
	if len(cfg.hostAddresses()) != 1 {
		t.Fatalf("expected one host address, got %v", cfg.hostAddresses())
	}
}

func TestRouterRejectsUnregisteredApplication(t *testing.T) {
	r := newRouter(SingleTaskRuntime{}, nil)
	req, err := command.NewCCR(command.CreditControlRequest{
		SessionID:        "session;1",
		OriginHost:       "client.example.com",
		OriginRealm:      "example.com",
		DestinationRealm: "example.com",
		ServiceContextID: "gy.example.com",
		RequestType:      avp.CCRequestTypeInitial,
		RequestNumber:    0,
	})
	if err != nil {
		t.Fatal(err)
	}
	ans, err := r.HandleRequest(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	checkResultCode(t, ans, uint32(diammsg.ApplicationUnsupported))
}

func TestRouterDispatchesToRegisteredApplication(t *testing.T) {
	r := newRouter(SingleTaskRuntime{}, nil)
	app := NewCreditControlApplication("server.example.com", "example.com")
	app.Fund("imsi-001", 1000)
	r.RegisterApplication(app, command.CodeCreditControl)

	req, err := command.NewCCR(command.CreditControlRequest{
		SessionID:        "session;1",
		OriginHost:       "client.example.com",
		OriginRealm:      "example.com",
		DestinationRealm: "example.com",
		ServiceContextID: "gy.example.com",
		RequestType:      avp.CCRequestTypeInitial,
		RequestNumber:    0,
		SubscriptionIDs:  []command.SubscriptionID{{Type: 1, Data: "imsi-001"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	ans, err := r.HandleRequest(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	checkResultCode(t, ans, uint32(diammsg.Success))
}

func TestCreditControlApplicationDeniesWithoutBalance(t *testing.T) {
	app := NewCreditControlApplication("server.example.com", "example.com")
	req, err := command.NewCCR(command.CreditControlRequest{
		SessionID:        "session;2",
		OriginHost:       "client.example.com",
		OriginRealm:      "example.com",
		DestinationRealm: "example.com",
		ServiceContextID: "gy.example.com",
		RequestType:      avp.CCRequestTypeInitial,
		RequestNumber:    0,
		SubscriptionIDs:  []command.SubscriptionID{{Type: 1, Data: "imsi-broke"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	ans := app.HandleRequest(context.Background(), req)
	checkResultCode(t, ans, uint32(diammsg.ResourcesExceeded))
}

func TestRouterSendRequestNoPeersFails(t *testing.T) {
	r := newRouter(SingleTaskRuntime{}, nil)
	req, _ := command.NewCCR(command.CreditControlRequest{
		SessionID:        "session;3",
		OriginHost:       "client.example.com",
		OriginRealm:      "example.com",
		DestinationRealm: "example.com",
		ServiceContextID: "gy.example.com",
		RequestType:      avp.CCRequestTypeEvent,
	})
	_, err := r.SendRequest(context.Background(), "", req)
	if err == nil {
		t.Fatal("expected ErrUnableToDeliver with no open peers")
	}
}

// TestAdmitPeerRunsElection exercises the RFC 6733 §5.6.4 election path
// a dial and an accept racing each other against the same remote
// Origin-Host would hit: the second connection registered for a host
// already admitted must be resolved by peer.Elect, not just replace
// the first unconditionally.
func TestAdmitPeerRunsElection(t *testing.T) {
	n := New(&Config{OriginHost: "z.example.com", OriginRealm: "example.com"})
	remoteHost := "a.example.com"

	c1, c2 := net.Pipe()
	responderSide := peer.New(transport.NewConnFromNetConn(c1, transport.ProtoTCP, nil), peer.RoleResponder, command.Identity{OriginHost: "z.example.com"}, nil, 0)
	initiatorSide := peer.New(transport.NewConnFromNetConn(c2, transport.ProtoTCP, nil), peer.RoleInitiator, command.Identity{OriginHost: "z.example.com"}, nil, 0)

	if err := n.admitPeer(remoteHost, responderSide); err != nil {
		t.Fatalf("first connection for a host should always be admitted: %v", err)
	}

	// "z" > "a" lexicographically: the local node wins the election and
	// keeps its Initiator-role connection over the Responder-role one
	// registered first.
	if err := n.admitPeer(remoteHost, initiatorSide); err != nil {
		t.Fatalf("expected the winning initiator connection to be admitted: %v", err)
	}
	if n.electedPeers[remoteHost] != initiatorSide {
		t.Fatal("expected the initiator-role connection to win the election")
	}

	loserConn, _ := net.Pipe()
	loser := peer.New(transport.NewConnFromNetConn(loserConn, transport.ProtoTCP, nil), peer.RoleResponder, command.Identity{OriginHost: "z.example.com"}, nil, 0)
	if err := n.admitPeer(remoteHost, loser); err != peer.ErrElectionLost {
		t.Fatalf("expected ErrElectionLost, got %v", err)
	}
	if n.electedPeers[remoteHost] != initiatorSide {
		t.Fatal("winner should not change after a losing admission")
	}
}

func checkResultCode(t *testing.T, msg *diammsg.Message, want uint32) {
	t.Helper()
	if msg == nil {
		t.Fatal("nil answer")
	}
	a := msg.GetAVP(268, 0)
	if a == nil {
		t.Fatal("answer missing Result-Code AVP")
	}
	v, ok := a.Data.(*avp.Unsigned32)
	if !ok || v.Data != want {
		t.Fatalf("result code = %v, want %d", a.Data, want)
	}
}

// TestEndToEndCreditControlOverPipe wires two peer.Peer instances over a
// net.Pipe, completes capabilities exchange, then drives a CCR from the
// "client" side through a Router-backed "server" side and back, the way
// node.Node's handleInbound loop would once a real socket is accepted.
func TestEndToEndCreditControlOverPipe(t *testing.T) {
	c1, c2 := net.Pipe()
	clientIdentity := command.Identity{
		OriginHost:    "client.example.com",
		OriginRealm:   "example.com",
		HostAddresses: []net.IP{net.ParseIP("10.0.0.1")},
		AuthAppIDs:    []uint32{command.CreditControlApplicationID},
	}
	serverIdentity := command.Identity{
		OriginHost:    "server.example.com",
		OriginRealm:   "example.com",
		HostAddresses: []net.IP{net.ParseIP("10.0.0.2")},
		AuthAppIDs:    []uint32{command.CreditControlApplicationID},
	}
	client := peer.New(transport.NewConnFromNetConn(c1, transport.ProtoTCP, nil), peer.RoleInitiator, clientIdentity, nil, 0)
	server := peer.New(transport.NewConnFromNetConn(c2, transport.ProtoTCP, nil), peer.RoleResponder, serverIdentity, nil, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go client.RunWriter(ctx)
	go server.RunWriter(ctx)

	openDone := make(chan error, 1)
	go func() { openDone <- client.Open(ctx) }()

	cer, err := server.Conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if err := server.Dispatch(ctx, cer); err != nil {
		t.Fatal(err)
	}
	if err := <-openDone; err != nil {
		t.Fatal(err)
	}
	go client.RunReader(ctx)

	app := NewCreditControlApplication(serverIdentity.OriginHost, serverIdentity.OriginRealm)
	app.Fund("imsi-001", 10)
	serverRouter := newRouter(SingleTaskRuntime{}, nil)
	serverRouter.RegisterApplication(app, command.CodeCreditControl)

	go func() {
		msg, err := server.Conn.ReadMessage()
		if err != nil {
			return
		}
		ans, err := serverRouter.HandleRequest(ctx, msg)
		if err == nil && ans != nil {
			server.Send(ans)
		}
	}()

	clientRouter := newRouter(SingleTaskRuntime{}, nil)
	np := &nodePeer{name: "server", peer: client, hopByHop: NewHopByHopGenerator()}
	clientRouter.addPeer("server", np)

	req, err := command.NewCCR(command.CreditControlRequest{
		SessionID:        "session;42",
		OriginHost:       clientIdentity.OriginHost,
		OriginRealm:      clientIdentity.OriginRealm,
		DestinationRealm: serverIdentity.OriginRealm,
		ServiceContextID: "gy.example.com",
		RequestType:      avp.CCRequestTypeInitial,
		RequestNumber:    0,
		SubscriptionIDs:  []command.SubscriptionID{{Type: 1, Data: "imsi-001"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	ans, err := clientRouter.SendRequest(ctx, "server", req)
	if err != nil {
		t.Fatal(err)
	}
	checkResultCode(t, ans, uint32(diammsg.Success))
}
