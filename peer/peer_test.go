package peer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/arkenstone-tel/diameter/command"
	"github.com/arkenstone-tel/diameter/transport"
)

func pipePeers(t *testing.T) (*Peer, *Peer) {
	t.Helper()
	c1, c2 := net.Pipe()
	initiator := New(transport.NewConnFromNetConn(c1, transport.ProtoTCP, nil), RoleInitiator, command.Identity{
		OriginHost:    "client.example.com",
		OriginRealm:   "example.com",
		HostAddresses: []net.IP{net.ParseIP("10.0.0.1")},
		VendorID:      99999,
		AuthAppIDs:    []uint32{command.CreditControlApplicationID},
	}, nil, 0)
	responder := New(transport.NewConnFromNetConn(c2, transport.ProtoTCP, nil), RoleResponder, command.Identity{
		OriginHost:    "server.example.com",
		OriginRealm:   "example.com",
		HostAddresses: []net.IP{net.ParseIP("10.0.0.2")},
		VendorID:      99999,
		AuthAppIDs:    []uint32{command.CreditControlApplicationID},
	}, nil, 0)
	return initiator, responder
}

func TestCapabilitiesExchangeReachesOpen(t *testing.T) {
	initiator, responder := pipePeers(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go initiator.RunWriter(ctx)
	go responder.RunWriter(ctx)

	done := make(chan error, 1)
	go func() { done <- initiator.Open(ctx) }()

	msg, err := responder.Conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if err := responder.Dispatch(ctx, msg); err != nil {
		t.Fatal(err)
	}

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if initiator.State() != IOpen {
		t.Fatalf("initiator state = %s, want I-Open", initiator.State())
	}
	if responder.State() != ROpen {
		t.Fatalf("responder state = %s, want R-Open", responder.State())
	}
	if initiator.Remote.OriginHost != "server.example.com" {
		t.Fatalf("initiator did not record remote identity: %+v", initiator.Remote)
	}
}

func TestElectDeterminesWinnerSymmetrically(t *testing.T) {
	if !Elect("z.example.com", "a.example.com") {
		t.Fatal("lexicographically larger Origin-Host should win")
	}
	if Elect("a.example.com", "z.example.com") {
		t.Fatal("lexicographically smaller Origin-Host should lose")
	}
}

func TestOutstandingTableResolvesByHopByHopID(t *testing.T) {
	table := NewOutstandingTable()
	req, err := command.NewDWR("client.example.com", "example.com", 1)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.HopByHopID = 42
	ch := table.Register(req)

	ans, err := command.NewDWA(req, "server.example.com", "example.com", 1, 2001)
	if err != nil {
		t.Fatal(err)
	}
	if !table.Resolve(ans) {
		t.Fatal("expected Resolve to find the outstanding request")
	}
	select {
	case got := <-ch:
		if got.Header.HopByHopID != 42 {
			t.Fatalf("got hop-by-hop id %d, want 42", got.Header.HopByHopID)
		}
	default:
		t.Fatal("answer channel was not delivered")
	}
}
