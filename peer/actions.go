package peer

import (
	"context"
	"fmt"

	"github.com/go-kit/log/level"

	"github.com/arkenstone-tel/diameter/command"
	"github.com/arkenstone-tel/diameter/diammsg"
)

// actionSendCER sends this node's CER to open the handshake as initiator.
func actionSendCER(ctx context.Context, c *Context) (*Context, error) {
	msg, err := command.NewCER(c.Peer.Local)
	if err != nil {
		return c, err
	}
	c.Peer.Send(msg)
	return c, nil
}

// actionProcessCEA records the peer's advertised identity from a
// received CEA and fails the transition if negotiation did not succeed.
func actionProcessCEA(ctx context.Context, c *Context) (*Context, error) {
	identity, resultCode := command.ParseCEA(c.Msg)
	c.Peer.Remote = identity
	if !diammsg.ResultCode(resultCode).IsSuccess() {
		level.Warn(c.Peer.Logger).Log("message", "CEA reported failure", "result_code", resultCode)
		return c, fmt.Errorf("peer: capabilities exchange failed, result code %d", resultCode)
	}
	c.Peer.markOpen()
	level.Info(c.Peer.Logger).Log("message", "capabilities exchange complete", "remote", identity.OriginHost)
	return c, nil
}

// actionProcessCERAndAnswer handles an inbound CER on the responder
// side: record the peer's identity and answer with this node's own CEA.
func actionProcessCERAndAnswer(ctx context.Context, c *Context) (*Context, error) {
	c.Peer.Remote = command.ParseCER(c.Msg)
	resultCode := uint32(diammsg.Success)
	if !hasCommonApplication(c.Peer.Local, c.Peer.Remote) {
		resultCode = uint32(diammsg.NoCommonApplication)
	}
	ans, err := command.NewCEA(c.Msg, c.Peer.Local, resultCode)
	if err != nil {
		return c, err
	}
	c.Peer.Send(ans)
	level.Info(c.Peer.Logger).Log("message", "answered CER", "remote", c.Peer.Remote.OriginHost, "result_code", resultCode)
	return c, nil
}

// hasCommonApplication reports whether local and remote share at least
// one Auth- or Acct-Application-Id (RFC 6733 §5.3's negotiation rule).
func hasCommonApplication(local, remote command.Identity) bool {
	remoteApps := make(map[uint32]bool, len(remote.AuthAppIDs)+len(remote.AcctAppIDs))
	for _, id := range remote.AuthAppIDs {
		remoteApps[id] = true
	}
	for _, id := range remote.AcctAppIDs {
		remoteApps[id] = true
	}
	for _, id := range local.AuthAppIDs {
		if remoteApps[id] {
			return true
		}
	}
	for _, id := range local.AcctAppIDs {
		if remoteApps[id] {
			return true
		}
	}
	return len(remoteApps) == 0 && len(local.AuthAppIDs) == 0 && len(local.AcctAppIDs) == 0
}

// actionSendDPR sends a graceful-disconnect request (REBOOTING cause
// covers both shutdown and explicit Stop; callers that need BUSY or
// DO_NOT_WANT_TO_TALK_TO_YOU build their own DPR via the command package).
func actionSendDPR(ctx context.Context, c *Context) (*Context, error) {
	msg, err := command.NewDPR(c.Peer.Local.OriginHost, c.Peer.Local.OriginRealm, 0)
	if err != nil {
		return c, err
	}
	c.Peer.Send(msg)
	return c, nil
}

// actionSendDPA answers a received DPR.
func actionSendDPA(ctx context.Context, c *Context) (*Context, error) {
	ans, err := command.NewDPA(c.Msg, c.Peer.Local.OriginHost, c.Peer.Local.OriginRealm, uint32(diammsg.Success))
	if err != nil {
		return c, err
	}
	c.Peer.Send(ans)
	return c, nil
}

// actionProcessDWR answers an inbound DWR with a DWA.
func actionProcessDWR(ctx context.Context, c *Context) (*Context, error) {
	ans, err := command.NewDWA(c.Msg, c.Peer.Local.OriginHost, c.Peer.Local.OriginRealm, c.Peer.Local.OriginStateID, uint32(diammsg.Success))
	if err != nil {
		return c, err
	}
	c.Peer.Send(ans)
	return c, nil
}

// actionProcessDWA wakes up any Watchdog waiting on this DWA.
func actionProcessDWA(ctx context.Context, c *Context) (*Context, error) {
	c.Peer.notifyDWA()
	return c, nil
}

// actionDisconnect closes the transport connection.
func actionDisconnect(ctx context.Context, c *Context) (*Context, error) {
	_ = c.Peer.Conn.Close()
	return c, nil
}
