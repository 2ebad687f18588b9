package node

import (
	"context"
	"sync"

	"github.com/arkenstone-tel/diameter/avp"
	"github.com/arkenstone-tel/diameter/command"
	"github.com/arkenstone-tel/diameter/diammsg"
)

// CreditControlApplication is a minimal RFC 4006 Gy server: it tracks
// one balance per Subscription-Id. CCR-Initial and CCR-Update get
// DIAMETER_SUCCESS while that balance is above zero, and otherwise
// ResourcesExceeded (standing in for DIAMETER_CREDIT_LIMIT_REACHED 4012,
// which is not in this codec's result-code table). CCR-Event always gets
// DIAMETER_SUCCESS, and CCR-Termination deletes the balance entry. No
// units are deducted from a balance. This is enough to exercise the command/creditcontrol.go
// codec end to end; real rating logic belongs to whatever backend a
// deployment plugs in.
type CreditControlApplication struct {
	originHost, originRealm string

	mu       sync.Mutex
	balances map[string]int64 // keyed by the first Subscription-Id's Data
}

// NewCreditControlApplication builds a Gy server application advertising
// originHost/originRealm in its CCAs (normally the owning Node's identity).
func NewCreditControlApplication(originHost, originRealm string) *CreditControlApplication {
	return &CreditControlApplication{
		originHost: originHost,
		originRealm: originRealm,
		balances:   make(map[string]int64),
	}
}

func (a *CreditControlApplication) ApplicationID() uint32 { return command.CreditControlApplicationID }
func (a *CreditControlApplication) Kind() ApplicationKind { return KindAuth }

// Fund credits subscriberID with units, for tests and operator tooling
// to seed a balance before a CCR-Initial arrives.
func (a *CreditControlApplication) Fund(subscriberID string, units int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[subscriberID] += units
}

func (a *CreditControlApplication) HandleRequest(ctx context.Context, req *diammsg.Message) *diammsg.Message {
	ccr := command.ParseCCR(req)
	subscriberID := ""
	if len(ccr.SubscriptionIDs) > 0 {
		subscriberID = ccr.SubscriptionIDs[0].Data
	}

	resultCode := uint32(diammsg.Success)
	if ccr.RequestType == avp.CCRequestTypeInitial || ccr.RequestType == avp.CCRequestTypeUpdate {
		a.mu.Lock()
		if a.balances[subscriberID] <= 0 {
			resultCode = uint32(diammsg.ResourcesExceeded)
		}
		a.mu.Unlock()
	}
	if ccr.RequestType == avp.CCRequestTypeTermination {
		a.mu.Lock()
		delete(a.balances, subscriberID)
		a.mu.Unlock()
	}

	ans, err := command.NewCCA(req, a.originHost, a.originRealm, resultCode, ccr.RequestType, ccr.RequestNumber)
	if err != nil {
		return nil
	}
	return ans
}
