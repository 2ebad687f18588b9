package peer

import (
	"sync"
	"time"

	"github.com/arkenstone-tel/diameter/diammsg"
)

// OutstandingRequest is a request this node sent and is still awaiting
// an answer for, tracked so the matching answer (or a timeout) can be
// routed back to the caller and, on peer failure, retried against a
// failover peer (spec.md §4.7 "failover").
type OutstandingRequest struct {
	Message *diammsg.Message
	SentAt  time.Time
	Answer  chan *diammsg.Message
}

// OutstandingTable correlates answers to requests by hop-by-hop id
// (RFC 6733 §3: "the Hop-by-Hop Identifier... aid in matching requests
// and replies"). One table is owned per peer connection.
type OutstandingTable struct {
	mu      sync.Mutex
	entries map[uint32]*OutstandingRequest
}

func NewOutstandingTable() *OutstandingTable {
	return &OutstandingTable{entries: make(map[uint32]*OutstandingRequest)}
}

// Register records a sent request, returning the channel its answer
// will be delivered on.
func (t *OutstandingTable) Register(msg *diammsg.Message) chan *diammsg.Message {
	ch := make(chan *diammsg.Message, 1)
	t.mu.Lock()
	t.entries[msg.Header.HopByHopID] = &OutstandingRequest{Message: msg, SentAt: time.Now(), Answer: ch}
	t.mu.Unlock()
	return ch
}

// Resolve delivers ans to the outstanding request it correlates with
// and removes the entry, reporting whether one was found.
func (t *OutstandingTable) Resolve(ans *diammsg.Message) bool {
	t.mu.Lock()
	req, ok := t.entries[ans.Header.HopByHopID]
	if ok {
		delete(t.entries, ans.Header.HopByHopID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	req.Answer <- ans
	close(req.Answer)
	return true
}

// Abandon removes an entry without delivering an answer, used when a
// request gives up waiting (its context ends) or could not be queued for
// sending. Entries left on disconnect are removed by DrainAll.
func (t *OutstandingTable) Abandon(hopByHopID uint32) (*OutstandingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.entries[hopByHopID]
	if ok {
		delete(t.entries, hopByHopID)
	}
	return req, ok
}

// DrainAll removes and returns every outstanding request, for failover
// when a peer connection is lost (spec.md §4.7).
func (t *OutstandingTable) DrainAll() []*OutstandingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*OutstandingRequest, 0, len(t.entries))
	for k, v := range t.entries {
		out = append(out, v)
		delete(t.entries, k)
	}
	return out
}

func (t *OutstandingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
