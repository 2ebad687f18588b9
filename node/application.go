package node

import (
	"context"
	"fmt"

	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/arkenstone-tel/diameter/command"
	"github.com/arkenstone-tel/diameter/diammsg"
)

// ApplicationKind distinguishes auth from acct applications for the
// purposes of capability negotiation (RFC 6733 §2.4).
type ApplicationKind int

const (
	KindAuth ApplicationKind = iota
	KindAcct
)

// Application is one Diameter application this node serves: Credit-
// Control (RFC 4006), a base-protocol session application, or any
// other application id a caller registers a handler for.
type Application interface {
	ApplicationID() uint32
	Kind() ApplicationKind
	HandleRequest(ctx context.Context, req *diammsg.Message) *diammsg.Message
}

// ApplicationFunc adapts a plain function to the Application interface
// for the common case of a stateless handler.
type ApplicationFunc struct {
	ID       uint32
	AppKind  ApplicationKind
	Handler  func(ctx context.Context, req *diammsg.Message) *diammsg.Message
}

func (f ApplicationFunc) ApplicationID() uint32 { return f.ID }
func (f ApplicationFunc) Kind() ApplicationKind { return f.AppKind }
func (f ApplicationFunc) HandleRequest(ctx context.Context, req *diammsg.Message) *diammsg.Message {
	return f.Handler(ctx, req)
}

// Runtime executes inbound requests against a registered Application.
// WorkerPoolRuntime and SingleTaskRuntime are the two implementations a
// Router can be built with (spec.md-equivalent C9 application runtime).
type Runtime interface {
	Submit(ctx context.Context, app Application, req *diammsg.Message) (*diammsg.Message, error)
	WaitForReady(ctx context.Context) error
}

// WorkerPoolRuntime bounds concurrent request handling with an
// errgroup-managed pool, and recovers handler panics into a
// DIAMETER_UNABLE_TO_COMPLY answer rather than taking the whole node down.
type WorkerPoolRuntime struct {
	sem    chan struct{}
	logger logger
}

type logger interface {
	Log(keyvals ...interface{}) error
}

// NewWorkerPoolRuntime builds a runtime that runs at most maxConcurrent
// requests at once; excess calls to Submit block until a slot frees up.
func NewWorkerPoolRuntime(maxConcurrent int, log logger) *WorkerPoolRuntime {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &WorkerPoolRuntime{sem: make(chan struct{}, maxConcurrent), logger: log}
}

func (r *WorkerPoolRuntime) WaitForReady(ctx context.Context) error { return nil }

func (r *WorkerPoolRuntime) Submit(ctx context.Context, app Application, req *diammsg.Message) (*diammsg.Message, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.sem }()

	g, gctx := errgroup.WithContext(ctx)
	var answer *diammsg.Message
	g.Go(func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				level.Error(r.logger).Log("message", "application handler panicked", "application_id", app.ApplicationID(), "panic", rec)
				answer = unableToComplyAnswer(req)
			}
		}()
		answer = app.HandleRequest(gctx, req)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answer, nil
}

// SingleTaskRuntime runs each request to completion synchronously on the
// goroutine that calls Submit. It holds no lock and has no queue of its
// own, so requests are handled one at a time only when Submit is called
// from a single goroutine; node.Node calls it from a new goroutine per
// inbound request.
type SingleTaskRuntime struct{}

func (SingleTaskRuntime) WaitForReady(ctx context.Context) error { return nil }

func (SingleTaskRuntime) Submit(ctx context.Context, app Application, req *diammsg.Message) (ans *diammsg.Message, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ans = unableToComplyAnswer(req)
		}
	}()
	return app.HandleRequest(ctx, req), nil
}

func unableToComplyAnswer(req *diammsg.Message) *diammsg.Message {
	rc, err := command.ResultCodeAVP(uint32(diammsg.UnableToComply))
	if err != nil {
		panic(fmt.Sprintf("node: build result-code avp: %v", err))
	}
	ans, err := req.ToAnswer(rc)
	if err != nil {
		return nil
	}
	return ans
}
