// Package kagent implements Komrad's per-agent actor loop: init,
// receive, dispatch, control, shutdown cascade.
//
// Grounded on pkg/agent/base_agent.go's BaseAgent (ctx/cancel +
// sync.WaitGroup lifecycle, a run() goroutine selecting on context
// cancellation vs. inbox) generalized to Komrad's two-queue mailbox
// (pkg/kchannel) and pattern-based dispatch (pkg/kbind) in place of
// BaseAgent's message-type-keyed handler map.
package kagent

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"komrad/pkg/kast"
	"komrad/pkg/kbind"
	"komrad/pkg/kchannel"
	"komrad/pkg/keval"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// InitFunc runs once before the main loop, with the scope lock held,
// then released before the first receive. May be nil.
type InitFunc func(ctx context.Context, scope *kscope.Scope) error

// ExtraSource is an agent-defined third event source — a cooperative
// timer or other stream that injects synthetic Messages alongside the
// data and control queues. May be nil.
type ExtraSource <-chan kast.Message

// Agent is a single cooperatively-scheduled mailbox owner: one Scope,
// one Channel, one Listener, processed by exactly one goroutine so
// that a message is never interleaved with another on the same agent.
type Agent struct {
	Name string

	channel  kchannel.Channel
	listener *kchannel.Listener
	scope    *kscope.Scope
	eval     *keval.Evaluator
	init     InitFunc
	extra    ExtraSource

	scopeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

// New constructs an agent with a fresh Channel of the given capacity.
// The agent is not yet running; call Start.
func New(name string, capacity int, scope *kscope.Scope, ev *keval.Evaluator, init InitFunc, extra ExtraSource) *Agent {
	ch, listener := kchannel.New(capacity)
	return &Agent{
		Name:     name,
		channel:  ch,
		listener: listener,
		scope:    scope,
		eval:     ev,
		init:     init,
		extra:    extra,
		log:      logrus.WithFields(logrus.Fields{"component": "kagent", "agent": name, "channel": ch.UUID()}),
	}
}

// Channel returns the agent's sending handle — the value published to
// other scopes so that peers can tell/ask this agent.
func (a *Agent) Channel() kchannel.Channel { return a.channel }

// Scope exposes the agent's own scope. Only the owning goroutine may
// mutate it outside of Start.
func (a *Agent) Scope() *kscope.Scope { return a.scope }

// Start runs the init hook with the scope lock held, releasing it
// before the main loop's first receive, then launches that loop in
// its own goroutine. Non-blocking.
func (a *Agent) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if a.init != nil {
		a.scopeMu.Lock()
		err := a.init(a.ctx, a.scope)
		a.scopeMu.Unlock()
		if err != nil {
			a.log.WithError(err).Warn("agent init failed")
			return err
		}
	}

	a.wg.Add(1)
	go a.run()
	return nil
}

// Stop sends a control Stop to this agent, asking its loop to begin
// the shutdown cascade. Safe to call multiple times.
func (a *Agent) Stop(ctx context.Context) error {
	return a.channel.Control(ctx, kchannel.ControlStop)
}

// Wait blocks until the agent's goroutine has exited.
func (a *Agent) Wait() { a.wg.Wait() }

// run is the main loop: three concurrently-awaited sources (data,
// control, optional extra), FIFO within each, no ordering guarantee
// between them.
func (a *Agent) run() {
	defer a.wg.Done()
	defer a.cancel()

	for {
		msg, isControl, control, ok := a.listener.Select(a.ctx, (<-chan kast.Message)(a.extra))
		if !ok {
			return
		}
		if isControl {
			if control == kchannel.ControlStop {
				a.shutdownCascade()
				return
			}
			continue
		}
		a.dispatch(msg)
	}
}

// dispatch walks the scope's observable handler list in declaration
// order, invoking kbind.Bind until one succeeds. An unmatched message is
// silently dropped — no reply is ever sent on its behalf, even if a
// reply channel was supplied.
func (a *Agent) dispatch(msg kast.Message) {
	for _, h := range a.scope.Handlers() {
		derived, matched := kbind.Bind(h.Pattern, msg, a.scope)
		if !matched {
			continue
		}
		result := a.eval.ExecBlock(a.ctx, h.Block, derived)
		if msg.ReplyTo != nil {
			a.reply(msg.ReplyTo, result)
		}
		return
	}
}

// reply sends a single-term Message carrying result back on the
// ephemeral ask channel. msg.ReplyTo is typed as kvalue.ChannelRef to
// keep kast decoupled from kchannel; here we recover the concrete
// Channel to actually send on it.
func (a *Agent) reply(to kvalue.ChannelRef, result kvalue.Value) {
	ch, ok := to.(kchannel.Channel)
	if !ok {
		a.log.Warn("reply target is not a concrete channel")
		return
	}
	if err := ch.Send(a.ctx, kast.NewMessage([]kvalue.Value{result}, nil)); err != nil {
		a.log.WithError(err).Debug("reply send failed, asker likely gone")
	}
}

// shutdownCascade iterates this agent's local scope bindings, sends a
// control Stop to every Channel-typed value exactly once, then
// terminates. Send failures are logged, never propagated (a peer that
// is already gone is not this agent's problem). Does not self-send a
// Stop to drain its own listener, since run's caller is already
// returning right after this call.
func (a *Agent) shutdownCascade() {
	for _, b := range a.scope.Iter() {
		if b.Value.Kind != kvalue.KindChannel || b.Value.Channel == nil {
			continue
		}
		ch, ok := b.Value.Channel.(kchannel.Channel)
		if !ok {
			continue
		}
		if err := ch.Control(context.Background(), kchannel.ControlStop); err != nil {
			a.log.WithError(err).WithField("binding", b.Name).Debug("shutdown cascade: child stop failed")
		}
	}
}
