// Package kruntime is Komrad's embedder-facing facade:
// build an agent from a parsed Block, send/ask on its Channel, and
// the default ambient bindings every new agent's scope may inherit.
//
// It is the one package allowed to import every runtime subpackage —
// including pkg/kagents/stdlib, which pkg/keval cannot import
// directly without a cycle (pkg/keval.Hooks.SpawnList is wired here).
package kruntime

import (
	"context"

	"komrad/internal/config"
	"komrad/pkg/kagent"
	"komrad/pkg/kagents/stdlib"
	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/kdynagent"
	"komrad/pkg/keval"
	"komrad/pkg/kregistry"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// Runtime owns the shared singletons every spawned agent sees through
// its ambient bindings: the Registry, the agent/spawn syntax proxies,
// and the IO agent.
type Runtime struct {
	cfg config.Runtime

	ctx    context.Context
	cancel context.CancelFunc

	eval     *keval.Evaluator
	rootScope *kscope.Scope

	registry    *kregistry.Registry
	agentProxy  *kagent.NativeAgent
	spawnProxy  *kagent.NativeAgent
	io          *stdlib.IOAgent
}

// New builds and starts the ambient singleton agents. The returned
// Runtime's Ambient() is ready to inject into any Dynamic agent built
// through it.
func New(ctx context.Context, cfg config.Runtime) *Runtime {
	rt := &Runtime{cfg: cfg, rootScope: kscope.New()}
	rt.ctx, rt.cancel = context.WithCancel(ctx)

	rt.eval = keval.New(keval.Hooks{SpawnList: rt.spawnList})

	rt.registry = kregistry.New(rt.eval, rt.rootScope, kdynagent.Ambient{}, cfg.ChannelCapacity)
	rt.agentProxy = kregistry.NewAgentProxy(cfg.ChannelCapacity, rt.registry.Channel())
	rt.spawnProxy = kregistry.NewSpawnProxy(cfg.ChannelCapacity, rt.registry.Channel())
	rt.io = stdlib.NewIOAgent(nil, cfg.ChannelCapacity)

	// The Registry needs the proxies' Channels to hand out as ambient
	// bindings, but the proxies need the Registry's Channel to forward
	// to — mutually bootstrapping, so the ambient set is patched in
	// once every Channel exists but before anything is spawned through
	// it.
	rt.registry.SetAmbient(rt.Ambient())

	rt.registry.Start(rt.ctx)
	rt.agentProxy.Start(rt.ctx)
	rt.spawnProxy.Start(rt.ctx)
	rt.io.Start(rt.ctx)

	return rt
}

// Ambient returns the well-known Channels a new agent's scope should
// inherit.
func (rt *Runtime) Ambient() kdynagent.Ambient {
	return kdynagent.Ambient{
		AgentProxy: rt.agentProxy.Channel(),
		SpawnProxy: rt.spawnProxy.Channel(),
		Registry:   rt.registry.Channel(),
		IO:         rt.io.Channel(),
	}
}

// CreateAgent builds and starts a Dynamic agent from a parsed Block,
// returning its Channel.
func (rt *Runtime) CreateAgent(name string, block *kast.Block, initialScope *kscope.Scope) (kchannel.Channel, error) {
	if initialScope == nil {
		initialScope = rt.rootScope
	}
	a := kdynagent.Build(name, block, initialScope, rt.eval, rt.Ambient(), rt.cfg.ChannelCapacity)
	if err := a.Start(rt.ctx); err != nil {
		return kchannel.Channel{}, err
	}
	return a.Channel(), nil
}

// CreateAgentFactory returns a function that builds a fresh instance
// of the same block against a caller-supplied scope — the shape the
// Registry-proxy case needs.
func (rt *Runtime) CreateAgentFactory(name string, block *kast.Block) func(scope *kscope.Scope) (kchannel.Channel, error) {
	return func(scope *kscope.Scope) (kchannel.Channel, error) {
		return rt.CreateAgent(name, block, scope)
	}
}

// Send performs a tell.
func (rt *Runtime) Send(ch kchannel.Channel, terms []kvalue.Value) error {
	return ch.Send(rt.ctx, kast.NewMessage(terms, nil))
}

// Ask performs a synchronous ask, returning the first reply term or
// an Error.
func (rt *Runtime) Ask(ch kchannel.Channel, terms []kvalue.Value) kvalue.Value {
	replyChan, replyListener := kchannel.New(kchannel.ReplyCapacity)
	if err := ch.Send(rt.ctx, kast.NewMessage(terms, replyChan)); err != nil {
		return kvalue.Error(kvalue.ErrSendError)
	}
	reply, ok := replyListener.Recv(rt.ctx)
	if !ok {
		return kvalue.Error(kvalue.ErrReceiveError)
	}
	if len(reply.Terms) == 0 {
		return kvalue.Empty()
	}
	return reply.Terms[0]
}

// Shutdown cancels the runtime context, stopping every agent spawned
// through it.
func (rt *Runtime) Shutdown() {
	rt.cancel()
}

// spawnList is the keval.Hooks.SpawnList implementation: it is the
// one place pkg/keval reaches into pkg/kagents/stdlib, done here
// (rather than in keval itself) to keep keval free of a dependency on
// the agent runtime that depends on keval.
func (rt *Runtime) spawnList(ctx context.Context, items []kvalue.Value) kvalue.Value {
	la := stdlib.NewListAgent(rt.eval, rt.cfg.ChannelCapacity, items)
	la.Start(ctx)
	return kvalue.ChanV(la.Channel())
}
