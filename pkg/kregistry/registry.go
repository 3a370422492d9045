// Package kregistry implements the Registry agent and the `agent`/
// `spawn` syntax proxies.
//
// Grounded on original_source/crates/komrad-agents/src/registry_agent.rs,
// whose handle_message switches on the message's first Word and
// validates arity/keyword/type term-by-term. One deliberate departure
// from that source: its "spawn" branch only fabricates a bare,
// listener-less Channel on success. Spawning here must actually
// materialize a running Dynamic agent, so this package builds and
// starts one via pkg/kdynagent.
package kregistry

import (
	"context"
	"sync"

	"komrad/pkg/kagent"
	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/kdynagent"
	"komrad/pkg/keval"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// Registry stores agent blueprints by name and spawns fresh Dynamic
// agent instances on request.
type Registry struct {
	mu        sync.RWMutex
	blueprints map[string]*kast.Block

	spawnedMu sync.Mutex
	spawned   []kchannel.Channel

	native *kagent.NativeAgent
	eval   *keval.Evaluator

	ambientMu sync.RWMutex
	ambient   kdynagent.Ambient

	rootScope *kscope.Scope
	capacity  int
}

// SetAmbient updates the ambient bindings handed to every subsequently
// spawned Dynamic agent. Exists because the Registry, the agent/spawn
// proxies, and the IO agent are mutually bootstrapping: the proxies
// need the Registry's Channel to exist first, so its full ambient set
// is only known a moment after the Registry itself is constructed.
func (r *Registry) SetAmbient(a kdynagent.Ambient) {
	r.ambientMu.Lock()
	r.ambient = a
	r.ambientMu.Unlock()
}

func (r *Registry) getAmbient() kdynagent.Ambient {
	r.ambientMu.RLock()
	defer r.ambientMu.RUnlock()
	return r.ambient
}

// New constructs a Registry agent. ambient is propagated to every
// Dynamic agent spawned through this Registry; rootScope
// is the lexical parent of each spawned agent's own scope.
func New(ev *keval.Evaluator, rootScope *kscope.Scope, ambient kdynagent.Ambient, capacity int) *Registry {
	r := &Registry{
		blueprints: make(map[string]*kast.Block),
		eval:       ev,
		ambient:    ambient,
		rootScope:  rootScope,
		capacity:   capacity,
	}
	r.native = kagent.NewNative("Registry", capacity, r.handle, r.children)
	return r
}

func (r *Registry) Channel() kchannel.Channel { return r.native.Channel() }
func (r *Registry) Start(ctx context.Context) { r.native.Start(ctx) }
func (r *Registry) Stop(ctx context.Context) error { return r.native.Stop(ctx) }
func (r *Registry) Wait() { r.native.Wait() }

func (r *Registry) children() []kchannel.Channel {
	r.spawnedMu.Lock()
	defer r.spawnedMu.Unlock()
	return append([]kchannel.Channel(nil), r.spawned...)
}

func (r *Registry) handle(ctx context.Context, msg kast.Message) {
	cmd, ok := msg.FirstWord()
	if !ok {
		return
	}
	switch cmd {
	case "define":
		r.handleDefine(msg)
	case "spawn":
		r.handleSpawn(ctx, msg)
	}
}

func invalidDefinition(msg kast.Message) {
	reply(msg, kvalue.Error(kvalue.ErrInvalidAgentDefinition))
}

func reply(msg kast.Message, v kvalue.Value) {
	if msg.ReplyTo == nil {
		return
	}
	ch, ok := msg.ReplyTo.(kchannel.Channel)
	if !ok {
		return
	}
	_ = ch.Send(context.Background(), kast.NewMessage([]kvalue.Value{v}, nil))
}

// handleDefine implements `define agent <Name> <Block>`. Arity and keyword/type checks mirror registry_agent.rs term
// for term.
func (r *Registry) handleDefine(msg kast.Message) {
	terms := msg.Terms
	if len(terms) < 4 {
		invalidDefinition(msg)
		return
	}
	if terms[1].Kind != kvalue.KindWord || terms[1].Word != "agent" {
		invalidDefinition(msg)
		return
	}
	if terms[2].Kind != kvalue.KindWord {
		invalidDefinition(msg)
		return
	}
	name := terms[2].Word
	block, ok := terms[3].Block.(*kast.Block)
	if terms[3].Kind != kvalue.KindBlock || !ok {
		invalidDefinition(msg)
		return
	}

	r.mu.Lock()
	r.blueprints[name] = block // last-writer-wins
	r.mu.Unlock()

	reply(msg, kvalue.Str("defined"))
}

// handleSpawn implements `spawn agent <Name>`: a fresh
// Channel every call, even for the same Name.
func (r *Registry) handleSpawn(ctx context.Context, msg kast.Message) {
	terms := msg.Terms
	if len(terms) < 3 {
		invalidDefinition(msg)
		return
	}
	if terms[1].Kind != kvalue.KindWord || terms[1].Word != "agent" {
		invalidDefinition(msg)
		return
	}
	if terms[2].Kind != kvalue.KindWord {
		invalidDefinition(msg)
		return
	}
	name := terms[2].Word

	r.mu.RLock()
	block, found := r.blueprints[name]
	r.mu.RUnlock()
	if !found {
		reply(msg, kvalue.Error(kvalue.ErrAgentNotFound))
		return
	}

	spawned := kdynagent.Build(name, block, r.rootScope, r.eval, r.getAmbient(), r.capacity)
	if err := spawned.Start(ctx); err != nil {
		reply(msg, kvalue.ErrV(kvalue.RuntimeError{Kind: kvalue.ErrInvalidAgentDefinition, Message: err.Error()}))
		return
	}

	ch := spawned.Channel()
	r.spawnedMu.Lock()
	r.spawned = append(r.spawned, ch)
	r.spawnedMu.Unlock()

	reply(msg, kvalue.ChanV(ch))
}

// AgentProxy forwards `<Name> <Block>` as `define agent <Name> <Block>`
// to the Registry. It is bound as the word `agent` in
// each new agent's scope.
func NewAgentProxy(capacity int, registry kchannel.Channel) *kagent.NativeAgent {
	return kagent.NewNative("agent-proxy", capacity, func(ctx context.Context, msg kast.Message) {
		terms := msg.Terms
		if len(terms) < 2 || terms[0].Kind != kvalue.KindWord {
			invalidDefinition(msg)
			return
		}
		forwarded := append([]kvalue.Value{kvalue.WordV("define"), kvalue.WordV("agent")}, terms...)
		forward(ctx, registry, msg, forwarded)
	}, nil)
}

// SpawnProxy forwards `<Name>` as `spawn agent <Name>` to the
// Registry. Bound as the word `spawn`.
func NewSpawnProxy(capacity int, registry kchannel.Channel) *kagent.NativeAgent {
	return kagent.NewNative("spawn-proxy", capacity, func(ctx context.Context, msg kast.Message) {
		terms := msg.Terms
		if len(terms) < 1 || terms[0].Kind != kvalue.KindWord {
			invalidDefinition(msg)
			return
		}
		forwarded := append([]kvalue.Value{kvalue.WordV("spawn"), kvalue.WordV("agent")}, terms...)
		forward(ctx, registry, msg, forwarded)
	}, nil)
}

// forward re-issues terms to registry as an ask (when the original
// caller wants a reply) or a tell, and relays the registry's reply
// back to the original caller.
func forward(ctx context.Context, registry kchannel.Channel, original kast.Message, terms []kvalue.Value) {
	if original.ReplyTo == nil {
		_ = registry.Send(ctx, kast.NewMessage(terms, nil))
		return
	}
	replyChan, replyListener := kchannel.New(kchannel.ReplyCapacity)
	if err := registry.Send(ctx, kast.NewMessage(terms, replyChan)); err != nil {
		reply(original, kvalue.Error(kvalue.ErrSendError))
		return
	}
	replyMsg, ok := replyListener.Recv(ctx)
	if !ok {
		reply(original, kvalue.Error(kvalue.ErrReceiveError))
		return
	}
	if len(replyMsg.Terms) == 0 {
		reply(original, kvalue.Empty())
		return
	}
	reply(original, replyMsg.Terms[0])
}
