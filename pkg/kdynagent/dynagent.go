// Package kdynagent builds a running agent from a parsed Block: the
// Dynamic agent builder.
//
// Grounded on original_source/crates/komrad-agents/src/dynamic_agent.rs:
// DynamicAgent::from_block constructs a scope, binds `me`, imports
// ambient channels, then walks the block once — Handler statements
// are collected into the dispatch table, every other statement is
// executed immediately (this is how field initializers run).
package kdynagent

import (
	"context"

	"komrad/pkg/kagent"
	"komrad/pkg/kast"
	"komrad/pkg/keval"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// Ambient holds the well-known Channels a new agent's scope inherits:
// agent-proxy, spawn-proxy, Registry, IO. Any zero (unset) ChannelRef
// is simply not bound.
type Ambient struct {
	AgentProxy kvalue.ChannelRef
	SpawnProxy kvalue.ChannelRef
	Registry   kvalue.ChannelRef
	IO         kvalue.ChannelRef
}

// Build constructs, but does not start, a Dynamic agent from body in
// the lexical context of parent. It returns the unstarted *kagent.Agent;
// callers spawn it by calling Start.
//
// The returned agent's init hook performs the block walk: collecting
// Handler statements and executing every other statement immediately,
// against the very scope the agent will run with — so `me` and field
// initializers are visible to the first handler dispatch.
func Build(name string, body *kast.Block, parent *kscope.Scope, ev *keval.Evaluator, ambient Ambient, capacity int) *kagent.Agent {
	scope := kscope.WithParent(parent)

	var self kvalue.ChannelRef
	a := kagent.New(name, capacity, scope, ev, func(ctx context.Context, s *kscope.Scope) error {
		bindAmbient(s, self, ambient)
		for _, stmt := range body.Statements {
			if stmt.Kind == kast.StmtHandler {
				s.AddHandler(stmt.Handler)
				continue
			}
			ev.ExecStatement(ctx, stmt, s)
		}
		return nil
	}, nil)

	self = a.Channel()
	return a
}

func bindAmbient(s *kscope.Scope, me kvalue.ChannelRef, ambient Ambient) {
	if me != nil {
		s.Set("me", kvalue.ChanV(me))
	}
	if ambient.AgentProxy != nil {
		s.Set("agent", kvalue.ChanV(ambient.AgentProxy))
	}
	if ambient.SpawnProxy != nil {
		s.Set("spawn", kvalue.ChanV(ambient.SpawnProxy))
	}
	if ambient.Registry != nil {
		s.Set("Registry", kvalue.ChanV(ambient.Registry))
	}
	if ambient.IO != nil {
		s.Set("IO", kvalue.ChanV(ambient.IO))
	}
}
