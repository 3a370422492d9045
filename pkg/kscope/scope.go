// Package kscope implements Komrad's lexically nested symbol table:
// an optional parent, local bindings, a handler list, and a dirty bit.
//
// Grounded on original_source/crates/komrad-types/src/scope.rs (an
// RwLock<HashMap> with a parent Box<Scope>), translated to Go's
// sync.RWMutex idiom — matching pkg/agent/base_agent.go's own
// `BaseAgent.mu sync.RWMutex` guard style.
package kscope

import (
	"komrad/pkg/kast"
	"komrad/pkg/kvalue"
	"sync"
)

// Scope is a lexically nested symbol table. A handler dispatch derives
// its per-message scope via Clone, which shares the owning scope's
// bindings map rather than copying it — see Clone's doc for why.
type Scope struct {
	mu       *sync.RWMutex
	parent   *Scope
	bindings map[string]kvalue.Value
	handlers []*kast.Handler
	dirty    bool
}

// New creates a root scope with no parent.
func New() *Scope {
	return &Scope{
		mu:       &sync.RWMutex{},
		bindings: make(map[string]kvalue.Value),
	}
}

// WithParent creates a scope lexically nested under parent, with its
// own independent bindings map — used when building a genuinely new
// agent scope (pkg/kdynagent), not when deriving a per-message
// dispatch scope (see Clone for that).
func WithParent(parent *Scope) *Scope {
	return &Scope{
		mu:       &sync.RWMutex{},
		parent:   parent,
		bindings: make(map[string]kvalue.Value),
	}
}

// Clone produces a scope that shares this scope's bindings map and
// mutex with the original, copying only the handler list and the
// parent pointer. A write through the clone's Set is a write into the
// very same map the original reads from — mirroring the source's
// Arc<RwLock<HashMap>> clone. This is how a per-message derived scope
// (pkg/kbind) can bind pattern holes and run handler-body assignments
// that are actually visible on the agent's own scope afterward,
// instead of vanishing with an isolated child scope.
func (s *Scope) Clone() *Scope {
	s.mu.RLock()
	handlers := append([]*kast.Handler(nil), s.handlers...)
	s.mu.RUnlock()
	return &Scope{
		mu:       s.mu,
		parent:   s.parent,
		bindings: s.bindings,
		handlers: handlers,
		dirty:    false,
	}
}

// Get walks the parent chain looking for name.
func (s *Scope) Get(name string) (kvalue.Value, bool) {
	s.mu.RLock()
	v, ok := s.bindings[name]
	s.mu.RUnlock()
	if ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.Get(name)
	}
	return kvalue.Value{}, false
}

// Set writes name locally, last-writer-wins.
func (s *Scope) Set(name string, v kvalue.Value) {
	s.mu.Lock()
	s.bindings[name] = v
	s.dirty = true
	s.mu.Unlock()
}

// IsDirty reports whether this scope has ever been written to. Not
// part of the observable contract — exposed for
// readers that want change notification as a best-effort hint.
func (s *Scope) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// AddHandler appends h to this scope's local handler list.
func (s *Scope) AddHandler(h *kast.Handler) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
}

// Handlers returns this scope's observable handler list: the local
// list followed by the parent's observable list, declaration order
// preserved. The returned slice is a snapshot clone so that concurrent
// appends never affect an in-flight dispatch.
func (s *Scope) Handlers() []*kast.Handler {
	s.mu.RLock()
	local := append([]*kast.Handler(nil), s.handlers...)
	s.mu.RUnlock()
	if s.parent == nil {
		return local
	}
	return append(local, s.parent.Handlers()...)
}

// Iter returns a snapshot of this scope's *local* (name, value) pairs
// only.
func (s *Scope) Iter() []Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Binding, 0, len(s.bindings))
	for k, v := range s.bindings {
		out = append(out, Binding{Name: k, Value: v})
	}
	return out
}

// Binding is a single (name, value) pair from Scope.Iter.
type Binding struct {
	Name  string
	Value kvalue.Value
}

// Parent exposes the lexical parent, or nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }
