package stdlib

import (
	"context"

	"github.com/sirupsen/logrus"

	"komrad/pkg/kagent"
	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/keval"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// ListAgent owns an ordered sequence of Values, addressable through
// the items/add/get/length/foreach protocol. It is
// the Channel an evaluated List expression reduces to.
type ListAgent struct {
	native *kagent.NativeAgent
	eval   *keval.Evaluator
	items  []kvalue.Value
}

// NewListAgent constructs a ListAgent seeded with items. Unlike the
// Rust source's Arc<RwLock<Vec<Value>>>, state here needs no lock:
// kagent.NativeAgent's loop already serializes every handle call onto
// one goroutine.
func NewListAgent(ev *keval.Evaluator, capacity int, items []kvalue.Value) *ListAgent {
	la := &ListAgent{eval: ev, items: append([]kvalue.Value(nil), items...)}
	la.native = kagent.NewNative("List", capacity, la.handle, nil)
	return la
}

func (la *ListAgent) Channel() kchannel.Channel     { return la.native.Channel() }
func (la *ListAgent) Start(ctx context.Context)     { la.native.Start(ctx) }
func (la *ListAgent) Stop(ctx context.Context) error { return la.native.Stop(ctx) }
func (la *ListAgent) Wait()                         { la.native.Wait() }

func (la *ListAgent) handle(ctx context.Context, msg kast.Message) {
	cmd, ok := msg.FirstWord()
	if !ok {
		return
	}
	switch cmd {
	case "items":
		reply(msg, kvalue.ListV(append([]kvalue.Value(nil), la.items...)))
	case "add":
		la.handleAdd(msg)
	case "get":
		la.handleGet(msg)
	case "length":
		reply(msg, kvalue.Num(kvalue.Int(int64(len(la.items)))))
	case "foreach":
		la.foreach(ctx, msg)
	}
}

func (la *ListAgent) handleAdd(msg kast.Message) {
	if len(msg.Terms) < 2 {
		reply(msg, kvalue.TypeMismatch("add requires one value"))
		return
	}
	la.items = append(la.items, msg.Terms[1])
	reply(msg, kvalue.Str("ok"))
}

func (la *ListAgent) handleGet(msg kast.Message) {
	if len(msg.Terms) < 2 || msg.Terms[1].Kind != kvalue.KindNumber {
		reply(msg, kvalue.TypeMismatch("get requires a numeric index"))
		return
	}
	idx, ok := asIndex(msg.Terms[1].Num)
	if !ok || idx < 0 || idx >= len(la.items) {
		reply(msg, kvalue.Empty())
		return
	}
	reply(msg, la.items[idx])
}

// foreach implements the bare "iterate, no reply" protocol; each
// iteration runs the body in a fresh, parentless scope with the loop
// variable bound. Unlike the source, which silently ignores an Error
// body result and keeps iterating, this stops at the first Error and
// logs it rather than continuing over a broken iteration.
func (la *ListAgent) foreach(ctx context.Context, msg kast.Message) {
	if len(msg.Terms) < 3 || msg.Terms[1].Kind != kvalue.KindWord {
		return
	}
	block, ok := msg.Terms[2].Block.(*kast.Block)
	if msg.Terms[2].Kind != kvalue.KindBlock || !ok {
		return
	}
	name := msg.Terms[1].Word
	for _, item := range la.items {
		iterScope := kscope.New()
		iterScope.Set(name, item)
		result := la.eval.ExecBlock(ctx, block, iterScope)
		if result.IsError() {
			logrus.WithField("component", "kagents.stdlib.list").
				WithField("error", result.String()).
				Warn("foreach body produced an error, stopping iteration")
			return
		}
	}
}

func asIndex(n kvalue.Number) (int, bool) {
	switch n.Kind {
	case kvalue.NumberInt:
		return int(n.Int), true
	case kvalue.NumberUInt:
		return int(n.UInt), true
	default:
		return 0, false
	}
}
