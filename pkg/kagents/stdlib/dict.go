package stdlib

import (
	"context"

	"komrad/pkg/kagent"
	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/keval"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// DictAgent turns a record-literal Block into a running
// DictInstanceAgent: sent a single Block term, it
// executes the block's assignments into a fresh scope and replies
// with the resulting instance's Channel.
type DictAgent struct {
	native   *kagent.NativeAgent
	eval     *keval.Evaluator
	capacity int
}

func NewDictAgent(ev *keval.Evaluator, capacity int) *DictAgent {
	d := &DictAgent{eval: ev, capacity: capacity}
	d.native = kagent.NewNative("Dict", capacity, d.handle, nil)
	return d
}

func (d *DictAgent) Channel() kchannel.Channel      { return d.native.Channel() }
func (d *DictAgent) Start(ctx context.Context)      { d.native.Start(ctx) }
func (d *DictAgent) Stop(ctx context.Context) error { return d.native.Stop(ctx) }
func (d *DictAgent) Wait()                          { d.native.Wait() }

func (d *DictAgent) handle(ctx context.Context, msg kast.Message) {
	if len(msg.Terms) < 1 {
		reply(msg, kvalue.TypeMismatch("Dict expects a block"))
		return
	}
	block, ok := msg.Terms[0].Block.(*kast.Block)
	if msg.Terms[0].Kind != kvalue.KindBlock || !ok {
		reply(msg, kvalue.TypeMismatch("Dict expects a block"))
		return
	}

	scope := kscope.New()
	d.eval.ExecBlock(ctx, block, scope)

	inst := NewDictInstanceAgent(scope, d.capacity)
	inst.Start(ctx)
	reply(msg, kvalue.ChanV(inst.Channel()))
}

// DictInstanceAgent answers `get key` against the scope it was built
// with.
type DictInstanceAgent struct {
	native *kagent.NativeAgent
	scope  *kscope.Scope
}

func NewDictInstanceAgent(scope *kscope.Scope, capacity int) *DictInstanceAgent {
	di := &DictInstanceAgent{scope: scope}
	di.native = kagent.NewNative("DictInstance", capacity, di.handle, nil)
	return di
}

func (di *DictInstanceAgent) Channel() kchannel.Channel      { return di.native.Channel() }
func (di *DictInstanceAgent) Start(ctx context.Context)      { di.native.Start(ctx) }
func (di *DictInstanceAgent) Stop(ctx context.Context) error { return di.native.Stop(ctx) }
func (di *DictInstanceAgent) Wait()                          { di.native.Wait() }

func (di *DictInstanceAgent) handle(ctx context.Context, msg kast.Message) {
	cmd, ok := msg.FirstWord()
	if !ok || cmd != "get" {
		return
	}
	if len(msg.Terms) < 2 || msg.Terms[1].Kind != kvalue.KindWord {
		reply(msg, kvalue.TypeMismatch("get requires a key"))
		return
	}
	v, found := di.scope.Get(msg.Terms[1].Word)
	if !found {
		reply(msg, kvalue.Empty())
		return
	}
	reply(msg, v)
}
