package kagent

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
)

// HandleFunc is a bundled agent's native message handler — the
// hand-written equivalent of a Dynamic agent's pattern-matched
// dispatch.
type HandleFunc func(ctx context.Context, msg kast.Message)

// NativeAgent runs a hand-written HandleFunc loop instead of
// pattern-based dispatch. It shares Agent's queue discipline (data,
// control, cooperative single-goroutine processing) without requiring
// a kscope.Scope or kbind.Bind.
type NativeAgent struct {
	Name string

	channel  kchannel.Channel
	listener *kchannel.Listener
	handle   HandleFunc
	children func() []kchannel.Channel

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

// NewNative constructs a native agent. children, if non-nil, is
// polled at shutdown to run the cascade over
// Channels the agent holds outside of any Scope (e.g. a Registry's
// tracked spawns); pass nil when the agent holds none.
func NewNative(name string, capacity int, handle HandleFunc, children func() []kchannel.Channel) *NativeAgent {
	ch, listener := kchannel.New(capacity)
	return &NativeAgent{
		Name:     name,
		channel:  ch,
		listener: listener,
		handle:   handle,
		children: children,
		log:      logrus.WithFields(logrus.Fields{"component": "kagent.native", "agent": name, "channel": ch.UUID()}),
	}
}

func (n *NativeAgent) Channel() kchannel.Channel { return n.channel }

func (n *NativeAgent) Start(ctx context.Context) {
	n.ctx, n.cancel = context.WithCancel(ctx)
	n.wg.Add(1)
	go n.run()
}

func (n *NativeAgent) Stop(ctx context.Context) error {
	return n.channel.Control(ctx, kchannel.ControlStop)
}

func (n *NativeAgent) Wait() { n.wg.Wait() }

func (n *NativeAgent) run() {
	defer n.wg.Done()
	defer n.cancel()
	for {
		msg, isControl, control, ok := n.listener.Select(n.ctx, nil)
		if !ok {
			return
		}
		if isControl {
			if control == kchannel.ControlStop {
				n.shutdownCascade()
				return
			}
			continue
		}
		n.handle(n.ctx, msg)
	}
}

// shutdownCascade stops every tracked child Channel exactly once. Does
// not self-send a Stop to drain its own listener, since run returns
// right after this call.
func (n *NativeAgent) shutdownCascade() {
	if n.children == nil {
		return
	}
	for _, ch := range n.children() {
		if err := ch.Control(context.Background(), kchannel.ControlStop); err != nil {
			n.log.WithError(err).Debug("shutdown cascade: child stop failed")
		}
	}
}
