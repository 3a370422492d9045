package kagent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komrad/pkg/kast"
	"komrad/pkg/kbind"
	"komrad/pkg/kchannel"
	"komrad/pkg/keval"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

func pingPongScope() *kscope.Scope {
	scope := kscope.New()
	scope.AddHandler(kast.NewHandler(
		kast.NewPattern(kast.TWord("ping")),
		kast.NewBlock(kast.ExprStmt(kast.ValueExpr(kvalue.Str("pong")))),
	))
	return scope
}

func TestDispatchMatchesFirstHandlerAndReplies(t *testing.T) {
	ev := keval.New(keval.Hooks{})
	a := New("pinger", 4, pingPongScope(), ev, nil, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	replyChan, replyListener := kchannel.New(1)
	require.NoError(t, a.Channel().Send(ctx, kast.NewMessage([]kvalue.Value{kvalue.WordV("ping")}, replyChan)))

	msg, ok := replyListener.Recv(ctx)
	require.True(t, ok)
	require.Len(t, msg.Terms, 1)
	assert.Equal(t, "pong", msg.Terms[0].Str)
}

func TestShutdownCascadeStopsChildChannels(t *testing.T) {
	ev := keval.New(keval.Hooks{})
	scope := kscope.New()
	child, childListener := kchannel.New(4)
	scope.Set("worker", kvalue.ChanV(child))

	a := New("parent", 4, scope, ev, nil, nil)
	require.NoError(t, a.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(ctx))
	a.Wait()

	ctrl, ok := childListener.RecvControl(ctx)
	require.True(t, ok)
	assert.Equal(t, kchannel.ControlStop, ctrl)
}

func TestBindFailsClosedOnNoHandlerMatch(t *testing.T) {
	msg := kast.NewMessage([]kvalue.Value{kvalue.WordV("nope")}, nil)
	_, ok := kbind.Bind(kast.NewPattern(kast.TWord("ping")), msg, kscope.New())
	assert.False(t, ok)
}
