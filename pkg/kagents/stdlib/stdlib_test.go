package stdlib

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/keval"
	"komrad/pkg/kvalue"
)

func askList(t *testing.T, ch kchannel.Channel, terms ...kvalue.Value) kvalue.Value {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	replyChan, replyListener := kchannel.New(1)
	require.NoError(t, ch.Send(ctx, kast.NewMessage(terms, replyChan)))
	msg, ok := replyListener.Recv(ctx)
	require.True(t, ok)
	require.Len(t, msg.Terms, 1)
	return msg.Terms[0]
}

func TestListAgentAddGetLength(t *testing.T) {
	ev := keval.New(keval.Hooks{})
	la := NewListAgent(ev, 4, []kvalue.Value{kvalue.Num(kvalue.Int(1)), kvalue.Num(kvalue.Int(2))})
	la.Start(context.Background())
	defer la.Stop(context.Background())

	got := askList(t, la.Channel(), kvalue.WordV("length"))
	assert.True(t, got.Equal(kvalue.Num(kvalue.Int(2))))

	askList(t, la.Channel(), kvalue.WordV("add"), kvalue.Num(kvalue.Int(3)))
	got = askList(t, la.Channel(), kvalue.WordV("length"))
	assert.True(t, got.Equal(kvalue.Num(kvalue.Int(3))))

	got = askList(t, la.Channel(), kvalue.WordV("get"), kvalue.Num(kvalue.Int(2)))
	assert.True(t, got.Equal(kvalue.Num(kvalue.Int(3))))
}

func TestListAgentGetOutOfRangeIsEmpty(t *testing.T) {
	ev := keval.New(keval.Hooks{})
	la := NewListAgent(ev, 4, nil)
	la.Start(context.Background())
	defer la.Stop(context.Background())

	got := askList(t, la.Channel(), kvalue.WordV("get"), kvalue.Num(kvalue.Int(0)))
	assert.True(t, got.IsEmpty())
}

func TestListAgentForeachLeavesListUntouched(t *testing.T) {
	ev := keval.New(keval.Hooks{})
	la := NewListAgent(ev, 4, []kvalue.Value{kvalue.Num(kvalue.Int(1)), kvalue.Num(kvalue.Int(2))})
	la.Start(context.Background())
	defer la.Stop(context.Background())

	// Body divides 1 by the loop variable; the first iteration (n=1)
	// succeeds, forcing a division by zero would require n=0, so
	// instead assert the well-behaved path completes without panicking
	// and the list state is untouched.
	body := kast.NewBlock(kast.ExprStmt(kast.Binary(kast.OpDiv, kast.ValueExpr(kvalue.Num(kvalue.Int(1))), kast.Variable("n"))))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, la.Channel().Send(ctx, kast.NewMessage([]kvalue.Value{
		kvalue.WordV("foreach"), kvalue.WordV("n"), kvalue.BlockV(body),
	}, nil)))

	// foreach has no reply protocol; just confirm the list still answers.
	got := askList(t, la.Channel(), kvalue.WordV("length"))
	assert.True(t, got.Equal(kvalue.Num(kvalue.Int(2))))
}

func TestDictAgentBuildsInstanceFromBlock(t *testing.T) {
	ev := keval.New(keval.Hooks{})
	d := NewDictAgent(ev, 4)
	d.Start(context.Background())
	defer d.Stop(context.Background())

	block := kast.NewBlock(kast.Assign("name", kast.ValueExpr(kvalue.Str("Ada"))))
	inst := askList(t, d.Channel(), kvalue.BlockV(block))
	require.True(t, inst.IsChannel())

	instCh, ok := inst.Channel.(kchannel.Channel)
	require.True(t, ok)
	got := askList(t, instCh, kvalue.WordV("get"), kvalue.WordV("name"))
	assert.Equal(t, "Ada", got.Str)
}

func TestAssertAgentBooleanEchoAndTypeMismatch(t *testing.T) {
	a := NewAssertAgent(4)
	a.Start(context.Background())
	defer a.Stop(context.Background())

	assert.True(t, askList(t, a.Channel(), kvalue.Bool(true)).Bool)
	assert.False(t, askList(t, a.Channel(), kvalue.Bool(false)).Bool)

	result := askList(t, a.Channel(), kvalue.Str("not a bool"))
	require.True(t, result.IsError())
	assert.Equal(t, kvalue.ErrAssertionFailed, result.Err.Kind)
}

func TestIOAgentPrintlnWritesAndAcks(t *testing.T) {
	var buf bytes.Buffer
	io := NewIOAgent(&buf, 4)
	io.Start(context.Background())
	defer io.Stop(context.Background())

	got := askList(t, io.Channel(), kvalue.WordV("println"), kvalue.Str("hello"))
	assert.Equal(t, "ack", got.Str)
	assert.Contains(t, buf.String(), "hello")
}
