package response

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/kvalue"
)

func buildAndFinish(t *testing.T, cmds ...kast.Message) kvalue.Value {
	t.Helper()
	replyChan, replyListener := kchannel.New(1)
	a := New("resp", 8, replyChan)
	a.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, m := range cmds {
		require.NoError(t, a.Channel().Send(ctx, m))
	}

	msg, ok := replyListener.Recv(ctx)
	require.True(t, ok)
	require.Len(t, msg.Terms, 1)
	return msg.Terms[0]
}

func tell(terms ...kvalue.Value) kast.Message { return kast.NewMessage(terms, nil) }

func TestTextResponseProducesFiveElementTuple(t *testing.T) {
	tuple := buildAndFinish(t, tell(kvalue.WordV("text"), kvalue.Str("hello")))
	require.True(t, tuple.IsList())
	require.Len(t, tuple.List, 5)

	status, headers, cookies, body, ws := tuple.List[0], tuple.List[1], tuple.List[2], tuple.List[3], tuple.List[4]
	assert.True(t, status.Equal(kvalue.Num(kvalue.UInt(200))))
	assert.True(t, headers.IsList())
	assert.True(t, cookies.IsList())
	assert.Equal(t, "hello", string(body.Bytes))
	assert.True(t, ws.IsEmpty())
}

func TestSetStatusAndHeaderBeforeFinish(t *testing.T) {
	tuple := buildAndFinish(t,
		tell(kvalue.WordV("set-status"), kvalue.Num(kvalue.UInt(201))),
		tell(kvalue.WordV("set-header"), kvalue.Str("X-Test"), kvalue.Str("yes")),
		tell(kvalue.WordV("finish")),
	)
	status := tuple.List[0]
	assert.True(t, status.Equal(kvalue.Num(kvalue.UInt(201))))

	headers := tuple.List[1].List
	require.Len(t, headers, 1)
	assert.Equal(t, "X-Test", headers[0].List[0].Str)
	assert.Equal(t, "yes", headers[0].List[1].Str)
}

func TestFinishIsIdempotent(t *testing.T) {
	replyChan, replyListener := kchannel.New(2)
	a := New("resp", 8, replyChan)
	a.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Channel().Send(ctx, tell(kvalue.WordV("text"), kvalue.Str("first"))))
	require.NoError(t, a.Channel().Send(ctx, tell(kvalue.WordV("text"), kvalue.Str("second"))))

	_, ok := replyListener.Recv(ctx)
	require.True(t, ok)

	shortCtx, cancel2 := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel2()
	_, ok = replyListener.Recv(shortCtx)
	assert.False(t, ok, "finish must send exactly one reply, never a second")
}

func TestWebsocketDelegateSetsUpgradeHeaders(t *testing.T) {
	delegateCh, _ := kchannel.New(1)
	tuple := buildAndFinish(t, tell(kvalue.WordV("websocket"), kvalue.ChanV(delegateCh)))

	assert.True(t, tuple.List[0].Equal(kvalue.Num(kvalue.UInt(101))))
	assert.True(t, tuple.List[4].IsChannel())
}

func TestErrorCommandSets500(t *testing.T) {
	tuple := buildAndFinish(t, tell(kvalue.WordV("error"), kvalue.Str("boom")))
	assert.True(t, tuple.List[0].Equal(kvalue.Num(kvalue.UInt(500))))
	assert.Contains(t, string(tuple.List[3].Bytes), "boom")
}
