package kchannel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komrad/pkg/kast"
	"komrad/pkg/kvalue"
)

func TestNewAssignsDistinctUUIDs(t *testing.T) {
	a, _ := New(4)
	b, _ := New(4)
	assert.NotEqual(t, a.UUID(), b.UUID())
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
}

func TestNewZeroCapacityFallsBackToDefault(t *testing.T) {
	ch, _ := New(0)
	assert.False(t, ch.IsZero())
}

func TestSendRecvFIFO(t *testing.T) {
	ch, listener := New(4)
	ctx := context.Background()

	require.NoError(t, ch.Send(ctx, kast.NewMessage([]kvalue.Value{kvalue.WordV("first")}, nil)))
	require.NoError(t, ch.Send(ctx, kast.NewMessage([]kvalue.Value{kvalue.WordV("second")}, nil)))

	m1, ok := listener.Recv(ctx)
	require.True(t, ok)
	word, _ := m1.FirstWord()
	assert.Equal(t, "first", word)

	m2, ok := listener.Recv(ctx)
	require.True(t, ok)
	word, _ = m2.FirstWord()
	assert.Equal(t, "second", word)
}

func TestControlQueueIsSeparateFromData(t *testing.T) {
	ch, listener := New(4)
	ctx := context.Background()

	require.NoError(t, ch.Send(ctx, kast.NewMessage([]kvalue.Value{kvalue.WordV("data")}, nil)))
	require.NoError(t, ch.Control(ctx, ControlStop))

	ctrl, ok := listener.RecvControl(ctx)
	require.True(t, ok)
	assert.Equal(t, ControlStop, ctrl)

	msg, ok := listener.Recv(ctx)
	require.True(t, ok)
	word, _ := msg.FirstWord()
	assert.Equal(t, "data", word)
}

func TestSendRespectsContextCancellation(t *testing.T) {
	ch, _ := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, ch.Send(ctx, kast.NewMessage(nil, nil))) // fill the one slot
	cancel()

	err := ch.Send(ctx, kast.NewMessage(nil, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectPrefersWhicheverQueueIsReady(t *testing.T) {
	ch, listener := New(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, ch.Control(ctx, ControlStop))

	_, isControl, control, ok := listener.Select(ctx, nil)
	require.True(t, ok)
	assert.True(t, isControl)
	assert.Equal(t, ControlStop, control)
}
