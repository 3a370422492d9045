package kruntime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komrad/internal/config"
	"komrad/pkg/kast"
	"komrad/pkg/kvalue"
)

func counterBlock() *kast.Block {
	return kast.NewBlock(
		kast.Field("count", kast.TType(kvalue.KindNumber), kast.ValueExpr(kvalue.Num(kvalue.Int(0)))),
		kast.HandlerStmt(kast.NewHandler(
			kast.NewPattern(kast.TWord("increment")),
			kast.NewBlock(kast.Assign("count", kast.Binary(kast.OpAdd, kast.Variable("count"), kast.ValueExpr(kvalue.Num(kvalue.Int(1)))))),
		)),
		kast.HandlerStmt(kast.NewHandler(
			kast.NewPattern(kast.TWord("get")),
			kast.NewBlock(kast.ExprStmt(kast.Variable("count"))),
		)),
	)
}

func TestCreateAgentSendAndAsk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := New(ctx, config.Default())
	defer rt.Shutdown()

	ch, err := rt.CreateAgent("Counter", counterBlock(), nil)
	require.NoError(t, err)

	require.NoError(t, rt.Send(ch, []kvalue.Value{kvalue.WordV("increment")}))
	require.NoError(t, rt.Send(ch, []kvalue.Value{kvalue.WordV("increment")}))

	got := rt.Ask(ch, []kvalue.Value{kvalue.WordV("get")})
	assert.True(t, got.Equal(kvalue.Num(kvalue.Int(2))))
}

func TestAmbientChannelsAreDistinct(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := New(ctx, config.Default())
	defer rt.Shutdown()

	amb := rt.Ambient()
	assert.NotEqual(t, amb.Registry.UUID(), amb.IO.UUID())
}

func TestListLiteralSpawnsAddressableListAgent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := New(ctx, config.Default())
	defer rt.Shutdown()

	block := kast.NewBlock(
		kast.HandlerStmt(kast.NewHandler(
			kast.NewPattern(kast.TWord("items")),
			kast.NewBlock(kast.ExprStmt(kast.ListLit(kast.ValueExpr(kvalue.Num(kvalue.Int(1))), kast.ValueExpr(kvalue.Num(kvalue.Int(2)))))),
		)),
	)
	ch, err := rt.CreateAgent("ListHolder", block, nil)
	require.NoError(t, err)

	got := rt.Ask(ch, []kvalue.Value{kvalue.WordV("items")})
	require.True(t, got.IsChannel())
}
