package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastryring/id"
	"pastryring/internal/rpc"
)

func TestQuery_SetGetRoundTrip(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	b := startTestNode(t, id.ID(200))
	mustJoin(t, b, a.addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	setResp, err := b.ctrl.Query(ctx, &rpc.QueryRequest{
		Type:     rpc.QuerySet,
		Key:      id.ID(150),
		Value:    []byte("hello"),
		HasValue: true,
	})
	require.NoError(t, err)
	assert.Equal(t, rpc.QueryErrorNone, setResp.Error)

	getResp, err := a.ctrl.Query(ctx, &rpc.QueryRequest{
		Type: rpc.QueryGet,
		Key:  id.ID(150),
	})
	require.NoError(t, err)
	assert.Equal(t, rpc.QueryErrorNone, getResp.Error)
	assert.Equal(t, "hello", string(getResp.Value))
}

func TestQuery_GetMissingKeyNotFound(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := a.ctrl.Query(ctx, &rpc.QueryRequest{
		Type: rpc.QueryGet,
		Key:  id.ID(999),
	})
	require.NoError(t, err)
	assert.Equal(t, rpc.QueryErrorKeyNotFound, resp.Error)
}

func TestQuery_SetWithoutValueErrors(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := a.ctrl.Query(ctx, &rpc.QueryRequest{
		Type: rpc.QuerySet,
		Key:  id.ID(1),
	})
	require.NoError(t, err)
	assert.Equal(t, rpc.QueryErrorValueNotProvided, resp.Error)
}

func TestQuery_DeleteRemovesKey(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := a.ctrl.Query(ctx, &rpc.QueryRequest{
		Type: rpc.QuerySet, Key: id.ID(5), Value: []byte("v"), HasValue: true,
	})
	require.NoError(t, err)

	delResp, err := a.ctrl.Query(ctx, &rpc.QueryRequest{Type: rpc.QueryDelete, Key: id.ID(5)})
	require.NoError(t, err)
	assert.Equal(t, "v", string(delResp.Value))

	getResp, err := a.ctrl.Query(ctx, &rpc.QueryRequest{Type: rpc.QueryGet, Key: id.ID(5)})
	require.NoError(t, err)
	assert.Equal(t, rpc.QueryErrorKeyNotFound, getResp.Error)
}

func TestTransferKeys_MovesOwnedEntriesOnJoin(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := a.ctrl.Query(ctx, &rpc.QueryRequest{
		Type: rpc.QuerySet, Key: id.ID(150), Value: []byte("moved"), HasValue: true,
	})
	require.NoError(t, err)

	// b sits between a and key 150 on the ring, so joining should pull that
	// key over from a.
	b := startTestNode(t, id.ID(140))
	mustJoin(t, b, a.addr)

	getCtx, getCancel := context.WithTimeout(context.Background(), time.Second)
	defer getCancel()

	resp, err := b.ctrl.Query(getCtx, &rpc.QueryRequest{Type: rpc.QueryGet, Key: id.ID(150)})
	require.NoError(t, err)
	assert.Equal(t, rpc.QueryErrorNone, resp.Error)
	assert.Equal(t, "moved", string(resp.Value))
}
