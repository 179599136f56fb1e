package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"pastryring/id"
)

// testNode bundles a running Node with its in-process grpc server, for
// tests that need real RPC round-trips rather than calling controller
// methods directly.
type testNode struct {
	*Node
	addr string
	srv  *grpc.Server
}

func startTestNode(t *testing.T, selfID id.ID, opts ...Option) *testNode {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := Config{
		ID:              selfID,
		BroadcastAddr:   lis.Addr().String(),
		RequestTimeout:  2 * time.Second,
		Log:             log.NewNopLogger(),
	}

	allOpts := append([]Option{WithDialOptions(grpc.WithInsecure())}, opts...)
	n, err := New(cfg, allOpts...)
	require.NoError(t, err)

	srv := grpc.NewServer()
	n.Register(srv)
	go srv.Serve(lis)

	tn := &testNode{Node: n, addr: lis.Addr().String(), srv: srv}
	t.Cleanup(func() {
		srv.Stop()
		n.Close()
	})
	return tn
}

func mustJoin(t *testing.T, n *testNode, bootstrapAddr string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Join(ctx, bootstrapAddr))
}
