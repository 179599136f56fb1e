package connpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc"
)

func TestPool_GetReusesConnection(t *testing.T) {
	p := New(4, 0, grpc.WithInsecure())
	defer p.Close()

	c1, err := p.Get("127.0.0.1:0")
	require.NoError(t, err)
	c2, err := p.Get("127.0.0.1:0")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestPool_CapacityEvictsOldest(t *testing.T) {
	p := New(1, 0, grpc.WithInsecure())
	defer p.Close()

	_, err := p.Get("127.0.0.1:1")
	require.NoError(t, err)
	_, err = p.Get("127.0.0.1:2")
	require.NoError(t, err)

	p.mut.RLock()
	defer p.mut.RUnlock()
	assert.Len(t, p.conns, 1)
	_, stillPresent := p.conns["127.0.0.1:1"]
	assert.False(t, stillPresent)
}

func TestPool_IdleReaperPurgesStaleConnections(t *testing.T) {
	p := New(4, 20*time.Millisecond, grpc.WithInsecure())
	defer p.Close()

	_, err := p.Get("127.0.0.1:3")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p.mut.RLock()
		defer p.mut.RUnlock()
		_, ok := p.conns["127.0.0.1:3"]
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestPool_Remove(t *testing.T) {
	p := New(4, 0, grpc.WithInsecure())
	defer p.Close()

	_, err := p.Get("127.0.0.1:4")
	require.NoError(t, err)
	p.Remove("127.0.0.1:4")

	p.mut.RLock()
	_, ok := p.conns["127.0.0.1:4"]
	p.mut.RUnlock()
	assert.False(t, ok)
}
