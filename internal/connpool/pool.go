// Package connpool implements a gRPC connection pool.
package connpool

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
)

// Pool implements a connection Pool to nodes in the cluster. All
// connections share the same set of DialOptions.
//
// The Pool has a maximum number of connections, and the oldest
// unused connections will be closed and removed when opening a
// new one. Connections that go unused for idleTimeout are also purged by a
// background reaper, so a peer that drops out of the overlay's leaf set
// and routing table doesn't keep a socket open indefinitely.
type Pool struct {
	mut sync.RWMutex

	opts []grpc.DialOption

	maxConns    int
	idleTimeout time.Duration
	conns       map[string]*poolConn
	connLookup  map[*grpc.ClientConn]*poolConn

	closeOnce sync.Once
	stop      chan struct{}
}

type poolConn struct {
	Conn     *grpc.ClientConn
	LastUsed time.Time
}

// New creates a new connection pool. idleTimeout <= 0 disables the
// background idle reaper; connections are then only evicted by capacity
// pressure or an explicit Remove.
func New(maxConns int, idleTimeout time.Duration, opts ...grpc.DialOption) *Pool {
	p := &Pool{
		conns:       make(map[string]*poolConn, maxConns),
		connLookup:  make(map[*grpc.ClientConn]*poolConn, maxConns),
		maxConns:    maxConns,
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}

	fullOpts := []grpc.DialOption{
		grpc.WithChainStreamInterceptor(p.streamRefreshConn),
		grpc.WithChainUnaryInterceptor(p.unaryRefreshConn),
	}
	fullOpts = append(fullOpts, opts...)

	p.opts = fullOpts

	if idleTimeout > 0 {
		go p.reapLoop()
	}

	return p
}

func (p *Pool) reapLoop() {
	ticker := time.NewTicker(p.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.reapIdle()
		}
	}
}

func (p *Pool) reapIdle() {
	cutoff := time.Now().Add(-p.idleTimeout)

	p.mut.Lock()
	var toClose []*poolConn
	for addr, c := range p.conns {
		if c.LastUsed.Before(cutoff) {
			toClose = append(toClose, c)
			delete(p.connLookup, c.Conn)
			delete(p.conns, addr)
		}
	}
	p.mut.Unlock()

	for _, c := range toClose {
		_ = c.Conn.Close()
	}
}

// Close stops the idle reaper and closes every pooled connection.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.stop) })

	p.mut.Lock()
	defer p.mut.Unlock()
	for addr, c := range p.conns {
		_ = c.Conn.Close()
		delete(p.connLookup, c.Conn)
		delete(p.conns, addr)
	}
}

func (p *Pool) streamRefreshConn(
	ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn,
	method string, streamer grpc.Streamer, opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	p.mut.Lock()
	if pc, ok := p.connLookup[cc]; ok {
		pc.LastUsed = time.Now()
	}
	p.mut.Unlock()

	return streamer(ctx, desc, cc, method, opts...)
}

// unaryRefreshConn is invoked as a UnaryClientInterceptor that will refresh the
// last used time of the underlying connection.
func (p *Pool) unaryRefreshConn(
	ctx context.Context, method string, req, reply interface{},
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption,
) error {
	p.mut.Lock()
	if pc, ok := p.connLookup[cc]; ok {
		pc.LastUsed = time.Now()
	}
	p.mut.Unlock()

	return invoker(ctx, method, req, reply, cc, opts...)
}

// Get retrieves a cached addr or creates a new connection.
func (p *Pool) Get(addr string) (*grpc.ClientConn, error) {
	p.mut.Lock()
	defer p.mut.Unlock()

	if c, ok := p.conns[addr]; ok && c != nil {
		c.LastUsed = time.Now()
		return c.Conn, nil
	}

	conn, err := grpc.Dial(addr, p.opts...)
	if err != nil {
		return nil, err
	}
	p.conns[addr] = &poolConn{
		Conn:     conn,
		LastUsed: time.Now(),
	}
	p.connLookup[conn] = p.conns[addr]

	if len(p.conns) > p.maxConns {
		p.cleanupOldest()
	}

	return conn, err
}

// cleanupOldest should only be called when the mutex is held.
func (p *Pool) cleanupOldest() {
	var (
		oldest     = time.Now().Add(time.Hour * 24 * 365)
		oldestAddr *string
	)
	for addr, conn := range p.conns {
		if conn.LastUsed.Before(oldest) {
			oldest = conn.LastUsed
			oldestAddr = &addr
		}
	}
	if oldestAddr != nil {
		_ = p.conns[*oldestAddr].Conn.Close()
		delete(p.connLookup, p.conns[*oldestAddr].Conn)
		delete(p.conns, *oldestAddr)
	}
}

// Remove deletes a conn from the pool, used when a peer has been marked
// failed and its connection should not be reused.
func (p *Pool) Remove(addr string) {
	p.mut.Lock()
	defer p.mut.Unlock()

	if c, ok := p.conns[addr]; ok {
		_ = c.Conn.Close()
		delete(p.connLookup, c.Conn)
		delete(p.conns, addr)
	}
}
