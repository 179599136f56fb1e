// Package node implements the Pastry node engine: the join, query, and
// repair protocols layered on top of internal/overlay's routing substrate,
// exposed over internal/rpc's NodeService.
package node

// TODO: the leaf set's predecessor/successor side classification is plain
// numeric comparison against self rather than true ring-relative
// classification (see internal/overlay.LeafSet's doc comment); routing
// itself is unaffected, only the side label can be briefly wrong right at
// the wraparound seam.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"google.golang.org/grpc"

	"pastryring/id"
	"pastryring/internal/connpool"
	"pastryring/internal/health"
	"pastryring/internal/overlay"
	"pastryring/internal/rpc"
)

// IdentifierBits is the fixed width of the ring identifier space (spec.md
// §3 fixes this at 64).
const IdentifierBits = 64

// Config controls how a node is constructed.
type Config struct {
	// ID identifies this node on the ring. Must be set.
	ID id.ID
	// BroadcastAddr is the address advertised to peers for dialing this
	// node. Must be set.
	BroadcastAddr string

	// K is the routing table's per-digit branching factor, a power of two
	// no larger than 16. Defaults to 8 (b=3).
	K int
	// LeafSetHalfSize is L, the number of predecessors (and, separately,
	// successors) tracked in the leaf set. Defaults to 8.
	LeafSetHalfSize int
	// RequestTimeout bounds every outbound RPC this node issues. Defaults
	// to 5s.
	RequestTimeout time.Duration

	Log        log.Logger
	Registerer prometheus.Registerer
}

func (c *Config) setDefaults() error {
	if c.ID == id.Zero {
		return fmt.Errorf("ID must be set")
	}
	if c.BroadcastAddr == "" {
		return fmt.Errorf("BroadcastAddr must be set")
	}
	if c.K == 0 {
		c.K = 8
	}
	if c.LeafSetHalfSize == 0 {
		c.LeafSetHalfSize = 8
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.Log == nil {
		c.Log = log.NewNopLogger()
	}
	return nil
}

func baseFromK(k int) (int, error) {
	switch k {
	case 2:
		return 1, nil
	case 4:
		return 2, nil
	case 8:
		return 3, nil
	case 16:
		return 4, nil
	default:
		return 0, fmt.Errorf("k must be a power of two no larger than 16, got %d", k)
	}
}

// Node is a single participant in the overlay.
type Node struct {
	cfg Config
	ctrl *controller
}

// New constructs a Node. opts customize construction; WithDialOptions
// supplies the options used for every outbound connection the node's
// connection pool opens.
func New(cfg Config, opts ...Option) (*Node, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	if _, err := baseFromK(cfg.K); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	self := overlay.Descriptor{ID: cfg.ID, Addr: cfg.BroadcastAddr}
	state := overlay.NewNodeState(self, IdentifierBits, cfg.K, cfg.LeafSetHalfSize)

	if o.app == nil {
		o.app = noopApplication{}
	}

	n := &Node{cfg: cfg}
	n.ctrl = newController(cfg, state, o.app, o.dialOpts)
	return n, nil
}

// Option customizes Node construction.
type Option func(*options)

type options struct {
	dialOpts []grpc.DialOption
	app      Application
}

// WithDialOptions supplies extra grpc.DialOption values used for every
// connection the node's pool opens.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// WithApplication registers an Application to be notified of leaf-set
// membership changes.
func WithApplication(app Application) Option {
	return func(o *options) { o.app = app }
}

// Register registers the NodeService against s. Must be called before
// Join, or peers won't be able to reach this node.
func (n *Node) Register(s grpc.ServiceRegistrar) {
	rpc.RegisterNodeServiceServer(s, n.ctrl)
}

// Join joins the overlay via bootstrapAddr. An empty bootstrapAddr starts a
// single-node overlay (spec.md §4.5 case A).
func (n *Node) Join(ctx context.Context, bootstrapAddr string) error {
	if bootstrapAddr == "" {
		n.ctrl.state.SetPhase(overlay.Serving)
		level.Info(n.cfg.Log).Log("msg", "starting single-node overlay", "id", n.cfg.ID, "addr", n.cfg.BroadcastAddr)
		return nil
	}
	return n.ctrl.Bootstrap(ctx, bootstrapAddr)
}

// State returns a point-in-time snapshot of the node's state, used by
// admin/debug surfaces.
func (n *Node) State() overlay.Dump {
	return n.ctrl.state.Snapshot()
}

// Close tears the node down: stops the health checker and closes every
// pooled connection. Does not notify peers (spec.md's RPC surface has no
// leave/goodbye message; a departed node is only discovered through failed
// health checks).
func (n *Node) Close() error {
	n.ctrl.state.SetPhase(overlay.Terminated)
	err := n.ctrl.health.Close()
	n.ctrl.pool.Close()
	return err
}

type metrics struct {
	joinsTotal       prometheus.Counter
	queriesTotal     *prometheus.CounterVec
	repairsTotal     prometheus.Counter
	routingFailTotal prometheus.Counter
}

func newMetrics(r prometheus.Registerer) *metrics {
	m := &metrics{
		joinsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastry_node_joins_total",
			Help: "Total number of Join RPCs handled by this node.",
		}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pastry_node_queries_total",
			Help: "Total number of Query RPCs handled by this node, by type and termination.",
		}, []string{"type", "outcome"}),
		repairsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastry_node_leaf_repairs_total",
			Help: "Total number of leaf-set repair cycles triggered by peer failure.",
		}),
		routingFailTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastry_node_routing_failures_total",
			Help: "Total number of requests for which next-hop selection found no usable target.",
		}),
	}
	if r != nil {
		r.MustRegister(m.joinsTotal, m.queriesTotal, m.repairsTotal, m.routingFailTotal)
	}
	return m
}

// controller is the node engine: it implements rpc.NodeServiceServer and
// health.Watcher, and drives the client side of Join/TransferKeys/repair.
// NodeState itself enforces single-writer/many-reader mutual exclusion;
// controller additionally serializes whole membership changes (Join,
// AnnounceArrival fanout) through joinMtx, matching spec.md §9's
// acknowledged restriction to one membership change at a time.
type controller struct {
	cfg   Config
	log   log.Logger
	state *overlay.NodeState
	app   Application

	pool    *connpool.Pool
	health  *health.Checker
	metrics *metrics

	joinMtx sync.Mutex
	joining atomic.Bool
}

func newController(cfg Config, state *overlay.NodeState, app Application, dial []grpc.DialOption) *controller {
	pool := connpool.New(256, 2*time.Minute, dial...)

	c := &controller{
		cfg:     cfg,
		log:     cfg.Log,
		state:   state,
		app:     app,
		pool:    pool,
		metrics: newMetrics(cfg.Registerer),
	}

	c.health = health.NewChecker(health.Config{
		CheckFrequency: 5 * time.Second,
		CheckTimeout:   cfg.RequestTimeout,
		// Routing-table-only entries are a greedy-routing shortcut; losing
		// one just falls back to the leaf set, so they get a few retries.
		// Leaf-set members are canonical for Covers() and ownership, so
		// LeafMaxFailures defaults to 0: dead on first miss.
		MaxFailures: 3,
		Log:         cfg.Log,
		Registerer:  cfg.Registerer,
	}, pool, c)

	return c
}

// markUnhealthy records a transport failure against target. If the health
// checker isn't yet tracking it (e.g. a peer learned from a join response
// that's never been through CheckNodes), the status is recorded directly
// so the next read sees it.
func (c *controller) markUnhealthy(d overlay.Descriptor) {
	if err := c.health.SetHealth(d, overlay.Unhealthy); err != nil {
		c.state.MarkHealth(d.ID, overlay.Unhealthy)
	}
}

// notifyPeersChanged informs the Application of the current leaf set.
func (c *controller) notifyPeersChanged() {
	c.app.PeersChanged(c.state.LeafSnapshot())
}

// refreshHealthChecks syncs the health checker's job set with every peer
// currently known (including ones not yet proven unhealthy), so newly
// learned peers get checked and peers no longer referenced anywhere stop
// being checked.
func (c *controller) refreshHealthChecks() {
	peers := c.state.Peers(true)
	targets := make([]health.Target, len(peers))
	for i, d := range peers {
		targets[i] = health.Target{Descriptor: d, Critical: c.state.IsLeaf(d.ID)}
	}
	if err := c.health.CheckNodes(targets); err != nil {
		level.Debug(c.log).Log("msg", "failed to refresh health-check set", "err", err)
	}
}
