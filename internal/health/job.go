package health

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"pastryring/internal/connpool"
	"pastryring/internal/overlay"
	"pastryring/internal/rpc"
)

type jobConfig struct {
	// Client Pool
	Pool *connpool.Pool
	// Node to check
	Node overlay.Descriptor
	// Critical marks Node as a leaf-set member, selecting
	// CheckConfig.LeafMaxFailures over CheckConfig.MaxFailures.
	Critical bool
	// Logging
	Log log.Logger
	// Metrics for jobs
	Metrics *metrics
	// Config for checks
	CheckConfig Config
	// Watcher to notify when state changes.
	Watcher Watcher
	// OnDone will be called when the Job closes.
	OnDone func()
}

type job struct {
	cfg  jobConfig
	done chan struct{}

	mut            sync.Mutex
	critical       bool
	health         overlay.Health
	failedAttempts int
}

// newJob creates and starts a health check job. Call Stop to finish.
func newJob(c jobConfig) *job {
	j := &job{
		cfg:      c,
		critical: c.Critical,
		health:   overlay.Healthy,
		done:     make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *job) run() {
	defer j.cfg.OnDone()

	t := time.NewTicker(j.cfg.CheckConfig.CheckFrequency)
	defer t.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-t.C:
			j.doCheck()
		}
	}
}

func (j *job) doCheck() {

	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.CheckConfig.CheckTimeout)
	defer cancel()

	// Grab a client from the conn pool
	cc, err := j.cfg.Pool.Get(j.cfg.Node.Addr)
	if err != nil {
		level.Debug(j.cfg.Log).Log("msg", "creating client for node health check failed", "err", err)
		j.processCheckResult(false)
		return
	}

	cli := rpc.NewNodeServiceClient(cc)
	_, err = cli.GetNodeState(ctx, &rpc.GetNodeStateRequest{})
	if err != nil {
		level.Debug(j.cfg.Log).Log("msg", "node health check failed", "err", err)
	}
	j.processCheckResult(err == nil && ctx.Err() == nil)
}

func (j *job) processCheckResult(success bool) {
	j.cfg.Metrics.checksTotal.Inc()
	if !success {
		j.cfg.Metrics.failedChecksTotal.Inc()
	}

	switch {
	case success:
		j.SetHealth(overlay.Healthy)

	case !success && j.failedAttempts < j.maxFailures():
		// If we've failed but there are still more attempts remaining, move to unhealthy.
		j.failedAttempts++
		j.SetHealth(overlay.Unhealthy)

	default:
		// If we've exhausted our attempts, move to dead.
		j.SetHealth(overlay.Dead)
	}
}

// maxFailures returns the failure budget for this job: the leaf set is
// canonical for routing decisions, so a critical job is held to
// CheckConfig.LeafMaxFailures instead of the looser table-only budget.
func (j *job) maxFailures() int {
	j.mut.Lock()
	defer j.mut.Unlock()
	if j.critical {
		return j.cfg.CheckConfig.LeafMaxFailures
	}
	return j.cfg.CheckConfig.MaxFailures
}

// SetCritical updates whether this job is checking a leaf-set member.
func (j *job) SetCritical(critical bool) {
	j.mut.Lock()
	defer j.mut.Unlock()
	j.critical = critical
}

// SetHealth explicitly sets the health the job.
func (j *job) SetHealth(h overlay.Health) {
	j.mut.Lock()
	defer j.mut.Unlock()

	// Ignore if the health matches or if it's an invalid state transition.
	// Dead can go to Healthy, but not Unhealthy.
	if j.health == h || j.health == overlay.Dead && h == overlay.Unhealthy {
		return
	}

	// Reset failed attempts in case SetHealth was called manually; otherwise
	// there's a chance a single failure will go straight to Dead.
	if h == overlay.Healthy {
		j.failedAttempts = 0
	}

	j.health = h

	// Call HealthChanged in background so we can continue running checks.
	go j.cfg.Watcher.HealthChanged(j.cfg.Node, h)
}

// Stop stops the job. Only call once.
func (j *job) Stop() {
	close(j.done)
}
