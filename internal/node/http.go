package node

import (
	"net/http"

	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pastryring/internal/overlay"
)

// RegisterAdminRoutes wires the node's debug surface (spec.md §4.9) onto r:
// a plaintext state dump at /-/cluster and a Prometheus scrape endpoint at
// /metrics.
func (n *Node) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/-/cluster", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := overlay.DumpState(w, n.State()); err != nil {
			level.Error(n.cfg.Log).Log("msg", "failed to write cluster state", "err", err)
		}
	})
	r.Path("/metrics").Handler(promhttp.Handler())
}
