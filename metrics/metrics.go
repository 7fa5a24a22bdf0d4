// Package metrics exposes the traversal engine's four hard budgets
// (spec §1) as Prometheus instruments, so a caller embedding the
// engine in a long-running service can scrape them instead of relying
// on a one-shot CLI's own status bar (explicitly out of scope per
// spec §1's external collaborators). Grounded on the retrieval pack's
// use of github.com/prometheus/client_golang for process-level gauges
// and counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder bundles the instruments one walk updates. A nil *Recorder
// makes every method a no-op, so wiring metrics in is opt-in.
type Recorder struct {
	openFDs       prometheus.Gauge
	queueDepth    *prometheus.GaugeVec
	ioInflight    prometheus.Gauge
	filesVisited  prometheus.Counter
	errorsTotal   prometheus.Counter
}

// New registers the traversal's metrics against reg and returns a
// Recorder backed by them. Passing a fresh prometheus.NewRegistry()
// per walker avoids collector-already-registered panics when multiple
// walks run concurrently in the same process.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		openFDs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pwalk_open_fds",
			Help: "Number of file descriptors currently held open by the traversal engine.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pwalk_queue_depth",
			Help: "Number of files currently queued, by queue and stage.",
		}, []string{"queue", "stage"}),
		ioInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pwalk_io_queue_inflight",
			Help: "Number of asynchronous I/O operations currently in flight.",
		}),
		filesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pwalk_files_visited_total",
			Help: "Total number of pre-order callback invocations delivered.",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pwalk_errors_total",
			Help: "Total number of OS errors observed while traversing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.openFDs, r.queueDepth, r.ioInflight, r.filesVisited, r.errorsTotal)
	}
	return r
}

func (r *Recorder) SetOpenFDs(n int64) {
	if r == nil {
		return
	}
	r.openFDs.Set(float64(n))
}

func (r *Recorder) SetQueueDepth(queue, stage string, n int) {
	if r == nil {
		return
	}
	r.queueDepth.WithLabelValues(queue, stage).Set(float64(n))
}

func (r *Recorder) SetIOInflight(n int64) {
	if r == nil {
		return
	}
	r.ioInflight.Set(float64(n))
}

func (r *Recorder) IncFilesVisited() {
	if r == nil {
		return
	}
	r.filesVisited.Inc()
}

func (r *Recorder) IncErrors() {
	if r == nil {
		return
	}
	r.errorsTotal.Inc()
}
