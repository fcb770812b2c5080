// Package metrics exposes cascade events as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/mrsinham/importctx/internal/model"
)

const namespace = "importctx"

// Recorder counts cascade events per level. It satisfies
// resolver.Recorder.
type Recorder struct {
	transitions *prometheus.CounterVec
	auto        *prometheus.CounterVec
	stale       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	merges      *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      name,
			Help:      help,
		}, []string{"level"})
	}
	r := &Recorder{
		transitions: counter("transitions_total", "Levels set or cleared."),
		auto:        counter("auto_selections_total", "Levels filled without operator input."),
		stale:       counter("stale_fetches_total", "Candidate lists discarded because a newer selection superseded them."),
		failures:    counter("fetch_failures_total", "Candidate lists that could not be retrieved."),
		merges:      counter("merges_total", "Entities merged back from the creation sub-workflow."),
	}
	for _, c := range []prometheus.Collector{r.transitions, r.auto, r.stale, r.failures, r.merges} {
		if err := reg.Register(c); err != nil {
			return nil, eris.Wrap(err, "register cascade metrics")
		}
	}
	return r, nil
}

func (r *Recorder) Transition(l model.Level)     { r.transitions.WithLabelValues(l.String()).Inc() }
func (r *Recorder) AutoSelected(l model.Level)   { r.auto.WithLabelValues(l.String()).Inc() }
func (r *Recorder) StaleDiscarded(l model.Level) { r.stale.WithLabelValues(l.String()).Inc() }
func (r *Recorder) FetchFailed(l model.Level)    { r.failures.WithLabelValues(l.String()).Inc() }
func (r *Recorder) Merged(l model.Level)         { r.merges.WithLabelValues(l.String()).Inc() }

