// Package metrics exposes the vote ledger counters to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/jukwaa/core/forum"
)

type Recorder struct {
	toggles   *prometheus.CounterVec
	conflicts prometheus.Counter
	exhausted prometheus.Counter
}

var _ forum.Recorder = (*Recorder)(nil)

// NewRecorder registers the vote counters on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jukwaa",
			Name:      "vote_toggles_total",
			Help:      "Votes toggled, by resulting state.",
		}, []string{"state"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jukwaa",
			Name:      "vote_conflicts_total",
			Help:      "Vote toggles retried after losing a race.",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jukwaa",
			Name:      "vote_retries_exhausted_total",
			Help:      "Vote toggles abandoned after all retries conflicted.",
		}),
	}
	for _, c := range []prometheus.Collector{r.toggles, r.conflicts, r.exhausted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) VoteToggled(state string) { r.toggles.WithLabelValues(state).Inc() }
func (r *Recorder) VoteConflict()            { r.conflicts.Inc() }
func (r *Recorder) VoteRetriesExhausted()    { r.exhausted.Inc() }
