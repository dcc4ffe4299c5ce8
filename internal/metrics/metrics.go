// Package metrics exposes teamsync's Prometheus counters. The panel serves
// them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamsync_commands_total",
			Help: "Total user commands by kind and outcome",
		},
		[]string{"command", "outcome"},
	)

	rosterRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamsync_roster_refreshes_total",
			Help: "Total roster snapshots applied to presence state",
		},
	)

	conflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamsync_conflicts_total",
			Help: "Total same-file conflict notices shown",
		},
	)

	activityUpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamsync_activity_upserts_total",
			Help: "Total activity writes by source and outcome",
		},
		[]string{"source", "outcome"},
	)
)

// Activity write sources.
const (
	SourceFocus  = "focus"
	SourceStatus = "status"
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordCommand counts one finished command.
func RecordCommand(command string, err error) {
	commandsTotal.WithLabelValues(command, outcome(err)).Inc()
}

func IncrementRosterRefreshes() {
	rosterRefreshesTotal.Inc()
}

func AddConflicts(n int) {
	conflictsTotal.Add(float64(n))
}

// RecordActivityUpsert counts one activity write from source.
func RecordActivityUpsert(source string, err error) {
	activityUpsertsTotal.WithLabelValues(source, outcome(err)).Inc()
}
