package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	skillLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skilld",
			Subsystem: "manager",
			Name:      "loads_total",
			Help:      "Skill constructions by result",
		},
		[]string{"result"},
	)

	skillReloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skilld",
			Subsystem: "manager",
			Name:      "reloads_total",
			Help:      "Hot reloads triggered by content changes",
		},
	)

	skillShutdownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skilld",
			Subsystem: "manager",
			Name:      "shutdowns_total",
			Help:      "Instance shutdowns by result",
		},
		[]string{"result"},
	)

	skillLeaksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skilld",
			Subsystem: "manager",
			Name:      "instance_leaks_total",
			Help:      "Instances still alive after shutdown",
		},
	)

	converseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skilld",
			Subsystem: "manager",
			Name:      "converse_total",
			Help:      "Conversation requests by outcome",
		},
		[]string{"outcome"},
	)

	updatePassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skilld",
			Subsystem: "manager",
			Name:      "update_passes_total",
			Help:      "Successful repository update passes",
		},
	)

	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "skilld",
			Subsystem: "manager",
			Name:      "scan_duration_seconds",
			Help:      "Duration of one scan tick",
			Buckets:   prometheus.DefBuckets,
		},
	)

	skillsByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "skilld",
			Subsystem: "manager",
			Name:      "skills",
			Help:      "Known skills by lifecycle state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		skillLoadsTotal, skillReloadsTotal, skillShutdownsTotal, skillLeaksTotal,
		converseTotal, updatePassesTotal, scanDuration, skillsByState,
	)
}

var allStates = []State{StateUnloaded, StateLoading, StateReady, StateDraining, StateInactive, StateError}

func (m *Manager) refreshGauges() {
	counts := make(map[State]int, len(allStates))
	for _, s := range m.List() {
		counts[s.State]++
	}
	for _, st := range allStates {
		skillsByState.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}
