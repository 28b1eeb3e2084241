package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/powertrain/internal/system"
)

// Exporter collects solve statistics and map metrics in a private registry,
// written out in the text exposition format for a node exporter textfile
// collector.
type Exporter struct {
	registry *prometheus.Registry
	values   *prometheus.GaugeVec
	solves   prometheus.Histogram
	cells    *prometheus.CounterVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "powertrain_map_metric",
			Help: "Figures of merit of the last solved operating map",
		}, []string{"system", "metric"}),
		solves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "powertrain_solve_seconds",
			Help:    "Wall time of operating map solves",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "powertrain_cells_total",
			Help: "Grid cells evaluated by the solver",
		}, []string{"feasible"}),
	}
	e.registry.MustRegister(e.values, e.solves, e.cells)
	return e
}

func (e *Exporter) ObserveSolve(elapsed time.Duration, res *system.Result) {
	e.solves.Observe(elapsed.Seconds())
	rows, cols := res.Dims()
	total := float64(rows * cols)
	feasible := res.FeasibleFraction() * total
	e.cells.WithLabelValues("true").Add(feasible)
	e.cells.WithLabelValues("false").Add(total - feasible)
}

func (e *Exporter) Record(name string, values map[string]float64) {
	for k, v := range values {
		e.values.WithLabelValues(name, k).Set(v)
	}
}

func (e *Exporter) Gatherer() prometheus.Gatherer { return e.registry }

func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.registry)
}
