// Package exporter publishes model quality gauges in the Prometheus textfile
// format so a node_exporter textfile collector can scrape them.
package exporter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/estatefit-cli/internal/evaluation"
	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

// Metrics holds the gauges for one command invocation.
type Metrics struct {
	reg         *prometheus.Registry
	mae         *prometheus.GaugeVec
	rmse        *prometheus.GaugeVec
	r2          *prometheus.GaugeVec
	fitDuration prometheus.Gauge
	trees       prometheus.Gauge
}

// New registers the estatefit gauges on a private registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		mae: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "estatefit_model_mae",
			Help: "Mean absolute error of the model on a data split.",
		}, []string{"split"}),
		rmse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "estatefit_model_rmse",
			Help: "Root mean squared error of the model on a data split.",
		}, []string{"split"}),
		r2: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "estatefit_model_r2",
			Help: "Coefficient of determination of the model on a data split.",
		}, []string{"split"}),
		fitDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "estatefit_fit_duration_seconds",
			Help: "Wall time of the last pipeline fit.",
		}),
		trees: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "estatefit_forest_trees",
			Help: "Number of trees in the fitted forest.",
		}),
	}
	m.reg.MustRegister(m.mae, m.rmse, m.r2, m.fitDuration, m.trees)
	return m
}

// Observe sets the metric gauges for split (train, validation, cv).
func (m *Metrics) Observe(split string, v evaluation.Metrics) {
	m.mae.WithLabelValues(split).Set(v.MAE)
	m.rmse.WithLabelValues(split).Set(v.RMSE)
	m.r2.WithLabelValues(split).Set(v.R2)
}

// ObserveFit records fit duration and forest size.
func (m *Metrics) ObserveFit(seconds float64, trees int) {
	m.fitDuration.Set(seconds)
	m.trees.Set(float64(trees))
}

// WriteTextfile writes all gauges to path. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := utils.EnsureParentDir(path); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
