package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registerer creates metrics and registers them in one step. Options without a
// namespace get the Registerer's.
type Registerer struct {
	prometheus.Registerer
	namespace string
}

// NewRegisterer ...
func NewRegisterer(registerer prometheus.Registerer, namespace string) *Registerer {
	return &Registerer{
		Registerer: registerer,
		namespace:  namespace,
	}
}

func (r *Registerer) ns(namespace string) string {
	if namespace == "" {
		return r.namespace
	}
	return namespace
}

// RegisterNewCounter ...
func (r *Registerer) RegisterNewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace = r.ns(opts.Namespace)
	counter := prometheus.NewCounter(opts)
	r.MustRegister(counter)
	return counter
}

// RegisterNewCounterVec ...
func (r *Registerer) RegisterNewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	opts.Namespace = r.ns(opts.Namespace)
	counter := prometheus.NewCounterVec(opts, labelNames)
	r.MustRegister(counter)
	return counter
}

// RegisterNewGauge ...
func (r *Registerer) RegisterNewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace = r.ns(opts.Namespace)
	gauge := prometheus.NewGauge(opts)
	r.MustRegister(gauge)
	return gauge
}

// RegisterNewGaugeVec ...
func (r *Registerer) RegisterNewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	opts.Namespace = r.ns(opts.Namespace)
	gauge := prometheus.NewGaugeVec(opts, labelNames)
	r.MustRegister(gauge)
	return gauge
}
