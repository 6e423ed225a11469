package kvschema

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Event describes one reportable occurrence inside an operation.
type Event struct {
	Schema string // schema entry name
	Op     string // operation name, e.g. "get", "lpush"
	Key    string
	Field  string // hash field, if any
	Err    error
}

// Observer receives failures and evictions. Implementations must be safe for
// concurrent use and should not block.
type Observer interface {
	// BackendFailed is called before a backend error is returned to the caller.
	BackendFailed(ev Event)
	// DecodeFailed is called when stored text cannot be decoded; the
	// operation treats the value as absent. ev.Err is a *DecodeError.
	DecodeFailed(ev Event)
	// Evicted is called after a bounded collection has been trimmed.
	Evicted(ev Event, n int64)
}

type NopObserver struct{}

func (NopObserver) BackendFailed(ev Event)    {}
func (NopObserver) DecodeFailed(ev Event)     {}
func (NopObserver) Evicted(ev Event, n int64) {}

// MultiObserver fans events out to every observer in order.
type MultiObserver []Observer

func (mo MultiObserver) BackendFailed(ev Event) {
	for _, o := range mo {
		o.BackendFailed(ev)
	}
}

func (mo MultiObserver) DecodeFailed(ev Event) {
	for _, o := range mo {
		o.DecodeFailed(ev)
	}
}

func (mo MultiObserver) Evicted(ev Event, n int64) {
	for _, o := range mo {
		o.Evicted(ev, n)
	}
}

// LogObserver logs events with zerolog: backend failures at error level,
// decode failures at warn level, evictions at debug level.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With().Str("component", "kvschema").Logger()}
}

func (o *LogObserver) BackendFailed(ev Event) {
	logEvent(o.logger.Error(), ev).Msg("backend call failed")
}

func (o *LogObserver) DecodeFailed(ev Event) {
	logEvent(o.logger.Warn(), ev).Msg("stored value could not be decoded")
}

func (o *LogObserver) Evicted(ev Event, n int64) {
	logEvent(o.logger.Debug(), ev).Int64("evicted", n).Msg("bounded collection trimmed")
}

func logEvent(e *zerolog.Event, ev Event) *zerolog.Event {
	e = e.Str("schema", ev.Schema).Str("op", ev.Op).Str("key", ev.Key)
	if ev.Field != "" {
		e = e.Str("field", ev.Field)
	}
	if ev.Err != nil {
		e = e.Err(ev.Err)
	}
	return e
}

// Metrics counts events in Prometheus counters labeled by schema entry and
// operation.
type Metrics struct {
	BackendErrors  *prometheus.CounterVec
	DecodeFailures *prometheus.CounterVec
	Evictions      *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		BackendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_errors_total",
				Help:      "Total number of failed backend calls",
			},
			[]string{"schema", "op"},
		),
		DecodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_failures_total",
				Help:      "Total number of stored values that could not be decoded",
			},
			[]string{"schema", "op"},
		),
		Evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evictions_total",
				Help:      "Total number of members evicted from bounded collections",
			},
			[]string{"schema", "op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.BackendErrors, m.DecodeFailures, m.Evictions)
	}
	return m
}

func (m *Metrics) BackendFailed(ev Event) {
	m.BackendErrors.WithLabelValues(ev.Schema, ev.Op).Inc()
}

func (m *Metrics) DecodeFailed(ev Event) {
	m.DecodeFailures.WithLabelValues(ev.Schema, ev.Op).Inc()
}

func (m *Metrics) Evicted(ev Event, n int64) {
	m.Evictions.WithLabelValues(ev.Schema, ev.Op).Add(float64(n))
}

// Stats are cumulative counters of a Client.
type Stats struct {
	Ops            uint64
	BackendErrors  uint64
	DecodeFailures uint64
	Evictions      uint64
}
