package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TrackerCollector bundles the Prometheus metrics for the tracking
// engine and exposes a ready-made /metrics handler.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	SamplesReceived prometheus.Counter
	SamplesFiltered prometheus.Counter
	TrackingErrors  *prometheus.CounterVec
	ZoneTransitions *prometheus.CounterVec
	EventsDropped   prometheus.Counter

	NearbyTrees prometheus.Gauge
	NearbyZones prometheus.Gauge
	FieldZones  prometheus.Gauge
	FieldTrees  prometheus.Gauge

	ProximityDuration prometheus.Histogram
}

// NewTrackerCollector registers the tracker metrics against the
// provided registerer, defaulting to the global Prometheus registry
// when nil. Re-registering against the same registry hands back the
// existing collectors instead of failing.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	received, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_samples_received_total",
		Help: "Position samples accepted from the location sensor.",
	}), "tracker_samples_received_total")
	if err != nil {
		return nil, err
	}
	filtered, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_samples_filtered_total",
		Help: "Position samples suppressed by the distance filter.",
	}), "tracker_samples_filtered_total")
	if err != nil {
		return nil, err
	}

	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_errors_total",
		Help: "Sensor errors surfaced by the tracker, labeled by kind.",
	}, []string{"kind"})
	errors, err = registerCounterVec(reg, errors, "tracker_errors_total")
	if err != nil {
		return nil, err
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_zone_transitions_total",
		Help: "Zone entry events, labeled by the zone entered (\"none\" for exits into open field).",
	}, []string{"zone"})
	transitions, err = registerCounterVec(reg, transitions, "tracker_zone_transitions_total")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_events_dropped_total",
		Help: "Events dropped because a subscriber channel was full.",
	}), "tracker_events_dropped_total")
	if err != nil {
		return nil, err
	}

	nearbyTrees, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_nearby_trees",
		Help: "Trees within the proximity radius at the latest position.",
	}), "tracker_nearby_trees")
	if err != nil {
		return nil, err
	}
	nearbyZones, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_nearby_zones",
		Help: "Zones within the proximity radius at the latest position.",
	}), "tracker_nearby_zones")
	if err != nil {
		return nil, err
	}
	fieldZones, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "field_zones",
		Help: "Zones in the current field snapshot.",
	}), "field_zones")
	if err != nil {
		return nil, err
	}
	fieldTrees, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "field_trees",
		Help: "Trees in the current field snapshot.",
	}), "field_trees")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_proximity_duration_seconds",
		Help:    "Time spent deriving the proximity result for one sample.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	duration, err = registerHistogram(reg, duration, "tracker_proximity_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:          gatherer,
		SamplesReceived:   received,
		SamplesFiltered:   filtered,
		TrackingErrors:    errors,
		ZoneTransitions:   transitions,
		EventsDropped:     dropped,
		NearbyTrees:       nearbyTrees,
		NearbyZones:       nearbyZones,
		FieldZones:        fieldZones,
		FieldTrees:        fieldTrees,
		ProximityDuration: duration,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetFieldCounts drives the snapshot gauges; the field store calls
// this when zones or trees are replaced.
func (c *TrackerCollector) SetFieldCounts(zones, trees int) {
	if c == nil {
		return
	}
	if c.FieldZones != nil {
		c.FieldZones.Set(float64(zones))
	}
	if c.FieldTrees != nil {
		c.FieldTrees.Set(float64(trees))
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
