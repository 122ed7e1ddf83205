package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/verdantworks/field-tracker/core"
	"github.com/verdantworks/field-tracker/internal/logging"
	"github.com/verdantworks/field-tracker/internal/observability"
	"github.com/verdantworks/field-tracker/model"
)

// DefaultProximityRadiusMeters is used when the config leaves the
// radius unset.
const DefaultProximityRadiusMeters = 30.0

// Config is the tracker's recognised option surface.
type Config struct {
	// HighAccuracy, Timeout and MaxAge are passed through to the
	// sensor subscription.
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration

	// DistanceFilterMeters suppresses samples that moved less than
	// this since the last emitted position. Zero disables the filter.
	DistanceFilterMeters float64

	// ProximityRadiusMeters bounds the "nearby" queries derived on
	// each sample. Zero means DefaultProximityRadiusMeters.
	ProximityRadiusMeters float64

	// HistoryCapacity bounds the path buffer. Zero means the core
	// default.
	HistoryCapacity int
}

func (c Config) radius() float64 {
	if c.ProximityRadiusMeters > 0 {
		return c.ProximityRadiusMeters
	}
	return DefaultProximityRadiusMeters
}

// Option customises a Tracker beyond its Config.
type Option func(*Tracker)

// WithLogger injects a structured logger; the default drops logs.
func WithLogger(log logging.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// WithCollector wires the tracker's Prometheus metrics.
func WithCollector(c *observability.TrackerCollector) Option {
	return func(t *Tracker) { t.metrics = c }
}

// Tracker owns one device's tracking lifecycle: it drives the
// permission probe, the continuous sensor subscription, the distance
// filter, the path history, and the per-sample proximity derivation.
//
// Construct one Tracker per tracked device and hold the handle; there
// is deliberately no package-level instance.
//
// All mutable state is guarded by one mutex. The sensor callback is
// the only writer of the last position and the history, which gives
// readers on other goroutines (the UI pulling Proximity, tests) a
// consistent view.
type Tracker struct {
	sensor  Sensor
	field   *core.FieldState
	cfg     Config
	log     logging.Logger
	metrics *observability.TrackerCollector
	tracer  trace.Tracer

	mu          sync.Mutex
	permission  model.PermissionState
	state       model.TrackingState
	lastErr     model.ErrorKind
	lastPos     *model.Position
	currentZone *model.Zone
	history     *core.TrackingHistory
	sub         Subscription
	sessionID   string
	subscribers []chan Event
}

// New constructs a tracker over the given sensor and field snapshot
// store. field may be nil, in which case proximity results are always
// neutral (useful for bare path tracking).
func New(sensor Sensor, field *core.FieldState, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		sensor:  sensor,
		field:   field,
		cfg:     cfg,
		log:     logging.Noop(),
		tracer:  otel.Tracer("field-tracker/tracker"),
		history: core.NewTrackingHistory(cfg.HistoryCapacity),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Events registers a new subscriber and returns its channel. Events
// are delivered best-effort: a full channel drops the event rather
// than blocking the sample handler.
func (t *Tracker) Events() <-chan Event {
	ch := make(chan Event, eventBuffer)
	t.mu.Lock()
	t.subscribers = append(t.subscribers, ch)
	t.mu.Unlock()
	return ch
}

// CheckPermission returns the last observed permission state without
// touching the sensor. Some platforms cannot report permission without
// prompting, so before any probe this is PermissionUnknown.
func (t *Tracker) CheckPermission() model.PermissionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.permission
}

// RequestPermission issues the one-shot low-accuracy probe whose only
// purpose is to surface the OS permission prompt. It is a deliberate
// side-effecting call, not a query. A PermissionEvent is published
// when the observed state changes.
func (t *Tracker) RequestPermission(ctx context.Context) model.PermissionState {
	state := t.probe(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.permission != state {
		t.permission = state
		t.publishLocked(PermissionEvent{SessionID: t.sessionID, State: state})
	}
	return state
}

// probe runs the permission probe and maps the outcome:
// success → Granted, permission error → Denied, anything else
// (unavailable, timeout) → Prompt, since the user may simply not have
// answered yet.
func (t *Tracker) probe(ctx context.Context) model.PermissionState {
	_, err := t.sensor.CurrentPosition(ctx, WatchOptions{
		HighAccuracy: false,
		Timeout:      t.cfg.Timeout,
		MaxAge:       t.cfg.MaxAge,
	})
	switch ClassifyError(err) {
	case model.ErrorNone:
		return model.PermissionGranted
	case model.ErrorPermissionDenied:
		return model.PermissionDenied
	default:
		return model.PermissionPrompt
	}
}

// Start begins a tracking session. An active session is stopped first,
// so Start doubles as a restart. The permission probe runs before the
// subscription opens; a denied probe fails the start with
// ErrPermissionDenied and leaves the tracker in the error state, from
// which a later Start may retry.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state == model.TrackingActive {
		t.stopLocked()
	}
	t.state = model.TrackingRequesting
	t.lastErr = model.ErrorNone
	t.sessionID = uuid.NewString()
	sessionID := t.sessionID
	t.mu.Unlock()

	state := t.probe(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.permission = state

	if state == model.PermissionDenied {
		t.state = model.TrackingError
		t.lastErr = model.ErrorPermissionDenied
		t.countError(model.ErrorPermissionDenied)
		t.publishLocked(PermissionEvent{SessionID: sessionID, State: state})
		t.publishLocked(ErrorEvent{SessionID: sessionID, Kind: model.ErrorPermissionDenied, Err: ErrPermissionDenied})
		t.log.Warn(ctx, "tracking start refused",
			logging.String("session_id", sessionID),
			logging.String("permission", state.String()),
		)
		return fmt.Errorf("start tracking: %w", ErrPermissionDenied)
	}

	sub, err := t.sensor.Watch(WatchOptions{
		HighAccuracy: t.cfg.HighAccuracy,
		Timeout:      t.cfg.Timeout,
		MaxAge:       t.cfg.MaxAge,
	}, t.handleSample, t.handleError)
	if err != nil {
		kind := ClassifyError(err)
		t.state = model.TrackingError
		t.lastErr = kind
		t.countError(kind)
		t.publishLocked(ErrorEvent{SessionID: sessionID, Kind: kind, Err: err})
		return fmt.Errorf("start tracking: %w", err)
	}

	t.sub = sub
	t.state = model.TrackingActive
	t.publishLocked(PermissionEvent{SessionID: sessionID, State: state})
	t.log.Info(ctx, "tracking started",
		logging.String("session_id", sessionID),
		logging.String("permission", state.String()),
		logging.Float64("distance_filter_m", t.cfg.DistanceFilterMeters),
		logging.Float64("proximity_radius_m", t.cfg.radius()),
	)
	return nil
}

// Stop ends the session: it unsubscribes from the sensor, returns to
// Idle, and clears the last-position cache. The path history survives
// so the UI can keep showing where the device went. Calling Stop when
// already idle is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	if t.sub != nil {
		t.sub.Stop()
		t.sub = nil
	}
	t.state = model.TrackingIdle
	t.lastPos = nil
	t.currentZone = nil
}

// State returns the current tracking lifecycle state.
func (t *Tracker) State() model.TrackingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastError returns the most recent classified error of the session.
func (t *Tracker) LastError() model.ErrorKind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// LastPosition returns a copy of the latest emitted position, or nil
// before the first fix (and after Stop).
func (t *Tracker) LastPosition() *model.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastPos == nil {
		return nil
	}
	p := *t.lastPos
	return &p
}

// History returns the retained path, oldest first.
func (t *Tracker) History() []model.TrackingPoint {
	return t.history.Points()
}

// SessionID returns the identifier of the current (or last) session.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Proximity is the pull accessor: it derives the nearby result for the
// latest position using the given radius, or the configured radius
// when radiusMeters is not positive. With no fix it returns the
// neutral empty result.
func (t *Tracker) Proximity(radiusMeters float64) model.ProximityResult {
	if radiusMeters <= 0 {
		radiusMeters = t.cfg.radius()
	}
	t.mu.Lock()
	pos := t.lastPos
	if pos != nil {
		p := *pos
		pos = &p
	}
	t.mu.Unlock()
	return t.proximityFor(pos, radiusMeters)
}

func (t *Tracker) proximityFor(pos *model.Position, radiusMeters float64) model.ProximityResult {
	if t.field == nil {
		return core.ComputeProximity(pos, radiusMeters, nil, nil)
	}
	return t.field.Proximity(pos, radiusMeters)
}

// handleSample is the sensor subscription callback. Everything derived
// from a sample (filter, history, proximity, zone transition, events)
// happens synchronously here, in delivery order.
func (t *Tracker) handleSample(p model.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A callback already in flight when Stop returned is dropped here
	// rather than resurrecting a dead session.
	if t.state != model.TrackingActive {
		return
	}
	if !p.Valid() {
		t.log.Debug(context.Background(), "discarding malformed sample",
			logging.Float64("lat", p.Latitude),
			logging.Float64("lon", p.Longitude),
		)
		return
	}

	if t.cfg.DistanceFilterMeters > 0 && t.lastPos != nil {
		moved := core.DistanceMeters(t.lastPos.LatLon(), p.LatLon())
		if moved < t.cfg.DistanceFilterMeters {
			if t.metrics != nil {
				t.metrics.SamplesFiltered.Inc()
			}
			return
		}
	}

	pos := p
	t.lastPos = &pos
	t.history.Push(model.TrackingPointFrom(p))
	if t.metrics != nil {
		t.metrics.SamplesReceived.Inc()
	}

	ctx, span := t.tracer.Start(context.Background(), "tracker.sample")
	started := time.Now()
	result := t.proximityFor(&pos, t.cfg.radius())
	elapsed := time.Since(started)
	span.SetAttributes(
		attribute.Int("nearby_trees", len(result.NearbyTrees)),
		attribute.Int("nearby_zones", len(result.NearbyZones)),
		attribute.Bool("in_zone", result.CurrentZone != nil),
	)
	span.End()

	if t.metrics != nil {
		t.metrics.ProximityDuration.Observe(elapsed.Seconds())
		t.metrics.NearbyTrees.Set(float64(len(result.NearbyTrees)))
		t.metrics.NearbyZones.Set(float64(len(result.NearbyZones)))
	}

	if zoneID(result.CurrentZone) != zoneID(t.currentZone) {
		exited := t.currentZone
		t.currentZone = cloneZone(result.CurrentZone)
		t.publishLocked(ZoneChangeEvent{
			SessionID: t.sessionID,
			Entered:   cloneZone(result.CurrentZone),
			Exited:    exited,
			At:        p.Timestamp,
		})
		if t.metrics != nil {
			t.metrics.ZoneTransitions.WithLabelValues(zoneLabel(result.CurrentZone)).Inc()
		}
		t.log.Info(ctx, "zone transition",
			logging.String("session_id", t.sessionID),
			logging.String("entered", zoneLabel(result.CurrentZone)),
			logging.String("exited", zoneLabel(exited)),
		)
	}

	t.publishLocked(PositionEvent{
		SessionID: t.sessionID,
		Position:  p,
		Proximity: result,
	})
}

// handleError is the sensor error callback. Retryable kinds are
// surfaced and the session stays active, matching sensors that keep
// trying on their own. Permission failures end the session.
func (t *Tracker) handleError(err error) {
	kind := ClassifyError(err)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != model.TrackingActive {
		return
	}

	t.lastErr = kind
	t.countError(kind)

	if kind == model.ErrorPermissionDenied {
		if t.sub != nil {
			t.sub.Stop()
			t.sub = nil
		}
		t.state = model.TrackingError
		t.permission = model.PermissionDenied
		t.publishLocked(PermissionEvent{SessionID: t.sessionID, State: model.PermissionDenied})
	}

	t.publishLocked(ErrorEvent{SessionID: t.sessionID, Kind: kind, Err: err})
	t.log.Warn(context.Background(), "sensor error",
		logging.String("session_id", t.sessionID),
		logging.String("kind", kind.String()),
		logging.Err(err),
	)
}

func (t *Tracker) countError(kind model.ErrorKind) {
	if t.metrics != nil {
		t.metrics.TrackingErrors.WithLabelValues(kind.String()).Inc()
	}
}

func (t *Tracker) publishLocked(ev Event) {
	for _, ch := range t.subscribers {
		select {
		case ch <- ev:
		default:
			if t.metrics != nil {
				t.metrics.EventsDropped.Inc()
			}
		}
	}
}

func zoneID(z *model.Zone) string {
	if z == nil {
		return ""
	}
	return z.ID
}

func zoneLabel(z *model.Zone) string {
	if z == nil {
		return "none"
	}
	return z.ID
}

func cloneZone(z *model.Zone) *model.Zone {
	if z == nil {
		return nil
	}
	c := *z
	return &c
}
