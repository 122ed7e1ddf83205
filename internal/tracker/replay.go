package tracker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/verdantworks/field-tracker/model"
)

// DefaultReplayInterval paces replayed tracks when no interval is
// given.
const DefaultReplayInterval = time.Second

// ReplaySensor plays a recorded track through the Sensor contract. It
// stands in for a real device feed in the simulator binary and in
// end-to-end tests: permission is always granted, and samples are
// delivered from a background goroutine at a fixed pace.
type ReplaySensor struct {
	track    []model.Position
	interval time.Duration

	done     chan struct{}
	doneOnce sync.Once
}

// NewReplaySensor constructs a sensor that replays track in order,
// one sample per interval. A non-positive interval falls back to
// DefaultReplayInterval.
func NewReplaySensor(track []model.Position, interval time.Duration) *ReplaySensor {
	if interval <= 0 {
		interval = DefaultReplayInterval
	}
	return &ReplaySensor{
		track:    track,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Done is closed once delivery has finished, whether the track ran to
// its end or the subscription was stopped. Drivers wait on it instead
// of counting emitted samples; a distance filter upstream can suppress
// any number of them.
func (s *ReplaySensor) Done() <-chan struct{} {
	return s.done
}

func (s *ReplaySensor) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// CurrentPosition serves the head of the track, mimicking a one-shot
// fix. An empty track behaves like a sensor with no signal.
func (s *ReplaySensor) CurrentPosition(_ context.Context, _ WatchOptions) (model.Position, error) {
	if len(s.track) == 0 {
		return model.Position{}, ErrPositionUnavailable
	}
	return s.track[0], nil
}

// Watch delivers the track from a goroutine paced by a rate limiter.
// The subscription ends when the track is exhausted or Stop is called.
func (s *ReplaySensor) Watch(_ WatchOptions, onSample func(model.Position), onError func(error)) (Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	limiter := rate.NewLimiter(rate.Every(s.interval), 1)

	go func() {
		defer s.finish()
		for _, p := range s.track {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			onSample(p)
		}
	}()

	return &replaySubscription{cancel: cancel}, nil
}

type replaySubscription struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (s *replaySubscription) Stop() {
	s.once.Do(s.cancel)
}

// SyntheticTrack builds a straight-line walk of count positions
// heading north-east from start, stepMeters apart, with timestamps
// spaced by every. Useful when no recorded track is at hand.
func SyntheticTrack(start model.LatLon, stepMeters float64, count int, at time.Time, every time.Duration) []model.Position {
	const metersPerDegree = 111194.9 // mean meridian degree on the engine's sphere
	step := stepMeters / metersPerDegree

	track := make([]model.Position, 0, count)
	for i := 0; i < count; i++ {
		track = append(track, model.Position{
			Latitude:       start.Lat + float64(i)*step,
			Longitude:      start.Lon + float64(i)*step,
			AccuracyMeters: 5,
			Timestamp:      at.Add(time.Duration(i) * every),
		})
	}
	return track
}
