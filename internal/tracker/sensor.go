// Package tracker wraps a platform location sensor behind a
// permission/tracking state machine and derives the reactive proximity
// result on every accepted sample.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/verdantworks/field-tracker/model"
)

// Sentinel errors a Sensor implementation uses to report failures.
// Implementations wrap them freely; the tracker classifies with
// errors.Is.
var (
	// ErrPermissionDenied means the user (or platform policy) refused
	// location access. Fatal for the session until re-granted.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrPositionUnavailable means the sensor could not produce a fix.
	// Retryable; the sensor keeps trying on its own.
	ErrPositionUnavailable = errors.New("position unavailable")

	// ErrTimeout means a position request exceeded its deadline.
	ErrTimeout = errors.New("location request timed out")
)

// WatchOptions configure a sensor request or subscription.
type WatchOptions struct {
	// HighAccuracy asks the sensor for its best fix at the cost of
	// power.
	HighAccuracy bool

	// Timeout bounds a single fix attempt. Zero lets the sensor pick.
	Timeout time.Duration

	// MaxAge allows the sensor to satisfy the request from a cached
	// fix no older than this.
	MaxAge time.Duration
}

// Subscription is a handle to a continuous position watch.
type Subscription interface {
	// Stop cancels the watch. Safe to call more than once.
	Stop()
}

// Sensor is the platform location source the tracker consumes. The
// real implementation sits at the transport boundary (a device agent,
// a browser bridge); this package ships ReplaySensor for simulations
// and tests.
//
// Watch implementations must deliver callbacks asynchronously (from
// their own goroutine), never from inside the Watch call itself.
type Sensor interface {
	// CurrentPosition performs a one-shot position request. The
	// tracker uses a low-accuracy one-shot as its permission probe:
	// it is the only portable way to surface the OS permission prompt.
	CurrentPosition(ctx context.Context, opts WatchOptions) (model.Position, error)

	// Watch opens a continuous subscription. onSample receives each
	// fix; onError receives sensor failures, which do not terminate
	// the subscription unless they are permission failures.
	Watch(opts WatchOptions, onSample func(model.Position), onError func(error)) (Subscription, error)
}

// ClassifyError maps a sensor error onto the engine's error taxonomy.
// Unrecognised errors are treated as retryable unavailability, the
// same way platform sensors behave when a fix simply isn't ready.
func ClassifyError(err error) model.ErrorKind {
	switch {
	case err == nil:
		return model.ErrorNone
	case errors.Is(err, ErrPermissionDenied):
		return model.ErrorPermissionDenied
	case errors.Is(err, ErrTimeout):
		return model.ErrorTimeout
	default:
		return model.ErrorPositionUnavailable
	}
}
