package tracker

import (
	"time"

	"github.com/verdantworks/field-tracker/model"
)

// eventBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind than this loses events (counted on the
// dropped-events metric) rather than stalling the sample handler.
const eventBuffer = 32

// Event is the tagged union the tracker publishes to subscribers.
// Consumers type-switch on the concrete event instead of supplying a
// bag of callbacks.
type Event interface {
	isEvent()
}

// PositionEvent carries an accepted position sample together with the
// proximity result derived from it.
type PositionEvent struct {
	SessionID string
	Position  model.Position
	Proximity model.ProximityResult
}

// PermissionEvent reports an observed permission state, emitted at
// session start and whenever the state changes afterwards.
type PermissionEvent struct {
	SessionID string
	State     model.PermissionState
}

// ErrorEvent surfaces a classified sensor error. Retryable kinds leave
// the session active; ErrorPermissionDenied ends it.
type ErrorEvent struct {
	SessionID string
	Kind      model.ErrorKind
	Err       error
}

// ZoneChangeEvent fires when the current zone of the latest sample
// differs from the previous sample's. Entered is nil when the tracked
// device walked out of all zones; Exited is nil when it came in from
// open field.
type ZoneChangeEvent struct {
	SessionID string
	Entered   *model.Zone
	Exited    *model.Zone
	At        time.Time
}

func (PositionEvent) isEvent()   {}
func (PermissionEvent) isEvent() {}
func (ErrorEvent) isEvent()      {}
func (ZoneChangeEvent) isEvent() {}
