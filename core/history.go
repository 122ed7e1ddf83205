package core

import (
	"sync"

	"github.com/verdantworks/field-tracker/model"
)

// DefaultHistoryCapacity bounds the path buffer when the caller does
// not choose a capacity.
const DefaultHistoryCapacity = 50

// TrackingHistory is a fixed-capacity FIFO buffer of path points.
// Appending beyond capacity drops the oldest point. Points are kept
// exactly as they arrive: distance filtering happens upstream in the
// tracker before a point ever reaches the history, and the history
// itself never deduplicates.
//
// The tracker's sample handler is the only writer, but UI code may
// read the path from another goroutine, so access is guarded.
type TrackingHistory struct {
	mu       sync.Mutex
	points   []model.TrackingPoint
	head     int
	size     int
	capacity int
}

// NewTrackingHistory constructs a history with the given capacity,
// falling back to DefaultHistoryCapacity when capacity is not
// positive.
func NewTrackingHistory(capacity int) *TrackingHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &TrackingHistory{
		points:   make([]model.TrackingPoint, capacity),
		capacity: capacity,
	}
}

// Push appends a point, evicting the oldest when full.
func (h *TrackingHistory) Push(p model.TrackingPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size < h.capacity {
		h.points[(h.head+h.size)%h.capacity] = p
		h.size++
		return
	}
	h.points[h.head] = p
	h.head = (h.head + 1) % h.capacity
}

// Points returns the retained path in arrival order, oldest first.
func (h *TrackingHistory) Points() []model.TrackingPoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]model.TrackingPoint, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.points[(h.head+i)%h.capacity]
	}
	return out
}

// Len returns the number of retained points.
func (h *TrackingHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Clear drops all retained points.
func (h *TrackingHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = 0
	h.size = 0
}
