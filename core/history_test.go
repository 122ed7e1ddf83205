package core

import (
	"testing"
	"time"

	"github.com/verdantworks/field-tracker/model"
)

func trackPoint(i int) model.TrackingPoint {
	return model.TrackingPoint{
		Latitude:  float64(i),
		Longitude: float64(i),
		Timestamp: time.Date(2026, 3, 14, 9, 0, i, 0, time.UTC),
	}
}

func TestTrackingHistory_FIFOEviction(t *testing.T) {
	h := NewTrackingHistory(3)
	for i := 1; i <= 5; i++ {
		h.Push(trackPoint(i))
	}

	points := h.Points()
	if len(points) != 3 {
		t.Fatalf("retained %d points, want 3", len(points))
	}
	// Oldest dropped first: the last three arrive in order.
	for i, want := range []int{3, 4, 5} {
		if points[i].Latitude != float64(want) {
			t.Errorf("point %d = %v, want point %d", i, points[i].Latitude, want)
		}
	}
}

func TestTrackingHistory_BelowCapacityKeepsAll(t *testing.T) {
	h := NewTrackingHistory(10)
	for i := 1; i <= 4; i++ {
		h.Push(trackPoint(i))
	}
	if h.Len() != 4 {
		t.Errorf("Len = %d, want 4", h.Len())
	}
	points := h.Points()
	for i := range points {
		if points[i].Latitude != float64(i+1) {
			t.Errorf("point %d out of order: %v", i, points[i].Latitude)
		}
	}
}

func TestTrackingHistory_DefaultCapacity(t *testing.T) {
	h := NewTrackingHistory(0)
	for i := 0; i < DefaultHistoryCapacity+10; i++ {
		h.Push(trackPoint(i))
	}
	if h.Len() != DefaultHistoryCapacity {
		t.Errorf("Len = %d, want %d", h.Len(), DefaultHistoryCapacity)
	}
}

func TestTrackingHistory_Clear(t *testing.T) {
	h := NewTrackingHistory(3)
	h.Push(trackPoint(1))
	h.Push(trackPoint(2))
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", h.Len())
	}
	h.Push(trackPoint(7))
	points := h.Points()
	if len(points) != 1 || points[0].Latitude != 7 {
		t.Errorf("points after refill = %+v, want single point 7", points)
	}
}

func TestTrackingHistory_NeverDeduplicates(t *testing.T) {
	// Distance filtering happens upstream; identical points must be
	// retained as-is.
	h := NewTrackingHistory(5)
	p := trackPoint(1)
	h.Push(p)
	h.Push(p)
	h.Push(p)
	if h.Len() != 3 {
		t.Errorf("Len = %d, want 3 identical points retained", h.Len())
	}
}
