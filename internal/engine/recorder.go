package engine

import "time"

// ListEvent describes one list request that reached a resource.
type ListEvent struct {
	Resource string
	UserID   string
	Filters  int
	Sorts    int
	Search   bool
	Total    int
	Duration time.Duration
	// Status is "ok" or the error code the request failed with.
	Status string
	At     time.Time
}

// Recorder receives list events. Implementations must not block.
type Recorder interface {
	RecordList(ev ListEvent)
}

type nopRecorder struct{}

func (nopRecorder) RecordList(ListEvent) {}
