package instrument

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"finance-backend/internal/engine"
	"finance-backend/internal/store"
)

const flushTimeout = 5 * time.Second

// EventBuffer collects events in memory and periodically flushes them
// to the events table in one transaction.
type EventBuffer struct {
	mu      sync.Mutex
	events  []Event
	store   *store.Store
	log     logrus.FieldLogger
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
	exited  chan struct{}
	flushes sync.WaitGroup
	stop    sync.Once
	stopped bool // guarded by mu; no events or flushes are accepted once set
}

// NewEventBuffer creates a buffer that flushes every interval or when it
// holds maxSize events.
func NewEventBuffer(s *store.Store, log logrus.FieldLogger, maxSize int, interval time.Duration) *EventBuffer {
	if maxSize <= 0 {
		maxSize = 500
	}
	if interval <= 0 {
		interval = time.Second
	}
	eb := &EventBuffer{
		store:   s,
		log:     log,
		maxSize: maxSize,
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		ticker:  time.NewTicker(interval),
	}
	go eb.run()
	return eb
}

func (eb *EventBuffer) run() {
	defer close(eb.exited)
	for {
		select {
		case <-eb.done:
			return
		case <-eb.ticker.C:
			eb.flushAsync()
		}
	}
}

// RecordList implements engine.Recorder.
func (eb *EventBuffer) RecordList(ev engine.ListEvent) {
	eb.Enqueue(NewEvent(ev))
}

// Enqueue adds an event to the buffer. A full buffer triggers a flush in
// the background. Events arriving after Stop are dropped.
func (eb *EventBuffer) Enqueue(event Event) {
	eb.mu.Lock()
	if eb.stopped {
		eb.mu.Unlock()
		eb.log.WithField("resource", event.Resource).Warn("query event after stop dropped")
		return
	}
	eb.events = append(eb.events, event)
	full := len(eb.events) >= eb.maxSize
	eb.mu.Unlock()
	if full {
		eb.flushAsync()
	}
}

// Len returns the number of buffered events.
func (eb *EventBuffer) Len() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.events)
}

func (eb *EventBuffer) flushAsync() {
	eb.mu.Lock()
	if eb.stopped {
		eb.mu.Unlock()
		return
	}
	eb.flushes.Add(1)
	eb.mu.Unlock()

	go func() {
		defer eb.flushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := eb.Flush(ctx); err != nil {
			eb.log.WithError(err).Error("flush query events")
		}
	}()
}

// Flush writes all buffered events in a single transaction. Events of a
// failed flush are dropped.
func (eb *EventBuffer) Flush(ctx context.Context) error {
	eb.mu.Lock()
	if len(eb.events) == 0 {
		eb.mu.Unlock()
		return nil
	}
	batch := eb.events
	eb.events = nil
	eb.mu.Unlock()

	err := eb.store.InTx(ctx, func(tx *sql.Tx) error {
		if eb.store.Dialect.Name() == "postgres" {
			// a crash may lose the last flushed batch
			if _, err := tx.ExecContext(ctx, "SET LOCAL synchronous_commit = off"); err != nil {
				return err
			}
		}
		columns := EventSchema.Columns()
		for _, e := range batch {
			if err := store.Insert(ctx, tx, eb.store.Dialect, EventsTable, columns, eventValues(e)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush events: %w", err)
	}
	eb.log.WithField("events", len(batch)).Debug("query events flushed")
	return nil
}

// Stop halts the ticker, waits for running flushes and writes what is left.
func (eb *EventBuffer) Stop() {
	eb.stop.Do(func() {
		eb.mu.Lock()
		eb.stopped = true
		eb.mu.Unlock()

		eb.ticker.Stop()
		close(eb.done)
		<-eb.exited
		eb.flushes.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := eb.Flush(ctx); err != nil {
			eb.log.WithError(err).Error("flush query events")
		}
	})
}
