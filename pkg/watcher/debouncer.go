package watcher

import (
	"context"
	"time"

	"github.com/ritzau/gene2go-expander/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive re-runs
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan []ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. A batch is released after
// quietPeriod without new events, or maxWait after its first event, as one
// slice holding at most one event per change type.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan []ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run processes events and applies debouncing logic
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	quiet := time.NewTimer(d.quietPeriod)
	quiet.Stop()
	maxWait := time.NewTimer(d.maxWait)
	maxWait.Stop()

	var (
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	flush := func() {
		quiet.Stop()
		maxWait.Stop()
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount)

		// Ontology first: it implies re-reading everything
		now := time.Now()
		batch := make([]ChangeEvent, 0, 2)
		for _, typ := range []ChangeType{ChangeTypeOntology, ChangeTypeAnnotations} {
			if paths := accumulated[typ]; len(paths) > 0 {
				batch = append(batch, ChangeEvent{Type: typ, Paths: paths, Timestamp: now})
			}
		}
		select {
		case d.output <- batch:
		case <-ctx.Done():
		}

		// Reset accumulators
		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			// Start max wait timer on first event
			if eventCount == 0 {
				maxWait.Reset(d.maxWait)
			}

			for _, p := range event.Paths {
				if !contains(accumulated[event.Type], p) {
					accumulated[event.Type] = append(accumulated[event.Type], p)
				}
			}
			eventCount++

			// Reset quiet period timer
			quiet.Reset(d.quietPeriod)

		case <-quiet.C:
			flush()

		case <-maxWait.C:
			flush()
		}
	}
}

// Output returns the channel of debounced batches. It is closed when the
// debouncer stops.
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}
