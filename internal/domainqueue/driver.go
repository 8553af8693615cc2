package domainqueue

import (
	"context"
	"time"
)

// pollInterval is the sleep applied when the queue is non-empty but
// nothing is currently dispatchable and nothing is in flight.
const pollInterval = 50 * time.Millisecond

// Run drives dispatch until every host's queue is empty and no processor
// is in flight: it repeatedly calls NextAvailable, launches process for
// whatever it returns, and otherwise waits for either an in-flight
// processor to finish or WaitTime to elapse.
func Run[T any](ctx context.Context, q *Queue[T], process func(context.Context, Item[T])) {
	done := make(chan string, 1) // finished item's host; a sender blocks until the driver receives once the one-slot buffer is full

	inFlight := 0
	for {
		if ctx.Err() != nil {
			if inFlight == 0 {
				return
			}
			<-done
			inFlight--
			continue
		}

		if item, ok := q.NextAvailable(); ok {
			inFlight++
			go func() {
				process(ctx, item)
				q.MarkComplete(item.Host)
				done <- item.Host
			}()
			continue
		}

		if inFlight > 0 {
			wait := q.WaitTime()
			if wait <= 0 {
				select {
				case <-done:
					inFlight--
				case <-ctx.Done():
				}
				continue
			}
			timer := time.NewTimer(wait)
			select {
			case <-done:
				inFlight--
				timer.Stop()
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
			continue
		}

		if q.Empty() {
			return
		}

		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return
		}
	}
}
