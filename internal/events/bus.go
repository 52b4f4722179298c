// Package events implements the in-process publish/subscribe fan-out that
// decouples an ExpenseLifecycle mutation from its side effects (mail,
// metrics, live push), grounded on the teacher's dbEventHandler
// worker-pool/channel pattern in internal/integration/event_handler.go.
package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/metrics"
)

// Subscriber receives every DomainEvent published to the bus. A panic
// inside one subscriber is recovered and logged — it never takes down the
// bus or any other subscriber.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, evt domain.DomainEvent)
}

// Bus is an in-process EventBus: subscribers registered with Subscribe run
// in a bounded worker pool that New starts, with a synchronous-inline fallback when the
// queue is full so events are never silently dropped — this is the one
// point where this design deliberately departs from the teacher's
// queue-full-then-log-and-drop behavior. Each subscriber gets its own
// deadline per event; one slow subscriber exceeding it is logged and
// abandoned rather than blocking delivery to the rest.
type Bus struct {
	subscribers []Subscriber
	queue       chan dispatch
	stop        chan struct{}
	wg          sync.WaitGroup
	timeout     time.Duration
}

type dispatch struct {
	ctx context.Context
	evt domain.DomainEvent
}

// New builds a Bus with the given worker count, queue capacity, and
// per-subscriber dispatch timeout. A non-positive timeout disables the
// deadline and subscribers run to completion. Workers start immediately.
func New(workers, queueCapacity int, timeout time.Duration) *Bus {
	if workers < 1 {
		workers = 1
	}
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	b := &Bus{
		queue:   make(chan dispatch, queueCapacity),
		stop:    make(chan struct{}),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// Subscribe registers sub to receive every future published event.
// Subscribe is not safe to call concurrently with Publish; register all
// subscribers during startup, before traffic begins.
func (b *Bus) Subscribe(sub Subscriber) {
	b.subscribers = append(b.subscribers, sub)
}

// Publish enqueues evt for async dispatch to every subscriber. If the
// queue is full, it dispatches synchronously on the calling goroutine
// instead of dropping the event or blocking indefinitely.
func (b *Bus) Publish(ctx context.Context, evt domain.DomainEvent) {
	select {
	case b.queue <- dispatch{ctx: ctx, evt: evt}:
		metrics.RecordEventDispatch("async")
	default:
		metrics.RecordEventDispatch("inline")
		b.dispatchToAll(ctx, evt)
	}
}

// Close signals the workers to stop and waits for them to exit; each worker
// first dispatches whatever is still queued. Publish does not check whether
// the bus is closed, so an event queued after Close returns is never
// dispatched.
func (b *Bus) Close() {
	close(b.stop)
	b.wg.Wait()
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case d := <-b.queue:
			b.dispatchToAll(d.ctx, d.evt)
		case <-b.stop:
			for {
				select {
				case d := <-b.queue:
					b.dispatchToAll(d.ctx, d.evt)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatchToAll(ctx context.Context, evt domain.DomainEvent) {
	for _, sub := range b.subscribers {
		b.dispatchOne(ctx, sub, evt)
	}
}

// dispatchOne isolates one subscriber's panic, and its deadline, from the
// rest of the bus: Handle runs on its own goroutine under a context bound
// by b.timeout, and dispatchOne returns as soon as either Handle finishes
// or the deadline passes, so a subscriber that never returns still only
// delays itself, not the subscribers dispatched after it.
func (b *Bus) dispatchOne(ctx context.Context, sub Subscriber, evt domain.DomainEvent) {
	dctx := ctx
	cancel := func() {}
	if b.timeout > 0 {
		dctx, cancel = context.WithTimeout(ctx, b.timeout)
	}
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("events: subscriber %s panicked handling %s: %v", sub.Name(), evt.Type, r)
			}
		}()
		sub.Handle(dctx, evt)
	}()

	select {
	case <-done:
	case <-dctx.Done():
		if dctx.Err() == context.DeadlineExceeded {
			log.Printf("events: subscriber %s exceeded %s handling %s", sub.Name(), b.timeout, evt.Type)
		}
	}
}
