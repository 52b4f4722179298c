package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/events"
	"github.com/stretchr/testify/assert"
)

type recordingSubscriber struct {
	name string
	mu   sync.Mutex
	seen []domain.DomainEvent
}

func (r *recordingSubscriber) Name() string { return r.name }

func (r *recordingSubscriber) Handle(ctx context.Context, evt domain.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, evt)
}

func (r *recordingSubscriber) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

type panickingSubscriber struct{}

func (panickingSubscriber) Name() string { return "panicker" }
func (panickingSubscriber) Handle(ctx context.Context, evt domain.DomainEvent) {
	panic("boom")
}

// slowSubscriber blocks until released, to exercise the per-subscriber
// dispatch timeout.
type slowSubscriber struct {
	release chan struct{}
}

func (slowSubscriber) Name() string { return "slow" }
func (s slowSubscriber) Handle(ctx context.Context, evt domain.DomainEvent) {
	<-s.release
}

func TestBus_PublishDispatchesToAllSubscribers(t *testing.T) {
	bus := events.New(2, 4, 0)
	defer bus.Close()

	sub1 := &recordingSubscriber{name: "one"}
	sub2 := &recordingSubscriber{name: "two"}
	bus.Subscribe(sub1)
	bus.Subscribe(sub2)

	bus.Publish(context.Background(), domain.DomainEvent{Type: domain.EventExpenseCreated, ExpenseID: 1})

	assert.Eventually(t, func() bool { return sub1.count() == 1 && sub2.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestBus_PanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	bus := events.New(1, 4, 0)
	defer bus.Close()

	bus.Subscribe(panickingSubscriber{})
	sub := &recordingSubscriber{name: "survivor"}
	bus.Subscribe(sub)

	bus.Publish(context.Background(), domain.DomainEvent{Type: domain.EventExpenseCreated, ExpenseID: 1})

	assert.Eventually(t, func() bool { return sub.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestBus_SlowSubscriberDoesNotBlockDeliveryToOthers(t *testing.T) {
	bus := events.New(1, 4, 20*time.Millisecond)
	defer bus.Close()

	slow := slowSubscriber{release: make(chan struct{})}
	defer close(slow.release)
	sub := &recordingSubscriber{name: "fast"}
	bus.Subscribe(slow)
	bus.Subscribe(sub)

	bus.Publish(context.Background(), domain.DomainEvent{Type: domain.EventExpenseCreated, ExpenseID: 1})

	assert.Eventually(t, func() bool { return sub.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestBus_PublishFallsBackToSynchronousDispatchWhenQueueFull(t *testing.T) {
	bus := events.New(1, 1, 0)
	defer bus.Close()

	sub := &recordingSubscriber{name: "sync"}
	bus.Subscribe(sub)

	for i := 0; i < 10; i++ {
		bus.Publish(context.Background(), domain.DomainEvent{Type: domain.EventExpenseCreated, ExpenseID: int64(i)})
	}

	assert.Eventually(t, func() bool { return sub.count() == 10 }, time.Second, 10*time.Millisecond)
}
