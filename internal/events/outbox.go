package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/store"
	"github.com/twmb/franz-go/pkg/kgo"
	"gorm.io/gorm"
)

// outboxPayload is the JSON shape written into expense_outbox_events.payload.
type outboxPayload struct {
	ExpenseID   int64     `json:"expenseId"`
	ApplicantID string    `json:"applicantId"`
	ActorID     string    `json:"actorId"`
	TraceID     string    `json:"traceId"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// OutboxBus is a Kafka-backed alternative to Bus with a different publish
// surface: PublishInTx writes an event to expense_outbox_events inside the
// caller's transaction, and Relay, run on its own goroutine, publishes
// undispatched rows to Kafka and marks them dispatched. lifecycle.Service
// publishes only to the in-process Bus; nothing in this module calls
// PublishInTx or starts Relay.
type OutboxBus struct {
	db     *gorm.DB
	client *kgo.Client
	topic  string
}

// NewOutboxBus returns an OutboxBus publishing to topic via client.
func NewOutboxBus(db *gorm.DB, client *kgo.Client, topic string) *OutboxBus {
	return &OutboxBus{db: db, client: client, topic: topic}
}

// PublishInTx writes evt to the outbox table using tx — call this from
// inside the same transaction as the triggering ConditionalUpdate and
// audit append, so a rollback discards the event too.
func (b *OutboxBus) PublishInTx(ctx context.Context, tx *gorm.DB, evt domain.DomainEvent) error {
	payload, err := json.Marshal(outboxPayload{
		ExpenseID:   evt.ExpenseID,
		ApplicantID: evt.ApplicantID,
		ActorID:     evt.ActorID,
		TraceID:     evt.TraceID,
		OccurredAt:  evt.OccurredAt,
	})
	if err != nil {
		return err
	}

	row := &store.OutboxEventModel{
		ExpenseID: evt.ExpenseID,
		EventType: string(evt.Type),
		Payload:   payload,
		TraceID:   evt.TraceID,
		CreatedAt: evt.OccurredAt,
	}
	return tx.WithContext(ctx).Create(row).Error
}

// Relay polls for undispatched outbox rows and publishes them to Kafka,
// marking each dispatched on success. It runs until ctx is canceled.
func (b *OutboxBus) Relay(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.relayOnce(ctx)
		}
	}
}

func (b *OutboxBus) relayOnce(ctx context.Context) {
	var rows []store.OutboxEventModel
	if err := b.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("created_at ASC, id ASC").
		Limit(100).
		Find(&rows).Error; err != nil {
		log.Printf("events: outbox relay query failed: %v", err)
		return
	}

	for _, row := range rows {
		record := &kgo.Record{Topic: b.topic, Key: []byte(row.EventType), Value: row.Payload}
		result := b.client.ProduceSync(ctx, record)
		if err := result.FirstErr(); err != nil {
			log.Printf("events: outbox relay failed for event %d: %v", row.ID, err)
			continue
		}
		now := time.Now().UTC()
		if err := b.db.WithContext(ctx).Model(&store.OutboxEventModel{}).
			Where("id = ?", row.ID).
			Update("dispatched_at", now).Error; err != nil {
			log.Printf("events: failed to mark outbox event %d dispatched: %v", row.ID, err)
		}
	}
}
