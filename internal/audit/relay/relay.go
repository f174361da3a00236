// Package relay drains the transactional outbox into Kafka. Audit events are
// committed with the business mutation; this worker gives them to downstream
// consumers without ever putting Kafka on the request path.
package relay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Relay publishes unpublished outbox rows to a Kafka topic, oldest first.
// At-least-once: a crash between produce and mark re-publishes the row, and
// consumers dedupe on the event id embedded in the payload.
type Relay struct {
	db     *sql.DB
	client *kgo.Client
	topic  string
	logger *slog.Logger

	pollInterval time.Duration
	batchSize    int
}

func New(db *sql.DB, client *kgo.Client, topic string, logger *slog.Logger) *Relay {
	return &Relay{
		db:           db,
		client:       client,
		topic:        topic,
		logger:       logger,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
	}
}

// NewClient builds the Kafka producer client for the relay.
func NewClient(brokers []string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return client, nil
}

// Run polls the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				// Kafka or DB hiccup: log and retry next tick; rows
				// stay unpublished until they go through.
				r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id          uuid.UUID
	aggregateID string
	payload     []byte
}

func (r *Relay) drainOnce(ctx context.Context) error {
	rows, err := r.fetchUnpublished(ctx)
	if err != nil {
		return err
	}

	for _, row := range rows {
		record := &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.aggregateID),
			Value: row.payload,
		}
		if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox row %s: %w", row.id, err)
		}
		if err := r.markPublished(ctx, row.id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) fetchUnpublished(ctx context.Context) ([]outboxRow, error) {
	const query = `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	dbRows, err := r.db.QueryContext(ctx, query, r.batchSize)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer dbRows.Close()

	var rows []outboxRow
	for dbRows.Next() {
		var row outboxRow
		if err := dbRows.Scan(&row.id, &row.aggregateID, &row.payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return rows, nil
}

func (r *Relay) markPublished(ctx context.Context, rowID uuid.UUID) error {
	const query = `UPDATE outbox SET published_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, rowID, time.Now()); err != nil {
		return fmt.Errorf("mark outbox row published: %w", err)
	}
	return nil
}
