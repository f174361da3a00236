package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "medleave/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Append writes both the queryable audit_events row and an outbox row in the
// caller's transaction; the relay worker publishes outbox rows to Kafka.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	ActorID   string            `json:"actor_id"`
	Action    string            `json:"action"`
	Resource  string            `json:"resource"`
	Payload   map[string]string `json:"payload,omitempty"`
	IP        string            `json:"ip,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	eventID := uuid.New()

	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	const insertEvent = `
		INSERT INTO audit_events (id, actor_id, action, resource, payload, ip, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, insertEvent,
		eventID,
		event.ActorID,
		string(event.Action),
		event.Resource,
		payloadBytes,
		event.IP,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	outboxBytes, err := json.Marshal(outboxPayload{
		ID:        eventID.String(),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		ActorID:   event.ActorID,
		Action:    string(event.Action),
		Resource:  event.Resource,
		Payload:   event.Payload,
		IP:        event.IP,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const insertOutbox = `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, insertOutbox,
		uuid.New(),
		"leave_request",
		event.Resource,
		string(event.Action),
		outboxBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByResource(ctx context.Context, resource string) ([]Event, error) {
	const query = `
		SELECT actor_id, action, resource, payload, ip, timestamp
		FROM audit_events
		WHERE resource = $1
		ORDER BY timestamp
	`
	rows, err := s.db.QueryContext(ctx, query, resource)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event        Event
			action       string
			payloadBytes []byte
		)
		if err := rows.Scan(&event.ActorID, &action, &event.Resource, &payloadBytes, &event.IP, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		if len(payloadBytes) > 0 {
			if err := json.Unmarshal(payloadBytes, &event.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal audit payload: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
