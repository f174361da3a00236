package leave

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "medleave/pkg/domain"
	"medleave/pkg/platform/sentinel"
	txcontext "medleave/pkg/platform/tx"
)

// Postgres error codes translated to sentinels.
const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// PostgresStore persists requests, evidence, and deliveries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer routes statements through the context transaction when one is
// present so validate-then-insert and lock-then-mutate stay in one unit.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func translateConstraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation, pqExclusionViolation:
			return sentinel.ErrConflict
		}
	}
	return err
}

func (s *PostgresStore) CreateRequest(ctx context.Context, req *LeaveRequest, ev *Evidence) error {
	const insertRequest = `
		INSERT INTO leave_requests (id, student_id, folio, issue_date, start_date, end_date, state, rejection_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, insertRequest,
		uuid.UUID(req.ID),
		uuid.UUID(req.StudentID),
		req.Folio,
		req.IssueDate,
		req.StartDate,
		req.EndDate,
		string(req.State),
		req.CreatedAt,
	)
	if err != nil {
		if translated := translateConstraint(err); translated == sentinel.ErrConflict {
			return translated
		}
		return fmt.Errorf("insert leave request: %w", err)
	}

	const insertEvidence = `
		INSERT INTO evidence (id, request_id, student_id, url, mime_type, sha256, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.execer(ctx).ExecContext(ctx, insertEvidence,
		uuid.UUID(ev.ID),
		uuid.UUID(ev.RequestID),
		uuid.UUID(ev.StudentID),
		ev.URL,
		ev.MimeType,
		ev.SHA256,
		ev.SizeBytes,
		ev.UploadedAt,
	)
	if err != nil {
		if translated := translateConstraint(err); translated == sentinel.ErrConflict {
			return translated
		}
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

const requestColumns = `id, student_id, folio, issue_date, start_date, end_date, state, rejection_reason, created_at`

func (s *PostgresStore) GetRequest(ctx context.Context, requestID id.RequestID) (*LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = $1`
	return s.scanRequest(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(requestID)))
}

func (s *PostgresStore) GetRequestForUpdate(ctx context.Context, requestID id.RequestID) (*LeaveRequest, error) {
	// FOR UPDATE serializes concurrent decisions on the same row; the lock
	// is held until the surrounding transaction commits or rolls back.
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = $1 FOR UPDATE`
	return s.scanRequest(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(requestID)))
}

func (s *PostgresStore) scanRequest(row *sql.Row) (*LeaveRequest, error) {
	var (
		req             LeaveRequest
		reqID, studID   uuid.UUID
		state           string
		rejectionReason sql.NullString
	)
	err := row.Scan(
		&reqID,
		&studID,
		&req.Folio,
		&req.IssueDate,
		&req.StartDate,
		&req.EndDate,
		&state,
		&rejectionReason,
		&req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan leave request: %w", err)
	}
	req.ID = id.RequestID(reqID)
	req.StudentID = id.StudentID(studID)
	parsed, err := ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("stored state: %w", err)
	}
	req.State = parsed
	req.RejectionReason = rejectionReason.String
	return &req, nil
}

func (s *PostgresStore) ListActiveByStudent(ctx context.Context, studentID id.StudentID) ([]*LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE student_id = $1 AND state IN ('pending', 'accepted')`
	return s.listRequests(ctx, query, uuid.UUID(studentID))
}

func (s *PostgresStore) ListAcceptedByStudent(ctx context.Context, studentID id.StudentID) ([]*LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE student_id = $1 AND state = 'accepted'`
	return s.listRequests(ctx, query, uuid.UUID(studentID))
}

func (s *PostgresStore) listRequests(ctx context.Context, query string, args ...any) ([]*LeaveRequest, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leave requests: %w", err)
	}
	defer rows.Close()

	var out []*LeaveRequest
	for rows.Next() {
		var (
			req             LeaveRequest
			reqID, studID   uuid.UUID
			state           string
			rejectionReason sql.NullString
		)
		err := rows.Scan(
			&reqID,
			&studID,
			&req.Folio,
			&req.IssueDate,
			&req.StartDate,
			&req.EndDate,
			&state,
			&rejectionReason,
			&req.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan leave request: %w", err)
		}
		req.ID = id.RequestID(reqID)
		req.StudentID = id.StudentID(studID)
		parsed, err := ParseState(state)
		if err != nil {
			return nil, fmt.Errorf("stored state: %w", err)
		}
		req.State = parsed
		req.RejectionReason = rejectionReason.String
		out = append(out, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leave requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateDecision(ctx context.Context, req *LeaveRequest) error {
	var rejectionReason sql.NullString
	if req.RejectionReason != "" {
		rejectionReason = sql.NullString{String: req.RejectionReason, Valid: true}
	}

	const query = `
		UPDATE leave_requests
		SET state = $2, start_date = $3, end_date = $4, rejection_reason = $5
		WHERE id = $1 AND state = 'pending'
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(req.ID),
		string(req.State),
		req.StartDate,
		req.EndDate,
		rejectionReason,
	)
	if err != nil {
		if translated := translateConstraint(err); translated == sentinel.ErrConflict {
			return translated
		}
		return fmt.Errorf("update decision: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update decision rows affected: %w", err)
	}
	if affected == 0 {
		// Row gone or already decided; callers holding the row lock only
		// reach here on a lost race, which surfaces as invalid state.
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) FindEvidenceByHash(ctx context.Context, studentID id.StudentID, sha256 string) (*Evidence, error) {
	const query = `
		SELECT id, request_id, student_id, url, mime_type, sha256, size_bytes, uploaded_at
		FROM evidence
		WHERE student_id = $1 AND sha256 = $2
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(studentID), sha256)

	ev, err := scanEvidence(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence by hash: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) ListEvidence(ctx context.Context, requestID id.RequestID) ([]*Evidence, error) {
	const query = `
		SELECT id, request_id, student_id, url, mime_type, sha256, size_bytes, uploaded_at
		FROM evidence
		WHERE request_id = $1
		ORDER BY uploaded_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	var out []*Evidence
	for rows.Next() {
		ev, err := scanEvidence(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return out, nil
}

func scanEvidence(scan func(dest ...any) error) (*Evidence, error) {
	var (
		ev            Evidence
		evID          uuid.UUID
		reqID, studID uuid.UUID
	)
	err := scan(&evID, &reqID, &studID, &ev.URL, &ev.MimeType, &ev.SHA256, &ev.SizeBytes, &ev.UploadedAt)
	if err != nil {
		return nil, err
	}
	ev.ID = id.EvidenceID(evID)
	ev.RequestID = id.RequestID(reqID)
	ev.StudentID = id.StudentID(studID)
	return &ev, nil
}

func (s *PostgresStore) CreateDelivery(ctx context.Context, d *Delivery) (bool, error) {
	// "already exists" is success, never an error: the fan-out is
	// idempotent by construction.
	const query = `
		INSERT INTO deliveries (id, request_id, course_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id, course_id) DO NOTHING
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		d.ID,
		uuid.UUID(d.RequestID),
		uuid.UUID(d.CourseID),
		d.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert delivery: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert delivery rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) ListDeliveries(ctx context.Context, requestID id.RequestID) ([]*Delivery, error) {
	const query = `
		SELECT id, request_id, course_id, created_at
		FROM deliveries
		WHERE request_id = $1
		ORDER BY created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []*Delivery
	for rows.Next() {
		var (
			d             Delivery
			reqID, course uuid.UUID
		)
		if err := rows.Scan(&d.ID, &reqID, &course, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.RequestID = id.RequestID(reqID)
		d.CourseID = id.CourseID(course)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}
