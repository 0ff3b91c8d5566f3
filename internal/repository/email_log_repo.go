package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

type EmailLogRepository interface {
	Create(ctx context.Context, log *domain.EmailLog) error
	GetByID(ctx context.Context, id string) (*domain.EmailLog, error)
	GetByMessageTag(ctx context.Context, tag string) (*domain.EmailLog, error)
	GetByMessageID(ctx context.Context, messageID string) (*domain.EmailLog, error)

	// MarkSent / MarkFailed settle the send job's outcome. Both are
	// guarded on status = QUEUED so a webhook that raced ahead is never
	// clobbered.
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, errorMessage string) error

	// UpdateDelivery persists a webhook transition computed by
	// domain.ApplyEvent. The write is guarded on the status the entry
	// had when it was loaded; false means another writer got there
	// first and the caller should reload and re-apply.
	UpdateDelivery(ctx context.Context, log *domain.EmailLog, expected domain.EmailStatus) (bool, error)

	ListInWindowByApps(ctx context.Context, appIDs []string, from, to time.Time) ([]*domain.EmailLog, error)
}

type emailLogRepo struct {
	db *pgxpool.Pool
}

func NewEmailLogRepo(db *pgxpool.Pool) EmailLogRepository {
	return &emailLogRepo{db: db}
}

const emailLogColumns = `
	id, app_id, user_id, provider, to_email, subject, message_tag, message_id,
	status, error_message, enqueued_at, time_sent, time_delivered, time_read
`

func scanEmailLog(row pgx.Row) (*domain.EmailLog, error) {
	var l domain.EmailLog
	var messageID, errorMessage *string
	err := row.Scan(
		&l.ID,
		&l.AppID,
		&l.UserID,
		&l.Provider,
		&l.ToEmail,
		&l.Subject,
		&l.MessageTag,
		&messageID,
		&l.Status,
		&errorMessage,
		&l.EnqueuedAt,
		&l.TimeSent,
		&l.TimeDelivered,
		&l.TimeRead,
	)
	if err != nil {
		return nil, err
	}
	if messageID != nil {
		l.MessageID = *messageID
	}
	if errorMessage != nil {
		l.ErrorMessage = *errorMessage
	}
	return &l, nil
}

func (r *emailLogRepo) Create(ctx context.Context, log *domain.EmailLog) error {
	query := `
		INSERT INTO email_logs (id, app_id, user_id, provider, to_email, subject, message_tag, status, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		log.ID, log.AppID, log.UserID, log.Provider, log.ToEmail,
		log.Subject, log.MessageTag, log.Status, log.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create email log: %w", err)
	}
	return nil
}

func (r *emailLogRepo) GetByID(ctx context.Context, id string) (*domain.EmailLog, error) {
	return r.getBy(ctx, "id", id)
}

func (r *emailLogRepo) GetByMessageTag(ctx context.Context, tag string) (*domain.EmailLog, error) {
	return r.getBy(ctx, "message_tag", tag)
}

func (r *emailLogRepo) GetByMessageID(ctx context.Context, messageID string) (*domain.EmailLog, error) {
	return r.getBy(ctx, "message_id", messageID)
}

func (r *emailLogRepo) getBy(ctx context.Context, column, value string) (*domain.EmailLog, error) {
	query := `SELECT ` + emailLogColumns + ` FROM email_logs WHERE ` + column + ` = $1`
	l, err := scanEmailLog(r.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnknownEntry
		}
		return nil, fmt.Errorf("failed to get email log: %w", err)
	}
	return l, nil
}

func (r *emailLogRepo) MarkSent(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE email_logs
		SET status = $3, time_sent = $2, error_message = NULL
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id, at, domain.StatusSent, domain.StatusQueued)
	if err != nil {
		return fmt.Errorf("failed to mark email log sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownEntry
	}
	return nil
}

func (r *emailLogRepo) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	query := `
		UPDATE email_logs
		SET status = $3, error_message = $2
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id, errorMessage, domain.StatusFailed, domain.StatusQueued)
	if err != nil {
		return fmt.Errorf("failed to mark email log failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownEntry
	}
	return nil
}

func (r *emailLogRepo) UpdateDelivery(ctx context.Context, log *domain.EmailLog, expected domain.EmailStatus) (bool, error) {
	query := `
		UPDATE email_logs
		SET status = $2, message_id = NULLIF($3, ''), time_delivered = $4, time_read = $5
		WHERE id = $1 AND status = $6
	`
	tag, err := r.db.Exec(ctx, query,
		log.ID, log.Status, log.MessageID, log.TimeDelivered, log.TimeRead, expected,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update email log delivery state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *emailLogRepo) ListInWindowByApps(ctx context.Context, appIDs []string, from, to time.Time) ([]*domain.EmailLog, error) {
	query := `
		SELECT ` + emailLogColumns + `
		FROM email_logs
		WHERE app_id = ANY($1)
		  AND COALESCE(time_sent, enqueued_at) >= $2
		  AND COALESCE(time_sent, enqueued_at) < $3
		ORDER BY COALESCE(time_sent, enqueued_at)
	`
	rows, err := r.db.Query(ctx, query, appIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.EmailLog
	for rows.Next() {
		l, err := scanEmailLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
