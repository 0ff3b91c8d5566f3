package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

type SendingConfigRepository interface {
	GetActiveByApp(ctx context.Context, appID string) (*domain.SendingConfiguration, error)

	// ActivateProvider deactivates whatever row is currently active for
	// the app and marks the (app, provider) row active, creating or
	// reusing it. One transaction, so "exactly one active" holds at all
	// times. Idempotent when the provider is already active.
	ActivateProvider(ctx context.Context, appID, userID string, p domain.ProviderType) error

	MarkPending(ctx context.Context, appID string, p domain.ProviderType) error
	RecordProvisioningSuccess(ctx context.Context, appID string, p domain.ProviderType, creds domain.Credentials) error
	RecordProvisioningFailure(ctx context.Context, appID string, p domain.ProviderType, message string) error
}

type sendingConfigRepo struct {
	db *pgxpool.Pool
}

func NewSendingConfigRepo(db *pgxpool.Pool) SendingConfigRepository {
	return &sendingConfigRepo{db: db}
}

const sendingConfigColumns = `
	id, app_id, user_id, provider, credentials, is_active,
	provisioning_status, provisioning_error, created_at, updated_at
`

func scanSendingConfig(row pgx.Row) (*domain.SendingConfiguration, error) {
	var c domain.SendingConfiguration
	var provisioningError *string
	err := row.Scan(
		&c.ID,
		&c.AppID,
		&c.UserID,
		&c.Provider,
		&c.Credentials,
		&c.IsActive,
		&c.ProvisioningStatus,
		&provisioningError,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if provisioningError != nil {
		c.ProvisioningError = *provisioningError
	}
	return &c, nil
}

func (r *sendingConfigRepo) GetActiveByApp(ctx context.Context, appID string) (*domain.SendingConfiguration, error) {
	query := `
		SELECT ` + sendingConfigColumns + `
		FROM sending_configurations
		WHERE app_id = $1 AND is_active = true
	`
	c, err := scanSendingConfig(r.db.QueryRow(ctx, query, appID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveProvider
		}
		return nil, fmt.Errorf("failed to get active sending configuration: %w", err)
	}
	return c, nil
}

func (r *sendingConfigRepo) ActivateProvider(ctx context.Context, appID, userID string, p domain.ProviderType) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin activation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE sending_configurations
		SET is_active = false, updated_at = now()
		WHERE app_id = $1 AND is_active = true AND provider <> $2
	`, appID, p); err != nil {
		return fmt.Errorf("failed to deactivate previous provider: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO sending_configurations (app_id, user_id, provider, credentials, is_active, provisioning_status)
		VALUES ($1, $2, $3, '{}'::jsonb, true, $4)
		ON CONFLICT (app_id, provider)
		DO UPDATE SET is_active = true, updated_at = now()
	`, appID, userID, p, domain.ProvisioningIdle); err != nil {
		return fmt.Errorf("failed to activate provider: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *sendingConfigRepo) MarkPending(ctx context.Context, appID string, p domain.ProviderType) error {
	return r.update(ctx, appID, p, `
		UPDATE sending_configurations
		SET provisioning_status = $3, provisioning_error = NULL, updated_at = now()
		WHERE app_id = $1 AND provider = $2
	`, domain.ProvisioningPending)
}

func (r *sendingConfigRepo) RecordProvisioningSuccess(ctx context.Context, appID string, p domain.ProviderType, creds domain.Credentials) error {
	return r.update(ctx, appID, p, `
		UPDATE sending_configurations
		SET provisioning_status = $4, provisioning_error = NULL, credentials = $3, updated_at = now()
		WHERE app_id = $1 AND provider = $2
	`, creds, domain.ProvisioningSuccess)
}

func (r *sendingConfigRepo) RecordProvisioningFailure(ctx context.Context, appID string, p domain.ProviderType, message string) error {
	return r.update(ctx, appID, p, `
		UPDATE sending_configurations
		SET provisioning_status = $4, provisioning_error = $3, updated_at = now()
		WHERE app_id = $1 AND provider = $2
	`, message, domain.ProvisioningFailed)
}

func (r *sendingConfigRepo) update(ctx context.Context, appID string, p domain.ProviderType, query string, args ...any) error {
	params := append([]any{appID, p}, args...)
	tag, err := r.db.Exec(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("failed to update sending configuration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoActiveProvider
	}
	return nil
}
