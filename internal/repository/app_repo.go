package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

type AppRepository interface {
	GetByID(ctx context.Context, id string) (*domain.App, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.App, error)
	Create(ctx context.Context, app *domain.App) error
}

type appRepo struct {
	db *pgxpool.Pool
}

func NewAppRepo(db *pgxpool.Pool) AppRepository {
	return &appRepo{db: db}
}

func (r *appRepo) GetByID(ctx context.Context, id string) (*domain.App, error) {
	query := `
		SELECT id, owner_id, active, created_at
		FROM deployed_apps
		WHERE id = $1
	`
	var a domain.App
	err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.OwnerID, &a.Active, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAppNotFound
		}
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return &a, nil
}

func (r *appRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.App, error) {
	query := `
		SELECT id, owner_id, active, created_at
		FROM deployed_apps
		WHERE owner_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	defer rows.Close()

	var apps []*domain.App
	for rows.Next() {
		var a domain.App
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan app: %w", err)
		}
		apps = append(apps, &a)
	}
	return apps, rows.Err()
}

func (r *appRepo) Create(ctx context.Context, app *domain.App) error {
	query := `
		INSERT INTO deployed_apps (id, owner_id, active)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, app.ID, app.OwnerID, app.Active).Scan(&app.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	return nil
}
