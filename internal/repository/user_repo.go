package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	UpdatePlan(ctx context.Context, id string, plan domain.Plan) (*domain.User, error)

	// TryDeductCredits is the credit ledger gate. PRO plans pass without
	// a balance check; HOBBY plans lose exactly `amount` credits or fail
	// with ErrInsufficientCredits. Atomic against concurrent calls for
	// the same user.
	TryDeductCredits(ctx context.Context, id string, amount int) error
}

type userRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, username, plan, credits, created_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.Plan, &u.Credits, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, plan, credits)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, user.ID, user.Username, user.Plan, user.Credits).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepo) UpdatePlan(ctx context.Context, id string, plan domain.Plan) (*domain.User, error) {
	query := `
		UPDATE users
		SET plan = $2
		WHERE id = $1
		RETURNING id, username, plan, credits, created_at
	`
	var u domain.User
	err := r.db.QueryRow(ctx, query, id, plan).Scan(&u.ID, &u.Username, &u.Plan, &u.Credits, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}
	return &u, nil
}

func (r *userRepo) TryDeductCredits(ctx context.Context, id string, amount int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin deduct tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var plan domain.Plan
	var credits int
	err = tx.QueryRow(ctx, `
		SELECT plan, credits
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&plan, &credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to lock user row: %w", err)
	}

	if plan != domain.PlanHobby {
		return tx.Commit(ctx)
	}
	if credits < amount {
		return domain.ErrInsufficientCredits
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET credits = credits - $2
		WHERE id = $1
	`, id, amount); err != nil {
		return fmt.Errorf("failed to deduct credits: %w", err)
	}

	return tx.Commit(ctx)
}
