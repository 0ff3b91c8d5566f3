package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/metrics"
	"github.com/riverzaw/wasmer-cloud-solution/internal/queue"
	"github.com/riverzaw/wasmer-cloud-solution/internal/repository"
)

// EmailUsecase is the dispatch entry point: it gates a send on the
// owner's credit balance and hands the actual delivery to the worker
// pool. The caller gets an acknowledgment (or a credit error) before
// any network call to a provider happens.
type EmailUsecase struct {
	users   repository.UserRepository
	apps    repository.AppRepository
	configs repository.SendingConfigRepository
	logs    repository.EmailLogRepository
	jobs    queue.Queue
	logger  *zap.Logger
}

func NewEmailUsecase(
	users repository.UserRepository,
	apps repository.AppRepository,
	configs repository.SendingConfigRepository,
	logs repository.EmailLogRepository,
	jobs queue.Queue,
	logger *zap.Logger,
) *EmailUsecase {
	return &EmailUsecase{
		users:   users,
		apps:    apps,
		configs: configs,
		logs:    logs,
		jobs:    jobs,
		logger:  logger,
	}
}

// SendEmail accepts a dispatch request. The QUEUED log entry is created
// before the credit gate runs, so a poller always finds a row for an
// accepted request. On an exhausted balance the entry is settled FAILED
// and ErrInsufficientCredits is returned synchronously; otherwise the
// send job is enqueued and the entry is returned as the ack.
func (uc *EmailUsecase) SendEmail(ctx context.Context, appID, to, subject, html string) (*domain.EmailLog, error) {
	app, err := uc.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.Active {
		return nil, domain.ErrAppNotFound
	}

	cfg, err := uc.configs.GetActiveByApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	entry := &domain.EmailLog{
		ID:         ulid.Make().String(),
		AppID:      app.ID,
		UserID:     app.OwnerID,
		Provider:   cfg.Provider,
		ToEmail:    to,
		Subject:    subject,
		MessageTag: strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:     domain.StatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := uc.logs.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record send request: %w", err)
	}

	if err := uc.users.TryDeductCredits(ctx, app.OwnerID, 1); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			if markErr := uc.logs.MarkFailed(ctx, entry.ID, domain.InsufficientCreditsMessage); markErr != nil {
				uc.logger.Error("failed to settle entry after credit rejection",
					zap.String("entry_id", entry.ID), zap.Error(markErr))
			}
			metrics.EmailsFailed.WithLabelValues(string(cfg.Provider), "insufficient_credits").Inc()
			uc.logger.Info("send rejected, insufficient credits",
				zap.String("app_id", appID),
				zap.String("user_id", app.OwnerID))
		}
		return nil, err
	}

	job := domain.Job{
		Kind:    domain.JobSend,
		AppID:   app.ID,
		UserID:  app.OwnerID,
		EntryID: entry.ID,
		To:      to,
		Subject: subject,
		HTML:    html,
		Attempt: 1,
	}
	if err := uc.jobs.Enqueue(ctx, job); err != nil {
		if markErr := uc.logs.MarkFailed(ctx, entry.ID, "Failed to queue send job."); markErr != nil {
			uc.logger.Error("failed to settle entry after enqueue failure",
				zap.String("entry_id", entry.ID), zap.Error(markErr))
		}
		return nil, fmt.Errorf("failed to enqueue send job: %w", err)
	}

	uc.logger.Info("send accepted",
		zap.String("entry_id", entry.ID),
		zap.String("app_id", appID),
		zap.String("provider", string(cfg.Provider)))
	return entry, nil
}

// Status returns the current durable state of one log entry. Never
// blocks on job completion.
func (uc *EmailUsecase) Status(ctx context.Context, entryID string) (*domain.EmailLog, error) {
	return uc.logs.GetByID(ctx, entryID)
}
