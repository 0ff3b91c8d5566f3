package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/metrics"
	"github.com/riverzaw/wasmer-cloud-solution/internal/provider"
	"github.com/riverzaw/wasmer-cloud-solution/internal/queue"
	"github.com/riverzaw/wasmer-cloud-solution/internal/repository"
)

type Options struct {
	Workers         int
	SendMaxAttempts int
	SendRetryDelay  time.Duration
}

func (o *Options) withDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.SendMaxAttempts <= 0 {
		o.SendMaxAttempts = 3
	}
	if o.SendRetryDelay <= 0 {
		o.SendRetryDelay = 10 * time.Second
	}
}

// Dispatcher consumes the job queue with a pool of workers, independent
// of the request-serving path. Jobs are not user-cancellable once
// enqueued; a FAILED outcome is terminal and needs a fresh request.
type Dispatcher struct {
	jobs      queue.Queue
	providers *provider.Registry
	configs   repository.SendingConfigRepository
	logs      repository.EmailLogRepository
	logger    *zap.Logger
	opts      Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(
	jobs queue.Queue,
	providers *provider.Registry,
	configs repository.SendingConfigRepository,
	logs repository.EmailLogRepository,
	logger *zap.Logger,
	opts Options,
) *Dispatcher {
	opts.withDefaults()
	return &Dispatcher{
		jobs:      jobs,
		providers: providers,
		configs:   configs,
		logs:      logs,
		logger:    logger,
		opts:      opts,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.logger.Info("starting job dispatcher", zap.Int("workers", d.opts.Workers))

	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.run(ctx, i)
	}
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info("job dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context, id int) {
	defer d.wg.Done()

	for {
		job, err := d.jobs.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("dequeue failed", zap.Int("worker", id), zap.Error(err))
			continue
		}

		d.Handle(ctx, job)
	}
}

// Handle executes one job to completion, including retries.
func (d *Dispatcher) Handle(ctx context.Context, job domain.Job) {
	switch job.Kind {
	case domain.JobSetProvider:
		d.handleSetProvider(ctx, job)
	case domain.JobProvision:
		d.handleProvision(ctx, job)
	case domain.JobSend:
		d.handleSend(ctx, job)
	default:
		d.logger.Error("unknown job kind", zap.String("kind", string(job.Kind)))
	}
}

func (d *Dispatcher) handleSetProvider(ctx context.Context, job domain.Job) {
	if err := d.configs.ActivateProvider(ctx, job.AppID, job.UserID, job.Provider); err != nil {
		d.logger.Error("failed to switch provider",
			zap.String("app_id", job.AppID),
			zap.String("provider", string(job.Provider)),
			zap.Error(err))
		return
	}
	d.logger.Info("provider activated",
		zap.String("app_id", job.AppID),
		zap.String("provider", string(job.Provider)))
}

func (d *Dispatcher) handleProvision(ctx context.Context, job domain.Job) {
	cfg, err := d.configs.GetActiveByApp(ctx, job.AppID)
	if err != nil {
		d.logger.Error("provisioning skipped, no active configuration",
			zap.String("app_id", job.AppID), zap.Error(err))
		return
	}

	prov, err := d.providers.Get(cfg.Provider)
	if err != nil {
		d.recordProvisionFailure(ctx, cfg, err.Error())
		return
	}

	creds, err := prov.Provision(ctx, provider.ProvisionRequest{
		AppID:   job.AppID,
		OwnerID: cfg.UserID,
	})
	if err != nil {
		d.recordProvisionFailure(ctx, cfg, err.Error())
		return
	}

	if err := d.configs.RecordProvisioningSuccess(ctx, job.AppID, cfg.Provider, creds); err != nil {
		d.logger.Error("failed to store provisioned credentials",
			zap.String("app_id", job.AppID), zap.Error(err))
		return
	}
	d.logger.Info("credentials provisioned",
		zap.String("app_id", job.AppID),
		zap.String("provider", string(cfg.Provider)))
}

func (d *Dispatcher) recordProvisionFailure(ctx context.Context, cfg *domain.SendingConfiguration, message string) {
	d.logger.Error("provisioning failed",
		zap.String("app_id", cfg.AppID),
		zap.String("provider", string(cfg.Provider)),
		zap.String("error", message))
	if err := d.configs.RecordProvisioningFailure(ctx, cfg.AppID, cfg.Provider, message); err != nil {
		d.logger.Error("failed to record provisioning failure",
			zap.String("app_id", cfg.AppID), zap.Error(err))
	}
}

func (d *Dispatcher) handleSend(ctx context.Context, job domain.Job) {
	entry, err := d.logs.GetByID(ctx, job.EntryID)
	if err != nil {
		d.logger.Error("send skipped, entry missing",
			zap.String("entry_id", job.EntryID), zap.Error(err))
		return
	}
	if entry.Status != domain.StatusQueued {
		// already settled, e.g. a replayed queue message
		return
	}

	cfg, err := d.configs.GetActiveByApp(ctx, job.AppID)
	if err != nil {
		d.settleFailed(ctx, entry, err.Error())
		return
	}
	if !cfg.Provisioned() {
		d.settleFailed(ctx, entry, domain.ErrCredentialsNotReady.Error())
		return
	}
	prov, err := d.providers.Get(cfg.Provider)
	if err != nil {
		d.settleFailed(ctx, entry, err.Error())
		return
	}

	msg := provider.Message{
		FromEmail: cfg.Credentials.FromEmail,
		To:        job.To,
		Subject:   job.Subject,
		HTML:      job.HTML,
		Tag:       entry.MessageTag,
	}

	var sendErr error
	for attempt := job.Attempt; attempt <= d.opts.SendMaxAttempts; attempt++ {
		sendErr = prov.Send(ctx, cfg.Credentials, msg)
		if sendErr == nil {
			if err := d.logs.MarkSent(ctx, entry.ID, time.Now().UTC()); err != nil {
				d.logger.Error("failed to mark entry sent",
					zap.String("entry_id", entry.ID), zap.Error(err))
				return
			}
			metrics.EmailsSent.WithLabelValues(string(cfg.Provider)).Inc()
			d.logger.Info("email sent",
				zap.String("entry_id", entry.ID),
				zap.String("provider", string(cfg.Provider)),
				zap.Int("attempt", attempt))
			return
		}

		d.logger.Warn("send attempt failed",
			zap.String("entry_id", entry.ID),
			zap.String("provider", string(cfg.Provider)),
			zap.Int("attempt", attempt),
			zap.Error(sendErr))

		if attempt < d.opts.SendMaxAttempts {
			metrics.SendRetries.WithLabelValues(string(cfg.Provider)).Inc()
			select {
			case <-time.After(d.opts.SendRetryDelay):
			case <-ctx.Done():
				// shutdown mid-retry: the settle below still records the outcome
			}
		}
	}

	metrics.EmailsFailed.WithLabelValues(string(cfg.Provider), "provider_error").Inc()
	d.settleFailed(ctx, entry, sendErr.Error())
}

func (d *Dispatcher) settleFailed(ctx context.Context, entry *domain.EmailLog, message string) {
	if message == "" {
		message = "send failed"
	}
	if err := d.logs.MarkFailed(ctx, entry.ID, message); err != nil {
		d.logger.Error("failed to mark entry failed",
			zap.String("entry_id", entry.ID), zap.Error(err))
		return
	}
	d.logger.Info("email failed",
		zap.String("entry_id", entry.ID),
		zap.String("error", message))
}
