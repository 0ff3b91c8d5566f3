package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/queue"
	"github.com/riverzaw/wasmer-cloud-solution/internal/repository"
)

// ProviderUsecase manages which provider an app sends through and the
// provisioning of its credentials.
type ProviderUsecase struct {
	apps    repository.AppRepository
	configs repository.SendingConfigRepository
	jobs    queue.Queue
	logger  *zap.Logger
}

func NewProviderUsecase(
	apps repository.AppRepository,
	configs repository.SendingConfigRepository,
	jobs queue.Queue,
	logger *zap.Logger,
) *ProviderUsecase {
	return &ProviderUsecase{
		apps:    apps,
		configs: configs,
		jobs:    jobs,
		logger:  logger,
	}
}

// SetAppProvider enqueues the provider switch and acks. The switch
// itself is a single transaction in the repository, so no interleaving
// of jobs can leave two credentials active.
func (uc *ProviderUsecase) SetAppProvider(ctx context.Context, appID, providerName string) error {
	p, err := domain.ParseProviderType(providerName)
	if err != nil {
		return err
	}
	app, err := uc.apps.GetByID(ctx, appID)
	if err != nil {
		return err
	}

	return uc.jobs.Enqueue(ctx, domain.Job{
		Kind:     domain.JobSetProvider,
		AppID:    app.ID,
		UserID:   app.OwnerID,
		Provider: p,
	})
}

// ProvisionCredentials kicks off credential provisioning for the app's
// active provider. Rejected with ErrAlreadyConfigured when the pair
// already holds working credentials; the provider is never contacted in
// that case. Retrying after a failure reuses the same row.
func (uc *ProviderUsecase) ProvisionCredentials(ctx context.Context, appID string) (*domain.SendingConfiguration, error) {
	cfg, err := uc.configs.GetActiveByApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	if cfg.ProvisioningStatus == domain.ProvisioningSuccess {
		return nil, domain.ErrAlreadyConfigured
	}

	if err := uc.configs.MarkPending(ctx, appID, cfg.Provider); err != nil {
		return nil, err
	}
	if err := uc.jobs.Enqueue(ctx, domain.Job{
		Kind:   domain.JobProvision,
		AppID:  appID,
		UserID: cfg.UserID,
	}); err != nil {
		return nil, err
	}

	uc.logger.Info("provisioning queued",
		zap.String("app_id", appID),
		zap.String("provider", string(cfg.Provider)))

	cfg.ProvisioningStatus = domain.ProvisioningPending
	cfg.ProvisioningError = ""
	return cfg, nil
}

// SendingConfiguration is the polling contract for provisioning status.
func (uc *ProviderUsecase) SendingConfiguration(ctx context.Context, appID string) (*domain.SendingConfiguration, error) {
	return uc.configs.GetActiveByApp(ctx, appID)
}

// SMTPCredentials returns the provisioned credential payload for the
// app's active provider.
func (uc *ProviderUsecase) SMTPCredentials(ctx context.Context, appID string) (*domain.SendingConfiguration, error) {
	cfg, err := uc.configs.GetActiveByApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !cfg.Provisioned() {
		return nil, domain.ErrCredentialsNotReady
	}
	return cfg, nil
}
