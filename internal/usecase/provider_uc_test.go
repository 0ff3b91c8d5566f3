package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/queue"
)

func newProviderFixture(configs *fakeConfigRepo) (*ProviderUsecase, *queue.MemoryQueue) {
	apps := newFakeAppRepo(&domain.App{ID: "app_1", OwnerID: "u_1", Active: true})
	jobs := queue.NewMemoryQueue(16)
	return NewProviderUsecase(apps, configs, jobs, zap.NewNop()), jobs
}

func TestSetAppProviderEnqueuesSwitch(t *testing.T) {
	uc, jobs := newProviderFixture(newFakeConfigRepo())

	require.NoError(t, uc.SetAppProvider(context.Background(), "app_1", "MAILERSEND"))

	job, err := jobs.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.JobSetProvider, job.Kind)
	assert.Equal(t, "app_1", job.AppID)
	assert.Equal(t, "u_1", job.UserID)
	assert.Equal(t, domain.ProviderMailerSend, job.Provider)
}

func TestSetAppProviderRejectsUnknownName(t *testing.T) {
	uc, jobs := newProviderFixture(newFakeConfigRepo())

	err := uc.SetAppProvider(context.Background(), "app_1", "SENDGRID")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	assert.Equal(t, 0, jobs.Len())
}

func TestProvisionCredentialsMarksPendingAndEnqueues(t *testing.T) {
	configs := newFakeConfigRepo(&domain.SendingConfiguration{
		AppID: "app_1", UserID: "u_1", Provider: domain.ProviderSMTP2GO,
		IsActive: true, ProvisioningStatus: domain.ProvisioningIdle,
	})
	uc, jobs := newProviderFixture(configs)

	cfg, err := uc.ProvisionCredentials(context.Background(), "app_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProvisioningPending, cfg.ProvisioningStatus)

	job, err := jobs.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.JobProvision, job.Kind)

	rows := configs.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, domain.ProvisioningPending, rows[0].ProvisioningStatus)
}

func TestProvisionCredentialsAlreadyConfigured(t *testing.T) {
	configs := newFakeConfigRepo(&domain.SendingConfiguration{
		AppID: "app_1", UserID: "u_1", Provider: domain.ProviderSMTP2GO,
		IsActive: true, ProvisioningStatus: domain.ProvisioningSuccess,
		Credentials: domain.Credentials{Host: "h", Port: "1", Username: "u", Password: "p"},
	})
	uc, jobs := newProviderFixture(configs)

	_, err := uc.ProvisionCredentials(context.Background(), "app_1")
	assert.ErrorIs(t, err, domain.ErrAlreadyConfigured)
	assert.Equal(t, 0, jobs.Len(), "provider must not be contacted")
}

func TestProvisionCredentialsRetryAfterFailureReusesRow(t *testing.T) {
	configs := newFakeConfigRepo(&domain.SendingConfiguration{
		AppID: "app_1", UserID: "u_1", Provider: domain.ProviderSMTP2GO,
		IsActive: true, ProvisioningStatus: domain.ProvisioningFailed,
		ProvisioningError: "smtp2go error (500): boom",
	})
	uc, _ := newProviderFixture(configs)

	cfg, err := uc.ProvisionCredentials(context.Background(), "app_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProvisioningPending, cfg.ProvisioningStatus)
	assert.Empty(t, cfg.ProvisioningError)

	rows := configs.snapshot()
	require.Len(t, rows, 1, "retry reuses the same row")
}

func TestProvisionCredentialsNoActiveProvider(t *testing.T) {
	uc, _ := newProviderFixture(newFakeConfigRepo())

	_, err := uc.ProvisionCredentials(context.Background(), "app_1")
	assert.ErrorIs(t, err, domain.ErrNoActiveProvider)
}

func TestSMTPCredentials(t *testing.T) {
	creds := domain.Credentials{Host: "mail.smtp2go.com", Port: "2525", Username: "u", Password: "p"}
	configs := newFakeConfigRepo(&domain.SendingConfiguration{
		AppID: "app_1", UserID: "u_1", Provider: domain.ProviderSMTP2GO,
		IsActive: true, ProvisioningStatus: domain.ProvisioningSuccess, Credentials: creds,
	})
	uc, _ := newProviderFixture(configs)

	cfg, err := uc.SMTPCredentials(context.Background(), "app_1")
	require.NoError(t, err)
	assert.Equal(t, creds, cfg.Credentials)
	assert.Equal(t, domain.ProviderSMTP2GO, cfg.Provider)
}

func TestSMTPCredentialsNotReady(t *testing.T) {
	configs := newFakeConfigRepo(&domain.SendingConfiguration{
		AppID: "app_1", UserID: "u_1", Provider: domain.ProviderSMTP2GO,
		IsActive: true, ProvisioningStatus: domain.ProvisioningPending,
	})
	uc, _ := newProviderFixture(configs)

	_, err := uc.SMTPCredentials(context.Background(), "app_1")
	assert.ErrorIs(t, err, domain.ErrCredentialsNotReady)
}
