package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/repository"
)

type AccountUsecase struct {
	users  repository.UserRepository
	apps   repository.AppRepository
	logger *zap.Logger
}

func NewAccountUsecase(users repository.UserRepository, apps repository.AppRepository, logger *zap.Logger) *AccountUsecase {
	return &AccountUsecase{users: users, apps: apps, logger: logger}
}

func (uc *AccountUsecase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

func (uc *AccountUsecase) ListApps(ctx context.Context, userID string) ([]*domain.App, error) {
	return uc.apps.ListByOwner(ctx, userID)
}

func (uc *AccountUsecase) UpgradeAccount(ctx context.Context, userID string) (*domain.User, error) {
	user, err := uc.users.UpdatePlan(ctx, userID, domain.PlanPro)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("account upgraded", zap.String("user_id", userID))
	return user, nil
}

func (uc *AccountUsecase) DowngradeAccount(ctx context.Context, userID string) (*domain.User, error) {
	user, err := uc.users.UpdatePlan(ctx, userID, domain.PlanHobby)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("account downgraded", zap.String("user_id", userID))
	return user, nil
}
