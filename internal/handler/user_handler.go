package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/usecase"
)

type UserHandler struct {
	accounts *usecase.AccountUsecase
	logger   *zap.Logger
}

func NewUserHandler(accounts *usecase.AccountUsecase, logger *zap.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.accounts.GetUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "failed to get user")
		return
	}
	apps, err := h.accounts.ListApps(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "failed to list apps")
		return
	}

	sendSuccess(w, http.StatusOK, "user", map[string]interface{}{
		"user": user,
		"apps": apps,
	})
}

func (h *UserHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.UpgradeAccount(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, err, "failed to upgrade account")
		return
	}
	sendSuccess(w, http.StatusOK, "account upgraded", user)
}

func (h *UserHandler) Downgrade(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.DowngradeAccount(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, err, "failed to downgrade account")
		return
	}
	sendSuccess(w, http.StatusOK, "account downgraded", user)
}

func (h *UserHandler) respondError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, domain.ErrUserNotFound) {
		sendError(w, http.StatusNotFound, message, err)
		return
	}
	h.logger.Error(message, zap.Error(err))
	sendError(w, http.StatusInternalServerError, message, err)
}
