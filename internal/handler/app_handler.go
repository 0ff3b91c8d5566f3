package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/usecase"
)

// AppHandler exposes the client-facing app operations: provider
// selection, provisioning, dispatch, credential retrieval and usage.
type AppHandler struct {
	emails    *usecase.EmailUsecase
	providers *usecase.ProviderUsecase
	usage     *usecase.UsageUsecase
	logger    *zap.Logger
}

func NewAppHandler(
	emails *usecase.EmailUsecase,
	providers *usecase.ProviderUsecase,
	usage *usecase.UsageUsecase,
	logger *zap.Logger,
) *AppHandler {
	return &AppHandler{
		emails:    emails,
		providers: providers,
		usage:     usage,
		logger:    logger,
	}
}

// SetProvider acks once the switch job is queued; activation itself is
// asynchronous.
func (h *AppHandler) SetProvider(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")

	var req struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.providers.SetAppProvider(r.Context(), appID, req.Provider); err != nil {
		h.respondError(w, err, "failed to set provider")
		return
	}
	sendSuccess(w, http.StatusAccepted, "provider switch queued", map[string]interface{}{
		"app_id":   appID,
		"provider": req.Provider,
	})
}

func (h *AppHandler) Provision(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")

	cfg, err := h.providers.ProvisionCredentials(r.Context(), appID)
	if err != nil {
		h.respondError(w, err, "failed to start provisioning")
		return
	}
	sendSuccess(w, http.StatusAccepted, "provisioning queued", sendingConfigResponse(cfg))
}

// SendingConfiguration is the provisioning status poll.
func (h *AppHandler) SendingConfiguration(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")

	cfg, err := h.providers.SendingConfiguration(r.Context(), appID)
	if err != nil {
		h.respondError(w, err, "failed to read sending configuration")
		return
	}
	sendSuccess(w, http.StatusOK, "sending configuration", sendingConfigResponse(cfg))
}

func (h *AppHandler) SMTPCredentials(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")

	cfg, err := h.providers.SMTPCredentials(r.Context(), appID)
	if err != nil {
		h.respondError(w, err, "failed to read smtp credentials")
		return
	}
	sendSuccess(w, http.StatusOK, "smtp credentials", map[string]interface{}{
		"host":     cfg.Credentials.Host,
		"port":     cfg.Credentials.Port,
		"username": cfg.Credentials.Username,
		"password": cfg.Credentials.Password,
		"provider": cfg.Provider,
	})
}

// SendEmail acks enqueue; the actual provider call happens on a worker.
func (h *AppHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")

	var req struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		HTML    string `json:"html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.To == "" {
		sendError(w, http.StatusBadRequest, "recipient is required", nil)
		return
	}

	entry, err := h.emails.SendEmail(r.Context(), appID, req.To, req.Subject, req.HTML)
	if err != nil {
		h.respondError(w, err, "failed to dispatch email")
		return
	}
	sendSuccess(w, http.StatusAccepted, "email queued", map[string]interface{}{
		"entry_id":    entry.ID,
		"message_tag": entry.MessageTag,
		"status":      entry.Status,
	})
}

// EmailStatus reads one log entry's current state.
func (h *AppHandler) EmailStatus(w http.ResponseWriter, r *http.Request) {
	entry, err := h.emails.Status(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		h.respondError(w, err, "failed to read email status")
		return
	}
	sendSuccess(w, http.StatusOK, "email status", entry)
}

func (h *AppHandler) AppUsage(w http.ResponseWriter, r *http.Request) {
	h.usageResponse(w, r, domain.UsageScope{AppID: chi.URLParam(r, "appID")})
}

func (h *AppHandler) UserUsage(w http.ResponseWriter, r *http.Request) {
	h.usageResponse(w, r, domain.UsageScope{UserID: chi.URLParam(r, "userID")})
}

func (h *AppHandler) usageResponse(w http.ResponseWriter, r *http.Request, scope domain.UsageScope) {
	groupBy, err := domain.ParseGranularity(r.URL.Query().Get("group_by"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid group_by", err)
		return
	}
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid from timestamp", err)
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid to timestamp", err)
		return
	}

	buckets, err := h.usage.Usage(r.Context(), scope, groupBy, from, to)
	if err != nil {
		h.respondError(w, err, "failed to aggregate usage")
		return
	}
	sendSuccess(w, http.StatusOK, "usage", buckets)
}

func sendingConfigResponse(cfg *domain.SendingConfiguration) map[string]interface{} {
	return map[string]interface{}{
		"app_id":              cfg.AppID,
		"provider":            cfg.Provider,
		"provisioning_status": cfg.ProvisioningStatus,
		"provisioning_error":  cfg.ProvisioningError,
	}
}

func (h *AppHandler) respondError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		sendError(w, http.StatusPaymentRequired, domain.InsufficientCreditsMessage, err)
	case errors.Is(err, domain.ErrAlreadyConfigured):
		sendError(w, http.StatusConflict, "Credentials have been already configured for this app and provider.", err)
	case errors.Is(err, domain.ErrNoActiveProvider), errors.Is(err, domain.ErrCredentialsNotReady):
		sendError(w, http.StatusPreconditionFailed, message, err)
	case errors.Is(err, domain.ErrAppNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnknownEntry):
		sendError(w, http.StatusNotFound, message, err)
	case errors.Is(err, domain.ErrUnknownProvider):
		sendError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		sendError(w, http.StatusInternalServerError, message, err)
	}
}
