package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/usecase"
)

// WebhookHandler ingests provider delivery notifications. Unknown or
// stale events are acknowledged with 200 so providers stop retrying;
// only unauthenticated or malformed requests are rejected.
type WebhookHandler struct {
	webhooks         *usecase.WebhookUsecase
	mailersendSecret string
	logger           *zap.Logger
}

func NewWebhookHandler(webhooks *usecase.WebhookUsecase, mailersendSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks:         webhooks,
		mailersendSecret: mailersendSecret,
		logger:           logger,
	}
}

type mailerSendEvent struct {
	Data struct {
		Type  string `json:"type"`
		Email struct {
			ID   string   `json:"id"`
			Tags []string `json:"tags"`
		} `json:"email"`
	} `json:"data"`
	CreatedAt string `json:"created_at"`
}

// HandleMailerSend receives "delivered" and "opened" events. The raw
// body is authenticated with HMAC-SHA256 against the Signature header
// before anything in the payload is trusted.
func (h *WebhookHandler) HandleMailerSend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	if !h.validMailerSendSignature(r.Header.Get("Signature"), body) {
		h.logger.Warn("mailersend webhook rejected, invalid signature",
			zap.String("remote_addr", r.RemoteAddr))
		sendError(w, http.StatusForbidden, "Invalid signature", nil)
		return
	}

	var payload mailerSendEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		sendError(w, http.StatusBadRequest, "invalid payload", err)
		return
	}

	var kind domain.EventKind
	switch payload.Data.Type {
	case "delivered":
		kind = domain.EventDelivered
	case "opened":
		kind = domain.EventOpened
	default:
		// other event types are none of our business
		sendSuccess(w, http.StatusOK, "ignored", nil)
		return
	}

	var tag string
	if len(payload.Data.Email.Tags) > 0 {
		tag = payload.Data.Email.Tags[0]
	}
	if kind == domain.EventDelivered && tag == "" {
		sendError(w, http.StatusBadRequest, "missing message tag", nil)
		return
	}

	h.apply(w, r, domain.DeliveryEvent{
		Provider:   domain.ProviderMailerSend,
		Kind:       kind,
		MessageTag: tag,
		MessageID:  payload.Data.Email.ID,
		At:         parseEventTime(payload.CreatedAt),
	})
}

func (h *WebhookHandler) validMailerSendSignature(signature string, body []byte) bool {
	if signature == "" || h.mailersendSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.mailersendSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

type smtp2goEvent struct {
	Event     string `json:"event"`
	MessageID string `json:"Message-Id"`
	Tag       string `json:"X-Custom-Header"`
	SendTime  string `json:"sendtime"`
	OpenedAt  string `json:"opened-at"`
}

// HandleSMTP2GO receives "delivered" and "open" events.
func (h *WebhookHandler) HandleSMTP2GO(w http.ResponseWriter, r *http.Request) {
	var payload smtp2goEvent
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendError(w, http.StatusBadRequest, "invalid payload", err)
		return
	}

	var kind domain.EventKind
	var at string
	switch payload.Event {
	case "delivered":
		kind = domain.EventDelivered
		at = payload.SendTime
	case "open":
		kind = domain.EventOpened
		at = payload.OpenedAt
	default:
		sendSuccess(w, http.StatusOK, "ignored", nil)
		return
	}

	if kind == domain.EventDelivered && payload.Tag == "" {
		sendError(w, http.StatusBadRequest, "missing message tag", nil)
		return
	}

	h.apply(w, r, domain.DeliveryEvent{
		Provider:   domain.ProviderSMTP2GO,
		Kind:       kind,
		MessageTag: payload.Tag,
		MessageID:  payload.MessageID,
		At:         parseEventTime(at),
	})
}

func (h *WebhookHandler) apply(w http.ResponseWriter, r *http.Request, ev domain.DeliveryEvent) {
	err := h.webhooks.Apply(r.Context(), ev)
	switch {
	case err == nil:
		sendSuccess(w, http.StatusOK, "event applied", nil)
	case errors.Is(err, domain.ErrUnknownEntry), errors.Is(err, domain.ErrStaleWebhook):
		// logged and dropped; a 4xx/5xx would only make the provider retry
		sendSuccess(w, http.StatusOK, "event ignored", nil)
	default:
		sendError(w, http.StatusInternalServerError, "failed to process event", err)
	}
}

func parseEventTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
