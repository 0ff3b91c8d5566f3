package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/metrics"
	"github.com/riverzaw/wasmer-cloud-solution/internal/repository"
)

// WebhookUsecase applies normalized provider delivery events to the
// email log. Events arrive out of order and may be replayed; applying
// the same event twice never changes state a second time.
type WebhookUsecase struct {
	logs   repository.EmailLogRepository
	logger *zap.Logger
}

func NewWebhookUsecase(logs repository.EmailLogRepository, logger *zap.Logger) *WebhookUsecase {
	return &WebhookUsecase{logs: logs, logger: logger}
}

// Apply resolves the entry the event refers to and advances it through
// the state machine. ErrUnknownEntry and ErrStaleWebhook are the
// caller's cue to log and drop; neither is a hard failure back to the
// provider, since providers retry webhook delivery.
func (uc *WebhookUsecase) Apply(ctx context.Context, ev domain.DeliveryEvent) error {
	entry, err := uc.resolve(ctx, ev)
	if err != nil {
		metrics.WebhookDropped.WithLabelValues(string(ev.Provider), "unknown_entry").Inc()
		return err
	}

	// Two passes: if a concurrent writer moved the entry between load
	// and store, reload once and re-merge. The merge is monotone, so
	// the second pass can only no-op or advance further.
	for attempt := 0; attempt < 2; attempt++ {
		expected := entry.Status
		changed, err := entry.ApplyEvent(ev)
		if err != nil {
			metrics.WebhookDropped.WithLabelValues(string(ev.Provider), "stale").Inc()
			uc.logger.Warn("webhook event dropped",
				zap.String("entry_id", entry.ID),
				zap.String("event", string(ev.Kind)),
				zap.String("status", string(entry.Status)),
				zap.Error(err))
			return err
		}
		if !changed {
			// replay of an already-applied event
			metrics.WebhookEvents.WithLabelValues(string(ev.Provider), string(ev.Kind)).Inc()
			return nil
		}

		stored, err := uc.logs.UpdateDelivery(ctx, entry, expected)
		if err != nil {
			return err
		}
		if stored {
			metrics.WebhookEvents.WithLabelValues(string(ev.Provider), string(ev.Kind)).Inc()
			uc.logger.Info("delivery event applied",
				zap.String("entry_id", entry.ID),
				zap.String("event", string(ev.Kind)),
				zap.String("status", string(entry.Status)))
			return nil
		}

		entry, err = uc.logs.GetByID(ctx, entry.ID)
		if err != nil {
			return err
		}
	}

	metrics.WebhookDropped.WithLabelValues(string(ev.Provider), "contention").Inc()
	return domain.ErrStaleWebhook
}

func (uc *WebhookUsecase) resolve(ctx context.Context, ev domain.DeliveryEvent) (*domain.EmailLog, error) {
	if ev.Kind == domain.EventDelivered {
		return uc.logs.GetByMessageTag(ctx, ev.MessageTag)
	}

	// opened events carry the provider message id; fall back to the tag
	// when the delivered event (which teaches us the id) never arrived
	if ev.MessageID != "" {
		entry, err := uc.logs.GetByMessageID(ctx, ev.MessageID)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, domain.ErrUnknownEntry) || ev.MessageTag == "" {
			return nil, err
		}
	}
	if ev.MessageTag == "" {
		return nil, domain.ErrUnknownEntry
	}
	return uc.logs.GetByMessageTag(ctx, ev.MessageTag)
}
