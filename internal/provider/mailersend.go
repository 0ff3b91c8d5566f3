package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/config"
	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

// MailerSend provisions per-app SMTP users through the MailerSend
// management API and submits mail over the returned SMTP endpoint.
type MailerSend struct {
	cfg    config.MailerSendConfig
	http   *http.Client
	logger *zap.Logger
}

func NewMailerSend(cfg config.MailerSendConfig, logger *zap.Logger) *MailerSend {
	return &MailerSend{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (m *MailerSend) Name() domain.ProviderType { return domain.ProviderMailerSend }

type mailerSendSMTPUser struct {
	Data struct {
		Username string      `json:"username"`
		Password string      `json:"password"`
		Server   string      `json:"server"`
		Port     json.Number `json:"port"`
	} `json:"data"`
}

func (m *MailerSend) Provision(ctx context.Context, req ProvisionRequest) (domain.Credentials, error) {
	url := fmt.Sprintf("%s/v1/domains/%s/smtp-users", m.cfg.BaseURL, m.cfg.DomainID)
	body, _ := json.Marshal(map[string]any{
		"name":    req.AppID,
		"enabled": true,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Credentials{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.cfg.APIToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(httpReq)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("mailersend smtp-users request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return domain.Credentials{}, fmt.Errorf("mailersend error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out mailerSendSMTPUser
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.Credentials{}, fmt.Errorf("mailersend response: %w", err)
	}

	// port occasionally arrives as "587 (recommended)"; keep digits only
	port := strings.Fields(out.Data.Port.String())
	creds := domain.Credentials{
		Host:      out.Data.Server,
		Username:  out.Data.Username,
		Password:  out.Data.Password,
		FromEmail: out.Data.Username,
	}
	if len(port) > 0 {
		creds.Port = port[0]
	}

	m.logger.Info("mailersend smtp user provisioned",
		zap.String("app_id", req.AppID),
		zap.String("host", creds.Host))
	return creds, nil
}

func (m *MailerSend) Send(ctx context.Context, creds domain.Credentials, msg Message) error {
	from := msg.FromEmail
	if from == "" {
		from = creds.FromEmail
	}
	raw := buildMessage(from, msg.To, msg.Subject, msg.HTML, map[string]string{
		"X-MailerSend-Tags": msg.Tag,
	})
	return submitSMTP(ctx, creds, from, msg.To, raw)
}
