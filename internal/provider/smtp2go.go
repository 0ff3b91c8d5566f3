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

const (
	smtp2goHost = "mail.smtp2go.com"
	smtp2goPort = "2525"
)

// SMTP2GO provisions per-app SMTP users via the SMTP2GO API. Each app
// sends from a per-owner subdomain of the platform sending domain,
// carved out through the Porkbun DNS API on first provision.
type SMTP2GO struct {
	cfg    config.SMTP2GOConfig
	dns    *PorkbunDNS
	http   *http.Client
	logger *zap.Logger
}

func NewSMTP2GO(cfg config.SMTP2GOConfig, dns *PorkbunDNS, logger *zap.Logger) *SMTP2GO {
	return &SMTP2GO{
		cfg:    cfg,
		dns:    dns,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (s *SMTP2GO) Name() domain.ProviderType { return domain.ProviderSMTP2GO }

type smtp2goAddUser struct {
	Data struct {
		Results []struct {
			Username      string `json:"username"`
			EmailPassword string `json:"email_password"`
		} `json:"results"`
	} `json:"data"`
}

func (s *SMTP2GO) Provision(ctx context.Context, req ProvisionRequest) (domain.Credentials, error) {
	subdomain, err := s.dns.EnsureSubdomain(ctx, req.OwnerID)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("subdomain for %s: %w", req.OwnerID, err)
	}

	body, _ := json.Marshal(map[string]any{
		"feedback_domain":       "default",
		"status":                "allowed",
		"open_tracking_enabled": true,
		"username":              req.AppID,
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v3/users/smtp/add", bytes.NewReader(body))
	if err != nil {
		return domain.Credentials{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Smtp2go-Api-Key", s.cfg.APIKey)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("smtp2go add user request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return domain.Credentials{}, fmt.Errorf("smtp2go error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out smtp2goAddUser
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.Credentials{}, fmt.Errorf("smtp2go response: %w", err)
	}
	if len(out.Data.Results) == 0 {
		return domain.Credentials{}, fmt.Errorf("smtp2go response carried no smtp user")
	}

	user := out.Data.Results[0]
	creds := domain.Credentials{
		Host:      smtp2goHost,
		Port:      smtp2goPort,
		Username:  user.Username,
		Password:  user.EmailPassword,
		FromEmail: fmt.Sprintf("%s@%s", user.Username, subdomain),
	}

	s.logger.Info("smtp2go smtp user provisioned",
		zap.String("app_id", req.AppID),
		zap.String("from_email", creds.FromEmail))
	return creds, nil
}

func (s *SMTP2GO) Send(ctx context.Context, creds domain.Credentials, msg Message) error {
	from := msg.FromEmail
	if from == "" {
		from = creds.FromEmail
	}
	raw := buildMessage(from, msg.To, msg.Subject, msg.HTML, map[string]string{
		"X-Custom-Header": msg.Tag,
	})
	return submitSMTP(ctx, creds, from, msg.To, raw)
}
