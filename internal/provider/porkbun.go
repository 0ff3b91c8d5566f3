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
)

// PorkbunDNS manages the per-owner sending subdomains under the
// platform's root domain.
type PorkbunDNS struct {
	cfg    config.PorkbunConfig
	http   *http.Client
	logger *zap.Logger
}

func NewPorkbunDNS(cfg config.PorkbunConfig, logger *zap.Logger) *PorkbunDNS {
	return &PorkbunDNS{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type porkbunRecords struct {
	Records []struct {
		Name string `json:"name"`
	} `json:"records"`
}

// EnsureSubdomain returns "<owner>.<domain>", creating the DNS record on
// first use. Owner ids carry underscores which DNS labels cannot.
func (p *PorkbunDNS) EnsureSubdomain(ctx context.Context, ownerID string) (string, error) {
	label := strings.ReplaceAll(ownerID, "_", "-")
	subdomain := fmt.Sprintf("%s.%s", label, p.cfg.Domain)

	auth := map[string]any{
		"apikey":       p.cfg.APIKey,
		"secretapikey": p.cfg.SecretKey,
	}

	var listed porkbunRecords
	if err := p.post(ctx, "/api/json/v3/dns/retrieve/"+p.cfg.Domain, auth, &listed); err != nil {
		return "", err
	}
	for _, rec := range listed.Records {
		if rec.Name == subdomain {
			return subdomain, nil
		}
	}

	create := map[string]any{
		"apikey":       p.cfg.APIKey,
		"secretapikey": p.cfg.SecretKey,
		"name":         label,
		"type":         "A",
		"content":      "1.1.1.1",
		"ttl":          "600",
	}
	if err := p.post(ctx, "/api/json/v3/dns/create/"+p.cfg.Domain, create, nil); err != nil {
		return "", err
	}

	p.logger.Info("sending subdomain created", zap.String("subdomain", subdomain))
	return subdomain, nil
}

func (p *PorkbunDNS) post(ctx context.Context, path string, payload map[string]any, out any) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("porkbun request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("porkbun error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("porkbun response: %w", err)
		}
	}
	return nil
}
