package domain

import "fmt"

// ProviderType is the closed set of email providers the platform can
// provision and send through.
type ProviderType string

const (
	ProviderMailerSend ProviderType = "MAILERSEND"
	ProviderSMTP2GO    ProviderType = "SMTP2GO"
)

func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(s) {
	case ProviderMailerSend:
		return ProviderMailerSend, nil
	case ProviderSMTP2GO:
		return ProviderSMTP2GO, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// Credentials is the opaque sending credential payload a provider hands
// back after provisioning. Stored as JSONB on the sending configuration.
type Credentials struct {
	Host      string `json:"host"`
	Port      string `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email"`
}

// Complete reports whether the payload carries everything needed to open
// an authenticated SMTP session.
func (c Credentials) Complete() bool {
	return c.Host != "" && c.Port != "" && c.Username != "" && c.Password != ""
}
