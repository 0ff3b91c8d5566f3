package domain

import "time"

type ProvisioningStatus string

const (
	ProvisioningIdle    ProvisioningStatus = "IDLE"
	ProvisioningPending ProvisioningStatus = "PENDING"
	ProvisioningSuccess ProvisioningStatus = "SUCCESS"
	ProvisioningFailed  ProvisioningStatus = "FAILED"
)

// SendingConfiguration ties an app to one provider. At most one row per
// (app, provider); at most one active row per app, switched atomically
// by the repository. Historical rows survive provider switches.
type SendingConfiguration struct {
	ID                 int64              `json:"id"`
	AppID              string             `json:"app_id"`
	UserID             string             `json:"user_id"`
	Provider           ProviderType       `json:"provider"`
	Credentials        Credentials        `json:"credentials"`
	IsActive           bool               `json:"is_active"`
	ProvisioningStatus ProvisioningStatus `json:"provisioning_status"`
	ProvisioningError  string             `json:"provisioning_error,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Provisioned reports whether the row holds working credentials.
func (c *SendingConfiguration) Provisioned() bool {
	return c.ProvisioningStatus == ProvisioningSuccess && c.Credentials.Complete()
}
