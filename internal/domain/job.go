package domain

type JobKind string

const (
	JobSetProvider JobKind = "set_provider"
	JobProvision   JobKind = "provision"
	JobSend        JobKind = "send"
)

// Job is one queue message. It carries the minimal durable state a
// worker needs to execute the operation from scratch, so a crashed
// worker's replacement can pick it up without in-process context.
type Job struct {
	Kind     JobKind      `json:"kind"`
	AppID    string       `json:"app_id"`
	UserID   string       `json:"user_id,omitempty"`
	Provider ProviderType `json:"provider,omitempty"` // set_provider only
	EntryID  string       `json:"entry_id,omitempty"` // send only
	To       string       `json:"to,omitempty"`
	Subject  string       `json:"subject,omitempty"`
	HTML     string       `json:"html,omitempty"`
	Attempt  int          `json:"attempt,omitempty"`
}
