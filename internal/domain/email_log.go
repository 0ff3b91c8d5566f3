package domain

import "time"

type EmailStatus string

const (
	StatusQueued    EmailStatus = "QUEUED"
	StatusSent      EmailStatus = "SENT"
	StatusFailed    EmailStatus = "FAILED"
	StatusDelivered EmailStatus = "DELIVERED"
	StatusOpened    EmailStatus = "OPENED"
)

// statusRank orders the happy-path lifecycle. Webhook transitions are a
// monotone merge over this order: an event never moves an entry to a
// lower rank. FAILED sits outside the order and absorbs only from QUEUED.
var statusRank = map[EmailStatus]int{
	StatusQueued:    0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusOpened:    3,
}

// Delivered reports whether the entry counts as successfully sent for
// usage purposes (OPENED and DELIVERED imply a successful send).
func (s EmailStatus) Delivered() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusOpened
}

func (s EmailStatus) Terminal() bool {
	return s == StatusFailed || s == StatusOpened
}

// EmailLog is the durable record of one outbound email's lifecycle.
// Created QUEUED before any background job runs; mutated only by the job
// dispatcher (QUEUED -> SENT/FAILED) and webhook ingestion
// (-> DELIVERED / -> OPENED).
type EmailLog struct {
	ID            string       `json:"id"`
	AppID         string       `json:"app_id"`
	UserID        string       `json:"user_id"`
	Provider      ProviderType `json:"provider"`
	ToEmail       string       `json:"to_email"`
	Subject       string       `json:"subject"`
	MessageTag    string       `json:"message_tag"`          // set at enqueue, unique
	MessageID     string       `json:"message_id,omitempty"` // assigned by the provider, learned from webhooks
	Status        EmailStatus  `json:"status"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	EnqueuedAt    time.Time    `json:"enqueued_at"`
	TimeSent      *time.Time   `json:"time_sent,omitempty"`
	TimeDelivered *time.Time   `json:"time_delivered,omitempty"`
	TimeRead      *time.Time   `json:"time_read,omitempty"`
}

// BucketTime is the instant an entry is aggregated under. Fixed at send
// time (enqueue time if the entry never made it out) so later status
// transitions never move an entry between buckets.
func (l *EmailLog) BucketTime() time.Time {
	if l.TimeSent != nil {
		return *l.TimeSent
	}
	return l.EnqueuedAt
}

type EventKind string

const (
	EventDelivered EventKind = "DELIVERED"
	EventOpened    EventKind = "OPENED"
)

// DeliveryEvent is a provider webhook normalized to the fields the state
// machine cares about. Delivered events resolve entries by message tag,
// opened events by provider message id (tag as fallback).
type DeliveryEvent struct {
	Provider   ProviderType
	Kind       EventKind
	MessageTag string
	MessageID  string
	At         time.Time
}

// ApplyEvent advances the entry per the delivery-status state machine.
// It reports whether the entry changed; replaying an event against an
// entry it already advanced is a no-op, not an error. Events against a
// QUEUED or FAILED entry return ErrStaleWebhook: providers emit
// delivery notifications only for mail that left the building, so such
// an event is misrouted or raced ahead of the send job.
func (l *EmailLog) ApplyEvent(ev DeliveryEvent) (bool, error) {
	if l.Status == StatusFailed || l.Status == StatusQueued {
		return false, ErrStaleWebhook
	}

	switch ev.Kind {
	case EventDelivered:
		if statusRank[l.Status] >= statusRank[StatusDelivered] {
			return false, nil // OPENED dominates, replay is a no-op
		}
		l.Status = StatusDelivered
		at := ev.At
		l.TimeDelivered = &at
		if l.MessageID == "" {
			l.MessageID = ev.MessageID
		}
		return true, nil
	case EventOpened:
		if l.Status == StatusOpened {
			return false, nil
		}
		l.Status = StatusOpened
		at := ev.At
		l.TimeRead = &at
		if l.MessageID == "" {
			l.MessageID = ev.MessageID
		}
		return true, nil
	default:
		return false, ErrStaleWebhook
	}
}
