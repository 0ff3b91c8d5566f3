package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_platform_emails_sent_total",
		Help: "Emails handed to a provider successfully.",
	}, []string{"provider"})

	EmailsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_platform_emails_failed_total",
		Help: "Emails that exhausted retries or failed the credit gate.",
	}, []string{"provider", "reason"})

	SendRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_platform_send_retries_total",
		Help: "Send attempts retried after a provider error.",
	}, []string{"provider"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_platform_webhook_events_total",
		Help: "Provider delivery events accepted and applied.",
	}, []string{"provider", "event"})

	WebhookDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_platform_webhook_events_dropped_total",
		Help: "Provider delivery events dropped (unknown entry, stale, bad payload).",
	}, []string{"provider", "reason"})
)
