package domain

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrAppNotFound  = errors.New("app not found")

	// ErrInsufficientCredits is returned synchronously by the dispatch
	// path when a metered account has no send allowance left.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrNoActiveProvider means the app has never had a provider set,
	// or its configuration row is gone.
	ErrNoActiveProvider = errors.New("no active sending configuration found for this app")

	// ErrAlreadyConfigured rejects re-provisioning of an (app, provider)
	// pair that already holds working credentials.
	ErrAlreadyConfigured = errors.New("credentials have been already configured for this app and provider")

	ErrUnknownProvider = errors.New("unsupported provider type")

	ErrCredentialsNotReady = errors.New("sending credentials are not provisioned")

	// Webhook ingestion sentinels. Both are logged and dropped, never
	// surfaced to the provider as a hard failure.
	ErrUnknownEntry = errors.New("no email log entry matches the event")
	ErrStaleWebhook = errors.New("event does not advance the entry status")
)

// InsufficientCreditsMessage is the terminal error string recorded on an
// email log entry when the credit gate rejects the send.
const InsufficientCreditsMessage = "Insufficient credits."
