// Package push contains the public domain model and contracts for the
// eng-pulse push notification core.
package push

import "time"

// Provider identifies one of the two push delivery services.
type Provider string

const (
	// ProviderFCM is Firebase Cloud Messaging (Android / Flutter clients).
	ProviderFCM Provider = "fcm"
	// ProviderAPNS is the Apple Push Notification service (iOS Swift client).
	ProviderAPNS Provider = "apns"
)

// Endpoint is one registered destination for push delivery. The token is the
// record key; its format is provider-specific (64 hex chars for APNs,
// 100-300 chars of [A-Za-z0-9_:-] for FCM).
type Endpoint struct {
	Token      string   `json:"token"`
	Provider   Provider `json:"provider"`
	Platform   string   `json:"platform,omitempty"`
	AppVersion string   `json:"app_version,omitempty"`
	// Sandbox selects the APNs sandbox signing/endpoint context. Ignored for FCM.
	Sandbox        bool       `json:"sandbox,omitempty"`
	Active         bool       `json:"active"`
	RegisteredAt   time.Time  `json:"registered_at"`
	LastSeen       time.Time  `json:"last_seen"`
	UnregisteredAt *time.Time `json:"unregistered_at,omitempty"`
}

// Notification is the ephemeral payload handed to the senders. The body is
// caller-truncated; ArticleURL is carried in the payload data section for
// client-side deep linking.
type Notification struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	ArticleURL string `json:"article_url"`
}

// SendResult classifies the outcome of a single-endpoint send. Reason carries
// the provider's failure vocabulary verbatim (APNs structured "reason" field,
// FCM raw response text) and is empty on success.
type SendResult struct {
	OK     bool
	Reason string
}
