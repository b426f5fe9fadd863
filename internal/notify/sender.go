package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// PushPayload is the JSON body the service worker receives.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

// PushSender sends web push notifications signed with VAPID keys.
// Nil-safe: when not configured, all methods are no-ops.
type PushSender struct {
	publicKey  string
	privateKey string
	subject    string
	logger     *slog.Logger
}

// NewPushSender creates a sender from a VAPID key pair. Returns nil when
// either key is empty (push delivery disabled).
func NewPushSender(publicKey, privateKey, subject string, logger *slog.Logger) *PushSender {
	if publicKey == "" || privateKey == "" {
		return nil
	}
	return &PushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		logger:     logger,
	}
}

// Configured reports whether push delivery is available.
func (s *PushSender) Configured() bool { return s != nil }

// Send delivers a payload to one subscription endpoint.
func (s *PushSender) Send(ctx context.Context, sub Subscription, payload PushPayload) error {
	if s == nil {
		return nil // no-op when not configured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	// 404/410 mean the browser dropped the subscription.
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}
