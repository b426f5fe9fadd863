package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/resetbiology/reminders/internal/api/respond"
	"github.com/resetbiology/reminders/internal/notify"
)

type subscribeRequest struct {
	UserID       string `json:"userId"`
	Subscription struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`
}

// Subscribe stores a browser push subscription for one device.
// @Summary Store push subscription
// @Description Upserts a browser push subscription, keyed on (user, endpoint).
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body subscribeRequest true "Serialized PushSubscription"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /notifications/subscribe [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if req.UserID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER", "userId is required")
		return
	}
	if req.Subscription.Endpoint == "" || req.Subscription.Keys.P256dh == "" || req.Subscription.Keys.Auth == "" {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_SUBSCRIPTION", "subscription endpoint and keys are required")
		return
	}

	id, err := h.store.SaveSubscription(r.Context(), req.UserID, notify.Subscription{
		Endpoint:  req.Subscription.Endpoint,
		P256dhKey: req.Subscription.Keys.P256dh,
		AuthKey:   req.Subscription.Keys.Auth,
	})
	if err != nil {
		h.logger.Error("Failed to save push subscription", "user_id", req.UserID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "SAVE_FAILED", "failed to save subscription")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"subscriptionId": id,
	})
}

type testRequest struct {
	UserID       string `json:"userId"`
	DelaySeconds int    `json:"delaySeconds"`
}

// TestNotification creates a one-off reminder a few seconds out so the
// delivery pipeline can be exercised end to end without a real protocol.
// @Summary Create a test reminder
// @Description Queues a push reminder delaySeconds from now (default 60) tagged with the test protocol ID.
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body testRequest true "Test parameters"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /notifications/test [post]
func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if req.UserID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER", "userId is required")
		return
	}
	if req.DelaySeconds <= 0 {
		req.DelaySeconds = 60
	}

	now := time.Now()
	reminderTime := now.Add(time.Duration(req.DelaySeconds) * time.Second)
	doseTime := reminderTime.Add(time.Second)

	pending := &notify.Pending{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		ProtocolID:   notify.TestProtocolID,
		DoseTime:     doseTime,
		ReminderTime: reminderTime,
		Type:         notify.TypePush,
	}
	if err := h.store.Insert(r.Context(), pending); err != nil {
		h.logger.Error("Failed to create test reminder", "user_id", req.UserID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INSERT_FAILED", "failed to create test reminder")
		return
	}

	h.logger.Info("Test reminder created",
		"reminder_id", pending.ID, "user_id", req.UserID, "delay_seconds", req.DelaySeconds)
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"notification": map[string]interface{}{
			"id":           pending.ID,
			"reminderTime": pending.ReminderTime.UTC().Format(time.RFC3339),
			"doseTime":     pending.DoseTime.UTC().Format(time.RFC3339),
			"willSendIn":   fmt.Sprintf("%d seconds", req.DelaySeconds),
		},
	})
}

// TestStatus lists a user's test reminders from the last hour.
// @Summary Recent test reminders
// @Description Lists test reminders created in the last hour for a user.
// @Tags notifications
// @Produce json
// @Param userId query string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /notifications/test [get]
func (h *Handler) TestStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER", "userId query parameter is required")
		return
	}

	oneHourAgo := time.Now().Add(-time.Hour)
	rows, err := h.store.RecentForProtocol(r.Context(), userID, notify.TestProtocolID, oneHourAgo, 10)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load test reminders")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"count":         len(rows),
		"notifications": reminderSummaries(rows),
	})
}

// Debug reports the notification system's state for one user: VAPID
// configuration, stored subscriptions, recent test reminders, and due
// unsent rows.
// @Summary Notification system status
// @Description Reports VAPID configuration, push subscriptions, recent test reminders, and pending reminders for a user.
// @Tags notifications
// @Produce json
// @Param userId query string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /notifications/debug [get]
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER", "userId query parameter is required")
		return
	}
	ctx := r.Context()

	subs, err := h.store.SubscriptionsFor(ctx, userID)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load subscriptions")
		return
	}

	testRows, err := h.store.RecentForProtocol(ctx, userID, notify.TestProtocolID, time.Time{}, 5)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load test reminders")
		return
	}

	pending, err := h.store.DueUnsentFor(ctx, userID, time.Now(), 5)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load pending reminders")
		return
	}

	subSummaries := make([]map[string]interface{}, 0, len(subs))
	for _, sub := range subs {
		endpoint := sub.Endpoint
		if len(endpoint) > 50 {
			endpoint = endpoint[:50] + "..."
		}
		subSummaries = append(subSummaries, map[string]interface{}{
			"endpoint": endpoint,
		})
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"userId":          userID,
		"vapidConfigured": h.cfg.VAPIDPublicKey != "" && h.cfg.VAPIDPrivateKey != "",
		"pushSubscriptions": map[string]interface{}{
			"count":         len(subs),
			"subscriptions": subSummaries,
		},
		"testNotifications": map[string]interface{}{
			"count":         len(testRows),
			"notifications": reminderSummaries(testRows),
		},
		"pendingNotifications": map[string]interface{}{
			"count":         len(pending),
			"notifications": reminderSummaries(pending),
		},
	})
}

func reminderSummaries(rows []notify.Pending) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		entry := map[string]interface{}{
			"id":           row.ID,
			"doseTime":     row.DoseTime.UTC().Format(time.RFC3339),
			"reminderTime": row.ReminderTime.UTC().Format(time.RFC3339),
			"type":         row.Type,
			"sent":         row.Sent,
		}
		if row.SentAt != nil {
			entry["sentAt"] = row.SentAt.UTC().Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	return out
}
