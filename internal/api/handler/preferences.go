package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/resetbiology/reminders/internal/api/respond"
	"github.com/resetbiology/reminders/internal/notify"
	"github.com/resetbiology/reminders/internal/schedule"
)

type preferencesRequest struct {
	UserID          string `json:"userId"`
	ProtocolID      string `json:"protocolId"`
	PushEnabled     bool   `json:"pushEnabled"`
	EmailEnabled    bool   `json:"emailEnabled"`
	ReminderMinutes int    `json:"reminderMinutes"`
}

// SavePreferences upserts a user's reminder settings for one protocol and
// rebuilds that protocol's reminder queue to match. Enabling push replaces
// the unsent queue over a short interactive window; disabling cancels all
// future unsent reminders.
// @Summary Save notification preferences
// @Description Upserts reminder settings for a protocol and reschedules or cancels its reminder queue.
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body preferencesRequest true "Preference settings"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /notifications/preferences [post]
func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if req.UserID == "" || req.ProtocolID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_FIELDS", "userId and protocolId are required")
		return
	}
	if req.ReminderMinutes < 0 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_REMINDER_MINUTES", "reminderMinutes must not be negative")
		return
	}

	pref := &notify.Preference{
		UserID:          req.UserID,
		ProtocolID:      req.ProtocolID,
		PushEnabled:     req.PushEnabled,
		EmailEnabled:    req.EmailEnabled,
		ReminderMinutes: req.ReminderMinutes,
	}
	if err := h.store.SavePreference(r.Context(), pref); err != nil {
		h.logger.Error("Failed to save preferences",
			"user_id", req.UserID, "protocol_id", req.ProtocolID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "SAVE_FAILED", "failed to save preferences")
		return
	}

	if !req.PushEnabled {
		removed, err := h.scheduler.CancelProtocol(r.Context(), req.UserID, req.ProtocolID)
		if err != nil {
			respond.WriteError(w, http.StatusInternalServerError, "CANCEL_FAILED", "failed to cancel reminders")
			return
		}
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"scheduled": 0,
			"cancelled": removed,
			"message":   "reminders cancelled",
		})
		return
	}

	outcome, err := h.scheduler.ScheduleProtocol(r.Context(), req.UserID, req.ProtocolID, notify.ScheduleOptions{
		WindowDays: notify.InteractiveWindowDays,
		Replace:    true,
	})
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidReminder) {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_REMINDER_MINUTES", "reminderMinutes must not be negative")
			return
		}
		h.logger.Error("Failed to schedule reminders",
			"user_id", req.UserID, "protocol_id", req.ProtocolID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "SCHEDULE_FAILED", "failed to schedule reminders")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"scheduled": outcome.Scheduled,
		"message":   outcome.Message,
	})
}
