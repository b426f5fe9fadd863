package handler

import (
	"net/http"

	"github.com/resetbiology/reminders/internal/api/respond"
	"github.com/resetbiology/reminders/internal/cronhealth"
)

// cronAuthorized checks the shared cron secret, accepted either as a
// Bearer header or a ?secret= query parameter. An unset secret disables
// the triggers entirely rather than leaving them open.
func (h *Handler) cronAuthorized(r *http.Request) bool {
	secret := h.cfg.CronSecret
	if secret == "" {
		return false
	}
	if r.Header.Get("Authorization") == "Bearer "+secret {
		return true
	}
	return r.URL.Query().Get("secret") == secret
}

// Replenish runs a replenishment sweep over all active protocols.
// @Summary Replenish reminder queue
// @Description Tops up the reminder queue for every active protocol below the coverage threshold. Cron-secret guarded.
// @Tags cron
// @Produce json
// @Param secret query string false "Cron secret (alternative to Bearer header)"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /notifications/replenish [get]
func (h *Handler) Replenish(w http.ResponseWriter, r *http.Request) {
	if !h.cronAuthorized(r) {
		respond.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing cron secret")
		return
	}

	monitor := cronhealth.NewMonitor(h.pool, h.logger)
	monitor.Start(r.Context(), cronhealth.TypeReplenish)

	result, err := h.scheduler.Replenish(r.Context(), h.cfg.SweepWorkers)
	if err != nil {
		monitor.Fail(r.Context(), err)
		h.logger.Error("Replenish sweep failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "REPLENISH_FAILED", "failed to list active protocols")
		return
	}
	monitor.Complete(r.Context(), cronhealth.Counts{
		Found:  result.Processed,
		Sent:   result.Replenished,
		Failed: result.ErrorCount,
	})

	h.logger.Info("Replenish sweep complete", "summary", result.Summary())
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"processed":   result.Processed,
		"replenished": result.Replenished,
		"errorCount":  result.ErrorCount,
		"results":     result.Results,
		"errors":      result.Errors,
	})
}

// Dispatch sends every due unsent reminder.
// @Summary Dispatch due reminders
// @Description Sends due reminders via web push and email and marks them sent. Cron-secret guarded.
// @Tags cron
// @Produce json
// @Param secret query string false "Cron secret (alternative to Bearer header)"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /notifications/send [get]
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if !h.cronAuthorized(r) {
		respond.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing cron secret")
		return
	}

	monitor := cronhealth.NewMonitor(h.pool, h.logger)
	monitor.Start(r.Context(), cronhealth.TypeSend)

	result, err := h.dispatcher.DispatchDue(r.Context())
	if err != nil {
		monitor.Fail(r.Context(), err)
		h.logger.Error("Dispatch pass failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DISPATCH_FAILED", "failed to load due reminders")
		return
	}
	monitor.Complete(r.Context(), cronhealth.Counts{
		Found:  result.Found,
		Sent:   result.Sent,
		Failed: result.Failed,
	})

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"found":   result.Found,
		"sent":    result.Sent,
		"failed":  result.Failed,
		"errors":  result.Errors,
	})
}
