package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/notebell/notebell/internal/delivery"
	"github.com/notebell/notebell/internal/models"
	"github.com/notebell/notebell/internal/recurrence"
)

type handlers struct {
	deps *Deps
}

type reminderRequest struct {
	UserID         int64          `json:"user_id"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Active         *bool          `json:"active"`
	TriggerAt      *time.Time     `json:"trigger_at"`
	Repeat         *models.Repeat `json:"repeat"`
	RecurrenceRule string         `json:"recurrence_rule"` // legacy RRULE text, used when repeat is absent
}

type pushEnvelope struct {
	Data delivery.PushPayload `json:"data"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveRepeat applies the boundary normalization: an explicit repeat
// union wins, a legacy RRULE string is parsed, absence means one-shot.
func resolveRepeat(req *reminderRequest) (models.Repeat, error) {
	if req.Repeat != nil {
		return req.Repeat.Normalize(), nil
	}
	if req.RecurrenceRule != "" {
		return recurrence.FromRRule(req.RecurrenceRule)
	}
	return models.Repeat{Kind: models.RepeatNone}, nil
}

func (h *handlers) createReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 || req.Title == "" {
		writeError(w, http.StatusBadRequest, "user_id and title are required")
		return
	}
	repeat, err := resolveRepeat(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rem := &models.Reminder{
		UserID:         req.UserID,
		Title:          req.Title,
		Body:           req.Body,
		Active:         true,
		TriggerAt:      req.TriggerAt,
		Repeat:         repeat,
		RecurrenceRule: req.RecurrenceRule,
	}
	if req.Active != nil {
		rem.Active = *req.Active
	}
	rem.RestartSeries()

	if err := h.deps.Reminders.Create(r.Context(), rem); err != nil {
		log.Printf("Failed to create reminder: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create reminder")
		return
	}
	if _, err := h.deps.Scheduler.RescheduleOne(r.Context(), rem); err != nil {
		log.Printf("Failed to schedule reminder %d: %v", rem.ReminderID, err)
	}
	h.wake()
	writeJSON(w, http.StatusCreated, rem)
}

func (h *handlers) listReminders(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	reminders, err := h.deps.Reminders.GetByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to list reminders for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list reminders")
		return
	}
	if reminders == nil {
		reminders = []*models.Reminder{}
	}
	writeJSON(w, http.StatusOK, reminders)
}

func (h *handlers) updateReminder(w http.ResponseWriter, r *http.Request) {
	reminderID, ok := pathID(w, r)
	if !ok {
		return
	}
	prev, err := h.deps.Reminders.GetByID(r.Context(), reminderID)
	if err != nil {
		notFoundOrError(w, err, "failed to load reminder")
		return
	}

	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	repeat, err := resolveRepeat(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rem := &models.Reminder{
		ReminderID:     prev.ReminderID,
		UserID:         prev.UserID,
		Title:          req.Title,
		Body:           req.Body,
		Active:         prev.Active,
		TriggerAt:      req.TriggerAt,
		Repeat:         repeat,
		RecurrenceRule: req.RecurrenceRule,
		SnoozedUntil:   prev.SnoozedUntil,
		NextTriggerAt:  prev.NextTriggerAt,
		LastFiredAt:    prev.LastFiredAt,
		CreatedAt:      prev.CreatedAt,
	}
	if req.Title == "" {
		rem.Title = prev.Title
	}
	if req.TriggerAt == nil {
		rem.TriggerAt = prev.TriggerAt
	}
	if req.Active != nil {
		rem.Active = *req.Active
	}
	rem.InheritAnchor(prev)

	if err := h.deps.Reminders.Update(r.Context(), rem); err != nil {
		log.Printf("Failed to update reminder %d: %v", reminderID, err)
		writeError(w, http.StatusInternalServerError, "failed to update reminder")
		return
	}
	if _, err := h.deps.Scheduler.RescheduleOne(r.Context(), rem); err != nil {
		log.Printf("Failed to reschedule reminder %d: %v", reminderID, err)
	}
	h.wake()
	writeJSON(w, http.StatusOK, rem)
}

func (h *handlers) deleteReminder(w http.ResponseWriter, r *http.Request) {
	reminderID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.deps.Scheduler.CancelOne(r.Context(), reminderID); err != nil {
		log.Printf("Failed to cancel reminder %d: %v", reminderID, err)
		writeError(w, http.StatusInternalServerError, "failed to cancel reminder")
		return
	}
	if err := h.deps.Reminders.Delete(r.Context(), reminderID); err != nil {
		log.Printf("Failed to delete reminder %d: %v", reminderID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete reminder")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) snoozeReminder(w http.ResponseWriter, r *http.Request) {
	reminderID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		SnoozedUntil *time.Time `json:"snoozed_until"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.deps.Reminders.SetSnoozedUntil(r.Context(), reminderID, req.SnoozedUntil); err != nil {
		log.Printf("Failed to snooze reminder %d: %v", reminderID, err)
		writeError(w, http.StatusInternalServerError, "failed to snooze reminder")
		return
	}
	if err := h.deps.Scheduler.RescheduleByID(r.Context(), reminderID); err != nil {
		log.Printf("Failed to reschedule snoozed reminder %d: %v", reminderID, err)
	}
	h.wake()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) ackReminder(w http.ResponseWriter, r *http.Request) {
	reminderID, ok := pathID(w, r)
	if !ok {
		return
	}
	now := time.Now()
	if err := h.deps.Reminders.SetLastAcknowledgedAt(r.Context(), reminderID, &now); err != nil {
		notFoundOrError(w, err, "failed to acknowledge reminder")
		return
	}
	if err := h.deps.Ledger.Dismiss(r.Context(), reminderID); err != nil {
		log.Printf("Failed to dismiss ledger rows for reminder %d: %v", reminderID, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) receivePush(w http.ResponseWriter, r *http.Request) {
	var env pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := env.Data
	switch p.Type {
	case delivery.PushTypeSync:
		if err := h.deps.Push.HandlePush(r.Context(), 0, p); err != nil {
			log.Printf("Failed to handle sync push for reminder %d: %v", p.ReminderID, err)
			writeError(w, http.StatusInternalServerError, "failed to handle push")
			return
		}
		h.wake()
	case delivery.PushTypeTrigger:
		rem, err := h.deps.Reminders.GetByID(r.Context(), p.ReminderID)
		if err != nil {
			notFoundOrError(w, err, "failed to load reminder")
			return
		}
		if err := h.deps.Push.HandlePush(r.Context(), rem.UserID, p); err != nil {
			log.Printf("Failed to handle trigger push for reminder %d: %v", p.ReminderID, err)
			writeError(w, http.StatusInternalServerError, "failed to handle push")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown push type")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) resync(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.deps.Reminders.GetActive(r.Context())
	if err != nil {
		log.Printf("Failed to load active reminders: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load reminders")
		return
	}
	count := h.deps.Scheduler.RescheduleAllActive(r.Context(), reminders)
	h.wake()
	writeJSON(w, http.StatusOK, map[string]int{"rescheduled": count})
}

func (h *handlers) parseSchedule(w http.ResponseWriter, r *http.Request) {
	if h.deps.Parser == nil {
		writeError(w, http.StatusServiceUnavailable, "natural language parsing is not configured")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	schedule, err := h.deps.Parser.ParseSchedule(r.Context(), req.Text, time.Now())
	if err != nil {
		log.Printf("Failed to parse schedule text: %v", err)
		writeError(w, http.StatusBadGateway, "failed to parse schedule")
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *handlers) wake() {
	if h.deps.Waker != nil {
		h.deps.Waker.Notify()
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return 0, false
	}
	return id, true
}

func notFoundOrError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}
	log.Printf("%s: %v", msg, err)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
