package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repo"
	"github.com/go-chi/chi/v5"
)

// EventHandler handles event CRUD and listing.
type EventHandler struct {
	Repo  *repo.EventRepo
	Audit *repo.AuditRepo
}

type eventInput struct {
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Location     *string    `json:"location"`
	MaxAttendees *int       `json:"max_attendees"`
	Status       *string    `json:"status"`
}

// apply merges non-nil input fields onto e and returns field-level validation
// errors for the merged result.
func (in *eventInput) apply(e *models.Event) map[string]string {
	if in.Name != nil {
		e.Name = *in.Name
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.StartTime != nil {
		e.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		e.EndTime = *in.EndTime
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.MaxAttendees != nil {
		e.MaxAttendees = *in.MaxAttendees
	}
	if in.Status != nil {
		e.Status = *in.Status
	}

	fields := make(map[string]string)
	if e.Name == "" || len(e.Name) > 100 {
		fields["name"] = "required, at most 100 characters"
	}
	if e.Location == "" || len(e.Location) > 255 {
		fields["location"] = "required, at most 255 characters"
	}
	if e.MaxAttendees <= 0 {
		fields["max_attendees"] = "must be greater than zero"
	}
	if e.StartTime.IsZero() {
		fields["start_time"] = "required"
	}
	if e.EndTime.IsZero() {
		fields["end_time"] = "required"
	} else if !e.StartTime.IsZero() && !e.EndTime.After(e.StartTime) {
		fields["end_time"] = "must be after start_time"
	}
	if !models.ValidStatus(e.Status) {
		fields["status"] = "must be scheduled, ongoing, completed, or canceled"
	}
	return fields
}

// withCount fills in the attendee count for e.
func (h *EventHandler) withCount(r *http.Request, e *models.Event) (*models.Event, error) {
	n, err := h.Repo.AttendeeCount(r.Context(), e.ID)
	if err != nil {
		return nil, err
	}
	e.AttendeeCount = n
	return e, nil
}

// CreateEvent creates a new event. Status defaults to scheduled.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var input eventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	event := &models.Event{Status: models.StatusScheduled}
	if fields := input.apply(event); len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusUnprocessableEntity)
		return
	}

	created, err := h.Repo.Create(r.Context(), event)
	if err != nil {
		slog.Error("create event", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if h.Audit != nil {
		if user := middleware.UserFrom(r.Context()); user != nil {
			_ = h.Audit.Log(r.Context(), user.ID, "create", "event", created.ID, created.Name)
		}
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetEvent returns one event by id with its attendee count.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid event id", http.StatusBadRequest)
		return
	}

	event, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("get event", "event_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if event == nil {
		JSONError(w, "event not found", http.StatusNotFound)
		return
	}

	if event, err = h.withCount(r, event); err != nil {
		slog.Error("get event: attendee count", "event_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent partially updates an event; omitted fields keep their values.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid event id", http.StatusBadRequest)
		return
	}

	var input eventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	event, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("update event: load", "event_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if event == nil {
		JSONError(w, "event not found", http.StatusNotFound)
		return
	}

	if fields := input.apply(event); len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusUnprocessableEntity)
		return
	}

	updated, err := h.Repo.Update(r.Context(), event)
	if err != nil {
		slog.Error("update event", "event_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if h.Audit != nil {
		if user := middleware.UserFrom(r.Context()); user != nil {
			_ = h.Audit.Log(r.Context(), user.ID, "update", "event", id, "")
		}
	}

	if updated, err = h.withCount(r, updated); err != nil {
		slog.Error("update event: attendee count", "event_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteEvent deletes an event; its attendees cascade.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid event id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			JSONError(w, "event not found", http.StatusNotFound)
			return
		}
		slog.Error("delete event", "event_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if h.Audit != nil {
		if user := middleware.UserFrom(r.Context()); user != nil {
			_ = h.Audit.Log(r.Context(), user.ID, "delete", "event", id, "")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListEvents returns paginated events with optional filters: status, location,
// start_date, end_date (RFC 3339), search. Statuses are refreshed first so the
// listing reflects wall-clock reality.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repo.EventFilter{
		Location: q.Get("location"),
		Search:   q.Get("search"),
	}
	if s := q.Get("status"); s != "" {
		if !models.ValidStatus(s) {
			JSONValidationError(w, "validation failed",
				map[string]string{"status": "must be scheduled, ongoing, completed, or canceled"},
				http.StatusUnprocessableEntity)
			return
		}
		filter.Status = s
	}
	for name, dst := range map[string]*time.Time{"start_date": &filter.StartDate, "end_date": &filter.EndDate} {
		if v := q.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				JSONValidationError(w, "validation failed",
					map[string]string{name: "must be an RFC 3339 timestamp"},
					http.StatusUnprocessableEntity)
				return
			}
			*dst = t
		}
	}

	page, pageSize, offset := parsePagination(r)

	if _, _, err := h.Repo.RollStatuses(r.Context()); err != nil {
		slog.Error("list events: roll statuses", "error", err)
	}

	events, total, err := h.Repo.List(r.Context(), filter, pageSize, offset)
	if err != nil {
		slog.Error("list events", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	for i := range events {
		n, err := h.Repo.AttendeeCount(r.Context(), events[i].ID)
		if err != nil {
			slog.Error("list events: attendee count", "event_id", events[i].ID, "error", err)
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
		events[i].AttendeeCount = n
	}

	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":    events,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
