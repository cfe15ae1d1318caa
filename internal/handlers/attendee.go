package handlers

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/eventdesk/eventdesk/internal/metrics"
	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repo"
	"github.com/go-chi/chi/v5"
)

// maxCSVUploadBytes caps attendee CSV uploads (5 MiB).
const maxCSVUploadBytes = 5 << 20

// AttendeeHandler handles attendee registration, check-in, and bulk import.
type AttendeeHandler struct {
	Repo   *repo.AttendeeRepo
	Events *repo.EventRepo
	Audit  *repo.AuditRepo
}

// loadEvent fetches the event or writes a 404/500 and returns nil.
func (h *AttendeeHandler) loadEvent(w http.ResponseWriter, r *http.Request, eventID int) *models.Event {
	event, err := h.Events.GetByID(r.Context(), eventID)
	if err != nil {
		slog.Error("load event", "event_id", eventID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return nil
	}
	if event == nil {
		JSONError(w, "event not found", http.StatusNotFound)
		return nil
	}
	return event
}

func (h *AttendeeHandler) audit(r *http.Request, action string, resourceID int, details string) {
	if h.Audit == nil {
		return
	}
	if user := middleware.UserFrom(r.Context()); user != nil {
		_ = h.Audit.Log(r.Context(), user.ID, action, "attendee", resourceID, details)
	}
}

func validateAttendee(a *models.Attendee) map[string]string {
	fields := make(map[string]string)
	if a.FirstName == "" || len(a.FirstName) > 50 {
		fields["first_name"] = "required, at most 50 characters"
	}
	if a.LastName == "" || len(a.LastName) > 50 {
		fields["last_name"] = "required, at most 50 characters"
	}
	if !strings.Contains(a.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if len(a.PhoneNumber) > 20 {
		fields["phone_number"] = "at most 20 characters"
	}
	return fields
}

// CreateAttendee registers one attendee for an event. Fails when the event is
// at capacity (400) or the email is already registered for it (409).
func (h *AttendeeHandler) CreateAttendee(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
		EventID     int    `json:"event_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	attendee := &models.Attendee{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       input.Email,
		PhoneNumber: input.PhoneNumber,
		EventID:     input.EventID,
	}
	if fields := validateAttendee(attendee); len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusUnprocessableEntity)
		return
	}

	event := h.loadEvent(w, r, input.EventID)
	if event == nil {
		return
	}

	count, err := h.Events.AttendeeCount(r.Context(), event.ID)
	if err != nil {
		slog.Error("create attendee: count", "event_id", event.ID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if count >= event.MaxAttendees {
		JSONError(w, fmt.Sprintf("event has reached maximum capacity of %d attendees", event.MaxAttendees), http.StatusBadRequest)
		return
	}

	created, err := h.Repo.Create(r.Context(), attendee)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			JSONError(w, "email is already registered for this event", http.StatusConflict)
			return
		}
		slog.Error("create attendee", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	h.audit(r, "create", created.ID, created.Email)
	writeJSON(w, http.StatusCreated, created)
}

// GetAttendee returns one attendee by id.
func (h *AttendeeHandler) GetAttendee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid attendee id", http.StatusBadRequest)
		return
	}

	attendee, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("get attendee", "attendee_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if attendee == nil {
		JSONError(w, "attendee not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, attendee)
}

// UpdateAttendee partially updates an attendee; omitted fields keep their values.
func (h *AttendeeHandler) UpdateAttendee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid attendee id", http.StatusBadRequest)
		return
	}

	var input struct {
		FirstName     *string `json:"first_name"`
		LastName      *string `json:"last_name"`
		Email         *string `json:"email"`
		PhoneNumber   *string `json:"phone_number"`
		CheckInStatus *bool   `json:"check_in_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	attendee, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("update attendee: load", "attendee_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if attendee == nil {
		JSONError(w, "attendee not found", http.StatusNotFound)
		return
	}

	if input.FirstName != nil {
		attendee.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		attendee.LastName = *input.LastName
	}
	if input.Email != nil {
		attendee.Email = *input.Email
	}
	if input.PhoneNumber != nil {
		attendee.PhoneNumber = *input.PhoneNumber
	}
	if input.CheckInStatus != nil {
		attendee.CheckInStatus = *input.CheckInStatus
	}
	if fields := validateAttendee(attendee); len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusUnprocessableEntity)
		return
	}

	updated, err := h.Repo.Update(r.Context(), attendee)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			JSONError(w, "email is already registered for this event", http.StatusConflict)
			return
		}
		slog.Error("update attendee", "attendee_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	h.audit(r, "update", id, "")
	writeJSON(w, http.StatusOK, updated)
}

// DeleteAttendee removes an attendee.
func (h *AttendeeHandler) DeleteAttendee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid attendee id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			JSONError(w, "attendee not found", http.StatusNotFound)
			return
		}
		slog.Error("delete attendee", "attendee_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	h.audit(r, "delete", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// ListAttendees returns paginated attendees of an event with optional filters:
// checked_in (true/false) and search (names and email).
func (h *AttendeeHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid event id", http.StatusBadRequest)
		return
	}
	if h.loadEvent(w, r, eventID) == nil {
		return
	}

	var checkedIn *bool
	if v := r.URL.Query().Get("checked_in"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			JSONValidationError(w, "validation failed",
				map[string]string{"checked_in": "must be true or false"},
				http.StatusUnprocessableEntity)
			return
		}
		checkedIn = &b
	}
	search := r.URL.Query().Get("search")
	page, pageSize, offset := parsePagination(r)

	attendees, total, err := h.Repo.ListByEvent(r.Context(), eventID, checkedIn, search, pageSize, offset)
	if err != nil {
		slog.Error("list attendees", "event_id", eventID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if attendees == nil {
		attendees = []models.Attendee{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attendees": attendees,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CheckIn marks one attendee as checked in; checking in twice is a 400.
func (h *AttendeeHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid attendee id", http.StatusBadRequest)
		return
	}

	attendee, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("check-in: load attendee", "attendee_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if attendee == nil {
		JSONError(w, "attendee not found", http.StatusNotFound)
		return
	}
	if attendee.CheckInStatus {
		JSONError(w, "attendee is already checked in", http.StatusBadRequest)
		return
	}

	if err := h.Repo.CheckIn(r.Context(), id); err != nil {
		slog.Error("check-in", "attendee_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	attendee.CheckInStatus = true

	metrics.IncCheckins(1)
	h.audit(r, "check-in", id, "")
	writeJSON(w, http.StatusOK, attendee)
}

// BulkCheckIn checks in a list of attendee ids for an event and reports which
// ids were missing or already checked in.
func (h *AttendeeHandler) BulkCheckIn(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid event id", http.StatusBadRequest)
		return
	}

	var ids []int
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if h.loadEvent(w, r, eventID) == nil {
		return
	}

	found, err := h.Repo.FindByEventAndIDs(r.Context(), eventID, ids)
	if err != nil {
		slog.Error("bulk check-in: find", "event_id", eventID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	foundSet := make(map[int]bool, len(found))
	alreadyCheckedIn := []int{}
	newlyCheckedIn := []int{}
	for _, a := range found {
		foundSet[a.ID] = true
		if a.CheckInStatus {
			alreadyCheckedIn = append(alreadyCheckedIn, a.ID)
		} else {
			newlyCheckedIn = append(newlyCheckedIn, a.ID)
		}
	}
	missing := []int{}
	for _, id := range ids {
		if !foundSet[id] {
			missing = append(missing, id)
		}
	}

	if len(newlyCheckedIn) > 0 {
		if err := h.Repo.CheckInMany(r.Context(), eventID, newlyCheckedIn); err != nil {
			slog.Error("bulk check-in: update", "event_id", eventID, "error", err)
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
		metrics.IncCheckins(len(newlyCheckedIn))
	}

	h.audit(r, "check-in", eventID, fmt.Sprintf("bulk: %d checked in", len(newlyCheckedIn)))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":              len(ids),
		"found":              len(found),
		"missing":            missing,
		"already_checked_in": alreadyCheckedIn,
		"newly_checked_in":   newlyCheckedIn,
	})
}

// createBatch validates and inserts a batch of attendees for an event,
// enforcing capacity, in-batch email uniqueness, and per-event email
// uniqueness. Shared by BulkCreate and UploadCSV.
func (h *AttendeeHandler) createBatch(w http.ResponseWriter, r *http.Request, event *models.Event, attendees []models.Attendee) {
	for i := range attendees {
		if fields := validateAttendee(&attendees[i]); len(fields) > 0 {
			JSONValidationError(w, fmt.Sprintf("validation failed for attendee %d", i+1), fields, http.StatusUnprocessableEntity)
			return
		}
	}

	current, err := h.Events.AttendeeCount(r.Context(), event.ID)
	if err != nil {
		slog.Error("bulk create: count", "event_id", event.ID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if current+len(attendees) > event.MaxAttendees {
		JSONError(w, fmt.Sprintf(
			"cannot register %d new attendees: event allows %d and already has %d",
			len(attendees), event.MaxAttendees, current), http.StatusBadRequest)
		return
	}

	emails := make([]string, len(attendees))
	seen := make(map[string]bool, len(attendees))
	var dups []string
	for i, a := range attendees {
		emails[i] = a.Email
		if seen[a.Email] {
			dups = append(dups, a.Email)
		}
		seen[a.Email] = true
	}
	if len(dups) > 0 {
		if len(dups) > 5 {
			dups = dups[:5]
		}
		JSONError(w, "duplicate emails in request: "+strings.Join(dups, ", "), http.StatusBadRequest)
		return
	}

	existing, err := h.Repo.ExistingEmails(r.Context(), event.ID, emails)
	if err != nil {
		slog.Error("bulk create: existing emails", "event_id", event.ID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if len(existing) > 0 {
		if len(existing) > 5 {
			existing = existing[:5]
		}
		JSONError(w, "emails already registered for this event: "+strings.Join(existing, ", "), http.StatusConflict)
		return
	}

	ids, err := h.Repo.CreateMany(r.Context(), event.ID, attendees)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Raced with a concurrent registration; report it like the pre-check.
			JSONError(w, "emails already registered for this event", http.StatusConflict)
			return
		}
		slog.Error("bulk create", "event_id", event.ID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	h.audit(r, "create", event.ID, fmt.Sprintf("bulk: %d attendees", len(ids)))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_created": len(ids),
		"attendee_ids":  ids,
	})
}

// BulkCreate registers a JSON list of attendees for an event in one
// transaction.
func (h *AttendeeHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid event id", http.StatusBadRequest)
		return
	}

	var input struct {
		EventID   int `json:"event_id"`
		Attendees []struct {
			FirstName   string `json:"first_name"`
			LastName    string `json:"last_name"`
			Email       string `json:"email"`
			PhoneNumber string `json:"phone_number"`
		} `json:"attendees"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if input.EventID != 0 && input.EventID != eventID {
		JSONError(w, "event id in path does not match request body", http.StatusBadRequest)
		return
	}
	if len(input.Attendees) == 0 {
		JSONError(w, "attendees list is empty", http.StatusBadRequest)
		return
	}

	event := h.loadEvent(w, r, eventID)
	if event == nil {
		return
	}

	attendees := make([]models.Attendee, len(input.Attendees))
	for i, a := range input.Attendees {
		attendees[i] = models.Attendee{
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			Email:       a.Email,
			PhoneNumber: a.PhoneNumber,
			EventID:     eventID,
		}
	}

	h.createBatch(w, r, event, attendees)
}

// UploadCSV registers attendees from an uploaded CSV file. The file must have
// a header row with first_name, last_name, and email columns; phone_number is
// optional. Rules are otherwise identical to BulkCreate.
func (h *AttendeeHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid event id", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxCSVUploadBytes); err != nil {
		JSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		JSONError(w, `missing "file" form field`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	attendees, err := parseAttendeeCSV(file, eventID)
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	event := h.loadEvent(w, r, eventID)
	if event == nil {
		return
	}

	h.createBatch(w, r, event, attendees)
}

// parseAttendeeCSV reads a CSV with a header row and maps the required
// columns. Unknown columns are ignored.
func parseAttendeeCSV(f io.Reader, eventID int) ([]models.Attendee, error) {
	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV format: %v", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, required := range []string{"first_name", "last_name", "email"} {
		if _, ok := col[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var attendees []models.Attendee
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV format at line %d: %v", line, err)
		}
		a := models.Attendee{
			FirstName: strings.TrimSpace(record[col["first_name"]]),
			LastName:  strings.TrimSpace(record[col["last_name"]]),
			Email:     strings.TrimSpace(record[col["email"]]),
			EventID:   eventID,
		}
		if i, ok := col["phone_number"]; ok && i < len(record) {
			a.PhoneNumber = strings.TrimSpace(record[i])
		}
		attendees = append(attendees, a)
	}
	if len(attendees) == 0 {
		return nil, errors.New("CSV contains no attendee rows")
	}
	return attendees, nil
}
