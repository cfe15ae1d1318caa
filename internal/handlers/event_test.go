package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/eventdesk/eventdesk/internal/repo"
	"github.com/go-chi/chi/v5"
)

// requestWithChiURLParams returns a request with chi route context and URL params set.
func requestWithChiURLParams(method, path string, body []byte, params map[string]string) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	return r
}

var eventCols = []string{"event_id", "name", "description", "start_time", "end_time", "location", "max_attendees", "status"}

func TestEventHandler_CreateEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	mock.ExpectQuery(`INSERT INTO events`).
		WithArgs("GopherCon", "", start, end, "Berlin", 500, "scheduled").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(1, "GopherCon", "", start, end, "Berlin", 500, "scheduled"))

	h := &EventHandler{Repo: repo.NewEventRepo(db)}
	body, _ := json.Marshal(map[string]interface{}{
		"name":          "GopherCon",
		"location":      "Berlin",
		"start_time":    start,
		"end_time":      end,
		"max_attendees": 500,
	})
	req := httptest.NewRequest("POST", "/events", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.CreateEvent(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("CreateEvent status: got %d, want 201", rr.Code)
	}
	var out struct {
		ID     int    `json:"event_id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID != 1 || out.Name != "GopherCon" || out.Status != "scheduled" {
		t.Errorf("unexpected event: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEventHandler_CreateEvent_EndBeforeStart(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

	h := &EventHandler{Repo: repo.NewEventRepo(db)}
	body, _ := json.Marshal(map[string]interface{}{
		"name":          "GopherCon",
		"location":      "Berlin",
		"start_time":    start,
		"end_time":      start.Add(-time.Hour),
		"max_attendees": 500,
	})
	req := httptest.NewRequest("POST", "/events", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.CreateEvent(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("CreateEvent status: got %d, want 422", rr.Code)
	}
	var out struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Fields["end_time"] == "" {
		t.Errorf("expected end_time field error, got: %+v", out.Fields)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEventHandler_GetEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	mock.ExpectQuery(`SELECT event_id, name, .* FROM events WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(1, "GopherCon", "", start, end, "Berlin", 500, "scheduled"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	h := &EventHandler{Repo: repo.NewEventRepo(db)}
	req := requestWithChiURLParams("GET", "/events/1", nil, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	h.GetEvent(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("GetEvent status: got %d, want 200", rr.Code)
	}
	var out struct {
		ID            int `json:"event_id"`
		AttendeeCount int `json:"attendee_count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID != 1 || out.AttendeeCount != 42 {
		t.Errorf("unexpected event: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEventHandler_GetEvent_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT event_id, name, .* FROM events WHERE event_id = \$1`).
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows(eventCols))

	h := &EventHandler{Repo: repo.NewEventRepo(db)}
	req := requestWithChiURLParams("GET", "/events/999", nil, map[string]string{"id": "999"})
	rr := httptest.NewRecorder()
	h.GetEvent(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("GetEvent status: got %d, want 404", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEventHandler_DeleteEvent_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM events WHERE event_id = \$1`).
		WithArgs(999).
		WillReturnResult(sqlmock.NewResult(0, 0))

	h := &EventHandler{Repo: repo.NewEventRepo(db)}
	req := requestWithChiURLParams("DELETE", "/events/999", nil, map[string]string{"id": "999"})
	rr := httptest.NewRecorder()
	h.DeleteEvent(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("DeleteEvent status: got %d, want 404", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEventHandler_ListEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	// Listing refreshes statuses first.
	mock.ExpectExec(`UPDATE events SET status = 'ongoing'`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE events SET status = 'completed'`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT event_id, name, .* FROM events ORDER BY start_time LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(1, "GopherCon", "", start, end, "Berlin", 500, "scheduled"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	h := &EventHandler{Repo: repo.NewEventRepo(db)}
	req := httptest.NewRequest("GET", "/events", nil)
	rr := httptest.NewRecorder()
	h.ListEvents(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("ListEvents status: got %d, want 200", rr.Code)
	}
	var out struct {
		Events []struct {
			ID            int `json:"event_id"`
			AttendeeCount int `json:"attendee_count"`
		} `json:"events"`
		Total    int `json:"total"`
		Page     int `json:"page"`
		PageSize int `json:"page_size"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Total != 1 || out.Page != 1 || out.PageSize != 10 {
		t.Errorf("unexpected pagination: %+v", out)
	}
	if len(out.Events) != 1 || out.Events[0].AttendeeCount != 3 {
		t.Errorf("unexpected events: %+v", out.Events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEventHandler_ListEvents_BadStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := &EventHandler{Repo: repo.NewEventRepo(db)}
	req := httptest.NewRequest("GET", "/events?status=bogus", nil)
	rr := httptest.NewRecorder()
	h.ListEvents(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("ListEvents status: got %d, want 422", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
