package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/eventdesk/eventdesk/internal/repo"
	"github.com/lib/pq"
)

var attendeeCols = []string{"attendee_id", "first_name", "last_name", "email", "phone_number", "event_id", "check_in_status"}

// expectEventRow queues the event lookup every attendee operation starts with.
func expectEventRow(mock sqlmock.Sqlmock, eventID, maxAttendees int) {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT event_id, name, .* FROM events WHERE event_id = \$1`).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(eventID, "GopherCon", "", start, start.Add(3*time.Hour), "Berlin", maxAttendees, "scheduled"))
}

func TestAttendeeHandler_CreateAttendee(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectEventRow(mock, 1, 500)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO attendees`).
		WithArgs("Ada", "Lovelace", "ada@example.com", "", 1).
		WillReturnRows(sqlmock.NewRows(attendeeCols).
			AddRow(10, "Ada", "Lovelace", "ada@example.com", "", 1, false))

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	body, _ := json.Marshal(map[string]interface{}{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"event_id":   1,
	})
	req := httptest.NewRequest("POST", "/attendees", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.CreateAttendee(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("CreateAttendee status: got %d, want 201", rr.Code)
	}
	var out struct {
		ID    int    `json:"attendee_id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID != 10 || out.Email != "ada@example.com" {
		t.Errorf("unexpected attendee: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_CreateAttendee_AtCapacity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectEventRow(mock, 1, 3)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	body, _ := json.Marshal(map[string]interface{}{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"event_id":   1,
	})
	req := httptest.NewRequest("POST", "/attendees", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.CreateAttendee(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("CreateAttendee status: got %d, want 400", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_CreateAttendee_DuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectEventRow(mock, 1, 500)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO attendees`).
		WithArgs("Ada", "Lovelace", "ada@example.com", "", 1).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "attendees_event_id_email_key"})

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	body, _ := json.Marshal(map[string]interface{}{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"event_id":   1,
	})
	req := httptest.NewRequest("POST", "/attendees", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.CreateAttendee(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("CreateAttendee status: got %d, want 409", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_CheckIn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT attendee_id, .* FROM attendees WHERE attendee_id = \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(attendeeCols).
			AddRow(10, "Ada", "Lovelace", "ada@example.com", "", 1, false))
	mock.ExpectExec(`UPDATE attendees SET check_in_status = TRUE WHERE attendee_id = \$1`).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	req := requestWithChiURLParams("POST", "/attendees/10/check-in", nil, map[string]string{"id": "10"})
	rr := httptest.NewRecorder()
	h.CheckIn(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("CheckIn status: got %d, want 200", rr.Code)
	}
	var out struct {
		ID            int  `json:"attendee_id"`
		CheckInStatus bool `json:"check_in_status"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID != 10 || !out.CheckInStatus {
		t.Errorf("unexpected attendee: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_CheckIn_Already(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT attendee_id, .* FROM attendees WHERE attendee_id = \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(attendeeCols).
			AddRow(10, "Ada", "Lovelace", "ada@example.com", "", 1, true))

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	req := requestWithChiURLParams("POST", "/attendees/10/check-in", nil, map[string]string{"id": "10"})
	rr := httptest.NewRecorder()
	h.CheckIn(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("CheckIn status: got %d, want 400", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_BulkCheckIn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectEventRow(mock, 1, 500)
	mock.ExpectQuery(`SELECT attendee_id, .* FROM attendees WHERE event_id = \$1 AND attendee_id = ANY\(\$2\)`).
		WithArgs(1, pq.Array([]int{10, 11, 99})).
		WillReturnRows(sqlmock.NewRows(attendeeCols).
			AddRow(10, "Ada", "Lovelace", "ada@example.com", "", 1, false).
			AddRow(11, "Alan", "Turing", "alan@example.com", "", 1, true))
	mock.ExpectExec(`UPDATE attendees SET check_in_status = TRUE WHERE event_id = \$1 AND attendee_id = ANY\(\$2\)`).
		WithArgs(1, pq.Array([]int{10})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	body, _ := json.Marshal([]int{10, 11, 99})
	req := requestWithChiURLParams("POST", "/attendees/event/1/check-in-bulk", body, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	h.BulkCheckIn(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("BulkCheckIn status: got %d, want 200", rr.Code)
	}
	var out struct {
		Total            int   `json:"total"`
		Found            int   `json:"found"`
		Missing          []int `json:"missing"`
		AlreadyCheckedIn []int `json:"already_checked_in"`
		NewlyCheckedIn   []int `json:"newly_checked_in"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Total != 3 || out.Found != 2 {
		t.Errorf("unexpected report: %+v", out)
	}
	if len(out.Missing) != 1 || out.Missing[0] != 99 {
		t.Errorf("missing: got %v, want [99]", out.Missing)
	}
	if len(out.AlreadyCheckedIn) != 1 || out.AlreadyCheckedIn[0] != 11 {
		t.Errorf("already_checked_in: got %v, want [11]", out.AlreadyCheckedIn)
	}
	if len(out.NewlyCheckedIn) != 1 || out.NewlyCheckedIn[0] != 10 {
		t.Errorf("newly_checked_in: got %v, want [10]", out.NewlyCheckedIn)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_BulkCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectEventRow(mock, 1, 500)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT email FROM attendees WHERE event_id = \$1 AND email = ANY\(\$2\)`).
		WithArgs(1, pq.Array([]string{"ada@example.com", "alan@example.com"})).
		WillReturnRows(sqlmock.NewRows([]string{"email"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO attendees`).
		WithArgs("Ada", "Lovelace", "ada@example.com", "", 1).
		WillReturnRows(sqlmock.NewRows([]string{"attendee_id"}).AddRow(10))
	mock.ExpectQuery(`INSERT INTO attendees`).
		WithArgs("Alan", "Turing", "alan@example.com", "", 1).
		WillReturnRows(sqlmock.NewRows([]string{"attendee_id"}).AddRow(11))
	mock.ExpectCommit()

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	body, _ := json.Marshal(map[string]interface{}{
		"event_id": 1,
		"attendees": []map[string]string{
			{"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"},
			{"first_name": "Alan", "last_name": "Turing", "email": "alan@example.com"},
		},
	})
	req := requestWithChiURLParams("POST", "/attendees/event/1/bulk-create", body, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	h.BulkCreate(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("BulkCreate status: got %d, want 200", rr.Code)
	}
	var out struct {
		TotalCreated int   `json:"total_created"`
		AttendeeIDs  []int `json:"attendee_ids"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.TotalCreated != 2 || len(out.AttendeeIDs) != 2 {
		t.Errorf("unexpected report: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_BulkCreate_DuplicateInBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectEventRow(mock, 1, 500)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	body, _ := json.Marshal(map[string]interface{}{
		"attendees": []map[string]string{
			{"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"},
			{"first_name": "Ada", "last_name": "Clone", "email": "ada@example.com"},
		},
	})
	req := requestWithChiURLParams("POST", "/attendees/event/1/bulk-create", body, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	h.BulkCreate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("BulkCreate status: got %d, want 400", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_BulkCreate_PathBodyMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	body, _ := json.Marshal(map[string]interface{}{
		"event_id": 2,
		"attendees": []map[string]string{
			{"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"},
		},
	})
	req := requestWithChiURLParams("POST", "/attendees/event/1/bulk-create", body, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	h.BulkCreate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("BulkCreate status: got %d, want 400", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_UploadCSV(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectEventRow(mock, 1, 500)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE event_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT email FROM attendees WHERE event_id = \$1 AND email = ANY\(\$2\)`).
		WithArgs(1, pq.Array([]string{"ada@example.com"})).
		WillReturnRows(sqlmock.NewRows([]string{"email"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO attendees`).
		WithArgs("Ada", "Lovelace", "ada@example.com", "555-0100", 1).
		WillReturnRows(sqlmock.NewRows([]string{"attendee_id"}).AddRow(10))
	mock.ExpectCommit()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "attendees.csv")
	part.Write([]byte("first_name,last_name,email,phone_number\nAda,Lovelace,ada@example.com,555-0100\n"))
	w.Close()

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	req := requestWithChiURLParams("POST", "/attendees/event/1/upload-csv", buf.Bytes(), map[string]string{"id": "1"})
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	h.UploadCSV(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("UploadCSV status: got %d, want 200", rr.Code)
	}
	var out struct {
		TotalCreated int `json:"total_created"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.TotalCreated != 1 {
		t.Errorf("total_created: got %d, want 1", out.TotalCreated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAttendeeHandler_UploadCSV_MissingColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "attendees.csv")
	part.Write([]byte("name,email\nAda Lovelace,ada@example.com\n"))
	w.Close()

	h := &AttendeeHandler{Repo: repo.NewAttendeeRepo(db), Events: repo.NewEventRepo(db)}
	req := requestWithChiURLParams("POST", "/attendees/event/1/upload-csv", buf.Bytes(), map[string]string{"id": "1"})
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	h.UploadCSV(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("UploadCSV status: got %d, want 400", rr.Code)
	}
	var out map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(out["error"], "first_name") || !strings.Contains(out["error"], "last_name") {
		t.Errorf("error should name the missing columns: %v", out["error"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestParseAttendeeCSV_Empty(t *testing.T) {
	_, err := parseAttendeeCSV(strings.NewReader("first_name,last_name,email\n"), 1)
	if err == nil {
		t.Fatal("expected error for CSV with no rows")
	}
}
