package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vaxline/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	appended []models.AppointmentRecord
	err      error
}

func (f *fakeStore) Append(ctx context.Context, rec models.AppointmentRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.appended = append(f.appended, rec)
	return len(f.appended), nil
}

func (f *fakeStore) records() []models.AppointmentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AppointmentRecord(nil), f.appended...)
}

type fakeNotifier struct {
	ch chan models.AppointmentRecord
}

func (f *fakeNotifier) SendConfirmation(ctx context.Context, rec models.AppointmentRecord) error {
	f.ch <- rec
	return nil
}

type fakeQueue struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *fakeQueue) Schedule(submissionID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, submissionID)
	return submissionID + "/second"
}

func (f *fakeQueue) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scheduled...)
}

type fixture struct {
	store    *fakeStore
	notifier *fakeNotifier
	queue    *fakeQueue
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		store:    &fakeStore{},
		notifier: &fakeNotifier{ch: make(chan models.AppointmentRecord, 4)},
		queue:    &fakeQueue{},
	}
	h := New(f.store, f.notifier, f.queue, time.UTC, "static", zerolog.Nop())
	f.router = gin.New()
	h.Register(f.router)
	return f
}

func (f *fixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func validSubmission() map[string]string {
	return map[string]string{
		"userName":        "A",
		"userPhone":       "000",
		"vaccineName":     "HepA-type",
		"appointmentDate": "2024-01-01",
		"userID":          "U1",
	}
}

func TestSaveDataSuccess(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, "/saveData", validSubmission())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "success" {
		t.Fatalf("status field = %q, want success", resp["status"])
	}

	recs := f.store.records()
	if len(recs) != 1 {
		t.Fatalf("appended %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.SecondDoseDate != "2024-03-01" || rec.ThirdDoseDate != "" {
		t.Fatalf("doses = %q/%q, want 2024-03-01/", rec.SecondDoseDate, rec.ThirdDoseDate)
	}
	if rec.SubmissionID == "" || rec.FormTimestamp == "" {
		t.Fatalf("submission ID or timestamp not filled: %+v", rec)
	}

	select {
	case got := <-f.notifier.ch:
		if got.UserID != "U1" {
			t.Fatalf("confirmation to %q, want U1", got.UserID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation never sent")
	}

	if ids := f.queue.ids(); len(ids) != 1 || ids[0] != rec.SubmissionID {
		t.Fatalf("scheduled = %v, want [%s]", ids, rec.SubmissionID)
	}
}

func TestSaveDataMissingFields(t *testing.T) {
	f := newFixture(t)

	body := validSubmission()
	delete(body, "userID")
	w := f.post(t, "/saveData", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "userID") {
		t.Fatalf("error %s does not name the missing field", w.Body)
	}
	if len(f.store.records()) != 0 {
		t.Fatal("store must not be touched on validation failure")
	}
	if len(f.queue.ids()) != 0 {
		t.Fatal("no reminder may be scheduled on validation failure")
	}
}

func TestSaveDataMalformedDate(t *testing.T) {
	f := newFixture(t)

	body := validSubmission()
	body["appointmentDate"] = "01/01/2024"
	w := f.post(t, "/saveData", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(f.store.records()) != 0 {
		t.Fatal("store must not be touched on a malformed date")
	}
}

func TestSaveDataStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("quota exceeded")

	w := f.post(t, "/saveData", validSubmission())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	select {
	case rec := <-f.notifier.ch:
		t.Fatalf("confirmation sent despite append failure: %+v", rec)
	case <-time.After(100 * time.Millisecond):
	}
	if len(f.queue.ids()) != 0 {
		t.Fatal("no reminder may be scheduled after append failure")
	}
}

func TestSaveDataUnknownVaccine(t *testing.T) {
	f := newFixture(t)

	body := validSubmission()
	body["vaccineName"] = "flu-type"
	w := f.post(t, "/saveData", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	recs := f.store.records()
	if len(recs) != 1 || recs[0].SecondDoseDate != "" || recs[0].ThirdDoseDate != "" {
		t.Fatalf("unknown vaccine should append with no follow-ups: %+v", recs)
	}
	if len(f.queue.ids()) != 0 {
		t.Fatal("no reminder task without a follow-up dose")
	}
}

func TestClientLog(t *testing.T) {
	f := newFixture(t)

	if w := f.post(t, "/log", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty log status = %d, want 400", w.Code)
	}
	if w := f.post(t, "/log", map[string]string{"message": "form blew up"}); w.Code != http.StatusOK {
		t.Fatalf("log status = %d, want 200", w.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("health = %d %q", w.Code, w.Body)
	}
}
