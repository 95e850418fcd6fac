package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/babytracker/internal/insights"
	"github.com/MarcoPoloResearchLab/babytracker/internal/metrics"
	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/report"
	"github.com/MarcoPoloResearchLab/babytracker/internal/tracker"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
	"go.uber.org/zap"
)

const onePixelPNG = "data:image/png;base64,iVBORw0KGgo="

func TestProfileEndpoints(t *testing.T) {
	harness := newMemoryHarness(t)

	initial := harness.do(t, http.MethodGet, "/api/baby", nil)
	if initial.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", initial.Code, initial.Body.String())
	}
	profile := decodeBody[report.Profile](t, initial)
	if profile.Name != "Tommy" || profile.BirthDate != "2024-02-01" || profile.Age.Formatted != "0 days" {
		t.Fatalf("unexpected default profile %+v", profile)
	}

	updated := harness.do(t, http.MethodPut, "/api/baby", map[string]string{"name": "Lily", "birthDate": "2023-09-01"})
	if updated.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", updated.Code, updated.Body.String())
	}
	profile = decodeBody[report.Profile](t, updated)
	if profile.Name != "Lily" || profile.Age.Formatted != "5 months" {
		t.Fatalf("unexpected updated profile %+v", profile)
	}

	future := harness.do(t, http.MethodPut, "/api/baby", map[string]string{"name": "Lily", "birthDate": "2024-03-01"})
	if future.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a future birth date, got %d", future.Code)
	}
	if payload := decodeBody[errorPayload](t, future); payload.Code != "tracker.update_profile.validation_failed" {
		t.Fatalf("unexpected error code %q", payload.Code)
	}

	photo := harness.do(t, http.MethodPut, "/api/baby/photo", map[string]string{"dataUrl": onePixelPNG})
	if photo.Code != http.StatusOK {
		t.Fatalf("expected 200 for photo upload, got %d: %s", photo.Code, photo.Body.String())
	}
	if profile = decodeBody[report.Profile](t, photo); profile.Photo != onePixelPNG || profile.Name != "Lily" {
		t.Fatalf("unexpected profile after photo upload %+v", profile)
	}

	invalidPhoto := harness.do(t, http.MethodPut, "/api/baby/photo", map[string]string{"dataUrl": "data:text/plain;base64,aGk="})
	if invalidPhoto.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-image data url, got %d", invalidPhoto.Code)
	}
	if payload := decodeBody[errorPayload](t, invalidPhoto); payload.Code != "tracker.upload_photo.invalid_photo" {
		t.Fatalf("unexpected error code %q", payload.Code)
	}
}

func TestRecordLifecycleEndpoints(t *testing.T) {
	harness := newMemoryHarness(t)

	first := harness.do(t, http.MethodPost, "/api/feeding", map[string]any{"date": "2024-02-01", "time": "09:00", "amount": 4})
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	created := decodeBody[records.Record](t, first)
	if created.ID == "" || created.Type != "bottle" {
		t.Fatalf("unexpected created record %+v", created)
	}
	harness.do(t, http.MethodPost, "/api/feeding", map[string]any{"date": "2024-02-01", "time": "12:00", "amount": 3})

	listed := decodeBody[[]records.Record](t, harness.do(t, http.MethodGet, "/api/feeding", nil))
	if len(listed) != 2 || listed[0].Time != "12:00" {
		t.Fatalf("expected newest feeding first, got %+v", listed)
	}

	edited := harness.do(t, http.MethodPut, "/api/feeding/"+created.ID, map[string]any{"date": "2024-02-01", "time": "09:30", "amount": 5})
	if edited.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", edited.Code, edited.Body.String())
	}
	if record := decodeBody[records.Record](t, edited); record.ID != created.ID || record.Amount != 5 {
		t.Fatalf("unexpected edited record %+v", record)
	}

	missing := harness.do(t, http.MethodPut, "/api/feeding/missing", map[string]any{"date": "2024-02-01", "time": "09:30", "amount": 5})
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
	if payload := decodeBody[errorPayload](t, missing); payload.Code != "tracker.update_record.not_found" {
		t.Fatalf("unexpected error code %q", payload.Code)
	}

	invalid := harness.do(t, http.MethodPost, "/api/feeding", map[string]any{"date": "2024-02-01", "time": "09:30", "amount": -1})
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", invalid.Code)
	}
	if payload := decodeBody[errorPayload](t, invalid); !strings.HasPrefix(payload.Error, "amount") {
		t.Fatalf("expected the offending field in the error, got %q", payload.Error)
	}

	stats := harness.do(t, http.MethodGet, "/api/stats/feeding?date=2024-02-01", nil)
	feeding := decodeBody[insights.FeedingStats](t, stats)
	if feeding.TodayCount != 2 || feeding.TodayTotalOz != 8 || feeding.AllTimeTotalOz != 8 {
		t.Fatalf("unexpected feeding stats %+v", feeding)
	}

	deleted := harness.do(t, http.MethodDelete, "/api/feeding/"+created.ID, nil)
	if deleted.Code != http.StatusOK || strings.TrimSpace(deleted.Body.String()) != `{"success":true}` {
		t.Fatalf("unexpected delete response %d: %s", deleted.Code, deleted.Body.String())
	}
	if again := harness.do(t, http.MethodDelete, "/api/feeding/"+created.ID, nil); again.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a repeated delete, got %d", again.Code)
	}
}

func TestSleepDurationIsDerived(t *testing.T) {
	harness := newMemoryHarness(t)

	overnight := harness.do(t, http.MethodPost, "/api/sleep", map[string]any{"date": "2024-02-01", "startTime": "22:00", "endTime": "06:00", "duration": 5})
	if record := decodeBody[records.Record](t, overnight); record.Duration != 480 {
		t.Fatalf("expected duration 480, got %+v", record)
	}

	zero := harness.do(t, http.MethodPost, "/api/sleep", map[string]any{"date": "2024-02-01", "startTime": "10:00", "endTime": "10:00"})
	if zero.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a zero-duration session, got %d", zero.Code)
	}

	session := harness.do(t, http.MethodPost, "/api/sleep-sessions", map[string]string{"startedAt": "2024-02-01T13:00:00Z", "endedAt": "2024-02-01T14:30:00Z"})
	if session.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", session.Code, session.Body.String())
	}
	if record := decodeBody[records.Record](t, session); record.Duration != 90 || record.StartTime != "13:00" {
		t.Fatalf("unexpected session record %+v", record)
	}

	stats := decodeBody[insights.SleepStats](t, harness.do(t, http.MethodGet, "/api/stats/sleep?date=2024-02-01", nil))
	if stats.TodayTotalMinutes != 570 || stats.TodaySessionCount != 2 {
		t.Fatalf("unexpected sleep stats %+v", stats)
	}

	badDate := harness.do(t, http.MethodGet, "/api/stats/sleep?date=yesterday", nil)
	if badDate.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid date, got %d", badDate.Code)
	}
}

func TestOwnerPathsScopeRecords(t *testing.T) {
	harness := newMemoryHarness(t)

	created := harness.do(t, http.MethodPost, "/api/diaper/grandma", map[string]any{"date": "2024-02-01", "time": "08:00", "type": "both"})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	record := decodeBody[records.Record](t, created)

	if own := decodeBody[[]records.Record](t, harness.do(t, http.MethodGet, "/api/diaper", nil)); len(own) != 0 {
		t.Fatalf("expected default owner to have no diapers, got %+v", own)
	}
	if grandma := decodeBody[[]records.Record](t, harness.do(t, http.MethodGet, "/api/diaper/grandma", nil)); len(grandma) != 1 {
		t.Fatalf("expected grandma to have one diaper, got %+v", grandma)
	}

	stats := decodeBody[insights.DiaperStats](t, harness.do(t, http.MethodGet, "/api/stats/diaper/grandma?date=2024-02-01", nil))
	if stats.TodayPeeCount != 1 || stats.TodayPooCount != 1 {
		t.Fatalf("expected both to count as pee and poo, got %+v", stats)
	}

	if wrongOwner := harness.do(t, http.MethodDelete, "/api/diaper/"+record.ID, nil); wrongOwner.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting through the default owner, got %d", wrongOwner.Code)
	}
	if deleted := harness.do(t, http.MethodDelete, "/api/diaper/grandma/"+record.ID, nil); deleted.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting through the owner path, got %d", deleted.Code)
	}

	owners := decodeBody[[]users.Owner](t, harness.do(t, http.MethodGet, "/api/users", nil))
	ids := make([]string, 0, len(owners))
	for _, owner := range owners {
		ids = append(ids, owner.ID.String())
	}
	if strings.Join(ids, ",") != "default,grandma" && strings.Join(ids, ",") != "grandma,default" {
		t.Fatalf("expected both owners to be registered, got %v", ids)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	harness := newMemoryHarness(t)
	harness.do(t, http.MethodPost, "/api/growth", map[string]any{"date": "2024-01-01", "weight": 3.5})
	harness.do(t, http.MethodPost, "/api/growth", map[string]any{"date": "2024-02-01", "weight": 4.2})
	harness.do(t, http.MethodPost, "/api/feeding", map[string]any{"date": "2024-02-01", "time": "08:00", "amount": 4})
	harness.do(t, http.MethodPost, "/api/feeding", map[string]any{"date": "2024-02-01", "time": "11:00", "amount": 4})

	recorder := harness.do(t, http.MethodGet, "/api/dashboard?date=2024-02-01", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	dashboard := decodeBody[report.Dashboard](t, recorder)
	if dashboard.Summary.LatestWeight == nil || *dashboard.Summary.LatestWeight != 4.2 {
		t.Fatalf("unexpected latest weight %+v", dashboard.Summary)
	}
	if dashboard.Trends.Feeding != "Every 3 hours - Next 14:00" {
		t.Fatalf("unexpected feeding trend %q", dashboard.Trends.Feeding)
	}
	if dashboard.Prediction == nil || dashboard.Prediction.NextFeedingTime != "14:00" {
		t.Fatalf("unexpected prediction %+v", dashboard.Prediction)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	store := newTestStore()
	recorder := metrics.NewRecorder()
	trackerService, err := tracker.NewService(tracker.ServiceConfig{Store: store, Metrics: recorder})
	if err != nil {
		t.Fatalf("failed to build tracker: %v", err)
	}
	userService, err := users.NewService(users.ServiceConfig{Repository: store})
	if err != nil {
		t.Fatalf("failed to build users: %v", err)
	}
	handler, err := NewHTTPHandler(Dependencies{
		Tracker:      trackerService,
		Users:        userService,
		Metrics:      recorder,
		DefaultOwner: testDefaultOwner,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	harness := testHarness{handler: handler, store: store}

	if health := harness.do(t, http.MethodGet, "/healthz", nil); health.Code != http.StatusOK {
		t.Fatalf("expected healthy status, got %d", health.Code)
	}
	harness.do(t, http.MethodGet, "/api/feeding", nil)

	exposition := harness.do(t, http.MethodGet, "/metrics", nil)
	body := exposition.Body.String()
	if !strings.Contains(body, `babytracker_http_requests_total{code="200",method="GET",route="/api/feeding"} 1`) {
		t.Fatalf("expected request counter in exposition, got:\n%s", body)
	}
	if !strings.Contains(body, `babytracker_operations_total{operation="tracker.list_records",status="success"} 1`) {
		t.Fatalf("expected operation counter in exposition, got:\n%s", body)
	}
}

func TestNewHTTPHandlerRequiresServices(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		t.Fatalf("expected an error without a tracker service")
	}
}
