package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/storage"
	"github.com/MarcoPoloResearchLab/babytracker/internal/tracker"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testDefaultOwner = "default"

var testNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

type testHarness struct {
	handler  http.Handler
	store    storage.Backend
	realtime *RealtimeDispatcher
}

func newTestHarness(t *testing.T, store storage.Backend, tokens TokenValidator) testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := func() time.Time { return testNow }
	trackerService, err := tracker.NewService(tracker.ServiceConfig{
		Store:           store,
		Clock:           clock,
		Location:        time.UTC,
		DefaultBabyName: "Tommy",
		Logger:          zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build tracker service: %v", err)
	}
	userService, err := users.NewService(users.ServiceConfig{Repository: store, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}
	dispatcher := NewRealtimeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		Tracker:         trackerService,
		Users:           userService,
		Tokens:          tokens,
		Realtime:        dispatcher,
		DefaultOwner:    testDefaultOwner,
		Logger:          zap.NewNop(),
		HeartbeatPeriod: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return testHarness{handler: handler, store: store, realtime: dispatcher}
}

func newTestStore() *storage.MemoryStore {
	return storage.NewMemoryStore(storage.Options{Clock: func() time.Time { return testNow }})
}

func newMemoryHarness(t *testing.T) testHarness {
	t.Helper()
	return newTestHarness(t, newTestStore(), nil)
}

func ownerFixture(id string) users.Owner {
	return users.Owner{ID: records.OwnerID(id), DisplayName: id, CreatedAt: testNow.Add(time.Hour), LastSeenAt: testNow.Add(time.Hour)}
}

func (h testHarness) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	for index := 0; index+1 < len(headers); index += 2 {
		request.Header.Set(headers[index], headers[index+1])
	}
	recorder := httptest.NewRecorder()
	h.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return value
}

type stubTokenValidator struct {
	owner       records.OwnerID
	validateErr error
}

func (s stubTokenValidator) ValidateToken(string) (records.OwnerID, error) {
	if s.validateErr != nil {
		return "", s.validateErr
	}
	return s.owner, nil
}
