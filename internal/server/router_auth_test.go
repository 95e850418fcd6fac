package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuthorizeRequestLogsExpiredTokenAtInfoLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/feeding", http.NoBody)
	request.Header.Set("Authorization", "Bearer expired-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		tokens: stubTokenValidator{validateErr: jwt.ErrTokenExpired},
		logger: zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for expired token, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
	hasExpired := false
	for _, field := range entry.Context {
		if field.Type == zapcore.ErrorType && errors.Is(field.Interface.(error), jwt.ErrTokenExpired) {
			hasExpired = true
			break
		}
	}
	if !hasExpired {
		t.Fatalf("expected expired token error context, got %v", entry.Context)
	}
}

func TestAuthorizeRequestLogsUnexpectedTokenErrorAtWarnLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/feeding", http.NoBody)
	request.Header.Set("Authorization", "Bearer invalid-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		tokens: stubTokenValidator{validateErr: errors.New("signature mismatch")},
		logger: zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warn entry, got %v", entries)
	}
}

func TestAuthorizeRequestAcceptsQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/events?access_token=abc", http.NoBody)

	handler := &httpHandler{
		tokens: stubTokenValidator{owner: "home"},
		logger: zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if ctx.IsAborted() {
		t.Fatalf("expected request to pass, got status %d", recorder.Code)
	}
	if owner, _ := ctx.Get(ownerContextKey); owner != records.OwnerID("home") {
		t.Fatalf("expected owner home in context, got %v", owner)
	}
}

func TestRoutesRequireTokenWhenAuthEnabled(t *testing.T) {
	harness := newTestHarness(t, newTestStore(), stubTokenValidator{owner: "home"})

	missing := harness.do(t, http.MethodGet, "/api/feeding", nil)
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", missing.Code)
	}

	own := harness.do(t, http.MethodGet, "/api/feeding/home", nil, "Authorization", "Bearer token")
	if own.Code != http.StatusOK {
		t.Fatalf("expected 200 for own owner, got %d: %s", own.Code, own.Body.String())
	}

	foreign := harness.do(t, http.MethodGet, "/api/feeding/neighbour", nil, "Authorization", "Bearer token")
	if foreign.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign owner, got %d", foreign.Code)
	}
	payload := decodeBody[errorPayload](t, foreign)
	if payload.Code != errorCodeOwnerMismatch {
		t.Fatalf("unexpected error code %q", payload.Code)
	}
}

func TestOwnerListingIsScopedToToken(t *testing.T) {
	harness := newTestHarness(t, newTestStore(), stubTokenValidator{owner: "home"})

	created := harness.do(t, http.MethodPost, "/api/users", map[string]string{"displayName": "Home"}, "Authorization", "Bearer token")
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	if _, err := harness.store.SaveOwner(t.Context(), ownerFixture("neighbour")); err != nil {
		t.Fatalf("failed to seed owner: %v", err)
	}

	listed := harness.do(t, http.MethodGet, "/api/users", nil, "Authorization", "Bearer token")
	owners := decodeBody[[]struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}](t, listed)
	if len(owners) != 1 || owners[0].ID != "home" || owners[0].DisplayName != "Home" {
		t.Fatalf("expected only the authenticated owner, got %+v", owners)
	}

	foreign := harness.do(t, http.MethodPost, "/api/users", map[string]string{"id": "neighbour"}, "Authorization", "Bearer token")
	if foreign.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when registering a foreign owner, got %d", foreign.Code)
	}
}
