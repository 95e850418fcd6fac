// Package server exposes the tracker over HTTP with gin.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/metrics"
	"github.com/MarcoPoloResearchLab/babytracker/internal/photos"
	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/tracker"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	ownerContextKey         = "babytracker_owner_id"
	accessTokenQueryParam   = "access_token"
	defaultHeartbeatPeriod  = 25 * time.Second
	errorCodeUnauthorized   = "unauthorized"
	errorCodeOwnerMismatch  = "owner_mismatch"
	errorCodeInvalidOwner   = "invalid_owner"
	errorCodeInvalidRequest = "invalid_request"
	errorCodeInvalidDate    = "invalid_date"
	errorCodeInternal       = "internal_error"
)

var (
	errMissingTracker       = errors.New("tracker service dependency required")
	errMissingUsers         = errors.New("users service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenValidator resolves a bearer token to the owner it was issued for.
type TokenValidator interface {
	ValidateToken(token string) (records.OwnerID, error)
}

// Dependencies wires the HTTP handler. A nil Tokens disables authentication and
// requests act on the owner named in the path, or DefaultOwner.
type Dependencies struct {
	Tracker         *tracker.Service
	Users           *users.Service
	Tokens          TokenValidator
	Metrics         *metrics.Recorder
	Realtime        *RealtimeDispatcher
	PhotoDir        string
	DefaultOwner    string
	Logger          *zap.Logger
	HeartbeatPeriod time.Duration
}

// NewHTTPHandler builds the gin engine serving the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Tracker == nil {
		return nil, errMissingTracker
	}
	if deps.Users == nil {
		return nil, errMissingUsers
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatPeriod
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatPeriod
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if strings.TrimSpace(deps.PhotoDir) != "" {
		router.Static(photos.DefaultPublicPath, deps.PhotoDir)
	}

	handler := &httpHandler{
		tracker:      deps.Tracker,
		users:        deps.Users,
		tokens:       deps.Tokens,
		realtime:     deps.Realtime,
		defaultOwner: deps.DefaultOwner,
		logger:       logger,
		heartbeat:    heartbeat,
	}

	api := router.Group("/api")
	api.Use(handler.authorizeRequest)

	api.GET("/baby", handler.handleGetProfile)
	api.GET("/baby/:userId", handler.handleGetProfile)
	api.PUT("/baby", handler.handleUpdateProfile)
	api.PUT("/baby/:userId", handler.handleUpdateProfile)
	api.PUT("/baby/photo", handler.handleUploadPhoto)
	api.PUT("/baby/photo/:userId", handler.handleUploadPhoto)

	for _, kind := range records.Kinds() {
		group := api.Group("/" + kind.String())
		group.GET("", handler.handleListRecords(kind))
		group.GET("/:ref", handler.handleListRecords(kind))
		group.POST("", handler.handleCreateRecord(kind))
		group.POST("/:ref", handler.handleCreateRecord(kind))
		group.PUT("/:ref", handler.handleUpdateRecord(kind))
		group.PUT("/:ref/:id", handler.handleUpdateRecord(kind))
		group.DELETE("/:ref", handler.handleDeleteRecord(kind))
		group.DELETE("/:ref/:id", handler.handleDeleteRecord(kind))
	}

	for _, kind := range []records.Kind{records.KindFeeding, records.KindDiaper, records.KindSleep} {
		api.GET("/stats/"+kind.String(), handler.handleStats(kind))
		api.GET("/stats/"+kind.String()+"/:userId", handler.handleStats(kind))
	}

	api.GET("/dashboard", handler.handleDashboard)
	api.GET("/dashboard/:userId", handler.handleDashboard)
	api.POST("/sleep-sessions", handler.handleSleepSession)
	api.POST("/sleep-sessions/:userId", handler.handleSleepSession)
	api.GET("/users", handler.handleListOwners)
	api.POST("/users", handler.handleRegisterOwner)
	api.GET("/events", handler.handleEvents)
	api.GET("/events/:userId", handler.handleEvents)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Last-Event-ID"},
		ExposeHeaders:    []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

type httpHandler struct {
	tracker      *tracker.Service
	users        *users.Service
	tokens       TokenValidator
	realtime     *RealtimeDispatcher
	defaultOwner string
	logger       *zap.Logger
	heartbeat    time.Duration
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// authorizeRequest validates the bearer token when authentication is enabled.
// Event streams may pass the token as a query parameter since EventSource cannot set headers.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	if h.tokens == nil {
		c.Next()
		return
	}
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorPayload{Error: errInvalidAuthorization.Error(), Code: errorCodeUnauthorized})
		return
	}
	owner, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorPayload{Error: "unauthorized", Code: errorCodeUnauthorized})
		return
	}
	c.Set(ownerContextKey, owner)
	c.Next()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query(accessTokenQueryParam))
}

// resolveOwner picks the acting owner. With authentication the token decides and a
// differing path owner is forbidden; without it the path owner or the default applies.
// On failure the response has been written.
func (h *httpHandler) resolveOwner(c *gin.Context, pathOwner string) (records.OwnerID, bool) {
	pathOwner = strings.TrimSpace(pathOwner)
	raw := pathOwner
	if h.tokens != nil {
		tokenOwner, ok := c.Get(ownerContextKey)
		authenticated, _ := tokenOwner.(records.OwnerID)
		if !ok || authenticated == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorPayload{Error: "unauthorized", Code: errorCodeUnauthorized})
			return "", false
		}
		if pathOwner != "" && pathOwner != authenticated.String() {
			h.logger.Warn("owner mismatch", zap.String("token_owner", authenticated.String()), zap.String("path_owner", pathOwner))
			c.AbortWithStatusJSON(http.StatusForbidden, errorPayload{Error: "forbidden", Code: errorCodeOwnerMismatch})
			return "", false
		}
		raw = authenticated.String()
	}
	if raw == "" {
		raw = h.defaultOwner
	}

	owner, err := h.users.Resolve(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, users.ErrInvalidOwner) {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorPayload{Error: err.Error(), Code: errorCodeInvalidOwner})
			return "", false
		}
		h.logger.Error("owner resolution failed", zap.String("owner_id", raw), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorPayload{Error: "owner resolution failed", Code: errorCodeInternal})
		return "", false
	}
	return owner, true
}

// respondError maps a tracker error onto an HTTP status.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	payload := errorPayload{Error: err.Error(), Code: errorCodeInternal}
	var serviceErr *tracker.ServiceError
	if errors.As(err, &serviceErr) {
		payload.Code = serviceErr.Code()
		if cause := errors.Unwrap(serviceErr); cause != nil {
			payload.Error = cause.Error()
		}
	}
	switch {
	case errors.Is(err, records.ErrValidation):
		c.JSON(http.StatusBadRequest, payload)
	case errors.Is(err, records.ErrNotFound):
		c.JSON(http.StatusNotFound, payload)
	default:
		h.logger.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorPayload{Error: "storage failure", Code: payload.Code})
	}
}

func (h *httpHandler) publish(owner records.OwnerID, eventType string, kind records.Kind, action string, ids ...string) {
	if h.realtime == nil {
		return
	}
	h.realtime.Publish(RealtimeMessage{
		OwnerID:   owner,
		EventType: eventType,
		Kind:      kind,
		Action:    action,
		RecordIDs: ids,
		Timestamp: time.Now().UTC(),
	})
}

// referenceDate reads the optional ?date= query parameter; empty means today.
func referenceDate(c *gin.Context) (records.Date, bool) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return "", true
	}
	day, err := records.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Error: err.Error(), Code: errorCodeInvalidDate})
		return "", false
	}
	return day, true
}
