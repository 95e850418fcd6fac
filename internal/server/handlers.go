package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type photoRequestPayload struct {
	DataURL string `json:"dataUrl"`
}

type sleepSessionRequestPayload struct {
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

type ownerRequestPayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type realtimeEventPayload struct {
	OwnerID   string   `json:"ownerId"`
	Kind      string   `json:"kind,omitempty"`
	Action    string   `json:"action,omitempty"`
	RecordIDs []string `json:"recordIds,omitempty"`
	Timestamp string   `json:"timestamp"`
	Source    string   `json:"source"`
}

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	owner, ok := h.resolveOwner(c, c.Param("userId"))
	if !ok {
		return
	}
	profile, err := h.tracker.GetProfile(c.Request.Context(), owner)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	owner, ok := h.resolveOwner(c, c.Param("userId"))
	if !ok {
		return
	}
	var request records.BabyProfile
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Error: "invalid request body", Code: errorCodeInvalidRequest})
		return
	}
	profile, err := h.tracker.UpdateProfile(c.Request.Context(), owner, request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(owner, RealtimeEventProfileChanged, "", ActionUpdated)
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleUploadPhoto(c *gin.Context) {
	owner, ok := h.resolveOwner(c, c.Param("userId"))
	if !ok {
		return
	}
	var request photoRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.DataURL) == "" {
		c.JSON(http.StatusBadRequest, errorPayload{Error: "dataUrl is required", Code: errorCodeInvalidRequest})
		return
	}
	profile, err := h.tracker.UploadPhoto(c.Request.Context(), owner, request.DataURL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(owner, RealtimeEventProfileChanged, "", ActionUpdated)
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleListRecords(kind records.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := h.resolveOwner(c, c.Param("ref"))
		if !ok {
			return
		}
		items, err := h.tracker.ListRecords(c.Request.Context(), owner, kind)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func (h *httpHandler) handleCreateRecord(kind records.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := h.resolveOwner(c, c.Param("ref"))
		if !ok {
			return
		}
		var request records.Record
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, errorPayload{Error: "invalid request body", Code: errorCodeInvalidRequest})
			return
		}
		created, err := h.tracker.CreateRecord(c.Request.Context(), owner, kind, request)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.publish(owner, RealtimeEventRecordChanged, kind, ActionCreated, created.ID)
		c.JSON(http.StatusCreated, created)
	}
}

// recordTarget splits the path of a record route: /:ref/:id names owner and record,
// a lone /:ref names the record of the default or authenticated owner.
func recordTarget(c *gin.Context) (pathOwner string, recordID string) {
	if id := c.Param("id"); id != "" {
		return c.Param("ref"), id
	}
	return "", c.Param("ref")
}

func (h *httpHandler) handleUpdateRecord(kind records.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		pathOwner, recordID := recordTarget(c)
		owner, ok := h.resolveOwner(c, pathOwner)
		if !ok {
			return
		}
		var request records.Record
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, errorPayload{Error: "invalid request body", Code: errorCodeInvalidRequest})
			return
		}
		updated, err := h.tracker.UpdateRecord(c.Request.Context(), owner, kind, recordID, request)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.publish(owner, RealtimeEventRecordChanged, kind, ActionUpdated, updated.ID)
		c.JSON(http.StatusOK, updated)
	}
}

func (h *httpHandler) handleDeleteRecord(kind records.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		pathOwner, recordID := recordTarget(c)
		owner, ok := h.resolveOwner(c, pathOwner)
		if !ok {
			return
		}
		if err := h.tracker.DeleteRecord(c.Request.Context(), owner, kind, recordID); err != nil {
			h.respondError(c, err)
			return
		}
		h.publish(owner, RealtimeEventRecordChanged, kind, ActionDeleted, recordID)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *httpHandler) handleStats(kind records.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := h.resolveOwner(c, c.Param("userId"))
		if !ok {
			return
		}
		day, ok := referenceDate(c)
		if !ok {
			return
		}
		stats, err := h.tracker.Stats(c.Request.Context(), owner, day)
		if err != nil {
			h.respondError(c, err)
			return
		}
		switch kind {
		case records.KindFeeding:
			c.JSON(http.StatusOK, stats.Feeding)
		case records.KindDiaper:
			c.JSON(http.StatusOK, stats.Diaper)
		default:
			c.JSON(http.StatusOK, stats.Sleep)
		}
	}
}

func (h *httpHandler) handleDashboard(c *gin.Context) {
	owner, ok := h.resolveOwner(c, c.Param("userId"))
	if !ok {
		return
	}
	day, ok := referenceDate(c)
	if !ok {
		return
	}
	dashboard, err := h.tracker.Dashboard(c.Request.Context(), owner, day)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *httpHandler) handleSleepSession(c *gin.Context) {
	owner, ok := h.resolveOwner(c, c.Param("userId"))
	if !ok {
		return
	}
	var request sleepSessionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.StartedAt.IsZero() || request.EndedAt.IsZero() {
		c.JSON(http.StatusBadRequest, errorPayload{Error: "startedAt and endedAt must be RFC3339 timestamps", Code: errorCodeInvalidRequest})
		return
	}
	created, err := h.tracker.RecordSleepSession(c.Request.Context(), owner, request.StartedAt, request.EndedAt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(owner, RealtimeEventRecordChanged, records.KindSleep, ActionCreated, created.ID)
	c.JSON(http.StatusCreated, created)
}

// handleListOwners lists the owner directory. An authenticated caller only sees itself.
func (h *httpHandler) handleListOwners(c *gin.Context) {
	owners, err := h.users.List(c.Request.Context())
	if err != nil {
		h.logger.Error("owner listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorPayload{Error: "owner listing failed", Code: errorCodeInternal})
		return
	}
	if h.tokens != nil {
		value, _ := c.Get(ownerContextKey)
		authenticated, _ := value.(records.OwnerID)
		visible := make([]users.Owner, 0, 1)
		for _, owner := range owners {
			if owner.ID == authenticated {
				visible = append(visible, owner)
			}
		}
		owners = visible
	}
	c.JSON(http.StatusOK, owners)
}

func (h *httpHandler) handleRegisterOwner(c *gin.Context) {
	var request ownerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Error: "invalid request body", Code: errorCodeInvalidRequest})
		return
	}
	rawOwner := request.ID
	if h.tokens != nil {
		owner, ok := h.resolveOwner(c, request.ID)
		if !ok {
			return
		}
		rawOwner = owner.String()
	}
	registered, err := h.users.Register(c.Request.Context(), rawOwner, request.DisplayName)
	if err != nil {
		if errors.Is(err, users.ErrInvalidOwner) {
			c.JSON(http.StatusBadRequest, errorPayload{Error: err.Error(), Code: errorCodeInvalidOwner})
			return
		}
		h.logger.Error("owner registration failed", zap.String("owner_id", rawOwner), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorPayload{Error: "owner registration failed", Code: errorCodeInternal})
		return
	}
	c.JSON(http.StatusCreated, registered)
}

// handleEvents streams change notifications for the owner as server-sent events.
func (h *httpHandler) handleEvents(c *gin.Context) {
	owner, ok := h.resolveOwner(c, c.Param("userId"))
	if !ok {
		return
	}
	if h.realtime == nil {
		c.JSON(http.StatusNotFound, errorPayload{Error: "event stream disabled", Code: "realtime_disabled"})
		return
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, owner)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, open := <-stream:
			if !open {
				return false
			}
			c.SSEvent(message.EventType, realtimeEventPayload{
				OwnerID:   message.OwnerID.String(),
				Kind:      message.Kind.String(),
				Action:    message.Action,
				RecordIDs: message.RecordIDs,
				Timestamp: message.Timestamp.Format(time.RFC3339),
				Source:    realtimeSourceBackend,
			})
			return true
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, realtimeEventPayload{
				OwnerID:   owner.String(),
				Timestamp: tick.UTC().Format(time.RFC3339),
				Source:    realtimeSourceBackend,
			})
			return true
		}
	})
}
