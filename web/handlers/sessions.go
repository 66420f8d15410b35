package handlers

import (
	"net/http"

	"problem-relay/database"
	"problem-relay/utils"
	"problem-relay/web/format"
	"problem-relay/web/middleware"
	"problem-relay/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	store  database.SessionStore
	logger *zap.Logger
}

func NewSessionHandler(store database.SessionStore, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:  store,
		logger: logger,
	}
}

func validSessionID(id string) bool {
	return utils.ValidSessionID(id)
}

// Create handles POST /api/sessions and hands out a fresh ID. Nothing is
// stored until the first save.
func (h *SessionHandler) Create(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": utils.NewSessionID()})
}

// Get handles GET /api/sessions/:id. Unknown or unreadable sessions read as
// an empty list.
func (h *SessionHandler) Get(c *gin.Context) {
	id := c.GetString(middleware.SessionIDKey)
	messages, err := h.store.Load(c.Request.Context(), id)
	if err != nil {
		requestLogger(c, h.logger).Warn("Failed to load session",
			zap.String("session_id", id),
			zap.Error(err))
	}
	if messages == nil {
		messages = []types.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// Save handles POST /api/sessions/:id with the message list as body.
func (h *SessionHandler) Save(c *gin.Context) {
	id := c.GetString(middleware.SessionIDKey)
	var messages []types.Message
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&messages); err != nil {
			c.JSON(http.StatusBadRequest, types.OKResponse{OK: false})
			return
		}
	}

	if err := h.store.Save(c.Request.Context(), id, messages); err != nil {
		requestLogger(c, h.logger).Error("Failed to save session",
			zap.String("session_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.OKResponse{OK: false})
		return
	}
	c.JSON(http.StatusOK, types.OKResponse{OK: true})
}

// Clear handles POST /api/sessions/:id/clear.
func (h *SessionHandler) Clear(c *gin.Context) {
	id := c.GetString(middleware.SessionIDKey)
	if err := h.store.Clear(c.Request.Context(), id); err != nil {
		requestLogger(c, h.logger).Error("Failed to clear session",
			zap.String("session_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.OKResponse{OK: false})
		return
	}
	c.JSON(http.StatusOK, types.OKResponse{OK: true})
}

// Transcript handles GET /api/sessions/:id/transcript.
func (h *SessionHandler) Transcript(c *gin.Context) {
	id := c.GetString(middleware.SessionIDKey)
	messages, err := h.store.Load(c.Request.Context(), id)
	if err != nil {
		requestLogger(c, h.logger).Warn("Failed to load session for transcript",
			zap.String("session_id", id),
			zap.Error(err))
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(format.RenderTranscript(id, messages)))
}
