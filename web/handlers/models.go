package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ModelsHandler struct {
	path   string
	logger *zap.Logger
}

func NewModelsHandler(path string, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{path: path, logger: logger}
}

// List handles GET /api/models. The file is read per request so edits show
// up without a restart.
func (h *ModelsHandler) List(c *gin.Context) {
	data, err := os.ReadFile(h.path)
	if err == nil && !json.Valid(data) {
		err = errors.New("models file is not valid JSON")
	}
	if err != nil {
		requestLogger(c, h.logger).Debug("Failed to read models file",
			zap.String("path", h.path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, []any{})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
