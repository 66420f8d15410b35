package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"problem-relay/web/services"
	"problem-relay/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxPDFBytes bounds uploaded problem statements. MaxPDFUploadBytes also
// leaves room for the multipart envelope and the model field.
const (
	MaxPDFBytes       = 20 << 20
	MaxPDFUploadBytes = MaxPDFBytes + 1<<20
)

type RelayHandler struct {
	relay  *services.RelayService
	pdf    *services.PDFService
	logger *zap.Logger
}

func NewRelayHandler(relay *services.RelayService, pdf *services.PDFService, logger *zap.Logger) *RelayHandler {
	return &RelayHandler{
		relay:  relay,
		pdf:    pdf,
		logger: logger,
	}
}

// Translate handles POST /api/translate.
func (h *RelayHandler) Translate(c *gin.Context) {
	var req types.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Text == "" {
		respondWithClientError(c, http.StatusBadRequest, "missing text field")
		return
	}

	logger := requestLogger(c, h.logger)
	result, err := h.relay.Translate(c.Request.Context(), req.Text, req.Model)
	if err != nil {
		respondWithUpstreamError(c, err, "Translation", logger)
		return
	}
	c.JSON(http.StatusOK, types.ResultResponse{Result: result})
}

// TranslatePDF handles POST /api/translate/pdf with a multipart "file".
func (h *RelayHandler) TranslatePDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithClientError(c, http.StatusRequestEntityTooLarge, "PDF is too large")
			return
		}
		respondWithClientError(c, http.StatusBadRequest, "missing file field")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		respondWithClientError(c, http.StatusBadRequest, "Invalid file type. Please upload a PDF.")
		return
	}
	if file.Size > MaxPDFBytes {
		respondWithClientError(c, http.StatusRequestEntityTooLarge, "PDF is too large")
		return
	}

	logger := requestLogger(c, h.logger)
	f, err := file.Open()
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, err, "Could not read upload", logger)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxPDFBytes+1))
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, err, "Could not read upload", logger)
		return
	}

	text, pages, err := h.pdf.ExtractText(data)
	if err != nil {
		logger.Info("PDF rejected", zap.String("filename", file.Filename), zap.Error(err))
		respondWithClientError(c, http.StatusBadRequest, "Could not extract text from PDF")
		return
	}

	result, err := h.relay.Translate(c.Request.Context(), text, c.PostForm("model"))
	if err != nil {
		respondWithUpstreamError(c, err, "Translation", logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "pages": pages})
}

// Chat handles POST /api/chat.
func (h *RelayHandler) Chat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "missing messages array")
		return
	}
	if len(req.Messages) == 0 {
		respondWithClientError(c, http.StatusBadRequest, "missing messages array")
		return
	}
	if req.SessionID != "" && !validSessionID(req.SessionID) {
		respondWithClientError(c, http.StatusBadRequest, "Invalid session ID")
		return
	}

	logger := requestLogger(c, h.logger)
	result, err := h.relay.Chat(c.Request.Context(), req.Messages, req.Model, req.SessionID)
	if err != nil {
		respondWithUpstreamError(c, err, "Chat", logger)
		return
	}
	c.JSON(http.StatusOK, types.ResultResponse{Result: result})
}
