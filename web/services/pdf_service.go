package services

import (
	"bytes"
	"fmt"
	"strings"

	apperrors "problem-relay/errors"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

type PDFService struct {
	logger *zap.Logger
}

func NewPDFService(logger *zap.Logger) *PDFService {
	return &PDFService{logger: logger}
}

// ExtractText returns the plain text of an in-memory PDF with a page marker
// before each page, and the number of pages read.
func (ps *PDFService) ExtractText(data []byte) (text string, pages int, err error) {
	// the pdf package panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("%w: unreadable PDF: %v", apperrors.ErrInvalidInput, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: failed to open PDF: %v", apperrors.ErrInvalidInput, err)
	}

	var fullText strings.Builder
	totalPages := r.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			ps.logger.Warn("Skipping null page", zap.Int("page", pageNum))
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			ps.logger.Warn("Failed to extract text from page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		fmt.Fprintf(&fullText, "--- Page %d ---\n", pageNum)
		fullText.WriteString(pageText)
		fullText.WriteString("\n\n")
	}

	extracted := strings.TrimSpace(fullText.String())
	ps.logger.Info("PDF text extraction completed",
		zap.Int("pages", totalPages),
		zap.Int("characters", len(extracted)))

	if extracted == "" {
		return "", totalPages, fmt.Errorf("%w: PDF contains no extractable text", apperrors.ErrInvalidInput)
	}
	return extracted, totalPages, nil
}
