package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chartqa/internal/app"
	"chartqa/internal/extract"
	"chartqa/internal/transport/http/response"
)

const maxDocumentSize = 50 << 20 // 50 MB

type DocumentHandler struct {
	documentService *app.DocumentService
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Extract accepts a multipart form with "document" (PDF or DOCX) and
// "session_id", and returns the extracted image paths in order.
func (h *DocumentHandler) Extract(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessionID := c.PostForm("session_id")

	file, err := c.FormFile("document")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing document file (form field 'document')")
		return
	}
	if file.Size > maxDocumentSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "document too large (max 50MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to open uploaded document")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read uploaded document")
		return
	}

	result, err := h.documentService.Extract(c.Request.Context(), app.ExtractInput{
		UserID:    userID,
		SessionID: sessionID,
		Data:      data,
		Filename:  file.Filename,
	})
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "document extraction failed: "+err.Error())
		}
		return
	}

	response.OK(c, result)
}
