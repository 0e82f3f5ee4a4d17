package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/recipient-engine/internal/upload"
)

// PreviewSheetRequest is the JSON request body for sheet preview. Multipart
// uploads carry the same fields as form values, with the sheet itself in a
// "file" field instead of "file_data".
type PreviewSheetRequest struct {
	Filename          string   `json:"filename,omitempty"`
	FileData          string   `json:"file_data"`
	TemplateType      string   `json:"template_type"`
	Subject           string   `json:"subject,omitempty"`
	Content           string   `json:"content"`
	Guestlist         []string `json:"guestlist,omitempty"`
	RemainingMessages int      `json:"remaining_messages,omitempty"`
}

// PreviewSheet ingests an uploaded sheet and returns the review summary.
// POST /api/sheets/preview
// Accepts: multipart/form-data with a "file" field OR application/json
func (h *Handlers) PreviewSheet(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parsePreviewRequest(w, r)
	if !ok {
		return
	}

	session, summary, err := h.uploads.Ingest(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrEmptyFile):
			respondError(w, http.StatusBadRequest, "file is empty")
		case errors.Is(err, upload.ErrFileTooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, upload.ErrUnknownTemplateType):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to ingest sheet")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"summary": summary,
	})
}

// parsePreviewRequest reads either encoding of the preview request. It
// writes the error response itself and reports ok=false when the request
// is unusable.
func (h *Handlers) parsePreviewRequest(w http.ResponseWriter, r *http.Request) (upload.IngestRequest, bool) {
	var req upload.IngestRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var body PreviewSheetRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return req, false
		}
		if body.FileData == "" {
			respondError(w, http.StatusBadRequest, "file_data is required")
			return req, false
		}
		return upload.IngestRequest{
			Filename:          body.Filename,
			FileData:          body.FileData,
			TemplateType:      body.TemplateType,
			Subject:           body.Subject,
			Content:           body.Content,
			Guestlist:         body.Guestlist,
			RemainingMessages: body.RemainingMessages,
		}, true
	}

	// Multipart form
	maxBytes := h.config.Upload.MaxFileBytes
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return req, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return req, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return req, false
	}

	req = upload.IngestRequest{
		Filename:     header.Filename,
		FileData:     string(data),
		TemplateType: r.FormValue("template_type"),
		Subject:      r.FormValue("subject"),
		Content:      r.FormValue("content"),
	}
	if v := r.FormValue("remaining_messages"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.RemainingMessages = n
		}
	}
	if form := r.MultipartForm; form != nil {
		req.Guestlist = form.Value["guestlist"]
	}
	return req, true
}

// GetSheetSummary returns the stored review summary for a session.
// GET /api/sheets/{sessionID}
func (h *Handlers) GetSheetSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.uploads.GetSummary(r.Context(), sessionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetSheetStatus returns the session record itself.
// GET /api/sheets/{sessionID}/status
func (h *Handlers) GetSheetStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.uploads.GetSession(r.Context(), sessionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, upload.ErrSessionExpired):
		respondError(w, http.StatusGone, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "failed to load session")
	}
}
