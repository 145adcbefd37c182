package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/appeal-cli/internal/appeal"
)

// multipartOverhead is room for form fields and boundaries on top of the
// file size limit.
const multipartOverhead = 1 << 20

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be multipart/form-data.")
		return
	}

	limit := s.wf.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("PDF exceeds %dMB limit.", limit/(1<<20)))
			return
		}
		writeError(w, http.StatusBadRequest, "Missing PDF file payload.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing PDF file payload.")
		return
	}
	defer file.Close() //nolint:errcheck

	userID := r.FormValue("userId")
	if !isUUID(userID) {
		writeError(w, http.StatusBadRequest, "Valid userId is required in form data.")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing PDF file payload.")
		return
	}

	// Generic clients send octet-stream for any file; leave the type unset.
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}

	res, err := s.wf.Upload(r.Context(), appeal.UploadInput{
		UserID:      userID,
		FileName:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type parseRequest struct {
	Path             string `json:"path"`
	DocumentGroupID  string `json:"documentGroupId"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
	Model            string `json:"model"`
	OpenAIModel      string `json:"openaiModel"`
}

func (s *Server) parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	// A malformed body is treated as empty and fails validation below.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "storage path is required.")
		return
	}
	if !isUUID(req.DocumentGroupID) {
		writeError(w, http.StatusBadRequest, "documentGroupId is required for parsing.")
		return
	}

	res, err := s.wf.Parse(r.Context(), appeal.ParseInput{
		Path:             req.Path,
		DocumentGroupID:  req.DocumentGroupID,
		ExpiresInSeconds: req.ExpiresInSeconds,
		Model:            modelOf(req.Model, req.OpenAIModel),
	})
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type letterRequest struct {
	DocumentGroupID string `json:"documentGroupId"`
	Model           string `json:"model"`
	OpenAIModel     string `json:"openaiModel"`
}

func (s *Server) letters(w http.ResponseWriter, r *http.Request) {
	var req letterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON.")
		return
	}
	if !isUUID(req.DocumentGroupID) {
		writeError(w, http.StatusBadRequest, "documentGroupId is required and must be a UUID.")
		return
	}

	res, err := s.wf.GenerateLetter(r.Context(), appeal.LetterInput{
		DocumentGroupID: req.DocumentGroupID,
		Model:           modelOf(req.Model, req.OpenAIModel),
	})
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// modelOf prefers the provider-neutral "model" field over the legacy
// "openaiModel" one.
func modelOf(m, legacy string) string {
	if m != "" {
		return m
	}
	return legacy
}

func (s *Server) valuation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	useCache := q.Get("cache") != "false" && q.Get("cache") != "0"

	v, err := s.wf.Valuation(r.Context(), q.Get("address"), useCache)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valuation": v})
}

func (s *Server) documents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !isUUID(id) {
		writeError(w, http.StatusBadRequest, "documentGroupId must be a UUID.")
		return
	}
	docs, err := s.wf.Documents(r.Context(), id)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documentGroupId": id, "documents": docs})
}
