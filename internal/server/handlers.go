package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"stemlab/internal/accounts"
	"stemlab/internal/api"
	"stemlab/internal/library"
	"stemlab/internal/logging"
	"stemlab/internal/services"
	"stemlab/internal/verification"
)

// maxMultipartMemory bounds how much of an upload is buffered in memory
// before spilling to disk.
const maxMultipartMemory = 32 << 20

func (s *Server) handleSeparate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "Upload must include a file.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Upload must include a file.")
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		s.writeError(w, http.StatusBadRequest, "Upload must include a filename.")
		return
	}

	result, err := s.separation.Process(r.Context(), header.Filename, file, r.FormValue("model"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SeparateResponse{Model: result.Model, Stems: result.Stems})
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req api.RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		s.writeError(w, http.StatusBadRequest, "Email is required.")
		return
	}

	code, err := s.codes.Issue(email)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.mailer.SendVerificationCode(email, code)
	s.writeJSON(w, http.StatusOK, api.OKResponse{OK: true})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	email := strings.TrimSpace(req.Email)
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" || (req.Password == "" && req.PasswordHash == "") {
		s.writeError(w, http.StatusBadRequest, "Email, code, and password are required.")
		return
	}

	if _, err := s.codes.Redeem(email, code); err != nil {
		s.writeError(w, services.HTTPStatus(err), verificationDetail(err))
		return
	}

	hash := req.PasswordHash
	if hash == "" {
		hash = accounts.HashPassword(req.Password)
	}
	record, err := s.accounts.Record(email, strings.TrimSpace(req.Name), hash)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.logger.Info("account verified", logging.String("email", accounts.NormalizeEmail(email)))
	s.writeJSON(w, http.StatusOK, api.AccountSummary{
		Email:     record.Email,
		Name:      record.Name,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	})
}

func (s *Server) handleLibraryList(w http.ResponseWriter, r *http.Request) {
	items, err := s.library.List()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out := make([]api.SessionMetadata, 0, len(items))
	for _, item := range items {
		out = append(out, sessionMetadata(item))
	}
	s.writeJSON(w, http.StatusOK, api.LibraryListResponse{Items: out})
}

func (s *Server) handleLibrarySave(w http.ResponseWriter, r *http.Request) {
	var req api.SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if len(req.Stems) == 0 {
		s.writeError(w, http.StatusBadRequest, "Payload must include stems")
		return
	}

	meta, err := s.library.Create(req.Title, req.Stems)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionMetadata(meta))
}

func (s *Server) handleLibraryGet(w http.ResponseWriter, r *http.Request) {
	session, err := s.library.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Session not found.")
			return
		}
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionDetail{
		ID:        session.ID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		Bundle:    session.Bundle,
		Stems:     session.Stems,
	})
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	path, err := s.library.BundlePath(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Bundle not found")
			return
		}
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.zip"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// verificationDetail maps redemption failures to their client-facing
// sentences.
func verificationDetail(err error) string {
	switch {
	case errors.Is(err, verification.ErrNoCode):
		return "No verification code requested for this email."
	case errors.Is(err, verification.ErrExpired):
		return "Verification code has expired."
	case errors.Is(err, verification.ErrMismatch):
		return "Invalid verification code."
	default:
		return services.Detail(err)
	}
}

func sessionMetadata(meta library.Metadata) api.SessionMetadata {
	return api.SessionMetadata{
		ID:        meta.ID,
		Title:     meta.Title,
		Stems:     meta.Stems,
		CreatedAt: meta.CreatedAt,
		Bundle:    meta.Bundle,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, api.ErrorResponse{Detail: detail})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err))
	}
	s.writeError(w, status, services.Detail(err))
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(recorder, r)
		s.logger.Info("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", recorder.status),
			logging.Duration("elapsed", time.Since(started)))
	})
}
