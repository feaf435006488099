// Package api exposes the HTTP surface: uploads, document views, comments,
// exports and share-link downloads.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dparedesr/docshare/internal/comments"
	"github.com/dparedesr/docshare/internal/config"
	"github.com/dparedesr/docshare/internal/export"
	"github.com/dparedesr/docshare/internal/model"
	"github.com/dparedesr/docshare/internal/render"
	"github.com/dparedesr/docshare/internal/repository"
	"github.com/dparedesr/docshare/internal/signing"
	"github.com/dparedesr/docshare/internal/upload"
	"github.com/dparedesr/docshare/internal/validate"
)

// Server hosts the HTTP handlers. Dependencies arrive as the narrow
// interfaces the render package defines, so tests can run without Postgres or
// MinIO.
type Server struct {
	cfg      *config.Config
	uploader *upload.Orchestrator
	comments *comments.Service
	pipeline *render.Pipeline
	records  render.RecordSource
	blobs    render.BlobSource
	signer   *signing.Signer
	server   *http.Server
	once     sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, uploader *upload.Orchestrator, commentsSvc *comments.Service, pipeline *render.Pipeline, records render.RecordSource, blobs render.BlobSource, signer *signing.Signer) *Server {
	return &Server{
		cfg:      cfg,
		uploader: uploader,
		comments: commentsSvc,
		pipeline: pipeline,
		records:  records,
		blobs:    blobs,
		signer:   signer,
	}
}

// Routes builds the router. Exposed separately from Run so tests can mount it
// on httptest servers.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware, loggingMiddleware, metricsMiddleware)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/comments", s.handleListComments)
		r.Post("/comments", s.handleCreateComment)
		r.Route("/files/{id}", func(r chi.Router) {
			r.Get("/", s.handleFileInfo)
			r.Get("/view", s.handleView)
			r.Get("/export", s.handleExport)
		})
	})
	r.Get("/d/{id}", s.handleDownload)
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Routes(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadRequest struct {
	File     string `json:"file"`
	FileName string `json:"fileName"`
}

type uploadResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	ShareURL  string    `json:"share_url"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// The base64 body inflates the file by ~4/3, plus some JSON overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize*2+4096)
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FileName == "" {
		respondError(w, http.StatusBadRequest, "fileName is required")
		return
	}
	data, err := decodeDataURL(req.File)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid file encoding")
		return
	}
	rec, err := s.uploader.Upload(r.Context(), data, req.FileName, nil)
	switch {
	case err == nil:
	case errors.Is(err, validate.ErrFileTooLarge):
		respondError(w, http.StatusBadRequest, "file exceeds the 5MB limit")
		return
	case errors.Is(err, validate.ErrUnsupportedType):
		respondError(w, http.StatusBadRequest, "only PDF and DOC files are supported")
		return
	default:
		log.Printf("upload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	respondJSON(w, http.StatusOK, uploadResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		URL:       rec.ObjectKey,
		CreatedAt: rec.CreatedAt,
		ShareURL:  s.shareURL(rec.ID),
	})
}

func (s *Server) shareURL(fileID string) string {
	return fmt.Sprintf("%s/d/%s?sig=%s", strings.TrimSuffix(s.cfg.PublicBaseURL, "/"), fileID, s.signer.Token(fileID))
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		respondError(w, http.StatusBadRequest, "fileId is required")
		return
	}
	list, err := s.comments.Load(r.Context(), fileID)
	if err != nil {
		log.Printf("load comments: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load comments")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

type createCommentRequest struct {
	FileID     string   `json:"fileId"`
	UserName   string   `json:"userName"`
	Content    string   `json:"content"`
	PageNumber *int     `json:"pageNumber,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var pos *model.CommentPosition
	if req.PageNumber != nil && req.X != nil && req.Y != nil {
		pos = &model.CommentPosition{Page: *req.PageNumber, X: *req.X, Y: *req.Y}
	}
	c, err := s.comments.Append(r.Context(), req.FileID, req.UserName, req.Content, pos)
	switch {
	case err == nil:
	case errors.Is(err, comments.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	default:
		log.Printf("append comment: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save comment")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		log.Printf("fetch file: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load file")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := s.pipeline.Show(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
	case errors.Is(err, render.ErrNotFound):
		respondError(w, http.StatusNotFound, "file not found")
		return
	case errors.Is(err, validate.ErrUnsupportedType):
		respondError(w, http.StatusUnsupportedMediaType, "no viewer for this file type")
		return
	default:
		log.Printf("render view: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := s.records.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		log.Printf("fetch file: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load file")
		return
	}
	fileBytes, err := s.blobs.Get(ctx, rec.ObjectKey)
	if err != nil {
		log.Printf("fetch blob: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	thread, err := s.comments.Load(ctx, rec.ID)
	if err != nil {
		log.Printf("load comments: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load comments")
		return
	}
	archive, err := export.Archive(rec, fileBytes, thread)
	if err != nil {
		// Nothing has been written yet, so the client gets a clean error
		// instead of a truncated download.
		log.Printf("build archive: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to build archive")
		return
	}
	// Trim the extension by position rather than by value; Extension()
	// lowercases, so a name like "Report.PDF" would survive a TrimSuffix.
	base := rec.Name
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	name := validate.SanitizeName(base)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"-export.zip"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive); err != nil {
		log.Printf("write archive: %v", err)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sig := r.URL.Query().Get("sig")
	if sig == "" || !s.signer.Verify(id, sig) {
		respondError(w, http.StatusUnauthorized, "invalid share link")
		return
	}
	rec, err := s.records.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		log.Printf("fetch file: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load file")
		return
	}
	url, err := s.blobs.PresignGetURL(r.Context(), rec.ObjectKey, rec.Name, s.cfg.SignedURLTTL)
	if err != nil {
		log.Printf("presign download: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to resolve download")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// decodeDataURL accepts either a full data URL ("data:<mime>;base64,<data>")
// or bare base64.
func decodeDataURL(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty file payload")
	}
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, errors.New("malformed data url")
		}
		meta := s[len("data:"):idx]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, errors.New("data url must be base64 encoded")
		}
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
