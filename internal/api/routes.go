package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/gifforge/internal/acquire"
	"github.com/heimdex/gifforge/internal/export"
	"github.com/heimdex/gifforge/internal/faults"
	"github.com/heimdex/gifforge/internal/jobs"
)

const (
	maxJSONBody      = 1 << 20
	multipartMemory  = 32 << 20
	maxSourceNameLen = 200
	defaultJobsLimit = 50
	maxJobsLimit     = 500
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.CORSOrigins))

	r.Get("/health", healthHandler(cfg))
	r.Get("/jobs", listJobsHandler(cfg))
	r.Get("/jobs/{id}", getJobHandler(cfg))
	r.Get("/download/{job_id}/{gif_index}", downloadHandler(cfg))
	r.Handle("/static/gifs/*", staticGifsHandler(cfg))

	r.With(BodyLimit(maxJSONBody)).Post("/process-youtube", processURLHandler(cfg))
	r.With(BodyLimit(cfg.MaxUploadBytes)).Post("/process-upload", processUploadHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		}
		if cfg.Runner != nil {
			resp.ActiveJobs = cfg.Runner.ActiveJobs()
			resp.QueuedJobs = cfg.Runner.QueuedJobs()
		}
		if cfg.Doctor != nil {
			if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
				cfg.Doctor.Invalidate()
			}
			report, err := cfg.Doctor.Get(r.Context())
			if err == nil && report != nil {
				resp.Tools = report.Tools
				if !report.Ready() {
					resp.Status = "degraded"
					resp.Missing = report.Missing()
				}
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func processURLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProcessURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			WriteError(w, http.StatusBadRequest, "url is required", "BAD_REQUEST")
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			WriteError(w, http.StatusBadRequest, "prompt is required", "BAD_REQUEST")
			return
		}
		if err := acquire.ValidateURL(req.URL); err != nil {
			WriteFault(w, cfg.Logger, r, err)
			return
		}

		kind := jobs.SourceURL
		if req.IsDirectMP4 {
			kind = jobs.SourceDirect
		}
		submit(cfg, w, r, jobs.NewJob(kind, req.URL, req.Prompt))
	}
}

func processUploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), "PAYLOAD_TOO_LARGE")
				return
			}
			WriteError(w, http.StatusBadRequest, "invalid multipart form", "BAD_REQUEST")
			return
		}
		defer r.MultipartForm.RemoveAll()

		prompt := r.FormValue("prompt")
		if strings.TrimSpace(prompt) == "" {
			WriteError(w, http.StatusBadRequest, "prompt is required", "BAD_REQUEST")
			return
		}
		file, header, err := r.FormFile("video")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "video file is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		if !isVideoType(header.Header.Get("Content-Type")) {
			WriteFault(w, cfg.Logger, r, faults.Wrap(faults.ErrContent, "upload", "validate", "file must be a video", nil))
			return
		}

		job := jobs.NewJob(jobs.SourceUpload, export.SanitizeName(header.Filename, maxSourceNameLen), prompt)
		if _, err := cfg.Storage.SaveInput(job.ID, file); err != nil {
			cfg.Storage.DiscardInput(job.ID)
			WriteFault(w, cfg.Logger, r, err)
			return
		}
		if !submit(cfg, w, r, job) {
			cfg.Storage.DiscardInput(job.ID)
		}
	}
}

func isVideoType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "video/")
}

// submit queues job and writes the response. It reports whether the job
// was accepted by the runner.
func submit(cfg ServerConfig, w http.ResponseWriter, r *http.Request, job *jobs.Job) bool {
	ticket, err := cfg.Runner.Submit(r.Context(), job)
	if err != nil {
		WriteFault(w, cfg.Logger, r, err)
		return false
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		WriteJSON(w, http.StatusAccepted, AcceptedResponse{
			Status:    "accepted",
			JobID:     job.ID,
			StatusURL: "/jobs/" + job.ID,
		})
		return true
	}

	select {
	case <-ticket.Done():
	case <-r.Context().Done():
		cfg.Logger.Info("client went away before job finished", "job_id", job.ID)
		return true
	}

	clips, err := ticket.Result()
	if err != nil {
		WriteFault(w, cfg.Logger, r, err)
		return true
	}
	WriteJSON(w, http.StatusOK, NewProcessResponse(job.ID, clips))
	return true
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultJobsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxJobsLimit {
				WriteError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxJobsLimit), "BAD_REQUEST")
				return
			}
			limit = n
		}

		list, err := cfg.Repository.ListJobs(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(list))}
		for i, j := range list {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !jobs.ValidID(id) {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		job, err := cfg.Repository.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			// The registry may be in memory; finished outputs outlive it.
			if m, err := export.ReadManifest(cfg.Storage.OutputDir(id)); err == nil {
				WriteJSON(w, http.StatusOK, ManifestToResponse(m))
				return
			}
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func downloadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "job_id")
		index, err := strconv.Atoi(chi.URLParam(r, "gif_index"))
		if !jobs.ValidID(jobID) || err != nil || index < 0 {
			WriteError(w, http.StatusNotFound, "GIF not found", "NOT_FOUND")
			return
		}

		f, err := os.Open(cfg.Storage.OutputPath(jobID, index))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				cfg.Logger.Error("open gif failed", "job_id", jobID, "error", err)
			}
			WriteError(w, http.StatusNotFound, "GIF not found", "NOT_FOUND")
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			WriteError(w, http.StatusNotFound, "GIF not found", "NOT_FOUND")
			return
		}

		prompt := ""
		if job, err := cfg.Repository.GetJob(r.Context(), jobID); err == nil && job != nil {
			prompt = job.Prompt
		}
		name := export.DownloadName(prompt, index)

		w.Header().Set("Content-Type", "image/gif")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

// staticGifsHandler serves generated files; directory listings are hidden.
func staticGifsHandler(cfg ServerConfig) http.Handler {
	files := http.StripPrefix("/static/gifs/", http.FileServer(http.Dir(cfg.Storage.GifsRoot())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") || strings.HasSuffix(r.URL.Path, "/"+export.ManifestFile) {
			WriteError(w, http.StatusNotFound, "not found", "NOT_FOUND")
			return
		}
		files.ServeHTTP(w, r)
	})
}
