package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"conti/internal/app"
	"conti/internal/app/setlists"
	"conti/internal/app/songs"
	"conti/internal/auth"
	"conti/internal/store"
	"conti/shared/go/logging"
	"conti/shared/go/middleware"
	"conti/shared/go/models"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// SetlistService coordinates setlist composition.
type SetlistService interface {
	List(ctx context.Context) ([]models.Setlist, error)
	Get(ctx context.Context, id string) (*models.SetlistWithSongs, error)
	Create(ctx context.Context, caller auth.Caller, in setlists.CreateInput) (*models.Setlist, error)
	ReplaceComposition(ctx context.Context, caller auth.Caller, id string, in setlists.ReplaceInput) (*models.SetlistWithSongs, error)
	PatchSongOverride(ctx context.Context, caller auth.Caller, setlistID, setlistSongID string, link *string) error
	Delete(ctx context.Context, caller auth.Caller, id string) error
}

// SongService exposes the sheet-music catalogue.
type SongService interface {
	List(ctx context.Context, q string) ([]models.Song, error)
	Get(ctx context.Context, id string) (*models.Song, error)
	Create(ctx context.Context, caller auth.Caller, in songs.Input) (*models.Song, error)
	Update(ctx context.Context, caller auth.Caller, id string, in songs.Input) (*models.Song, error)
	Delete(ctx context.Context, caller auth.Caller, id string) error
}

// ProfileService resolves team profiles.
type ProfileService interface {
	Me(ctx context.Context, caller auth.Caller) (*models.UserProfile, error)
}

// Pinger reports database reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	setlists SetlistService
	songs    SongService
	profiles ProfileService
	db       Pinger
}

// New configures a Server. A nil db makes /health report ok unconditionally.
func New(setlists SetlistService, songs SongService, profiles ProfileService, db Pinger) *Server {
	return &Server{
		setlists: setlists,
		songs:    songs,
		profiles: profiles,
		db:       db,
	}
}

// Routes exposes the HTTP handlers. Request metrics are recorded per route
// pattern.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", middleware.MetricsHandler())

	// Setlist routes
	mux.HandleFunc("GET /api/v1/setlists", s.handleListSetlists)
	mux.HandleFunc("POST /api/v1/setlists", s.handleCreateSetlist)
	mux.HandleFunc("GET /api/v1/setlists/{id}", s.handleGetSetlist)
	mux.HandleFunc("PUT /api/v1/setlists/{id}", s.handleReplaceSetlist)
	mux.HandleFunc("DELETE /api/v1/setlists/{id}", s.handleDeleteSetlist)
	mux.HandleFunc("PATCH /api/v1/setlists/{id}/songs/{songId}", s.handlePatchSetlistSong)

	// Song routes
	mux.HandleFunc("GET /api/v1/songs", s.handleListSongs)
	mux.HandleFunc("POST /api/v1/songs", s.handleCreateSong)
	mux.HandleFunc("GET /api/v1/songs/{id}", s.handleGetSong)
	mux.HandleFunc("PUT /api/v1/songs/{id}", s.handleUpdateSong)
	mux.HandleFunc("DELETE /api/v1/songs/{id}", s.handleDeleteSong)

	mux.HandleFunc("GET /api/v1/me", s.handleMe)

	return middleware.Metrics()(mux)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health check: database unreachable")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.Me(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func callerFrom(r *http.Request) auth.Caller {
	caller, _ := auth.CallerFrom(r.Context())
	return caller
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return app.Validationf("request body is required")
		}
		return app.Validationf("invalid JSON payload: %v", err)
	}
	return nil
}

// writeError maps domain and store errors to status codes. Database
// diagnostics are passed through as details and hint.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}

	var dbErr *store.DBError
	if errors.As(err, &dbErr) {
		resp.Error = dbErr.Message
		resp.Details = dbErr.Detail
		resp.Hint = dbErr.Hint
	}

	var status int
	switch {
	case errors.Is(err, app.ErrValidation), errors.Is(err, app.ErrInvalidIdentifier):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrSchemaMismatch):
		status = http.StatusBadRequest
		if resp.Hint == "" {
			resp.Hint = "apply the latest migrations"
		}
	case errors.Is(err, app.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case dbErr != nil:
		status = http.StatusInternalServerError
	default:
		status = http.StatusInternalServerError
		resp = errorResponse{Error: "internal server error"}
	}

	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Debug().Err(fmt.Errorf("encode response: %w", err)).Msg("write response")
		}
	}
}
