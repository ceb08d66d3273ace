package httpapi

import (
	"net/http"

	"conti/internal/app/setlists"
	"conti/shared/go/models"
)

type createSetlistRequest struct {
	Date        string           `json:"date"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Songs       []models.SongRef `json:"songs"`
}

// replaceSetlistRequest leaves Songs nil when the field is absent, which
// keeps the current composition.
type replaceSetlistRequest struct {
	Description *string           `json:"description"`
	Songs       *[]models.SongRef `json:"songs"`
}

type patchSetlistSongRequest struct {
	YouTubeURL *string `json:"youtube_url"`
}

func (s *Server) handleListSetlists(w http.ResponseWriter, r *http.Request) {
	list, err := s.setlists.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSetlist(w http.ResponseWriter, r *http.Request) {
	var req createSetlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.setlists.Create(r.Context(), callerFrom(r), setlists.CreateInput{
		Date:        req.Date,
		Name:        req.Name,
		Description: req.Description,
		Songs:       req.Songs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSetlist(w http.ResponseWriter, r *http.Request) {
	view, err := s.setlists.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReplaceSetlist(w http.ResponseWriter, r *http.Request) {
	var req replaceSetlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in := setlists.ReplaceInput{Description: req.Description}
	if req.Songs != nil {
		in.ReplaceSongs = true
		in.Songs = *req.Songs
	}

	view, err := s.setlists.ReplaceComposition(r.Context(), callerFrom(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSetlist(w http.ResponseWriter, r *http.Request) {
	if err := s.setlists.Delete(r.Context(), callerFrom(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handlePatchSetlistSong(w http.ResponseWriter, r *http.Request) {
	var req patchSetlistSongRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.setlists.PatchSongOverride(r.Context(), callerFrom(r), r.PathValue("id"), r.PathValue("songId"), req.YouTubeURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
