package httpapi

import (
	"net/http"

	"conti/internal/app/songs"
)

type songRequest struct {
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Key           string  `json:"key"`
	ImageURL      string  `json:"image_url"`
	StoragePath   *string `json:"storage_path"`
	SongForm      *string `json:"song_form"`
	BPM           *int    `json:"bpm"`
	TimeSignature *string `json:"time_signature"`
	Description   *string `json:"description"`
	YouTubeURL    *string `json:"youtube_url"`
}

func (req songRequest) input() songs.Input {
	return songs.Input{
		Title:         req.Title,
		Artist:        req.Artist,
		Key:           req.Key,
		ImageURL:      req.ImageURL,
		StoragePath:   req.StoragePath,
		SongForm:      req.SongForm,
		BPM:           req.BPM,
		TimeSignature: req.TimeSignature,
		Description:   req.Description,
		YouTubeURL:    req.YouTubeURL,
	}
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	list, err := s.songs.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.songs.Create(r.Context(), callerFrom(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	song, err := s.songs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.songs.Update(r.Context(), callerFrom(r), r.PathValue("id"), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	if err := s.songs.Delete(r.Context(), callerFrom(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
