package models

import "time"

// Song is a sheet-music entry.
type Song struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Artist        string    `json:"artist" db:"artist"`
	Key           string    `json:"key" db:"key"`
	ImageURL      string    `json:"image_url" db:"image_url"`
	StoragePath   string    `json:"storage_path,omitempty" db:"storage_path"`
	SongForm      string    `json:"song_form,omitempty" db:"song_form"` // e.g. I - V - C - B - C
	BPM           *int      `json:"bpm,omitempty" db:"bpm"`
	TimeSignature string    `json:"time_signature,omitempty" db:"time_signature"` // e.g. 4/4, 6/8
	Description   string    `json:"description,omitempty" db:"description"`
	YouTubeURL    string    `json:"youtube_url,omitempty" db:"youtube_url"`
	VideoID       string    `json:"video_id,omitempty"`
	EmbedURL      string    `json:"embed_url,omitempty"`
	AuthorID      string    `json:"author_id,omitempty" db:"author_id"`
	AuthorEmail   string    `json:"author_email,omitempty" db:"author_email"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
