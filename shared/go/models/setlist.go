package models

import "time"

// SetlistSong is one position in a setlist's ordered song list.
type SetlistSong struct {
	ID         string  `json:"id" db:"id"`
	SetlistID  string  `json:"setlist_id" db:"setlist_id"`
	SongID     string  `json:"song_id" db:"song_id"`
	SongOrder  int     `json:"song_order" db:"song_order"`
	YouTubeURL *string `json:"youtube_url" db:"youtube_url"` // per-entry override of Song.YouTubeURL
	VideoID    string  `json:"video_id,omitempty"`
	EmbedURL   string  `json:"embed_url,omitempty"`

	// Populated via JOIN on songs (not stored in setlist_songs)
	Song *Song `json:"song,omitempty"`
}

// Setlist is a named, dated collection of songs for one service.
type Setlist struct {
	ID          string    `json:"id" db:"id"`
	Date        string    `json:"date" db:"date"` // YYYY-MM-DD
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	AuthorID    string    `json:"author_id,omitempty" db:"author_id"`
	AuthorEmail string    `json:"author_email,omitempty" db:"author_email"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SetlistWithSongs is a setlist together with its songs sorted by song_order.
type SetlistWithSongs struct {
	Setlist
	Songs []SetlistSong `json:"songs"`
}

// SongRef is one entry of a client-submitted composition. Its position in the
// submitted slice determines song_order.
type SongRef struct {
	SongID     string  `json:"song_id"`
	YouTubeURL *string `json:"youtube_url,omitempty"`
}
