package songs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"conti/internal/app"
	"conti/internal/auth"
	"conti/internal/blob"
	"conti/internal/store"
	"conti/internal/video"
	"conti/shared/go/models"
)

// Store captures the persistence needs for the song catalogue.
type Store interface {
	ListSongs(ctx context.Context, q string) ([]models.Song, error)
	GetSong(ctx context.Context, id string) (*models.Song, error)
	InsertSong(ctx context.Context, fields store.SongFields) (*models.Song, error)
	UpdateSong(ctx context.Context, id string, fields store.SongFields) (*models.Song, error)
	DeleteSong(ctx context.Context, id string) error
}

// Input is the editable part of a song. Nil optional fields are left out of
// the write; non-nil empty values clear the column.
type Input struct {
	Title         string
	Artist        string
	Key           string
	ImageURL      string
	StoragePath   *string
	SongForm      *string
	BPM           *int
	TimeSignature *string
	Description   *string
	YouTubeURL    *string
}

// Service exposes song catalogue operations.
type Service interface {
	List(ctx context.Context, q string) ([]models.Song, error)
	Get(ctx context.Context, id string) (*models.Song, error)
	Create(ctx context.Context, caller auth.Caller, in Input) (*models.Song, error)
	Update(ctx context.Context, caller auth.Caller, id string, in Input) (*models.Song, error)
	Delete(ctx context.Context, caller auth.Caller, id string) error
}

type service struct {
	store  Store
	sheets blob.Remover
	bucket string
}

// New constructs a Service. Sheet images are removed through sheets, whose
// bucket name is used to recover keys from legacy image URLs.
func New(store Store, sheets blob.Remover, bucket string) Service {
	if sheets == nil {
		sheets = blob.Noop{}
	}
	if bucket == "" {
		bucket = blob.DefaultBucket
	}
	return &service{store: store, sheets: sheets, bucket: bucket}
}

func (in Input) optional() map[string]interface{} {
	fields := map[string]interface{}{}
	setText := func(column string, v *string) {
		if v == nil {
			return
		}
		if trimmed := strings.TrimSpace(*v); trimmed != "" {
			fields[column] = trimmed
		} else {
			fields[column] = nil
		}
	}
	setText("storage_path", in.StoragePath)
	setText("song_form", in.SongForm)
	setText("time_signature", in.TimeSignature)
	setText("description", in.Description)
	setText("youtube_url", in.YouTubeURL)
	if in.BPM != nil {
		if *in.BPM > 0 {
			fields["bpm"] = *in.BPM
		} else {
			fields["bpm"] = nil
		}
	}
	return fields
}

func (in *Input) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.Key = strings.TrimSpace(in.Key)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

func decorate(song *models.Song) *models.Song {
	if song != nil {
		song.VideoID = video.ID(song.YouTubeURL)
		song.EmbedURL = video.EmbedURL(song.YouTubeURL)
	}
	return song
}

func (s *service) List(ctx context.Context, q string) ([]models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	songs, err := s.store.ListSongs(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range songs {
		decorate(&songs[i])
	}
	return songs, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := app.ValidID("song id", id); err != nil {
		return nil, err
	}
	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return nil, err
	}
	return decorate(song), nil
}

func (s *service) Create(ctx context.Context, caller auth.Caller, in Input) (*models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if caller.ID == "" {
		return nil, app.ErrUnauthenticated
	}
	in.trim()
	if in.Title == "" || in.Artist == "" || in.Key == "" || in.ImageURL == "" {
		return nil, app.Validationf("title, artist, key and image_url are required")
	}

	fields := store.SongFields{
		Title:    in.Title,
		Artist:   in.Artist,
		Key:      in.Key,
		ImageURL: in.ImageURL,
		Optional: in.optional(),
	}
	fields.Optional["author_id"] = caller.ID
	fields.Optional["author_email"] = nullIfEmpty(caller.Email)

	song, err := s.writeWithFallback(ctx, "create", fields, func(f store.SongFields) (*models.Song, error) {
		return s.store.InsertSong(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return decorate(song), nil
}

func (s *service) Update(ctx context.Context, caller auth.Caller, id string, in Input) (*models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := app.ValidID("song id", id); err != nil {
		return nil, err
	}
	if caller.ID == "" {
		return nil, app.ErrUnauthenticated
	}
	in.trim()
	if in.Title == "" || in.Artist == "" || in.Key == "" {
		return nil, app.Validationf("title, artist and key are required")
	}

	fields := store.SongFields{
		Title:    in.Title,
		Artist:   in.Artist,
		Key:      in.Key,
		ImageURL: in.ImageURL,
		Optional: in.optional(),
	}
	song, err := s.writeWithFallback(ctx, "update", fields, func(f store.SongFields) (*models.Song, error) {
		return s.store.UpdateSong(ctx, id, f)
	})
	if err != nil {
		return nil, err
	}
	return decorate(song), nil
}

// writeWithFallback runs write once with every optional column and, if the
// database rejects one of them as undefined, once more with the baseline
// columns only.
func (s *service) writeWithFallback(ctx context.Context, op string, fields store.SongFields, write func(store.SongFields) (*models.Song, error)) (*models.Song, error) {
	song, err := write(fields)
	if err == nil || !errors.Is(err, store.ErrSchemaMismatch) || len(fields.Optional) == 0 {
		return song, err
	}

	dropped := make([]string, 0, len(fields.Optional))
	for column := range fields.Optional {
		dropped = append(dropped, column)
	}
	sort.Strings(dropped)
	app.SchemaFallbacks.WithLabelValues(store.TableSongs).Inc()
	log.Warn().
		Err(err).
		Str("op", op).
		Strs("dropped_columns", dropped).
		Msg("retrying song write with baseline columns")

	fields.Optional = nil
	return write(fields)
}

func (s *service) Delete(ctx context.Context, caller auth.Caller, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := app.ValidID("song id", id); err != nil {
		return err
	}
	if caller.ID == "" {
		return app.ErrUnauthenticated
	}

	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return err
	}
	if song.AuthorID != "" && song.AuthorID != caller.ID {
		return fmt.Errorf("song %s belongs to another author: %w", id, app.ErrForbidden)
	}

	if err := s.store.DeleteSong(ctx, id); err != nil {
		return err
	}

	// The row is gone; a leftover image is only logged.
	key := song.StoragePath
	if key == "" {
		key = blob.KeyFromImageURL(song.ImageURL, s.bucket)
	}
	if key != "" {
		if err := s.sheets.Remove(ctx, key); err != nil {
			log.Warn().Err(err).Str("song_id", id).Str("key", key).Msg("sheet image removal failed")
		}
	}
	return nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
