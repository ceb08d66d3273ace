// Package setlists composes dated setlists out of catalogue songs and keeps
// each setlist's song_order dense and equal to submission order.
package setlists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"conti/internal/app"
	"conti/internal/auth"
	"conti/internal/store"
	"conti/internal/video"
	"conti/shared/go/models"
)

// Store captures the persistence needs for setlist workflows.
type Store interface {
	ListSetlists(ctx context.Context) ([]models.Setlist, error)
	GetSetlist(ctx context.Context, id string) (*models.Setlist, error)
	GetSetlistWithSongs(ctx context.Context, id string) (*models.SetlistWithSongs, error)
	CreateSetlist(ctx context.Context, setlist models.Setlist, entries []store.SetlistSongEntry) (*models.Setlist, error)
	ReplaceComposition(ctx context.Context, setlistID string, update store.CompositionUpdate) error
	UpdateSetlistSongVideo(ctx context.Context, setlistID, setlistSongID string, link *string) error
	DeleteSetlist(ctx context.Context, id string) error
}

// Profiles resolves the team role of a caller.
type Profiles interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Cache holds rendered setlist views. GetSetlist reports the generation it
// looked under; SetSetlist stores under that generation and skips negative
// ones. InvalidateSetlist moves id to a new generation.
type Cache interface {
	GetSetlist(ctx context.Context, id string) (*models.SetlistWithSongs, int64, bool)
	SetSetlist(ctx context.Context, gen int64, view *models.SetlistWithSongs)
	InvalidateSetlist(ctx context.Context, id string)
}

// CreateInput is a new setlist and its songs in play order.
type CreateInput struct {
	Date        string
	Name        string
	Description *string
	Songs       []models.SongRef
}

// ReplaceInput changes a setlist's description and, when ReplaceSongs is
// set, its whole song list. An empty Songs with ReplaceSongs clears the list.
type ReplaceInput struct {
	Description  *string
	ReplaceSongs bool
	Songs        []models.SongRef
}

// Service coordinates setlist composition.
type Service interface {
	List(ctx context.Context) ([]models.Setlist, error)
	Get(ctx context.Context, id string) (*models.SetlistWithSongs, error)
	Create(ctx context.Context, caller auth.Caller, in CreateInput) (*models.Setlist, error)
	ReplaceComposition(ctx context.Context, caller auth.Caller, id string, in ReplaceInput) (*models.SetlistWithSongs, error)
	PatchSongOverride(ctx context.Context, caller auth.Caller, setlistID, setlistSongID string, link *string) error
	Delete(ctx context.Context, caller auth.Caller, id string) error
}

type service struct {
	store    Store
	profiles Profiles
	cache    Cache
}

// New constructs a Service. A nil cache disables view caching.
func New(store Store, profiles Profiles, cache Cache) Service {
	if cache == nil {
		cache = noCache{}
	}
	return &service{store: store, profiles: profiles, cache: cache}
}

// entries numbers refs 1..N in the order given.
func entries(refs []models.SongRef) ([]store.SetlistSongEntry, error) {
	out := make([]store.SetlistSongEntry, 0, len(refs))
	for i, ref := range refs {
		songID := strings.TrimSpace(ref.SongID)
		if songID == "" {
			return nil, app.Validationf("songs[%d].song_id is required", i)
		}
		out = append(out, store.SetlistSongEntry{
			SongID:     songID,
			SongOrder:  i + 1,
			YouTubeURL: normalizeLink(ref.YouTubeURL),
		})
	}
	return out, nil
}

func normalizeLink(link *string) *string {
	if link == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*link)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *service) List(ctx context.Context) ([]models.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListSetlists(ctx)
}

func (s *service) Get(ctx context.Context, id string) (*models.SetlistWithSongs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := app.ValidID("setlist id", id); err != nil {
		return nil, err
	}
	view, gen, ok := s.cache.GetSetlist(ctx, id)
	if ok {
		return view, nil
	}
	view, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetSetlist(ctx, gen, view)
	return view, nil
}

func (s *service) load(ctx context.Context, id string) (*models.SetlistWithSongs, error) {
	view, err := s.store.GetSetlistWithSongs(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range view.Songs {
		entry := &view.Songs[i]
		fallback := ""
		if entry.Song != nil {
			entry.Song.VideoID = video.ID(entry.Song.YouTubeURL)
			entry.Song.EmbedURL = video.EmbedURL(entry.Song.YouTubeURL)
			fallback = entry.Song.YouTubeURL
		}
		link := video.Effective(entry.YouTubeURL, fallback)
		entry.VideoID = video.ID(link)
		entry.EmbedURL = video.EmbedURL(link)
	}
	return view, nil
}

func (s *service) Create(ctx context.Context, caller auth.Caller, in CreateInput) (*models.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if caller.ID == "" {
		return nil, app.ErrUnauthenticated
	}
	if err := s.requireLeader(ctx, caller); err != nil {
		return nil, err
	}

	in.Date = strings.TrimSpace(in.Date)
	in.Name = strings.TrimSpace(in.Name)
	if in.Date == "" || in.Name == "" {
		return nil, app.Validationf("date and name are required")
	}
	if _, err := time.Parse(time.DateOnly, in.Date); err != nil {
		return nil, app.Validationf("date %q must be YYYY-MM-DD", in.Date)
	}
	rows, err := entries(in.Songs)
	if err != nil {
		return nil, err
	}

	setlist := models.Setlist{
		Date:        in.Date,
		Name:        in.Name,
		Description: in.Description,
		AuthorID:    caller.ID,
		AuthorEmail: caller.Email,
	}
	created, err := s.store.CreateSetlist(ctx, setlist, rows)
	if errors.Is(err, store.ErrSchemaMismatch) {
		app.SchemaFallbacks.WithLabelValues(store.TableSetlists).Inc()
		log.Warn().Err(err).Msg("retrying setlist insert with baseline columns")
		setlist.Description = nil
		for i := range rows {
			rows[i].YouTubeURL = nil
		}
		created, err = s.store.CreateSetlist(ctx, setlist, rows)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) requireLeader(ctx context.Context, caller auth.Caller) error {
	profile, err := s.profiles.Get(ctx, caller.ID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no profile for caller: %w", app.ErrForbidden)
	}
	if err != nil {
		return err
	}
	if !profile.IsLeader() {
		return fmt.Errorf("role %q may not create setlists: %w", profile.Role, app.ErrForbidden)
	}
	return nil
}

// authorize loads the setlist and checks the caller wrote it. Rows without a
// recorded author predate authorship and stay editable.
func (s *service) authorize(ctx context.Context, caller auth.Caller, id string) (*models.Setlist, error) {
	if caller.ID == "" {
		return nil, app.ErrUnauthenticated
	}
	setlist, err := s.store.GetSetlist(ctx, id)
	if err != nil {
		return nil, err
	}
	if setlist.AuthorID != "" && setlist.AuthorID != caller.ID {
		return nil, fmt.Errorf("setlist %s belongs to another author: %w", id, app.ErrForbidden)
	}
	return setlist, nil
}

func (s *service) ReplaceComposition(ctx context.Context, caller auth.Caller, id string, in ReplaceInput) (*models.SetlistWithSongs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := app.ValidID("setlist id", id); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}

	update := store.CompositionUpdate{Description: in.Description, ReplaceSongs: in.ReplaceSongs}
	if in.ReplaceSongs {
		rows, err := entries(in.Songs)
		if err != nil {
			return nil, err
		}
		update.Songs = rows
	}

	err := s.store.ReplaceComposition(ctx, id, update)
	s.cache.InvalidateSetlist(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *service) PatchSongOverride(ctx context.Context, caller auth.Caller, setlistID, setlistSongID string, link *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := app.ValidID("setlist id", setlistID); err != nil {
		return err
	}
	if err := app.ValidID("setlist song id", setlistSongID); err != nil {
		return err
	}
	if _, err := s.authorize(ctx, caller, setlistID); err != nil {
		return err
	}

	err := s.store.UpdateSetlistSongVideo(ctx, setlistID, setlistSongID, normalizeLink(link))
	s.cache.InvalidateSetlist(ctx, setlistID)
	return err
}

func (s *service) Delete(ctx context.Context, caller auth.Caller, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := app.ValidID("setlist id", id); err != nil {
		return err
	}
	if _, err := s.authorize(ctx, caller, id); err != nil {
		return err
	}

	err := s.store.DeleteSetlist(ctx, id)
	s.cache.InvalidateSetlist(ctx, id)
	return err
}

type noCache struct{}

func (noCache) GetSetlist(context.Context, string) (*models.SetlistWithSongs, int64, bool) {
	return nil, -1, false
}

func (noCache) SetSetlist(context.Context, int64, *models.SetlistWithSongs) {}

func (noCache) InvalidateSetlist(context.Context, string) {}
