package songs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"conti/internal/app"
	"conti/internal/auth"
	"conti/internal/store"
	"conti/shared/go/models"
)

// memStore keeps songs in memory and rejects optional columns listed in
// missing the way Postgres rejects an undefined column.
type memStore struct {
	songs     map[string]models.Song
	missing   map[string]bool
	referring map[string]bool
	writes    []store.SongFields
	deleted   []string
}

func newMemStore(missing ...string) *memStore {
	m := &memStore{songs: map[string]models.Song{}, missing: map[string]bool{}, referring: map[string]bool{}}
	for _, c := range missing {
		m.missing[c] = true
	}
	return m
}

func (m *memStore) reject(fields store.SongFields) error {
	for column := range fields.Optional {
		if m.missing[column] {
			return &store.DBError{Op: "write song", Code: "42703", Message: fmt.Sprintf("column %q does not exist", column), Err: store.ErrSchemaMismatch}
		}
	}
	return nil
}

func apply(song *models.Song, fields store.SongFields) {
	song.Title, song.Artist, song.Key = fields.Title, fields.Artist, fields.Key
	if fields.ImageURL != "" {
		song.ImageURL = fields.ImageURL
	}
	for column, v := range fields.Optional {
		text, _ := v.(string)
		switch column {
		case "description":
			song.Description = text
		case "youtube_url":
			song.YouTubeURL = text
		case "storage_path":
			song.StoragePath = text
		case "author_id":
			song.AuthorID = text
		case "author_email":
			song.AuthorEmail = text
		case "bpm":
			if n, ok := v.(int); ok {
				song.BPM = &n
			} else {
				song.BPM = nil
			}
		}
	}
}

func (m *memStore) ListSongs(context.Context, string) ([]models.Song, error) {
	out := []models.Song{}
	for _, s := range m.songs {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) GetSong(_ context.Context, id string) (*models.Song, error) {
	s, ok := m.songs[id]
	if !ok {
		return nil, fmt.Errorf("get song: %w", store.ErrNotFound)
	}
	return &s, nil
}

func (m *memStore) InsertSong(_ context.Context, fields store.SongFields) (*models.Song, error) {
	m.writes = append(m.writes, fields)
	if err := m.reject(fields); err != nil {
		return nil, err
	}
	song := models.Song{ID: uuid.NewString()}
	apply(&song, fields)
	m.songs[song.ID] = song
	return &song, nil
}

func (m *memStore) UpdateSong(_ context.Context, id string, fields store.SongFields) (*models.Song, error) {
	m.writes = append(m.writes, fields)
	if err := m.reject(fields); err != nil {
		return nil, err
	}
	song, ok := m.songs[id]
	if !ok {
		return nil, fmt.Errorf("update song: %w", store.ErrNotFound)
	}
	apply(&song, fields)
	m.songs[id] = song
	return &song, nil
}

func (m *memStore) DeleteSong(_ context.Context, id string) error {
	if _, ok := m.songs[id]; !ok {
		return fmt.Errorf("delete song: %w", store.ErrNotFound)
	}
	if m.referring[id] {
		return &store.DBError{Op: "delete song", Code: "23503", Message: "violates foreign key constraint", Err: store.ErrConflict}
	}
	delete(m.songs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type recordingRemover struct {
	keys []string
	err  error
}

func (r *recordingRemover) Remove(_ context.Context, key string) error {
	r.keys = append(r.keys, key)
	return r.err
}

var author = auth.Caller{ID: "user-1", Email: "user1@example.com"}

func strPtr(s string) *string { return &s }

func TestCreateStampsAuthorAndVideoID(t *testing.T) {
	mem := newMemStore()
	svc := New(mem, nil, "")

	song, err := svc.Create(context.Background(), author, Input{
		Title:      " Way Maker ",
		Artist:     "Sinach",
		Key:        "E",
		ImageURL:   "https://cdn.example.com/sheets/way-maker.png",
		YouTubeURL: strPtr("https://youtu.be/dQw4w9WgXcQ"),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if song.Title != "Way Maker" || song.AuthorID != author.ID || song.AuthorEmail != author.Email {
		t.Fatalf("unexpected song: %+v", song)
	}
	if song.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("expected video id, got %q", song.VideoID)
	}
	if song.EmbedURL != "https://www.youtube.com/embed/dQw4w9WgXcQ" {
		t.Fatalf("expected embed url, got %q", song.EmbedURL)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(newMemStore(), nil, "")
	ctx := context.Background()

	if _, err := svc.Create(ctx, auth.Caller{}, Input{Title: "t", Artist: "a", Key: "C", ImageURL: "x"}); !errors.Is(err, app.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Create(ctx, author, Input{Title: "t", Artist: "a", Key: "C"}); !errors.Is(err, app.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing image, got %v", err)
	}
}

func TestUpdateDropsDescriptionOnSchemaDrift(t *testing.T) {
	mem := newMemStore("description")
	svc := New(mem, nil, "")
	id := uuid.NewString()
	mem.songs[id] = models.Song{ID: id, Title: "Old", Artist: "A", Key: "C", ImageURL: "https://cdn.example.com/a.png"}

	song, err := svc.Update(context.Background(), author, id, Input{
		Title:       "New",
		Artist:      "A",
		Key:         "D",
		Description: strPtr("x"),
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if song.Description != "" {
		t.Fatalf("expected description silently dropped, got %q", song.Description)
	}
	if song.Title != "New" || song.Key != "D" || song.ImageURL != "https://cdn.example.com/a.png" {
		t.Fatalf("expected baseline fields applied and image kept, got %+v", song)
	}
	if len(mem.writes) != 2 || mem.writes[1].Optional != nil {
		t.Fatalf("expected one retry without optional columns, got %+v", mem.writes)
	}
}

func TestUpdateDoesNotRetryOtherErrors(t *testing.T) {
	mem := newMemStore()
	svc := New(mem, nil, "")

	_, err := svc.Update(context.Background(), author, uuid.NewString(), Input{Title: "t", Artist: "a", Key: "C", Description: strPtr("x")})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(mem.writes) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(mem.writes))
	}
}

func TestInputOptionalClearsEmptyValues(t *testing.T) {
	zero := 0
	fields := Input{Description: strPtr("  "), BPM: &zero, SongForm: strPtr("I-V-C")}.optional()

	if v, ok := fields["description"]; !ok || v != nil {
		t.Fatalf("expected description cleared, got %v (present=%v)", v, ok)
	}
	if v, ok := fields["bpm"]; !ok || v != nil {
		t.Fatalf("expected bpm cleared, got %v", v)
	}
	if fields["song_form"] != "I-V-C" {
		t.Fatalf("expected song_form kept, got %v", fields["song_form"])
	}
	if _, ok := fields["youtube_url"]; ok {
		t.Fatalf("expected unset youtube_url to be left out")
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		song     models.Song
		caller   auth.Caller
		wantErr  error
		wantKeys []string
	}{
		{
			name:     "author with storage path",
			song:     models.Song{AuthorID: author.ID, StoragePath: "user-1/a.png", ImageURL: "https://cdn.example.com/sheets/other.png"},
			caller:   author,
			wantKeys: []string{"user-1/a.png"},
		},
		{
			name:     "legacy row without author",
			song:     models.Song{ImageURL: "https://abc.supabase.co/storage/v1/object/public/sheets/legacy/b.png"},
			caller:   auth.Caller{ID: "someone-else"},
			wantKeys: []string{"legacy/b.png"},
		},
		{
			name:    "other author",
			song:    models.Song{AuthorID: "user-2", StoragePath: "user-2/c.png"},
			caller:  author,
			wantErr: app.ErrForbidden,
		},
		{
			name:    "anonymous",
			song:    models.Song{AuthorID: author.ID},
			wantErr: app.ErrUnauthenticated,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mem := newMemStore()
			remover := &recordingRemover{}
			svc := New(mem, remover, "sheets")
			id := uuid.NewString()
			tc.song.ID = id
			mem.songs[id] = tc.song

			err := svc.Delete(context.Background(), tc.caller, id)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if _, ok := mem.songs[id]; !ok {
					t.Fatalf("expected song kept")
				}
				if len(remover.keys) != 0 {
					t.Fatalf("expected no blob removal, got %v", remover.keys)
				}
				return
			}
			if err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, ok := mem.songs[id]; ok {
				t.Fatalf("expected song deleted")
			}
			if fmt.Sprint(remover.keys) != fmt.Sprint(tc.wantKeys) {
				t.Fatalf("expected removed keys %v, got %v", tc.wantKeys, remover.keys)
			}
		})
	}
}

func TestDeleteSurvivesBlobFailure(t *testing.T) {
	mem := newMemStore()
	svc := New(mem, &recordingRemover{err: errors.New("bucket unreachable")}, "")
	id := uuid.NewString()
	mem.songs[id] = models.Song{ID: id, AuthorID: author.ID, StoragePath: "user-1/a.png"}

	if err := svc.Delete(context.Background(), author, id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(mem.deleted) != 1 {
		t.Fatalf("expected row deleted despite blob failure")
	}
}

func TestDeleteKeepsImageWhenRowStays(t *testing.T) {
	mem := newMemStore()
	remover := &recordingRemover{}
	svc := New(mem, remover, "sheets")
	id := uuid.NewString()
	mem.songs[id] = models.Song{ID: id, AuthorID: author.ID, StoragePath: "user-1/a.png"}
	mem.referring[id] = true

	err := svc.Delete(context.Background(), author, id)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, ok := mem.songs[id]; !ok {
		t.Fatalf("expected song kept")
	}
	if len(remover.keys) != 0 {
		t.Fatalf("expected image left in place, got removals %v", remover.keys)
	}
}

func TestGetRejectsPlaceholderID(t *testing.T) {
	svc := New(newMemStore(), nil, "")
	if _, err := svc.Get(context.Background(), "undefined"); !errors.Is(err, app.ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
}
