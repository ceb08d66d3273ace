package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func songRows() *sqlmock.Rows {
	return sqlmock.NewRows(songColumns)
}

func addSongRow(rows *sqlmock.Rows, id, title string) *sqlmock.Rows {
	now := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	return rows.AddRow(id, title, "Artist", "G", "https://cdn.example.com/sheets/"+id+".png",
		nil, nil, nil, nil, nil, nil, nil, nil, now, now)
}

func TestListSongsFiltersByQuery(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE title ILIKE $1 OR artist ILIKE $1 OR key ILIKE $1 ORDER BY created_at DESC`)).
		WithArgs("%50\\%%").
		WillReturnRows(addSongRow(songRows(), "s1", "50% Grace"))

	songs, err := s.ListSongs(context.Background(), " 50% ")
	if err != nil {
		t.Fatalf("ListSongs error: %v", err)
	}
	if len(songs) != 1 || songs[0].Title != "50% Grace" {
		t.Fatalf("unexpected songs: %+v", songs)
	}
	if songs[0].BPM != nil {
		t.Fatalf("expected nil bpm, got %v", *songs[0].BPM)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListSongsWithoutQuery(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs ORDER BY created_at DESC`)).
		WillReturnRows(songRows())

	songs, err := s.ListSongs(context.Background(), "")
	if err != nil {
		t.Fatalf("ListSongs error: %v", err)
	}
	if songs == nil || len(songs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", songs)
	}
}

func TestInsertSongDropsColumnsMissingFromSchema(t *testing.T) {
	s, mock := newMockStore(t)
	s.setSchema(NewSchema(map[string][]string{
		TableSongs: {"id", "title", "artist", "key", "image_url", "author_id", "created_at", "updated_at"},
	}))

	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO songs (title, artist, key, image_url, author_id) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, artist, key, image_url, NULL, NULL, NULL, NULL, NULL, NULL, author_id::text, NULL, created_at, updated_at`)).
		WithArgs("Way Maker", "Sinach", "E", "https://cdn.example.com/sheets/a.png", "user-1").
		WillReturnRows(addSongRow(songRows(), "s1", "Way Maker"))

	song, err := s.InsertSong(context.Background(), SongFields{
		Title:    "Way Maker",
		Artist:   "Sinach",
		Key:      "E",
		ImageURL: "https://cdn.example.com/sheets/a.png",
		Optional: map[string]interface{}{
			"author_id":   "user-1",
			"description": "bridge twice",
		},
	})
	if err != nil {
		t.Fatalf("InsertSong error: %v", err)
	}
	if song.ID != "s1" {
		t.Fatalf("expected id s1, got %q", song.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateSongUndefinedColumnRefreshesSchema(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE songs SET title = $1, artist = $2, key = $3, image_url = COALESCE(NULLIF($4, ''), image_url), updated_at = NOW(), description = $5 WHERE id = $6`)).
		WithArgs("Title", "Artist", "A", "", "x", "song-1").
		WillReturnError(&pgconn.PgError{
			Code:    "42703",
			Message: `column "description" of relation "songs" does not exist`,
		})

	mock.ExpectQuery(regexp.QuoteMeta(`FROM information_schema.columns`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}).
			AddRow("songs", "id").
			AddRow("songs", "title").
			AddRow("songs", "artist").
			AddRow("songs", "key").
			AddRow("songs", "image_url").
			AddRow("setlists", "description").
			AddRow("setlist_songs", "youtube_url"))

	_, err := s.UpdateSong(context.Background(), "song-1", SongFields{
		Title:    "Title",
		Artist:   "Artist",
		Key:      "A",
		Optional: map[string]interface{}{"description": "x"},
	})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	var dbErr *DBError
	if !errors.As(err, &dbErr) || dbErr.Code != "42703" {
		t.Fatalf("expected DBError with code 42703, got %#v", err)
	}
	if s.Schema().Has(TableSongs, "description") {
		t.Fatalf("expected refreshed schema to lack songs.description")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteSongNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM songs WHERE id = $1`)).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteSong(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSongInSetlistConflicts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM songs WHERE id = $1`)).
		WithArgs("in-use").
		WillReturnError(&pgconn.PgError{
			Code:    "23503",
			Message: `update or delete on table "songs" violates foreign key constraint "setlist_songs_song_id_fkey" on table "setlist_songs"`,
			Detail:  `Key (id)=(in-use) is still referenced from table "setlist_songs".`,
		})

	err := s.DeleteSong(context.Background(), "in-use")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var dbErr *DBError
	if !errors.As(err, &dbErr) || dbErr.Detail == "" {
		t.Fatalf("expected database detail kept, got %#v", err)
	}
}

func TestGetSongNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(songRows())

	if _, err := s.GetSong(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	tests := map[string]string{
		"grace":   "%grace%",
		"100%":    `%100\%%`,
		"a_b":     `%a\_b%`,
		`back\sl`: `%back\\sl%`,
	}
	for in, want := range tests {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
