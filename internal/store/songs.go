package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"conti/shared/go/models"
)

// songColumns is the projection order shared by every song read.
var songColumns = []string{
	"id", "title", "artist", "key", "image_url",
	"storage_path", "song_form", "bpm", "time_signature", "description",
	"youtube_url", "author_id", "author_email",
	"created_at", "updated_at",
}

// SongFields carries the values of a song insert or update. Optional holds
// optional columns keyed by name; a nil value writes NULL. Columns absent from
// the schema snapshot are dropped before the statement is built.
type SongFields struct {
	Title    string
	Artist   string
	Key      string
	ImageURL string
	Optional map[string]interface{}
}

// songSelectList renders the song projection, substituting NULL for optional
// columns the deployment lacks.
func songSelectList(schema Schema, alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	parts := make([]string, len(songColumns))
	for i, c := range songColumns {
		switch {
		case !schema.Has(TableSongs, c):
			parts[i] = "NULL"
		case c == "author_id":
			parts[i] = prefix + c + "::text"
		default:
			parts[i] = prefix + c
		}
	}
	return strings.Join(parts, ", ")
}

type songRow struct {
	id            string
	title         string
	artist        string
	key           string
	imageURL      sql.NullString
	storagePath   sql.NullString
	songForm      sql.NullString
	bpm           sql.NullInt64
	timeSignature sql.NullString
	description   sql.NullString
	youtubeURL    sql.NullString
	authorID      sql.NullString
	authorEmail   sql.NullString
	createdAt     time.Time
	updatedAt     time.Time
}

func (r *songRow) dest() []interface{} {
	return []interface{}{
		&r.id, &r.title, &r.artist, &r.key, &r.imageURL,
		&r.storagePath, &r.songForm, &r.bpm, &r.timeSignature, &r.description,
		&r.youtubeURL, &r.authorID, &r.authorEmail,
		&r.createdAt, &r.updatedAt,
	}
}

func (r *songRow) model() *models.Song {
	song := &models.Song{
		ID:            r.id,
		Title:         r.title,
		Artist:        r.artist,
		Key:           r.key,
		ImageURL:      r.imageURL.String,
		StoragePath:   r.storagePath.String,
		SongForm:      r.songForm.String,
		TimeSignature: r.timeSignature.String,
		Description:   r.description.String,
		YouTubeURL:    r.youtubeURL.String,
		AuthorID:      r.authorID.String,
		AuthorEmail:   r.authorEmail.String,
		CreatedAt:     r.createdAt,
		UpdatedAt:     r.updatedAt,
	}
	if r.bpm.Valid {
		bpm := int(r.bpm.Int64)
		song.BPM = &bpm
	}
	return song
}

// optionalColumns returns the keys of fields.Optional present in the schema,
// sorted for stable statement text.
func optionalColumns(schema Schema, fields SongFields) []string {
	names := make([]string, 0, len(fields.Optional))
	for name := range fields.Optional {
		names = append(names, name)
	}
	sort.Strings(names)
	return schema.filter(TableSongs, names)
}

// likePattern escapes ILIKE metacharacters in a user query.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// ListSongs returns songs newest first. A non-empty query matches title,
// artist or key case-insensitively.
func (s *Store) ListSongs(ctx context.Context, q string) ([]models.Song, error) {
	query := `SELECT ` + songSelectList(s.Schema(), "") + ` FROM songs`
	var args []interface{}
	if q = strings.TrimSpace(q); q != "" {
		query += ` WHERE title ILIKE $1 OR artist ILIKE $1 OR key ILIKE $1`
		args = append(args, likePattern(q))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list songs", err)
	}
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		var row songRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, *row.model())
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list songs", err)
	}
	return songs, nil
}

// GetSong loads a single song.
func (s *Store) GetSong(ctx context.Context, id string) (*models.Song, error) {
	var row songRow
	err := s.db.QueryRowContext(ctx,
		`SELECT `+songSelectList(s.Schema(), "")+` FROM songs WHERE id = $1`, id).
		Scan(row.dest()...)
	if err != nil {
		return nil, wrapErr("get song", err)
	}
	return row.model(), nil
}

// InsertSong creates a song and returns the stored row.
func (s *Store) InsertSong(ctx context.Context, fields SongFields) (*models.Song, error) {
	schema := s.Schema()
	cols := []string{"title", "artist", "key", "image_url"}
	args := []interface{}{fields.Title, fields.Artist, fields.Key, fields.ImageURL}
	for _, c := range optionalColumns(schema, fields) {
		cols = append(cols, c)
		args = append(args, fields.Optional[c])
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO songs (%s) VALUES (%s) RETURNING %s`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), songSelectList(schema, ""))

	var row songRow
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(row.dest()...); err != nil {
		err = wrapErr("insert song", err)
		s.refreshOnDrift(ctx, err)
		return nil, err
	}
	return row.model(), nil
}

// UpdateSong rewrites a song's fields. An empty ImageURL keeps the current
// image.
func (s *Store) UpdateSong(ctx context.Context, id string, fields SongFields) (*models.Song, error) {
	schema := s.Schema()
	sets := []string{
		"title = $1",
		"artist = $2",
		"key = $3",
		"image_url = COALESCE(NULLIF($4, ''), image_url)",
		"updated_at = NOW()",
	}
	args := []interface{}{fields.Title, fields.Artist, fields.Key, fields.ImageURL}
	for _, c := range optionalColumns(schema, fields) {
		args = append(args, fields.Optional[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", c, len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE songs SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), songSelectList(schema, ""))

	var row songRow
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(row.dest()...); err != nil {
		err = wrapErr("update song", err)
		s.refreshOnDrift(ctx, err)
		return nil, err
	}
	return row.model(), nil
}

// DeleteSong removes a song. A song still placed in a setlist is kept and
// the error matches ErrConflict.
func (s *Store) DeleteSong(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		err = wrapErr("delete song", err)
		var dbErr *DBError
		if errors.As(err, &dbErr) && dbErr.Code == codeForeignKeyViolation {
			dbErr.Err = ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete song rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete song: %w", ErrNotFound)
	}
	return nil
}
