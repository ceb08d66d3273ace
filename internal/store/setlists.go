package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"conti/shared/go/models"
)

// SetlistSongEntry is one row to write into setlist_songs.
type SetlistSongEntry struct {
	SongID     string
	SongOrder  int
	YouTubeURL *string
}

// CompositionUpdate describes a ReplaceComposition write. A nil Description
// leaves the column untouched; an empty one clears it. Songs are only
// rewritten when ReplaceSongs is set, in which case an empty slice removes
// every entry.
type CompositionUpdate struct {
	Description  *string
	ReplaceSongs bool
	Songs        []SetlistSongEntry
}

func setlistSelectList(schema Schema) string {
	description := "NULL"
	if schema.Has(TableSetlists, "description") {
		description = "description"
	}
	return `id, to_char(date, 'YYYY-MM-DD'), name, ` + description +
		`, COALESCE(author_id::text, ''), COALESCE(author_email, ''), created_at, updated_at`
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSetlist(row rowScanner) (*models.Setlist, error) {
	var (
		setlist     models.Setlist
		description sql.NullString
	)
	if err := row.Scan(
		&setlist.ID,
		&setlist.Date,
		&setlist.Name,
		&description,
		&setlist.AuthorID,
		&setlist.AuthorEmail,
		&setlist.CreatedAt,
		&setlist.UpdatedAt,
	); err != nil {
		return nil, err
	}
	setlist.Description = stringPtr(description)
	return &setlist, nil
}

// ListSetlists returns every setlist, most recent date first.
func (s *Store) ListSetlists(ctx context.Context) ([]models.Setlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+setlistSelectList(s.Schema())+` FROM setlists ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, wrapErr("list setlists", err)
	}
	defer rows.Close()

	setlists := []models.Setlist{}
	for rows.Next() {
		setlist, err := scanSetlist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setlist: %w", err)
		}
		setlists = append(setlists, *setlist)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list setlists", err)
	}
	return setlists, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetSetlist loads a setlist without its songs.
func (s *Store) GetSetlist(ctx context.Context, id string) (*models.Setlist, error) {
	return getSetlist(ctx, s.db, s.Schema(), id)
}

func getSetlist(ctx context.Context, q queryer, schema Schema, id string) (*models.Setlist, error) {
	setlist, err := scanSetlist(q.QueryRowContext(ctx,
		`SELECT `+setlistSelectList(schema)+` FROM setlists WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr("get setlist", err)
	}
	return setlist, nil
}

// GetSetlistWithSongs loads a setlist and its entries from one snapshot, so
// the header and the song list always belong to the same committed write.
func (s *Store) GetSetlistWithSongs(ctx context.Context, id string) (*models.SetlistWithSongs, error) {
	schema := s.Schema()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	setlist, err := getSetlist(ctx, tx, schema, id)
	if err != nil {
		return nil, err
	}
	songs, err := listSetlistSongs(ctx, tx, schema, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit setlist read: %w", err)
	}
	return &models.SetlistWithSongs{Setlist: *setlist, Songs: songs}, nil
}

// listSetlistSongs returns the entries of a setlist joined with their songs,
// ascending by song_order.
func listSetlistSongs(ctx context.Context, q queryer, schema Schema, setlistID string) ([]models.SetlistSong, error) {
	link := "NULL"
	if schema.Has(TableSetlistSongs, "youtube_url") {
		link = "ss.youtube_url"
	}
	query := `SELECT ss.id, ss.setlist_id, ss.song_id, ss.song_order, ` + link + `, ` +
		songSelectList(schema, "s") + `
		FROM setlist_songs ss
		JOIN songs s ON s.id = ss.song_id
		WHERE ss.setlist_id = $1
		ORDER BY ss.song_order ASC`

	rows, err := q.QueryContext(ctx, query, setlistID)
	if err != nil {
		return nil, wrapErr("list setlist songs", err)
	}
	defer rows.Close()

	entries := []models.SetlistSong{}
	for rows.Next() {
		var (
			entry    models.SetlistSong
			override sql.NullString
			song     songRow
		)
		dest := append([]interface{}{&entry.ID, &entry.SetlistID, &entry.SongID, &entry.SongOrder, &override}, song.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan setlist song: %w", err)
		}
		entry.YouTubeURL = stringPtr(override)
		entry.Song = song.model()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list setlist songs", err)
	}
	return entries, nil
}

// CreateSetlist inserts a setlist and its entries in one transaction. A
// description or override link the schema cannot hold is dropped.
func (s *Store) CreateSetlist(ctx context.Context, setlist models.Setlist, entries []SetlistSongEntry) (created *models.Setlist, err error) {
	schema := s.Schema()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cols := []string{"date", "name", "author_id", "author_email"}
	args := []interface{}{setlist.Date, setlist.Name, nullIfEmpty(setlist.AuthorID), nullIfEmpty(setlist.AuthorEmail)}
	if schema.Has(TableSetlists, "description") {
		cols = append(cols, "description")
		args = append(args, nullString(setlist.Description))
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO setlists (%s) VALUES (%s) RETURNING %s`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), setlistSelectList(schema))

	created, err = scanSetlist(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		err = wrapErr("insert setlist", err)
		s.refreshOnDrift(ctx, err)
		return nil, err
	}

	if err = s.insertSetlistSongsTx(ctx, tx, schema, created.ID, entries); err != nil {
		s.refreshOnDrift(ctx, err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit setlist: %w", err)
	}
	return created, nil
}

// ReplaceComposition updates the description and, when requested, swaps the
// full song list. Readers never observe the list half-replaced.
func (s *Store) ReplaceComposition(ctx context.Context, setlistID string, update CompositionUpdate) (err error) {
	schema := s.Schema()
	if update.Description != nil && !schema.Has(TableSetlists, "description") {
		return missingColumn("update setlist", TableSetlists, "description")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	if update.Description != nil {
		res, err = tx.ExecContext(ctx,
			`UPDATE setlists SET description = $1, updated_at = $2 WHERE id = $3`,
			nullString(update.Description), time.Now().UTC(), setlistID)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE setlists SET updated_at = $1 WHERE id = $2`,
			time.Now().UTC(), setlistID)
	}
	if err != nil {
		err = wrapErr("update setlist", err)
		s.refreshOnDrift(ctx, err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update setlist rows affected: %w", err)
	}
	if n == 0 {
		err = fmt.Errorf("update setlist: %w", ErrNotFound)
		return err
	}

	if update.ReplaceSongs {
		if _, err = tx.ExecContext(ctx, `DELETE FROM setlist_songs WHERE setlist_id = $1`, setlistID); err != nil {
			err = wrapErr("clear setlist songs", err)
			return err
		}
		if err = s.insertSetlistSongsTx(ctx, tx, schema, setlistID, update.Songs); err != nil {
			s.refreshOnDrift(ctx, err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit composition: %w", err)
	}
	return nil
}

func (s *Store) insertSetlistSongsTx(ctx context.Context, tx *sql.Tx, schema Schema, setlistID string, entries []SetlistSongEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	withLink := schema.Has(TableSetlistSongs, "youtube_url")
	query := `INSERT INTO setlist_songs (setlist_id, song_id, song_order) VALUES ($1, $2, $3)`
	if withLink {
		query = `INSERT INTO setlist_songs (setlist_id, song_id, song_order, youtube_url) VALUES ($1, $2, $3, $4)`
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return wrapErr("prepare insert setlist song", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		args := []interface{}{setlistID, entry.SongID, entry.SongOrder}
		if withLink {
			args = append(args, nullString(entry.YouTubeURL))
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return wrapErr("insert setlist song", err)
		}
	}
	return nil
}

// UpdateSetlistSongVideo sets the override link of one entry, matched by both
// its own id and its setlist id. A nil link clears the override.
func (s *Store) UpdateSetlistSongVideo(ctx context.Context, setlistID, setlistSongID string, link *string) error {
	if !s.Schema().Has(TableSetlistSongs, "youtube_url") {
		return missingColumn("update setlist song", TableSetlistSongs, "youtube_url")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE setlist_songs SET youtube_url = $1 WHERE id = $2 AND setlist_id = $3`,
		nullString(link), setlistSongID, setlistID)
	if err != nil {
		err = wrapErr("update setlist song", err)
		s.refreshOnDrift(ctx, err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update setlist song rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update setlist song: %w", ErrNotFound)
	}
	return nil
}

// DeleteSetlist removes a setlist; its entries go with it through the
// foreign key cascade.
func (s *Store) DeleteSetlist(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM setlists WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete setlist", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete setlist rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete setlist: %w", ErrNotFound)
	}
	return nil
}
