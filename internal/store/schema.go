package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Tables the service reads and writes.
const (
	TableSongs        = "songs"
	TableSetlists     = "setlists"
	TableSetlistSongs = "setlist_songs"
	TableProfiles     = "user_profiles"
)

// OptionalColumns lists the columns added by later migrations. Older
// deployments may lack any of them; writes drop the ones that are missing.
var OptionalColumns = map[string][]string{
	TableSongs:        {"storage_path", "song_form", "bpm", "time_signature", "description", "youtube_url", "author_id", "author_email"},
	TableSetlists:     {"description"},
	TableSetlistSongs: {"youtube_url"},
}

// Schema is a snapshot of which columns exist per table. The zero value knows
// nothing and reports every column as present.
type Schema struct {
	columns map[string]map[string]bool
}

// NewSchema builds a snapshot from table -> columns.
func NewSchema(columns map[string][]string) Schema {
	snapshot := Schema{columns: make(map[string]map[string]bool, len(columns))}
	for table, cols := range columns {
		set := make(map[string]bool, len(cols))
		for _, c := range cols {
			set[c] = true
		}
		snapshot.columns[table] = set
	}
	return snapshot
}

// Has reports whether column exists on table. Tables absent from the
// snapshot are assumed complete.
func (s Schema) Has(table, column string) bool {
	cols, ok := s.columns[table]
	if !ok {
		return true
	}
	return cols[column]
}

// Missing returns the optional columns of table that the snapshot lacks.
func (s Schema) Missing(table string) []string {
	var missing []string
	for _, c := range OptionalColumns[table] {
		if !s.Has(table, c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// filter keeps only the columns present on table, preserving order.
func (s Schema) filter(table string, columns []string) []string {
	kept := make([]string, 0, len(columns))
	for _, c := range columns {
		if s.Has(table, c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// LoadSchema reads the column layout of the service tables from
// information_schema and installs it as the current snapshot.
func (s *Store) LoadSchema(ctx context.Context) (Schema, error) {
	tables := make([]string, 0, len(OptionalColumns))
	for t := range OptionalColumns {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ANY($1)`, pq.Array(tables))
	if err != nil {
		return Schema{}, fmt.Errorf("load schema: %w", err)
	}
	defer rows.Close()

	columns := make(map[string][]string)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return Schema{}, fmt.Errorf("scan schema column: %w", err)
		}
		columns[table] = append(columns[table], column)
	}
	if err := rows.Err(); err != nil {
		return Schema{}, fmt.Errorf("iterate schema columns: %w", err)
	}

	snapshot := NewSchema(columns)
	s.setSchema(snapshot)
	return snapshot, nil
}

// refreshSchema reloads the snapshot after the database rejected a column.
// Failures keep the previous snapshot.
func (s *Store) refreshSchema(ctx context.Context) {
	snapshot, err := s.LoadSchema(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("schema refresh failed")
		return
	}
	for table := range OptionalColumns {
		if missing := snapshot.Missing(table); len(missing) > 0 {
			log.Warn().Str("table", table).Strs("missing_columns", missing).Msg("schema drift detected")
		}
	}
}

func (s *Store) refreshOnDrift(ctx context.Context, err error) {
	if isUndefinedColumn(err) {
		s.refreshSchema(ctx)
	}
}
