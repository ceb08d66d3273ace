package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"conti/internal/store"
)

// loadSchema installs the column snapshot the store writes against and warns
// about every optional column the deployment lacks. Missing columns are not
// fatal: writes drop them until the migrations are applied.
func loadSchema(ctx context.Context, dataStore *store.Store) error {
	schema, err := dataStore.LoadSchema(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}

	tables := make([]string, 0, len(store.OptionalColumns))
	for table := range store.OptionalColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		if missing := schema.Missing(table); len(missing) > 0 {
			log.Warn().
				Str("table", table).
				Strs("missing_columns", missing).
				Msg("schema behind migrations; optional columns will be skipped")
		}
	}
	return nil
}
