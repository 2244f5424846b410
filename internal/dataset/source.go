package dataset

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/housing/internal/config"
	"github.com/stwalsh4118/housing/internal/database"
	"github.com/stwalsh4118/housing/internal/repository"
)

// NewLoader builds the loader selected by cfg.Data.Source. For the postgres
// source it also opens the pool, which the caller must close; db is nil for
// csv.
func NewLoader(ctx context.Context, cfg *config.Config) (loader Loader, db *database.Database, err error) {
	switch cfg.Data.Source {
	case config.SourceCSV:
		return NewCSVLoader(cfg.Data), nil, nil
	case config.SourcePostgres:
		db, err = database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
		}
		return NewPostgresLoader(repository.NewRecordRepository(db)), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}
