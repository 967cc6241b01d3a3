package storage

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Open initializes the store selected by the DSN scheme.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, dsn, log)
	default:
		return openSQLite(dsn, log)
	}
}
