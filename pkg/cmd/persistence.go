package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/persistence/file"
	"github.com/flowmate/flowmate/pkg/persistence/memory"
	"github.com/flowmate/flowmate/pkg/persistence/postgresql"
	"github.com/flowmate/flowmate/pkg/persistence/redis"
)

// NewPersistence picks a backend from the database URL scheme. An empty URL
// selects the in-memory backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "memory":
		return memory.NewPersistence(), nil
	case "file":
		return file.NewPersistence(databaseURL), nil
	case "redis", "rediss":
		return redis.NewPersistence(databaseURL)
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database url: %q", databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	if databaseURL == "" {
		return "memory"
	}

	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
