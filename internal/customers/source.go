package customers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/types"
)

// Open builds a directory from source: empty for the built-in seed, a
// postgres:// or postgresql:// DSN, or a .xlsx/.yaml/.yml path.
func Open(ctx context.Context, source string, log *logger.Logger) (*Directory, error) {
	var (
		profiles []types.CustomerProfile
		err      error
	)
	switch {
	case source == "":
		profiles = Seed()
	case strings.HasPrefix(source, "postgres://"), strings.HasPrefix(source, "postgresql://"):
		profiles, err = LoadPostgres(ctx, source)
	default:
		switch strings.ToLower(filepath.Ext(source)) {
		case ".xlsx":
			profiles, err = LoadXLSX(source, log)
		case ".yaml", ".yml":
			profiles, err = LoadYAML(source)
		default:
			return nil, fmt.Errorf("customers: unsupported source %q", source)
		}
	}
	if err != nil {
		return nil, err
	}
	return New(profiles)
}
