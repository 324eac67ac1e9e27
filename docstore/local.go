//go:build local
// +build local

package docstore

import (
	"context"
)

// Open returns the in-process store, backed by cfg.DataFile when set.
// URI and Database are ignored.
func Open(ctx context.Context, cfg Config) (DocumentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.DataFile == "" {
		return NewMemoryStore(), nil
	}
	return NewFileStore(cfg.DataFile)
}
