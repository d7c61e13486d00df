package auth

import (
	"context"
	"fmt"

	"github.com/cryovex/mcauth/internal/config"
	"github.com/cryovex/mcauth/internal/store"
	"github.com/cryovex/mcauth/internal/util"
)

// OpenStore builds the session store selected by cfg.SessionStore and prepares its backend.
// Stores holding connections also implement io.Closer.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		pg, err := store.NewPostgresStore(ctx, store.PostgresStoreConfig{
			DSN:    cfg.PostgresStore.DSN,
			Schema: cfg.PostgresStore.Schema,
			Table:  cfg.PostgresStore.Table,
		})
		if err != nil {
			return nil, err
		}
		if err = pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	case config.SessionStoreObject:
		obj, err := store.NewObjectStore(store.ObjectStoreConfig{
			Endpoint:  cfg.ObjectStore.Endpoint,
			Bucket:    cfg.ObjectStore.Bucket,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			Region:    cfg.ObjectStore.Region,
			Prefix:    cfg.ObjectStore.Prefix,
			UseSSL:    cfg.ObjectStore.UseSSL,
			PathStyle: cfg.ObjectStore.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		if err = obj.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return obj, nil
	case config.SessionStoreFile, "":
		dir, err := util.ResolveAuthDir(cfg.AuthDir)
		if err != nil {
			return nil, err
		}
		if dir == "" {
			return nil, fmt.Errorf("mcauth: auth-dir is not configured")
		}
		return NewFileStore(dir), nil
	default:
		return nil, fmt.Errorf("mcauth: unknown session store %q", cfg.SessionStore)
	}
}
