package service

import (
	"context"
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
)

// RefreshRevoker records refresh-token ids that must no longer be honoured.
type RefreshRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// KeyValueStore is the part of the redis client the denylist needs.
type KeyValueStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// NoopRevoker keeps logout stateless: nothing is ever revoked.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }
func (NoopRevoker) IsRevoked(context.Context, string) (bool, error)     { return false, nil }

// DenylistRevoker stores revoked ids until the token would have expired anyway.
type DenylistRevoker struct {
	store KeyValueStore
}

func NewDenylistRevoker(store KeyValueStore) *DenylistRevoker {
	return &DenylistRevoker{store: store}
}

func (r *DenylistRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, constants.CacheKeyRevokedRefresh+jti, "1", ttl)
}

func (r *DenylistRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	return r.store.Exists(ctx, constants.CacheKeyRevokedRefresh+jti)
}
