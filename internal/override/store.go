// Package override persists partial business records keyed by business id.
// The store is a durability fallback for fields the backend does not
// reliably return, not a cache: entries carry no TTL and are only removed
// explicitly.
package override

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/merge"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "growthqr:override:"

// Store is a redis-backed override store.
type Store struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewClient creates the redis client used by the store.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
}

// NewStore creates an override store on top of an existing redis client.
func NewStore(rdb *redis.Client, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, logger: logger}
}

// Ping verifies the redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("override store ping: %w", err)
	}
	return nil
}

// Get returns the override record for a business, or nil when none exists.
func (s *Store) Get(ctx context.Context, businessID string) (*domain.OverrideRecord, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+businessID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("override store: get failed",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
		return nil, &domain.ErrExternalService{Service: "override-store", Err: err}
	}

	var ov domain.OverrideRecord
	if err := json.Unmarshal([]byte(raw), &ov); err != nil {
		s.logger.Error("override store: corrupt entry",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
		return nil, &domain.ErrExternalService{Service: "override-store", Err: err}
	}
	return &ov, nil
}

// Update shallow-merges the partial fields onto any existing override for
// the business: fields present in partial overwrite same-named fields,
// untouched fields persist. The read-modify-write is safe because there is
// a single writer per business session.
func (s *Store) Update(ctx context.Context, businessID string, partial *domain.OverrideRecord) error {
	if partial.IsEmpty() {
		return nil
	}

	existing, err := s.Get(ctx, businessID)
	if err != nil {
		return err
	}

	merged := merge.ApplyOverride(existing, partial)
	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}

	if err := s.rdb.Set(ctx, keyPrefix+businessID, raw, 0).Err(); err != nil {
		s.logger.Error("override store: set failed",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
		return &domain.ErrExternalService{Service: "override-store", Err: err}
	}

	s.logger.Debug("override store: updated", zap.String("business_id", businessID))
	return nil
}

// Delete removes the override entry for a business.
func (s *Store) Delete(ctx context.Context, businessID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+businessID).Err(); err != nil {
		return &domain.ErrExternalService{Service: "override-store", Err: err}
	}
	return nil
}

// Close closes the underlying redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
