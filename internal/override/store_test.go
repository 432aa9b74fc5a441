package override_test

import (
	"context"
	"testing"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/override"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *override.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return override.NewStore(rdb, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestStore_GetMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	ov, err := s.Get(context.Background(), "biz-unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov != nil {
		t.Errorf("expected nil override for missing id, got %+v", ov)
	}
}

func TestStore_UpdateThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, "biz-1", &domain.OverrideRecord{City: strPtr("Mumbai")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	ov, err := s.Get(ctx, "biz-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ov == nil || ov.City == nil || *ov.City != "Mumbai" {
		t.Errorf("expected city override 'Mumbai', got %+v", ov)
	}
}

func TestStore_ShallowMergeAcrossUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := &domain.OverrideRecord{Name: strPtr("First"), City: strPtr("Pune")}
	p2 := &domain.OverrideRecord{City: strPtr("Mumbai"), Phone: strPtr("+91 90000 00000")}

	if err := s.Update(ctx, "biz-1", p1); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	if err := s.Update(ctx, "biz-1", p2); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	ov, err := s.Get(ctx, "biz-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ov.Name == nil || *ov.Name != "First" {
		t.Error("untouched field from first update did not survive")
	}
	if ov.City == nil || *ov.City != "Mumbai" {
		t.Error("later write did not win for city")
	}
	if ov.Phone == nil || *ov.Phone != "+91 90000 00000" {
		t.Error("new field from second update missing")
	}
}

func TestStore_NoCrossIDLeakage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Update(ctx, "biz-1", &domain.OverrideRecord{City: strPtr("Mumbai")}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	ov, err := s.Get(ctx, "biz-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ov != nil {
		t.Errorf("override for biz-1 leaked into biz-2: %+v", ov)
	}
}

func TestStore_EntriesHaveNoTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := override.NewStore(rdb, zap.NewNop())
	ctx := context.Background()

	if err := s.Update(ctx, "biz-1", &domain.OverrideRecord{City: strPtr("Mumbai")}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	ttl := rdb.TTL(ctx, "growthqr:override:biz-1").Val()
	if ttl > 0 {
		t.Errorf("override entry has a TTL (%v); store must not expire entries", ttl)
	}
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Update(ctx, "biz-1", &domain.OverrideRecord{City: strPtr("Mumbai")}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := s.Delete(ctx, "biz-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	ov, err := s.Get(ctx, "biz-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ov != nil {
		t.Error("expected override removed after delete")
	}
}
