package factors

import (
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "factors_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&EmissionFactor{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestResolver(t *testing.T, db *gorm.DB, clock *fakeClock, ttl time.Duration) *Resolver {
	t.Helper()
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	resolver, err := NewResolver(ResolverConfig{
		Store: store,
		Clock: clock.Now,
		TTL:   ttl,
	})
	if err != nil {
		t.Fatalf("failed to build resolver: %v", err)
	}
	return resolver
}

func mustPublish(t *testing.T, db *gorm.DB, factor EmissionFactor) {
	t.Helper()
	if factor.CreatedAtSeconds == 0 {
		factor.CreatedAtSeconds = factor.EffectiveAtSeconds
	}
	if err := db.Create(&factor).Error; err != nil {
		t.Fatalf("failed to publish factor: %v", err)
	}
}

func mustKey(t *testing.T, primary, secondary string, modelYear int) Key {
	t.Helper()
	key, err := NewKey(primary, secondary, modelYear)
	if err != nil {
		t.Fatalf("unexpected key error: %v", err)
	}
	return key
}
