package factors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var errMissingStoreDatabase = errors.New("factors: database handle is required")

// Store reads and publishes versioned emission factor rows. Rows are
// immutable after publication; corrections are inserted as new rows with a
// later effective date.
type Store struct {
	db *gorm.DB
}

// NewStore wraps the database handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errMissingStoreDatabase
	}
	return &Store{db: db}, nil
}

// FindExact returns the newest row effective at or before asOf that matches
// every component of the natural key.
func (s *Store) FindExact(ctx context.Context, category Category, key Key, standard string, asOf time.Time) (EmissionFactor, error) {
	var factor EmissionFactor
	err := s.db.WithContext(ctx).
		Where("category = ? AND key_primary = ? AND key_secondary = ? AND model_year = ? AND standard = ?",
			string(category), key.Primary, key.Secondary, key.ModelYear, standard).
		Where("effective_at_s <= ?", asOf.Unix()).
		Order("effective_at_s DESC").
		First(&factor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EmissionFactor{}, fmt.Errorf("%w: %s/%s", ErrFactorNotFound, category, key)
	}
	if err != nil {
		return EmissionFactor{}, err
	}
	return factor, nil
}

// FindNewestMobileMatch relaxes a mobile-source lookup by dropping the model
// year and returning the newest row for the vehicle and fuel combination.
func (s *Store) FindNewestMobileMatch(ctx context.Context, key Key, standard string, asOf time.Time) (EmissionFactor, error) {
	var factor EmissionFactor
	err := s.db.WithContext(ctx).
		Where("category = ? AND key_primary = ? AND key_secondary = ? AND standard = ?",
			string(CategoryMobileSource), key.Primary, key.Secondary, standard).
		Where("effective_at_s <= ?", asOf.Unix()).
		Order("model_year DESC, effective_at_s DESC").
		First(&factor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EmissionFactor{}, fmt.Errorf("%w: %s/%s", ErrFactorNotFound, CategoryMobileSource, key)
	}
	if err != nil {
		return EmissionFactor{}, err
	}
	return factor, nil
}

// Publish inserts a new factor row. Existing rows are never updated.
func (s *Store) Publish(ctx context.Context, factor EmissionFactor) error {
	if factor.FactorID == "" {
		return fmt.Errorf("factors: factor id is required")
	}
	return s.db.WithContext(ctx).Create(&factor).Error
}
