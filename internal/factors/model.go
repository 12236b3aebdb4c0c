package factors

import (
	"errors"
	"fmt"
	"strings"
)

// Category enumerates the emission factor families held by the store.
type Category string

const (
	// CategoryStationaryFuel covers combustion in fixed equipment, keyed by fuel name.
	CategoryStationaryFuel Category = "stationary_fuel"
	// CategoryMobileSource covers vehicle fuel use, keyed by vehicle type, model year and fuel.
	CategoryMobileSource Category = "mobile_source"
	// CategoryRefrigerantGWP holds warming potentials for refrigerant gases and blends.
	CategoryRefrigerantGWP Category = "refrigerant_gwp"
	// CategoryGasGWP holds warming potentials for purchased industrial gases.
	CategoryGasGWP Category = "gas_gwp"
	// CategoryElectricityGrid holds grid intensity, keyed by region or country code.
	CategoryElectricityGrid Category = "electricity_grid"
	// CategorySteam holds district steam and heat intensity.
	CategorySteam Category = "steam"
	// CategoryBusinessTravel holds per-distance travel factors keyed by mode.
	CategoryBusinessTravel Category = "business_travel"
	// CategoryHotel holds per-night stay factors keyed by country code.
	CategoryHotel Category = "hotel"
	// CategoryCommuting holds per-distance commuting factors keyed by mode.
	CategoryCommuting Category = "commuting"
	// CategoryTransport holds freight transport factors keyed by mode.
	CategoryTransport Category = "transport"
	// CategoryWaste holds disposal factors keyed by material and disposal method.
	CategoryWaste Category = "waste"
)

const maxIdentifierLength = 190

var (
	// ErrFactorNotFound indicates the full resolution chain was exhausted.
	ErrFactorNotFound = errors.New("factors: factor not found")
	// ErrInvalidKey indicates a lookup key with an empty primary component.
	ErrInvalidKey = errors.New("factors: invalid lookup key")
)

// Key is the natural key of a factor within its category. Secondary and
// ModelYear are zero-valued for categories that do not use them.
type Key struct {
	Primary   string
	Secondary string
	ModelYear int
}

// NewKey validates the primary component and returns a Key.
func NewKey(primary, secondary string, modelYear int) (Key, error) {
	trimmedPrimary := strings.TrimSpace(primary)
	if trimmedPrimary == "" {
		return Key{}, fmt.Errorf("%w: empty primary component", ErrInvalidKey)
	}
	if len(trimmedPrimary) > maxIdentifierLength {
		return Key{}, fmt.Errorf("%w: primary exceeds %d characters", ErrInvalidKey, maxIdentifierLength)
	}
	return Key{
		Primary:   trimmedPrimary,
		Secondary: strings.TrimSpace(secondary),
		ModelYear: modelYear,
	}, nil
}

// String renders the key in its canonical pipe-delimited form.
func (k Key) String() string {
	if k.Secondary == "" && k.ModelYear == 0 {
		return k.Primary
	}
	return fmt.Sprintf("%s|%s|%d", k.Primary, k.Secondary, k.ModelYear)
}

// EmissionFactor is one immutable, versioned factor row. Corrections are
// published as new rows with a later effective date, never edited in place.
type EmissionFactor struct {
	FactorID           string  `gorm:"column:factor_id;primaryKey;size:190;not null"`
	Category           string  `gorm:"column:category;size:64;not null;index:idx_factors_lookup,priority:1"`
	KeyPrimary         string  `gorm:"column:key_primary;size:190;not null;index:idx_factors_lookup,priority:2"`
	KeySecondary       string  `gorm:"column:key_secondary;size:190;not null;default:'';index:idx_factors_lookup,priority:3"`
	ModelYear          int     `gorm:"column:model_year;not null;default:0"`
	Standard           string  `gorm:"column:standard;size:64;not null;index:idx_factors_lookup,priority:4"`
	Unit               string  `gorm:"column:unit;size:32;not null"`
	CO2KgPerUnit       float64 `gorm:"column:co2_kg_per_unit;not null;default:0"`
	CH4GPerUnit        float64 `gorm:"column:ch4_g_per_unit;not null;default:0"`
	N2OGPerUnit        float64 `gorm:"column:n2o_g_per_unit;not null;default:0"`
	GWP                float64 `gorm:"column:gwp;not null;default:0"`
	EffectiveAtSeconds int64   `gorm:"column:effective_at_s;not null;index:idx_factors_lookup,priority:5"`
	Source             string  `gorm:"column:source;size:320;not null;default:''"`
	CreatedAtSeconds   int64   `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (EmissionFactor) TableName() string {
	return "emission_factors"
}

// Key reconstructs the natural key of the stored row.
func (f EmissionFactor) Key() Key {
	return Key{Primary: f.KeyPrimary, Secondary: f.KeySecondary, ModelYear: f.ModelYear}
}

// Origin records which tier of the resolution chain produced a factor.
type Origin string

const (
	// OriginStore marks an exact match from the factor store.
	OriginStore Origin = "store"
	// OriginRelaxedMatch marks a mobile-source match that dropped the model year.
	OriginRelaxedMatch Origin = "relaxed_match"
	// OriginCountryRefined marks an electricity factor refined to country level.
	OriginCountryRefined Origin = "country_refined"
	// OriginStatic marks a value from the embedded constant table.
	OriginStatic Origin = "static"
)

// Resolved pairs a factor with the provenance of its resolution.
type Resolved struct {
	Factor EmissionFactor
	Origin Origin
}
