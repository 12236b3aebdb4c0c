package ledger

import (
	"errors"

	"gorm.io/datatypes"
)

var (
	// ErrNoCalculation indicates no ledger row exists for the activity.
	ErrNoCalculation = errors.New("ledger: no calculation for activity")
	// ErrInvalidAppend indicates an append request missing required identifiers.
	ErrInvalidAppend = errors.New("ledger: invalid append request")
)

// Row is one immutable ledger entry. Rows are only ever inserted; the
// current value for an activity is the row with the greatest calculated-at
// timestamp, and every earlier row remains for audit.
type Row struct {
	RowID             string         `gorm:"column:row_id;primaryKey;size:190;not null"`
	ActivityID        string         `gorm:"column:activity_id;size:190;not null;index:idx_ledger_activity_time,priority:1"`
	CompanyID         string         `gorm:"column:company_id;size:190;not null;index:idx_ledger_period,priority:1"`
	ReportingPeriodID string         `gorm:"column:reporting_period_id;size:190;not null;index:idx_ledger_period,priority:2"`
	ActivityType      string         `gorm:"column:activity_type;size:64;not null"`
	Method            string         `gorm:"column:method;size:64;not null"`
	Standard          string         `gorm:"column:standard;size:64;not null;default:''"`
	CO2Kg             float64        `gorm:"column:co2_kg;not null;default:0"`
	CH4G              float64        `gorm:"column:ch4_g;not null;default:0"`
	N2OG              float64        `gorm:"column:n2o_g;not null;default:0"`
	TotalCO2eMt       float64        `gorm:"column:total_co2e_mt;not null;default:0"`
	LocationCO2eMt    *float64       `gorm:"column:location_co2e_mt"`
	MarketCO2eMt      *float64       `gorm:"column:market_co2e_mt"`
	MarketIsFallback  bool           `gorm:"column:market_is_fallback;not null;default:false"`
	BreakdownJSON     datatypes.JSON `gorm:"column:breakdown_json"`
	CalculatedBy      string         `gorm:"column:calculated_by;size:190;not null"`
	CalculatedAtNs    int64          `gorm:"column:calculated_at_ns;not null;index:idx_ledger_activity_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Row) TableName() string {
	return "calculation_ledger"
}
