package summary

import (
	"errors"

	"github.com/veridianhq/carbonledger/internal/emissions"
)

var (
	// ErrNoSummary indicates no summary row exists for the company and period.
	ErrNoSummary = errors.New("summary: no summary for period")
	// ErrUnclassifiedActivityType indicates a ledger row whose type is
	// missing from the bucket table; the classification table and the
	// activity enumeration must stay in lockstep.
	ErrUnclassifiedActivityType = errors.New("summary: unclassified activity type")
)

// CalculationStatusComplete marks a summary row fully recomputed.
const CalculationStatusComplete = "complete"

// PeriodSummary is the single roll-up row per company and reporting
// period. Only the aggregator writes it, always by full overwrite, so it
// can never mix old and new category totals.
type PeriodSummary struct {
	CompanyID         string `gorm:"column:company_id;primaryKey;size:190;not null" json:"company_id"`
	ReportingPeriodID string `gorm:"column:reporting_period_id;primaryKey;size:190;not null" json:"reporting_period_id"`

	Scope1StationaryMt      float64 `gorm:"column:scope1_stationary_mt;not null;default:0" json:"scope1_stationary_mt"`
	Scope1MobileMt          float64 `gorm:"column:scope1_mobile_mt;not null;default:0" json:"scope1_mobile_mt"`
	Scope1RefrigerationMt   float64 `gorm:"column:scope1_refrigeration_mt;not null;default:0" json:"scope1_refrigeration_mt"`
	Scope1FireSuppressionMt float64 `gorm:"column:scope1_fire_suppression_mt;not null;default:0" json:"scope1_fire_suppression_mt"`
	Scope1PurchasedGasMt    float64 `gorm:"column:scope1_purchased_gas_mt;not null;default:0" json:"scope1_purchased_gas_mt"`
	Scope1GrossMt           float64 `gorm:"column:scope1_gross_mt;not null;default:0" json:"scope1_gross_mt"`
	Scope1NetMt             float64 `gorm:"column:scope1_net_mt;not null;default:0" json:"scope1_net_mt"`

	Scope2ElectricityLocationMt float64 `gorm:"column:scope2_electricity_location_mt;not null;default:0" json:"scope2_electricity_location_mt"`
	Scope2ElectricityMarketMt   float64 `gorm:"column:scope2_electricity_market_mt;not null;default:0" json:"scope2_electricity_market_mt"`
	Scope2SteamLocationMt       float64 `gorm:"column:scope2_steam_location_mt;not null;default:0" json:"scope2_steam_location_mt"`
	Scope2SteamMarketMt         float64 `gorm:"column:scope2_steam_market_mt;not null;default:0" json:"scope2_steam_market_mt"`
	Scope2LocationMt            float64 `gorm:"column:scope2_location_mt;not null;default:0" json:"scope2_location_mt"`
	Scope2MarketMt              float64 `gorm:"column:scope2_market_mt;not null;default:0" json:"scope2_market_mt"`

	Scope3TravelMt    float64 `gorm:"column:scope3_travel_mt;not null;default:0" json:"scope3_travel_mt"`
	Scope3HotelMt     float64 `gorm:"column:scope3_hotel_mt;not null;default:0" json:"scope3_hotel_mt"`
	Scope3CommutingMt float64 `gorm:"column:scope3_commuting_mt;not null;default:0" json:"scope3_commuting_mt"`
	Scope3TransportMt float64 `gorm:"column:scope3_transport_mt;not null;default:0" json:"scope3_transport_mt"`
	Scope3WasteMt     float64 `gorm:"column:scope3_waste_mt;not null;default:0" json:"scope3_waste_mt"`
	Scope3TotalMt     float64 `gorm:"column:scope3_total_mt;not null;default:0" json:"scope3_total_mt"`

	// Offsets carry negative CO2e, so net totals are value-wise additions.
	OffsetsMt float64 `gorm:"column:offsets_mt;not null;default:0" json:"offsets_mt"`

	Scope12LocationGrossMt float64 `gorm:"column:scope12_location_gross_mt;not null;default:0" json:"scope12_location_gross_mt"`
	Scope12LocationNetMt   float64 `gorm:"column:scope12_location_net_mt;not null;default:0" json:"scope12_location_net_mt"`
	Scope12MarketGrossMt   float64 `gorm:"column:scope12_market_gross_mt;not null;default:0" json:"scope12_market_gross_mt"`
	Scope12MarketNetMt     float64 `gorm:"column:scope12_market_net_mt;not null;default:0" json:"scope12_market_net_mt"`

	CalculationStatus string `gorm:"column:calculation_status;size:32;not null;default:''" json:"calculation_status"`
	ComputedAtSeconds int64  `gorm:"column:computed_at_s;not null" json:"computed_at_s"`
}

// TableName provides the explicit table binding for GORM.
func (PeriodSummary) TableName() string {
	return "period_summaries"
}

// Bucket identifies the single scope category an activity type rolls into.
type Bucket string

const (
	BucketScope1Stationary      Bucket = "scope1_stationary"
	BucketScope1Mobile          Bucket = "scope1_mobile"
	BucketScope1Refrigeration   Bucket = "scope1_refrigeration"
	BucketScope1FireSuppression Bucket = "scope1_fire_suppression"
	BucketScope1PurchasedGas    Bucket = "scope1_purchased_gas"
	BucketScope2Electricity     Bucket = "scope2_electricity"
	BucketScope2Steam           Bucket = "scope2_steam"
	BucketScope3Travel          Bucket = "scope3_travel"
	BucketScope3Hotel           Bucket = "scope3_hotel"
	BucketScope3Commuting       Bucket = "scope3_commuting"
	BucketScope3Transport       Bucket = "scope3_transport"
	BucketScope3Waste           Bucket = "scope3_waste"
	BucketOffsets               Bucket = "offsets"
)

// bucketByActivityType is the static classification table. Every activity
// type appears exactly once; classification is never inferred from data.
var bucketByActivityType = map[emissions.ActivityType]Bucket{
	emissions.ActivityStationaryCombustion:       BucketScope1Stationary,
	emissions.ActivityMobileCombustion:           BucketScope1Mobile,
	emissions.ActivityRefrigerantMaterialBalance: BucketScope1Refrigeration,
	emissions.ActivityRefrigerantScreening:       BucketScope1Refrigeration,
	emissions.ActivityFireSuppression:            BucketScope1FireSuppression,
	emissions.ActivityPurchasedGas:               BucketScope1PurchasedGas,
	emissions.ActivityElectricity:                BucketScope2Electricity,
	emissions.ActivitySteam:                      BucketScope2Steam,
	emissions.ActivityBusinessTravel:             BucketScope3Travel,
	emissions.ActivityHotelStay:                  BucketScope3Hotel,
	emissions.ActivityEmployeeCommuting:          BucketScope3Commuting,
	emissions.ActivityTransportDistribution:      BucketScope3Transport,
	emissions.ActivityWasteDisposal:              BucketScope3Waste,
	emissions.ActivityCarbonOffset:               BucketOffsets,
}

// BucketFor classifies an activity type.
func BucketFor(activityType emissions.ActivityType) (Bucket, bool) {
	bucket, ok := bucketByActivityType[activityType]
	return bucket, ok
}
