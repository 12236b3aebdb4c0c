package summary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/veridianhq/carbonledger/internal/emissions"
	"github.com/veridianhq/carbonledger/internal/ledger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opRecompute = "summary.recompute"
	opGet       = "summary.get"
)

// ServiceConfig wires the aggregator's dependencies.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service recomputes and serves period summaries. Every recompute reads
// the latest ledger row per activity in one transaction and overwrites the
// whole summary row; concurrent recomputes are commutative because the
// last writer's fully recomputed row wins.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the aggregator.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("%s: %w", opRecompute, errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Recompute rebuilds the summary for one company and reporting period and
// upserts it, overwriting every column.
func (s *Service) Recompute(ctx context.Context, companyID, reportingPeriodID string) (PeriodSummary, error) {
	if companyID == "" || reportingPeriodID == "" {
		return PeriodSummary{}, fmt.Errorf("%s: company and period identifiers are required", opRecompute)
	}

	var result PeriodSummary
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := latestPerActivity(tx, companyID, reportingPeriodID)
		if err != nil {
			return fmt.Errorf("%s.latest_query_failed: %w", opRecompute, err)
		}

		summary, err := buildSummary(companyID, reportingPeriodID, rows, s.clock().UTC())
		if err != nil {
			return fmt.Errorf("%s.bucket_failed: %w", opRecompute, err)
		}

		// The upsert is the serialization point; row-level locking on the
		// primary key prevents lost updates between concurrent recomputes.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "reporting_period_id"}},
			UpdateAll: true,
		}).Create(&summary).Error; err != nil {
			return fmt.Errorf("%s.upsert_failed: %w", opRecompute, err)
		}

		result = summary
		return nil
	})
	if txErr != nil {
		s.logger.Error("summary recompute failed",
			zap.String("company_id", companyID),
			zap.String("reporting_period_id", reportingPeriodID),
			zap.Error(txErr))
		return PeriodSummary{}, txErr
	}
	return result, nil
}

// Get returns the stored summary row.
func (s *Service) Get(ctx context.Context, companyID, reportingPeriodID string) (PeriodSummary, error) {
	var summary PeriodSummary
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND reporting_period_id = ?", companyID, reportingPeriodID).
		Take(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PeriodSummary{}, fmt.Errorf("%w: %s/%s", ErrNoSummary, companyID, reportingPeriodID)
	}
	if err != nil {
		s.logger.Error("summary lookup failed",
			zap.String("operation", opGet),
			zap.String("company_id", companyID),
			zap.Error(err))
		return PeriodSummary{}, err
	}
	return summary, nil
}

// latestPerActivity reads the current ledger row per distinct activity in
// the period within the caller's transaction, so aggregation sees one
// consistent snapshot.
func latestPerActivity(tx *gorm.DB, companyID, reportingPeriodID string) ([]ledger.Row, error) {
	newest := tx.Model(&ledger.Row{}).
		Select("activity_id, MAX(calculated_at_ns) AS max_ns").
		Where("company_id = ? AND reporting_period_id = ?", companyID, reportingPeriodID).
		Group("activity_id")

	var rows []ledger.Row
	err := tx.Model(&ledger.Row{}).
		Joins("JOIN (?) AS newest ON calculation_ledger.activity_id = newest.activity_id AND calculation_ledger.calculated_at_ns = newest.max_ns", newest).
		Where("calculation_ledger.company_id = ? AND calculation_ledger.reporting_period_id = ?", companyID, reportingPeriodID).
		Order("calculation_ledger.activity_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// Appends landing on the same nanosecond tie-break by row id; UUIDv7
	// identifiers order by creation time.
	current := make(map[string]ledger.Row, len(rows))
	for _, row := range rows {
		existing, ok := current[row.ActivityID]
		if !ok || row.RowID > existing.RowID {
			current[row.ActivityID] = row
		}
	}
	deduped := make([]ledger.Row, 0, len(current))
	for _, row := range rows {
		if current[row.ActivityID].RowID == row.RowID {
			deduped = append(deduped, row)
		}
	}
	return deduped, nil
}

func buildSummary(companyID, reportingPeriodID string, rows []ledger.Row, computedAt time.Time) (PeriodSummary, error) {
	summary := PeriodSummary{
		CompanyID:         companyID,
		ReportingPeriodID: reportingPeriodID,
		CalculationStatus: CalculationStatusComplete,
		ComputedAtSeconds: computedAt.Unix(),
	}

	for _, row := range rows {
		bucket, ok := BucketFor(emissions.ActivityType(row.ActivityType))
		if !ok {
			return PeriodSummary{}, fmt.Errorf("%w: %q", ErrUnclassifiedActivityType, row.ActivityType)
		}

		switch bucket {
		case BucketScope1Stationary:
			summary.Scope1StationaryMt += row.TotalCO2eMt
		case BucketScope1Mobile:
			summary.Scope1MobileMt += row.TotalCO2eMt
		case BucketScope1Refrigeration:
			summary.Scope1RefrigerationMt += row.TotalCO2eMt
		case BucketScope1FireSuppression:
			summary.Scope1FireSuppressionMt += row.TotalCO2eMt
		case BucketScope1PurchasedGas:
			summary.Scope1PurchasedGasMt += row.TotalCO2eMt
		case BucketScope2Electricity:
			summary.Scope2ElectricityLocationMt += scope2Location(row)
			summary.Scope2ElectricityMarketMt += scope2Market(row)
		case BucketScope2Steam:
			summary.Scope2SteamLocationMt += scope2Location(row)
			summary.Scope2SteamMarketMt += scope2Market(row)
		case BucketScope3Travel:
			summary.Scope3TravelMt += row.TotalCO2eMt
		case BucketScope3Hotel:
			summary.Scope3HotelMt += row.TotalCO2eMt
		case BucketScope3Commuting:
			summary.Scope3CommutingMt += row.TotalCO2eMt
		case BucketScope3Transport:
			summary.Scope3TransportMt += row.TotalCO2eMt
		case BucketScope3Waste:
			summary.Scope3WasteMt += row.TotalCO2eMt
		case BucketOffsets:
			summary.OffsetsMt += row.TotalCO2eMt
		}
	}

	summary.Scope1GrossMt = roundMt(summary.Scope1StationaryMt +
		summary.Scope1MobileMt +
		summary.Scope1RefrigerationMt +
		summary.Scope1FireSuppressionMt +
		summary.Scope1PurchasedGasMt)
	// Offsets are stored negative, so net totals are additions in value.
	summary.Scope1NetMt = roundMt(summary.Scope1GrossMt + summary.OffsetsMt)

	summary.Scope2LocationMt = roundMt(summary.Scope2ElectricityLocationMt + summary.Scope2SteamLocationMt)
	summary.Scope2MarketMt = roundMt(summary.Scope2ElectricityMarketMt + summary.Scope2SteamMarketMt)

	summary.Scope3TotalMt = roundMt(summary.Scope3TravelMt +
		summary.Scope3HotelMt +
		summary.Scope3CommutingMt +
		summary.Scope3TransportMt +
		summary.Scope3WasteMt)

	summary.Scope12LocationGrossMt = roundMt(summary.Scope1GrossMt + summary.Scope2LocationMt)
	summary.Scope12LocationNetMt = roundMt(summary.Scope12LocationGrossMt + summary.OffsetsMt)
	summary.Scope12MarketGrossMt = roundMt(summary.Scope1GrossMt + summary.Scope2MarketMt)
	summary.Scope12MarketNetMt = roundMt(summary.Scope12MarketGrossMt + summary.OffsetsMt)

	summary.Scope1StationaryMt = roundMt(summary.Scope1StationaryMt)
	summary.Scope1MobileMt = roundMt(summary.Scope1MobileMt)
	summary.Scope1RefrigerationMt = roundMt(summary.Scope1RefrigerationMt)
	summary.Scope1FireSuppressionMt = roundMt(summary.Scope1FireSuppressionMt)
	summary.Scope1PurchasedGasMt = roundMt(summary.Scope1PurchasedGasMt)
	summary.Scope2ElectricityLocationMt = roundMt(summary.Scope2ElectricityLocationMt)
	summary.Scope2ElectricityMarketMt = roundMt(summary.Scope2ElectricityMarketMt)
	summary.Scope2SteamLocationMt = roundMt(summary.Scope2SteamLocationMt)
	summary.Scope2SteamMarketMt = roundMt(summary.Scope2SteamMarketMt)
	summary.Scope3TravelMt = roundMt(summary.Scope3TravelMt)
	summary.Scope3HotelMt = roundMt(summary.Scope3HotelMt)
	summary.Scope3CommutingMt = roundMt(summary.Scope3CommutingMt)
	summary.Scope3TransportMt = roundMt(summary.Scope3TransportMt)
	summary.Scope3WasteMt = roundMt(summary.Scope3WasteMt)
	summary.OffsetsMt = roundMt(summary.OffsetsMt)

	return summary, nil
}

func scope2Location(row ledger.Row) float64 {
	if row.LocationCO2eMt != nil {
		return *row.LocationCO2eMt
	}
	return row.TotalCO2eMt
}

func scope2Market(row ledger.Row) float64 {
	if row.MarketCO2eMt != nil {
		return *row.MarketCO2eMt
	}
	return row.TotalCO2eMt
}

func roundMt(valueMt float64) float64 {
	return math.Round(valueMt*1e6) / 1e6
}
