package summary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/veridianhq/carbonledger/internal/emissions"
	"github.com/veridianhq/carbonledger/internal/ledger"
	"gorm.io/gorm"
)

const (
	testCompany = "company-1"
	testPeriod  = "2026-q1"
)

var summaryEpoch = time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "summary_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&ledger.Row{}, &PeriodSummary{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    func() time.Time { return summaryEpoch },
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

var ledgerRowSequence int

func insertLedgerRow(t *testing.T, db *gorm.DB, activityID string, activityType emissions.ActivityType, totalMt float64, calculatedAt time.Time) ledger.Row {
	t.Helper()
	ledgerRowSequence++
	row := ledger.Row{
		RowID:             fmt.Sprintf("row-%06d", ledgerRowSequence),
		ActivityID:        activityID,
		CompanyID:         testCompany,
		ReportingPeriodID: testPeriod,
		ActivityType:      string(activityType),
		Method:            "test_v1",
		Standard:          "GHG_PROTOCOL",
		TotalCO2eMt:       totalMt,
		CalculatedBy:      "user-1",
		CalculatedAtNs:    calculatedAt.UnixNano(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("failed to insert ledger row: %v", err)
	}
	return row
}

func insertScope2Row(t *testing.T, db *gorm.DB, activityID string, activityType emissions.ActivityType, locationMt, marketMt float64, calculatedAt time.Time) {
	t.Helper()
	ledgerRowSequence++
	row := ledger.Row{
		RowID:             fmt.Sprintf("row-%06d", ledgerRowSequence),
		ActivityID:        activityID,
		CompanyID:         testCompany,
		ReportingPeriodID: testPeriod,
		ActivityType:      string(activityType),
		Method:            "test_v1",
		Standard:          "GHG_PROTOCOL",
		TotalCO2eMt:       locationMt,
		LocationCO2eMt:    &locationMt,
		MarketCO2eMt:      &marketMt,
		CalculatedBy:      "user-1",
		CalculatedAtNs:    calculatedAt.UnixNano(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("failed to insert ledger row: %v", err)
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecomputeBucketsAndTotals(t *testing.T) {
	service, db := newTestService(t)
	at := summaryEpoch.Add(-time.Hour)

	insertLedgerRow(t, db, "act-stationary", emissions.ActivityStationaryCombustion, 10, at)
	insertLedgerRow(t, db, "act-mobile", emissions.ActivityMobileCombustion, 5, at)
	insertLedgerRow(t, db, "act-screening", emissions.ActivityRefrigerantScreening, 2, at)
	insertLedgerRow(t, db, "act-balance", emissions.ActivityRefrigerantMaterialBalance, 3, at)
	insertLedgerRow(t, db, "act-gas", emissions.ActivityPurchasedGas, 1, at)
	insertScope2Row(t, db, "act-electricity", emissions.ActivityElectricity, 8, 6, at)
	insertScope2Row(t, db, "act-steam", emissions.ActivitySteam, 2, 2, at)
	insertLedgerRow(t, db, "act-travel", emissions.ActivityBusinessTravel, 4, at)
	insertLedgerRow(t, db, "act-waste", emissions.ActivityWasteDisposal, 1.5, at)
	insertLedgerRow(t, db, "act-offset", emissions.ActivityCarbonOffset, -7, at)

	got, err := service.Recompute(context.Background(), testCompany, testPeriod)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	// Both refrigerant methods land in the same bucket.
	if !closeTo(got.Scope1RefrigerationMt, 5) {
		t.Fatalf("expected 5 mt refrigeration, got %v", got.Scope1RefrigerationMt)
	}
	if !closeTo(got.Scope1GrossMt, 21) {
		t.Fatalf("expected 21 mt scope 1 gross, got %v", got.Scope1GrossMt)
	}
	if !closeTo(got.Scope1NetMt, 14) {
		t.Fatalf("expected 14 mt scope 1 net, got %v", got.Scope1NetMt)
	}
	if !closeTo(got.Scope2LocationMt, 10) {
		t.Fatalf("expected 10 mt scope 2 location, got %v", got.Scope2LocationMt)
	}
	if !closeTo(got.Scope2MarketMt, 8) {
		t.Fatalf("expected 8 mt scope 2 market, got %v", got.Scope2MarketMt)
	}
	if !closeTo(got.Scope3TotalMt, 5.5) {
		t.Fatalf("expected 5.5 mt scope 3, got %v", got.Scope3TotalMt)
	}
	if !closeTo(got.Scope12LocationGrossMt, 31) {
		t.Fatalf("expected 31 mt scope 1+2 location gross, got %v", got.Scope12LocationGrossMt)
	}
	if !closeTo(got.Scope12LocationNetMt, 24) {
		t.Fatalf("expected 24 mt scope 1+2 location net, got %v", got.Scope12LocationNetMt)
	}
	if !closeTo(got.Scope12MarketGrossMt, 29) {
		t.Fatalf("expected 29 mt scope 1+2 market gross, got %v", got.Scope12MarketGrossMt)
	}
	if !closeTo(got.Scope12MarketNetMt, 22) {
		t.Fatalf("expected 22 mt scope 1+2 market net, got %v", got.Scope12MarketNetMt)
	}
	if got.CalculationStatus != CalculationStatusComplete {
		t.Fatalf("expected complete status, got %q", got.CalculationStatus)
	}
	if got.ComputedAtSeconds != summaryEpoch.Unix() {
		t.Fatalf("expected computed-at %d, got %d", summaryEpoch.Unix(), got.ComputedAtSeconds)
	}
}

func TestRecomputeUsesLatestRowPerActivity(t *testing.T) {
	service, db := newTestService(t)

	insertLedgerRow(t, db, "act-1", emissions.ActivityStationaryCombustion, 10, summaryEpoch.Add(-2*time.Hour))
	insertLedgerRow(t, db, "act-1", emissions.ActivityStationaryCombustion, 4, summaryEpoch.Add(-time.Hour))

	got, err := service.Recompute(context.Background(), testCompany, testPeriod)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if !closeTo(got.Scope1StationaryMt, 4) {
		t.Fatalf("expected latest row only, got %v", got.Scope1StationaryMt)
	}
}

func TestRecomputeBreaksSameTimestampTiesByRowID(t *testing.T) {
	service, db := newTestService(t)
	at := summaryEpoch.Add(-time.Hour)

	insertLedgerRow(t, db, "act-1", emissions.ActivityStationaryCombustion, 10, at)
	insertLedgerRow(t, db, "act-1", emissions.ActivityStationaryCombustion, 4, at)

	got, err := service.Recompute(context.Background(), testCompany, testPeriod)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if !closeTo(got.Scope1StationaryMt, 4) {
		t.Fatalf("expected later append to win the tie, got %v", got.Scope1StationaryMt)
	}
}

func TestRecomputeOverwritesEveryColumn(t *testing.T) {
	service, db := newTestService(t)

	row := insertLedgerRow(t, db, "act-1", emissions.ActivityWasteDisposal, 3, summaryEpoch.Add(-2*time.Hour))
	if _, err := service.Recompute(context.Background(), testCompany, testPeriod); err != nil {
		t.Fatalf("first recompute failed: %v", err)
	}

	// Remove the activity's rows entirely; the category must drop to zero,
	// not retain its previous total.
	if err := db.Where("activity_id = ?", row.ActivityID).Delete(&ledger.Row{}).Error; err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	insertLedgerRow(t, db, "act-2", emissions.ActivityBusinessTravel, 2, summaryEpoch.Add(-time.Hour))

	got, err := service.Recompute(context.Background(), testCompany, testPeriod)
	if err != nil {
		t.Fatalf("second recompute failed: %v", err)
	}
	if got.Scope3WasteMt != 0 {
		t.Fatalf("expected waste total reset to zero, got %v", got.Scope3WasteMt)
	}
	if !closeTo(got.Scope3TravelMt, 2) {
		t.Fatalf("expected 2 mt travel, got %v", got.Scope3TravelMt)
	}

	var count int64
	if err := db.Model(&PeriodSummary{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single summary row, got %d", count)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	service, db := newTestService(t)

	insertLedgerRow(t, db, "act-1", emissions.ActivityStationaryCombustion, 10, summaryEpoch.Add(-time.Hour))
	insertScope2Row(t, db, "act-2", emissions.ActivityElectricity, 8, 6, summaryEpoch.Add(-time.Hour))

	first, err := service.Recompute(context.Background(), testCompany, testPeriod)
	if err != nil {
		t.Fatalf("first recompute failed: %v", err)
	}
	second, err := service.Recompute(context.Background(), testCompany, testPeriod)
	if err != nil {
		t.Fatalf("second recompute failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical summaries, got %+v vs %+v", first, second)
	}
}

func TestRecomputeEmptyPeriodProducesZeroSummary(t *testing.T) {
	service, _ := newTestService(t)

	got, err := service.Recompute(context.Background(), testCompany, testPeriod)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if got.Scope1GrossMt != 0 || got.Scope2LocationMt != 0 || got.Scope3TotalMt != 0 {
		t.Fatalf("expected zero totals, got %+v", got)
	}
	if got.CalculationStatus != CalculationStatusComplete {
		t.Fatalf("expected complete status, got %q", got.CalculationStatus)
	}
}

func TestGetMissingSummaryYieldsNoSummary(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Get(context.Background(), testCompany, "2026-q4")
	if !errors.Is(err, ErrNoSummary) {
		t.Fatalf("expected ErrNoSummary, got %v", err)
	}
}

func TestEveryActivityTypeHasExactlyOneBucket(t *testing.T) {
	for _, activityType := range emissions.AllActivityTypes {
		if _, ok := BucketFor(activityType); !ok {
			t.Fatalf("%s: missing bucket classification", activityType)
		}
	}
	if len(bucketByActivityType) != len(emissions.AllActivityTypes) {
		t.Fatalf("bucket table has %d entries for %d activity types",
			len(bucketByActivityType), len(emissions.AllActivityTypes))
	}
}
