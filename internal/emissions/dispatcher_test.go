package emissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/veridianhq/carbonledger/internal/factors"
)

// stubResolver serves factors from an in-memory table keyed by category and
// lookup key, standing in for the full resolution chain.
type stubResolver struct {
	table map[string]factors.EmissionFactor
}

func newStubResolver() *stubResolver {
	return &stubResolver{table: make(map[string]factors.EmissionFactor)}
}

func (r *stubResolver) add(category factors.Category, key factors.Key, factor factors.EmissionFactor) {
	r.table[fmt.Sprintf("%s|%s", category, key)] = factor
}

func (r *stubResolver) Resolve(_ context.Context, lookup factors.Lookup) (factors.Resolved, error) {
	factor, ok := r.table[fmt.Sprintf("%s|%s", lookup.Category, lookup.Key)]
	if !ok {
		return factors.Resolved{}, factors.ErrFactorNotFound
	}
	return factors.Resolved{Factor: factor, Origin: factors.OriginStore}, nil
}

func newTestDispatcher(t *testing.T, resolver FactorResolver) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(DispatcherConfig{
		Resolver: resolver,
		Standard: "GHG_PROTOCOL",
	})
	if err != nil {
		t.Fatalf("failed to build dispatcher: %v", err)
	}
	return dispatcher
}

func mustCalculate(t *testing.T, dispatcher *Dispatcher, activityType ActivityType, payload string) Result {
	t.Helper()
	result, err := dispatcher.Calculate(context.Background(), Request{
		ActivityType: activityType,
		Payload:      json.RawMessage(payload),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStationaryCombustionWeightsTraceGases(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryStationaryFuel, factors.Key{Primary: "natural_gas"}, factors.EmissionFactor{
		FactorID:     "ngas",
		Unit:         "therm",
		CO2KgPerUnit: 5.302,
		CH4GPerUnit:  0.1,
		N2OGPerUnit:  0.01,
	})
	dispatcher := newTestDispatcher(t, resolver)

	result := mustCalculate(t, dispatcher, ActivityStationaryCombustion,
		`{"fuel_type":"natural_gas","quantity":1000,"unit":"therm"}`)

	if !almostEqual(result.CO2Kg, 5302) {
		t.Fatalf("expected 5302 kg CO2, got %v", result.CO2Kg)
	}
	if !almostEqual(result.CH4G, 100) {
		t.Fatalf("expected 100 g CH4, got %v", result.CH4G)
	}
	if !almostEqual(result.N2OG, 10) {
		t.Fatalf("expected 10 g N2O, got %v", result.N2OG)
	}
	// 5302 + 0.1*28 + 0.01*265 kg = 5307.45 kg = 5.30745 mt
	if !almostEqual(result.TotalCO2eMt, 5.30745) {
		t.Fatalf("expected 5.30745 mt CO2e, got %v", result.TotalCO2eMt)
	}
	if result.Method != "stationary_combustion_v1" {
		t.Fatalf("unexpected method %q", result.Method)
	}
	if result.Standard != "GHG_PROTOCOL" {
		t.Fatalf("unexpected standard %q", result.Standard)
	}
}

func TestStationaryCombustionConvertsToFactorUnit(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryStationaryFuel, factors.Key{Primary: "natural_gas"}, factors.EmissionFactor{
		Unit:         "therm",
		CO2KgPerUnit: 5.302,
	})
	dispatcher := newTestDispatcher(t, resolver)

	// 1 mmbtu is 10 therms.
	result := mustCalculate(t, dispatcher, ActivityStationaryCombustion,
		`{"fuel_type":"natural_gas","quantity":1,"unit":"mmbtu"}`)

	if !almostEqual(result.CO2Kg, 53.02) {
		t.Fatalf("expected 53.02 kg CO2, got %v", result.CO2Kg)
	}
}

func TestMaterialBalanceSignConvention(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryRefrigerantGWP, factors.Key{Primary: "R-22"}, factors.EmissionFactor{
		GWP: 1430,
	})
	dispatcher := newTestDispatcher(t, resolver)

	// A 5 kg inventory drop with nothing recharged or transferred means
	// 5 kg escaped containment.
	result := mustCalculate(t, dispatcher, ActivityRefrigerantMaterialBalance,
		`{"gas_type":"R-22","inventory_change_kg":-5,"transferred_kg":0,"capacity_change_kg":0,"recharged_kg":0}`)

	if !almostEqual(result.TotalCO2eMt, 7.15) {
		t.Fatalf("expected 7.15 mt CO2e, got %v", result.TotalCO2eMt)
	}
	if !almostEqual(result.Breakdown.Intermediate["emitted_kg"], 5) {
		t.Fatalf("expected 5 kg emitted, got %v", result.Breakdown.Intermediate["emitted_kg"])
	}
}

func TestMaterialBalanceCapacityGrowthReducesEmissions(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryRefrigerantGWP, factors.Key{Primary: "R-404A"}, factors.EmissionFactor{
		GWP: 3943,
	})
	dispatcher := newTestDispatcher(t, resolver)

	// 10 kg recharged into 8 kg of new capacity leaves 2 kg emitted.
	result := mustCalculate(t, dispatcher, ActivityRefrigerantMaterialBalance,
		`{"gas_type":"R-404A","inventory_change_kg":0,"transferred_kg":0,"capacity_change_kg":8,"recharged_kg":10}`)

	if !almostEqual(result.TotalCO2eMt, roundCO2e(2*3943/1000.0)) {
		t.Fatalf("expected %v mt CO2e, got %v", roundCO2e(2*3943/1000.0), result.TotalCO2eMt)
	}
}

func TestScreeningKnownEquipmentRates(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryRefrigerantGWP, factors.Key{Primary: "HFC-134a"}, factors.EmissionFactor{
		GWP: 1300,
	})
	dispatcher := newTestDispatcher(t, resolver)

	result := mustCalculate(t, dispatcher, ActivityRefrigerantScreening,
		`{"gas_type":"HFC-134a","equipment_type":"chiller","new_charge_kg":100,"operating_capacity_kg":200,"disposed_capacity_kg":50}`)

	// 0.01*100 + 0.11*200 + 0.95*50 = 70.5 kg
	expected := roundCO2e(70.5 * 1300 / 1000.0)
	if !almostEqual(result.TotalCO2eMt, expected) {
		t.Fatalf("expected %v mt CO2e, got %v", expected, result.TotalCO2eMt)
	}
	if len(result.Breakdown.Notes) != 0 {
		t.Fatalf("expected no notes for known equipment, got %v", result.Breakdown.Notes)
	}
}

func TestScreeningUnknownEquipmentUsesConservativeRates(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryRefrigerantGWP, factors.Key{Primary: "HFC-134a"}, factors.EmissionFactor{
		GWP: 1300,
	})
	dispatcher := newTestDispatcher(t, resolver)

	result := mustCalculate(t, dispatcher, ActivityRefrigerantScreening,
		`{"gas_type":"HFC-134a","equipment_type":"quantum_cooler","new_charge_kg":10,"operating_capacity_kg":100,"disposed_capacity_kg":20}`)

	// 0.03*10 + 0.35*100 + 1.0*20 = 55.3 kg
	expected := roundCO2e(55.3 * 1300 / 1000.0)
	if !almostEqual(result.TotalCO2eMt, expected) {
		t.Fatalf("expected %v mt CO2e, got %v", expected, result.TotalCO2eMt)
	}
	if len(result.Breakdown.Notes) == 0 {
		t.Fatal("expected a note about unknown equipment")
	}
	if !strings.Contains(result.Breakdown.Notes[0], "conservative") {
		t.Fatalf("unexpected note %q", result.Breakdown.Notes[0])
	}
}

func TestElectricityWithoutSupplierFallsBackMarketFigure(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryElectricityGrid, factors.Key{Primary: "north_america"}, factors.EmissionFactor{
		Unit:         "kWh",
		CO2KgPerUnit: 0.4,
	})
	dispatcher := newTestDispatcher(t, resolver)

	result := mustCalculate(t, dispatcher, ActivityElectricity,
		`{"kwh":10000,"grid_region":"north_america"}`)

	if !result.Scope2() {
		t.Fatal("expected dual scope 2 figures")
	}
	if !almostEqual(*result.LocationCO2eMt, 4.0) {
		t.Fatalf("expected 4.0 mt location, got %v", *result.LocationCO2eMt)
	}
	if *result.MarketCO2eMt != *result.LocationCO2eMt {
		t.Fatalf("expected market fallback to equal location, got %v vs %v", *result.MarketCO2eMt, *result.LocationCO2eMt)
	}
	if !result.MarketIsFallback {
		t.Fatal("expected market fallback flag")
	}
	if result.TotalCO2eMt != *result.LocationCO2eMt {
		t.Fatalf("expected total to carry location figure, got %v", result.TotalCO2eMt)
	}
}

func TestElectricityWithSupplierProducesDistinctMarketFigure(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryElectricityGrid, factors.Key{Primary: "north_america"}, factors.EmissionFactor{
		Unit:         "kWh",
		CO2KgPerUnit: 0.4,
	})
	dispatcher := newTestDispatcher(t, resolver)

	result := mustCalculate(t, dispatcher, ActivityElectricity,
		`{"kwh":10000,"grid_region":"north_america","supplier_name":"GreenCo","supplier_co2_kg_per_kwh":0.1}`)

	if !almostEqual(*result.LocationCO2eMt, 4.0) {
		t.Fatalf("expected 4.0 mt location, got %v", *result.LocationCO2eMt)
	}
	if !almostEqual(*result.MarketCO2eMt, 1.0) {
		t.Fatalf("expected 1.0 mt market, got %v", *result.MarketCO2eMt)
	}
	if result.MarketIsFallback {
		t.Fatal("expected market fallback flag unset")
	}
}

func TestSteamConvertsQuantityToKWh(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategorySteam, factors.Key{Primary: "district_north"}, factors.EmissionFactor{
		Unit:         "kWh",
		CO2KgPerUnit: 0.2,
	})
	dispatcher := newTestDispatcher(t, resolver)

	result := mustCalculate(t, dispatcher, ActivitySteam,
		`{"quantity":2,"unit":"mwh","region":"district_north"}`)

	if !almostEqual(result.CO2Kg, 400) {
		t.Fatalf("expected 400 kg CO2 for 2000 kWh, got %v", result.CO2Kg)
	}
}

func TestBusinessTravelUnknownModeYieldsZeroWithNote(t *testing.T) {
	dispatcher := newTestDispatcher(t, newStubResolver())

	result := mustCalculate(t, dispatcher, ActivityBusinessTravel,
		`{"mode":"teleport","distance":500,"distance_unit":"km"}`)

	if result.TotalCO2eMt != 0 {
		t.Fatalf("expected zero total, got %v", result.TotalCO2eMt)
	}
	if len(result.Breakdown.Notes) == 0 {
		t.Fatal("expected a degradation note")
	}
}

func TestTransportDistributionUsesTonneKilometres(t *testing.T) {
	resolver := newStubResolver()
	resolver.add(factors.CategoryTransport, factors.Key{Primary: "truck"}, factors.EmissionFactor{
		Unit:         "tonne_km",
		CO2KgPerUnit: 0.107,
	})
	dispatcher := newTestDispatcher(t, resolver)

	result := mustCalculate(t, dispatcher, ActivityTransportDistribution,
		`{"mode":"truck","weight_tonnes":10,"distance":100,"distance_unit":"km"}`)

	if !almostEqual(result.CO2Kg, 107) {
		t.Fatalf("expected 107 kg CO2 for 1000 tonne-km, got %v", result.CO2Kg)
	}
	if !almostEqual(result.Breakdown.Intermediate["tonne_km"], 1000) {
		t.Fatalf("expected 1000 tonne-km, got %v", result.Breakdown.Intermediate["tonne_km"])
	}
}

func TestCarbonOffsetStoresNegativeTotal(t *testing.T) {
	dispatcher := newTestDispatcher(t, newStubResolver())

	result := mustCalculate(t, dispatcher, ActivityCarbonOffset,
		`{"co2e_mt":12.5,"registry":"verra","credit_id":"VCS-1234"}`)

	if !almostEqual(result.TotalCO2eMt, -12.5) {
		t.Fatalf("expected -12.5 mt CO2e, got %v", result.TotalCO2eMt)
	}
	if result.CO2Kg != 0 || result.CH4G != 0 || result.N2OG != 0 {
		t.Fatal("expected no gas breakdown for offsets")
	}
}

func TestUnknownActivityTypeRejected(t *testing.T) {
	dispatcher := newTestDispatcher(t, newStubResolver())

	_, err := dispatcher.Calculate(context.Background(), Request{
		ActivityType: ActivityType("cold_fusion"),
		Payload:      json.RawMessage(`{}`),
	})
	if !errors.Is(err, ErrUnknownActivityType) {
		t.Fatalf("expected ErrUnknownActivityType, got %v", err)
	}
}

func TestMalformedPayloadSurfacesCalculationFailed(t *testing.T) {
	dispatcher := newTestDispatcher(t, newStubResolver())

	_, err := dispatcher.Calculate(context.Background(), Request{
		ActivityType: ActivityStationaryCombustion,
		Payload:      json.RawMessage(`{"fuel_type":`),
	})
	if !errors.Is(err, ErrCalculationFailed) {
		t.Fatalf("expected ErrCalculationFailed, got %v", err)
	}
}

func TestUnknownPayloadFieldRejected(t *testing.T) {
	dispatcher := newTestDispatcher(t, newStubResolver())

	_, err := dispatcher.Calculate(context.Background(), Request{
		ActivityType: ActivityStationaryCombustion,
		Payload:      json.RawMessage(`{"fuel_type":"diesel","quantity":1,"unit":"gallon","bogus":true}`),
	})
	if !errors.Is(err, ErrCalculationFailed) {
		t.Fatalf("expected ErrCalculationFailed, got %v", err)
	}
}

func TestNegativeQuantityRejected(t *testing.T) {
	dispatcher := newTestDispatcher(t, newStubResolver())

	_, err := dispatcher.Calculate(context.Background(), Request{
		ActivityType: ActivityStationaryCombustion,
		Payload:      json.RawMessage(`{"fuel_type":"diesel","quantity":-3,"unit":"gallon"}`),
	})
	if !errors.Is(err, ErrCalculationFailed) {
		t.Fatalf("expected ErrCalculationFailed, got %v", err)
	}
}

func TestEveryActivityTypeHasRequiredFields(t *testing.T) {
	for _, activityType := range AllActivityTypes {
		fields, err := RequiredFields(activityType)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", activityType, err)
		}
		if len(fields) == 0 {
			t.Fatalf("%s: expected required fields", activityType)
		}
	}
}
