package emissions

import (
	"context"
	"encoding/json"

	"github.com/veridianhq/carbonledger/internal/factors"
)

// Scope 2 formulas produce two parallel figures: a location-based result
// from grid-average factors and a market-based result from supplier
// factors when the payload supplies them. Without supplier data the
// market figure falls back to the location figure and is flagged.

func computeElectricity(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload ElectricityPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	key, err := factors.NewKey(payload.GridRegion, "", 0)
	if err != nil {
		return Result{}, err
	}

	var co2Kg, ch4G, n2oG float64
	if factor, ok := env.resolveFactor(ctx, "grid_location", factors.CategoryElectricityGrid, key); ok {
		co2Kg = payload.KWh * factor.CO2KgPerUnit
		ch4G = payload.KWh * factor.CH4GPerUnit
		n2oG = payload.KWh * factor.N2OGPerUnit
	}
	return dualScope2Result(env, co2Kg, ch4G, n2oG, payload.KWh, payload.SupplierName, payload.SupplierCO2KgPerKWh), nil
}

func computeSteam(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload SteamPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	kwh, err := convertUnit(payload.Quantity, payload.Unit, "kwh")
	if err != nil {
		return Result{}, err
	}
	env.setIntermediate("normalized_kwh", kwh)

	key, err := factors.NewKey(payload.Region, "", 0)
	if err != nil {
		return Result{}, err
	}

	var co2Kg, ch4G, n2oG float64
	if factor, ok := env.resolveFactor(ctx, "steam_location", factors.CategorySteam, key); ok {
		co2Kg = kwh * factor.CO2KgPerUnit
		ch4G = kwh * factor.CH4GPerUnit
		n2oG = kwh * factor.N2OGPerUnit
	}
	return dualScope2Result(env, co2Kg, ch4G, n2oG, kwh, payload.SupplierName, payload.SupplierCO2KgPerKWh), nil
}

func dualScope2Result(env *formulaEnv, co2Kg, ch4G, n2oG, kwh float64, supplierName string, supplierCO2KgPerKWh *float64) Result {
	locationMt := weightCO2e(co2Kg, ch4G, n2oG)

	marketMt := locationMt
	fallback := true
	if supplierCO2KgPerKWh != nil {
		marketMt = roundCO2e(kwh * *supplierCO2KgPerKWh / kgPerMetricTon)
		fallback = false
		env.breakdown.Factors = append(env.breakdown.Factors, FactorUsage{
			Role:         "supplier_market",
			Origin:       "supplier",
			Unit:         "kWh",
			CO2KgPerUnit: *supplierCO2KgPerKWh,
			Source:       supplierName,
		})
	} else {
		env.note("no supplier factor supplied; market-based figure falls back to location-based")
	}

	env.setIntermediate("location_co2e_mt", locationMt)
	env.setIntermediate("market_co2e_mt", marketMt)

	location := locationMt
	market := marketMt
	return Result{
		CO2Kg:            co2Kg,
		CH4G:             ch4G,
		N2OG:             n2oG,
		TotalCO2eMt:      locationMt,
		LocationCO2eMt:   &location,
		MarketCO2eMt:     &market,
		MarketIsFallback: fallback,
	}
}
