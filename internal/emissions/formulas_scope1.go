package emissions

import (
	"context"
	"encoding/json"

	"github.com/veridianhq/carbonledger/internal/factors"
)

func computeStationaryCombustion(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload StationaryCombustionPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	key, err := factors.NewKey(payload.FuelType, "", 0)
	if err != nil {
		return Result{}, err
	}
	factor, ok := env.resolveFactor(ctx, "fuel", factors.CategoryStationaryFuel, key)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}

	quantity, err := convertUnit(payload.Quantity, payload.Unit, factor.Unit)
	if err != nil {
		return Result{}, err
	}
	env.setIntermediate("normalized_quantity", quantity)

	co2Kg := quantity * factor.CO2KgPerUnit
	ch4G := quantity * factor.CH4GPerUnit
	n2oG := quantity * factor.N2OGPerUnit

	return Result{
		CO2Kg:       co2Kg,
		CH4G:        ch4G,
		N2OG:        n2oG,
		TotalCO2eMt: weightCO2e(co2Kg, ch4G, n2oG),
	}, nil
}

func computeMobileCombustion(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload MobileCombustionPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	key, err := factors.NewKey(payload.VehicleType, payload.FuelType, payload.ModelYear)
	if err != nil {
		return Result{}, err
	}
	factor, ok := env.resolveFactor(ctx, "vehicle_fuel", factors.CategoryMobileSource, key)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}

	quantity, err := convertUnit(payload.FuelQuantity, payload.Unit, factor.Unit)
	if err != nil {
		return Result{}, err
	}
	env.setIntermediate("normalized_fuel_quantity", quantity)

	co2Kg := quantity * factor.CO2KgPerUnit
	ch4G := quantity * factor.CH4GPerUnit
	n2oG := quantity * factor.N2OGPerUnit

	return Result{
		CO2Kg:       co2Kg,
		CH4G:        ch4G,
		N2OG:        n2oG,
		TotalCO2eMt: weightCO2e(co2Kg, ch4G, n2oG),
	}, nil
}

// materialBalance computes emissions as the signed sum of containment
// deltas times the gas's warming potential. Inventory and capacity
// increases are subtracted, transfers and recharges are added: the figure
// represents gas that left containment.
func materialBalance(ctx context.Context, env *formulaEnv, payload MaterialBalancePayload) (Result, error) {
	gwp, ok := env.resolveGWP(ctx, factors.CategoryRefrigerantGWP, payload.GasType)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}

	emittedKg := payload.RechargedKg + payload.TransferredKg - payload.InventoryChangeKg - payload.CapacityChangeKg
	env.setIntermediate("emitted_kg", emittedKg)
	env.setIntermediate("gwp", gwp)

	return Result{
		TotalCO2eMt: roundCO2e(emittedKg * gwp / kgPerMetricTon),
	}, nil
}

func computeRefrigerantMaterialBalance(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload MaterialBalancePayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}
	return materialBalance(ctx, env, payload)
}

func computeFireSuppression(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload MaterialBalancePayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}
	return materialBalance(ctx, env, payload)
}

func computeRefrigerantScreening(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload ScreeningPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	gwp, ok := env.resolveGWP(ctx, factors.CategoryRefrigerantGWP, payload.GasType)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}

	rates, known := leakRatesFor(payload.EquipmentType)
	if !known {
		env.note("unknown equipment type %q; conservative default leak rates applied", payload.EquipmentType)
	}
	env.setIntermediate("installation_leak_rate", rates.installation)
	env.setIntermediate("operating_leak_rate", rates.operating)
	env.setIntermediate("disposal_leak_rate", rates.disposal)

	emittedKg := rates.installation*payload.NewChargeKg +
		rates.operating*payload.OperatingCapacityKg +
		rates.disposal*payload.DisposedCapacityKg
	env.setIntermediate("emitted_kg", emittedKg)
	env.setIntermediate("gwp", gwp)

	return Result{
		TotalCO2eMt: roundCO2e(emittedKg * gwp / kgPerMetricTon),
	}, nil
}

func computePurchasedGas(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload PurchasedGasPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	gwp, ok := env.resolveGWP(ctx, factors.CategoryGasGWP, payload.GasType)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}
	env.setIntermediate("gwp", gwp)

	return Result{
		TotalCO2eMt: roundCO2e(payload.QuantityKg * gwp / kgPerMetricTon),
	}, nil
}
