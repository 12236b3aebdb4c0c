package emissions

import (
	"context"
	"encoding/json"

	"github.com/veridianhq/carbonledger/internal/factors"
)

// Scope 3 formulas are linear multiplies: quantity times a per-unit factor
// selected by the declared mode, country or material combination. An
// unmatched combination yields a zero factor and a note annotation, never
// a hard failure.

func linearDistanceResult(env *formulaEnv, distanceKm float64, factor factors.EmissionFactor) Result {
	co2Kg := distanceKm * factor.CO2KgPerUnit
	ch4G := distanceKm * factor.CH4GPerUnit
	n2oG := distanceKm * factor.N2OGPerUnit
	return Result{
		CO2Kg:       co2Kg,
		CH4G:        ch4G,
		N2OG:        n2oG,
		TotalCO2eMt: weightCO2e(co2Kg, ch4G, n2oG),
	}
}

func computeBusinessTravel(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload TravelPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	distanceKm, err := toKilometres(payload.Distance, payload.DistanceUnit)
	if err != nil {
		return Result{}, err
	}
	env.setIntermediate("distance_km", distanceKm)

	key, err := factors.NewKey(payload.Mode, "", 0)
	if err != nil {
		return Result{}, err
	}
	factor, ok := env.resolveFactor(ctx, "travel_mode", factors.CategoryBusinessTravel, key)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}
	return linearDistanceResult(env, distanceKm, factor), nil
}

func computeHotelStay(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload HotelStayPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	key, err := factors.NewKey(payload.CountryCode, "", 0)
	if err != nil {
		return Result{}, err
	}
	factor, ok := env.resolveFactor(ctx, "hotel_country", factors.CategoryHotel, key)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}

	co2Kg := payload.Nights * factor.CO2KgPerUnit
	ch4G := payload.Nights * factor.CH4GPerUnit
	n2oG := payload.Nights * factor.N2OGPerUnit
	env.setIntermediate("nights", payload.Nights)

	return Result{
		CO2Kg:       co2Kg,
		CH4G:        ch4G,
		N2OG:        n2oG,
		TotalCO2eMt: weightCO2e(co2Kg, ch4G, n2oG),
	}, nil
}

func computeEmployeeCommuting(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload CommutingPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	distanceKm, err := toKilometres(payload.Distance, payload.DistanceUnit)
	if err != nil {
		return Result{}, err
	}
	env.setIntermediate("distance_km", distanceKm)

	key, err := factors.NewKey(payload.Mode, "", 0)
	if err != nil {
		return Result{}, err
	}
	factor, ok := env.resolveFactor(ctx, "commute_mode", factors.CategoryCommuting, key)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}
	return linearDistanceResult(env, distanceKm, factor), nil
}

func computeTransportDistribution(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload TransportPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	distanceKm, err := toKilometres(payload.Distance, payload.DistanceUnit)
	if err != nil {
		return Result{}, err
	}
	tonneKm := payload.WeightTonnes * distanceKm
	env.setIntermediate("tonne_km", tonneKm)

	key, err := factors.NewKey(payload.Mode, "", 0)
	if err != nil {
		return Result{}, err
	}
	factor, ok := env.resolveFactor(ctx, "freight_mode", factors.CategoryTransport, key)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}

	co2Kg := tonneKm * factor.CO2KgPerUnit
	ch4G := tonneKm * factor.CH4GPerUnit
	n2oG := tonneKm * factor.N2OGPerUnit

	return Result{
		CO2Kg:       co2Kg,
		CH4G:        ch4G,
		N2OG:        n2oG,
		TotalCO2eMt: weightCO2e(co2Kg, ch4G, n2oG),
	}, nil
}

func computeWasteDisposal(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload WastePayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	tonnes, err := toTonnes(payload.Weight, payload.WeightUnit)
	if err != nil {
		return Result{}, err
	}
	env.setIntermediate("weight_tonnes", tonnes)

	key, err := factors.NewKey(payload.Material, payload.DisposalMethod, 0)
	if err != nil {
		return Result{}, err
	}
	factor, ok := env.resolveFactor(ctx, "waste_material", factors.CategoryWaste, key)
	if !ok {
		return Result{TotalCO2eMt: 0}, nil
	}

	co2Kg := tonnes * factor.CO2KgPerUnit
	ch4G := tonnes * factor.CH4GPerUnit
	n2oG := tonnes * factor.N2OGPerUnit

	return Result{
		CO2Kg:       co2Kg,
		CH4G:        ch4G,
		N2OG:        n2oG,
		TotalCO2eMt: weightCO2e(co2Kg, ch4G, n2oG),
	}, nil
}

// computeCarbonOffset stores purchased credits as negative CO2e with no
// gas breakdown.
func computeCarbonOffset(_ context.Context, env *formulaEnv, raw json.RawMessage) (Result, error) {
	var payload OffsetPayload
	if err := decodePayload(raw, &payload); err != nil {
		return Result{}, err
	}
	if err := payload.validate(); err != nil {
		return Result{}, err
	}

	env.setIntermediate("credited_co2e_mt", payload.CO2eMt)
	if payload.Registry != "" {
		env.note("offset registered with %s", payload.Registry)
	}

	return Result{
		TotalCO2eMt: roundCO2e(-payload.CO2eMt),
	}, nil
}
