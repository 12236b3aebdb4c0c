package emissions

import (
	"context"
	"encoding/json"
)

type formulaFunc func(ctx context.Context, env *formulaEnv, raw json.RawMessage) (Result, error)

// formula declares what one activity type's computation consumes: the
// payload fields it reads and the compute function that performs unit
// normalization, factor resolution and GWP weighting.
type formula struct {
	name           string
	requiredFields []string
	compute        formulaFunc
}

// formulaRegistry maps each activity type to exactly one formula.
var formulaRegistry = map[ActivityType]formula{
	ActivityStationaryCombustion: {
		name:           "stationary_combustion_v1",
		requiredFields: []string{"fuel_type", "quantity", "unit"},
		compute:        computeStationaryCombustion,
	},
	ActivityMobileCombustion: {
		name:           "mobile_combustion_v1",
		requiredFields: []string{"vehicle_type", "model_year", "fuel_type", "fuel_quantity", "unit"},
		compute:        computeMobileCombustion,
	},
	ActivityRefrigerantMaterialBalance: {
		name:           "refrigerant_material_balance_v1",
		requiredFields: []string{"gas_type", "inventory_change_kg", "transferred_kg", "capacity_change_kg", "recharged_kg"},
		compute:        computeRefrigerantMaterialBalance,
	},
	ActivityRefrigerantScreening: {
		name:           "refrigerant_screening_v1",
		requiredFields: []string{"gas_type", "equipment_type", "new_charge_kg", "operating_capacity_kg", "disposed_capacity_kg"},
		compute:        computeRefrigerantScreening,
	},
	ActivityFireSuppression: {
		name:           "fire_suppression_material_balance_v1",
		requiredFields: []string{"gas_type", "inventory_change_kg", "transferred_kg", "capacity_change_kg", "recharged_kg"},
		compute:        computeFireSuppression,
	},
	ActivityPurchasedGas: {
		name:           "purchased_gas_v1",
		requiredFields: []string{"gas_type", "quantity_kg"},
		compute:        computePurchasedGas,
	},
	ActivityElectricity: {
		name:           "electricity_dual_v1",
		requiredFields: []string{"kwh", "grid_region"},
		compute:        computeElectricity,
	},
	ActivitySteam: {
		name:           "steam_dual_v1",
		requiredFields: []string{"quantity", "unit", "region"},
		compute:        computeSteam,
	},
	ActivityBusinessTravel: {
		name:           "business_travel_v1",
		requiredFields: []string{"mode", "distance", "distance_unit"},
		compute:        computeBusinessTravel,
	},
	ActivityHotelStay: {
		name:           "hotel_stay_v1",
		requiredFields: []string{"country_code", "nights"},
		compute:        computeHotelStay,
	},
	ActivityEmployeeCommuting: {
		name:           "employee_commuting_v1",
		requiredFields: []string{"mode", "distance", "distance_unit"},
		compute:        computeEmployeeCommuting,
	},
	ActivityTransportDistribution: {
		name:           "transport_distribution_v1",
		requiredFields: []string{"mode", "weight_tonnes", "distance", "distance_unit"},
		compute:        computeTransportDistribution,
	},
	ActivityWasteDisposal: {
		name:           "waste_disposal_v1",
		requiredFields: []string{"material", "disposal_method", "weight", "weight_unit"},
		compute:        computeWasteDisposal,
	},
	ActivityCarbonOffset: {
		name:           "carbon_offset_v1",
		requiredFields: []string{"co2e_mt"},
		compute:        computeCarbonOffset,
	},
}
