package emissions

import (
	"errors"
	"fmt"
)

// ActivityType enumerates the closed set of recordable activities. Every
// type maps to exactly one formula and exactly one summary bucket.
type ActivityType string

const (
	ActivityStationaryCombustion       ActivityType = "stationary_combustion"
	ActivityMobileCombustion           ActivityType = "mobile_combustion"
	ActivityRefrigerantMaterialBalance ActivityType = "refrigerant_material_balance"
	ActivityRefrigerantScreening       ActivityType = "refrigerant_screening"
	ActivityFireSuppression            ActivityType = "fire_suppression"
	ActivityPurchasedGas               ActivityType = "purchased_gas"
	ActivityElectricity                ActivityType = "electricity"
	ActivitySteam                      ActivityType = "steam"
	ActivityBusinessTravel             ActivityType = "business_travel"
	ActivityHotelStay                  ActivityType = "hotel_stay"
	ActivityEmployeeCommuting          ActivityType = "employee_commuting"
	ActivityTransportDistribution      ActivityType = "transport_distribution"
	ActivityWasteDisposal              ActivityType = "waste_disposal"
	ActivityCarbonOffset               ActivityType = "carbon_offset"
)

// AllActivityTypes lists the full enumeration in declaration order.
var AllActivityTypes = []ActivityType{
	ActivityStationaryCombustion,
	ActivityMobileCombustion,
	ActivityRefrigerantMaterialBalance,
	ActivityRefrigerantScreening,
	ActivityFireSuppression,
	ActivityPurchasedGas,
	ActivityElectricity,
	ActivitySteam,
	ActivityBusinessTravel,
	ActivityHotelStay,
	ActivityEmployeeCommuting,
	ActivityTransportDistribution,
	ActivityWasteDisposal,
	ActivityCarbonOffset,
}

var (
	// ErrUnknownActivityType indicates a type outside the closed enumeration.
	ErrUnknownActivityType = errors.New("emissions: unknown activity type")
	// ErrCalculationFailed indicates the formula could not produce a result.
	// The owning activity record persists regardless; no ledger row is written.
	ErrCalculationFailed = errors.New("emissions: calculation failed")
	// ErrInvalidPayload indicates a malformed or incomplete type payload.
	ErrInvalidPayload = errors.New("emissions: invalid payload")
)

// NewActivityType validates raw input against the enumeration.
func NewActivityType(raw string) (ActivityType, error) {
	candidate := ActivityType(raw)
	for _, known := range AllActivityTypes {
		if candidate == known {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownActivityType, raw)
}

// FactorUsage records one resolved factor inside a result breakdown.
type FactorUsage struct {
	Role         string  `json:"role"`
	FactorID     string  `json:"factor_id,omitempty"`
	Origin       string  `json:"origin"`
	Standard     string  `json:"standard,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	CO2KgPerUnit float64 `json:"co2_kg_per_unit,omitempty"`
	CH4GPerUnit  float64 `json:"ch4_g_per_unit,omitempty"`
	N2OGPerUnit  float64 `json:"n2o_g_per_unit,omitempty"`
	GWP          float64 `json:"gwp,omitempty"`
	Source       string  `json:"source,omitempty"`
}

// Breakdown is the JSON-serializable audit record of a single calculation:
// the full factor set used, intermediate values and the method name.
type Breakdown struct {
	Method       string             `json:"method"`
	Factors      []FactorUsage      `json:"factors"`
	Intermediate map[string]float64 `json:"intermediate,omitempty"`
	Notes        []string           `json:"notes,omitempty"`
}

// Result is the typed outcome of one formula application. Masses use the
// platform's internal units: kilograms for CO2, grams for CH4 and N2O,
// metric tons for CO2e totals.
type Result struct {
	ActivityType ActivityType
	Method       string
	CO2Kg        float64
	CH4G         float64
	N2OG         float64
	// TotalCO2eMt is the primary figure; for Scope 2 types it carries the
	// location-based value for backward-compatible consumers.
	TotalCO2eMt float64
	// LocationCO2eMt and MarketCO2eMt are populated for Scope 2 types only.
	LocationCO2eMt   *float64
	MarketCO2eMt     *float64
	MarketIsFallback bool
	Standard         string
	Breakdown        Breakdown
}

// Scope2 reports whether the result carries dual location/market figures.
func (r Result) Scope2() bool {
	return r.LocationCO2eMt != nil && r.MarketCO2eMt != nil
}
