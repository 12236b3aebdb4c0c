package emissions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Payloads are closed per-activity-type schemas. Raw activity payloads are
// decoded strictly so malformed records fail before reaching formula code.

func decodePayload(raw json.RawMessage, target interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidPayload, name)
	}
	return nil
}

func requirePositive(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidPayload, name, value)
	}
	return nil
}

func requireNonNegative(name string, value float64) error {
	if value < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidPayload, name, value)
	}
	return nil
}

// StationaryCombustionPayload describes fuel burned in fixed equipment.
type StationaryCombustionPayload struct {
	FuelType string  `json:"fuel_type"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

func (p StationaryCombustionPayload) validate() error {
	if err := requireField("fuel_type", p.FuelType); err != nil {
		return err
	}
	if err := requireField("unit", p.Unit); err != nil {
		return err
	}
	return requirePositive("quantity", p.Quantity)
}

// MobileCombustionPayload describes fuel consumed by owned vehicles.
type MobileCombustionPayload struct {
	VehicleType  string  `json:"vehicle_type"`
	ModelYear    int     `json:"model_year"`
	FuelType     string  `json:"fuel_type"`
	FuelQuantity float64 `json:"fuel_quantity"`
	Unit         string  `json:"unit"`
}

func (p MobileCombustionPayload) validate() error {
	if err := requireField("vehicle_type", p.VehicleType); err != nil {
		return err
	}
	if err := requireField("fuel_type", p.FuelType); err != nil {
		return err
	}
	if err := requireField("unit", p.Unit); err != nil {
		return err
	}
	return requirePositive("fuel_quantity", p.FuelQuantity)
}

// MaterialBalancePayload covers refrigerant and fire-suppressant leakage
// estimated from containment deltas. All masses are kilograms of gas.
// InventoryChangeKg and CapacityChangeKg are end-minus-start deltas;
// increases represent gas still contained and reduce emissions, while
// recharges and offsite transfers represent gas that left containment.
type MaterialBalancePayload struct {
	GasType           string  `json:"gas_type"`
	InventoryChangeKg float64 `json:"inventory_change_kg"`
	TransferredKg     float64 `json:"transferred_kg"`
	CapacityChangeKg  float64 `json:"capacity_change_kg"`
	RechargedKg       float64 `json:"recharged_kg"`
}

func (p MaterialBalancePayload) validate() error {
	if err := requireField("gas_type", p.GasType); err != nil {
		return err
	}
	if err := requireNonNegative("transferred_kg", p.TransferredKg); err != nil {
		return err
	}
	return requireNonNegative("recharged_kg", p.RechargedKg)
}

// ScreeningPayload estimates leakage from standard per-equipment leak rates.
type ScreeningPayload struct {
	GasType             string  `json:"gas_type"`
	EquipmentType       string  `json:"equipment_type"`
	NewChargeKg         float64 `json:"new_charge_kg"`
	OperatingCapacityKg float64 `json:"operating_capacity_kg"`
	DisposedCapacityKg  float64 `json:"disposed_capacity_kg"`
}

func (p ScreeningPayload) validate() error {
	if err := requireField("gas_type", p.GasType); err != nil {
		return err
	}
	if err := requireNonNegative("new_charge_kg", p.NewChargeKg); err != nil {
		return err
	}
	if err := requireNonNegative("operating_capacity_kg", p.OperatingCapacityKg); err != nil {
		return err
	}
	return requireNonNegative("disposed_capacity_kg", p.DisposedCapacityKg)
}

// PurchasedGasPayload covers industrial gases bought and released.
type PurchasedGasPayload struct {
	GasType    string  `json:"gas_type"`
	QuantityKg float64 `json:"quantity_kg"`
}

func (p PurchasedGasPayload) validate() error {
	if err := requireField("gas_type", p.GasType); err != nil {
		return err
	}
	return requirePositive("quantity_kg", p.QuantityKg)
}

// ElectricityPayload covers purchased electricity. Supplier figures enable
// market-based accounting; absent them the market result falls back to the
// location-based factors.
type ElectricityPayload struct {
	KWh                 float64  `json:"kwh"`
	GridRegion          string   `json:"grid_region"`
	SupplierName        string   `json:"supplier_name,omitempty"`
	SupplierCO2KgPerKWh *float64 `json:"supplier_co2_kg_per_kwh,omitempty"`
}

func (p ElectricityPayload) validate() error {
	if err := requireField("grid_region", p.GridRegion); err != nil {
		return err
	}
	if p.SupplierCO2KgPerKWh != nil {
		if err := requireNonNegative("supplier_co2_kg_per_kwh", *p.SupplierCO2KgPerKWh); err != nil {
			return err
		}
	}
	return requirePositive("kwh", p.KWh)
}

// SteamPayload covers purchased steam and district heat.
type SteamPayload struct {
	Quantity            float64  `json:"quantity"`
	Unit                string   `json:"unit"`
	Region              string   `json:"region"`
	SupplierName        string   `json:"supplier_name,omitempty"`
	SupplierCO2KgPerKWh *float64 `json:"supplier_co2_kg_per_kwh,omitempty"`
}

func (p SteamPayload) validate() error {
	if err := requireField("unit", p.Unit); err != nil {
		return err
	}
	if err := requireField("region", p.Region); err != nil {
		return err
	}
	if p.SupplierCO2KgPerKWh != nil {
		if err := requireNonNegative("supplier_co2_kg_per_kwh", *p.SupplierCO2KgPerKWh); err != nil {
			return err
		}
	}
	return requirePositive("quantity", p.Quantity)
}

// TravelPayload covers business travel legs by declared mode.
type TravelPayload struct {
	Mode         string  `json:"mode"`
	Distance     float64 `json:"distance"`
	DistanceUnit string  `json:"distance_unit"`
}

func (p TravelPayload) validate() error {
	if err := requireField("mode", p.Mode); err != nil {
		return err
	}
	if err := requireField("distance_unit", p.DistanceUnit); err != nil {
		return err
	}
	return requirePositive("distance", p.Distance)
}

// HotelStayPayload covers hotel nights by country.
type HotelStayPayload struct {
	CountryCode string  `json:"country_code"`
	Nights      float64 `json:"nights"`
}

func (p HotelStayPayload) validate() error {
	if err := requireField("country_code", p.CountryCode); err != nil {
		return err
	}
	return requirePositive("nights", p.Nights)
}

// CommutingPayload covers aggregate employee commuting by mode.
type CommutingPayload struct {
	Mode         string  `json:"mode"`
	Distance     float64 `json:"distance"`
	DistanceUnit string  `json:"distance_unit"`
}

func (p CommutingPayload) validate() error {
	if err := requireField("mode", p.Mode); err != nil {
		return err
	}
	if err := requireField("distance_unit", p.DistanceUnit); err != nil {
		return err
	}
	return requirePositive("distance", p.Distance)
}

// TransportPayload covers upstream transport and distribution in tonne-km.
type TransportPayload struct {
	Mode         string  `json:"mode"`
	WeightTonnes float64 `json:"weight_tonnes"`
	Distance     float64 `json:"distance"`
	DistanceUnit string  `json:"distance_unit"`
}

func (p TransportPayload) validate() error {
	if err := requireField("mode", p.Mode); err != nil {
		return err
	}
	if err := requireField("distance_unit", p.DistanceUnit); err != nil {
		return err
	}
	if err := requirePositive("weight_tonnes", p.WeightTonnes); err != nil {
		return err
	}
	return requirePositive("distance", p.Distance)
}

// WastePayload covers disposed waste by material and disposal method.
type WastePayload struct {
	Material       string  `json:"material"`
	DisposalMethod string  `json:"disposal_method"`
	Weight         float64 `json:"weight"`
	WeightUnit     string  `json:"weight_unit"`
}

func (p WastePayload) validate() error {
	if err := requireField("material", p.Material); err != nil {
		return err
	}
	if err := requireField("disposal_method", p.DisposalMethod); err != nil {
		return err
	}
	if err := requireField("weight_unit", p.WeightUnit); err != nil {
		return err
	}
	return requirePositive("weight", p.Weight)
}

// OffsetPayload records a purchased offset credit. Stored as negative CO2e
// with no gas breakdown.
type OffsetPayload struct {
	CO2eMt   float64 `json:"co2e_mt"`
	Registry string  `json:"registry,omitempty"`
	CreditID string  `json:"credit_id,omitempty"`
}

func (p OffsetPayload) validate() error {
	return requirePositive("co2e_mt", p.CO2eMt)
}
