package emissions

import (
	"fmt"
	"strings"
)

// Unit conversion happens before any factor is applied. Internal units are
// kilograms for solid and liquid masses, grams for trace gases, kilometres
// for distances and metric tons for final CO2e.

type unitDimension string

const (
	dimensionMass     unitDimension = "mass"
	dimensionVolume   unitDimension = "volume"
	dimensionDistance unitDimension = "distance"
	dimensionEnergy   unitDimension = "energy"
)

type unitDefinition struct {
	dimension unitDimension
	// toBase converts one unit into the dimension's base unit:
	// kg, litre, km, kWh.
	toBase float64
}

var unitTable = map[string]unitDefinition{
	"kg":        {dimensionMass, 1},
	"g":         {dimensionMass, 0.001},
	"lb":        {dimensionMass, 0.45359237},
	"tonne":     {dimensionMass, 1000},
	"short_ton": {dimensionMass, 907.18474},

	"litre":  {dimensionVolume, 1},
	"gallon": {dimensionVolume, 3.785411784},

	"km":   {dimensionDistance, 1},
	"mile": {dimensionDistance, 1.609344},

	"kwh":   {dimensionEnergy, 1},
	"mwh":   {dimensionEnergy, 1000},
	"therm": {dimensionEnergy, 29.3071},
	"mmbtu": {dimensionEnergy, 293.071},
	// Pipeline-quality natural gas at 1,026 Btu per standard cubic foot.
	"scf": {dimensionEnergy, 0.300690846},
}

// convertUnit converts value between two units of the same dimension.
func convertUnit(value float64, fromUnit, toUnit string) (float64, error) {
	from := strings.ToLower(strings.TrimSpace(fromUnit))
	to := strings.ToLower(strings.TrimSpace(toUnit))
	if from == to {
		return value, nil
	}
	fromDef, ok := unitTable[from]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidPayload, fromUnit)
	}
	toDef, ok := unitTable[to]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidPayload, toUnit)
	}
	if fromDef.dimension != toDef.dimension {
		return 0, fmt.Errorf("%w: cannot convert %s to %s", ErrInvalidPayload, fromUnit, toUnit)
	}
	return value * fromDef.toBase / toDef.toBase, nil
}

// toKilograms normalizes a mass value into kilograms.
func toKilograms(value float64, unit string) (float64, error) {
	return convertUnit(value, unit, "kg")
}

// toKilometres normalizes a distance value into kilometres.
func toKilometres(value float64, unit string) (float64, error) {
	return convertUnit(value, unit, "km")
}

// toTonnes normalizes a mass value into metric tons.
func toTonnes(value float64, unit string) (float64, error) {
	return convertUnit(value, unit, "tonne")
}
