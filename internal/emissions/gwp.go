package emissions

import "math"

// Fixed AR5 100-year warming potentials applied during weighting. The
// full HFC/PFC/SF6/NF3 table lives in the factors package and is consulted
// through the resolver; these two scalars are applied to every formula's
// trace gas masses.
const (
	gwpCH4 = 28
	gwpN2O = 265
)

const (
	gramsPerMetricTon = 1_000_000
	kgPerMetricTon    = 1000
)

// co2eRoundingPlaces bounds the declared precision of every CO2e total.
const co2eRoundingPlaces = 6

// weightCO2e converts per-gas masses (kg CO2, g CH4, g N2O) into a total
// metric-ton CO2e figure: CO2 + CH4 as CO2e + N2O as CO2e.
func weightCO2e(co2Kg, ch4G, n2oG float64) float64 {
	co2Mt := co2Kg / kgPerMetricTon
	ch4Mt := ch4G / gramsPerMetricTon * gwpCH4
	n2oMt := n2oG / gramsPerMetricTon * gwpN2O
	return roundCO2e(co2Mt + ch4Mt + n2oMt)
}

// roundCO2e rounds a metric-ton figure to the declared precision.
func roundCO2e(valueMt float64) float64 {
	scale := math.Pow10(co2eRoundingPlaces)
	return math.Round(valueMt*scale) / scale
}
