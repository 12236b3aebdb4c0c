package factors

import "strings"

// The embedded constant table is the last resort of the resolution chain.
// Values are IPCC AR5 100-year warming potentials and a handful of widely
// published default combustion and intensity factors. The table is
// hand-maintained; corrections land here only when they also land in the
// seeded store rows.

const (
	staticStandard = "AR5"
	staticSource   = "embedded default table"
)

// GWP100 holds AR5 100-year warming potentials by gas designation.
var GWP100 = map[string]float64{
	"CO2":       1,
	"CH4":       28,
	"N2O":       265,
	"HFC-23":    12400,
	"HFC-32":    677,
	"HFC-125":   3170,
	"HFC-134a":  1300,
	"HFC-143a":  4800,
	"HFC-152a":  138,
	"HFC-227ea": 3350,
	"HFC-236fa": 8060,
	"HFC-245fa": 858,
	"PFC-14":    6630,
	"PFC-116":   11100,
	"SF6":       23500,
	"NF3":       16100,
	// Common blends, mass-weighted from AR5 component values.
	"R-404A": 3943,
	"R-407C": 1624,
	"R-410A": 1924,
	"R-507A": 3985,
}

type staticFuelFactor struct {
	unit  string
	co2Kg float64
	ch4G  float64
	n2oG  float64
}

// Default stationary combustion factors, per EPA emission factor hub units.
var staticStationaryFuels = map[string]staticFuelFactor{
	"natural_gas": {unit: "therm", co2Kg: 5.302, ch4G: 0.1, n2oG: 0.01},
	"diesel":      {unit: "gallon", co2Kg: 10.21, ch4G: 0.41, n2oG: 0.08},
	"fuel_oil_2":  {unit: "gallon", co2Kg: 10.21, ch4G: 0.41, n2oG: 0.08},
	"propane":     {unit: "gallon", co2Kg: 5.72, ch4G: 0.27, n2oG: 0.05},
	"kerosene":    {unit: "gallon", co2Kg: 10.15, ch4G: 0.41, n2oG: 0.08},
}

type staticMobileFactor struct {
	unit  string
	co2Kg float64
	ch4G  float64
	n2oG  float64
}

// Default mobile factors keyed by fuel only; vehicle-specific CH4/N2O rows
// belong in the store, so these carry combustion CO2 with zero trace gases.
var staticMobileFuels = map[string]staticMobileFactor{
	"gasoline": {unit: "gallon", co2Kg: 8.78},
	"diesel":   {unit: "gallon", co2Kg: 10.21},
	"ethanol":  {unit: "gallon", co2Kg: 5.75},
}

// Global average grid intensity, used when no regional row exists.
const defaultGridIntensityKgPerKWh = 0.436

// refinedGridCountries lists countries for which country-level grid
// intensity rows are maintained; electricity lookups for these prefer the
// country row over the generic regional row.
var refinedGridCountries = map[string]struct{}{
	"US": {}, "CA": {}, "GB": {}, "DE": {}, "FR": {}, "ES": {}, "IT": {},
	"NL": {}, "PL": {}, "SE": {}, "NO": {}, "AU": {}, "NZ": {}, "JP": {},
	"KR": {}, "CN": {}, "IN": {}, "BR": {}, "ZA": {}, "MX": {},
}

// HasRefinedGridData reports whether country-level grid rows are maintained
// for the given ISO country code.
func HasRefinedGridData(countryCode string) bool {
	_, ok := refinedGridCountries[strings.ToUpper(strings.TrimSpace(countryCode))]
	return ok
}

// lookupStatic consults the embedded table and synthesizes a factor row.
func lookupStatic(category Category, key Key) (EmissionFactor, bool) {
	switch category {
	case CategoryGasGWP, CategoryRefrigerantGWP:
		gwp, ok := GWP100[key.Primary]
		if !ok {
			return EmissionFactor{}, false
		}
		return EmissionFactor{
			Category: string(category), KeyPrimary: key.Primary,
			Standard: staticStandard, Unit: "kg", GWP: gwp, Source: staticSource,
		}, true
	case CategoryStationaryFuel:
		fuel, ok := staticStationaryFuels[key.Primary]
		if !ok {
			return EmissionFactor{}, false
		}
		return EmissionFactor{
			Category: string(category), KeyPrimary: key.Primary,
			Standard: staticStandard, Unit: fuel.unit,
			CO2KgPerUnit: fuel.co2Kg, CH4GPerUnit: fuel.ch4G, N2OGPerUnit: fuel.n2oG,
			Source: staticSource,
		}, true
	case CategoryMobileSource:
		fuel, ok := staticMobileFuels[key.Secondary]
		if !ok {
			fuel, ok = staticMobileFuels[key.Primary]
		}
		if !ok {
			return EmissionFactor{}, false
		}
		return EmissionFactor{
			Category: string(category), KeyPrimary: key.Primary, KeySecondary: key.Secondary,
			Standard: staticStandard, Unit: fuel.unit,
			CO2KgPerUnit: fuel.co2Kg, CH4GPerUnit: fuel.ch4G, N2OGPerUnit: fuel.n2oG,
			Source: staticSource,
		}, true
	case CategoryElectricityGrid:
		return EmissionFactor{
			Category: string(category), KeyPrimary: key.Primary,
			Standard: staticStandard, Unit: "kWh",
			CO2KgPerUnit: defaultGridIntensityKgPerKWh, Source: staticSource,
		}, true
	default:
		return EmissionFactor{}, false
	}
}
