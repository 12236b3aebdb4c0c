package database

import (
	"time"

	"github.com/veridianhq/carbonledger/internal/factors"
	"gorm.io/gorm"
)

// Seed rows give a fresh deployment a working factor set under the default
// reporting standard. Corrections are published as new rows with later
// effective dates; seeded rows are never edited.

const seedStandard = "GHG_PROTOCOL"

var seedEffectiveAt = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

type seedFactor struct {
	id        string
	category  factors.Category
	primary   string
	secondary string
	modelYear int
	unit      string
	co2Kg     float64
	ch4G      float64
	n2oG      float64
	gwp       float64
	source    string
}

func (s seedFactor) row(createdAt time.Time) factors.EmissionFactor {
	return factors.EmissionFactor{
		FactorID:           s.id,
		Category:           string(s.category),
		KeyPrimary:         s.primary,
		KeySecondary:       s.secondary,
		ModelYear:          s.modelYear,
		Standard:           seedStandard,
		Unit:               s.unit,
		CO2KgPerUnit:       s.co2Kg,
		CH4GPerUnit:        s.ch4G,
		N2OGPerUnit:        s.n2oG,
		GWP:                s.gwp,
		EffectiveAtSeconds: seedEffectiveAt.Unix(),
		Source:             s.source,
		CreatedAtSeconds:   createdAt.Unix(),
	}
}

func seedEmissionFactorsV1(db *gorm.DB) error {
	seeds := []seedFactor{
		// Stationary combustion, EPA emission factor hub 2025.
		{id: "seed-stationary-natural-gas-v1", category: factors.CategoryStationaryFuel, primary: "natural_gas", unit: "therm", co2Kg: 5.302, ch4G: 0.1, n2oG: 0.01, source: "EPA EF Hub 2025, table 1"},
		{id: "seed-stationary-diesel-v1", category: factors.CategoryStationaryFuel, primary: "diesel", unit: "gallon", co2Kg: 10.21, ch4G: 0.41, n2oG: 0.08, source: "EPA EF Hub 2025, table 1"},
		{id: "seed-stationary-propane-v1", category: factors.CategoryStationaryFuel, primary: "propane", unit: "gallon", co2Kg: 5.72, ch4G: 0.27, n2oG: 0.05, source: "EPA EF Hub 2025, table 1"},
		{id: "seed-stationary-fuel-oil-2-v1", category: factors.CategoryStationaryFuel, primary: "fuel_oil_2", unit: "gallon", co2Kg: 10.21, ch4G: 0.41, n2oG: 0.08, source: "EPA EF Hub 2025, table 1"},

		// Mobile sources by vehicle, fuel and model year.
		{id: "seed-mobile-car-gasoline-2015-v1", category: factors.CategoryMobileSource, primary: "passenger_car", secondary: "gasoline", modelYear: 2015, unit: "gallon", co2Kg: 8.78, ch4G: 0.38, n2oG: 0.08, source: "EPA EF Hub 2025, table 3"},
		{id: "seed-mobile-car-gasoline-2020-v1", category: factors.CategoryMobileSource, primary: "passenger_car", secondary: "gasoline", modelYear: 2020, unit: "gallon", co2Kg: 8.78, ch4G: 0.30, n2oG: 0.06, source: "EPA EF Hub 2025, table 3"},
		{id: "seed-mobile-light-truck-gasoline-2018-v1", category: factors.CategoryMobileSource, primary: "light_truck", secondary: "gasoline", modelYear: 2018, unit: "gallon", co2Kg: 8.78, ch4G: 0.54, n2oG: 0.11, source: "EPA EF Hub 2025, table 3"},
		{id: "seed-mobile-heavy-truck-diesel-2017-v1", category: factors.CategoryMobileSource, primary: "heavy_truck", secondary: "diesel", modelYear: 2017, unit: "gallon", co2Kg: 10.21, ch4G: 0.51, n2oG: 0.48, source: "EPA EF Hub 2025, table 4"},

		// Refrigerant and purchased-gas warming potentials, AR5 100-year.
		{id: "seed-gwp-hfc-134a-v1", category: factors.CategoryRefrigerantGWP, primary: "HFC-134a", unit: "kg", gwp: 1300, source: "IPCC AR5 WG1 appendix 8.A"},
		{id: "seed-gwp-r-404a-v1", category: factors.CategoryRefrigerantGWP, primary: "R-404A", unit: "kg", gwp: 3943, source: "IPCC AR5 blend, mass-weighted"},
		{id: "seed-gwp-r-410a-v1", category: factors.CategoryRefrigerantGWP, primary: "R-410A", unit: "kg", gwp: 1924, source: "IPCC AR5 blend, mass-weighted"},
		{id: "seed-gwp-hfc-227ea-v1", category: factors.CategoryRefrigerantGWP, primary: "HFC-227ea", unit: "kg", gwp: 3350, source: "IPCC AR5 WG1 appendix 8.A"},
		{id: "seed-gwp-sf6-v1", category: factors.CategoryGasGWP, primary: "SF6", unit: "kg", gwp: 23500, source: "IPCC AR5 WG1 appendix 8.A"},
		{id: "seed-gwp-nf3-v1", category: factors.CategoryGasGWP, primary: "NF3", unit: "kg", gwp: 16100, source: "IPCC AR5 WG1 appendix 8.A"},
		{id: "seed-gwp-ch4-v1", category: factors.CategoryGasGWP, primary: "CH4", unit: "kg", gwp: 28, source: "IPCC AR5 WG1 appendix 8.A"},

		// Regional grid intensity.
		{id: "seed-grid-north-america-v1", category: factors.CategoryElectricityGrid, primary: "north_america", unit: "kWh", co2Kg: 0.38, ch4G: 0.03, n2oG: 0.004, source: "eGRID 2023 national average"},
		{id: "seed-grid-europe-v1", category: factors.CategoryElectricityGrid, primary: "europe", unit: "kWh", co2Kg: 0.25, ch4G: 0.02, n2oG: 0.003, source: "EEA 2023 EU average"},
		{id: "seed-grid-asia-pacific-v1", category: factors.CategoryElectricityGrid, primary: "asia_pacific", unit: "kWh", co2Kg: 0.57, ch4G: 0.04, n2oG: 0.005, source: "IEA 2023 regional average"},

		// District steam.
		{id: "seed-steam-north-america-v1", category: factors.CategorySteam, primary: "north_america", unit: "kWh", co2Kg: 0.23, source: "EPA EF Hub 2025, table 7"},
		{id: "seed-steam-europe-v1", category: factors.CategorySteam, primary: "europe", unit: "kWh", co2Kg: 0.20, source: "EEA 2023 district heat"},

		// Business travel per passenger-km.
		{id: "seed-travel-air-short-v1", category: factors.CategoryBusinessTravel, primary: "air_short_haul", unit: "km", co2Kg: 0.156, ch4G: 0.001, n2oG: 0.005, source: "DEFRA 2025 business travel"},
		{id: "seed-travel-air-long-v1", category: factors.CategoryBusinessTravel, primary: "air_long_haul", unit: "km", co2Kg: 0.148, ch4G: 0.001, n2oG: 0.005, source: "DEFRA 2025 business travel"},
		{id: "seed-travel-rail-v1", category: factors.CategoryBusinessTravel, primary: "rail", unit: "km", co2Kg: 0.035, source: "DEFRA 2025 business travel"},
		{id: "seed-travel-car-v1", category: factors.CategoryBusinessTravel, primary: "passenger_car", unit: "km", co2Kg: 0.17, ch4G: 0.02, n2oG: 0.01, source: "DEFRA 2025 business travel"},

		// Hotel nights per country.
		{id: "seed-hotel-us-v1", category: factors.CategoryHotel, primary: "US", unit: "night", co2Kg: 16.1, source: "CHSB 2024"},
		{id: "seed-hotel-gb-v1", category: factors.CategoryHotel, primary: "GB", unit: "night", co2Kg: 10.4, source: "CHSB 2024"},
		{id: "seed-hotel-de-v1", category: factors.CategoryHotel, primary: "DE", unit: "night", co2Kg: 9.5, source: "CHSB 2024"},

		// Employee commuting per passenger-km.
		{id: "seed-commute-car-v1", category: factors.CategoryCommuting, primary: "passenger_car", unit: "km", co2Kg: 0.17, ch4G: 0.02, n2oG: 0.01, source: "DEFRA 2025 commuting"},
		{id: "seed-commute-bus-v1", category: factors.CategoryCommuting, primary: "bus", unit: "km", co2Kg: 0.10, source: "DEFRA 2025 commuting"},
		{id: "seed-commute-rail-v1", category: factors.CategoryCommuting, primary: "rail", unit: "km", co2Kg: 0.035, source: "DEFRA 2025 commuting"},

		// Freight per tonne-km.
		{id: "seed-freight-truck-v1", category: factors.CategoryTransport, primary: "truck", unit: "tonne_km", co2Kg: 0.107, ch4G: 0.002, n2oG: 0.003, source: "GLEC framework v3"},
		{id: "seed-freight-rail-v1", category: factors.CategoryTransport, primary: "rail", unit: "tonne_km", co2Kg: 0.028, source: "GLEC framework v3"},
		{id: "seed-freight-ship-v1", category: factors.CategoryTransport, primary: "ship", unit: "tonne_km", co2Kg: 0.016, source: "GLEC framework v3"},
		{id: "seed-freight-air-v1", category: factors.CategoryTransport, primary: "air", unit: "tonne_km", co2Kg: 1.13, source: "GLEC framework v3"},

		// Waste per tonne by material and disposal method.
		{id: "seed-waste-msw-landfill-v1", category: factors.CategoryWaste, primary: "mixed_msw", secondary: "landfill", unit: "tonne", co2Kg: 458, ch4G: 1200, source: "EPA WARM v16"},
		{id: "seed-waste-msw-combustion-v1", category: factors.CategoryWaste, primary: "mixed_msw", secondary: "combustion", unit: "tonne", co2Kg: 430, source: "EPA WARM v16"},
		{id: "seed-waste-paper-recycling-v1", category: factors.CategoryWaste, primary: "paper", secondary: "recycling", unit: "tonne", co2Kg: 45, source: "EPA WARM v16"},
		{id: "seed-waste-organics-compost-v1", category: factors.CategoryWaste, primary: "organics", secondary: "composting", unit: "tonne", co2Kg: 52, ch4G: 800, source: "EPA WARM v16"},
	}
	return insertSeeds(db, seeds)
}

// Country-level grid rows refine the regional averages for geographies
// with published national intensity data.
func seedGridCountryFactorsV1(db *gorm.DB) error {
	seeds := []seedFactor{
		{id: "seed-grid-us-v1", category: factors.CategoryElectricityGrid, primary: "US", unit: "kWh", co2Kg: 0.368, ch4G: 0.03, n2oG: 0.004, source: "eGRID 2023"},
		{id: "seed-grid-ca-v1", category: factors.CategoryElectricityGrid, primary: "CA", unit: "kWh", co2Kg: 0.12, source: "Canada NIR 2023"},
		{id: "seed-grid-gb-v1", category: factors.CategoryElectricityGrid, primary: "GB", unit: "kWh", co2Kg: 0.207, source: "DEFRA 2025 grid"},
		{id: "seed-grid-de-v1", category: factors.CategoryElectricityGrid, primary: "DE", unit: "kWh", co2Kg: 0.38, source: "UBA 2023"},
		{id: "seed-grid-fr-v1", category: factors.CategoryElectricityGrid, primary: "FR", unit: "kWh", co2Kg: 0.056, source: "RTE 2023"},
		{id: "seed-grid-au-v1", category: factors.CategoryElectricityGrid, primary: "AU", unit: "kWh", co2Kg: 0.66, source: "NGA factors 2023"},
		{id: "seed-grid-jp-v1", category: factors.CategoryElectricityGrid, primary: "JP", unit: "kWh", co2Kg: 0.46, source: "METI 2023"},
		{id: "seed-grid-in-v1", category: factors.CategoryElectricityGrid, primary: "IN", unit: "kWh", co2Kg: 0.71, source: "CEA 2023"},
	}
	return insertSeeds(db, seeds)
}

func insertSeeds(db *gorm.DB, seeds []seedFactor) error {
	createdAt := time.Now().UTC()
	for _, seed := range seeds {
		row := seed.row(createdAt)
		if err := db.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
