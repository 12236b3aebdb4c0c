package emissions

import "strings"

// Screening-method leak rates by equipment class, expressed as fractions of
// charge or capacity per reporting year. Values follow the GHG Protocol
// refrigeration screening ranges and stay within [0.005, 1.0].
type leakRates struct {
	installation float64
	operating    float64
	disposal     float64
}

var screeningLeakRates = map[string]leakRates{
	"domestic_refrigeration":       {installation: 0.01, operating: 0.005, disposal: 0.80},
	"stand_alone_commercial":       {installation: 0.015, operating: 0.15, disposal: 0.80},
	"supermarket_rack":             {installation: 0.03, operating: 0.225, disposal: 0.90},
	"industrial_refrigeration":     {installation: 0.03, operating: 0.16, disposal: 0.90},
	"chiller":                      {installation: 0.01, operating: 0.11, disposal: 0.95},
	"residential_air_conditioning": {installation: 0.005, operating: 0.06, disposal: 0.80},
	"mobile_air_conditioning":      {installation: 0.005, operating: 0.20, disposal: 0.50},
}

// Unknown equipment assumes the most conservative published rates.
var conservativeLeakRates = leakRates{installation: 0.03, operating: 0.35, disposal: 1.0}

func leakRatesFor(equipmentType string) (leakRates, bool) {
	rates, ok := screeningLeakRates[strings.ToLower(strings.TrimSpace(equipmentType))]
	if !ok {
		return conservativeLeakRates, false
	}
	return rates, true
}
