package simulation

import (
	domain "github.com/turtacn/Massing-Sim/internal/domain/simulation"
)

type mockResult struct {
	metrics map[string]float64
	summary string
}

var mockResults = map[domain.Kind]mockResult{
	domain.KindWind: {
		metrics: map[string]float64{"max_wind_speed": 5.4, "avg_wind_speed": 2.1},
		summary: "Wind analysis complete: the site is well ventilated, with a local calm zone in the north-east corner.",
	},
	domain.KindSunlight: {
		metrics: map[string]float64{"sunlight_hours": 4.5, "shadow_ratio": 0.3},
		summary: "Sunlight analysis complete: most areas meet the 2-hour sunlight standard on the winter reference day.",
	},
	domain.KindThermal: {
		metrics: map[string]float64{"avg_utci": 26.5, "comfort_hours": 12.0},
		summary: "Thermal comfort analysis complete: outdoor summer comfort is low, additional shading is recommended.",
	},
}

// MockOutcome is the canned result of kind.  Unknown kinds are unsuccessful.
func MockOutcome(kind domain.Kind) domain.Outcome {
	r, ok := mockResults[kind]
	if !ok {
		return domain.Outcome{Metrics: map[string]float64{}, Summary: "unknown simulation type: " + string(kind)}
	}
	metrics := make(map[string]float64, len(r.metrics))
	for k, v := range r.metrics {
		metrics[k] = v
	}
	return domain.Outcome{
		IsSuccess:    true,
		HeatmapImage: PlaceholderPNG,
		Metrics:      metrics,
		Summary:      r.summary,
	}
}

//Personal.AI order the ending
