package types

// Precipitation is one measurement row's date and rainfall; Amount is nil when unrecorded.
type Precipitation struct {
	Date    string   `json:"date"`
	Station string   `json:"station"`
	Amount  *float64 `json:"prcp"`
}

// Observation is one temperature reading as served by /api/v1.0/tobs.
type Observation struct {
	Date        string   `json:"date"`
	Temperature *float64 `json:"temperature"`
}

// TemperatureStats holds the aggregates over a date range. All three are nil
// when no row matched.
type TemperatureStats struct {
	Min *float64 `json:"TMIN"`
	Avg *float64 `json:"TAVG"`
	Max *float64 `json:"TMAX"`
}
