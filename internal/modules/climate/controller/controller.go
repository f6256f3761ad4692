package controller

import (
	"context"
	"net/http"

	"surfsup-server/internal/modules/climate/types"
)

// ClimateService is what the handlers need from the service layer.
type ClimateService interface {
	Precipitation(ctx context.Context) (map[string]*float64, error)
	Stations(ctx context.Context) ([]string, error)
	TemperatureObservations(ctx context.Context) ([]types.Observation, error)
	TemperatureStats(ctx context.Context, start, end string) (types.TemperatureStats, error)
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service ClimateService
}

func NewClimateController(service ClimateService) ClimateController {
	return &climateControllerImpl{service: service}
}

// RegisterRoutes wires the API. Literal segments outrank {start}, so
// /api/v1.0/stations never reaches the stats handler.
func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleWelcome)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleStats)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleStats)
	mux.HandleFunc("GET /api/v1.0/temp/{start}", c.handleStats)
	mux.HandleFunc("GET /api/v1.0/temp/{start}/{end}", c.handleStats)
}
