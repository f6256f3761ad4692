package controller

import (
	"bytes"
	"log/slog"
	"net/http"

	"surfsup-server/internal/modules/climate/views"
	"surfsup-server/internal/utils"
)

const apiTitle = "Hawaii Climate Analysis API"

var welcomeRoutes = []views.Route{
	{Path: "/api/v1.0/precipitation", Example: "/api/v1.0/precipitation", Description: "last 12 months of precipitation by date"},
	{Path: "/api/v1.0/stations", Example: "/api/v1.0/stations", Description: "station identifiers"},
	{Path: "/api/v1.0/tobs", Example: "/api/v1.0/tobs", Description: "last 12 months of temperatures at the most active station"},
	{Path: "/api/v1.0/{start}", Example: "/api/v1.0/2017-01-01", Description: "TMIN, TAVG and TMAX from start (YYYY-MM-DD)"},
	{Path: "/api/v1.0/{start}/{end}", Example: "/api/v1.0/2017-01-01/2017-01-31", Description: "TMIN, TAVG and TMAX between start and end, inclusive"},
	{Path: "/api/v1.0/temp/{start}/{end}", Example: "/api/v1.0/temp/2017-01-01/2017-01-31"},
}

func (c *climateControllerImpl) handleWelcome(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	data := &views.WelcomeData{Title: apiTitle, Routes: welcomeRoutes}
	if err := views.RenderWelcome(&buf, data); err != nil {
		slog.Error("welcome template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	precipitation, err := c.service.Precipitation(r.Context())
	if err != nil {
		slog.Error("precipitation failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load precipitation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, precipitation)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		slog.Error("stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	observations, err := c.service.TemperatureObservations(r.Context())
	if err != nil {
		slog.Error("tobs failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature observations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, observations)
}

func (c *climateControllerImpl) handleStats(w http.ResponseWriter, r *http.Request) {
	q, err := parseStatsPath(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := c.service.TemperatureStats(r.Context(), q.Start, q.End)
	if err != nil {
		slog.Error("temperature stats failed", "start", q.Start, "end", q.End, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature statistics")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
