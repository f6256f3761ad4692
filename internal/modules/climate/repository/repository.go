package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"surfsup-server/internal/modules/climate/types"
)

//go:embed sql/get-latest-date.sql
var getLatestDateSQL string

//go:embed sql/get-precipitation-since.sql
var getPrecipitationSinceSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-most-active-station.sql
var getMostActiveStationSQL string

//go:embed sql/get-temperature-series.sql
var getTemperatureSeriesSQL string

//go:embed sql/get-temperature-stats-since.sql
var getTemperatureStatsSinceSQL string

//go:embed sql/get-temperature-stats-between.sql
var getTemperatureStatsBetweenSQL string

// ErrNoData is returned when an aggregate has nothing to aggregate over,
// i.e. the measurement table is empty.
var ErrNoData = errors.New("no measurement data")

// ClimateRepository is the read-only data access layer over the station and
// measurement tables. Dates are YYYY-MM-DD strings compared lexicographically.
type ClimateRepository interface {
	LatestDate(ctx context.Context) (string, error)
	PrecipitationSince(ctx context.Context, since string) ([]types.Precipitation, error)
	ListStations(ctx context.Context) ([]string, error)
	MostActiveStation(ctx context.Context) (string, error)
	TemperatureSeries(ctx context.Context, station string, since string) ([]types.Observation, error)
	// TemperatureStats aggregates over date >= start, bounded by end when end is non-empty.
	TemperatureStats(ctx context.Context, start string, end string) (types.TemperatureStats, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) LatestDate(ctx context.Context) (string, error) {
	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, getLatestDateSQL).Scan(&latest); err != nil {
		return "", fmt.Errorf("latest date: %w", err)
	}
	if !latest.Valid {
		return "", ErrNoData
	}
	return latest.String, nil
}

func (r *repositoryImpl) PrecipitationSince(ctx context.Context, since string) ([]types.Precipitation, error) {
	rows, err := r.db.QueryContext(ctx, getPrecipitationSinceSQL, since)
	if err != nil {
		return nil, fmt.Errorf("precipitation since %s: %w", since, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close precipitation rows", "error", err)
		}
	}()
	out := []types.Precipitation{}
	for rows.Next() {
		var (
			p    types.Precipitation
			prcp sql.NullFloat64
		)
		if err := rows.Scan(&p.Date, &p.Station, &prcp); err != nil {
			return nil, err
		}
		p.Amount = nullFloat(prcp)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) ListStations(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MostActiveStation returns the station with the most measurement rows. Ties
// go to the lowest station identifier.
func (r *repositoryImpl) MostActiveStation(ctx context.Context) (string, error) {
	var (
		station string
		count   int
	)
	err := r.db.QueryRowContext(ctx, getMostActiveStationSQL).Scan(&station, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoData
	}
	if err != nil {
		return "", fmt.Errorf("most active station: %w", err)
	}
	return station, nil
}

func (r *repositoryImpl) TemperatureSeries(ctx context.Context, station string, since string) ([]types.Observation, error) {
	rows, err := r.db.QueryContext(ctx, getTemperatureSeriesSQL, station, since)
	if err != nil {
		return nil, fmt.Errorf("temperature series %s since %s: %w", station, since, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close temperature rows", "error", err)
		}
	}()
	out := []types.Observation{}
	for rows.Next() {
		var (
			o    types.Observation
			tobs sql.NullFloat64
		)
		if err := rows.Scan(&o.Date, &tobs); err != nil {
			return nil, err
		}
		o.Temperature = nullFloat(tobs)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) TemperatureStats(ctx context.Context, start string, end string) (types.TemperatureStats, error) {
	var row *sql.Row
	if end == "" {
		row = r.db.QueryRowContext(ctx, getTemperatureStatsSinceSQL, start)
	} else {
		row = r.db.QueryRowContext(ctx, getTemperatureStatsBetweenSQL, start, end)
	}
	var tmin, tavg, tmax sql.NullFloat64
	if err := row.Scan(&tmin, &tavg, &tmax); err != nil {
		return types.TemperatureStats{}, fmt.Errorf("temperature stats [%s, %s]: %w", start, end, err)
	}
	return types.TemperatureStats{
		Min: nullFloat(tmin),
		Avg: nullFloat(tavg),
		Max: nullFloat(tmax),
	}, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
