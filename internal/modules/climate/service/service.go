package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/types"
)

const (
	dateLayout = "2006-01-02"
	// windowDays is a fixed day count, not a calendar year; leap days are not adjusted for.
	windowDays = 365
)

type Service struct {
	repository repository.ClimateRepository
	logger     *slog.Logger
}

func NewService(repository repository.ClimateRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repository, logger: logger}
}

// Precipitation returns date -> precipitation for the last windowDays before
// the most recent measurement. When several stations report the same date the
// row stored last in the table wins. An empty store yields an empty map.
func (s *Service) Precipitation(ctx context.Context) (map[string]*float64, error) {
	out := map[string]*float64{}
	since, err := s.windowStart(ctx)
	if errors.Is(err, repository.ErrNoData) {
		s.logger.Warn("precipitation: measurement table is empty")
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.repository.PrecipitationSince(ctx, since)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Date] = row.Amount
	}
	return out, nil
}

// Stations returns every station identifier in the store.
func (s *Service) Stations(ctx context.Context) ([]string, error) {
	return s.repository.ListStations(ctx)
}

// TemperatureObservations returns the most active station's readings for the
// last windowDays. An empty store yields an empty slice.
func (s *Service) TemperatureObservations(ctx context.Context) ([]types.Observation, error) {
	since, err := s.windowStart(ctx)
	if errors.Is(err, repository.ErrNoData) {
		s.logger.Warn("tobs: measurement table is empty")
		return []types.Observation{}, nil
	}
	if err != nil {
		return nil, err
	}

	station, err := s.repository.MostActiveStation(ctx)
	if errors.Is(err, repository.ErrNoData) {
		return []types.Observation{}, nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug("tobs window", "station", station, "since", since)

	return s.repository.TemperatureSeries(ctx, station, since)
}

// TemperatureStats returns TMIN/TAVG/TMAX for date >= start, bounded by end
// (inclusive) when end is non-empty.
func (s *Service) TemperatureStats(ctx context.Context, start, end string) (types.TemperatureStats, error) {
	return s.repository.TemperatureStats(ctx, start, end)
}

func (s *Service) windowStart(ctx context.Context) (string, error) {
	latest, err := s.repository.LatestDate(ctx)
	if err != nil {
		return "", err
	}
	return WindowStart(latest)
}

// WindowStart subtracts windowDays from a YYYY-MM-DD date.
func WindowStart(latest string) (string, error) {
	t, err := time.Parse(dateLayout, latest)
	if err != nil {
		return "", fmt.Errorf("parse latest date %q: %w", latest, err)
	}
	return t.AddDate(0, 0, -windowDays).Format(dateLayout), nil
}
