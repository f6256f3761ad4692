// Package importer loads the station and measurement CSV exports into a
// migrated climate store. It is a write path and is only used by the
// climatedb tool; the HTTP service opens the store read-only.
package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	dateLayout       = "2006-01-02"
	defaultBatchSize = 1000
)

// Result summarizes one imported source.
type Result struct {
	Source   string
	Imported int
	Skipped  int
	// Existing counts valid rows already present in the store.
	Existing int
	Duration time.Duration
}

type Importer struct {
	db        *gorm.DB
	logger    *slog.Logger
	batchSize int
}

// New wraps an open sqlite3 connection in gorm. Gorm's own logging goes
// through logger at warn level.
func New(sqlDB *sql.DB, logger *slog.Logger) (*Importer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	gdb, err := gorm.Open(sqlite.New(sqlite.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.New(
			slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return &Importer{db: gdb, logger: logger, batchSize: defaultBatchSize}, nil
}

// SetBatchSize sets the number of rows per INSERT.
func (im *Importer) SetBatchSize(n int) {
	if n > 0 {
		im.batchSize = n
	}
}

// ImportFiles loads stations first so measurement rows can reference them.
func (im *Importer) ImportFiles(ctx context.Context, stationsPath, measurementsPath string) ([]Result, error) {
	var results []Result

	res, err := importFile(stationsPath, func(r io.Reader) (Result, error) {
		return im.ImportStations(ctx, r)
	})
	if err != nil {
		return results, err
	}
	results = append(results, res)

	res, err = importFile(measurementsPath, func(r io.Reader) (Result, error) {
		return im.ImportMeasurements(ctx, r)
	})
	if err != nil {
		return results, err
	}
	return append(results, res), nil
}

func importFile(path string, load func(io.Reader) (Result, error)) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	res, err := load(f)
	res.Source = filepath.Base(path)
	if err != nil {
		return res, fmt.Errorf("import %s: %w", path, err)
	}
	return res, nil
}

// ImportStations reads station,name,latitude,longitude,elevation rows.
// Stations already present are left untouched.
func (im *Importer) ImportStations(ctx context.Context, r io.Reader) (Result, error) {
	start := time.Now()
	var (
		stations []Station
		res      Result
	)
	err := readRows(r, "station", func(line int, rec []string) {
		s, err := parseStation(rec)
		if err != nil {
			res.Skipped++
			im.logger.Warn("skipping station row", "line", line, "error", err)
			return
		}
		stations = append(stations, s)
	})
	if err != nil {
		return res, err
	}

	if len(stations) > 0 {
		err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			created := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "station"}},
				DoNothing: true,
			}).CreateInBatches(stations, im.batchSize)
			res.Imported = int(created.RowsAffected)
			return created.Error
		})
		if err != nil {
			res.Imported = 0
			return res, fmt.Errorf("insert stations: %w", err)
		}
	}
	res.Existing = len(stations) - res.Imported
	if res.Existing > 0 {
		im.logger.Info("stations already present", "count", res.Existing)
	}
	res.Duration = time.Since(start)
	return res, nil
}

// ImportMeasurements reads station,date,prcp,tobs rows. Empty prcp or tobs
// cells are stored as NULL. Rows whose (station, date) is already stored are
// left out, so importing the same file twice adds nothing. All rows go in one
// transaction.
func (im *Importer) ImportMeasurements(ctx context.Context, r io.Reader) (Result, error) {
	start := time.Now()
	var (
		measurements []Measurement
		res          Result
	)
	err := readRows(r, "station", func(line int, rec []string) {
		m, err := parseMeasurement(rec)
		if err != nil {
			res.Skipped++
			im.logger.Warn("skipping measurement row", "line", line, "error", err)
			return
		}
		measurements = append(measurements, m)
	})
	if err != nil {
		return res, err
	}

	if len(measurements) > 0 {
		err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			fresh, err := withoutStored(tx, measurements)
			if err != nil {
				return err
			}
			res.Existing = len(measurements) - len(fresh)
			if len(fresh) == 0 {
				return nil
			}
			res.Imported = len(fresh)
			return tx.CreateInBatches(fresh, im.batchSize).Error
		})
		if err != nil {
			res.Imported, res.Existing = 0, 0
			return res, fmt.Errorf("insert measurements: %w", err)
		}
	}
	if res.Existing > 0 {
		im.logger.Info("measurements already present", "count", res.Existing)
	}
	res.Duration = time.Since(start)
	return res, nil
}

type measurementKey struct {
	Station string
	Date    string
}

// withoutStored drops rows whose (station, date) already exists.
func withoutStored(tx *gorm.DB, measurements []Measurement) ([]Measurement, error) {
	stationSet := map[string]struct{}{}
	for _, m := range measurements {
		stationSet[m.Station] = struct{}{}
	}
	stations := make([]string, 0, len(stationSet))
	for s := range stationSet {
		stations = append(stations, s)
	}

	var keys []measurementKey
	err := tx.Model(&Measurement{}).
		Select("station", "date").
		Where("station IN ?", stations).
		Scan(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("load stored measurements: %w", err)
	}
	if len(keys) == 0 {
		return measurements, nil
	}

	stored := make(map[measurementKey]struct{}, len(keys))
	for _, k := range keys {
		stored[k] = struct{}{}
	}
	fresh := make([]Measurement, 0, len(measurements))
	for _, m := range measurements {
		if _, ok := stored[measurementKey{Station: m.Station, Date: m.Date}]; ok {
			continue
		}
		fresh = append(fresh, m)
	}
	return fresh, nil
}

// readRows calls fn for every non-blank record, skipping a leading header
// whose first cell is headerWord.
func readRows(r io.Reader, headerWord string, fn func(line int, rec []string)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	first := true
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if first {
			first = false
			if len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), headerWord) {
				continue
			}
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		fn(line, rec)
	}
}

func parseStation(rec []string) (Station, error) {
	if len(rec) < 2 {
		return Station{}, fmt.Errorf("expected at least 2 columns, got %d", len(rec))
	}
	s := Station{
		Station: strings.TrimSpace(rec[0]),
		Name:    strings.TrimSpace(rec[1]),
	}
	if s.Station == "" {
		return Station{}, errors.New("empty station id")
	}
	var err error
	fields := []**float64{&s.Latitude, &s.Longitude, &s.Elevation}
	for i, dst := range fields {
		col := i + 2
		if col >= len(rec) {
			break
		}
		if *dst, err = optionalFloat(rec[col]); err != nil {
			return Station{}, err
		}
	}
	return s, nil
}

func parseMeasurement(rec []string) (Measurement, error) {
	if len(rec) < 2 {
		return Measurement{}, fmt.Errorf("expected at least 2 columns, got %d", len(rec))
	}
	m := Measurement{
		Station: strings.TrimSpace(rec[0]),
		Date:    strings.TrimSpace(rec[1]),
	}
	if m.Station == "" {
		return Measurement{}, errors.New("empty station id")
	}
	if _, err := time.Parse(dateLayout, m.Date); err != nil {
		return Measurement{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", m.Date)
	}
	var err error
	if len(rec) > 2 {
		if m.Prcp, err = optionalFloat(rec[2]); err != nil {
			return Measurement{}, err
		}
	}
	if len(rec) > 3 {
		if m.Tobs, err = optionalFloat(rec[3]); err != nil {
			return Measurement{}, err
		}
	}
	return m, nil
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return &v, nil
}
