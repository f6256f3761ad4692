package climate

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"surfsup-server/internal/httpapi"
	"surfsup-server/internal/migrate"
	"surfsup-server/internal/modules/climate/views"
)

func newTestServer(t *testing.T, seed func(db *sql.DB)) *httptest.Server {
	t.Helper()
	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	path := filepath.Join(t.TempDir(), "hawaii.sqlite")
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := migrate.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if seed != nil {
		seed(db)
	}

	mux := httpapi.NewMux(db)
	RegisterFeature(mux, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func seedHawaii(t *testing.T) func(db *sql.DB) {
	return func(db *sql.DB) {
		mustExec(t, db, `INSERT INTO station (station, name) VALUES ('USC00519397', 'WAIKIKI'), ('USC00519281', 'WAIHEE')`)
		rows := []struct {
			station string
			date    string
			prcp    any
			tobs    float64
		}{
			{"USC00519397", "2016-08-22", 0.4, 70},
			{"USC00519397", "2016-08-23", 0.0, 81},
			{"USC00519281", "2016-08-23", 1.79, 77},
			{"USC00519281", "2017-08-22", nil, 79},
			{"USC00519281", "2017-08-23", 0.5, 80},
			{"USC00519397", "2017-08-23", 0.0, 81},
			{"USC00519281", "2017-08-18", 0.06, 76},
		}
		for _, r := range rows {
			mustExec(t, db, `INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
				r.station, r.date, r.prcp, r.tobs)
		}
	}
}

func get(t *testing.T, ts *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func TestRegisterFeature_Endpoints(t *testing.T) {
	ts := newTestServer(t, seedHawaii(t))

	t.Run("healthz", func(t *testing.T) {
		code, body := get(t, ts, "/healthz")
		if code != http.StatusOK || body != `{"status":"ok"}` {
			t.Errorf("got %d %s", code, body)
		}
	})

	t.Run("welcome", func(t *testing.T) {
		code, body := get(t, ts, "/")
		if code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if !strings.Contains(body, "Hawaii Climate Analysis API") {
			t.Errorf("welcome body missing title: %s", body)
		}
	})

	t.Run("precipitation window excludes older rows", func(t *testing.T) {
		code, body := get(t, ts, "/api/v1.0/precipitation")
		if code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		var got map[string]*float64
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := got["2016-08-22"]; ok {
			t.Errorf("2016-08-22 is outside the window: %v", got)
		}
		// Both stations reported 2016-08-23; the row stored last wins.
		if v := got["2016-08-23"]; v == nil || *v != 1.79 {
			t.Errorf("2016-08-23 = %v; want 1.79", v)
		}
		if v, ok := got["2017-08-22"]; !ok || v != nil {
			t.Errorf("2017-08-22 = %v (present %v); want null", v, ok)
		}
		if len(got) != 4 {
			t.Errorf("got %d dates; want 4: %v", len(got), got)
		}
	})

	t.Run("stations", func(t *testing.T) {
		code, body := get(t, ts, "/api/v1.0/stations")
		if code != http.StatusOK || body != `["USC00519397","USC00519281"]` {
			t.Errorf("got %d %s", code, body)
		}
	})

	t.Run("tobs uses most active station", func(t *testing.T) {
		code, body := get(t, ts, "/api/v1.0/tobs")
		if code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		want := `[{"date":"2016-08-23","temperature":77},{"date":"2017-08-18","temperature":76},` +
			`{"date":"2017-08-22","temperature":79},{"date":"2017-08-23","temperature":80}]`
		if body != want {
			t.Errorf("body = %s\nwant %s", body, want)
		}
	})

	t.Run("stats range", func(t *testing.T) {
		code, body := get(t, ts, "/api/v1.0/2017-08-22/2017-08-22")
		if code != http.StatusOK || body != `{"TMIN":79,"TAVG":79,"TMAX":79}` {
			t.Errorf("got %d %s", code, body)
		}
	})

	t.Run("stats open ended", func(t *testing.T) {
		code, body := get(t, ts, "/api/v1.0/2017-08-23")
		if code != http.StatusOK || body != `{"TMIN":80,"TAVG":80.5,"TMAX":81}` {
			t.Errorf("got %d %s", code, body)
		}
	})

	t.Run("stats with no rows", func(t *testing.T) {
		code, body := get(t, ts, "/api/v1.0/2030-01-01")
		if code != http.StatusOK || body != `{"TMIN":null,"TAVG":null,"TMAX":null}` {
			t.Errorf("got %d %s", code, body)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		code, _ := get(t, ts, "/api/v1.0/foo")
		if code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400", code)
		}
	})

	t.Run("writes are not routed", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/api/v1.0/stations", "application/json", strings.NewReader("[]"))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d; want 405", resp.StatusCode)
		}
	})
}

func TestRegisterFeature_EmptyStore(t *testing.T) {
	ts := newTestServer(t, nil)

	cases := map[string]string{
		"/api/v1.0/precipitation": `{}`,
		"/api/v1.0/stations":      `[]`,
		"/api/v1.0/tobs":          `[]`,
		"/api/v1.0/2017-01-01":    `{"TMIN":null,"TAVG":null,"TMAX":null}`,
	}
	for path, want := range cases {
		code, body := get(t, ts, path)
		if code != http.StatusOK || body != want {
			t.Errorf("%s: got %d %s; want 200 %s", path, code, body, want)
		}
	}
}

func TestRegisterFeature_PrecipitationLastStoredRowWins(t *testing.T) {
	ts := newTestServer(t, func(db *sql.DB) {
		mustExec(t, db, `INSERT INTO station (station, name) VALUES ('USC9', 'NINE'), ('USC1', 'ONE')`)
		mustExec(t, db, `INSERT INTO measurement (station, date, prcp, tobs) VALUES
			('USC9', '2017-08-22', 9.8, 70),
			('USC9', '2017-08-23', 9.9, 71),
			('USC1', '2017-08-22', NULL, 72),
			('USC1', '2017-08-23', 1.1, 73)`)
	})

	code, body := get(t, ts, "/api/v1.0/precipitation")
	if code != http.StatusOK || body != `{"2017-08-22":null,"2017-08-23":1.1}` {
		t.Errorf("got %d %s", code, body)
	}
}
