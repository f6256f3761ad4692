package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func Test_parseStatsPath(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr string
	}{
		{name: "start only", start: "2017-08-22"},
		{name: "start and end", start: "2017-08-22", end: "2017-08-23"},
		{name: "trims whitespace", start: " 2017-08-22 "},
		{name: "missing start", start: "", wantErr: "missing 'start' date"},
		{name: "bad start", start: "2017/08/22", wantErr: `invalid 'start' "2017/08/22" (expected YYYY-MM-DD)`},
		{name: "bad end", start: "2017-08-22", end: "2017-02-30", wantErr: `invalid 'end' "2017-02-30" (expected YYYY-MM-DD)`},
		{name: "datetime is not a date", start: "2017-08-22T00:00:00Z", wantErr: `invalid 'start' "2017-08-22T00:00:00Z" (expected YYYY-MM-DD)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("start", tt.start)
			if tt.end != "" {
				req.SetPathValue("end", tt.end)
			}

			got, err := parseStatsPath(req)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v; want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Start != "2017-08-22" || got.End != tt.end {
				t.Errorf("got %+v", got)
			}
		})
	}
}
