package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/letmevibethatforyou/grantsx"
)

const offlineGrants = `[
  {"_id": "a1", "title": "River Restoration", "agencyName": "EPA", "city": "Austin", "minAmount": 10000, "maxAmount": 50000},
  {"_id": "a2", "title": "Community Theater", "agencyName": "NEA", "city": "Boise", "minAmount": 5000, "maxAmount": 25000},
  {"_id": "a3", "title": "Clean River Monitoring", "agencyName": "EPA", "city": "Boise", "minAmount": 25000, "maxAmount": 100000},
  {"_id": "a4", "title": "Library Modernization", "agencyName": "IMLS", "city": "Austin", "minAmount": 50000, "maxAmount": 250000}
]`

// run executes the CLI with an isolated config and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := append([]string{"grants",
		"--config", filepath.Join(dir, "config.toml"),
		"--env-file", filepath.Join(dir, ".env"),
	}, args...)
	err := app.Run(argv)
	return stdout.String(), err
}

func writeOffline(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grants.json")
	if err := os.WriteFile(path, []byte(offlineGrants), 0o600); err != nil {
		t.Fatalf("Failed to write offline data: %v", err)
	}
	return path
}

func decodeView(t *testing.T, out string) viewPayload {
	t.Helper()
	var v viewPayload
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("Failed to decode output %q: %v", out, err)
	}
	return v
}

func ids(grants []grantsx.Grant) []string {
	out := make([]string, len(grants))
	for i, g := range grants {
		out[i] = g.ID
	}
	return out
}

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name                 string
		city, agency, lo, hi string
		want                 grantsx.FilterSet
		wantErr              error
	}{
		{name: "no filters"},
		{
			name: "city and agency trimmed",
			city: " Austin ", agency: "EPA",
			want: grantsx.FilterSet{City: "Austin", AgencyName: "EPA"},
		},
		{
			name: "amount bounds",
			lo:   "100000", hi: "500000",
			want: grantsx.FilterSet{MinAmount: grantsx.AmountOf(100000), MaxAmount: grantsx.AmountOf(500000)},
		},
		{name: "not a number", lo: "lots", wantErr: grantsx.ErrInvalidFilter},
		{name: "not finite", hi: "NaN", wantErr: grantsx.ErrInvalidFilter},
		{name: "min above max", lo: "10", hi: "5", wantErr: grantsx.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilters(tt.city, tt.agency, tt.lo, tt.hi)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestSearchCommand_Offline(t *testing.T) {
	path := writeOffline(t)

	tests := []struct {
		name      string
		args      []string
		wantIDs   []string
		wantPage  int
		wantTotal int
	}{
		{
			name:      "all grants",
			args:      []string{"search", "--format", "json"},
			wantIDs:   []string{"a1", "a2", "a3", "a4"},
			wantPage:  1,
			wantTotal: 4,
		},
		{
			name:      "search term",
			args:      []string{"search", "--format", "json", "river"},
			wantIDs:   []string{"a1", "a3"},
			wantPage:  1,
			wantTotal: 2,
		},
		{
			name:      "filters",
			args:      []string{"search", "--format", "json", "--city", "boise", "--min-amount", "30000"},
			wantIDs:   []string{"a3"},
			wantPage:  1,
			wantTotal: 1,
		},
		{
			name:      "page past the end falls back to page 1",
			args:      []string{"search", "--format", "json", "--page", "9"},
			wantIDs:   []string{"a1", "a2", "a3", "a4"},
			wantPage:  1,
			wantTotal: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"--offline-data", path}, tt.args...)...)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			v := decodeView(t, out)
			if diff := cmp.Diff(tt.wantIDs, ids(v.Items)); diff != "" {
				t.Errorf("Unexpected ids (-want +got):\n%s", diff)
			}
			if v.Page != tt.wantPage || v.TotalItems != tt.wantTotal {
				t.Errorf("Expected page %d with %d items, got page %d with %d", tt.wantPage, tt.wantTotal, v.Page, v.TotalItems)
			}
			if v.Mode != "standard" || v.PageSize != 10 {
				t.Errorf("Unexpected mode %q or page size %d", v.Mode, v.PageSize)
			}
		})
	}
}

func TestSearchCommand_Table(t *testing.T) {
	out, err := run(t, "--offline-data", writeOffline(t), "search", "library")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for _, want := range []string{"TITLE", "Library Modernization", "IMLS", "page 1 of 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestSearchCommand_REST(t *testing.T) {
	var gotQuery string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/grants":
			gotQuery = r.URL.RawQuery
			gotAuth = r.Header.Get("Authorization")
			fmt.Fprint(w, `{"success":true,"data":[{"_id":"r1","title":"Rural Broadband","minAmount":100000}],"pagination":{"totalItems":31,"totalPages":4}}`)
		case "/grants/favorites":
			fmt.Fprint(w, `{"data":["r1"]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	out, err := run(t, "--api-url", server.URL, "--token", "secret",
		"search", "--format", "json", "--page", "2", "--min-amount", "100000")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if gotQuery != "limit=10&minAmount=100000&page=2" {
		t.Errorf("Unexpected query %q", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Unexpected authorization header %q", gotAuth)
	}

	v := decodeView(t, out)
	if v.Page != 2 || v.TotalPages != 4 || v.TotalItems != 31 {
		t.Errorf("Unexpected paging %+v", v)
	}
	if diff := cmp.Diff([]string{"r1"}, ids(v.Items)); diff != "" {
		t.Errorf("Unexpected ids (-want +got):\n%s", diff)
	}
}

func TestSearchCommand_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/grants/favorites" {
			fmt.Fprint(w, `{"data":[]}`)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"message":"maintenance"}`)
	}))
	defer server.Close()

	_, err := run(t, "--api-url", server.URL, "search")
	if !errors.Is(err, grantsx.ErrLoadFailed) {
		t.Fatalf("Expected load error, got %v", err)
	}
	if !strings.Contains(err.Error(), "maintenance") {
		t.Errorf("Expected backend message in %q", err.Error())
	}
}

func TestMatchCommand_Offline(t *testing.T) {
	path := writeOffline(t)

	out, err := run(t, "--offline-data", path, "match", "--format", "json", "river", "monitoring")
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	v := decodeView(t, out)
	if v.Mode != "matched" {
		t.Errorf("Expected matched mode, got %q", v.Mode)
	}
	if diff := cmp.Diff([]string{"a3", "a1"}, ids(v.Items)); diff != "" {
		t.Errorf("Unexpected ids (-want +got):\n%s", diff)
	}
	if pct := v.Items[0].MatchPercentage; pct == nil || *pct != 100 {
		t.Errorf("Expected full match for a3, got %v", pct)
	}
}

func TestMatchCommand_Errors(t *testing.T) {
	path := writeOffline(t)

	if _, err := run(t, "--offline-data", path, "match"); !errors.Is(err, grantsx.ErrEmptyQuery) {
		t.Errorf("Expected empty query error, got %v", err)
	}

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	t.Setenv("ALGOLIA_APP_ID", "")
	if _, err := run(t, "--api-url", server.URL, "match", "river"); err == nil || !strings.Contains(err.Error(), "Algolia credentials") {
		t.Errorf("Expected missing matcher error, got %v", err)
	}
}

func TestFavoritesCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":["f1",{"_id":"f2","title":"Saved"}]}`)
	}))
	defer server.Close()

	out, err := run(t, "--api-url", server.URL, "favorites")
	if err != nil {
		t.Fatalf("favorites failed: %v", err)
	}
	if out != "f1\nf2\n" {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestCommandValidation(t *testing.T) {
	path := writeOffline(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no backend", args: []string{"search"}, want: "no backend configured"},
		{name: "bad format", args: []string{"--offline-data", path, "search", "--format", "xml"}, want: "unknown format"},
		{name: "bad page size", args: []string{"--offline-data", path, "search", "--page-size", "30"}, want: "invalid page size"},
		{name: "bad filter", args: []string{"--offline-data", path, "search", "--max-amount", "-5"}, want: "invalid filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GRANTS_API_URL", "")
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
