package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cwarden/termin/internal/calendar"
)

// fakeService mimics the calendar service: an ordered list addressed by
// index, plus config, import and export endpoints.
type fakeService struct {
	mu       sync.Mutex
	entries  []calendar.Entry
	config   calendar.RemoteConfig
	imported []string
	requests []string
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/calendar/entries", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.entries)
	})
	mux.HandleFunc("POST /api/calendar/entries", func(w http.ResponseWriter, r *http.Request) {
		var e calendar.Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil || e.Title == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.entries = append(f.entries, e)
		writeJSON(w, http.StatusCreated, e)
	})
	mux.HandleFunc("PUT /api/calendar/entries/{index}", func(w http.ResponseWriter, r *http.Request) {
		i, ok := f.index(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		var e calendar.Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.entries[i] = e
		writeJSON(w, http.StatusOK, e)
	})
	mux.HandleFunc("DELETE /api/calendar/entries/{index}", func(w http.ResponseWriter, r *http.Request) {
		i, ok := f.index(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.entries = append(f.entries[:i], f.entries[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/calendar/import", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Keine Datei hochgeladen", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if !strings.HasPrefix(string(data), "BEGIN:VCALENDAR") {
			http.Error(w, "Fehler beim Import: <b>kaputt</b>", http.StatusInternalServerError)
			return
		}
		f.imported = append(f.imported, header.Filename)
		io.WriteString(w, "2 Einträge importiert")
	})
	mux.HandleFunc("GET /api/calendar/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		io.WriteString(w, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	})
	mux.HandleFunc("GET /api/calendar/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.config)
	})
	mux.HandleFunc("POST /api/calendar/config", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&f.config); err != nil {
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeService) index(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || i < 0 || i >= len(f.entries) {
		return 0, false
	}
	return i, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeService) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/api/calendar/")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", DefaultBaseURL, false},
		{"http://example.com/api/calendar/", "http://example.com/api/calendar", false},
		{"https://cal.example.com", "https://cal.example.com", false},
		{"ftp://example.com", "", true},
		{"://bad", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := New(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("New(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.in, err)
			}
			if c.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.want)
			}
		})
	}
}

func TestEntryRoundTrip(t *testing.T) {
	ctx := context.Background()
	desc := "Agenda"
	f := &fakeService{entries: []calendar.Entry{
		{Title: "a", Description: &desc, Start: "2024-03-10T09:00", End: "2024-03-10T10:00"},
	}}
	c := newTestClient(t, f)

	entries, err := c.LoadEntries(ctx)
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].DescriptionText() != "Agenda" || entries[0].Category != nil {
		t.Fatalf("entries = %+v", entries)
	}

	if err := c.CreateEntry(ctx, calendar.Entry{Title: "b", Start: "2024-03-11T09:00", End: "2024-03-11T10:00"}); err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}
	if err := c.UpdateEntry(ctx, calendar.Target{Position: 0}, calendar.Entry{Title: "a2", Start: "2024-03-10T09:00", End: "2024-03-10T10:00"}); err != nil {
		t.Fatalf("UpdateEntry failed: %v", err)
	}
	if err := c.DeleteEntry(ctx, calendar.Target{Position: 1}); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}

	entries, err = c.LoadEntries(ctx)
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "a2" {
		t.Errorf("entries = %+v", entries)
	}

	want := []string{
		"GET /api/calendar/entries",
		"POST /api/calendar/entries",
		"PUT /api/calendar/entries/0",
		"DELETE /api/calendar/entries/1",
		"GET /api/calendar/entries",
	}
	if strings.Join(f.requests, "\n") != strings.Join(want, "\n") {
		t.Errorf("requests =\n%s\nwant\n%s", strings.Join(f.requests, "\n"), strings.Join(want, "\n"))
	}
}

func TestEntryJSONNulls(t *testing.T) {
	data, err := json.Marshal(calendar.Entry{Title: "a", Start: "s", End: "e"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"title":"a","description":null,"start":"s","end":"e","category":null,"reminderMinutesBefore":null}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestTargetByID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Method + " " + r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	if err := c.DeleteEntry(context.Background(), calendar.Target{Position: 4, ID: "a/b"}); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	if got != "DELETE /entries/a%2Fb" {
		t.Errorf("request = %q", got)
	}
}

func TestErrorsCarryKindAndDetail(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, &fakeService{})

	err := c.DeleteEntry(ctx, calendar.Target{Position: 5})
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("DeleteEntry error = %v, want *Error", err)
	}
	if be.Kind != MutationFailure || be.Status != http.StatusNotFound {
		t.Errorf("error = %+v", be)
	}

	_, err = c.ImportFile(ctx, "x.ics", strings.NewReader("garbage"))
	if !IsKind(err, MutationFailure) {
		t.Fatalf("ImportFile error = %v, want mutation failure", err)
	}
	if got := calendar.ErrorDetail(err); got != "Fehler beim Import: <b>kaputt</b>" {
		t.Errorf("detail = %q", got)
	}
}

func TestLoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "[]")
	}))
	defer srv.Close()
	c, _ := New(srv.URL)

	if _, err := c.LoadEntries(context.Background()); !IsKind(err, LoadFailure) {
		t.Errorf("LoadEntries error = %v, want load failure", err)
	}

	srv.Close()
	if _, err := c.LoadEntries(context.Background()); !IsKind(err, LoadFailure) {
		t.Errorf("LoadEntries on closed server = %v, want load failure", err)
	}
}

func TestImportAndExport(t *testing.T) {
	ctx := context.Background()
	f := &fakeService{}
	c := newTestClient(t, f)

	msg, err := c.ImportFile(ctx, "/tmp/ferien.ics", strings.NewReader("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if msg != "2 Einträge importiert" {
		t.Errorf("message = %q", msg)
	}
	if len(f.imported) != 1 || f.imported[0] != "ferien.ics" {
		t.Errorf("imported = %v", f.imported)
	}

	data, err := c.ExportCalendar(ctx)
	if err != nil {
		t.Fatalf("ExportCalendar failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "BEGIN:VCALENDAR") {
		t.Errorf("export = %q", data)
	}
}

func TestConfig(t *testing.T) {
	ctx := context.Background()
	f := &fakeService{config: calendar.RemoteConfig{ICSPath: "/data/calendar.ics"}}
	c := newTestClient(t, f)

	cfg, err := c.GetConfig(ctx)
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.DarkMode || cfg.ICSPath != "/data/calendar.ics" {
		t.Errorf("config = %+v", cfg)
	}

	cfg.DarkMode = true
	if err := c.SetConfig(ctx, cfg); err != nil {
		t.Fatalf("SetConfig failed: %v", err)
	}
	if !f.config.DarkMode {
		t.Error("dark mode not pushed")
	}
}

func TestConfigFailureKind(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c, _ := New(srv.URL)

	if _, err := c.GetConfig(context.Background()); !IsKind(err, ConfigSyncFailure) {
		t.Errorf("GetConfig error = %v, want config sync failure", err)
	}
	if err := c.SetConfig(context.Background(), calendar.RemoteConfig{}); !IsKind(err, ConfigSyncFailure) {
		t.Errorf("SetConfig error = %v, want config sync failure", err)
	}
}
