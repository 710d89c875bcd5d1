package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"grateful/internal/core"
	"grateful/internal/entries/memory"
	"grateful/internal/journal"
	"grateful/internal/metrics"
	"grateful/internal/reminder"
	"grateful/internal/services"
	sheetsmem "grateful/internal/sheets/memory"
)

// Monday, January 8 2024, 20:00 UTC.
var testNow = time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC)

type errPinger struct{ err error }

func (p errPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	srv       *Server
	store     *memory.Store
	entries   *services.EntryService
	reminders *reminder.Service
	sharer    *sheetsmem.Sharer
	metrics   *metrics.Metrics
}

func seedEntries() []core.Entry {
	return []core.Entry{
		{ID: "today", Text: "Morning coffee", CreatedAt: testNow.Add(-11 * time.Hour)},
		{ID: "yesterday", Text: "A long walk", CreatedAt: testNow.Add(-34 * time.Hour)},
	}
}

func newTestEnv(t *testing.T, seed []core.Entry, mutate func(*Deps)) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   memory.New(seed),
		sharer:  sheetsmem.New(),
		metrics: metrics.New(),
	}
	env.entries = services.NewEntryService(env.store,
		services.WithClock(journal.FixedClock{T: testNow}),
		services.WithLocation(time.UTC),
		services.WithSharer(env.sharer),
	)
	env.reminders = reminder.NewService(reminder.NewMemoryStore(), nil)

	deps := Deps{
		Entries:   env.entries,
		Reminders: env.reminders,
		Backend:   errPinger{},
		Metrics:   env.metrics,
	}
	if mutate != nil {
		mutate(&deps)
	}
	env.srv = NewServer(":0", deps)
	t.Cleanup(func() { _ = env.srv.Shutdown(context.Background()) })
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func formRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t, seedEntries(), nil)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"2 day streak", "Today", "Morning coffee", "Add another", "Recent", "Sunday, January 7", "A long walk"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestIndexEmptyJournal(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "day streak") {
		t.Error("streak badge shown for a zero streak")
	}
	if !strings.Contains(body, "What are you grateful for?") {
		t.Error("first-entry prompt missing")
	}
	if strings.Contains(body, "Recent") {
		t.Error("Recent section shown without past entries")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status=%d, want 404", rr.Code)
	}
}

func TestCreateEntryValidationAndSuccess(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	// Wrong method
	rr := env.do(httptest.NewRequest(http.MethodGet, "/entries", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Whitespace only
	rr = env.do(formRequest(http.MethodPost, "/entries", "text=+%0A+"))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Write something") {
		t.Errorf("422 page missing message: %s", rr.Body.String())
	}

	// JSON empty
	rr = env.do(jsonRequest(http.MethodPost, "/entries", `{"text": ""}`))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for JSON, got %d", rr.Code)
	}
	var errBody map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &errBody); err != nil || errBody["error"] == "" {
		t.Fatalf("expected JSON error, got %s", rr.Body.String())
	}

	// Too long
	rr = env.do(jsonRequest(http.MethodPost, "/entries", `{"text": "`+strings.Repeat("a", core.MaxTextLength+1)+`"}`))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for long text, got %d", rr.Code)
	}

	// JSON success
	rr = env.do(jsonRequest(http.MethodPost, "/entries", `{"text": "  Sunshine  "}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created core.Entry
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Text != "Sunshine" || !created.CreatedAt.Equal(testNow) {
		t.Errorf("created = %+v", created)
	}

	// htmx success
	req := formRequest(http.MethodPost, "/entries", "text=Friends")
	req.Header.Set("HX-Request", "true")
	rr = env.do(req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for htmx, got %d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"entry:created"`) || !strings.Contains(trigger, `"streak":1`) {
		t.Errorf("HX-Trigger = %s", trigger)
	}
	if !strings.Contains(rr.Body.String(), "Friends") || !strings.Contains(rr.Body.String(), "1 day streak") {
		t.Errorf("fragment missing new entry: %s", rr.Body.String())
	}

	// plain form success redirects
	rr = env.do(formRequest(http.MethodPost, "/entries", "text=Music"))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	all, _ := env.store.ListAll(context.Background())
	if len(all) != 3 {
		t.Errorf("stored %d entries, want 3", len(all))
	}
}

func TestDeleteEntry(t *testing.T) {
	env := newTestEnv(t, seedEntries(), nil)

	rr := env.do(httptest.NewRequest(http.MethodPost, "/entries/missing/delete", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = env.do(httptest.NewRequest(http.MethodPost, "/entries/today/delete", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/entries/yesterday", nil)
	req.Header.Set("HX-Request", "true")
	rr = env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"entry:deleted"`) {
		t.Errorf("HX-Trigger = %s", rr.Header().Get("HX-Trigger"))
	}

	all, _ := env.store.ListAll(context.Background())
	if len(all) != 0 {
		t.Errorf("stored %d entries, want 0", len(all))
	}
}

func TestJournalJSON(t *testing.T) {
	env := newTestEnv(t, seedEntries(), nil)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/journal", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got struct {
		Streak   int          `json:"streak"`
		Timezone string       `json:"timezone"`
		Today    []core.Entry `json:"today"`
		Recent   []struct {
			Entries []core.Entry `json:"entries"`
		} `json:"recent"`
		Recap struct {
			Total int `json:"total"`
		} `json:"recap"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Streak != 2 || got.Timezone != "UTC" {
		t.Errorf("streak=%d timezone=%q", got.Streak, got.Timezone)
	}
	if len(got.Today) != 1 || got.Today[0].ID != "today" {
		t.Errorf("today = %+v", got.Today)
	}
	if len(got.Recent) != 1 || got.Recent[0].Entries[0].ID != "yesterday" {
		t.Errorf("recent = %+v", got.Recent)
	}
	if got.Recap.Total != 2 {
		t.Errorf("recap total = %d", got.Recap.Total)
	}
}

func TestRecapPages(t *testing.T) {
	env := newTestEnv(t, seedEntries(), nil)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/recap", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("recap status=%d", rr.Code)
	}
	for _, want := range []string{"My Week of Gratitude", "Jan 2 - Jan 8", "Morning coffee", "2 gratitudes this week", "Share"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("recap page missing %q", want)
		}
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/recap.txt", nil))
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "My Week of Gratitude\nJan 2 - Jan 8") {
		t.Errorf("recap.txt = %d %q", rr.Code, rr.Body.String())
	}
}

func TestRecapPNGCachedAndInvalidated(t *testing.T) {
	env := newTestEnv(t, seedEntries(), nil)

	first := env.do(httptest.NewRequest(http.MethodGet, "/recap.png", nil))
	if first.Code != http.StatusOK || first.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("recap.png = %d %s", first.Code, first.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(first.Body.String(), "\x89PNG") {
		t.Fatal("body is not a PNG")
	}
	second := env.do(httptest.NewRequest(http.MethodGet, "/recap.png", nil))
	if second.Body.String() != first.Body.String() {
		t.Error("cached image differs")
	}
	if got := env.srv.recapImages.Size(); got != 1 {
		t.Fatalf("cache size = %d, want 1", got)
	}

	if _, err := env.entries.CreateEntry(context.Background(), "Rain"); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if got := env.srv.recapImages.Size(); got != 0 {
		t.Errorf("cache size after change = %d, want 0", got)
	}
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestRecapPNGDropsEntryLeavingWindow(t *testing.T) {
	clock := &stepClock{t: testNow}
	seed := []core.Entry{
		{ID: "today", Text: "Morning coffee", CreatedAt: testNow.Add(-11 * time.Hour)},
		{ID: "old", Text: "Old friend", CreatedAt: testNow.Add(-7*24*time.Hour + 30*time.Minute)},
	}
	env := newTestEnv(t, nil, func(d *Deps) {
		d.Entries = services.NewEntryService(memory.New(seed),
			services.WithClock(clock),
			services.WithLocation(time.UTC))
	})

	first := env.do(httptest.NewRequest(http.MethodGet, "/recap.png", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("recap.png = %d", first.Code)
	}

	clock.Advance(time.Hour)
	second := env.do(httptest.NewRequest(http.MethodGet, "/recap.png", nil))
	if second.Code != http.StatusOK {
		t.Fatalf("recap.png = %d", second.Code)
	}
	if got := env.srv.recapImages.Size(); got != 2 {
		t.Errorf("cache size = %d, want a fresh image once the old entry aged out", got)
	}
	if second.Body.String() == first.Body.String() {
		t.Error("image still shows the entry that left the window")
	}
}

func TestShareRecap(t *testing.T) {
	env := newTestEnv(t, seedEntries(), nil)

	rr := env.do(jsonRequest(http.MethodPost, "/recap/share", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("share status=%d body=%s", rr.Code, rr.Body.String())
	}
	if len(env.sharer.Shared()) != 1 {
		t.Errorf("shared %d recaps, want 1", len(env.sharer.Shared()))
	}

	disabled := newTestEnv(t, nil, func(d *Deps) {
		d.Entries = services.NewEntryService(memory.New(nil), services.WithClock(journal.FixedClock{T: testNow}))
	})
	rr = disabled.do(httptest.NewRequest(http.MethodPost, "/recap/share", nil))
	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409 without sharer, got %d", rr.Code)
	}
}

func TestReminderSettings(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	rr := env.do(httptest.NewRequest(http.MethodGet, "/settings", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `value="20:00"`) {
		t.Fatalf("settings = %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(formRequest(http.MethodPost, "/settings/reminder", "enabled=on&time=07:30"))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	got, _ := env.reminders.Settings(ctx)
	if !got.Enabled || got.Hour != 7 || got.Minute != 30 {
		t.Errorf("settings = %+v", got)
	}

	rr = env.do(formRequest(http.MethodPost, "/settings/reminder", "enabled=on&time=25:00"))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	req := formRequest(http.MethodPost, "/settings/reminder", "time=09:00")
	req.Header.Set("HX-Request", "true")
	rr = env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"settings:saved"`) {
		t.Errorf("HX-Trigger = %s", rr.Header().Get("HX-Trigger"))
	}
	got, _ = env.reminders.Settings(ctx)
	if got.Enabled || got.Hour != 7 || got.Minute != 30 {
		t.Errorf("disabling should keep the time: %+v", got)
	}
}

func TestTemplateParseErrorPath(t *testing.T) {
	env := newTestEnv(t, nil, func(d *Deps) {
		d.Templates = fstest.MapFS{}
	})

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing templates, got %d", rr.Code)
	}
	rr = env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from readyz, got %d", rr.Code)
	}
}

func TestReadyReportsBackendFailure(t *testing.T) {
	env := newTestEnv(t, nil, func(d *Deps) {
		d.Backend = errPinger{err: errors.New("database is locked")}
	})

	rr := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "database is locked") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestMiddlewareHeadersAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `grateful_http_requests_total{path="GET /{$}",status="200"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Error("missing Cache-Control")
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	var last int
	for i := 0; i < 61; i++ {
		last = env.do(jsonRequest(http.MethodPost, "/entries", `{"text": ""}`)).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st write status = %d, want 429", last)
	}
	if rr := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusOK {
		t.Errorf("reads should not be limited, got %d", rr.Code)
	}
}
