package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"grateful/internal/cache"
	"grateful/internal/entries"
	"grateful/internal/log"
	"grateful/internal/metrics"
	"grateful/internal/middleware/ratelimit"
	"grateful/internal/middleware/security"
	"grateful/internal/middleware/trace"
	"grateful/internal/reminder"
	"grateful/internal/services"
	appweb "grateful/web"
)

const (
	// DefaultRecapCacheTTL bounds how long a rendered recap image is reused.
	DefaultRecapCacheTTL = time.Hour

	recapCacheSize       = 16
	cacheCleanupInterval = 10 * time.Minute
	readyTimeout         = 5 * time.Second
	staticMaxAge         = 3600
)

var templateFuncs = template.FuncMap{
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server needs. Entries is required.
type Deps struct {
	Entries   *services.EntryService
	Reminders *reminder.Service
	Backend   Pinger
	Metrics   *metrics.Metrics
	Logger    *log.Logger

	RecapCacheTTL time.Duration

	// Templates and Static default to the embedded web assets.
	Templates fs.FS
	Static    fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *log.Logger
	errors    *log.StructuredLogger

	entries   *services.EntryService
	reminders *reminder.Service
	backend   Pinger
	metrics   *metrics.Metrics

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	recapImages *cache.LRUCache[[]byte]
	caches      *cache.Manager
	unsubscribe func()

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
// Template parse failures are logged; pages then answer 500 and /readyz
// reports not ready.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ttl := deps.RecapCacheTTL
	if ttl <= 0 {
		ttl = DefaultRecapCacheTTL
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logger:      logger,
		errors:      log.NewStructuredLogger(logger),
		entries:     deps.Entries,
		reminders:   deps.Reminders,
		backend:     deps.Backend,
		metrics:     deps.Metrics,
		detector:    security.NewDetector(),
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		recapImages: cache.NewLRUCache[[]byte](recapCacheSize, ttl),
		caches:      cache.NewManager(logger),
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	s.caches.Register(s.recapImages)
	s.caches.StartCleanup(cacheCleanupInterval)
	s.unsubscribe = s.entries.Hub().Subscribe(func(entries.Event) {
		s.recapImages.Purge()
	})

	templatesFS := deps.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	t, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	staticFS := deps.Static
	if staticFS == nil {
		if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
			staticFS = sub
		} else {
			logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
		}
	}
	if staticFS != nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		mux.Handle("GET /static/", security.StaticAssets(staticMaxAge)(static))
	}

	s.route(mux, "GET /{$}", s.handleIndex)
	s.route(mux, "POST /entries", s.handleCreateEntry)
	s.route(mux, "POST /entries/{id}/delete", s.handleDeleteEntry)
	s.route(mux, "DELETE /entries/{id}", s.handleDeleteEntry)
	s.route(mux, "GET /api/journal", s.handleJournalJSON)

	s.route(mux, "GET /recap", s.handleRecap)
	s.route(mux, "GET /recap.png", s.handleRecapPNG)
	s.route(mux, "GET /recap.txt", s.handleRecapText)
	s.route(mux, "POST /recap/share", s.handleShareRecap)

	s.route(mux, "GET /settings", s.handleSettings)
	s.route(mux, "POST /settings/reminder", s.handleSaveReminder)

	s.route(mux, "GET /healthz", s.handleHealth)
	s.route(mux, "GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.Handler = s.middleware(mux)
	return s
}

// middleware wraps the mux; the first entry is the outermost.
func (s *Server) middleware(h http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		security.NewHeaders(security.DefaultHeadersConfig()).Middleware,
		s.tracer.Middleware,
		log.Middleware(s.logger),
		log.RequestIDMiddleware(trace.RequestID),
		s.detector.Middleware(s.logger),
		s.limiter.Middleware(s.detector.ClientIP, s.rateLimited),
	}
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// route registers h and counts its responses by pattern.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &trace.StatusRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
		h(rec, r)
		if s.metrics != nil {
			s.metrics.HTTPRequest(pattern, rec.StatusCode)
		}
	}))
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again in a minute.").Write(w)
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, ok := s.renderFragment(w, r, name, data)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
