// Package http exposes the week ledger over a JSON API: week and settlement
// reads, expense and hours mutations, import/export and sync control.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"weeklykeeper/internal/cache"
	"weeklykeeper/internal/core"
	"weeklykeeper/internal/middleware/ratelimit"
	"weeklykeeper/internal/middleware/security"
	"weeklykeeper/internal/middleware/trace"
	"weeklykeeper/internal/store"
	syncpkg "weeklykeeper/internal/sync"
)

// SyncControl is the part of the sync coordinator the API needs.
type SyncControl interface {
	Status() syncpkg.Status
	TriggerNow()
}

type Server struct {
	http.Server

	store   *store.Store
	sync    SyncControl
	limiter *ratelimit.Limiter

	// Settlements are pure functions of (week, policy, revision); the
	// revision in the key makes stale entries unreachable after any edit.
	settlementCache *cache.LRUCache[core.Settlement]
	cacheManager    *cache.Manager

	shutdownOnce sync.Once
}

// Options configures the server beyond its dependencies.
type Options struct {
	Addr              string
	CORSOrigins       []string
	RequestsPerMinute int
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// syncCtl may be nil when no remote sync is configured.
func NewServer(opts Options, st *store.Store, syncCtl SyncControl) *Server {
	r := chi.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:           st,
		sync:            syncCtl,
		limiter:         ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		settlementCache: cache.NewLRUCache[core.Settlement](256, 5*time.Minute),
		cacheManager:    cache.NewManager(),
	}

	s.cacheManager.Register(s.settlementCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r.Use(chimw.Recoverer)
	r.Use(trace.Middleware)
	r.Use(headers.Middleware)
	r.Use(s.limiter.Middleware(trace.ClientIP))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/data", s.handleGetData)
		r.Post("/data", s.handleReplaceData)
		r.Post("/import", s.handleImport)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/weeks", s.handleListWeeks)
		r.Get("/weeks/current", s.handleCurrentWeek)
		r.Route("/weeks/{weekKey}", func(r chi.Router) {
			r.Get("/", s.handleGetWeek)
			r.Get("/settlement", s.handleSettlement)
			r.Put("/settings", s.handleWeekSettings)
			r.Post("/expenses", s.handleAddExpense)
			r.Delete("/expenses/{expenseID}", s.handleDeleteExpense)
			r.Put("/days/{dateKey}/hours", s.handleSetHours)
			r.Put("/days/{dateKey}/workday", s.handleSetWorkDay)
		})

		r.Get("/months/{monthKey}", s.handleMonthSummary)

		r.Get("/export", s.handleExportJSON)
		r.Get("/export/xlsx", s.handleExportXLSX)

		r.Get("/sync/status", s.handleSyncStatus)
		r.Post("/sync/trigger", s.handleSyncTrigger)
	})

	return s
}

// Shutdown stops the HTTP server and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
