package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyayasetu/platform/internal/adapters/stationregistry"
	"github.com/nyayasetu/platform/internal/audit"
	"github.com/nyayasetu/platform/internal/notification"
	sharedauth "github.com/nyayasetu/platform/internal/shared/auth"
	"github.com/nyayasetu/platform/internal/shared/config"
	"github.com/nyayasetu/platform/internal/shared/database"
	"github.com/nyayasetu/platform/internal/shared/events"
	"github.com/nyayasetu/platform/internal/shared/logging"
	"github.com/nyayasetu/platform/internal/shared/metrics"
	secmiddleware "github.com/nyayasetu/platform/internal/shared/middleware"
	"github.com/nyayasetu/platform/internal/workflow"
)

// App holds the process-wide dependencies.
type App struct {
	Config   *config.Config
	DB       *database.DB
	Bus      *events.Bus
	Stations *stationregistry.Adapter
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app := &App{Config: cfg}

	// Database is optional: without it the service runs on in-memory
	// storage, which is enough for demos and local development.
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Warnw("database not available, running with in-memory storage", "error", err)
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			logger.Warnw("migration failed", "error", err)
		}
	}

	if cfg.EventStore.Enabled {
		bus, err := events.NewBus(ctx, cfg.EventStore)
		if err != nil {
			logger.Warnw("event store not available, running without transition events", "error", err)
		} else {
			app.Bus = bus
			defer bus.Close()
			logger.Infow("transition event bus initialized", "host", cfg.EventStore.Host)
		}
	}

	if cfg.StationRegistry.Enabled {
		stations, err := stationregistry.New(ctx, cfg.StationRegistry)
		if err != nil {
			logger.Warnw("station registry not available, FIR station codes will not be validated", "error", err)
		} else {
			app.Stations = stations
			defer stations.Close()
			logger.Infow("station registry connected", "host", cfg.StationRegistry.Host)
		}
	}

	// Storage wiring: Postgres when available, in-memory otherwise.
	var (
		repo       workflow.Repository
		auditStore audit.Store
		notifStore notification.Store
	)
	if app.DB != nil {
		repo = workflow.NewPostgresRepository(app.DB.Pool)
		pgAudit := audit.NewPostgresStore(app.DB.Pool)
		if err := pgAudit.Initialize(ctx); err != nil {
			logger.Warnw("audit chain initialization failed", "error", err)
		}
		auditStore = pgAudit
		notifStore = notification.NewPostgresStore(app.DB.Pool)
	} else {
		repo = workflow.NewMemoryRepository()
		auditStore = audit.NewMemoryStore()
		notifStore = notification.NewMemoryStore()
	}

	hub := notification.NewHub()
	dispatcher := notification.NewDispatcher(notifStore, hub)
	recorder := audit.NewRecorder(auditStore)

	engineOpts := []workflow.Option{}
	if app.Stations != nil {
		engineOpts = append(engineOpts, workflow.WithStationDirectory(app.Stations))
	}
	engine := workflow.NewEngine(repo, engineOpts...)
	history := workflow.NewHistoryReader(repo, auditStore, workflow.StaticDirectory{})

	var bus events.Publisher
	if app.Bus != nil {
		bus = app.Bus
	}
	workflowHandler := workflow.NewHandler(engine, dispatcher, recorder, history, bus)
	notificationHandler := notification.NewHandler(notifStore, hub)

	rateLimiter := secmiddleware.NewIPRateLimiter(20, 40)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", infoHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		r.Use(sharedauth.Middleware(cfg.Auth))

		r.Mount("/workflow", workflowHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorw("server shutdown error", "error", err)
		}
		close(done)
	}()

	logger.Infow("NyayaSetu justice workflow platform starting",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"database", app.DB != nil,
		"event_bus", app.Bus != nil,
		"station_registry", app.Stations != nil,
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Errorw("server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "NyayaSetu Justice Workflow Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["eventstore"] = "not ready: " + err.Error()
			} else {
				checks["eventstore"] = "ready"
			}
		} else {
			checks["eventstore"] = "not configured"
		}

		if app.Stations != nil {
			if err := app.Stations.Health(r.Context()); err != nil {
				checks["station_registry"] = "not ready: " + err.Error()
			} else {
				checks["station_registry"] = "ready"
			}
		} else {
			checks["station_registry"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
