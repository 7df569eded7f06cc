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

	"github.com/aidmatch/platform/internal/adapters/registry"
	"github.com/aidmatch/platform/internal/adapters/registry/statebenefits"
	appapi "github.com/aidmatch/platform/internal/application/api"
	appdomain "github.com/aidmatch/platform/internal/application/domain"
	appinfra "github.com/aidmatch/platform/internal/application/infrastructure"
	assessapi "github.com/aidmatch/platform/internal/assessment/api"
	assessdomain "github.com/aidmatch/platform/internal/assessment/domain"
	assessinfra "github.com/aidmatch/platform/internal/assessment/infrastructure"
	"github.com/aidmatch/platform/internal/audit"
	"github.com/aidmatch/platform/internal/eligibility"
	"github.com/aidmatch/platform/internal/notification"
	"github.com/aidmatch/platform/internal/oracle"
	"github.com/aidmatch/platform/internal/simulation"
	"github.com/aidmatch/platform/internal/shared/auth"
	"github.com/aidmatch/platform/internal/shared/config"
	"github.com/aidmatch/platform/internal/shared/database"
	"github.com/aidmatch/platform/internal/shared/events"
	"github.com/aidmatch/platform/internal/shared/metrics"
	secmiddleware "github.com/aidmatch/platform/internal/shared/middleware"
)

// App holds the process-wide dependencies
type App struct {
	Config   *config.Config
	DB       *database.DB
	Bus      events.EventBus
	Registry registry.Adapter
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	// Database is optional; without it assessments and applications are
	// kept in memory only.
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Warning: Database not available: %v\n", err)
		fmt.Println("Running in limited mode without persistence...")
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}
	}

	// EventStoreDB is optional; the in-memory bus keeps the audit trail
	// and notification dispatcher working in local setups.
	bus, err := events.NewBus(ctx, cfg.EventStore)
	if err != nil {
		fmt.Printf("Warning: EventStoreDB not available: %v\n", err)
		fmt.Println("Falling back to in-memory event bus...")
		app.Bus = events.NewMemoryBus()
	} else {
		app.Bus = bus
		defer bus.Close()
		fmt.Println("EventStoreDB event bus initialized")
	}

	// Legacy state registry is opt-in
	if cfg.Registry.Enabled {
		reg, err := statebenefits.New(ctx, cfg.Registry)
		if err != nil {
			fmt.Printf("Warning: State registry not available: %v\n", err)
		} else {
			app.Registry = reg
			defer reg.Close()
			fmt.Printf("State registry connected (%s)\n", reg.SourceSystem())
		}
	}

	// Core domain services
	assessor := assessdomain.NewAssessor(cfg.Guidelines)
	engine := eligibility.NewEngine(eligibility.DefaultCatalog(), cfg.Guidelines)
	oracleClient := oracle.NewClient(cfg.Oracle)

	var appRepo appdomain.Repository
	var assessRepo assessapi.Repository
	if app.DB != nil {
		appRepo = appinfra.NewPostgresRepository(app.DB.Pool)
		assessRepo = assessinfra.NewPostgresRepository(app.DB.Pool)
	}
	tracker := appdomain.NewTracker(appRepo, app.Bus)

	// Notification dispatcher; mock providers until a real carrier is wired
	dispatcher := notification.NewDispatcher(
		notification.NewMockEmailProvider(),
		notification.NewMockSMSProvider(),
		notification.DefaultDispatcherConfig(),
	)
	if err := dispatcher.Start(ctx); err != nil {
		fmt.Printf("Warning: Notification dispatcher failed to start: %v\n", err)
	} else {
		defer dispatcher.Stop()
		if err := dispatcher.AttachBus(ctx, app.Bus); err != nil {
			fmt.Printf("Warning: Notification dispatcher subscription failed: %v\n", err)
		}
	}

	// Audit trail
	auditRepo := audit.NewMemoryRepository()
	auditSubscriber := audit.NewSubscriber(auditRepo, app.Bus)
	if err := auditSubscriber.Start(ctx); err != nil {
		fmt.Printf("Warning: Audit subscriber failed to start: %v\n", err)
	} else {
		fmt.Println("Audit subscriber started")
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.MaxBody(1 << 20))
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", infoHandler)

	// Session issuance is the only unauthenticated API endpoint
	r.Post("/api/v1/sessions", sessionHandler(cfg.Auth))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth))
		r.Use(secmiddleware.RateLimiter(10, 30))

		assessHandler := assessapi.NewHandler(assessor, engine, oracleClient, assessRepo, app.Bus)
		r.Mount("/assessments", assessHandler.Routes())

		r.Mount("/programs", eligibility.NewHandler(engine).Routes())

		appHandler := appapi.NewHandler(tracker, assessor, engine, app.Registry)
		r.Mount("/applications", appHandler.Routes())
		r.Mount("/notifications", appHandler.NotificationRoutes())

		r.Mount("/delivery", notification.NewHandler(dispatcher).Routes())

		r.Mount("/audit", audit.NewHandler(auditRepo).Routes())

		r.Mount("/simulation", simulation.NewHandler(tracker, app.Bus).Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("AidMatch Benefits Eligibility Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment:  %s\n", cfg.Server.Env)
	fmt.Printf("Server:       http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:          http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:       http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Oracle:       enabled=%v url=%s\n", cfg.Oracle.Enabled, cfg.Oracle.URL)
	fmt.Printf("Registry:     enabled=%v\n", cfg.Registry.Enabled)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "AidMatch Benefits Eligibility Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

// sessionHandler issues an anonymous applicant session
func sessionHandler(cfg config.AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, token, err := auth.IssueSession(cfg)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "failed to issue session"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"session": session,
			"token":   token,
		})
	}
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

		if err := app.Bus.Health(); err != nil {
			checks["eventstore"] = "not ready: " + err.Error()
		} else {
			checks["eventstore"] = "ready"
		}

		if app.Registry != nil {
			if err := app.Registry.Health(r.Context()); err != nil {
				checks["registry"] = "not ready: " + err.Error()
			} else {
				checks["registry"] = "ready"
			}
		} else {
			checks["registry"] = "not configured"
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
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
