package internal

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"inventory-monitor-api/internal/auth"
	"inventory-monitor-api/internal/config"
	"inventory-monitor-api/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/time/rate"
)

type Server struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Cfg        *config.Config
}

func NewServer(dsn string, cfg *config.Config) *Server {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("Failed to open database connection:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Database ping failed:", err)
	}

	// Also create a pgxpool for the importer
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal("Failed to create pgxpool:", err)
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)

	// Validate JWT configuration
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatal("JWT configuration validation failed:", err)
	}

	// Initialize metrics
	metrics := NewMetrics()

	s := &Server{
		DB:         db,
		Pool:       pool,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    metrics,
		Cfg:        cfg,
	}

	if cfg.Runtime.RateLimitPerSec > 0 {
		s.Router.Use(RateLimitMiddleware(rate.Limit(cfg.Runtime.RateLimitPerSec), cfg.Runtime.RateLimitBurst))
	}

	// chi requires all middleware before the first route.
	metricsEnabled := os.Getenv("ENABLE_METRICS") == "true"
	if metricsEnabled {
		s.Router.Use(s.Metrics.Middleware())
	}

	// Mount public routes FIRST (no auth)
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if _, err := w.Write([]byte("db: ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	if metricsEnabled {
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Create a protected route group with middleware
	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))

		s.mountProtectedRoutes(r)
	})

	return s
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// recentDays is the window inside which a probe counts as recent.
func (s *Server) recentDays() int {
	return s.Cfg.Runtime.ProbeRecentDays
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	// Probes - append-only; the bulk delete is an admin cleanup tool
	r.Get("/probes", s.listProbes)
	r.Get("/probes/{id}", s.getProbe)
	r.Post("/probes", auth.MustRole("admin", "editor", "agent")(http.HandlerFunc(s.createProbe)).(http.HandlerFunc))
	r.Post("/probes/bulk-delete", auth.MustRole("admin")(http.HandlerFunc(s.bulkDeleteProbes)).(http.HandlerFunc))

	// Assets - require editor/admin for write operations
	r.Get("/assets", s.listAssets)
	r.Get("/assets/{id}", s.getAsset)
	r.Get("/assets/{id}/probes", s.getAssetProbes)
	r.Post("/assets", auth.MustRole("admin", "editor")(http.HandlerFunc(s.createAsset)).(http.HandlerFunc))
	r.Put("/assets/{id}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.updateAsset)).(http.HandlerFunc))
	r.Delete("/assets/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteAsset)).(http.HandlerFunc))

	// Asset types
	r.Get("/asset-types", s.listAssetTypes)
	r.Get("/asset-types/{id}", s.getAssetType)
	r.Post("/asset-types", auth.MustRole("admin", "editor")(http.HandlerFunc(s.createAssetType)).(http.HandlerFunc))
	r.Put("/asset-types/{id}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.updateAssetType)).(http.HandlerFunc))
	r.Delete("/asset-types/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteAssetType)).(http.HandlerFunc))

	// Asset services
	r.Get("/asset-services", s.listAssetServices)
	r.Get("/asset-services/{id}", s.getAssetService)
	r.Post("/asset-services", auth.MustRole("admin", "editor")(http.HandlerFunc(s.createAssetService)).(http.HandlerFunc))
	r.Put("/asset-services/{id}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.updateAssetService)).(http.HandlerFunc))
	r.Delete("/asset-services/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteAssetService)).(http.HandlerFunc))

	// RMAs - completing an RMA swaps the asset serial
	r.Get("/rmas", s.listRMAs)
	r.Get("/rmas/{id}", s.getRMA)
	r.Post("/rmas", auth.MustRole("admin", "editor")(http.HandlerFunc(s.createRMA)).(http.HandlerFunc))
	r.Put("/rmas/{id}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.updateRMA)).(http.HandlerFunc))
	r.Delete("/rmas/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteRMA)).(http.HandlerFunc))

	// Contracts - two-level tree
	r.Get("/contracts", s.listContracts)
	r.Get("/contracts/{id}", s.getContract)
	r.Post("/contracts", auth.MustRole("admin", "editor")(http.HandlerFunc(s.createContract)).(http.HandlerFunc))
	r.Put("/contracts/{id}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.updateContract)).(http.HandlerFunc))
	r.Delete("/contracts/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteContract)).(http.HandlerFunc))

	// Contractors
	r.Get("/contractors", s.listContractors)
	r.Get("/contractors/{id}", s.getContractor)
	r.Post("/contractors", auth.MustRole("admin", "editor")(http.HandlerFunc(s.createContractor)).(http.HandlerFunc))
	r.Put("/contractors/{id}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.updateContractor)).(http.HandlerFunc))
	r.Delete("/contractors/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteContractor)).(http.HandlerFunc))

	// Invoices
	r.Get("/invoices", s.listInvoices)
	r.Get("/invoices/{id}", s.getInvoice)
	r.Post("/invoices", auth.MustRole("admin", "editor")(http.HandlerFunc(s.createInvoice)).(http.HandlerFunc))
	r.Put("/invoices/{id}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.updateInvoice)).(http.HandlerFunc))
	r.Delete("/invoices/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteInvoice)).(http.HandlerFunc))

	// External inventory mirror and its asset links
	r.Get("/external-inventory", s.listExternalInventory)
	r.Get("/external-inventory/{id}", s.getExternalInventory)
	r.Post("/external-inventory", auth.MustRole("admin", "editor")(http.HandlerFunc(s.createExternalInventory)).(http.HandlerFunc))
	r.Put("/external-inventory/{id}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.updateExternalInventory)).(http.HandlerFunc))
	r.Delete("/external-inventory/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteExternalInventory)).(http.HandlerFunc))
	r.Post("/external-inventory/{id}/assets", auth.MustRole("admin", "editor")(http.HandlerFunc(s.linkExternalInventoryAsset)).(http.HandlerFunc))
	r.Delete("/external-inventory/{id}/assets/{assetID}", auth.MustRole("admin", "editor")(http.HandlerFunc(s.unlinkExternalInventoryAsset)).(http.HandlerFunc))

	// Bulk import - require editor/admin
	importsHandler := handlers.NewImportsHandler(s.Pool, s.Metrics)
	r.Post("/imports/file", auth.MustRole("admin", "editor")(http.HandlerFunc(importsHandler.UploadFile)).(http.HandlerFunc))
}
