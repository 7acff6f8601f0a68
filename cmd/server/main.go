package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/pesio-ai/be-relocation-cases/internal/client"
	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
	"github.com/pesio-ai/be-relocation-cases/internal/handler"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/auth"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/config"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/database"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/logger"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/middleware"
	"github.com/pesio-ai/be-relocation-cases/internal/repository"
	"github.com/pesio-ai/be-relocation-cases/internal/repository/memory"
	"github.com/pesio-ai/be-relocation-cases/internal/service"
	"github.com/pesio-ai/be-relocation-cases/migrations"
)

type stores struct {
	cases      service.CaseStore
	audit      service.AuditStore
	spend      service.SpendStore
	exceptions service.ExceptionStore
	actions    service.ComplianceActionStore
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Relocation Cases Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	var st stores
	switch cfg.Database.Driver {
	case "memory":
		st = stores{
			cases:      memory.NewCases(),
			audit:      memory.NewAudit(),
			spend:      memory.NewSpend(),
			exceptions: memory.NewExceptions(),
			actions:    memory.NewActions(),
		}
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
	default:
		db, err := database.New(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			Database:    cfg.Database.Database,
			SSLMode:     cfg.Database.SSLMode,
			MaxConns:    cfg.Database.MaxConns,
			MinConns:    cfg.Database.MinConns,
			MaxConnTime: cfg.Database.MaxConnTime,
			MaxIdleTime: cfg.Database.MaxIdleTime,
			HealthCheck: cfg.Database.HealthCheck,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		log.Info().Msg("Database connection established")

		if cfg.Database.Migrate {
			applied, err := db.Migrate(ctx, migrations.FS)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to apply migrations")
			}
			log.Info().Strs("applied", applied).Msg("Migrations up to date")
		}

		st = stores{
			cases:      repository.NewCaseRepository(db),
			audit:      repository.NewAuditRepository(db),
			spend:      repository.NewSpendRepository(db),
			exceptions: repository.NewExceptionRepository(db),
			actions:    repository.NewComplianceActionRepository(db),
		}
	}

	// Initialize NATS publisher (optional)
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = client.ConnectNATS(cfg.NATS.URL, cfg.Service.Name, log.Logger)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable; case notifications disabled")
			nc = nil
		} else {
			defer nc.Drain()
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
		}
	}
	publisher := client.NewEventPublisher(nc, cfg.NATS.SubjectPrefix, log.Component("notifications").Logger)

	// Initialize policy
	var policy *compliance.PolicySource
	if cfg.Policy.File != "" {
		policy, err = compliance.NewFilePolicySource(cfg.Policy.File, log.Component("policy").Logger)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Policy.File).Msg("Failed to load policy file")
		}
	} else {
		policy = compliance.NewStaticPolicySource(compliance.DefaultPolicy())
	}
	policy.OverrideNearLimitBand(cfg.Policy.NearLimitBand)
	if err := policy.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("Policy watcher not started; edits need a restart")
	}

	// Initialize services
	caseService := service.NewCaseService(st.cases, st.audit, publisher, log)
	complianceService := service.NewComplianceService(st.cases, st.audit, st.spend, st.exceptions, st.actions,
		policy, publisher, log)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	// Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	handler.NewHTTPHandler(caseService, complianceService, log).Register(mux)

	// Apply middleware
	var h http.Handler = mux
	h = tokens.Middleware("/health")(h)
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS(cfg.Server.CORSOrigins)(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Start gRPC server
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handler.LoggingInterceptor(log.Logger),
		handler.SessionInterceptor(tokens),
	))
	handler.RegisterCaseWorkflowServer(grpcServer, handler.NewGRPCHandler(caseService, log.Logger))
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gRPC listener")
	}

	go func() {
		log.Info().Int("port", cfg.Server.GRPCPort).Msg("Starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Error().Err(err).Msg("gRPC server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	grpcServer.GracefulStop()

	log.Info().Msg("Server stopped")
}
