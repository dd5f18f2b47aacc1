package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "peer-jury/docs" // This is for Swagger
	"peer-jury/internal/auth"
	"peer-jury/internal/config"
	"peer-jury/internal/database"
	"peer-jury/internal/email"
	"peer-jury/internal/handlers"
	"peer-jury/internal/logger"
	"peer-jury/internal/middleware"
	"peer-jury/internal/repository"
	"peer-jury/internal/scheduler"
	"peer-jury/internal/securestore"
	"peer-jury/internal/service"
	"peer-jury/internal/vault"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title PeerJury API
// @version 1.0
// @description Backend API for PeerJury anonymous peer grading platform
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@peerjury.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	roleRepo := repository.NewRoleRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	projectRepo := repository.NewProjectRepository(db.DB)
	deliverableRepo := repository.NewDeliverableRepository(db.DB)
	assignmentRepo := repository.NewJuryAssignmentRepository(db.DB)
	evaluationRepo := repository.NewEvaluationRepository(db.DB)

	// Initialize secure store for feedback encryption (if Vault is enabled)
	var secureStore *securestore.SecureStore
	if cfg.Vault.Enabled {
		slog.Info("Vault is enabled - initializing feedback encryption")
		vaultClient, err := vault.NewClient(&vault.Config{
			Address:      cfg.Vault.Address,
			Token:        cfg.Vault.Token,
			TransitMount: cfg.Vault.TransitMount,
		})
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}

		secureStore, err = securestore.NewSecureStore(db.DB, vaultClient)
		if err != nil {
			slog.Error("Failed to initialize secure store", "error", err)
			os.Exit(1)
		}

		slog.Info("Feedback encryption initialized", "vault_addr", cfg.Vault.Address)
	} else {
		slog.Warn("Vault is disabled - evaluation feedback will be stored in plaintext")
	}

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	emailService := email.NewService(&cfg.Email)
	auditService := service.NewAuditService(auditRepo)
	authSvc := service.NewAuthService(userRepo, roleRepo, sessionRepo, authService, emailService)
	projectService := service.NewProjectService(projectRepo, deliverableRepo, userRepo, auditService)
	deliverableService := service.NewDeliverableService(deliverableRepo, projectRepo, evaluationRepo, userRepo, emailService, auditService)
	juryService := service.NewJuryService(assignmentRepo, deliverableRepo, projectRepo, userRepo, emailService, auditService, &cfg.Jury)
	evaluationService := service.NewEvaluationService(evaluationRepo, assignmentRepo, deliverableRepo, projectRepo, secureStore, auditService)

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(sessionRepo, deliverableRepo, assignmentRepo, projectRepo, emailService, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	rbacMw := middleware.NewRBACMiddleware(db.DB)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	auditMw := middleware.NewAuditMiddleware(db.DB)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, auditMw)
	userHandler := handlers.NewUserHandler(userRepo, roleRepo, auditMw)
	auditHandler := handlers.NewAuditHandler(auditService)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, authSvc, auditMw, db.DB)
	projectHandler := handlers.NewProjectHandler(projectService)
	deliverableHandler := handlers.NewDeliverableHandler(deliverableService)
	juryHandler := handlers.NewJuryHandler(juryService)
	evaluationHandler := handlers.NewEvaluationHandler(evaluationService)
	professorHandler := handlers.NewProfessorHandler(projectService, evaluationService)

	// Setup router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)

	// Authenticated user routes
	mux.Handle("GET /api/v1/auth/profile", authMw.Authenticate(http.HandlerFunc(authHandler.Profile)))
	mux.Handle("PUT /api/v1/users/profile", authMw.Authenticate(http.HandlerFunc(userHandler.UpdateProfile)))
	mux.Handle("POST /api/v1/users/password/change", authMw.Authenticate(http.HandlerFunc(userHandler.ChangePassword)))
	mux.Handle("GET /api/v1/users/sessions", authMw.Authenticate(http.HandlerFunc(sessionHandler.GetMySessions)))
	mux.Handle("DELETE /api/v1/users/sessions/delete", authMw.Authenticate(http.HandlerFunc(sessionHandler.DeleteMySession)))
	mux.Handle("DELETE /api/v1/users/sessions/delete-all", authMw.Authenticate(http.HandlerFunc(sessionHandler.DeleteAllMySessions)))

	// Student routes: project ownership and jury duty both require the
	// student role; services enforce ownership on top
	requireStudent := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(rbacMw.RequireRole("student")(h))
	}

	// Project routes
	mux.Handle("POST /api/v1/projects", requireStudent(projectHandler.Create))
	mux.Handle("GET /api/v1/projects", requireStudent(projectHandler.List))
	mux.Handle("GET /api/v1/projects/{id}", requireStudent(projectHandler.Get))
	mux.Handle("PUT /api/v1/projects/{id}", requireStudent(projectHandler.Update))
	mux.Handle("DELETE /api/v1/projects/{id}", requireStudent(projectHandler.Delete))
	mux.Handle("POST /api/v1/projects/{id}/activate", requireStudent(projectHandler.Activate))
	mux.Handle("GET /api/v1/projects/{id}/members", requireStudent(projectHandler.ListMembers))
	mux.Handle("POST /api/v1/projects/{id}/members", requireStudent(projectHandler.AddMember))
	mux.Handle("DELETE /api/v1/projects/{id}/members/{userId}", requireStudent(projectHandler.RemoveMember))

	// Deliverable routes
	mux.Handle("POST /api/v1/projects/{id}/deliverables", requireStudent(deliverableHandler.Create))
	mux.Handle("GET /api/v1/projects/deliverables/{id}", requireStudent(deliverableHandler.Get))
	mux.Handle("PUT /api/v1/projects/deliverables/{id}", requireStudent(deliverableHandler.Update))
	mux.Handle("DELETE /api/v1/projects/deliverables/{id}", requireStudent(deliverableHandler.Delete))
	mux.Handle("POST /api/v1/projects/deliverables/{id}/open-grading", requireStudent(deliverableHandler.OpenForGrading))
	mux.Handle("POST /api/v1/projects/deliverables/{id}/close-grading", requireStudent(deliverableHandler.CloseGrading))
	mux.Handle("POST /api/v1/deliverables/{id}/select-jury", requireStudent(juryHandler.SelectJury))
	mux.Handle("GET /api/v1/deliverables/{id}/grade", requireStudent(evaluationHandler.GetGrade))

	// Jury and evaluation routes
	mux.Handle("GET /api/v1/jury/assignments", requireStudent(juryHandler.MyAssignments))
	mux.Handle("POST /api/v1/evaluations", requireStudent(evaluationHandler.Submit))
	mux.Handle("GET /api/v1/evaluations/{id}", requireStudent(evaluationHandler.Get))

	// Professor routes
	mux.Handle("GET /api/v1/professor/projects",
		authMw.Authenticate(
			rbacMw.RequireRole("professor")(
				http.HandlerFunc(professorHandler.ListProjects),
			),
		),
	)
	mux.Handle("GET /api/v1/professor/projects/{id}/evaluations",
		authMw.Authenticate(
			rbacMw.RequireRole("professor")(
				http.HandlerFunc(professorHandler.ProjectEvaluations),
			),
		),
	)
	mux.Handle("GET /api/v1/professor/deliverables/{id}/stats",
		authMw.Authenticate(
			rbacMw.RequireRole("professor")(
				http.HandlerFunc(professorHandler.DeliverableStats),
			),
		),
	)

	// Admin routes
	mux.Handle("GET /api/v1/admin/users",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.ListUsers),
			),
		),
	)
	mux.Handle("GET /api/v1/admin/users/{id}",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.GetUser),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/users/assign-role",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.AssignRole),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/users/remove-role",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.RemoveRole),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/users/update-status",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.UpdateUserActiveStatus),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/users/delete",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.DeleteUser),
			),
		),
	)
	mux.Handle("GET /api/v1/admin/roles",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.ListRoles),
			),
		),
	)
	mux.Handle("GET /api/v1/admin/audit-logs",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(auditHandler.ListAuditLogs),
			),
		),
	)
	mux.Handle("GET /api/v1/admin/sessions",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(sessionHandler.GetAllSessions),
			),
		),
	)
	mux.Handle("DELETE /api/v1/admin/sessions/delete",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(sessionHandler.DeleteUserSession),
			),
		),
	)
	mux.Handle("DELETE /api/v1/admin/sessions/delete-all",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(sessionHandler.DeleteAllUserSessions),
			),
		),
	)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`))
			if err != nil {
				slog.Error("Failed to write health check response", "error", err)
				return
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`))
		if err != nil {
			slog.Error("Failed to write health check response", "error", err)
			return
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
