package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"gestor-energia/internal/audit"
	"gestor-energia/internal/auth"
	billingapp "gestor-energia/internal/billing/application"
	billingrepo "gestor-energia/internal/billing/infrastructure/postgres"
	billinginterfaces "gestor-energia/internal/billing/interfaces"
	masterdataapp "gestor-energia/internal/masterdata/application"
	masterdatarepo "gestor-energia/internal/masterdata/infrastructure/postgres"
	masterdatahttp "gestor-energia/internal/masterdata/interfaces/http"
	"gestor-energia/internal/notify"
	"gestor-energia/internal/observability/metrics"
	"gestor-energia/internal/users"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	expenseRepo := billingrepo.NewExpenseRepository(db)
	competenceRepo := billingrepo.NewCompetenceRepository(db)
	estimateRepo := billingrepo.NewEstimateRepository(db)
	unitRepo := masterdatarepo.NewUnitRepository(db)
	contractRepo := masterdatarepo.NewContractRepository(db)
	userRepo := users.NewPostgresRepository(db)

	clock := billingapp.SystemClock{}

	notifyCfg, err := notify.LoadConfig()
	if err != nil {
		logger.Fatalf("notify config error: %v", err)
	}
	var mailChannel notify.Channel
	if notifyCfg.Enabled() {
		mailChannel, err = notify.NewEmailChannel(notifyCfg.EmailURL, notifyCfg.ServiceID, notifyCfg.TemplateID, notifyCfg.UserID)
		if err != nil {
			logger.Fatalf("notify channel error: %v", err)
		}
	}

	var userOpts []users.Option
	if mailChannel != nil {
		userOpts = append(userOpts, users.WithPasswordMailer(mailChannel))
	}
	userService, err := users.NewService(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL, cfg.PrimaryAdminEmail, logger, userOpts...)
	if err != nil {
		logger.Fatalf("users service error: %v", err)
	}
	userHandler, err := users.NewHandler(userService, auditRepo)
	if err != nil {
		logger.Fatalf("users handler error: %v", err)
	}

	masterdataService, err := masterdataapp.NewService(unitRepo, contractRepo, expenseRepo, clock, logger)
	if err != nil {
		logger.Fatalf("masterdata service error: %v", err)
	}
	masterdataHandler, err := masterdatahttp.NewHandler(masterdataService, auditRepo)
	if err != nil {
		logger.Fatalf("masterdata handler error: %v", err)
	}

	expenseService, err := billingapp.NewExpenseService(expenseRepo, competenceRepo, unitRepo, clock, logger)
	if err != nil {
		logger.Fatalf("expense service error: %v", err)
	}
	competenceService, err := billingapp.NewCompetenceService(competenceRepo, expenseRepo, clock, logger)
	if err != nil {
		logger.Fatalf("competence service error: %v", err)
	}
	estimateService, err := billingapp.NewEstimateService(estimateRepo, competenceRepo, unitRepo, clock, logger)
	if err != nil {
		logger.Fatalf("estimate service error: %v", err)
	}
	dashboardService, err := billingapp.NewDashboardService(expenseRepo, competenceRepo, estimateRepo, unitRepo, logger)
	if err != nil {
		logger.Fatalf("dashboard service error: %v", err)
	}

	var reportSender billingapp.ReportSender
	if mailChannel != nil {
		tpl, err := notify.NewTemplate(notifyCfg.Template)
		if err != nil {
			logger.Fatalf("notify template error: %v", err)
		}
		opts := []notify.Option{notify.WithLogger(logger)}
		if notifyCfg.Subject != "" {
			opts = append(opts, notify.WithSubject(notifyCfg.Subject))
		}
		notifier, err := notify.NewNotifier(mailChannel, tpl, opts...)
		if err != nil {
			logger.Fatalf("notify error: %v", err)
		}
		reportSender = notifier
	}
	reportService, err := billingapp.NewReportService(expenseRepo, competenceRepo, estimateRepo, unitRepo, reportSender, logger)
	if err != nil {
		logger.Fatalf("report service error: %v", err)
	}

	expenseHandler, err := billinginterfaces.NewExpenseHandler(expenseService, userService, auditRepo)
	if err != nil {
		logger.Fatalf("expense handler error: %v", err)
	}
	competenceHandler, err := billinginterfaces.NewCompetenceHandler(competenceService, auditRepo)
	if err != nil {
		logger.Fatalf("competence handler error: %v", err)
	}
	estimateHandler, err := billinginterfaces.NewEstimateHandler(estimateService, auditRepo)
	if err != nil {
		logger.Fatalf("estimate handler error: %v", err)
	}
	dashboardHandler, err := billinginterfaces.NewDashboardHandler(dashboardService, userService)
	if err != nil {
		logger.Fatalf("dashboard handler error: %v", err)
	}
	reportHandler, err := billinginterfaces.NewReportHandler(reportService, userService, auditRepo)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/api/v1/auth/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/auth/register", userHandler)
	mux.Handle("/api/v1/auth/login", userHandler)
	mux.Handle("/api/v1/profile", userHandler)
	mux.Handle("/api/v1/users", userHandler)
	mux.Handle("/api/v1/users/", userHandler)
	mux.Handle("/api/v1/audit-logs", audit.NewHandler(auditRepo))
	mux.Handle("/api/v1/unidades", masterdataHandler)
	mux.Handle("/api/v1/unidades/", masterdataHandler)
	mux.Handle("/api/v1/contratos", masterdataHandler)
	mux.Handle("/api/v1/contratos/", masterdataHandler)
	mux.Handle("/api/v1/despesas", expenseHandler)
	mux.Handle("/api/v1/despesas/", expenseHandler)
	mux.Handle("/api/v1/competencias", competenceHandler)
	mux.Handle("/api/v1/competencias/", competenceHandler)
	mux.Handle("/api/v1/estimativas", estimateHandler)
	mux.Handle("/api/v1/dashboard", dashboardHandler)
	mux.Handle("/api/v1/dashboard/", dashboardHandler)
	mux.Handle("/api/v1/relatorios/", reportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	JWTSecret         string
	TokenTTL          time.Duration
	PrimaryAdminEmail string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		TokenTTL:          getenvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		PrimaryAdminEmail: getenvDefault("PRIMARY_ADMIN_EMAIL", "admin@example.com"),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
