package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn           string
	adminEmail    string
	adminName     string
	adminPassword string
	demoData      bool
}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.adminPassword == "" {
		log.Fatal("admin-password is required")
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	log.Print("creating schema")
	if err := createSchema(ctx, db); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	log.Printf("ensuring primary admin %s", cfg.adminEmail)
	if err := seedAdmin(ctx, db, cfg); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	if cfg.demoData {
		log.Print("seeding demo data")
		if err := seedDemoData(ctx, db); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
	}
	log.Print("done")
}

func parseConfig() config {
	var cfg config
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.adminEmail, "admin-email", envOrDefault("PRIMARY_ADMIN_EMAIL", "admin@example.com"), "primary admin email")
	flag.StringVar(&cfg.adminName, "admin-name", envOrDefault("PRIMARY_ADMIN_NAME", "Administrador"), "primary admin display name")
	flag.StringVar(&cfg.adminPassword, "admin-password", envOrDefault("PRIMARY_ADMIN_PASSWORD", ""), "primary admin password")
	flag.BoolVar(&cfg.demoData, "demo-data", envOrBool("SEED_DEMO_DATA", false), "seed demo contracts, units and expenses")
	flag.Parse()
	return cfg
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS contratos (
	id TEXT PRIMARY KEY,
	nome TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS unidades (
	id TEXT PRIMARY KEY,
	nome TEXT NOT NULL UNIQUE,
	contrato_id TEXT REFERENCES contratos(id),
	market_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS competencias (
	id TEXT PRIMARY KEY,
	ano INT NOT NULL,
	mes INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (ano, mes)
)`,
	`CREATE TABLE IF NOT EXISTS despesas (
	id TEXT PRIMARY KEY,
	unidade_id TEXT NOT NULL,
	competencia_id TEXT NOT NULL,
	tipo_despesa TEXT NOT NULL,
	subtipo_encargo TEXT NOT NULL DEFAULT '',
	valor DOUBLE PRECISION NOT NULL,
	vencimento TIMESTAMPTZ NOT NULL,
	codigo_lancamento TEXT NOT NULL DEFAULT '',
	detalhes_distribuidora JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_despesas_unidade ON despesas (unidade_id)`,
	`CREATE INDEX IF NOT EXISTS idx_despesas_competencia ON despesas (competencia_id)`,
	`CREATE TABLE IF NOT EXISTS estimativas (
	id TEXT PRIMARY KEY,
	unidade_id TEXT NOT NULL,
	competencia_id TEXT NOT NULL,
	valor DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (unidade_id, competencia_id)
)`,
	`CREATE TABLE IF NOT EXISTS usuarios (
	id TEXT PRIMARY KEY,
	nome TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	status TEXT NOT NULL,
	accessible_unit_ids JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	actor TEXT NOT NULL DEFAULT '',
	actor_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	payload_digest TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs (created_at DESC)`,
}

func createSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, db *sql.DB, cfg config) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `
INSERT INTO usuarios (id, nome, email, password_hash, role, status, accessible_unit_ids, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'admin', 'active', '[]', $5, $5)
ON CONFLICT (email) DO UPDATE SET role = 'admin', status = 'active'`,
		uuid.NewString(), cfg.adminName, cfg.adminEmail, string(hash), now)
	return err
}

func seedDemoData(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC()

	contractID := uuid.NewString()
	if _, err := db.ExecContext(ctx, `
INSERT INTO contratos (id, nome, created_at, updated_at)
VALUES ($1, 'Comercializadora Demo', $2, $2)
ON CONFLICT DO NOTHING`, contractID, now); err != nil {
		return err
	}

	units := []struct {
		name       string
		market     string
		contractID any
	}{
		{"Fábrica Norte", "livre", contractID},
		{"Filial Sul", "livre", contractID},
		{"Escritório Central", "cativo", nil},
	}
	unitIDs := make([]string, 0, len(units))
	for _, unit := range units {
		id := uuid.NewString()
		if _, err := db.ExecContext(ctx, `
INSERT INTO unidades (id, nome, contrato_id, market_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (nome) DO NOTHING`, id, unit.name, unit.contractID, unit.market, now); err != nil {
			return err
		}
		unitIDs = append(unitIDs, id)
	}

	year, month := now.Year(), int(now.Month())
	competenceID := uuid.NewString()
	if _, err := db.ExecContext(ctx, `
INSERT INTO competencias (id, ano, mes, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (ano, mes) DO NOTHING`, competenceID, year, month, now); err != nil {
		return err
	}
	if err := db.QueryRowContext(ctx,
		`SELECT id FROM competencias WHERE ano = $1 AND mes = $2`, year, month).Scan(&competenceID); err != nil {
		return err
	}

	due := time.Date(year, time.Month(month), 10, 0, 0, 0, 0, time.UTC)
	detail, _ := json.Marshal(map[string]float64{
		"consumoPonta":     1200,
		"consumoForaPonta": 5400,
		"demandaMedida":    380,
	})
	expenses := []struct {
		unit   string
		kind   string
		value  float64
		detail any
	}{
		{unitIDs[0], "comercializadora", 14850.75, nil},
		{unitIDs[0], "distribuidora", 6230.10, detail},
		{unitIDs[0], "encargo", 912.40, nil},
		{unitIDs[1], "comercializadora", 8320.00, nil},
		{unitIDs[2], "distribuidora", 4105.90, nil},
	}
	for _, expense := range expenses {
		if _, err := db.ExecContext(ctx, `
INSERT INTO despesas (id, unidade_id, competencia_id, tipo_despesa, subtipo_encargo, valor, vencimento, codigo_lancamento, detalhes_distribuidora, created_at, updated_at)
VALUES ($1, $2, $3, $4, '', $5, $6, '', $7, $8, $8)
ON CONFLICT DO NOTHING`, uuid.NewString(), expense.unit, competenceID, expense.kind, expense.value, due, expense.detail, now); err != nil {
			return err
		}
	}

	estimates := []struct {
		unit  string
		value float64
	}{
		{unitIDs[0], 23500},
		{unitIDs[1], 9100},
	}
	for _, estimate := range estimates {
		if _, err := db.ExecContext(ctx, `
INSERT INTO estimativas (id, unidade_id, competencia_id, valor, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (unidade_id, competencia_id) DO UPDATE SET valor = EXCLUDED.valor, updated_at = EXCLUDED.updated_at`,
			uuid.NewString(), estimate.unit, competenceID, estimate.value, now); err != nil {
			return err
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func envOrBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	switch value {
	case "":
		return fallback
	case "1", "true", "TRUE", "yes":
		return true
	default:
		return false
	}
}
