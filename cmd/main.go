package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"InvoiceDesk/api"
	"InvoiceDesk/api/auth"
	"InvoiceDesk/internal/appmanager"
)

// InitDB loads the users DB config from env vars
func InitDB() (*sql.DB, error) {
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")
	connStr := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		user, pass, host, port, name,
	)
	return sql.Open("postgres", connStr)
}

func main() {
	// Load .env for local dev
	_ = godotenv.Load()

	// Initialize DB for Auth
	db, err := InitDB()
	if err != nil {
		log.Fatal("failed to connect to DB:", err)
	}
	appmanager.SetDB(db)

	// Invoice records live in their own database. Without a DSN the
	// invoice service falls back to in-memory stores, which is enough
	// for local runs but forgets everything on restart.
	var pool *pgxpool.Pool
	if dsn := os.Getenv("RECORD_DB_DSN"); dsn != "" {
		pool, err = pgxpool.New(context.Background(), dsn)
		if err != nil {
			log.Fatal("failed to connect to record DB:", err)
		}
		appmanager.SetPgxPool(pool)
	} else {
		log.Println("[INFO] RECORD_DB_DSN not set; invoice records held in memory")
	}

	manager := appmanager.NewAppManager()

	// Load service configs from YAML
	cfgPath := os.Getenv("SERVICES_CONFIG")
	if cfgPath == "" {
		cfgPath = "services.yaml"
	}
	servicesCfg, err := appmanager.LoadServiceSequence(cfgPath)
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}

	// Automatically register all services
	manager.AutoRegisterServices(servicesCfg)

	// Start all services
	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}

	// --- Wire AuthService to Gateway ---
	authSvcIface := manager.GetServiceByName("auth")
	if authSvcIface == nil {
		log.Fatal("Auth service not found in manager")
	}
	realAuthSvc, ok := authSvcIface.(*auth.AuthService)
	if !ok {
		log.Fatal("Auth service type assertion failed")
	}
	api.SetAuthService(realAuthSvc)

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	// Stop all services
	if err := manager.StopAll(); err != nil {
		log.Fatal("failed to stop:", err)
	}
	if pool != nil {
		pool.Close()
	}
}
