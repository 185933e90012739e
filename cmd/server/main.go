package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"saydalia/m/internal/activity"
	"saydalia/m/internal/api"
	"saydalia/m/internal/catalog"
	"saydalia/m/internal/config"
	"saydalia/m/internal/database"
	"saydalia/m/internal/invoicing"
	"saydalia/m/internal/kvstore"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	store := kvstore.New(db)
	if err := store.Migrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	activities := activity.NewLogger(store)
	handler := api.New(
		catalog.New(store, activities),
		invoicing.New(store, activities),
		activities,
		cfg,
	)

	log.Printf("pharmacy inventory server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
