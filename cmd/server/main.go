package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/zenithlearn/zenith-back/internal/api"
	"github.com/zenithlearn/zenith-back/internal/auth"
	"github.com/zenithlearn/zenith-back/internal/config"
	"github.com/zenithlearn/zenith-back/internal/cron"
	"github.com/zenithlearn/zenith-back/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using system env")
	}

	cfg := config.Load()

	store, err := db.Open(cfg.DBUrl)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	svc := auth.NewService(cfg, store)
	r := api.SetupRouter(cfg, store, svc)

	// Start cron jobs
	cron.StartJobs(store, svc)

	log.Println("Server running on :" + cfg.Port)
	r.Run(":" + cfg.Port)
}
