package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"spothire/internal/config"
	"spothire/internal/logging"
	"spothire/internal/repository"
	"spothire/internal/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Mongo.URI == "" {
		log.Fatal("MONGO_URI is required for seeding")
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := repository.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout, logger)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer store.Disconnect(context.Background())

	if !store.Online() {
		log.Fatal("MongoDB is not reachable")
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	seeder := service.NewSeedService(repository.NewTemplateRepo(store), repository.NewCandidateRepo(store), logger)
	totals, err := seeder.Seed(ctx)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	fmt.Printf("Seeded %s: %d role templates, %d candidates\n", cfg.Mongo.Database, totals.RoleTemplates, totals.Candidates)
}
