package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/LeshegoT/the-hive-backend/internal/data/db"
	"github.com/LeshegoT/the-hive-backend/internal/data/graph"
	"github.com/LeshegoT/the-hive-backend/internal/data/repos"
	"github.com/LeshegoT/the-hive-backend/internal/handlers"
	"github.com/LeshegoT/the-hive-backend/internal/middleware"
	"github.com/LeshegoT/the-hive-backend/internal/platform/envutil"
	"github.com/LeshegoT/the-hive-backend/internal/platform/gcs"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
	"github.com/LeshegoT/the-hive-backend/internal/platform/neo4jdb"
	"github.com/LeshegoT/the-hive-backend/internal/platform/redisdb"
	"github.com/LeshegoT/the-hive-backend/internal/server"
	"github.com/LeshegoT/the-hive-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := envutil.String("PORT", "8080")
	allowOrigins := envutil.CSV("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"})
	searchThreshold := envutil.Float("SEARCH_SIMILARITY_THRESHOLD", 0.3)
	coreTechMax := envutil.Int("CORE_TECH_MAX", 3)
	coreTechTypes := envutil.CSV("CORE_TECH_ATTRIBUTE_TYPES", []string{"skill", "industry-knowledge"})
	sweepMinAge := time.Duration(envutil.Int("RECONCILE_MIN_AGE_SECONDS", 600)) * time.Second
	sweepInterval := time.Duration(envutil.Int("RECONCILE_INTERVAL_SECONDS", 300)) * time.Second

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()
	if err = postgresService.Migrate(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}

	// Neo4j
	graphClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Neo4j init failed", "error", err)
		os.Exit(1)
	}
	defer graphClient.Close(context.Background())

	// Redis (optional, services degrade to uncached reads)
	cache, err := redisdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Redis init failed, continuing without cache", "error", err)
	}

	// Repos
	log.Info("Setting up repos from main...")
	canonicalNameRepo := repos.NewCanonicalNameRepo(thePG, log)
	aliasRepo := repos.NewAliasRepo(thePG, log)
	rejectedNameRepo := repos.NewRejectedNameRepo(thePG, log)
	categoryRepo := repos.NewCategoryRepo(thePG, log)
	searchExceptionRepo := repos.NewSearchExceptionRepo(thePG, log)
	writeIntentRepo := repos.NewWriteIntentRepo(thePG, log)

	// Graph stores
	attributeStore := graph.NewAttributeStore(graphClient, log)
	institutionStore := graph.NewInstitutionStore(graphClient, log)
	userAttributeStore := graph.NewUserAttributeStore(graphClient, log)

	// Services
	log.Info("Setting up services from main...")
	canonicalNameService := services.NewCanonicalNameService(thePG, log, canonicalNameRepo, aliasRepo, searchExceptionRepo)
	attributeService := services.NewAttributeService(
		thePG,
		log,
		cache,
		canonicalNameRepo,
		aliasRepo,
		rejectedNameRepo,
		categoryRepo,
		writeIntentRepo,
		attributeStore,
		userAttributeStore,
		canonicalNameService,
		searchThreshold,
	)
	institutionService := services.NewInstitutionService(
		thePG,
		log,
		canonicalNameRepo,
		aliasRepo,
		rejectedNameRepo,
		categoryRepo,
		writeIntentRepo,
		institutionStore,
		attributeStore,
		userAttributeStore,
		canonicalNameService,
		searchThreshold,
	)
	userSkillService := services.NewUserSkillService(log, userAttributeStore, attributeStore, services.CoreTechConfig{
		Max:          coreTechMax,
		AllowedTypes: coreTechTypes,
	})
	reconcileService := services.NewReconcileService(log, canonicalNameRepo, writeIntentRepo, attributeStore, institutionStore, sweepMinAge)

	var exportService services.GraphExportService
	bucketService, err := gcs.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService, export disabled", "error", err)
	} else {
		exportService = services.NewGraphExportService(log, bucketService, attributeStore, institutionStore)
	}

	// Background sweep
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			report, err := reconcileService.Sweep(context.Background())
			if err != nil {
				log.Warn("Intent sweep failed", "error", err)
				continue
			}
			if report.Examined > 0 {
				log.Info("Intent sweep finished",
					"examined", report.Examined,
					"committed", report.Committed,
					"compensated", report.Compensated,
					"skipped", report.Skipped,
				)
			}
		}
	}()

	// Handlers
	log.Info("Setting up handlers from main...")
	attributeHandler := handlers.NewAttributeHandler(attributeService)
	canonicalNameHandler := handlers.NewCanonicalNameHandler(canonicalNameService)
	institutionHandler := handlers.NewInstitutionHandler(institutionService)
	userSkillHandler := handlers.NewUserSkillHandler(userSkillService)
	adminHandler := handlers.NewAdminHandler(reconcileService, exportService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:         allowOrigins,
		RequestLogger:        middleware.NewRequestLogger(log),
		AttributeHandler:     attributeHandler,
		CanonicalNameHandler: canonicalNameHandler,
		InstitutionHandler:   institutionHandler,
		UserSkillHandler:     userSkillHandler,
		AdminHandler:         adminHandler,
	})

	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
