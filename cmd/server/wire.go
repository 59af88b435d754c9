package main

import (
	"alcyxob/adherence-app/internal/api"
	"alcyxob/adherence-app/internal/config"
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"alcyxob/adherence-app/internal/repository/memory"
	"alcyxob/adherence-app/internal/repository/mongo"
	"alcyxob/adherence-app/internal/repository/sqlite"
	"alcyxob/adherence-app/internal/service"
	"alcyxob/adherence-app/internal/storage"
	"context"
	"fmt"
	"log"
)

// kindRepos are the repositories of one plan kind.
type kindRepos struct {
	templates repository.TemplateRepository
	calendar  repository.CalendarRepository
	tracking  repository.TrackingRepository
	library   repository.LibraryRepository
}

// backend is an opened storage driver.
type backend struct {
	repos    func(kind domain.PlanKind) kindRepos
	progress repository.ProgressRepository
	ensure   func(ctx context.Context) error
	close    func()
}

// openBackend connects the configured driver.
func openBackend(ctx context.Context, cfg config.DatabaseConfig) (*backend, error) {
	switch cfg.Driver {
	case "mongo":
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		db := client.Database(cfg.Name)
		log.Println("INFO: Database connection established.")
		return &backend{
			repos: func(kind domain.PlanKind) kindRepos {
				return kindRepos{
					templates: mongo.NewMongoTemplateRepository(db, kind),
					calendar:  mongo.NewMongoCalendarRepository(db, kind),
					tracking:  mongo.NewMongoTrackingRepository(db, kind),
					library:   mongo.NewMongoLibraryRepository(db, kind),
				}
			},
			progress: mongo.NewMongoProgressRepository(db),
			ensure:   func(ctx context.Context) error { return mongo.EnsureIndexes(ctx, db) },
			close: func() {
				log.Println("INFO: Disconnecting MongoDB...")
				if err := mongo.DisconnectDB(client); err != nil {
					log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
				}
			},
		}, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("could not open SQLite database %s: %w", cfg.SQLitePath, err)
		}
		log.Printf("INFO: SQLite database opened at %s.", cfg.SQLitePath)
		return &backend{
			repos: func(kind domain.PlanKind) kindRepos {
				return kindRepos{
					templates: sqlite.NewSQLiteTemplateRepository(db, kind),
					calendar:  sqlite.NewSQLiteCalendarRepository(db, kind),
					tracking:  sqlite.NewSQLiteTrackingRepository(db, kind),
					library:   sqlite.NewSQLiteLibraryRepository(db, kind),
				}
			},
			progress: sqlite.NewSQLiteProgressRepository(db),
			ensure:   func(ctx context.Context) error { return sqlite.EnsureSchema(ctx, db) },
			close: func() {
				if err := db.Close(); err != nil {
					log.Printf("ERROR: Failed to close SQLite database: %v", err)
				}
			},
		}, nil

	case "memory":
		log.Println("WARN: Using in-memory storage; data is lost on exit.")
		return &backend{
			repos: func(kind domain.PlanKind) kindRepos {
				return kindRepos{
					templates: memory.NewTemplateRepository(kind),
					calendar:  memory.NewCalendarRepository(kind),
					tracking:  memory.NewTrackingRepository(kind),
					library:   memory.NewLibraryRepository(kind),
				}
			},
			progress: memory.NewProgressRepository(),
			ensure:   func(context.Context) error { return nil },
			close:    func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// app holds the services the router needs.
type app struct {
	plans    map[domain.PlanKind]api.PlanServices
	progress service.ProgressService
	trends   service.TrendService
}

// buildApp wires repositories, media storage and services for both plan kinds.
func buildApp(ctx context.Context, cfg config.Config, be *backend) (*app, error) {
	// 1. Make sure indexes exist before serving; unique keys back idempotent writes
	if err := be.ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	// 2. Media storage is optional
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		log.Println("INFO: Initializing file storage service...")
		s, err := storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		fileStorage = s
	} else {
		log.Println("WARN: s3.bucket_name is empty; media endpoints are disabled.")
	}

	countUnit, err := service.ParseCountUnit(cfg.Rollup.CountUnit)
	if err != nil {
		return nil, err
	}
	rollupOpts := service.RollupOptions{CountUnit: countUnit, StreakLookbackDays: cfg.Rollup.StreakLookbackDays}

	// 3. Per-kind services
	log.Println("INFO: Initializing services...")
	plans := make(map[domain.PlanKind]api.PlanServices, 2)
	trackingByKind := make(map[domain.PlanKind]repository.TrackingRepository, 2)
	for _, kind := range []domain.PlanKind{domain.KindMeal, domain.KindExercise} {
		r := be.repos(kind)
		trackingByKind[kind] = r.tracking
		plans[kind] = api.PlanServices{
			Templates: service.NewTemplateService(kind, r.templates, r.library),
			Calendar:  service.NewCalendarService(kind, r.calendar, r.templates),
			Tracking:  service.NewTrackingService(kind, r.tracking, r.calendar, fileStorage),
			Rollup:    service.NewRollupService(r.calendar, r.tracking, rollupOpts),
			Library:   service.NewLibraryService(kind, r.library),
		}
	}

	// 4. Trends: ledger-derived metrics first, logged samples for the rest
	progressSource := service.NewProgressSource(be.progress)
	sources := make(map[string]service.MetricSource)
	for metric, extract := range service.MealLedgerMetrics() {
		sources[metric] = service.NewLedgerSource(trackingByKind[domain.KindMeal], extract)
	}
	for metric, extract := range service.ExerciseLedgerMetrics() {
		sources[metric] = service.NewLedgerSource(trackingByKind[domain.KindExercise], extract)
	}
	ranges := make(map[string]service.MetricRange, len(cfg.Trends.Metrics))
	for name, r := range cfg.Trends.Metrics {
		ranges[name] = service.MetricRange{Min: r.Min, Max: r.Max, Precision: r.Precision}
	}
	var fallback service.FallbackStrategy = service.NoFallback{}
	if cfg.Trends.SyntheticFallback {
		fallback = service.SeededFallback{}
	}
	trends := service.NewTrendService(progressSource, sources, service.TrendOptions{
		Ranges:       ranges,
		DefaultWeeks: cfg.Trends.DefaultWeeks,
		Fallback:     fallback,
	})

	return &app{
		plans:    plans,
		progress: service.NewProgressService(be.progress),
		trends:   trends,
	}, nil
}
