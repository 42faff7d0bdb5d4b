package app

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/portalautarca/portal/internal/config"
	"github.com/portalautarca/portal/internal/db"
	"github.com/portalautarca/portal/internal/markdown"
	"github.com/portalautarca/portal/internal/repository"
	"github.com/portalautarca/portal/internal/service"
	"github.com/portalautarca/portal/internal/storage"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	Storage           storage.Storage
	AuthService       *service.AuthService
	UserService       *service.UserService
	CatalogService    *service.CatalogService
	DocumentService   *service.DocumentService
	InitiativeService *service.InitiativeService
	ImportService     *service.ImportService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if cfg.SeedOnStart {
		err = db.Seed(database)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to seed database: %w", err)
		}
		slog.Info("database seeded")
	}

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return Wire(cfg, database, fileStorage), nil
}

// Wire builds repositories and services on an open database and storage.
func Wire(cfg *config.Config, database *sqlx.DB, fileStorage storage.Storage) *App {
	// Repositories
	userRepository := repository.NewUserRepository(database)
	parishRepository := repository.NewParishRepository(database)
	tagRepository := repository.NewTagRepository(database)
	voteRepository := repository.NewVoteRepository(database)
	documentRepository := repository.NewDocumentRepository(database)
	initiativeRepository := repository.NewInitiativeRepository(database)

	// Services
	authService := service.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTExpiry, cfg.IsProduction())
	userService := service.NewUserService(userRepository, parishRepository, authService)
	catalogService := service.NewCatalogService(parishRepository, tagRepository)
	documentService := service.NewDocumentService(documentRepository, fileStorage, cfg.UploadMaxBytes, cfg.CoverMaxWidth)
	initiativeService := service.NewInitiativeService(
		initiativeRepository,
		voteRepository,
		catalogService,
		documentService,
		markdown.NewRenderer(),
	)
	importService := service.NewImportService(initiativeService, catalogService)

	return &App{
		Cfg:               cfg,
		DB:                database,
		Storage:           fileStorage,
		AuthService:       authService,
		UserService:       userService,
		CatalogService:    catalogService,
		DocumentService:   documentService,
		InitiativeService: initiativeService,
		ImportService:     importService,
	}
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
