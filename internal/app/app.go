package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/magnogrupo/portal/internal/config"
	"github.com/magnogrupo/portal/internal/db"
	"github.com/magnogrupo/portal/internal/document"
	"github.com/magnogrupo/portal/internal/places"
	"github.com/magnogrupo/portal/internal/repository"
	"github.com/magnogrupo/portal/internal/service"
	"github.com/magnogrupo/portal/internal/storage"
	"github.com/magnogrupo/portal/internal/upload"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	AuthService       *service.AuthService
	ProfileService    *service.ProfileService
	EmailService      *service.EmailService
	SubmissionService *service.SubmissionService
	GuideService      *service.GuideService
	PlacesClient      *places.Client
	UserRepository    repository.UserRepository
	ProfileRepository repository.ProfileRepository
	MediaStorage      *storage.S3Storage
	DocumentStorage   *storage.S3Storage
	Staging           *upload.Staging
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	profileRepository := repository.NewProfileRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	submissionRepository := repository.NewSubmissionRepository(database)
	signedDocumentRepository := repository.NewSignedDocumentRepository(database)

	// Storage: one bucket for media, one for generated documents
	mediaStorage, err := storage.NewS3Storage(storage.S3Config{
		Region:               cfg.S3Region,
		Bucket:               cfg.S3MediaBucket,
		AccessKey:            cfg.S3AccessKey,
		SecretKey:            cfg.S3SecretKey,
		Endpoint:             cfg.S3Endpoint,
		PresignExpiryPublic:  cfg.S3PresignExpiryPublic,
		PresignExpiryPrivate: cfg.S3PresignExpiryPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media storage: %v", err)
	}

	documentStorage, err := storage.NewS3Storage(storage.S3Config{
		Region:               cfg.S3Region,
		Bucket:               cfg.S3DocumentsBucket,
		AccessKey:            cfg.S3AccessKey,
		SecretKey:            cfg.S3SecretKey,
		Endpoint:             cfg.S3Endpoint,
		PresignExpiryPublic:  cfg.S3PresignExpiryPublic,
		PresignExpiryPrivate: cfg.S3PresignExpiryPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document storage: %v", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		profileRepository,
		tokenRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenPasswordResetExpiry,
	)
	profileService := service.NewProfileService(profileRepository, userRepository)
	generator := document.NewGenerator(documentStorage)
	submissionService := service.NewSubmissionService(
		submissionRepository,
		signedDocumentRepository,
		authService,
		emailService,
		generator,
	)
	guideService := service.NewGuideService(cfg.ContentPath)
	placesClient := places.NewClient(cfg.PlacesAPIKey)

	return &App{
		Cfg:               cfg,
		DB:                database,
		AuthService:       authService,
		ProfileService:    profileService,
		EmailService:      emailService,
		SubmissionService: submissionService,
		GuideService:      guideService,
		PlacesClient:      placesClient,
		UserRepository:    userRepository,
		ProfileRepository: profileRepository,
		MediaStorage:      mediaStorage,
		DocumentStorage:   documentStorage,
		Staging:           upload.NewStaging(),
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
