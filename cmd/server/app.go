package main

import (
	"context"
	"database/sql"
	"fmt"

	"studio_booking_backend/internal/config"
	"studio_booking_backend/internal/database"
	"studio_booking_backend/internal/models"
	"studio_booking_backend/internal/repositories"
	"studio_booking_backend/internal/services"
	"studio_booking_backend/pkg/utils"
)

// app holds the wired stores and services for one command invocation.
type app struct {
	cfg          config.Config
	db           *sql.DB
	reservations services.ReservationService
	clients      services.ClientService
	tokens       *utils.TokenManager
}

func loadConfig() (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	if err := utils.InitLogger(cfg.LogLevel, cfg.LogPretty); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg config.Config, migrateUp bool) (*sql.DB, error) {
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if migrateUp {
		if _, err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return db, nil
}

func newApp(ctx context.Context, cfg config.Config, migrateUp bool) (*app, error) {
	groupServices, err := config.LoadCatalog(cfg.ServicesCatalogPath, services.DefaultGroupServices)
	if err != nil {
		return nil, err
	}
	tokens, err := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, tokens: tokens}

	var (
		reservationRepo repositories.ReservationRepository
		clientRepo      repositories.ClientRepository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		reservationRepo = repositories.NewMemoryReservationRepository()
		clientRepo = repositories.NewMemoryClientRepository()
		utils.LogWarn("Using in-memory store; data is lost on exit")
	default:
		a.db, err = openDB(ctx, cfg, migrateUp)
		if err != nil {
			return nil, err
		}
		reservationRepo = repositories.NewReservationRepository(a.db)
		clientRepo = repositories.NewClientRepository(a.db)
	}

	a.reservations, err = services.NewReservationService(reservationRepo, services.ReservationConfig{
		Catalog:             services.NewServiceCatalog(groupServices),
		Location:            cfg.Location,
		SerializeAdmissions: cfg.SerializeAdmissions,
		DefaultStatus:       models.ReservationStatusConfirmed,
	}, services.RealClock{})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.clients = services.NewClientService(clientRepo, tokens)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
