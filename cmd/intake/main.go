package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/drive"
	"github.com/andresuchdata/conventicore/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	logger.Configure(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx := context.Background()

	// Initialize Google Drive service
	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}
	if cfg.Drive.FolderID == "" {
		logger.Log.Fatal().Msg("GOOGLE_DRIVE_FOLDER_ID is required")
	}

	// Create router
	r := mux.NewRouter()

	// Initialize Services
	intakeService := drive.NewIntakeService(driveService, cfg.Drive.FolderID, cfg.App.InputDir)

	// Register routes
	driveHandler := drive.NewHandler(driveService, intakeService)
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.IntakePort)
	logger.Log.Info().Str("addr", addr).Str("input_dir", cfg.App.InputDir).Msg("Intake server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("Intake server stopped")
	}
}
