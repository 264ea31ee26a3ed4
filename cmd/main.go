package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/farellandr/payrecon/config"
	"github.com/farellandr/payrecon/internal/logger"
	"github.com/farellandr/payrecon/internal/server"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Server failed to start: %v", err)
		os.Exit(1)
	}
}

// run owns every deferred cleanup, so main exits only after they have executed.
func run() error {
	envErr := godotenv.Load(".env")

	app, err := config.LoadAppConfig()
	if err != nil {
		return fmt.Errorf("error loading app config: %w", err)
	}
	if envErr != nil && (app.IsProduction() || !errors.Is(envErr, fs.ErrNotExist)) {
		return fmt.Errorf("error loading .env file: %w", envErr)
	}

	zlog, err := logger.New(app.Env)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	defer zlog.Sync()

	if err := server.Start(app, zlog); err != nil {
		zlog.Error("Server stopped with error", zap.Error(err))
		return err
	}
	return nil
}
