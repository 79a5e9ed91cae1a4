package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harvmaster/GooglePhotosDownloader/internal/services"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv("GPDL_DEBUG") != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warnf("failed to load %v, using defaults: %v", configPath, err)
		}
	}

	var photosService services.OAuthService
	if config.Credentials.Google.ClientID != "" && config.Credentials.Google.ClientSecret != "" {
		if svc, err := services.NewPhotosService(googleCredentials(config)); err == nil {
			if config.Downloader.RateLimit > 0 {
				svc.SetRateLimit(config.Downloader.RateLimit)
			}
			photosService = svc
		} else {
			logger.Warnf("failed to create Google Photos service: %v", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Service:    photosService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "gpdl",
		Usage:    "Download and archive your Google Photos library",
		Version:  "0.4.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

// googleCredentials maps the config's Google section into the credential
// format the service constructor expects.
func googleCredentials(config *shared.Config) map[string]string {
	return map[string]string{
		"client_id":     config.Credentials.Google.ClientID,
		"client_secret": config.Credentials.Google.ClientSecret,
		"redirect_uri":  config.Credentials.Google.RedirectURI,
	}
}
