package main

import (
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/pflag"
	"github.com/vincentbai/journeytrace/internal/config"
	"github.com/vincentbai/journeytrace/internal/database"
	"github.com/vincentbai/journeytrace/internal/metrics"
	"github.com/vincentbai/journeytrace/internal/server"
)

func main() {
	var configPath, address string
	flagSet := pflag.NewFlagSet("journeytrace-collector", pflag.ExitOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flagSet.StringVar(&address, "address", "", "listen address (overrides config and JOURNEYTRACE_ADDRESS)")
	flagSet.Parse(os.Args[1:])

	cfg, err := config.LoadCollector(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if address != "" {
		cfg.Server.ListenAddress = address
	}

	databasePath := cfg.Database.Path
	if databasePath == "" {
		applicationDirectory, err := defaultDataDirectory()
		if err != nil {
			log.Fatal(err)
		}
		databasePath = filepath.Join(applicationDirectory, "journeys.db")
	}

	// Initialize database
	db, err := database.NewDatabase(databasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Initialize and start server
	srv := server.NewServer(db, cfg, metrics.New())
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}

// defaultDataDirectory returns the platform-specific app data dir,
// creating it when missing.
func defaultDataDirectory() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	var applicationDirectory string
	switch runtime.GOOS {
	case "darwin":
		applicationDirectory = filepath.Join(homeDirectory, "Library", "Application Support", "JourneyTrace")
	case "windows":
		applicationDirectory = filepath.Join(homeDirectory, "AppData", "Roaming", "JourneyTrace")
	default: // linux and others
		applicationDirectory = filepath.Join(homeDirectory, ".local", "share", "JourneyTrace")
	}
	if err := os.MkdirAll(applicationDirectory, 0o755); err != nil {
		return "", err
	}
	return applicationDirectory, nil
}
