package main

import (
	"flag"
	"fmt"
	"os"

	"telegram-movie-finder/internal/config"
	pg "telegram-movie-finder/internal/infra/db/postgres"
	"telegram-movie-finder/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log, false)

	applied, err := pg.Migrate(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	if !applied {
		log.Info().Msg("schema already up to date")
		return
	}
	log.Info().Msg("migrations applied")
}
