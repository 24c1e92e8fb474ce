// File: cmd/migrate/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/config"
	pg "github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/db/postgres"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/logging"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/migrations"
)

const usage = `usage: migrate [-config config.yaml] <up|down|version|force N>`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, false)

	mg, err := pg.NewMigrator(migrations.FS, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrator")
	}
	defer func() { _ = mg.Close() }()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = mg.Up()
	case "down":
		err = mg.Down()
	case "version":
		v, dirty, verr := mg.Version()
		if verr == nil {
			fmt.Printf("version=%d dirty=%v\n", v, dirty)
		}
		err = verr
	case "force":
		var n int
		if _, serr := fmt.Sscanf(flag.Arg(1), "%d", &n); serr != nil {
			flag.Usage()
			os.Exit(2)
		}
		err = mg.Force(n)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate " + flag.Arg(0))
	}
}
