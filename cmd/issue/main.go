// File: cmd/issue/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/application"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/config"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	amount := flag.Int("amount", 1, "number of codes to issue")
	category := flag.String("type", "student", "code type: student or employer")
	days := flag.Int("expire-in-days", 0, "days until expiry (default from config)")
	label := flag.String("label", "", "distribution label, e.g. teacher or partner")
	target := flag.String("target", "", "mail address to send the codes to")
	local := flag.String("local", "", "local part for -domain, e.g. codes")
	mailDomain := flag.String("domain", "", "build the target as <local>@<domain>")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	cat, err := model.ParseCategory(*category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -type %q: must be student or employer\n", *category)
		os.Exit(2)
	}
	if *days <= 0 {
		*days = cfg.Codes.DefaultExpireDays
	}
	to := *target
	if to == "" && *mailDomain != "" {
		if to, err = model.TargetForDomain(*local, *mailDomain); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -local/-domain: %v\n", err)
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := application.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build application")
	}
	defer c.Close()

	out, err := application.FromContainer(c).HandleIssue(ctx, model.BatchRequest{
		Amount:       *amount,
		Category:     cat,
		ExpireInDays: *days,
		Label:        model.NewDistributionLabel(*label),
		Target:       to,
	})
	if err != nil {
		logger.Error().Err(err).Msg("issue")
		os.Exit(1)
	}
	fmt.Print(out)
}
