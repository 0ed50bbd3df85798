package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/invhealth/internal/app"
	"github.com/andresuchdata/invhealth/internal/config"
	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/export"
	"github.com/andresuchdata/invhealth/internal/repository/postgres"
	"github.com/andresuchdata/invhealth/internal/service"
	"github.com/andresuchdata/invhealth/pkg/logger"
)

func newDateFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: usage + " (YYYY-MM-DD, defaults to today)",
	}
}

func main() {
	cliApp := &cli.App{
		Name:  "invhealth-audit",
		Usage: "Audit inventory data integrity and stockout risk",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			logger.Setup(c.String("log-level"), cfg.Log.Format)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a health audit and print the report",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Compute the report without writing corrections back",
					},
					newDateFlag("Audit date"),
				},
				Action: withApp(runAudit),
			},
			{
				Name:  "latest",
				Usage: "Print the latest completed report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: json, issues-csv or risks-csv",
						Value: "json",
					},
				},
				Action: withApp(printLatest),
			},
			{
				Name:  "runs",
				Usage: "List recent audit runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Number of runs to list", Value: 20},
				},
				Action: withApp(func(c *cli.Context, a *app.App) error {
					runs, err := a.Service.Runs(c.Context, c.Int("limit"))
					if err != nil {
						return err
					}
					return writeJSON(c.App.Writer, runs)
				}),
			},
			{
				Name:  "params",
				Usage: "Print the stored audit parameters",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					params, err := a.Service.Parameters(c.Context)
					if err != nil {
						return err
					}
					return writeJSON(c.App.Writer, params)
				}),
			},
			{
				Name:  "mark-trained",
				Usage: "Record that the forecast model was retrained",
				Flags: []cli.Flag{newDateFlag("Training date")},
				Action: withApp(func(c *cli.Context, a *app.App) error {
					day, err := parseDate(c.String("date"))
					if err != nil {
						return err
					}
					params, err := a.Service.MarkTrained(c.Context, day)
					if err != nil {
						return err
					}
					return writeJSON(c.App.Writer, params)
				}),
			},
			{
				Name:   "migrate",
				Usage:  "Create the tables owned by the audit",
				Action: migrate,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("invhealth-audit failed")
	}
}

// withApp opens every backend for the duration of one command.
func withApp(fn func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := app.New(c.Context, config.Load())
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close resources")
			}
		}()
		return fn(c, a)
	}
}

func runAudit(c *cli.Context, a *app.App) error {
	day, err := parseDate(c.String("date"))
	if err != nil {
		return err
	}

	out, err := a.Service.Run(c.Context, service.RunOptions{DryRun: c.Bool("dry-run"), Date: day})
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", out.Run.ID).
		Int("health_score", out.Report.Summary.HealthScore).
		Str("status", string(out.Report.Summary.Status)).
		Dur("took", out.Duration).
		Msg("Audit finished")
	return writeJSON(c.App.Writer, out.Report)
}

func printLatest(c *cli.Context, a *app.App) error {
	report, err := a.Service.Latest(c.Context)
	if service.IsNotFound(err) {
		return fmt.Errorf("no completed audit yet")
	}
	if err != nil {
		return err
	}

	switch c.String("format") {
	case "json":
		return writeJSON(c.App.Writer, report)
	case "issues-csv":
		return export.WriteIssuesCSV(c.App.Writer, report.Issues)
	case "risks-csv":
		return export.WriteStockoutRisksCSV(c.App.Writer, report.StockoutRisks)
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}
}

func migrate(c *cli.Context) error {
	cfg := config.Load()
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(c.Context, 2*time.Minute)
	defer cancel()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info().Msg("Migrations applied")
	return nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return day, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
