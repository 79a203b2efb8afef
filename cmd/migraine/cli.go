package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cedricdekimpe/MigraineTracker/internal/config"
	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/logger"
	"github.com/cedricdekimpe/MigraineTracker/internal/ops"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
	"github.com/cedricdekimpe/MigraineTracker/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, log *logger.Logger) *cli.App {
	app := &cli.App{
		Name:    "migraine",
		Usage:   "Migraine diary: log entries, move data between stores, read statistics",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				EnvVars: []string{"MIGRAINE_USER"},
				Usage:   "Account email (defaults to default_user_email from config)",
			},
		},
		Commands: []*cli.Command{
			medicationCmd(db),
			logCmd(db),
			exportCmd(db, cfg, log),
			importCmd(db, cfg, log),
			statsCmd(db),
			serveCmd(db, cfg, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	// Owner resolution needs the config default
	app.Metadata = map[string]any{"config": cfg}
	return app
}

// resolveOwner finds or creates the account named by --user or the config default.
func resolveOwner(c *cli.Context, db *sql.DB) (ops.Owner, error) {
	email := c.String("user")
	if email == "" {
		if cfg, ok := c.App.Metadata["config"].(*config.Config); ok && cfg != nil {
			email = cfg.DefaultUserEmail
		}
	}
	if strings.TrimSpace(email) == "" {
		return ops.Owner{}, errors.NewInvalidRequest("no account: pass --user, set MIGRAINE_USER or default_user_email")
	}
	return ops.ResolveOwner(c.Context, db, email)
}

// medicationCmd creates the medication command group.
func medicationCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "medication",
		Usage: "Manage medications",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a medication",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one medication name is required"))
					}
					owner, err := resolveOwner(c, db)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.AddMedication(c.Context, db, ops.AddMedicationInput{Owner: owner, Name: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List medications by name",
				Action: func(c *cli.Context) error {
					owner, err := resolveOwner(c, db)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.ListMedications(c.Context, db, owner)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a medication; its migraines are kept without one",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one medication name is required"))
					}
					owner, err := resolveOwner(c, db)
					if err != nil {
						return outputError(err)
					}
					name := c.Args().First()
					if err := ops.DeleteMedication(c.Context, db, owner, name); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"deleted": true, "name": name})
				},
			},
		},
	}
}

// logCmd creates the log command.
func logCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Log a migraine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Date as YYYY-MM-DD (default: today)"},
			&cli.StringFlag{Name: "nature", Aliases: []string{"n"}, Required: true, Usage: "M, H, strong or weak"},
			&cli.IntFlag{Name: "intensity", Aliases: []string{"i"}, Usage: "Pain level 0-10"},
			&cli.BoolFlag{Name: "on-period", Usage: "Logged during a menstrual period"},
			&cli.StringFlag{Name: "medication", Aliases: []string{"m"}, Usage: "Medication taken (created if new)"},
		},
		Action: func(c *cli.Context) error {
			owner, err := resolveOwner(c, db)
			if err != nil {
				return outputError(err)
			}

			input := ops.LogMigraineInput{
				Owner:          owner,
				OccurredOn:     c.String("date"),
				Nature:         c.String("nature"),
				OnPeriod:       c.Bool("on-period"),
				MedicationName: c.String("medication"),
			}
			if input.OccurredOn == "" {
				input.OccurredOn = tracker.FormatDate(time.Now())
			}
			if c.IsSet("intensity") {
				intensity := c.Int("intensity")
				input.Intensity = &intensity
			}

			output, err := ops.LogMigraine(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config, log *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the account to a JSON snapshot file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: ~/.migraine/exports/<email>-<time>.json)"},
			&cli.BoolFlag{Name: "stdout", Usage: "Print the snapshot instead of writing a file"},
		},
		Action: func(c *cli.Context) error {
			owner, err := resolveOwner(c, db)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("stdout") {
				snap, err := ops.Export(c.Context, db, ops.ExportInput{Owner: owner})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(snap)
			}

			output, err := ops.ExportFile(c.Context, db, cfg, owner, c.String("path"))
			if err != nil {
				return outputError(err)
			}
			log.Info("snapshot exported", "user", owner.Email, "path", output.Path)
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config, log *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge a JSON snapshot into the account (\"-\" reads stdin)",
		ArgsUsage: "<path|->",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one snapshot path is required"))
			}
			owner, err := resolveOwner(c, db)
			if err != nil {
				return outputError(err)
			}

			var output *ops.ImportOutput
			if path := c.Args().First(); path == "-" {
				snap, derr := tracker.DecodeSnapshot(os.Stdin, cfg.MaxImportBytes)
				if derr != nil {
					return outputError(derr)
				}
				output, err = ops.Import(c.Context, db, ops.ImportInput{Owner: owner, Snapshot: snap})
			} else {
				output, err = ops.ImportFile(c.Context, db, cfg, owner, path)
			}
			if err != nil {
				return outputError(err)
			}

			log.Info("snapshot imported", "user", owner.Email,
				"medications", output.MedicationsImported, "migraines", output.MigrainesImported)
			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command group.
func statsCmd(db *sql.DB) *cli.Command {
	// ownerStat wraps an aggregate that only needs the account.
	ownerStat := func(name, usage string, fn func(*cli.Context, ops.Owner) (any, error)) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Action: func(c *cli.Context) error {
				owner, err := resolveOwner(c, db)
				if err != nil {
					return outputError(err)
				}
				output, err := fn(c, owner)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			},
		}
	}

	monthsFlag := func() cli.Flag {
		return &cli.IntFlag{Name: "months", Aliases: []string{"n"}, Usage: "Window in months, 1-24 (default 12)"}
	}
	// months is nil unless the flag was given, so an explicit 0 still clamps.
	months := func(c *cli.Context) *int {
		if !c.IsSet("months") {
			return nil
		}
		n := c.Int("months")
		return &n
	}

	return &cli.Command{
		Name:  "stats",
		Usage: "Show statistics",
		Subcommands: []*cli.Command{
			ownerStat("overview", "Headline counters", func(c *cli.Context, o ops.Owner) (any, error) {
				return ops.Overview(c.Context, db, o)
			}),
			{
				Name:  "monthly",
				Usage: "Migraines per month, ending this month",
				Flags: []cli.Flag{monthsFlag()},
				Action: func(c *cli.Context) error {
					owner, err := resolveOwner(c, db)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.Monthly(c.Context, db, ops.MonthlyInput{Owner: owner, Months: months(c)})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			ownerStat("weekday", "Migraines per day of week", func(c *cli.Context, o ops.Owner) (any, error) {
				return ops.ByWeekday(c.Context, db, o)
			}),
			ownerStat("medication", "Migraines per medication", func(c *cli.Context, o ops.Owner) (any, error) {
				return ops.ByMedication(c.Context, db, o)
			}),
			ownerStat("nature", "Migraines per nature", func(c *cli.Context, o ops.Owner) (any, error) {
				return ops.ByNature(c.Context, db, o)
			}),
			ownerStat("intensity", "Migraines per intensity level", func(c *cli.Context, o ops.Owner) (any, error) {
				return ops.ByIntensity(c.Context, db, o)
			}),
			{
				Name:  "yearly",
				Usage: "Migraine ids by month for one year",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Calendar year (default: current)"},
				},
				Action: func(c *cli.Context) error {
					owner, err := resolveOwner(c, db)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.Yearly(c.Context, db, ops.YearlyInput{Owner: owner, Year: c.Int("year"), Now: time.Now()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "report",
				Usage: "Print every distribution as Markdown",
				Flags: []cli.Flag{monthsFlag()},
				Action: func(c *cli.Context) error {
					owner, err := resolveOwner(c, db)
					if err != nil {
						return outputError(err)
					}
					md, err := ops.Report(c.Context, db, ops.ReportInput{Owner: owner, Months: months(c)})
					if err != nil {
						return outputError(err)
					}
					_, err = fmt.Fprint(os.Stdout, md)
					return err
				},
			},
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, log *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the JSON API and stats page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			serveCfg := *cfg
			if c.IsSet("bind") {
				serveCfg.WebBind = c.String("bind")
			}
			if c.IsSet("port") {
				serveCfg.WebPort = c.Int("port")
			}

			srv, err := web.NewServer(db, &serveCfg, log, Version)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, log)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	tErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
}
