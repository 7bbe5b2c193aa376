package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ticktock/internal"
	"github.com/starford/ticktock/internal/models"
	"github.com/starford/ticktock/internal/parser"
	"github.com/starford/ticktock/internal/timesheet"
	pkgconfig "github.com/starford/ticktock/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadIfExists(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Info("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// parseMessage prints the parse result for the message given as arguments.
// With --date the drafts are also stored in the configured store.
func parseMessage(ctx context.Context, cmd *cli.Command) error {
	message := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message is required")
	}

	var result any
	date := cmd.String("date")
	if date == "" {
		result = parser.New().Parse(message)
	} else {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := internal.OpenStore(&cfg.Store)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer store.Close() //nolint:errcheck // read-only exit path

		res, err := timesheet.NewService(store, parser.New()).ParseMessage(ctx, message, date)
		if err != nil {
			return fmt.Errorf("parse message: %w", err)
		}
		result = res
	}

	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "ticktock",
		Usage:  "Turn natural-language work notes into time entries and ship them to the timesheet",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the timesheet tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:      "parse",
				Usage:     "Parse a message and print the draft entries as JSON",
				ArgsUsage: "<message>",
				Action:    parseMessage,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "date",
						Usage: "Store the drafts under this day (YYYY-MM-DD)",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
