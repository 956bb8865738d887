package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/forcegraph/internal"
	pkgconfig "github.com/starford/forcegraph/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func render(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("render: exactly one scene file is required")
	}

	// A missing config file is fine here: the defaults lay out any scene.
	cfg := internal.NewDefaultConfig()
	if path := cmd.String("config"); path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := pkgconfig.Load(path, cfg); err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	out := cmd.String("output")
	format := cmd.String("format")
	if format == "" {
		format = internal.FormatFromPath(out)
	}

	var w io.Writer = os.Stdout
	if out != "" && out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		defer f.Close()
		w = f
	}

	return internal.Snapshot(w, cfg, internal.SnapshotRequest{
		Path:     cmd.Args().First(),
		Format:   format,
		MaxTicks: int(cmd.Int("ticks")),
		Seed:     cmd.Uint("seed"),
	})
}

func main() {
	cmd := &cli.Command{
		Name:    "forcegraph",
		Usage:   "Force-directed graph layouts served live over HTTP, SSE and MCP",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and scene directory watcher",
				Action: serve,
			},
			{
				Name:      "render",
				Usage:     "Lay out a scene file headlessly and write a snapshot",
				ArgsUsage: "<scene file>",
				Action:    render,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, - for stdout",
						Value:   "-",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "svg, png or html; guessed from --output when empty",
					},
					&cli.IntFlag{
						Name:  "ticks",
						Usage: "Maximum number of ticks to run",
						Value: internal.DefaultSettleTicks,
					},
					&cli.UintFlag{
						Name:  "seed",
						Usage: "Seed of the layout jitter, 0 for the default",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve scene tools to an MCP client over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
