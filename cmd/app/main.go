package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/journal/internal"
	pkgconfig "github.com/starford/journal/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	found, err := pkgconfig.LoadIfExists(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", path))
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if path := cmd.String("config"); fileExists(path) {
		opts = append(opts, internal.WithConfigPath(path))
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func exportNotes(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunExport(ctx, cmd.String("dir"), cmd.Bool("prune"), opts...)
}

func importNotes(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunImport(ctx, cmd.String("dir"), opts...)
}

func list(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.List(ctx, internal.ListQuery{
		Search:  cmd.String("query"),
		Folder:  cmd.String("folder"),
		Tags:    cmd.StringSlice("tag"),
		Folders: cmd.Bool("folders"),
	}, opts...)
}

func dirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "Backup directory (defaults to export.dir)",
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "journal",
		Usage:   "Digital journal with folders, tags and live sync",
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
				Usage:  "Run the HTTP API server",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the journal of mcp.user_email to an MCP client over stdio",
				Action: mcp,
			},
			{
				Name:   "export",
				Usage:  "Write every note as a Markdown file",
				Action: exportNotes,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.BoolFlag{Name: "prune", Usage: "Delete files of notes that no longer exist"},
				},
			},
			{
				Name:   "import",
				Usage:  "Save Markdown note files into the journal",
				Action: importNotes,
				Flags:  []cli.Flag{dirFlag()},
			},
			{
				Name:   "list",
				Usage:  "Print notes passing the given filters",
				Action: list,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search text"},
					&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Folder name or id"},
					&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag to match (repeatable)"},
					&cli.BoolFlag{Name: "folders", Usage: "Print folders instead of notes"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
