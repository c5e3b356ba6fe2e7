package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/ZaguanLabs/transapi"
	"github.com/ZaguanLabs/transapi/cache"
	"github.com/ZaguanLabs/transapi/internal/config"
	"github.com/ZaguanLabs/transapi/internal/server"
)

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Look up available translations for one unit",
		ArgsUsage: "plugins|themes <slug> <version> <locale>  or  core <version> <locale>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Indent the JSON document",
			},
		},
		Action: runLookup,
	}
}

// parseLookupArgs turns positional arguments into a request. Core lookups
// take no slug.
func parseLookupArgs(args []string) (transapi.LookupRequest, error) {
	if len(args) == 0 {
		return transapi.LookupRequest{}, fmt.Errorf("translation type is required")
	}
	kind, err := transapi.ParseKind(args[0])
	if err != nil {
		return transapi.LookupRequest{}, err
	}

	req := transapi.LookupRequest{Kind: kind}
	rest := args[1:]
	if kind == transapi.KindCore {
		if len(rest) != 2 {
			return req, fmt.Errorf("core lookups take <version> <locale>, got %d arguments", len(rest))
		}
		req.Version, req.Locale = rest[0], rest[1]
		return req, nil
	}
	if len(rest) != 3 {
		return req, fmt.Errorf("%s lookups take <slug> <version> <locale>, got %d arguments", kind, len(rest))
	}
	req.Slug, req.Version, req.Locale = rest[0], rest[1], rest[2]
	return req, nil
}

func runLookup(c *cli.Context) error {
	req, err := parseLookupArgs(c.Args().Slice())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, c.App.ErrWriter)

	store, closeStore, err := openStore(c.Context, cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()

	gw := newGateway(cfg, store, logger)
	result, err := gw.Lookup(c.Context, req)
	if err != nil {
		fmt.Fprintln(c.App.ErrWriter, transapi.UserMessage(err))
		return fmt.Errorf("lookup failed: %w", err)
	}

	out := result.Raw()
	if c.Bool("pretty") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err != nil {
			return fmt.Errorf("formatting document: %w", err)
		}
		out = buf.Bytes()
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve lookups over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Override server.addr",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	logger := newLogger(cfg.Log, c.App.ErrWriter)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()

	if purger, ok := store.(cache.Purger); ok && cfg.Cache.PurgeSchedule != "" {
		sched, err := cache.NewPurgeScheduler(purger, cfg.Cache.PurgeSchedule, logger)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gw := newGateway(cfg, store, logger, transapi.WithMetrics(transapi.NewMetrics(reg)))

	srv := server.New(gw,
		server.WithLogger(logger),
		server.WithGatherer(reg),
		server.WithConcurrency(cfg.Gateway.Concurrency),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and move store contents",
		Subcommands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Write live entries as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: stdout)",
					},
				},
				Action: runCacheExport,
			},
			{
				Name:      "import",
				Usage:     "Load entries from an export, keeping their remaining lifetime",
				ArgsUsage: "<file>",
				Action:    runCacheImport,
			},
			{
				Name:   "purge",
				Usage:  "Remove expired entries from bolt or postgres stores",
				Action: runCachePurge,
			},
		},
	}
}

// withStore loads the cache settings, opens the store and hands it to fn.
func withStore(c *cli.Context, fn func(cfg *config.Config, store cache.ExportableStore) error) error {
	cfg, err := loadConfig(c, false)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, c.App.ErrWriter)

	store, closeStore, err := openStore(c.Context, cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()

	return fn(cfg, store)
}

func runCacheExport(c *cli.Context) error {
	return withStore(c, func(cfg *config.Config, store cache.ExportableStore) error {
		meta := map[string]string{
			"backend": cfg.Cache.Backend,
			"version": transapi.FullVersion(),
		}
		exporter := cache.NewExporter(store)

		if path := c.String("output"); path != "" {
			if err := exporter.ExportToFile(c.Context, path, meta); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			fmt.Fprintf(c.App.ErrWriter, "Exported store to %s\n", path)
			return nil
		}
		return exporter.Export(c.Context, c.App.Writer, meta)
	})
}

func runCacheImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("import takes exactly one file argument")
	}
	path := c.Args().First()

	return withStore(c, func(_ *config.Config, store cache.ExportableStore) error {
		res, err := cache.NewImporter(store).ImportFromFile(c.Context, path)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Imported %d entries (%d expired, %d failed)\n", res.Imported, res.Skipped, res.Failed)
		return nil
	})
}

func runCachePurge(c *cli.Context) error {
	return withStore(c, func(cfg *config.Config, store cache.ExportableStore) error {
		purger, ok := store.(cache.Purger)
		if !ok {
			fmt.Fprintf(c.App.Writer, "The %s backend expires entries itself; nothing to purge\n", cfg.Cache.Backend)
			return nil
		}
		removed, err := purger.Purge(c.Context)
		if err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Purged %d expired entries\n", removed)
		return nil
	})
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "transapi.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")
	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	if _, err := loadConfig(c, true); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Configuration is valid")
	return nil
}
