package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bioself/bioself/internal/config"
	"github.com/bioself/bioself/internal/domain/dashboard"
	"github.com/bioself/bioself/internal/domain/importer"
	"github.com/bioself/bioself/internal/domain/timeline"
	"github.com/bioself/bioself/internal/server"
	"github.com/bioself/bioself/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "bioself",
		Short:        "Biological Self health record bridge",
		Long:         "Aggregates a local encrypted health record store into dashboard, timeline and import operations. Prints one JSON document to stdout per command.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		createCmd(),
		getSummaryCmd(),
		getDashboardCmd(),
		getTimelineCmd(),
		addSymptomCmd(),
		parsePDFCmd(),
		checkDuplicatesCmd(),
		importCmd(),
		serveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig fails before any store access when required environment is
// missing.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withStore opens the store once per invocation and guarantees Close runs on
// every exit path. The command's result is printed to stdout as a single
// JSON line.
func withStore(run func(st *store.Store, args []string) (interface{}, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.StorePath, cfg.Passphrase)
		if err != nil {
			return err
		}
		defer st.Close()

		out, err := run(st, args)
		if err != nil {
			return err
		}
		return printJSON(out)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Initialize the store (idempotent)",
		Args:  cobra.NoArgs,
		RunE: withStore(func(st *store.Store, _ []string) (interface{}, error) {
			g, err := st.Create()
			if err != nil {
				return nil, err
			}
			return dashboard.Summarize(g), nil
		}),
	}
}

func getSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-summary",
		Short: "Print record counts and last-updated time",
		Args:  cobra.NoArgs,
		RunE: withStore(func(st *store.Store, _ []string) (interface{}, error) {
			g, err := st.Get()
			if err != nil {
				return nil, err
			}
			return dashboard.Summarize(g), nil
		}),
	}
}

func getDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-dashboard",
		Short: "Print the composed dashboard read-model",
		Args:  cobra.NoArgs,
		RunE: withStore(func(st *store.Store, _ []string) (interface{}, error) {
			g, err := st.Get()
			if err != nil {
				return nil, err
			}
			return dashboard.Build(g), nil
		}),
	}
}

func getTimelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-timeline [types_csv] [start] [end]",
		Short: "Print the merged chronological event list",
		Args:  cobra.RangeArgs(0, 3),
		RunE: withStore(func(st *store.Store, args []string) (interface{}, error) {
			f, err := parseTimelineArgs(args)
			if err != nil {
				return nil, err
			}
			g, err := st.Get()
			if err != nil {
				return nil, err
			}
			events := timeline.Assemble(g, f)
			return timeline.Data{Events: events, Total: len(events)}, nil
		}),
	}
}

func addSymptomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-symptom <symptomJson>",
		Short: "Insert a symptom record",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(st *store.Store, args []string) (interface{}, error) {
			sym, err := parseSymptom(args[0])
			if err != nil {
				return nil, err
			}
			inserted, err := st.AddSymptom(*sym)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"success": true, "symptom": inserted}, nil
		}),
	}
}

func parsePDFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-medical-record-pdf <filePath>",
		Short: "Run the extraction pipeline over a document and print the raw extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No store access: extraction only reads the input document.
			if _, err := loadConfig(); err != nil {
				return err
			}
			var ex importer.Extractor = importer.JSONExtractor{}
			x, err := ex.ExtractFromFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(x)
		},
	}
}

func checkDuplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-import-duplicates <extractionJson>",
		Short: "Classify extraction candidates against existing records",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(st *store.Store, args []string) (interface{}, error) {
			x, err := importer.ParseExtraction(args[0])
			if err != nil {
				return nil, err
			}
			g, err := st.Get()
			if err != nil {
				return nil, err
			}
			fallback := time.Now().UTC()
			if x.DateOfService != nil {
				fallback = x.DateOfService.Time
			}
			return importer.DetectDuplicates(g, x, fallback), nil
		}),
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-medical-record <extractionJson> [optionsJson]",
		Short: "Insert extracted labs, medications and conditions",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withStore(func(st *store.Store, args []string) (interface{}, error) {
			x, err := importer.ParseExtraction(args[0])
			if err != nil {
				return nil, err
			}
			var opts importer.Options
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &opts); err != nil {
					return nil, fmt.Errorf("parse options: %w", err)
				}
			}
			rep, err := importer.Import(st, x, opts)
			if err != nil {
				return nil, err
			}
			g, err := st.Get()
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"success":  true,
				"imported": rep,
				"summary":  dashboard.Summarize(g),
			}, nil
		}),
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only aggregation API on localhost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			st, err := store.Open(cfg.StorePath, cfg.Passphrase)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.New(st, logger)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start("127.0.0.1:" + cfg.Port)
			}()
			logger.Info().Str("port", cfg.Port).Msg("serving aggregation API")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info().Msg("shutting down")
			return srv.Shutdown(ctx)
		},
	}
}

// newLogger writes to stderr so stdout stays reserved for command output.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}
	return logger
}
