// Command catalog ingests store feeds and runs searches, plans and intents offline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"itinerary/internal/buildinfo"
	"itinerary/internal/catalog"
	"itinerary/internal/config"
	"itinerary/internal/ingest"
	"itinerary/internal/intent"
	"itinerary/internal/logging"
	"itinerary/internal/model"
	"itinerary/internal/opt"
	"itinerary/internal/store"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "catalog",
	Short:         "Store catalog tooling: ingest feeds, search, plan and parse intents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		level := "warn"
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level, true)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(ingestCmd(), searchCmd(), planCmd(), intentCmd(), configCmd(), versionCmd())
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// loadSnapshot reads a CSV feed or a JSON seed, chosen by extension.
func loadSnapshot(path string) (*catalog.Snapshot, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		stores, err := store.ReadSeed(path)
		if err != nil {
			return nil, err
		}
		return catalog.NewSnapshot(stores, path), nil
	}
	stores, rep, err := ingest.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("feed ingested", zap.String("path", path), zap.Int("kept", rep.Kept), zap.Int("dropped", rep.Dropped))
	return catalog.NewSnapshot(stores, path), nil
}

func ingestCmd() *cobra.Command {
	var out, storeType, dsn string
	cmd := &cobra.Command{
		Use:   "ingest <feed.csv>",
		Short: "Normalize a raw feed into a JSON seed and optionally persist it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, rep, err := ingest.LoadFile(args[0])
			if err != nil {
				return err
			}
			if out != "" {
				if err := store.WriteSeed(out, stores); err != nil {
					return err
				}
			}
			if storeType != "" {
				st, err := store.Open(cmd.Context(), storeType, dsn)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.SaveCatalog(cmd.Context(), stores); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"report": rep, "output": out, "store": storeType})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "data/stores.json", "JSON seed to write (empty to skip)")
	cmd.Flags().StringVar(&storeType, "store", "", "also persist to a store: sqlite or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "store DSN or SQLite path")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		category string
		lat, lng float64
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "search <catalog.csv|stores.json>",
		Short: "Nearest stores of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			hits := snap.Nearest(category, model.GeoPoint{Lat: lat, Lng: lng}, limit)
			return printJSON(cmd.OutOrStdout(), map[string]any{"items": hits})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category filter (empty for all)")
	cmd.Flags().Float64Var(&lat, "lat", intent.DefaultStart.Lat, "origin latitude")
	cmd.Flags().Float64Var(&lng, "lng", intent.DefaultStart.Lng, "origin longitude")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultLimit, "maximum results")
	return cmd
}

func planCmd() *cobra.Command {
	var (
		lat, lng   float64
		categories []string
	)
	cmd := &cobra.Command{
		Use:   "plan <catalog.csv|stores.json>",
		Short: "Greedy itinerary through the given categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			req := model.PlanRequest{Start: &model.GeoPoint{Lat: lat, Lng: lng}}
			for _, c := range categories {
				req.Waypoints = append(req.Waypoints, model.Waypoint{Category: c})
			}
			res, err := opt.Plan(snap, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", intent.DefaultStart.Lat, "start latitude")
	cmd.Flags().Float64Var(&lng, "lng", intent.DefaultStart.Lng, "start longitude")
	cmd.Flags().StringSliceVarP(&categories, "waypoint", "w", nil, "waypoint category, repeatable or comma separated")
	return cmd
}

func intentCmd() *cobra.Command {
	var feed string
	cmd := &cobra.Command{
		Use:   "intent <text...>",
		Short: "Parse free text into waypoints; with --catalog also plan them",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := intent.Parse(strings.Join(args, " "), nil)
			if feed == "" {
				return printJSON(cmd.OutOrStdout(), in)
			}
			snap, err := loadSnapshot(feed)
			if err != nil {
				return err
			}
			res, err := opt.Plan(snap, intent.PlanRequest(in))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"intent": in, "plan": res})
		},
	}
	cmd.Flags().StringVar(&feed, "catalog", "", "catalog CSV or JSON seed to plan against")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the API server config file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default config (config.yaml unless a path is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), buildinfo.Info())
		},
	}
}
