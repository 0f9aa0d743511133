// Command research gathers web search results for a query and writes them
// as a research record.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FranksOps/quill/internal/config"
	"github.com/FranksOps/quill/internal/logging"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/pipeline"
	"github.com/FranksOps/quill/internal/report"
	"github.com/FranksOps/quill/internal/research"
	"github.com/FranksOps/quill/internal/storage"
	"github.com/FranksOps/quill/internal/storage/jsonbackend"
)

// errReported marks failures whose message has already been printed.
var errReported = errors.New("reported")

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "research <query> <output_path> [basic|advanced]",
	Short: "Gather web search results into a research record",
	Long: `research searches the web for a query and writes a JSON research record.

Results come from the ddgr command line tool, falling back to DuckDuckGo's HTML
results page. Depth "advanced" also searches the configured query variations.
The record is always written, even when no results are found.`,
	Args:          cobra.RangeArgs(2, 3),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		if err := setup(cfgFile); err != nil {
			// no config means no logger either; record the failure and bail out
			if ferr := pipeline.Fail(cmd.Context(), jsonbackend.New(args[1]), args[0], storage.DepthBasic, err); ferr != nil {
				fmt.Fprintln(os.Stderr, pipeline.Message(ferr))
			}
			fmt.Fprintln(os.Stderr, pipeline.Message(err))
			return errReported
		}
		return nil
	},
	RunE: runResearch,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./quill.yaml)")
	rootCmd.Flags().String("report", "text", "run report written to stderr: text, json or none")
}

func setup(cfgFile string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	l, err := logging.New(os.Stderr, c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

func runResearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query, outPath := args[0], args[1]
	reportFormat, _ := cmd.Flags().GetString("report")

	runID := uuid.NewString()
	log := logger.With("run_id", runID)

	depthArg := string(storage.DepthBasic)
	if len(args) == 3 {
		depthArg = args[2]
	}
	depth, err := storage.ParseDepth(depthArg)
	if err != nil {
		log.Warn("unknown search depth, using basic", "depth", depthArg)
		depth = storage.DepthBasic
	}

	backend := jsonbackend.New(outPath)
	defer writeMetrics(log)

	chain, closeChain, err := newChain(cfg.Search, log)
	if err != nil {
		if ferr := pipeline.Fail(ctx, backend, query, depth, err); ferr != nil {
			log.Error("failed to save research record", "path", outPath, "err", ferr)
		}
		fmt.Fprintln(os.Stderr, pipeline.Message(err))
		return errReported
	}
	defer closeChain()

	agg := research.New(chain, log, research.WithVariations(cfg.Search.Variations))

	start := time.Now()
	run, err := pipeline.Research(ctx, agg, backend, query, depth)
	if run != nil && reportFormat != "none" {
		summary := report.Summarize(run, time.Since(start))
		summary.RunID = runID
		if rerr := report.Write(os.Stderr, reportFormat, summary); rerr != nil {
			log.Warn("failed to write run report", "err", rerr)
		}
	}

	switch {
	case errors.Is(err, pipeline.ErrNoResults):
		fmt.Fprintf(os.Stderr, "ERROR: No results found for '%s'\n", query)
		return errReported
	case err != nil:
		fmt.Fprintln(os.Stderr, pipeline.Message(err))
		return errReported
	}

	fmt.Printf("SUCCESS: Research data saved to %s\n", outPath)
	fmt.Fprintf(os.Stderr, "  Found: %d results from %d sources\n", len(run.Record.Results), len(run.Record.Sources))
	return nil
}

func writeMetrics(log *slog.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("failed to write metrics", "path", cfg.Metrics.Textfile, "err", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		}
		os.Exit(1)
	}
}
