// Command write-article renders a research record as a markdown article.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FranksOps/quill/internal/article"
	"github.com/FranksOps/quill/internal/config"
	"github.com/FranksOps/quill/internal/logging"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/pipeline"
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
	Use:   "write-article <input_path> <output_path>",
	Short: "Transform research data into a markdown article",
	Example: `  write-article input.json output.md
  write-article data.json article.md --style engaging --length short
  write-article research.json output.md --style analytical`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		if err := setup(cfgFile); err != nil {
			return fail(args[1], err)
		}
		return nil
	},
	RunE: runWrite,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./quill.yaml)")
	rootCmd.Flags().String("style", string(article.StyleNeutral), "writing style: neutral, analytical or engaging")
	rootCmd.Flags().String("length", string(article.LengthMedium), "article length: short, medium or long")
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

// fail writes the error document for err and prints its message.
func fail(outPath string, err error) error {
	msg := pipeline.Message(err)
	fmt.Fprintln(os.Stderr, msg)
	if werr := storage.WriteFile(outPath, []byte(article.ErrorDocument(msg))); werr != nil {
		fmt.Fprintln(os.Stderr, pipeline.Message(werr))
	}
	return errReported
}

func runWrite(cmd *cobra.Command, args []string) error {
	inPath, outPath := args[0], args[1]
	style, _ := cmd.Flags().GetString("style")
	length, _ := cmd.Flags().GetString("length")

	log := logger.With("run_id", uuid.NewString())
	defer writeMetrics(log)

	log.Info("reading research data", "path", inPath)
	log.Info("writing article", "style", style, "length", length)

	doc, err := pipeline.Write(cmd.Context(), jsonbackend.New(inPath), outPath, article.New(), style, length)
	if err != nil {
		fmt.Fprintln(os.Stderr, pipeline.Message(err))
		return errReported
	}

	fmt.Printf("SUCCESS: Article saved to %s\n", outPath)
	fmt.Fprintf(os.Stderr, "  Word count: %d words\n", article.WordCount(doc))
	fmt.Fprintf(os.Stderr, "  Style: %s, Length: %s\n", style, length)
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
