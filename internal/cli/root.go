// Package cli implements the docintel command line tool.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext"
	"github.com/Lllllllleong/documentintelligence/internal/services"
)

var (
	envFile string
	verbose bool
	page    int
)

// Overridable in tests.
var (
	loadConfig   = config.Load
	newCompleter = services.NewCompleter
	newIngest    = services.NewBatchIngest
	readPage     = func(path string, n int) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return pdftext.Extractor{}.PageText(data, n)
	}
)

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Ask questions, summarize and quiz yourself on PDF documents",
	Long: `docintel works on one page of a PDF at a time. It can answer questions
grounded in the page, summarize it, generate and grade multiple-choice
quizzes, and ingest PDFs into the document library.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of environment variables to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command. Canceling ctx stops in-flight work.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// pageSetup loads configuration, the page text and a completer.
func pageSetup(ctx context.Context, path string) (*config.Config, string, llm.Completer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", nil, err
	}
	text, err := readPage(path, page)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to read page %d of %s: %w", page, path, err)
	}
	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return nil, "", nil, err
	}
	return cfg, text, completer, nil
}

func modelName(cfg *config.Config) string {
	return services.ModelFor(cfg.Engine, cfg.Engine.ChatModel)
}
