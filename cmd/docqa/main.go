// Package main provides the docqa CLI for one-shot questions over a local document.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/decode"
	"github.com/bull/docqa/internal/segment"
)

var (
	configPath string
	strategy   string
	topK       int
	verbose    bool
	force      bool
)

var rootCmd = &cobra.Command{
	Use:          "docqa",
	Short:        "Ask questions about a document",
	Long:         "CLI tool that indexes a local document in memory and answers questions from its most relevant chunks.",
	SilenceUsage: true,
}

var askCmd = &cobra.Command{
	Use:   "ask FILE QUESTION...",
	Short: "Index FILE and answer QUESTION from it",
	Long: `Decodes FILE (txt, md, html, pdf or docx), splits it into chunks, embeds them,
retrieves the chunks closest to QUESTION and composes an answer.

If answer generation is unavailable (no OPENAI_API_KEY, generator provider "none",
quota or network errors) the most relevant chunks are shown instead.

Environment variables:
  OPENAI_API_KEY  OpenAI API key (required for the openai embedder and generator)
  DOCQA_*         Overrides for any config key, e.g. DOCQA_EMBEDDER_PROVIDER=openai`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

var chunksCmd = &cobra.Command{
	Use:   "chunks FILE",
	Short: "Print the chunks FILE is split into",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the docqa configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write the default configuration (default ./docqa.yaml)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./docqa.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")

	askCmd.Flags().StringVarP(&strategy, "strategy", "s", "", "split strategy: fixed, clause or whole (default from config)")
	askCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of supporting chunks (default from config)")
	chunksCmd.Flags().StringVarP(&strategy, "strategy", "s", "", "split strategy: fixed, clause or whole (default from config)")
	configInitCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(askCmd, chunksCmd, configCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	components, err := app.New(cfg, newLogger())
	if err != nil {
		return err
	}

	split, err := resolveStrategy(components.Strategy)
	if err != nil {
		return err
	}
	k := cfg.Retrieval.DefaultTopK
	if topK != 0 {
		k = topK
	}
	if k <= 0 || k > cfg.Retrieval.MaxTopK {
		return fmt.Errorf("--top-k must be between 1 and %d", cfg.Retrieval.MaxTopK)
	}

	text, err := readDocument(args[0])
	if err != nil {
		return err
	}

	result, err := components.Retriever.IndexDocument(ctx, text, filepath.Base(args[0]), split)
	if err != nil {
		return fmt.Errorf("Indexing failed: %w", err)
	}

	question := strings.Join(args[1:], " ")
	ans, err := components.Composer.Ask(ctx, question, k)
	if err != nil {
		return fmt.Errorf("Question failed: %w", err)
	}

	fmt.Fprintln(out, ans.Text)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Source: %s (%s)\n", ans.Source, ans.Explanation)
	fmt.Fprintln(out, "Supporting chunks:")
	for _, c := range ans.Basis {
		fmt.Fprintf(out, "  [%d] %s\n", c.ID, oneLine(c.Text, 160))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Indexed %d chunks (%s strategy) in %s\n", result.Chunks, split, time.Since(start).Round(time.Millisecond))

	return nil
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	def, err := segment.ParseStrategy(cfg.Segment.Strategy)
	if err != nil {
		return err
	}
	split, err := resolveStrategy(def)
	if err != nil {
		return err
	}

	text, err := readDocument(args[0])
	if err != nil {
		return err
	}

	segmenter := segment.NewSegmenter(segment.Config{
		ChunkSize:       cfg.Segment.ChunkSize,
		MinClauseLength: cfg.Segment.MinClauseLength,
	})
	chunks := segmenter.Segment(text, filepath.Base(args[0]), split)

	out := cmd.OutOrStdout()
	for _, c := range chunks {
		fmt.Fprintf(out, "[%d] %s\n", c.ID, oneLine(c.Text, 160))
	}
	fmt.Fprintf(out, "\n%d chunks (%s strategy)\n", len(chunks), split)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfigFile
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func resolveStrategy(def segment.Strategy) (segment.Strategy, error) {
	if strategy == "" {
		return def, nil
	}
	return segment.ParseStrategy(strategy)
}

// readDocument decodes a file by extension; "-" reads plain text from stdin.
func readDocument(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return decode.Decode(data, decode.FormatText)
	}

	format, err := decode.FormatFromFilename(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := decode.Decode(data, format)
	if errors.Is(err, decode.ErrNoText) {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, err
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// oneLine flattens whitespace and shortens s to at most n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
