package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"kwsearch/internal/adapter/index"
	"kwsearch/internal/usecase"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the inverted index",
	Long: `Build the inverted index over the configured corpus and store it in
.kwsearch/index.db. The previous index stays in place until the new one is
complete.

When embeddings are enabled the document vectors are refreshed as well.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	tokenizer, err := newTokenizer()
	if err != nil {
		return err
	}
	if err := cfg.EnsureIndexDir(GetRootDir()); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	buildUC := usecase.NewBuildUseCase(newCorpusLoader(), tokenizer, newIndexStore(), lockForBuild())

	fmt.Printf("Indexing %s...\n", cfg.Corpus.Path)
	result, err := buildUC.Build(newProgress("Indexing"))
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Documents:      %d\n", result.Documents)
	fmt.Printf("  Terms:          %d\n", result.Terms)
	fmt.Printf("  Avg doc length: %.2f\n", result.AvgDocLength)
	fmt.Printf("  Analyzer:       %s\n", result.Analyzer)
	fmt.Printf("  Elapsed:        %s\n", formatDuration(result.Elapsed))

	if cfg.Embedding.Enabled {
		vectors, embedder, err := openVectors()
		if err != nil {
			fmt.Printf("\nWarning: embedding generation failed: %v\n", err)
		} else {
			defer vectors.Close()
			embedUC := usecase.NewEmbeddingsUseCase(embedder, vectors, cfg.Embedding.BatchSize)
			res, err := embedUC.LoadOrCreate(context.Background(), result.Index.Documents(), newProgress("Embedding"))
			if err != nil {
				fmt.Printf("\nWarning: embedding generation failed: %v\n", err)
			} else if !res.Reused {
				fmt.Printf("  Embeddings:     %d\n", res.Count)
			}
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", cfg.IndexDBPath(GetRootDir()))
	return nil
}

// newProgress returns a progress callback that draws a bar when stdout is
// a terminal and does nothing otherwise.
func newProgress(label string) index.ProgressFunc {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return nil
	}

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	return func(processed, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			remaining := total - processed
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
