package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kwsearch/internal/adapter/retriever"
	"kwsearch/internal/domain"
	"kwsearch/internal/usecase"
)

var (
	searchLimit int
	searchMode  string
	searchJSON  bool
	diversify   float64
)

// dedupJaccard drops a candidate that shares more than this fraction of
// its terms with a document already shown.
const dedupJaccard = 0.8

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index",
	Long: `Rank documents against a free-text query.

Examples:
  kwsearch search "bear"
  kwsearch search "family adventure" --limit 10 --json
  kwsearch search "space opera" --mode hybrid
  kwsearch search "bear" --diversify 0.7`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "number of results (default from config)")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "ranking mode: bm25, semantic or hybrid (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().Float64Var(&diversify, "diversify", 0, "MMR lambda in (0,1]; reranks a wider candidate set to reduce near duplicates")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	query := strings.Join(args, " ")

	modeName := cfg.Search.Mode
	if searchMode != "" {
		modeName = searchMode
	}
	mode, err := usecase.ParseMode(modeName)
	if err != nil {
		return err
	}

	limit := cfg.Search.Limit
	if cmd.Flags().Changed("limit") {
		limit = searchLimit
	}

	opts := engineOptions{params: searchParams()}
	if mode == usecase.ModeSemantic || (mode == usecase.ModeHybrid && cfg.Embedding.Enabled) {
		vectors, embedder, err := openVectors()
		if err != nil {
			return err
		}
		defer vectors.Close()
		opts.vectors, opts.embedder = vectors, embedder
	}

	engine, err := openEngine(opts)
	if err != nil {
		return err
	}
	if err := ensureEmbeddings(engine, opts); err != nil {
		return err
	}

	if diversify < 0 || diversify > 1 {
		return fmt.Errorf("%w: --diversify must be between 0 and 1", domain.ErrInvalidArgument)
	}
	fetch := limit
	if diversify > 0 {
		fetch = limit * 3
	}

	results, err := engine.Search(mode, query, fetch)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if diversify > 0 {
		tokenizer, err := newTokenizer()
		if err != nil {
			return err
		}
		results = retriever.NewMMRReranker(tokenizer, diversify, dedupJaccard).Rerank(results, limit)
	}
	return printResults(query, results, searchJSON)
}

// ensureEmbeddings makes sure the stored vectors cover the loaded index.
func ensureEmbeddings(engine *usecase.Engine, opts engineOptions) error {
	if opts.vectors == nil {
		return nil
	}
	idx, err := engine.Index()
	if err != nil {
		return err
	}

	embedUC := usecase.NewEmbeddingsUseCase(opts.embedder, opts.vectors, GetConfig().Embedding.BatchSize)
	if _, err := embedUC.LoadOrCreate(context.Background(), idx.Documents(), newProgress("Embedding")); err != nil {
		return fmt.Errorf("failed to prepare embeddings: %w", err)
	}
	return nil
}

func printResults(query string, docs []domain.ScoredDocument, asJSON bool) error {
	if asJSON {
		results := make([]domain.SearchResult, len(docs))
		for i, d := range docs {
			results[i] = domain.NewSearchResult(d)
		}
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Searching for: %s\n", query)
	if len(docs) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, d := range docs {
		fmt.Printf("%d. %s (score: %s)\n", i+1, d.Document.Title, formatScore(d.Score))
	}
	return nil
}
