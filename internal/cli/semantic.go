package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kwsearch/internal/adapter/chunker"
	"kwsearch/internal/usecase"
)

var (
	semanticLimit     int
	semanticChunkSize int
	semanticOverlap   int
)

var semanticCmd = &cobra.Command{
	Use:   "semantic",
	Short: "Embedding-based search commands",
	Long: `Commands for the embedding backend. The provider and model come from the
embedding section of the config; the mock provider works offline.`,
}

var semanticVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the embedding model is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		embedder, err := newEmbedder()
		if err != nil {
			return err
		}
		vec, err := usecase.EmbedText(context.Background(), embedder, "verify")
		if err != nil {
			return fmt.Errorf("model check failed: %w", err)
		}
		fmt.Printf("Model loaded: %s (%s)\n", embedder.ModelName(), GetConfig().Embedding.Provider)
		fmt.Printf("Dimensions: %d\n", len(vec))
		return nil
	},
}

var embedTextCmd = &cobra.Command{
	Use:   "embed-text <text>",
	Short: "Embed a text and show its first dimensions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		vec, err := embedOne(text)
		if err != nil {
			return err
		}
		fmt.Printf("Text: %s\n", text)
		fmt.Printf("First 3 dimensions: %v\n", head(vec, 3))
		fmt.Printf("Dimensions: %d\n", len(vec))
		return nil
	},
}

var embedQueryCmd = &cobra.Command{
	Use:   "embed-query <query>",
	Short: "Embed a query and show its first dimensions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		vec, err := embedOne(query)
		if err != nil {
			return err
		}
		fmt.Printf("Query: %s\n", query)
		fmt.Printf("First 5 dimensions: %v\n", head(vec, 5))
		fmt.Printf("Dimensions: %d\n", len(vec))
		return nil
	},
}

var verifyEmbeddingsCmd = &cobra.Command{
	Use:   "verify-embeddings",
	Short: "Create or reuse document embeddings and report their shape",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := newCorpusLoader().Load()
		if err != nil {
			return fmt.Errorf("failed to load corpus: %w", err)
		}
		vectors, embedder, err := openVectors()
		if err != nil {
			return err
		}
		defer vectors.Close()

		embedUC := usecase.NewEmbeddingsUseCase(embedder, vectors, GetConfig().Embedding.BatchSize)
		res, err := embedUC.LoadOrCreate(context.Background(), docs, newProgress("Embedding"))
		if err != nil {
			return err
		}
		fmt.Printf("Number of docs:   %d\n", len(docs))
		fmt.Printf("Embeddings shape: %d vectors in %d dimensions\n", res.Count, res.Dimension)
		return nil
	},
}

var semanticSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank documents by cosine similarity to the query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		vectors, embedder, err := openVectors()
		if err != nil {
			return err
		}
		defer vectors.Close()

		opts := engineOptions{vectors: vectors, embedder: embedder, params: searchParams()}
		engine, err := openEngine(opts)
		if err != nil {
			return err
		}
		if err := ensureEmbeddings(engine, opts); err != nil {
			return err
		}

		results, err := engine.Search(usecase.ModeSemantic, query, semanticLimit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		for i, r := range results {
			fmt.Printf("%d. %s (score: %.4f)\n", i+1, r.Document.Title, r.Score)
			fmt.Printf("   Description: %s\n\n", r.Document.Description)
		}
		return nil
	},
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <text>",
	Short: "Split text into fixed-size word chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		size := GetConfig().Embedding.ChunkSize
		if cmd.Flags().Changed("chunk-size") {
			size = semanticChunkSize
		}
		c, err := chunker.NewWordChunker(size, semanticOverlap)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		fmt.Printf("Chunking %d characters\n", len(text))
		for i, chunk := range c.Chunk(text) {
			fmt.Printf("%d. %s\n", i+1, chunk)
		}
		return nil
	},
}

func init() {
	semanticSearchCmd.Flags().IntVarP(&semanticLimit, "limit", "l", 5, "number of results")
	chunkCmd.Flags().IntVar(&semanticChunkSize, "chunk-size", chunker.DefaultChunkSize, "words per chunk")
	chunkCmd.Flags().IntVar(&semanticOverlap, "overlap", 0, "words shared by consecutive chunks")

	semanticCmd.AddCommand(
		semanticVerifyCmd,
		embedTextCmd,
		embedQueryCmd,
		verifyEmbeddingsCmd,
		semanticSearchCmd,
		chunkCmd,
	)
	rootCmd.AddCommand(semanticCmd)
}

func embedOne(text string) ([]float32, error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, err
	}
	return usecase.EmbedText(context.Background(), embedder, text)
}

func head(vec []float32, n int) []float32 {
	if len(vec) < n {
		return vec
	}
	return vec[:n]
}
