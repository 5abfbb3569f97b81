package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kwsearch/internal/adapter/retriever"
	"kwsearch/internal/domain"
)

var (
	termK1 float64
	termB  float64
)

var tfCmd = &cobra.Command{
	Use:   "tf <doc_id> <term>",
	Short: "Term frequency of a term in a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scorer, id, err := scorerForDoc(args[0])
		if err != nil {
			return err
		}
		tf, err := scorer.TF(id, args[1])
		if err != nil {
			return err
		}
		fmt.Println(tf)
		return nil
	},
}

var idfCmd = &cobra.Command{
	Use:   "idf <term>",
	Short: "Inverse document frequency, ln((N+1)/(df+1))",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scorer, err := openScorer()
		if err != nil {
			return err
		}
		return printScore(scorer.IDF(args[0]))
	},
}

var bm25idfCmd = &cobra.Command{
	Use:   "bm25idf <term>",
	Short: "BM25 inverse document frequency, ln((N-df+0.5)/(df+0.5)+1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scorer, err := openScorer()
		if err != nil {
			return err
		}
		return printScore(scorer.BM25IDF(args[0]))
	},
}

var tfidfCmd = &cobra.Command{
	Use:   "tfidf <doc_id> <term>",
	Short: "TF-IDF score of a term in a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scorer, id, err := scorerForDoc(args[0])
		if err != nil {
			return err
		}
		return printScore(scorer.TFIDF(id, args[1]))
	},
}

var bm25tfCmd = &cobra.Command{
	Use:   "bm25tf <doc_id> <term>",
	Short: "Saturated, length-normalized BM25 term frequency",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scorer, id, err := scorerForDoc(args[0])
		if err != nil {
			return err
		}
		return printScore(scorer.BM25TF(id, args[1], termParams(cmd)))
	},
}

var bm25Cmd = &cobra.Command{
	Use:   "bm25 <doc_id> <term>",
	Short: "BM25 score of a single term in a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scorer, id, err := scorerForDoc(args[0])
		if err != nil {
			return err
		}
		return printScore(scorer.BM25(id, args[1], termParams(cmd)))
	},
}

func init() {
	for _, cmd := range []*cobra.Command{bm25tfCmd, bm25Cmd} {
		cmd.Flags().Float64Var(&termK1, "k1", 0, "term frequency saturation (default from config)")
		cmd.Flags().Float64Var(&termB, "b", 0, "length normalization (default from config)")
	}
	rootCmd.AddCommand(tfCmd, idfCmd, bm25idfCmd, tfidfCmd, bm25tfCmd, bm25Cmd)
}

func termParams(cmd *cobra.Command) retriever.Params {
	p := searchParams()
	if cmd.Flags().Changed("k1") {
		p.K1 = termK1
	}
	if cmd.Flags().Changed("b") {
		p.B = termB
	}
	return p
}

func openScorer() (*retriever.Scorer, error) {
	engine, err := openEngine(engineOptions{params: searchParams()})
	if err != nil {
		return nil, err
	}
	return engine.Scorer()
}

func scorerForDoc(rawID string) (*retriever.Scorer, int, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: document id %q is not an integer", domain.ErrInvalidArgument, rawID)
	}
	scorer, err := openScorer()
	if err != nil {
		return nil, 0, err
	}
	return scorer, id, nil
}

func printScore(v float64, err error) error {
	if err != nil {
		return err
	}
	fmt.Println(formatScore(v))
	return nil
}
