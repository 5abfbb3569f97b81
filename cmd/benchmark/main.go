package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kwsearch/config"
	"kwsearch/internal/adapter/analyzer"
	"kwsearch/internal/adapter/retriever"
	"kwsearch/internal/adapter/store"
	"kwsearch/internal/usecase"
)

// judgments maps a query to the ids of documents known to be relevant.
type judgments map[string][]int

func main() {
	dir := flag.String("dir", ".", "Project directory holding kwsearch.yaml and the index")
	query := flag.String("q", "", "Single query to time")
	judgmentsPath := flag.String("judgments", "", "YAML file mapping queries to relevant document ids")
	topK := flag.Int("k", 5, "Number of results")
	runs := flag.Int("n", 100, "Repetitions per query")
	modeName := flag.String("mode", "bm25", "Ranking mode: bm25, semantic or hybrid")
	flag.Parse()

	if *query == "" && *judgmentsPath == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\" [-n 100]")
		fmt.Println("       go run ./cmd/benchmark -dir . -judgments queries.yaml")
		fmt.Println("\nReports:")
		fmt.Println("  1. Query latency (mean, p50, p95, max)")
		fmt.Println("  2. Precision@k, Recall@k, MRR and nDCG when judgments are given")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}

	mode, err := usecase.ParseMode(*modeName)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if mode != usecase.ModeBM25 {
		fatalf("Error: only bm25 is benchmarked offline; use the serve command for %s", mode)
	}

	engine, err := openEngine(cfg, *dir)
	if err != nil {
		fatalf("Error opening index: %v", err)
	}

	queries := map[string][]int{}
	if *query != "" {
		queries[*query] = nil
	}
	if *judgmentsPath != "" {
		j, err := loadJudgments(*judgmentsPath)
		if err != nil {
			fatalf("Error loading judgments: %v", err)
		}
		for q, rel := range j {
			queries[q] = rel
		}
	}

	stats, _ := engine.Stats()
	fmt.Println("SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Documents: %d  Terms: %d  Analyzer: %s\n", stats.Documents, stats.Terms, stats.Analyzer)
	fmt.Printf("Queries: %d  Runs: %d  k: %d\n\n", len(queries), *runs, *topK)

	ordered := make([]string, 0, len(queries))
	for q := range queries {
		ordered = append(ordered, q)
	}
	sort.Strings(ordered)

	var all []time.Duration
	var precision, recall, mrr, ndcg float64
	judged := 0

	for _, q := range ordered {
		latencies := make([]time.Duration, 0, *runs)
		var ids []int
		for i := 0; i < *runs; i++ {
			start := time.Now()
			results, err := engine.Search(mode, q, *topK)
			latencies = append(latencies, time.Since(start))
			if err != nil {
				fatalf("Search error: %v", err)
			}
			ids = retriever.IDs(results)
		}
		all = append(all, latencies...)

		fmt.Printf("Query: %q\n", q)
		fmt.Printf("  latency %s\n", summarize(latencies))
		fmt.Printf("  ranked  %v\n", ids)

		relevant := queries[q]
		if relevant == nil {
			fmt.Println()
			continue
		}
		p := retriever.PrecisionAtK(ids, relevant)
		r := retriever.RecallAtK(ids, relevant)
		rr := retriever.ReciprocalRank(ids, relevant)
		n := retriever.NDCG(gains(ids, relevant), idealGains(len(relevant), *topK))
		fmt.Printf("  P@%d %.3f  R@%d %.3f  RR %.3f  nDCG %.3f\n\n", *topK, p, *topK, r, rr, n)

		precision += p
		recall += r
		mrr += rr
		ndcg += n
		judged++
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Overall latency: %s\n", summarize(all))
	if judged > 0 {
		d := float64(judged)
		fmt.Printf("Mean P@%d: %.3f  Mean R@%d: %.3f  MRR: %.3f  Mean nDCG: %.3f\n",
			*topK, precision/d, *topK, recall/d, mrr/d, ndcg/d)
	}
}

func openEngine(cfg *config.Config, dir string) (*usecase.Engine, error) {
	stemmer, err := analyzer.NewStemmer(cfg.Index.Stemmer)
	if err != nil {
		return nil, err
	}
	stopwords, err := analyzer.LoadStopwords(config.ResolvePath(dir, cfg.Corpus.Stopwords))
	if err != nil {
		return nil, err
	}

	engine := usecase.NewEngine(usecase.EngineOptions{
		Store:     store.NewBoltStore(cfg.IndexDBPath(dir)),
		Tokenizer: analyzer.NewTokenizer(stemmer, stopwords),
		Params:    retriever.Params{K1: cfg.Search.K1, B: cfg.Search.B},
		MinScore:  cfg.Search.MinScore,
	})
	if err := engine.Reload(); err != nil {
		return nil, err
	}
	return engine, nil
}

func loadJudgments(path string) (judgments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var j judgments
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return j, nil
}

// gains marks each ranked id 1 if relevant, 0 otherwise.
func gains(ids, relevant []int) []float64 {
	set := make(map[int]bool, len(relevant))
	for _, id := range relevant {
		set[id] = true
	}
	out := make([]float64, len(ids))
	for i, id := range ids {
		if set[id] {
			out[i] = 1
		}
	}
	return out
}

func idealGains(relevant, k int) []float64 {
	if relevant > k {
		relevant = k
	}
	out := make([]float64, relevant)
	for i := range out {
		out[i] = 1
	}
	return out
}

func summarize(latencies []time.Duration) string {
	if len(latencies) == 0 {
		return "n/a"
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, l := range sorted {
		total += l
	}
	mean := total / time.Duration(len(sorted))
	p50 := sorted[len(sorted)/2]
	p95 := sorted[(len(sorted)*95)/100]
	return fmt.Sprintf("mean %v  p50 %v  p95 %v  max %v", mean, p50, p95, sorted[len(sorted)-1])
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
