package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"pdfrag/config"
	"pdfrag/internal/app"
	"pdfrag/internal/domain"
	"pdfrag/internal/logging"
)

func main() {
	dataDir := flag.String("dir", ".", "Directory holding the pdfrag store")
	docID := flag.String("D", "", "Document id")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 3, "Number of results")
	runs := flag.Int("runs", 5, "Number of timed retrievals")
	flag.Parse()

	if *runs < 1 {
		*runs = 1
	}

	if *query == "" || *docID == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./data -D <document id> -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Store and embedding model in use")
		fmt.Println("  2. Retrieval latency over several runs")
		fmt.Println("  3. Similarity of the returned chunks")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	st, err := app.OpenStore(cfg, *dataDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, err := app.NewEmbedder(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	ctx := context.Background()
	records, err := st.Search(ctx, cfg.Store.Table, *docID, nil, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Store: %s\n", cfg.Store.Backend)
	fmt.Printf("Chunks stored for document: %d\n", len(records))
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	retriever := app.NewRetriever(cfg, st, embedder, logger)

	var results []domain.RetrievalResult
	latencies := make([]time.Duration, 0, *runs)
	for i := 0; i < *runs; i++ {
		start := time.Now()
		results, err = retriever.Retrieve(ctx, *docID, *query, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieve error: %s (%v)\n", domain.UserMessage(err), err)
			os.Exit(domain.ExitCode(err))
		}
		latencies = append(latencies, time.Since(start))
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := r.Text
		if len([]rune(preview)) > 150 {
			preview = string([]rune(preview)[:150]) + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")

		totalScore += r.Similarity

		rating := "LOW"
		if r.Similarity > 0.7 {
			rating = "HIGH"
		} else if r.Similarity > 0.5 {
			rating = "GOOD"
		} else if r.Similarity > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, r.Similarity, r.NodeID)
		fmt.Printf("   %s\n\n", preview)
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Similarity)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - chunks are close to the query")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - the document may not cover this query")
	}
	fmt.Printf("LATENCY (%d runs):\n", len(latencies))
	fmt.Printf("  min %s  median %s  max %s\n",
		latencies[0], latencies[len(latencies)/2], latencies[len(latencies)-1])
}
