// Command medkb is the operator frontend for the medical knowledge
// retrieval engine: ingest documents, query them, and maintain the store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/citation"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/common/logger"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/embedding"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/ingest"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/searcher"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/vectordb"
)

type app struct {
	cfg      *config.Config
	store    vectordb.VectorStoreProvider
	embedder embedding.Provider
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	embedder, err := embedding.NewEmbeddingProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider failed, err: %w", err)
	}
	store, err := vectordb.NewVectorDBProvider(&cfg.VectorDB, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("init vector store failed, err: %w", err)
	}
	return &app{cfg: cfg, store: store, embedder: embedder}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Warnf("close vector store: %v", err)
	}
}

func main() {
	// Missing .env is fine, environment may be set by the shell.
	_ = godotenv.Load()

	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:           "medkb",
		Short:         "Medical knowledge retrieval engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(logger.LevelDebug)
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newSearchCmd(&configPath),
		newSourcesCmd(&configPath),
		newIngestCmd(&configPath),
		newCollectCmd(&configPath),
		newChunksCmd(&configPath),
		newDeleteCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newSearchCmd(configPath *string) *cobra.Command {
	var (
		specialty  string
		source     string
		maxResults int
		minYear    int
		includeLow bool
		style      string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			s := searcher.New(a.cfg, a.store, a.embedder)
			var result *schema.RAGSearchResult
			switch {
			case minYear > 0:
				result = s.RecentResearch(ctx, args[0], maxResults, minYear)
			case specialty != "":
				result = s.SearchBySpecialty(ctx, args[0], specialty, maxResults)
			case source != "":
				src, err := schema.ParseSource(source)
				if err != nil {
					return err
				}
				result = s.SearchBySource(ctx, args[0], src, maxResults)
			default:
				result = s.Search(ctx, args[0], searcher.Options{
					MaxResults:           maxResults,
					IncludeLowConfidence: includeLow,
				})
			}
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printResult(result, style)
			return nil
		},
	}
	cmd.Flags().StringVar(&specialty, "specialty", "", "restrict to one medical specialty")
	cmd.Flags().StringVar(&source, "source", "", "restrict to one source (pubmed, who, cdc, manual)")
	cmd.Flags().IntVarP(&maxResults, "max", "n", 0, "maximum number of results")
	cmd.Flags().IntVar(&minYear, "min-year", 0, "restrict to research published in or after this year")
	cmd.Flags().BoolVar(&includeLow, "include-low-confidence", false, "keep results below the confidence threshold")
	cmd.Flags().StringVar(&style, "style", citation.StyleSimple, "citation style (apa, mla, simple)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	return cmd
}

func newSourcesCmd(configPath *string) *cobra.Command {
	var maxSources int
	cmd := &cobra.Command{
		Use:   "sources <topic>",
		Short: "List authoritative sources for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			citations := searcher.New(a.cfg, a.store, a.embedder).AuthoritativeSources(ctx, args[0], maxSources)
			if len(citations) == 0 {
				fmt.Println("No authoritative sources found.")
				return nil
			}
			for i, cit := range citations {
				fmt.Printf("%d. [%.2f] %s\n", i+1, cit.ConfidenceScore, citation.Format(cit, citation.StyleAPA))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxSources, "max", "n", 0, "maximum number of sources")
	return cmd
}

// ingestFile is the on-disk shape accepted by the ingest command: a JSON
// array of documents with content and metadata.
type ingestFile []struct {
	Content  string                  `json:"content"`
	Metadata schema.DocumentMetadata `json:"metadata"`
}

func newIngestCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file.json>...",
		Short: "Ingest documents from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			pipeline, err := ingest.NewPipeline(a.cfg, a.store, a.embedder)
			if err != nil {
				return err
			}

			var docs []ingest.RawDocument
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s failed, err: %w", path, err)
				}
				var batch ingestFile
				if err := json.Unmarshal(data, &batch); err != nil {
					return fmt.Errorf("parse %s failed, err: %w", path, err)
				}
				for _, d := range batch {
					docs = append(docs, ingest.RawDocument{Content: d.Content, Metadata: d.Metadata})
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			written, err := pipeline.Ingest(ctx, docs)
			if err != nil {
				return err
			}
			fmt.Printf("Stored %d chunks from %d documents.\n", written, len(docs))
			return nil
		},
	}
	return cmd
}

func newCollectCmd(configPath *string) *cobra.Command {
	var perSource int
	cmd := &cobra.Command{
		Use:   "collect <query>",
		Short: "Fetch and ingest documents from the configured sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			pipeline, err := ingest.NewPipeline(a.cfg, a.store, a.embedder)
			if err != nil {
				return err
			}
			collector, err := ingest.NewCollector(a.cfg, pipeline)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			written, err := collector.Collect(ctx, args[0], perSource)
			if err != nil {
				return err
			}
			fmt.Printf("Stored %d chunks from %v.\n", written, collector.Sources())
			return nil
		},
	}
	cmd.Flags().IntVar(&perSource, "per-source", 10, "documents to request per source")
	return cmd
}

func newChunksCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "chunks <document-hash>",
		Short: "List the stored chunks of one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			pipeline, err := ingest.NewPipeline(a.cfg, a.store, a.embedder)
			if err != nil {
				return err
			}
			docs, err := pipeline.ListChunks(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				section := schema.MetaString(doc.Metadata, schema.KeySection)
				fmt.Printf("%s  [%s] %d chars\n", doc.ID, section, len(doc.Content))
			}
			fmt.Printf("%d chunks.\n", len(docs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum chunks to list")
	return cmd
}

func newDeleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-hash>",
		Short: "Delete every chunk of one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			pipeline, err := ingest.NewPipeline(a.cfg, a.store, a.embedder)
			if err != nil {
				return err
			}
			if err := pipeline.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		},
	}
}

func printResult(result *schema.RAGSearchResult, style string) {
	if errMsg, ok := result.SearchMetadata["error"]; ok {
		fmt.Printf("Search failed: %v\n", errMsg)
		return
	}
	if result.TotalResults == 0 {
		fmt.Println("No results.")
		return
	}
	for i, cit := range result.Citations {
		fmt.Printf("%d. [%.2f] %s\n", i+1, result.ConfidenceScores[i], citation.Format(cit, style))
		if cit.Excerpt != "" {
			fmt.Printf("   %s\n", cit.Excerpt)
		}
	}
	fmt.Printf("%d results.\n", result.TotalResults)
}
