// Package main provides the loader CLI that feeds local folders, URL
// lists, and GitHub repositories into the server's ingestion API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/ragserver/internal/chunker"
	"github.com/bull/ragserver/internal/extract"
	ghclient "github.com/bull/ragserver/internal/github"
	"github.com/bull/ragserver/internal/pipeline"
)

var (
	flagFolder    string
	flagURLsFile  string
	flagAppURL    string
	flagChunkSize int
	flagOverlap   int
	flagVerbose   bool

	flagOwner    string
	flagRepo     string
	flagBasePath string
)

var rootCmd = &cobra.Command{
	Use:   "loader",
	Short: "Load documents into the RAG server",
	Long: `Extracts, chunks, and ingests content through the server's REST API.

Exactly one of --folder or --urls-file must be given. Text and markdown
files are split on paragraph boundaries, HTML files and fetched pages go
through article extraction, and every chunk is embedded and stored by
the server.`,
	RunE: runLoad,
}

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Ingest the markdown files of a GitHub repository directory",
	Long: `Fetches all markdown files under --path in --owner/--repo and ingests
them through the server's REST API. Set GITHUB_TOKEN for a higher API
rate limit.`,
	RunE: runGitHub,
}

func init() {
	rootCmd.Flags().StringVar(&flagFolder, "folder", "", "folder of text/markdown/HTML files to ingest")
	rootCmd.Flags().StringVar(&flagURLsFile, "urls-file", "", "file with one URL per line to fetch and ingest")

	rootCmd.PersistentFlags().StringVar(&flagAppURL, "app-url", "http://app:8080", "base URL of the running server")
	rootCmd.PersistentFlags().IntVar(&flagChunkSize, "chunk-size", chunker.DefaultChunkSize, "maximum chunk length in characters")
	rootCmd.PersistentFlags().IntVar(&flagOverlap, "overlap", chunker.DefaultOverlap, "overlap between adjacent chunks in characters")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	githubCmd.Flags().StringVar(&flagOwner, "owner", "", "repository owner")
	githubCmd.Flags().StringVar(&flagRepo, "repo", "", "repository name")
	githubCmd.Flags().StringVar(&flagBasePath, "path", "", "directory inside the repository to mirror")
	_ = githubCmd.MarkFlagRequired("owner")
	_ = githubCmd.MarkFlagRequired("repo")

	rootCmd.AddCommand(githubCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newPipeline wires the chunker, extractor, and API client into an
// ingestion pipeline for the current flag set.
func newPipeline() (*pipeline.Pipeline, *slog.Logger, error) {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ck, err := chunker.New(flagChunkSize, flagOverlap)
	if err != nil {
		return nil, nil, err
	}

	client := newAPIClient(flagAppURL)
	p := pipeline.New(ck, extract.NewHTMLExtractor(ck, logger), client, client, logger)
	return p, logger, nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	if (flagFolder == "") == (flagURLsFile == "") {
		return fmt.Errorf("exactly one of --folder or --urls-file is required")
	}

	p, _, err := newPipeline()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var stats *pipeline.RunStatistics
	if flagFolder != "" {
		stats, err = p.ProcessFolder(ctx, flagFolder)
	} else {
		stats, err = p.ProcessURLsFromFile(ctx, flagURLsFile)
	}
	if err != nil {
		return err
	}

	fmt.Println(stats.Summary())
	return nil
}

func runGitHub(cmd *cobra.Command, args []string) error {
	p, logger, err := newPipeline()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := ghclient.NewClient()
	if err != nil {
		return fmt.Errorf("github client: %w", err)
	}
	fetcher := ghclient.NewFetcher(client, flagOwner, flagRepo, flagBasePath)

	if sha, err := fetcher.LatestCommit(ctx); err == nil {
		logger.Info("mirroring repository", "owner", flagOwner, "repo", flagRepo,
			"path", flagBasePath, "commit", sha)
	}

	paths, err := fetcher.ListDocs(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	logger.Info("documents found", "count", len(paths))

	docs := make([]pipeline.Document, 0, len(paths))
	for _, relPath := range paths {
		doc, err := fetcher.FetchDoc(ctx, relPath)
		if err != nil {
			logger.Error("fetch failed", "path", relPath, "error", err)
			continue
		}
		docs = append(docs, pipeline.Document{
			Name:    doc.Path,
			Content: doc.Content,
			Path:    doc.RawURL,
		})
	}

	stats, err := p.ProcessDocs(ctx, docs)
	if err != nil {
		return err
	}

	fmt.Println(stats.Summary())
	return nil
}
