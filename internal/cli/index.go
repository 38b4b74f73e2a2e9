package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonrisasaludable/frontdesk/internal/config"
	"github.com/sonrisasaludable/frontdesk/internal/knowledge"
	"github.com/sonrisasaludable/frontdesk/internal/logging"
)

var (
	docsDir   string
	chunkSize int
)

func init() {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the knowledge index from .txt and .md documents",
		Args:  cobra.NoArgs,
		RunE:  runIndex,
	}
	cmd.Flags().StringVar(&docsDir, "docs", "docs", "Directory holding the clinic documents")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", knowledge.DefaultChunkOptions().TargetSize, "Target chunk size in bytes")

	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)

	embedder, err := newEmbedder(cmd.Context(), cfg.Knowledge)
	if err != nil {
		return err
	}

	builder := knowledge.NewBuilder(
		embedder,
		cfg.Knowledge.EmbeddingModel,
		knowledge.DefaultChunkOptions().WithTarget(chunkSize),
		logging.Component(logger, "indexer"),
	)

	stats, err := builder.Build(cmd.Context(), docsDir, cfg.Knowledge.IndexPath)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Índice '%s' creado: %d documentos, %d fragmentos, %d dimensiones\n",
		cfg.Knowledge.IndexPath, stats.Documents, stats.Chunks, stats.Dimensions)
	return nil
}
