package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tobias93/georocket/internal/config"
	"github.com/tobias93/georocket/internal/retriever"
)

// NewQueryCommand returns the "query" command.
func NewQueryCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [query-string]",
		Short: "Query imported chunks and write the merged result to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			p, err := openPipeline(ctx, cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			raw := ""
			if len(args) == 1 {
				raw = args[0]
			}

			ret := retriever.New(retriever.Config{
				Store:     p.Store,
				Index:     p.Index,
				Factories: config.QueryFactories(p.Registry),
				Logger:    logger,
			})

			iq, err := ret.Query(raw)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			result, err := ret.Retrieve(ctx, iq, os.Stdout)
			if err != nil {
				if errors.Is(err, retriever.ErrNoMatchingChunks) {
					return fmt.Errorf("query: no chunks matched %q", raw)
				}
				return fmt.Errorf("query: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stderr, "matched %d chunks\n", result.ChunkCount)
			return nil
		},
	}

	return cmd
}
