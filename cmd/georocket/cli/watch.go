package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tobias93/georocket/internal/importer"
	"github.com/tobias93/georocket/internal/watch"
)

// NewWatchCommand returns the "watch" command.
func NewWatchCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Continuously import files dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			p, err := openPipeline(ctx, cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			imp := importer.New(importer.Config{
				Store:    p.Store,
				Index:    p.Index,
				Registry: p.Registry,
				Logger:   logger,
			})

			w := watch.New(watch.Config{
				Dir:      args[0],
				Layer:    p.Layer,
				Importer: imp,
				Logger:   logger,
			})

			cmd.Printf("watching %s\n", args[0])
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		},
	}

	return cmd
}
