package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/importer"
)

// NewImportCommand returns the "import" command.
func NewImportCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a GML or GeoJSON file, splitting it into chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			p, err := openPipeline(ctx, cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			mimeType, _ := cmd.Flags().GetString("mime-type")
			correlationID, _ := cmd.Flags().GetString("correlation-id")

			path := args[0]
			if mimeType == "" {
				mimeType = mimeTypeForExt(filepath.Ext(path))
				if mimeType == "" {
					return fmt.Errorf("import: cannot infer mime type from %q, pass --mime-type", path)
				}
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("import: open %s: %w", path, err)
			}
			defer func() { _ = f.Close() }()

			imp := importer.New(importer.Config{
				Store:    p.Store,
				Index:    p.Index,
				Registry: p.Registry,
				Logger:   logger,
			})

			indexMeta := chunk.IndexMeta{
				CorrelationID: chunk.CorrelationID(correlationID),
				Filename:      filepath.Base(path),
				Timestamp:     time.Now(),
			}

			result, err := imp.Import(ctx, f, mimeType, indexMeta, p.Layer)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			cmd.Printf("imported %d chunks in %dms\n", result.ChunkCount, result.ElapsedMillis)
			return nil
		},
	}

	cmd.Flags().String("mime-type", "", "mime type override (inferred from file extension otherwise)")
	cmd.Flags().String("correlation-id", "", "correlation ID to attach to every chunk from this import")
	return cmd
}

func mimeTypeForExt(ext string) string {
	switch ext {
	case ".xml", ".gml":
		return "application/xml"
	case ".json", ".geojson":
		return "application/json"
	default:
		return ""
	}
}
