// Command georocket imports and queries chunk-oriented geospatial data
// (spec §1): XML (GML) and GeoJSON files split into individually addressable
// chunks, stored as blobs, and indexed for structured/glob/bbox query.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
package main

import (
	"log/slog"
	"os"

	"github.com/tobias93/georocket/cmd/georocket/cli"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rootCmd := &cobra.Command{
		Use:   "georocket",
		Short: "Chunk-oriented geospatial data store",
	}

	rootCmd.PersistentFlags().String("store-type", "file", "store backend: file or s3")
	rootCmd.PersistentFlags().String("store-dir", "./georocket-data", "file store directory (store-type=file)")
	rootCmd.PersistentFlags().Bool("store-compress", false, "compress blobs at rest with seekable zstd (store-type=file)")
	rootCmd.PersistentFlags().String("store-bucket", "", "S3 bucket (store-type=s3)")
	rootCmd.PersistentFlags().String("store-prefix", "", "S3 key prefix (store-type=s3)")
	rootCmd.PersistentFlags().String("store-region", "", "S3 region (store-type=s3)")
	rootCmd.PersistentFlags().String("store-endpoint", "", "S3-compatible endpoint (store-type=s3)")
	rootCmd.PersistentFlags().Bool("store-path-style", false, "use S3 path-style addressing (store-type=s3)")
	rootCmd.PersistentFlags().String("index-type", "memory", "index backend: memory")
	rootCmd.PersistentFlags().String("index-snapshot", "", "index snapshot file (index-type=memory)")
	rootCmd.PersistentFlags().String("layer", "", "default store layer/namespace")
	rootCmd.PersistentFlags().StringSlice("property-path", nil, "JSONPath expression extracted into generic attributes (repeatable)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}

	rootCmd.AddCommand(
		cli.NewImportCommand(logger),
		cli.NewQueryCommand(logger),
		cli.NewWatchCommand(logger),
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
