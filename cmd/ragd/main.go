// Ragd serves retrieval-augmented question answering over HTTP.
//
// Documents are chunked, embedded with the OpenAI embeddings API and stored
// in postgres (pgvector), chromem or qdrant. Questions are answered by a chat
// model from the most similar chunks.
//
// Configuration comes from a .env file, an optional YAML file and the
// environment. See internal/config for the keys.
//
// Usage:
//
//	# Start the server
//	ragd
//
//	# Create the table and index, then exit
//	DATABASE_URL=postgres://... ragd migrate
//
//	# Use the embedded store on disk
//	VECTORSTORE_PROVIDER=chromem VECTORSTORE_CHROMEM_PATH=./data ragd serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ragd",
		Short: "Retrieval-augmented generation API server",
		Long: `ragd stores documents as embedded chunks and answers questions from
the chunks most similar to them.

Running ragd without a subcommand is the same as "ragd serve".`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("RAGD_CONFIG"), "path to a YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ragd by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
