// Package main implements the ragctl CLI for the ragd HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

var (
	// serverURL is the base URL for the ragd HTTP server
	serverURL string
	// apiKey is sent as x-api-key on /api requests
	apiKey string
	// timeout bounds each request
	timeout time.Duration
	// outputJSON prints raw responses instead of text
	outputJSON bool
	// version information
	version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragctl",
		Short: "CLI for the ragd HTTP API",
		Long: `ragctl is a command-line interface for the ragd HTTP API.
It adds and processes documents, asks questions and checks server health.

The API key is read from --api-key or RAGD_API_KEY.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3001", "ragd server URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("RAGD_API_KEY"), "API key (default $RAGD_API_KEY)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	root.PersistentFlags().BoolVar(&outputJSON, "json", false, "print responses as JSON")

	root.AddCommand(
		newHealthCmd(),
		newQueryCmd("query", "Answer a question from the most similar documents", (*client).Query),
		newQueryCmd("search", "Same as query, through /api/documents/search", (*client).Search),
		newDirectCmd(),
		newAddCmd(),
		newProcessCmd(),
		newUploadCmd(),
		newDeleteCmd(),
	)
	return root
}

func apiClient() *client {
	return newClient(serverURL, apiKey, timeout)
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check ragd server health",
		Long: `Check the health status of the ragd HTTP server.

Examples:
  # Check health
  ragctl health

  # Check health on a different server
  ragctl health --server http://rag.internal:3001`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient().Health(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintf(w, "Server Status: %s\n", resp.Status)
			})
		},
	}
}

type queryFunc func(c *client, ctx context.Context, query string, k int) (*v1.QueryResponse, error)

func newQueryCmd(name, short string, fn queryFunc) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   name + " <question>",
		Short: short,
		Long: short + `.

Examples:
  ragctl ` + name + ` "What is the capital of France?"
  ragctl ` + name + ` -k 5 "How do I rotate the API key?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := fn(apiClient(), cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp, func(w io.Writer) { printAnswer(w, resp) })
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of documents to retrieve (server default 3)")
	return cmd
}

func newDirectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "direct <question>",
		Short: "Ask the chat model without retrieving documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient().DirectQuery(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp, func(w io.Writer) { fmt.Fprintln(w, resp.Answer) })
		},
	}
}

func newAddCmd() *cobra.Command {
	var metadata string
	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Add a file or stdin as a single document",
		Long: `Add a file or stdin as a single unchunked document.

Examples:
  ragctl add notes.txt --metadata '{"source":"notes"}'
  echo "The capital of France is Paris." | ragctl add -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), args, metadata)
			if err != nil {
				return err
			}
			resp, err := apiClient().AddDocument(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s (id %s)\n", resp.Message, resp.ID)
			})
		},
	}
	cmd.Flags().StringVar(&metadata, "metadata", "", "document metadata as a JSON object")
	return cmd
}

func newProcessCmd() *cobra.Command {
	var metadata string
	cmd := &cobra.Command{
		Use:   "process [file...]",
		Short: "Chunk and store files or stdin",
		Long: `Chunk and store one or more text files, or stdin. Several files are
sent in one request and fail together.

Examples:
  ragctl process handbook.txt
  ragctl process a.txt b.txt --metadata '{"team":"platform"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) <= 1 {
				doc, err := readDocument(cmd.InOrStdin(), args, metadata)
				if err != nil {
					return err
				}
				resp, err := apiClient().Process(cmd.Context(), doc)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp, func(w io.Writer) { printProcessed(w, *resp) })
			}

			docs := make([]v1.DocumentRequest, len(args))
			for i, path := range args {
				doc, err := readDocument(cmd.InOrStdin(), []string{path}, metadata)
				if err != nil {
					return err
				}
				docs[i] = doc
			}
			resp, err := apiClient().ProcessMultiple(cmd.Context(), docs)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp, func(w io.Writer) {
				for _, p := range resp {
					printProcessed(w, p)
				}
			})
		},
	}
	cmd.Flags().StringVar(&metadata, "metadata", "", "metadata for every document as a JSON object")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var metadata string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a text or PDF file for extraction and processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseMetadata(metadata)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			resp, err := apiClient().Upload(cmd.Context(), args[0], f, meta)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp, func(w io.Writer) { printProcessed(w, *resp) })
		},
	}
	cmd.Flags().StringVar(&metadata, "metadata", "", "document metadata as a JSON object")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored document or chunk by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient().DeleteDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s (id %s)\n", resp.Message, resp.ID)
			})
		},
	}
}

// readDocument reads the content of args[0], or stdin when args is empty
// or "-".
func readDocument(stdin io.Reader, args []string, metadata string) (v1.DocumentRequest, error) {
	meta, err := parseMetadata(metadata)
	if err != nil {
		return v1.DocumentRequest{}, err
	}

	var content []byte
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(stdin)
		if err != nil {
			return v1.DocumentRequest{}, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return v1.DocumentRequest{}, fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	if strings.TrimSpace(string(content)) == "" {
		return v1.DocumentRequest{}, fmt.Errorf("no content to send")
	}
	return v1.DocumentRequest{Content: string(content), Metadata: meta}, nil
}

func parseMetadata(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("--metadata must be a JSON object: %w", err)
	}
	return meta, nil
}

func render(w io.Writer, v any, text func(io.Writer)) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func printAnswer(w io.Writer, resp *v1.QueryResponse) {
	fmt.Fprintln(w, resp.Answer)
	if len(resp.Sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, s := range resp.Sources {
		fmt.Fprintf(w, "  [%d] %.3f %s\n", i+1, s.Similarity, snippet(s.Content, 80))
	}
}

func printProcessed(w io.Writer, p v1.ProcessedDocument) {
	fmt.Fprintf(w, "Stored %d chunk(s) from %d characters\n", len(p.Chunks), len([]rune(p.Content)))
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
