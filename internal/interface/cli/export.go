package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/neilberkman/medichat/internal/core/export"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a conversation to markdown, JSON or YAML",
	Long: `Export a conversation to a file.

By default exports markdown to the current directory as session-<id>.md.
Use --output to specify a custom path, or - for stdout.

Examples:
  medichat export 6f1c2a
  medichat export 6f1c2a --format json
  medichat export 6f1c2a -f yaml -o ~/conversation.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: session-<id>.<ext> in current directory)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Output format: md, json or yaml")
}

func runExport(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	client := newClient()
	msgs, err := client.SessionMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	// Title matches the session list when the session is found there
	title := "Conversation " + sessionID
	if sessions, err := client.ListSessions(ctx); err == nil {
		for _, s := range sessions {
			if s.ID == sessionID {
				title = s.Title(len(sessions))
				break
			}
		}
	}

	transcript := export.NewTranscript(sessionID, title, msgs, time.Now())

	if exportOutput == "-" {
		return export.Write(cmd.OutOrStdout(), format, transcript)
	}

	outputPath := exportOutput
	if outputPath == "" {
		shortID := sessionID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		outputPath = fmt.Sprintf("session-%s.%s", shortID, format.Extension())
	}
	if !filepath.IsAbs(outputPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		outputPath = filepath.Join(cwd, outputPath)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := export.Write(f, format, transcript); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported session to: %s\n", outputPath)
	return nil
}
