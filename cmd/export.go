package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/trustagent/internal"
	"github.com/iksnae/trustagent/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export sessions to file",
	Long: `Export chat sessions to various formats (jsonl, md, yaml, json).

With a session ID, exports that single session. Without one, exports
every saved session. Use 'trustagent list' to see available IDs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		var sessions []*internal.Session
		if len(args) == 1 {
			session, err := env.DB.GetSession(args[0])
			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}
			sessions = []*internal.Session{session}
		} else {
			sessions, err = env.DB.ListSessions()
			if err != nil {
				return fmt.Errorf("failed to load sessions: %w", err)
			}
		}

		if len(sessions) == 0 {
			fmt.Println(headerStyle.Render("📋 No sessions to export"))
			return nil
		}

		if err := os.MkdirAll(exportOutput, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		for _, session := range sessions {
			path := filepath.Join(exportOutput, fmt.Sprintf("%s.%s", session.ID, exporter.Extension()))
			if err := writeExport(exporter, session, path); err != nil {
				return err
			}
			internal.LogInfo("exported %s to %s", session.ID, path)
		}

		fmt.Println(statusStyle.Render(fmt.Sprintf("Exported %d session(s) to %s", len(sessions), exportOutput)))
		return nil
	},
}

func writeExport(exporter export.Exporter, session *internal.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := exporter.Export(session, f); err != nil {
		return fmt.Errorf("failed to export %s: %w", session.ID, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", ".", "Output directory")
}
