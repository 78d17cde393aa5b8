package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/trustagent/internal"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	dataDir string
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trustagent",
	Short: "Chat with an LLM agent that can use local tools",
	Long: `A terminal client for conversing with an OpenAI-compatible model that
can call tools hosted by locally configured MCP servers.

Sessions are persisted locally and indexed for full-text search.

Features:
  • Interactive chat with per-reply content-format detection
  • Tool servers started on demand, tools toggled per conversation
  • Session list, transcript view, and full-text search
  • Export in multiple formats (JSONL, Markdown, YAML, JSON)

Quick Start:
  trustagent chat                    # Start a conversation
  trustagent list                    # List all sessions
  trustagent search <query>          # Search past conversations
  trustagent export <session-id> --format md

Configuration lives in settings.json; run 'trustagent config' to locate it.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Custom data location (overrides the platform config and data directories)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// appPaths resolves the config/data directories, honoring --data-dir
func appPaths() (internal.AppPaths, error) {
	if dataDir != "" {
		return internal.AppPaths{ConfigDir: dataDir, DataDir: dataDir}, nil
	}
	return internal.DetectAppPaths()
}

// appEnv is everything an open workspace needs: settings, the session
// database, and the search index.
type appEnv struct {
	Paths  internal.AppPaths
	Config internal.AppConfig
	DB     *internal.SessionDB
	Index  *internal.SearchIndex
}

// openEnv opens the workspace, creating directories and default
// settings on first run.
func openEnv() (*appEnv, error) {
	paths, err := appPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve app directories: %w", err)
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to create app directories: %w", err)
	}

	cfg, err := internal.LoadOrInitConfig(paths.SettingsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	db, err := internal.OpenSessionDB(paths.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	index, err := internal.OpenSearchIndex(paths.IndexPath())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	return &appEnv{Paths: paths, Config: cfg, DB: db, Index: index}, nil
}

// Close releases the database and index
func (e *appEnv) Close() {
	if err := e.Index.Close(); err != nil {
		internal.LogWarn("closing search index: %v", err)
	}
	if err := e.DB.Close(); err != nil {
		internal.LogWarn("closing session database: %v", err)
	}
}
