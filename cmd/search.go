package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var searchRebuild bool

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search past conversations",
	Long: `Full-text search over session titles and messages.

Results are ranked by how strongly each session matches; the session
with the most relevant messages comes first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		if searchRebuild {
			sessions, err := env.DB.ListSessions()
			if err != nil {
				return fmt.Errorf("failed to load sessions: %w", err)
			}
			count, err := env.Index.RebuildIndex(sessions)
			if err != nil {
				return fmt.Errorf("failed to rebuild index: %w", err)
			}
			fmt.Println(statusStyle.Render(fmt.Sprintf("Indexed %d document(s).", count)))
		}

		query := strings.Join(args, " ")
		results, err := env.Index.Search(query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			fmt.Println(headerStyle.Render("🔍 No matches"))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("🔍 %d matching session(s)", len(results))))
		fmt.Println()
		for _, result := range results {
			session, err := env.DB.GetSession(result.SessionID)
			if err != nil {
				// Stale index entry; the session is gone.
				continue
			}
			score := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render(fmt.Sprintf("%.2f", result.Score))
			fmt.Printf("  %s  %s  %s\n", idStyle.Render(session.ID), session.Title, score)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchRebuild, "rebuild", false, "Rebuild the search index from the session database first")
}
