package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/trustagent/internal"
	"github.com/spf13/cobra"
)

var (
	showLimit      int
	showWithSystem bool
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	systemMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show messages for a specific session",
	Long:  `Display the transcript of a saved chat session.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		session, err := env.DB.GetSession(args[0])
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		displaySessionHeader(session)

		messages := session.Messages
		if !showWithSystem {
			messages = filterSystemMessages(messages)
		}
		if showLimit > 0 && len(messages) > showLimit {
			messages = messages[len(messages)-showLimit:]
		}

		for _, msg := range messages {
			displayMessage(msg)
		}
		return nil
	},
}

func displaySessionHeader(session *internal.Session) {
	fmt.Println(sessionHeaderStyle.Render("💬 " + session.Title))

	meta := fmt.Sprintf("ID: %s  •  %d message(s)", session.ID, len(session.Messages))
	if !session.CreatedAt.IsZero() {
		meta += "  •  created " + session.CreatedAt.Format("2006-01-02 15:04")
	}
	fmt.Println(sessionMetaStyle.Render(meta))
}

func displayMessage(msg internal.Message) {
	var label string
	switch msg.Role {
	case internal.RoleUser:
		label = userMessageStyle.Render("You")
	case internal.RoleAssistant:
		label = assistantMessageStyle.Render("Assistant")
	default:
		label = systemMessageStyle.Render("System")
	}

	if !msg.Timestamp.IsZero() {
		label += " " + timestampStyle.Render(msg.Timestamp.Format(time.Kitchen))
	}

	fmt.Println(label)
	fmt.Println(messageContentStyle.Render(styleByFormat(msg.Content)))
}

func filterSystemMessages(messages []internal.Message) []internal.Message {
	var out []internal.Message
	for _, m := range messages {
		if m.Role != internal.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Show only the last N messages")
	showCmd.Flags().BoolVar(&showWithSystem, "system", false, "Include system messages")
}
