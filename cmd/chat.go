package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/trustagent/internal"
	"github.com/spf13/cobra"
)

var (
	// Per-format content styles; the classifier picks one for each
	// assistant reply.
	jsonContentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("220"))

	markupContentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("208"))

	markdownContentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255"))

	plainContentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// styleByFormat renders content with the style matching its detected
// format.
func styleByFormat(content string) string {
	switch internal.Classify(content) {
	case internal.FormatJSON:
		return jsonContentStyle.Render(content)
	case internal.FormatXML, internal.FormatHTML:
		return markupContentStyle.Render(content)
	case internal.FormatMarkdown:
		return markdownContentStyle.Render(content)
	default:
		return plainContentStyle.Render(content)
	}
}

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive chat with the configured model.

Inside the chat, lines starting with / are commands:
  /new               Start a new conversation
  /sessions          List saved sessions
  /select <id>       Switch to another session
  /tools             Show discovered tools and the active set
  /toggle <tool>     Enable or disable a tool for the next message
  /servers           Show configured tool servers
  /start <server>    Start a tool server
  /stop <server>     Stop a tool server
  /quit              Leave the chat

Everything else is sent to the model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		backend := internal.NewLocalBackend(env.DB, env.Index, env.Config, env.Paths.SettingsPath())
		defer backend.Close()

		coordinator := internal.NewSyncCoordinator(backend)
		ctx := context.Background()
		if err := coordinator.Start(ctx); err != nil {
			// The chat stays usable; the next action retries.
			fmt.Println(errorStyle.Render(fmt.Sprintf("Startup incomplete: %v", err)))
		}
		defer coordinator.Teardown()

		fmt.Println(headerStyle.Render("💬 trustagent chat — /quit to leave, /tools for tools"))

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for {
			fmt.Print(promptStyle.Render("you> "))
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, "/") {
				if quit := runChatCommand(ctx, coordinator, backend, line); quit {
					break
				}
				continue
			}

			if err := coordinator.SendMessage(ctx, line); err != nil {
				internal.LogError("send failed: %v", err)
			}
			printLastReply(coordinator)
		}
		return scanner.Err()
	},
}

// runChatCommand handles a /command line; returns true on /quit
func runChatCommand(ctx context.Context, c *internal.SyncCoordinator, backend internal.Backend, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/new":
		if err := c.NewChat(ctx); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("New chat failed: %v", err)))
		} else {
			fmt.Println(statusStyle.Render("Started a new conversation."))
		}

	case "/sessions":
		for _, s := range c.Sessions() {
			marker := "  "
			if current := c.CurrentSession(); current != nil && current.ID == s.ID {
				marker = "* "
			}
			fmt.Printf("%s%s  %s\n", marker, idStyle.Render(s.ID), s.Title)
		}

	case "/select":
		if len(fields) < 2 {
			fmt.Println(errorStyle.Render("Usage: /select <session-id>"))
			break
		}
		if err := c.SelectSession(ctx, fields[1]); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Select failed: %v", err)))
			break
		}
		current := c.CurrentSession()
		fmt.Println(statusStyle.Render(fmt.Sprintf("Switched to %q (%d messages).", current.Title, len(current.Messages))))

	case "/tools":
		names, err := backend.GetAllDiscoveredTools(ctx)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Tool query failed: %v", err)))
			break
		}
		active := make(map[string]bool)
		for _, name := range c.ActiveTools() {
			active[name] = true
		}
		if len(names) == 0 {
			fmt.Println(statusStyle.Render("No tools discovered. Start a server with /start <name>."))
			break
		}
		for _, name := range names {
			mark := "[ ]"
			if active[name] {
				mark = "[x]"
			}
			fmt.Printf("  %s %s\n", mark, name)
		}

	case "/toggle":
		if len(fields) < 2 {
			fmt.Println(errorStyle.Render("Usage: /toggle <tool-name>"))
			break
		}
		c.ToggleTool(fields[1])
		fmt.Println(statusStyle.Render(fmt.Sprintf("Active tools: %s", strings.Join(c.ActiveTools(), ", "))))

	case "/servers":
		servers, err := backend.GetMCPServers(ctx)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Server query failed: %v", err)))
			break
		}
		if len(servers) == 0 {
			fmt.Println(statusStyle.Render("No servers configured. Add them under mcpServers in settings.json."))
			break
		}
		for _, s := range servers {
			fmt.Printf("  %s  %s\n", s.Name, string(s.Status))
		}

	case "/start":
		if len(fields) < 2 {
			fmt.Println(errorStyle.Render("Usage: /start <server-name>"))
			break
		}
		if err := backend.StartMCPServer(ctx, fields[1]); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Start failed: %v", err)))
		} else {
			fmt.Println(statusStyle.Render(fmt.Sprintf("Server %s running.", fields[1])))
		}

	case "/stop":
		if len(fields) < 2 {
			fmt.Println(errorStyle.Render("Usage: /stop <server-name>"))
			break
		}
		if err := backend.StopMCPServer(ctx, fields[1]); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Stop failed: %v", err)))
		} else {
			fmt.Println(statusStyle.Render(fmt.Sprintf("Server %s stopped.", fields[1])))
		}

	default:
		fmt.Println(errorStyle.Render(fmt.Sprintf("Unknown command %s", fields[0])))
	}
	return false
}

// printLastReply shows the newest assistant message in the current
// transcript, styled by its detected format.
func printLastReply(c *internal.SyncCoordinator) {
	current := c.CurrentSession()
	if current == nil || len(current.Messages) == 0 {
		return
	}
	last := current.Messages[len(current.Messages)-1]
	if last.Role != internal.RoleAssistant {
		return
	}
	fmt.Println(assistantMessageStyle.Render("Assistant"))
	fmt.Println(messageContentStyle.Render(styleByFormat(last.Content)))
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
