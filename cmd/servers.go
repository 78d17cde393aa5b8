package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/trustagent/internal"
	"github.com/spf13/cobra"
)

// serversCmd represents the servers command
var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List configured tool servers",
	Long: `List the MCP servers configured in settings.json.

Servers run as subprocesses of an active chat; outside a chat they are
always stopped. Use 'trustagent servers tools <name>' to start one just
long enough to discover its tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := appPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve app directories: %w", err)
		}
		cfg, err := internal.LoadOrInitConfig(paths.SettingsPath())
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		if len(cfg.MCPServers) == 0 {
			fmt.Println(headerStyle.Render("🔌 No servers configured"))
			fmt.Println(idStyle.Render("Add entries under mcpServers in " + paths.SettingsPath()))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("🔌 %d configured server(s)", len(cfg.MCPServers))))
		fmt.Println()

		w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Name")+"\t"+titleStyle.Render("Command")+"\t")
		for _, info := range serverInfos(cfg) {
			server := cfg.MCPServers[info.Name]
			command := strings.TrimSpace(server.Command + " " + strings.Join(server.Args, " "))
			_, _ = fmt.Fprintf(w, "%s\t%s\t\n", info.Name, dateStyle.Render(command))
		}
		_ = w.Flush()
		return nil
	},
}

// serversToolsCmd discovers the tools a server advertises
var serversToolsCmd = &cobra.Command{
	Use:   "tools <server-name>",
	Short: "Discover the tools a server provides",
	Long: `Start the named server, list the tools it advertises, and stop it
again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		paths, err := appPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve app directories: %w", err)
		}
		cfg, err := internal.LoadOrInitConfig(paths.SettingsPath())
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		manager := internal.NewServerManager(cfg.MCPServers, nil)
		ctx := context.Background()
		if err := manager.StartServer(ctx, name); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		defer manager.StopAll()

		tools := manager.DiscoveredTools(name)
		if len(tools) == 0 {
			fmt.Println(headerStyle.Render(fmt.Sprintf("🔧 %s advertises no tools", name)))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("🔧 %d tool(s) on %s", len(tools), name)))
		fmt.Println()
		for _, tool := range tools {
			fmt.Printf("  %s  %s\n", titleStyle.Render(tool.ToolName), dateStyle.Render(tool.Description))
		}
		return nil
	},
}

// serverInfos lists configured servers sorted by name, all stopped
// since no chat is running.
func serverInfos(cfg internal.AppConfig) []internal.ServerInfo {
	manager := internal.NewServerManager(cfg.MCPServers, nil)
	return manager.Servers()
}

func init() {
	rootCmd.AddCommand(serversCmd)
	serversCmd.AddCommand(serversToolsCmd)
}
