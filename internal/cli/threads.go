package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/internal/config"
	"github.com/hupe1980/chatflow/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	workflowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)

	humanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Bold(true)
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Inspect persisted conversations",
	Long:  `List, show and export conversations saved in the configured thread store.`,
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStoreFromEnv(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		recs, err := st.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list threads: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, headerStyle.Render("No threads found"))
			return nil
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d thread(s)", len(recs))))
		fmt.Fprintln(out)

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Workflow")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t")

		for _, rec := range recs {
			count := "0"
			if state, err := core.UnmarshalState(rec.State); err == nil {
				count = strconv.Itoa(len(state.Messages()))
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				idStyle.Render(rec.ThreadID),
				workflowStyle.Render(rec.Workflow),
				countStyle.Render(count),
				dateStyle.Render(formatWhen(rec.UpdatedAt)),
			)
		}

		return w.Flush()
	},
}

var threadsShowCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Print one conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStoreFromEnv(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		thread, err := loadThread(ctx, st, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render("Thread "+thread.ThreadID))
		fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("Workflow: %s | Messages: %d | Updated: %s",
			thread.Workflow, len(thread.Messages), formatWhen(thread.UpdatedAt))))
		fmt.Fprintln(out)

		for _, msg := range thread.Messages {
			fmt.Fprintln(out, roleStyle(msg.Type).Render(roleLabel(msg)))
			if msg.Content != "" {
				fmt.Fprintln(out, "  "+strings.ReplaceAll(msg.Content, "\n", "\n  "))
			}
			for _, call := range msg.ToolCalls {
				fmt.Fprintln(out, idStyle.Render(fmt.Sprintf("  -> %s (%s)", call.Name, call.ID)))
			}
			fmt.Fprintln(out)
		}

		return nil
	},
}

var threadsExportCmd = &cobra.Command{
	Use:   "export <thread-id>",
	Short: "Export one conversation",
	Long:  `Export a persisted conversation as json, yaml or markdown.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		st, err := openStoreFromEnv(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		thread, err := loadThread(ctx, st, args[0])
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			file, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() { _ = file.Close() }()
			out = file
		}

		if err := exporter.Export(thread, out); err != nil {
			return fmt.Errorf("failed to export thread: %w", err)
		}

		if exportOut != "" {
			fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("Exported "+thread.ThreadID+" to "+exportOut))
		}

		return nil
	},
}

// openStoreFromEnv loads configuration and opens the configured thread store.
func openStoreFromEnv(ctx context.Context) (core.ThreadStore, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}

	return st, nil
}

func loadThread(ctx context.Context, st core.ThreadStore, threadID string) (*export.Thread, error) {
	rec, err := st.Get(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	return export.FromRecord(*rec)
}

func roleStyle(msgType string) lipgloss.Style {
	switch msgType {
	case core.MessageTypeHuman:
		return humanStyle
	case core.MessageTypeAI:
		return assistantStyle
	case core.MessageTypeTool:
		return toolStyle
	default:
		return systemStyle
	}
}

func roleLabel(msg export.MessageDoc) string {
	switch msg.Type {
	case core.MessageTypeHuman:
		return "Human"
	case core.MessageTypeAI:
		return "Assistant"
	case core.MessageTypeTool:
		if msg.Name != "" {
			return "Tool (" + msg.Name + ")"
		}
		return "Tool"
	default:
		return "System"
	}
}

// formatWhen renders a timestamp relative to now, recent first.
func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	local := t.Local()
	switch diff := time.Since(t); {
	case diff < 24*time.Hour:
		return local.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return local.Format("Mon 15:04")
	default:
		return local.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(threadsCmd)
	threadsCmd.AddCommand(threadsListCmd)
	threadsCmd.AddCommand(threadsShowCmd)
	threadsCmd.AddCommand(threadsExportCmd)

	threadsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (json, yaml, markdown)")
	threadsExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (defaults to stdout)")
}
