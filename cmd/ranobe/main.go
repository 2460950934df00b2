package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	logLevel   string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "ranobe",
	Short: "Terminal reader for light novels",
	Long: `ranobe browses a light novel catalog, reads chapters in the terminal
and remembers where you stopped in every chapter.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReader(cmd, "", "")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to database file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error, off")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "skip startup banner")
}

// runReader starts the TUI, optionally at a novel or chapter.
func runReader(cmd *cobra.Command, novelID, chapterID string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.UI.Banner && !quiet {
		tui.ShowBanner(cmd.OutOrStdout(), Version)
	}

	app := tui.NewApp(rt.cfg, rt.deps())
	defer app.Close()
	if novelID != "" || chapterID != "" {
		app.StartAt(novelID, chapterID)
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		debuglog.Errorf("program exited: %v", err)
		return fmt.Errorf("running reader: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
