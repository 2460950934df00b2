package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/manifoldco/promptui"
	"github.com/pelletier/go-toml/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pders01/ranobe/internal/config"
	"github.com/pders01/ranobe/internal/reader"
	"github.com/pders01/ranobe/internal/tui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", tui.AppName, Version)
		fmt.Fprintln(out, "Light novel reader")
		fmt.Fprintln(out, "github.com/pders01/ranobe")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var (
	configOutput string
	configForce  bool
)

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configOutput
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists, pass --force to overwrite", path)
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			return fmt.Errorf("failed to generate config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or reset the reading settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored reading settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.Close()

		out, err := settingsTOML(rt.settings.Get())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var settingsResetYes bool

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default reading settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !settingsResetYes {
			prompt := promptui.Prompt{
				Label:     "Reset reading settings to defaults",
				IsConfirm: true,
				Stdin:     readCloser(cmd),
				Stdout:    writeCloser(cmd),
			}
			if _, err := prompt.Run(); err != nil {
				if errors.Is(err, promptui.ErrAbort) {
					fmt.Fprintln(cmd.OutOrStdout(), "Settings unchanged")
					return nil
				}
				return fmt.Errorf("confirmation: %w", err)
			}
		}

		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.settings.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Reading settings reset to defaults")
		return nil
	},
}

// settingsTOML renders settings with the keys used in the config file.
func settingsTOML(s reader.Settings) (string, error) {
	b, err := toml.Marshal(map[string]any{
		"font_family": string(s.FontFamily),
		"font_size":   s.FontSize,
		"line_height": s.LineHeight,
		"max_width":   string(s.MaxWidth),
		"theme":       string(s.Theme),
		"text_align":  string(s.TextAlign),
		"auto_scroll": string(s.AutoScrollSpeed),
	})
	if err != nil {
		return "", fmt.Errorf("encoding settings: %w", err)
	}
	return string(b), nil
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Inspect or prune saved reading positions",
}

var positionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reading positions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.Close()

		positions, err := rt.positions.List()
		if err != nil {
			return err
		}
		if len(positions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved positions")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), positionsTable(rt, positions))
		return nil
	},
}

func positionsTable(rt *runtime, positions []reader.ReadingPosition) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(tui.MutedColor)).
		Headers("CHAPTER", "NOVEL", "LINE", "PROGRESS", "SAVED")
	for _, p := range positions {
		chapter, novel := p.ChapterID, "-"
		if cached, err := rt.store.GetChapter(p.ChapterID); err == nil {
			chapter = cached.Chapter.DisplayTitle()
			novel = cached.Chapter.Novel.Title
		}
		progress := "-"
		if p.Progress != nil {
			progress = fmt.Sprintf("%.0f%%", *p.Progress)
		}
		t.Row(chapter, novel, strconv.Itoa(int(p.ScrollY)), progress, p.Time().Format(time.DateTime))
	}
	return t.Render()
}

var pruneKeep int

var positionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the most recently saved positions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.Close()

		keep := pruneKeep
		if keep < 0 {
			keep = rt.cfg.Reader.MaxPositions
		}
		if keep <= 0 {
			return errors.New("no limit configured, pass --keep")
		}
		removed, err := rt.positions.Prune(keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d positions, kept the newest %d\n", removed, keep)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <novel-id>",
	Short: "Fetch every chapter of a novel for offline reading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		novel, err := rt.library.Novel(ctx, args[0])
		if err != nil {
			return err
		}

		bar := progressbar.NewOptions(novel.ChapterCount(),
			progressbar.OptionSetDescription(novel.Title),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		fetched, err := rt.library.Download(ctx, novel.ID, func(done, total int) {
			bar.ChangeMax(total)
			_ = bar.Set(done)
		})
		_ = bar.Finish()
		if err != nil {
			return fmt.Errorf("download stopped after %d chapters: %w", fetched, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.MsgDownloaded(novel.Title, fetched, novel.ChapterCount()))
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Open a novel or chapter link in the reader",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		target, err := newResolvers(cfg).Resolve(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("cannot open %s: %w", args[0], err)
		}
		return runReader(cmd, target.NovelID, target.ChapterID)
	},
}

func init() {
	configGenCmd.Flags().StringVarP(&configOutput, "output", "o", "", "where to write the file (default ~/.config/ranobe/config.toml)")
	configGenCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configGenCmd)

	settingsResetCmd.Flags().BoolVarP(&settingsResetYes, "yes", "y", false, "skip the confirmation prompt")
	settingsCmd.AddCommand(settingsShowCmd, settingsResetCmd)

	positionsPruneCmd.Flags().IntVar(&pruneKeep, "keep", -1, "number of positions to keep (default reader.max_positions)")
	positionsCmd.AddCommand(positionsListCmd, positionsPruneCmd)

	rootCmd.AddCommand(versionCmd, configCmd, settingsCmd, positionsCmd, downloadCmd, openCmd)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// readCloser and writeCloser adapt the command streams for promptui.
func readCloser(cmd *cobra.Command) io.ReadCloser {
	if rc, ok := cmd.InOrStdin().(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(cmd.InOrStdin())
}

func writeCloser(cmd *cobra.Command) io.WriteCloser {
	if wc, ok := cmd.OutOrStdout().(io.WriteCloser); ok {
		return wc
	}
	return nopWriteCloser{cmd.OutOrStdout()}
}
