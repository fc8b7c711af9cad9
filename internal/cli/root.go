// Package cli wires the editor's commands: the bare invocation opens the
// interactive TUI, subcommands cover scripted checks and log inspection.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"nihonjindes-editor/internal/model"
	"nihonjindes-editor/internal/session"
	"nihonjindes-editor/internal/tui"

	"github.com/spf13/cobra"
)

// DefaultCoursePath is edited when no file argument is given.
const DefaultCoursePath = "data/course.json"

type App struct {
	Path      string
	NoBackup  bool
	NoLog     bool
	CreateNew bool

	HistoryLimit   int
	SaveDebounce   time.Duration
	CoalesceWindow time.Duration
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "nihonjindes-editor [course.json]",
		Short:        "Interactive editor for the Nihonjindes course file",
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		Example: `  # Edit the default course file
  nihonjindes-editor

  # Edit a specific file
  nihonjindes-editor data/course.json

  # Validate a file without opening the editor
  nihonjindes-editor check data/course.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				app.Path = args[0]
			}
			return runEditor(app)
		},
	}

	cmd.PersistentFlags().BoolVar(&app.NoBackup, "no-backup", false, "Skip the timestamped backup taken on open")
	cmd.PersistentFlags().BoolVar(&app.NoLog, "no-log", false, "Skip the SQLite activity log")
	cmd.Flags().BoolVar(&app.CreateNew, "create", false, "Start from an empty course when the file does not exist")
	cmd.Flags().IntVar(&app.HistoryLimit, "history-limit", 0, "Undo depth (0 = default)")
	cmd.Flags().DurationVar(&app.SaveDebounce, "save-debounce", 0, "Autosave delay after the last edit (0 = default)")
	cmd.Flags().DurationVar(&app.CoalesceWindow, "coalesce-window", 0, "Window for grouping typed edits into one undo step (0 = default)")

	cmd.AddCommand(newCheckCmd(app))
	cmd.AddCommand(newLogCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func runEditor(app *App) error {
	path := app.Path
	if path == "" {
		path = DefaultCoursePath
	}
	opts := session.Options{
		HistoryLimit:    app.HistoryLimit,
		CoalesceWindow:  app.CoalesceWindow,
		SaveDebounce:    app.SaveDebounce,
		SkipBackup:      app.NoBackup,
		SkipActivityLog: app.NoLog,
	}

	sess, err := session.Open(path, opts)
	if err != nil {
		if app.CreateNew && errors.Is(err, os.ErrNotExist) {
			sess = session.New(model.NewEmpty(), path, opts)
		} else {
			return err
		}
	}
	defer func() { _ = sess.Close() }()

	if backup := sess.BackupPath(); backup != "" {
		fmt.Fprintf(os.Stderr, "backup written to %s\n", backup)
	}
	return tui.Run(sess)
}
